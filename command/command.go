// Package command holds the remote start/stop state machine gating telemetry.
package command

import (
	"encoding/json"
	"strconv"

	"github.com/kostiamol/fridgemon/log"
	"github.com/kostiamol/fridgemon/metric"
	"github.com/kostiamol/fridgemon/transport"
)

// State of the telemetry gate.
type State int

const (
	Sending State = iota
	Paused
)

func (s State) String() string {
	switch s {
	case Sending:
		return "sending"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Recognized methods.
const (
	MethodStart = "start"
	MethodStop  = "stop"
)

// Response statuses and messages.
const (
	StatusOK       = 200
	StatusNotFound = 404

	MsgSuccess  = "Successfully invoke device method"
	MsgNotFound = "No method found"
)

// Response is the result of a method invocation.
type Response struct {
	Status  int
	Message string
}

// Body returns a newly allocated JSON string holding the message. The caller owns it.
func (r Response) Body() []byte {
	b, _ := json.Marshal(r.Message)
	return b
}

type (
	// ControllerCfg is used to initialize an instance of Controller.
	ControllerCfg struct {
		Log    log.Logger
		Metric *metric.Metric
	}

	// Controller is the command controller. It starts in Sending and has no terminal state. It is used
	// from a single goroutine: the transport runs its handlers when serviced.
	Controller struct {
		log    log.Logger
		metric *metric.Metric
		state  State
	}
)

// NewController creates a Controller in the Sending state.
func NewController(c *ControllerCfg) *Controller {
	ctrl := &Controller{
		log:    c.Log.With("component", "command"),
		metric: c.Metric,
		state:  Sending,
	}
	ctrl.metric.Sending(true)
	return ctrl
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Sending reports whether telemetry is enabled.
func (c *Controller) Sending() bool {
	return c.state == Sending
}

// Invoke runs a remote method. Unknown methods leave the state unchanged.
func (c *Controller) Invoke(method string, payload []byte) Response {
	var r Response
	switch method {
	case MethodStart:
		c.state = Sending
		r = Response{Status: StatusOK, Message: MsgSuccess}
	case MethodStop:
		c.state = Paused
		r = Response{Status: StatusOK, Message: MsgSuccess}
	default:
		r = Response{Status: StatusNotFound, Message: MsgNotFound}
	}

	c.metric.Sending(c.Sending())
	c.metric.MethodInvoked(method, strconv.Itoa(r.Status))
	c.log.With("event", log.EventMethodInvoked, "method", method, "status", r.Status).
		Infof("payload [%s], state [%s]", payload, c.state)

	return r
}

// HandleMethod is Invoke shaped as a transport method handler.
func (c *Controller) HandleMethod(method string, payload []byte) (int, []byte) {
	r := c.Invoke(method, payload)
	return r.Status, r.Body()
}

// OnMessage logs a cloud-to-device message.
func (c *Controller) OnMessage(payload []byte) {
	c.log.With("event", log.EventMessageReceived).Infof("message [%s]", payload)
}

// OnTwin logs a twin document or patch. A missing payload is dropped.
func (c *Controller) OnTwin(u transport.TwinUpdate, payload []byte) {
	if payload == nil {
		c.log.Warnf("func OnTwin: %s update without payload dropped", u)
		return
	}
	c.log.With("event", log.EventTwinUpdated, "update", u.String()).Infof("twin [%s]", string(payload))
}
