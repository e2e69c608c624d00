package transport

import (
	"sync"

	"github.com/kostiamol/fridgemon/log"
	"github.com/kostiamol/fridgemon/metric"
)

// StatusNoHandler is replied to method calls when no method handler is registered.
const StatusNoHandler = 501

type eventKind int

const (
	eventConfirmation eventKind = iota
	eventMessage
	eventTwin
	eventMethod
)

// replyFunc publishes a method response back to the caller.
type replyFunc func(status int, body []byte) error

type event struct {
	kind    eventKind
	payload []byte

	msgID  string
	result ConfirmationResult

	twin TwinUpdate

	method string
	reply  replyFunc
}

type (
	// DispatcherCfg is used to initialize an instance of Dispatcher.
	DispatcherCfg struct {
		Log       log.Logger
		Metric    *metric.Metric
		InboxSize int
	}

	// Dispatcher queues inbound work from backend goroutines and runs the registered handlers when
	// serviced. Backends embed it.
	Dispatcher struct {
		log    log.Logger
		metric *metric.Metric
		inbox  chan event

		mu             sync.RWMutex
		onConfirmation ConfirmationHandler
		onMessage      MessageHandler
		onTwin         TwinHandler
		onMethod       MethodHandler
	}
)

// NewDispatcher creates a Dispatcher with a bounded inbox.
func NewDispatcher(c *DispatcherCfg) *Dispatcher {
	size := c.InboxSize
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		log:    c.Log.With("component", "dispatcher"),
		metric: c.Metric,
		inbox:  make(chan event, size),
	}
}

// SetConfirmationHandler .
func (d *Dispatcher) SetConfirmationHandler(h ConfirmationHandler) {
	d.mu.Lock()
	d.onConfirmation = h
	d.mu.Unlock()
}

// SetMessageHandler .
func (d *Dispatcher) SetMessageHandler(h MessageHandler) {
	d.mu.Lock()
	d.onMessage = h
	d.mu.Unlock()
}

// SetTwinHandler .
func (d *Dispatcher) SetTwinHandler(h TwinHandler) {
	d.mu.Lock()
	d.onTwin = h
	d.mu.Unlock()
}

// SetMethodHandler .
func (d *Dispatcher) SetMethodHandler(h MethodHandler) {
	d.mu.Lock()
	d.onMethod = h
	d.mu.Unlock()
}

// Pending returns the number of queued events.
func (d *Dispatcher) Pending() int {
	return len(d.inbox)
}

func (d *Dispatcher) push(e event) bool {
	select {
	case d.inbox <- e:
		return true
	default:
		d.log.Warnf("inbox is full, event of kind [%d] dropped", e.kind)
		if d.metric != nil {
			d.metric.EventDropped()
		}
		return false
	}
}

func (d *Dispatcher) confirm(msgID string, r ConfirmationResult) {
	d.push(event{kind: eventConfirmation, msgID: msgID, result: r})
}

func (d *Dispatcher) message(payload []byte) {
	d.push(event{kind: eventMessage, payload: payload})
}

func (d *Dispatcher) twin(u TwinUpdate, payload []byte) {
	d.push(event{kind: eventTwin, twin: u, payload: payload})
}

func (d *Dispatcher) call(method string, payload []byte, reply replyFunc) {
	d.push(event{kind: eventMethod, method: method, payload: payload, reply: reply})
}

// ServiceOnce runs the handlers for the events queued when it was called. Events queued meanwhile
// wait for the next call.
func (d *Dispatcher) ServiceOnce() {
	d.service()
}

func (d *Dispatcher) service() int {
	n := len(d.inbox)
	for i := 0; i < n; i++ {
		d.handle(<-d.inbox)
	}
	return n
}

func (d *Dispatcher) handle(e event) {
	d.mu.RLock()
	onConfirmation, onMessage, onTwin, onMethod := d.onConfirmation, d.onMessage, d.onTwin, d.onMethod
	d.mu.RUnlock()

	switch e.kind {
	case eventConfirmation:
		if onConfirmation != nil {
			onConfirmation(e.msgID, e.result)
		}
	case eventMessage:
		if onMessage != nil {
			onMessage(e.payload)
		}
	case eventTwin:
		if onTwin != nil {
			onTwin(e.twin, e.payload)
		}
	case eventMethod:
		status, body := StatusNoHandler, []byte(`"No method handler"`)
		if onMethod != nil {
			status, body = onMethod(e.method, e.payload)
		}
		if e.reply == nil {
			return
		}
		if err := e.reply(status, body); err != nil {
			d.log.Errorf("func reply: method [%s]: %s", e.method, err)
			if d.metric != nil {
				d.metric.ErrorCounter("method_reply")
			}
		}
	}
}
