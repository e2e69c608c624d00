package command

import (
	"bytes"
	"testing"

	"github.com/kostiamol/fridgemon/log"
	"github.com/kostiamol/fridgemon/metric"
	"github.com/kostiamol/fridgemon/transport"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
)

func newController(out *bytes.Buffer) *Controller {
	return NewController(&ControllerCfg{
		Log:    log.NewWithOutput("test", "debug", out),
		Metric: metric.New("test"),
	})
}

func TestController(t *testing.T) {
	Convey("Given a new controller", t, func() {
		c := newController(&bytes.Buffer{})

		Convey("it starts in Sending", func() {
			So(c.State(), ShouldEqual, Sending)
			So(c.Sending(), ShouldBeTrue)
		})

		Convey("start then stop ends in Paused", func() {
			So(c.Invoke("start", nil), ShouldResemble, Response{Status: 200, Message: MsgSuccess})
			So(c.Invoke("stop", nil), ShouldResemble, Response{Status: 200, Message: MsgSuccess})
			So(c.State(), ShouldEqual, Paused)
		})

		Convey("stop then an unknown method stays Paused and answers 404", func() {
			c.Invoke("stop", nil)
			r := c.Invoke("foo", []byte(`{}`))
			So(r, ShouldResemble, Response{Status: 404, Message: "No method found"})
			So(c.State(), ShouldEqual, Paused)
		})

		Convey("an unknown method does not leave Sending either", func() {
			c.Invoke("reboot", nil)
			So(c.State(), ShouldEqual, Sending)
		})

		Convey("method names are case sensitive", func() {
			c.Invoke("STOP", nil)
			So(c.State(), ShouldEqual, Sending)
		})

		Convey("HandleMethod answers with a JSON string body", func() {
			status, body := c.HandleMethod("stop", nil)
			So(status, ShouldEqual, 200)
			So(string(body), ShouldEqual, `"Successfully invoke device method"`)

			status, body = c.HandleMethod("foo", nil)
			So(status, ShouldEqual, 404)
			So(string(body), ShouldEqual, `"No method found"`)
		})
	})
}

func TestResponseBody(t *testing.T) {
	r := Response{Status: StatusOK, Message: MsgSuccess}
	a, b := r.Body(), r.Body()
	a[0] = 'x'
	assert.Equal(t, byte('"'), b[0], "every body is a fresh allocation")
}

func TestPassiveCallbacks(t *testing.T) {
	out := &bytes.Buffer{}
	c := newController(out)

	c.OnMessage([]byte("hello"))
	assert.Contains(t, out.String(), "message [hello]")

	c.OnTwin(transport.TwinPartial, []byte(`{"desired":{"$version":2}}`))
	assert.Contains(t, out.String(), "twin_updated")

	out.Reset()
	c.OnTwin(transport.TwinComplete, nil)
	assert.Contains(t, out.String(), "dropped")
	assert.Equal(t, Sending, c.State(), "callbacks never change the state")
}
