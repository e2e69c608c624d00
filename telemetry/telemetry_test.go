package telemetry

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kostiamol/fridgemon/log"
	"github.com/kostiamol/fridgemon/metric"
	"github.com/kostiamol/fridgemon/sensor"
	"github.com/kostiamol/fridgemon/transport"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
)

type recordingSender struct {
	err  error
	sent []*transport.Message
}

func (s *recordingSender) Send(m *transport.Message) error {
	s.sent = append(s.sent, m)
	return s.err
}

func sample() sensor.Sample {
	return sensor.Sample{FridgeTemp: 3.5, FridgeHumidity: 40.0, FreezerTemp: -18.2, FreezerHumidity: 55.0}
}

func TestFormat(t *testing.T) {
	b, err := Format("esp32-1", sample())
	assert.NoError(t, err)
	assert.Equal(t,
		`{"deviceId":"esp32-1", "FridgeTemp":3.500000, "FridgeHumidity":40.000000, "FreezerTemp":-18.200000, "FreezerHumidity":55.000000}`,
		string(b))

	_, err = Format(strings.Repeat("x", 200), sample())
	fe, ok := err.(*FormatError)
	if assert.True(t, ok) {
		assert.Equal(t, MaxPayloadLen, fe.Max)
		assert.True(t, fe.Len > MaxPayloadLen)
	}

	huge := sensor.Sample{FridgeTemp: 1e300}
	_, err = Format("esp32-1", huge)
	assert.Error(t, err, "wide numbers are reported instead of truncated")
}

func TestPublish(t *testing.T) {
	Convey("Given a publisher over a recording sender", t, func() {
		s := &recordingSender{}
		p := NewPublisher(&PublisherCfg{
			Log:    log.NewWithOutput("test", "info", io.Discard),
			Metric: metric.New("test"),
			Sender: s,
		})
		p.newID = func() string { return "6ba7b810-9dad-11d1-80b4-00c04fd430c8" }

		Convey("the formatted payload is sent with its properties", func() {
			msg, err := p.Publish(sample(), "esp32-1")
			So(err, ShouldBeNil)
			So(s.sent, ShouldHaveLength, 1)
			So(s.sent[0], ShouldEqual, msg)
			So(string(msg.Payload), ShouldStartWith, `{"deviceId":"esp32-1", "FridgeTemp":3.500000`)
			So(msg.Properties, ShouldResemble, map[string]string{
				"temperatureAlert": "true",
				"messageId":        "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
			})
		})

		Convey("a transport error is returned", func() {
			s.err = errors.New("not connected")
			_, err := p.Publish(sample(), "esp32-1")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "not connected")
		})

		Convey("an oversized payload is never sent", func() {
			_, err := p.Publish(sample(), strings.Repeat("x", 300))
			So(err, ShouldNotBeNil)
			So(s.sent, ShouldBeEmpty)
		})

		Convey("the default message id is a uuid", func() {
			p = NewPublisher(&PublisherCfg{Log: log.NewWithOutput("test", "info", io.Discard), Metric: metric.New("test"), Sender: s})
			msg, err := p.Publish(sample(), "esp32-1")
			So(err, ShouldBeNil)
			So(msg.ID, ShouldHaveLength, 36)
			So(msg.Properties["messageId"], ShouldEqual, msg.ID)
		})
	})
}
