// Package transport carries telemetry to the remote hub and brings remote calls back.
//
// Backends receive on their own goroutines but never run handlers there: inbound work is queued on
// a bounded inbox and handlers run only inside ServiceOnce (and Send), on the caller's goroutine.
package transport

import (
	"context"
)

// ConfirmationResult is the delivery outcome of a sent message.
type ConfirmationResult int

const (
	ConfirmationOK ConfirmationResult = iota
	ConfirmationError
)

func (r ConfirmationResult) String() string {
	if r == ConfirmationOK {
		return "ok"
	}
	return "error"
}

// TwinUpdate tells whether a twin payload is the whole document or a patch.
type TwinUpdate int

const (
	TwinComplete TwinUpdate = iota
	TwinPartial
)

func (u TwinUpdate) String() string {
	if u == TwinComplete {
		return "complete"
	}
	return "partial"
}

// Message is an outgoing telemetry message.
type Message struct {
	ID         string
	Payload    []byte
	Properties map[string]string
}

type (
	// ConfirmationHandler is called once per sent message.
	ConfirmationHandler func(msgID string, r ConfirmationResult)

	// MessageHandler is called for cloud-to-device messages.
	MessageHandler func(payload []byte)

	// TwinHandler is called for twin documents and patches.
	TwinHandler func(u TwinUpdate, payload []byte)

	// MethodHandler answers a remote method call. The returned body is sent back as is.
	MethodHandler func(method string, payload []byte) (status int, body []byte)
)

// Transport is the transport collaborator of the monitor.
type Transport interface {
	Connect(ctx context.Context) error
	Send(*Message) error
	ServiceOnce()
	Close() error

	SetConfirmationHandler(ConfirmationHandler)
	SetMessageHandler(MessageHandler)
	SetTwinHandler(TwinHandler)
	SetMethodHandler(MethodHandler)
}
