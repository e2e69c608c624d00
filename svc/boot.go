package svc

import (
	"context"

	"github.com/kostiamol/fridgemon/display"
	"github.com/kostiamol/fridgemon/errors"
	"github.com/kostiamol/fridgemon/log"
	"github.com/kostiamol/fridgemon/metric"
	"github.com/kostiamol/fridgemon/network"
	"github.com/kostiamol/fridgemon/transport"
)

type (
	// Resetter draws the empty graph.
	Resetter interface {
		Reset() error
	}

	// Handlers are the callbacks registered on the transport at boot.
	Handlers struct {
		Confirmation transport.ConfirmationHandler
		Message      transport.MessageHandler
		Twin         transport.TwinHandler
		Method       transport.MethodHandler
	}

	// BootCfg is used to run the boot sequence.
	BootCfg struct {
		Log       log.Logger
		Metric    *metric.Metric
		Display   display.Display
		Prober    network.Prober
		Policy    network.Policy
		Transport transport.Transport
		Handlers  Handlers
		Graph     Resetter
	}
)

// Boot shows the status screens while it waits for the network, connects the transport and registers
// the handlers, and finally draws the empty graph. Display failures are logged, network and
// transport failures are fatal.
func Boot(ctx context.Context, c *BootCfg) (network.Status, error) {
	l := c.Log.With("component", "boot")

	show := func(line int, text string) {
		l.Info(text)
		if err := display.ShowMessage(c.Display, line, text); err != nil {
			l.Errorf("func ShowMessage: %s", errors.Recoverable("display", err))
			c.Metric.ErrorCounter("display_commit")
		}
	}

	show(0, "Initializing...")
	show(0, "Connecting WiFi...")

	st, err := network.Wait(ctx, c.Prober, c.Policy, func(n uint32) {
		l.Debugf("network is not associated, attempt [%d]", n)
	})
	if err != nil {
		return st, errors.Fatal("network", err)
	}
	l.With("event", log.EventNetworkAssociated).Infof("addr [%s]", st.Addr)
	show(1, "WiFi connected")
	show(2, "IP address: ")
	show(3, st.Addr)

	show(0, "Connecting IoT Hub")
	c.Transport.SetConfirmationHandler(c.Handlers.Confirmation)
	c.Transport.SetMessageHandler(c.Handlers.Message)
	c.Transport.SetTwinHandler(c.Handlers.Twin)
	c.Transport.SetMethodHandler(c.Handlers.Method)
	if err := c.Transport.Connect(ctx); err != nil {
		return st, errors.Fatal("transport", err)
	}

	show(0, "Initialization Complete")
	if err := c.Graph.Reset(); err != nil {
		l.Errorf("func Reset: %s", errors.Recoverable("display", err))
		c.Metric.ErrorCounter("display_commit")
	}
	return st, nil
}
