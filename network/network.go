// Package network waits for the device to be associated with its network.
package network

import (
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
)

// ErrAssociationGaveUp is returned by Wait once MaxAttempts probes failed.
var ErrAssociationGaveUp = errors.New("network association gave up")

// Status is the connection status owned by the loop.
type Status struct {
	Connected bool
	Addr      string
}

// Prober reports whether the network is up and the local address.
type Prober interface {
	Probe() (addr string, ok bool)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func() (string, bool)

// Probe .
func (f ProberFunc) Probe() (string, bool) {
	return f()
}

// InterfaceProber checks that a network interface is up with an IPv4 address. An empty Name
// accepts the first such non-loopback interface.
type InterfaceProber struct {
	Name string
}

// Probe .
func (p InterfaceProber) Probe() (string, bool) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", false
	}
	for _, i := range ifaces {
		if i.Flags&net.FlagUp == 0 {
			continue
		}
		if p.Name != "" && i.Name != p.Name {
			continue
		}
		if p.Name == "" && i.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := i.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if n, ok := a.(*net.IPNet); ok && n.IP.To4() != nil {
				return n.IP.String(), true
			}
		}
	}
	return "", false
}

// Policy is the association retry policy.
type Policy struct {
	Interval time.Duration
	// MaxAttempts of 0 retries forever.
	MaxAttempts uint32
}

// Wait probes until the network is up, sleeping Interval between attempts. onAttempt, when set, is
// called after every failed probe with the attempt number.
func Wait(ctx context.Context, p Prober, pol Policy, onAttempt func(n uint32)) (Status, error) {
	var attempt uint32
	for {
		if addr, ok := p.Probe(); ok {
			return Status{Connected: true, Addr: addr}, nil
		}
		attempt++
		if onAttempt != nil {
			onAttempt(attempt)
		}
		if pol.MaxAttempts != 0 && attempt >= pol.MaxAttempts {
			return Status{}, errors.Wrapf(ErrAssociationGaveUp, "after %d attempts", attempt)
		}

		t := time.NewTimer(pol.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return Status{}, ctx.Err()
		case <-t.C:
		}
	}
}
