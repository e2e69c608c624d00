package cfg

import (
	"fmt"
	"time"
)

// Network holds the network association wait policy.
type Network struct {
	// Interface is the interface that must be up with an address, empty means any non-loopback one.
	Interface     string
	RetryInterval time.Duration
	// MaxAttempts of 0 retries forever.
	MaxAttempts uint32
}

func (n Network) validate() error {
	if n.RetryInterval <= 0 {
		return fmt.Errorf("network retry interval env var is invalid")
	}
	return nil
}
