package svc

import (
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Ctrl contains StopChan that allows to terminate all the services that listen the channel.
type Ctrl struct {
	StopChan chan struct{}
}

// NewCtrl creates a Ctrl with an open StopChan.
func NewCtrl() Ctrl {
	return Ctrl{StopChan: make(chan struct{})}
}

// Wait waits for an interrupt or termination signal or for StopChan to be closed and then pauses for t
// to give the services time to shut down gracefully.
func (c *Ctrl) Wait(t time.Duration) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case <-sig:
		c.Terminate()
	case <-c.StopChan:
	}

	<-time.NewTimer(t).C
}

// Terminate closes StopChan to signal all the services to shutdown.
func (c *Ctrl) Terminate() {
	select {
	case <-c.StopChan:
	default:
		close(c.StopChan)
	}
}
