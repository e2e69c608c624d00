// Package api serves the local read-only http api of the monitor.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/kostiamol/fridgemon/log"
	"github.com/kostiamol/fridgemon/metric"
	"github.com/kostiamol/fridgemon/svc"
	"github.com/rs/cors"
)

type (
	// StatusProvider is a contract for the monitor status provider.
	StatusProvider interface {
		Status() svc.Snapshot
	}

	// Cfg is used to initialize an instance of API.
	Cfg struct {
		Log      log.Logger
		Ctrl     svc.Ctrl
		Metric   *metric.Metric
		PortREST uint64
		Status   StatusProvider
		// SubChan delivers the published payloads to the live stream.
		SubChan         <-chan []byte
		ShutdownTimeout time.Duration
	}

	// API serves health, metrics, status and the live stream.
	API struct {
		log             log.Logger
		ctrl            svc.Ctrl
		metric          *metric.Metric
		portREST        uint64
		status          StatusProvider
		stream          *Stream
		router          *mux.Router
		shutdownTimeout time.Duration
	}
)

// New creates and initializes a new instance of API.
func New(c *Cfg) *API {
	a := &API{
		log:             c.Log.With("component", "api"),
		ctrl:            c.Ctrl,
		metric:          c.Metric,
		portREST:        c.PortREST,
		status:          c.Status,
		shutdownTimeout: c.ShutdownTimeout,
		router:          mux.NewRouter(),
	}
	a.stream = NewStream(&StreamCfg{Log: c.Log, SubChan: c.SubChan})
	a.registerRoutes()
	return a
}

// Run serves until StopChan is closed.
func (a *API) Run() {
	a.log.With("event", log.EventComponentStarted).Infof("rest port [%d]", a.portREST)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.stream.Run(ctx)

	s := &http.Server{
		Handler:           a.handler(),
		Addr:              fmt.Sprintf(":%d", a.portREST),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-a.ctrl.StopChan
		cancel()
		ctx, done := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer done()
		if err := s.Shutdown(ctx); err != nil {
			a.log.Errorf("func Shutdown: %s", err)
		}
	}()

	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		a.log.Errorf("func ListenAndServe: %s", err)
		a.terminate()
		return
	}
	a.log.With("event", log.EventComponentShutdown).Info()
}

func (a *API) terminate() {
	a.log.With("event", log.EventComponentShutdown).Info()
	_ = a.log.Flush()
	a.ctrl.Terminate()
}

func (a *API) registerRoutes() {
	middleware := []func(next http.HandlerFunc, name string) http.HandlerFunc{
		a.requestLogger,
		a.metric.TimeTracker,
	}

	a.registerRoute(http.MethodGet, "/health", a.health)
	a.registerRoute(http.MethodGet, "/metrics", a.metric.RouterHandlerHTTP())

	a.registerRoute(http.MethodGet, "/v1/status", a.getStatusHandler, middleware...)
	a.registerRoute(http.MethodGet, "/v1/stream", a.stream.addConnHandler, a.requestLogger)
}

func (a *API) handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(a.router)
}
