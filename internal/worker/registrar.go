package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Worker is a long-lived background job started by the registrar.
type Worker interface {
	Start(ctx context.Context)
}

// Registrar installs the background worker once, after startup, and only in
// production builds on hosts that support it.
type Registrar struct {
	production bool
	capable    func() bool
	worker     Worker
	logger     *zap.Logger

	once       sync.Once
	registered bool
}

func NewRegistrar(production bool, capable func() bool, w Worker, l *zap.Logger) *Registrar {
	return &Registrar{production: production, capable: capable, worker: w, logger: l}
}

// RegisterOnce starts the worker on the first eligible call and reports
// whether it is running. Later calls never start a second instance.
func (r *Registrar) RegisterOnce(ctx context.Context) bool {
	r.once.Do(func() {
		if r.capable != nil && !r.capable() {
			r.logger.Debug("background worker unsupported on this host, skipping")
			return
		}
		if !r.production {
			r.logger.Debug("background worker only runs in production builds, skipping")
			return
		}
		r.worker.Start(ctx)
		r.registered = true
		r.logger.Info("background worker registered")
	})
	return r.registered
}
