package shutdown

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	shutdownSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "billing_shutdown_duration_seconds",
		Help:    "Wall time of a graceful shutdown",
		Buckets: []float64{1, 5, 10, 15, 20, 25, 30},
	})

	shutdownFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_shutdown_errors_total",
		Help: "Shutdown steps that returned an error",
	}, []string{"component"})
)

// StopFunc stops one component. It must return once ctx is done.
type StopFunc func(context.Context) error

type step struct {
	name string
	stop StopFunc
}

// Manager is a stack of stop steps sharing one deadline.
// The last registered step runs first, so servers registered after the
// stores they use are drained before those stores close.
type Manager struct {
	logger  *zap.Logger
	timeout time.Duration

	mu    sync.Mutex
	steps []step
}

func NewManager(logger *zap.Logger, timeout time.Duration) *Manager {
	return &Manager{logger: logger, timeout: timeout}
}

func (m *Manager) Register(name string, stop StopFunc) {
	m.mu.Lock()
	m.steps = append(m.steps, step{name: name, stop: stop})
	m.mu.Unlock()
}

// RegisterCloser pushes an io.Closer style component
func (m *Manager) RegisterCloser(name string, c interface{ Close() error }) {
	m.Register(name, func(context.Context) error { return c.Close() })
}

// RegisterNoErr pushes a component whose stop cannot fail
func (m *Manager) RegisterNoErr(name string, stop func()) {
	m.Register(name, func(context.Context) error {
		stop()
		return nil
	})
}

// Shutdown pops every step. A failing step does not stop the rest.
// The result maps component name to its error and is empty on a clean stop.
func (m *Manager) Shutdown() map[string]error {
	began := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	steps := append([]step(nil), m.steps...)
	m.mu.Unlock()

	m.logger.Info("Shutting down", zap.Int("components", len(steps)), zap.Duration("deadline", m.timeout))

	failed := map[string]error{}
	for i := len(steps) - 1; i >= 0; i-- {
		s := steps[i]
		t0 := time.Now()
		err := s.stop(ctx)
		fields := []zap.Field{zap.String("component", s.name), zap.Duration("took", time.Since(t0))}
		if err != nil {
			failed[s.name] = err
			shutdownFailures.WithLabelValues(s.name).Inc()
			m.logger.Error("Component failed to stop", append(fields, zap.Error(err))...)
			continue
		}
		m.logger.Info("Component stopped", fields...)
	}

	took := time.Since(began)
	shutdownSeconds.Observe(took.Seconds())
	m.logger.Info("Shutdown finished", zap.Int("failures", len(failed)), zap.Duration("took", took))
	return failed
}
