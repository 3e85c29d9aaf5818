package vamana

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/vamana/distance"
	"github.com/hupe1980/vamana/internal/graph"
)

// DefaultBeamWidth is the beam used by Search when the caller does not
// supply one.
const DefaultBeamWidth = 64

// BuildOptions configures graph construction.
type BuildOptions struct {
	// R is the maximum number of edges per node in the Vamana graph.
	// Higher R increases recall but uses more memory. Typical: 32-64.
	// The serialized degree is one byte, so R is capped at 255.
	R int

	// LBuild is the size of the candidate list during graph construction.
	// Higher LBuild improves graph quality but slows construction.
	// Typical: 100-200.
	LBuild int

	// Alpha is the pruning diversity factor (>= 1.0).
	// Higher Alpha keeps more diverse edges. Typical: 1.0-1.5.
	Alpha float32

	// Metric selects the distance function recorded in the index.
	Metric distance.Metric

	// Seed drives medoid sampling and the per-pass insertion order.
	// Single-threaded builds are bit-exact reproducible for a fixed seed.
	Seed uint64

	// NumWorkers sets the build parallelism. Values <= 1 build on the
	// calling goroutine and keep the build deterministic.
	NumWorkers int
}

// DefaultBuildOptions returns sensible defaults.
func DefaultBuildOptions() *BuildOptions {
	return &BuildOptions{
		R:          64,
		LBuild:     100,
		Alpha:      1.2,
		Metric:     distance.MetricL2,
		Seed:       42,
		NumWorkers: 1,
	}
}

// Validate checks the option ranges.
func (o *BuildOptions) Validate() error {
	if o.R < 1 || o.R > graph.MaxDegreeBound {
		return fmt.Errorf("%w: R must be in [1, %d], got %d", ErrInvalidParameter, graph.MaxDegreeBound, o.R)
	}
	if o.LBuild < 1 {
		return fmt.Errorf("%w: LBuild must be positive, got %d", ErrInvalidParameter, o.LBuild)
	}
	if o.Alpha < 1.0 {
		return fmt.Errorf("%w: Alpha must be >= 1.0, got %v", ErrInvalidParameter, o.Alpha)
	}
	if _, err := distance.Provider(o.Metric); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameter, err)
	}
	return nil
}

type options struct {
	logger  *Logger
	metrics MetricsCollector
}

// Option configures ambient behavior of builders, indices and loaders.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc != nil {
			o.metrics = mc
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:  NoopLogger(),
		metrics: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
