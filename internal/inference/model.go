package inference

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// FeatureRow is one model input row in feature space.
type FeatureRow struct {
	Area     string             `json:"area"`
	Date     string             `json:"date"`
	Observed *int64             `json:"observed,omitempty"`
	Values   map[string]float64 `json:"features"`
}

// Features is the preprocessed model input.
type Features struct {
	Names []string     `json:"names"`
	Rows  []FeatureRow `json:"rows"`
}

// Predictions pairs each feature row with the model's output for it.
type Predictions struct {
	Rows   []FeatureRow
	Values []float64
}

// Model produces one prediction per feature row.
type Model interface {
	Predict(ctx context.Context, f Features) (*Predictions, error)
}

// Loader resolves a model reference to a ready model.
type Loader interface {
	Load(ctx context.Context, path string) (Model, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, path string) (Model, error)

func (f LoaderFunc) Load(ctx context.Context, path string) (Model, error) { return f(ctx, path) }

// RuntimeConfig carries transport knobs for model backends.
type RuntimeConfig struct {
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// LoaderFactory builds a Loader from the runtime config.
type LoaderFactory func(RuntimeConfig) Loader

// Scheme identifiers for model references.
const (
	SchemeFile  = "file"
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

var registry = map[string]LoaderFactory{}

// RegisterLoader registers a scheme with its loader factory.
func RegisterLoader(scheme string, f LoaderFactory) { registry[scheme] = f }

// SchemeOf returns the reference scheme; plain paths are "file".
func SchemeOf(path string) string {
	if i := strings.Index(path, "://"); i > 0 {
		return strings.ToLower(path[:i])
	}
	return SchemeFile
}

// NewRegistryLoader dispatches Load to the loader registered for the path's scheme.
func NewRegistryLoader(cfg RuntimeConfig) Loader {
	return LoaderFunc(func(ctx context.Context, path string) (Model, error) {
		scheme := SchemeOf(path)
		f, ok := registry[scheme]
		if !ok {
			return nil, fmt.Errorf("no model loader for scheme %q", scheme)
		}
		return f(cfg).Load(ctx, path)
	})
}

func init() {
	RegisterLoader(SchemeFile, func(RuntimeConfig) Loader {
		return LoaderFunc(func(_ context.Context, path string) (Model, error) {
			return LoadLinearModel(strings.TrimPrefix(path, "file://"))
		})
	})
	remote := func(c RuntimeConfig) Loader {
		if c.HTTPTimeout <= 0 {
			c.HTTPTimeout = 60 * time.Second
		}
		if c.RetryMax <= 0 {
			c.RetryMax = 3
		}
		if c.BaseDelay <= 0 {
			c.BaseDelay = 500 * time.Millisecond
		}
		if c.MaxDelay <= 0 {
			c.MaxDelay = 4 * time.Second
		}
		return LoaderFunc(func(ctx context.Context, path string) (Model, error) {
			m := NewRemoteModel(path, c.HTTPTimeout, c.RetryMax, c.BaseDelay, c.MaxDelay)
			if err := m.Ping(ctx); err != nil {
				return nil, err
			}
			return m, nil
		})
	}
	RegisterLoader(SchemeHTTP, remote)
	RegisterLoader(SchemeHTTPS, remote)
}
