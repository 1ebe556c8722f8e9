package inference

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LinearModel is a YAML artifact: prediction = (intercept + Σ coef·feature) × area_scale.
type LinearModel struct {
	Name         string             `yaml:"name"`
	Intercept    float64            `yaml:"intercept"`
	Coefficients map[string]float64 `yaml:"coefficients"`
	AreaScale    map[string]float64 `yaml:"area_scale,omitempty"`
}

// LoadLinearModel reads and validates a linear artifact from path.
func LoadLinearModel(path string) (*LinearModel, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m LinearModel
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	if len(m.Coefficients) == 0 {
		return nil, errors.New("model has no coefficients")
	}
	if m.Name == "" {
		m.Name = path
	}
	return &m, nil
}

// Predict scores every row. Features absent from a row contribute 0.
func (m *LinearModel) Predict(ctx context.Context, f Features) (*Predictions, error) {
	out := &Predictions{Rows: f.Rows, Values: make([]float64, len(f.Rows))}
	for i, r := range f.Rows {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		v := m.Intercept
		for name, w := range m.Coefficients {
			v += w * r.Values[name]
		}
		if s, ok := m.AreaScale[r.Area]; ok {
			v *= s
		}
		out.Values[i] = v
	}
	return out, nil
}
