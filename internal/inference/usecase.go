package inference

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/KaramelBytes/taxisim-cli/internal/logx"
	"github.com/KaramelBytes/taxisim-cli/internal/table"
)

type resultKey struct {
	model string
	table string
	start string
}

// UseCase runs preprocess, model, postprocess over a table. Models are loaded
// at most once per path and results are memoised per (model, table, start).
// Returned tables are shared between identical calls; treat them as read-only.
type UseCase struct {
	loader Loader

	mu      sync.Mutex
	models  map[string]Model
	results map[resultKey]*table.Table
	loads   map[string]int
}

func NewUseCase(loader Loader) *UseCase {
	return &UseCase{
		loader:  loader,
		models:  map[string]Model{},
		results: map[resultKey]*table.Table{},
		loads:   map[string]int{},
	}
}

// Run forecasts t with the model at modelPath, labeling rows from start on as predictions.
func (u *UseCase) Run(ctx context.Context, t *table.Table, modelPath string, start time.Time) (*table.Table, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("model path is empty")
	}
	digest, err := fingerprint(t)
	if err != nil {
		return nil, err
	}
	key := resultKey{model: modelPath, table: digest, start: start.Format(table.DateLayout)}

	u.mu.Lock()
	defer u.mu.Unlock()
	if out, ok := u.results[key]; ok {
		logx.Debugf("inference cache hit model=%s start=%s", modelPath, key.start)
		return out, nil
	}

	features, err := Preprocess(t)
	if err != nil {
		return nil, err
	}
	model, err := u.model(ctx, modelPath)
	if err != nil {
		return nil, err
	}
	preds, err := model.Predict(ctx, features)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if len(preds.Values) != len(preds.Rows) {
		return nil, fmt.Errorf("predict: %d values for %d rows", len(preds.Values), len(preds.Rows))
	}
	out := Postprocess(preds, start)
	u.results[key] = out
	logx.Infof("inference model=%s rows=%d start=%s", modelPath, out.Len(), key.start)
	return out, nil
}

// Loads reports how many times the model at path was loaded.
func (u *UseCase) Loads(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.loads[path]
}

// model must be called with u.mu held.
func (u *UseCase) model(ctx context.Context, path string) (Model, error) {
	if m, ok := u.models[path]; ok {
		return m, nil
	}
	u.loads[path]++
	m, err := u.loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	u.models[path] = m
	return m, nil
}

func fingerprint(t *table.Table) (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("serialize table: %w", err)
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:]), nil
}
