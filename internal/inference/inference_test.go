package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/KaramelBytes/taxisim-cli/internal/table"
)

func history() *table.Table {
	t := table.New(
		table.Column{Name: "area", Kind: table.KindCategory, Options: []string{"Kyoto", "Nara"}},
		table.Column{Name: "date", Kind: table.KindDate},
		table.Column{Name: "num_trip", Kind: table.KindInt},
		table.Column{Name: "population", Kind: table.KindInt},
	)
	add := func(area string, day int, trips table.Cell) {
		t.Rows = append(t.Rows, table.Row{table.Text(area), table.Date(2019, time.December, day), trips, table.Int(7)})
	}
	add("Nara", 1, table.Int(5))
	add("Kyoto", 3, table.Int(30))
	add("Kyoto", 1, table.Int(10))
	add("Kyoto", 2, table.Int(20))
	add("Kyoto", 9, table.Null())
	return t
}

type countingModel struct{ calls int32 }

func (m *countingModel) Predict(_ context.Context, f Features) (*Predictions, error) {
	atomic.AddInt32(&m.calls, 1)
	p := &Predictions{Rows: f.Rows, Values: make([]float64, len(f.Rows))}
	for i, r := range f.Rows {
		p.Values[i] = r.Values[FeatureLag1] + 0.6
	}
	return p, nil
}

func TestPreprocessLagsAndOrder(t *testing.T) {
	f, err := Preprocess(history())
	if err != nil {
		t.Fatalf("preprocess: %v", err)
	}
	wantNames := []string{"lag1", "lag7", "dow", "population"}
	if fmt.Sprint(f.Names) != fmt.Sprint(wantNames) {
		t.Fatalf("names=%v", f.Names)
	}
	var got []string
	for _, r := range f.Rows {
		got = append(got, fmt.Sprintf("%s/%s/%g/%g", r.Area, r.Date, r.Values[FeatureLag1], r.Values[FeatureLag7]))
	}
	want := []string{
		"Kyoto/2019-12-01/0/0",
		"Kyoto/2019-12-02/10/0",
		"Kyoto/2019-12-03/20/0",
		"Kyoto/2019-12-09/30/20",
		"Nara/2019-12-01/0/0",
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("rows=%v\nwant %v", got, want)
	}
	if f.Rows[3].Observed != nil {
		t.Fatalf("missing trips should have no observation")
	}
	// 2019-12-01 is a Sunday
	if f.Rows[0].Values[FeatureDow] != 0 || f.Rows[0].Values["population"] != 7 {
		t.Fatalf("values=%v", f.Rows[0].Values)
	}
}

func TestValidateSchema(t *testing.T) {
	tb := table.New(table.Column{Name: "area", Kind: table.KindText}, table.Column{Name: "num_trip", Kind: table.KindFloat})
	err := Validate(tb)
	var se *SchemaError
	if !errors.As(err, &se) || !errors.Is(err, ErrSchema) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(se.Problems) != 2 {
		t.Fatalf("problems=%v", se.Problems)
	}

	h := history()
	h.Rows[0][1] = table.Null()
	if err := Validate(h); err == nil {
		t.Fatalf("null date should be rejected")
	}
}

func TestPostprocessLabels(t *testing.T) {
	three := int64(3)
	p := &Predictions{
		Rows: []FeatureRow{
			{Area: "Nara", Date: "2019-12-01", Observed: &three},
			{Area: "Kyoto", Date: "2019-12-02"},
			{Area: "Kyoto", Date: "2019-12-03"},
		},
		Values: []float64{99, 12.5, -4},
	}
	out := Postprocess(p, time.Date(2019, time.December, 2, 15, 0, 0, 0, time.UTC))
	if out.Columns[0].Options[0] != "Kyoto" || len(out.Columns[0].Options) != 2 {
		t.Fatalf("options=%v", out.Columns[0].Options)
	}
	want := []string{"Nara 3 real", "Kyoto 13 predict", "Kyoto 0 predict"}
	for i, w := range want {
		r := out.Rows[i]
		got := fmt.Sprintf("%s %s %s", r[0].Text, r[2].Format(table.KindInt), r[3].Text)
		if got != w {
			t.Errorf("row %d = %q want %q", i, got, w)
		}
	}
}

func TestPostprocessClampsExtremePredictions(t *testing.T) {
	p := &Predictions{
		Rows: []FeatureRow{
			{Area: "Kyoto", Date: "2019-12-03"},
			{Area: "Kyoto", Date: "2019-12-04"},
			{Area: "Kyoto", Date: "2019-12-05"},
			{Area: "Kyoto", Date: "2019-12-06"},
		},
		Values: []float64{math.Inf(1), 1e30, math.Inf(-1), math.NaN()},
	}
	out := Postprocess(p, time.Date(2019, time.December, 1, 0, 0, 0, 0, time.UTC))
	want := []int64{math.MaxInt64, math.MaxInt64, 0, 0}
	for i, w := range want {
		if got := out.Rows[i][2].Int; got != w {
			t.Errorf("row %d = %d want %d", i, got, w)
		}
	}
}

func TestRunCachesModelAndResult(t *testing.T) {
	model := &countingModel{}
	var loads int32
	loader := LoaderFunc(func(context.Context, string) (Model, error) {
		atomic.AddInt32(&loads, 1)
		return model, nil
	})
	u := NewUseCase(loader)
	start := time.Date(2019, time.December, 3, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	a, err := u.Run(ctx, history(), "m.yaml", start)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	b, err := u.Run(ctx, history(), "m.yaml", start)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if a != b {
		t.Fatalf("identical calls should return the cached table")
	}
	if model.calls != 1 || loads != 1 || u.Loads("m.yaml") != 1 {
		t.Fatalf("calls=%d loads=%d", model.calls, loads)
	}

	c, err := u.Run(ctx, history(), "m.yaml", start.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if c == a || model.calls != 2 || loads != 1 {
		t.Fatalf("new start should recompute without reloading: calls=%d loads=%d", model.calls, loads)
	}

	edited := history()
	edited.Rows[0][2] = table.Int(6)
	if d, _ := u.Run(ctx, edited, "m.yaml", start); d == a {
		t.Fatalf("changed table should miss the cache")
	}
}

func TestRunDoesNotCacheFailedLoad(t *testing.T) {
	fail := true
	u := NewUseCase(LoaderFunc(func(context.Context, string) (Model, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return &countingModel{}, nil
	}))
	start := time.Date(2019, time.December, 3, 0, 0, 0, 0, time.UTC)
	if _, err := u.Run(context.Background(), history(), "m", start); err == nil {
		t.Fatalf("expected load error")
	}
	fail = false
	if _, err := u.Run(context.Background(), history(), "m", start); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if u.Loads("m") != 2 {
		t.Fatalf("loads=%d", u.Loads("m"))
	}
}

func TestLinearModelFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.yaml")
	artifact := "name: lag\nintercept: 1\ncoefficients:\n  lag1: 2\narea_scale:\n  Nara: 10\n"
	if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := NewRegistryLoader(RuntimeConfig{}).Load(context.Background(), "file://"+path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	f := Features{Names: []string{FeatureLag1}, Rows: []FeatureRow{
		{Area: "Kyoto", Values: map[string]float64{FeatureLag1: 3}},
		{Area: "Nara", Values: map[string]float64{FeatureLag1: 3}},
	}}
	p, err := m.Predict(context.Background(), f)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if p.Values[0] != 7 || p.Values[1] != 70 {
		t.Fatalf("values=%v", p.Values)
	}
}

func TestLinearModelRejectsEmptyArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	_ = os.WriteFile(path, []byte("name: none\n"), 0o644)
	if _, err := LoadLinearModel(path); err == nil {
		t.Fatalf("expected error for model without coefficients")
	}
}

func TestRegistryUnknownScheme(t *testing.T) {
	if _, err := NewRegistryLoader(RuntimeConfig{}).Load(context.Background(), "s3://bucket/model"); err == nil {
		t.Fatalf("expected unknown scheme error")
	}
	if SchemeOf("/tmp/m.yaml") != SchemeFile || SchemeOf("HTTP://x") != SchemeHTTP {
		t.Fatalf("scheme detection")
	}
}

type ipv4Server struct {
	URL string
	srv *http.Server
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	return &ipv4Server{URL: "http://" + ln.Addr().String(), srv: srv}
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

func TestRemoteModelRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/predict":
			if atomic.AddInt32(&hits, 1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]any{"error": "warming up"})
				return
			}
			var req predictRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			preds := make([]float64, len(req.Rows))
			for i := range preds {
				preds[i] = float64(i + 1)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"predictions": preds})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cfg := RuntimeConfig{HTTPTimeout: 2 * time.Second, RetryMax: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	m, err := NewRegistryLoader(cfg).Load(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	f, _ := Preprocess(history())
	p, err := m.Predict(context.Background(), f)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(p.Values) != 5 || p.Values[4] != 5 || hits != 2 {
		t.Fatalf("values=%v hits=%d", p.Values, hits)
	}
}

func TestRemoteModelBadRequest(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "unknown feature"})
	}))
	defer srv.Close()
	m := NewRemoteModel(srv.URL, 2*time.Second, 3, time.Millisecond, time.Millisecond)
	_, err := m.Predict(context.Background(), Features{})
	var bre *BadRequestError
	if !errors.As(err, &bre) || bre.Message != "unknown feature" {
		t.Fatalf("expected BadRequestError, got %v", err)
	}
}

func TestRemoteModelUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: cannot open local listener (%v)", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	m := NewRemoteModel("http://"+addr, time.Second, 1, 0, 0)
	var ue *UnreachableError
	if err := m.Ping(context.Background()); !errors.As(err, &ue) {
		t.Fatalf("expected UnreachableError, got %v", err)
	}
}
