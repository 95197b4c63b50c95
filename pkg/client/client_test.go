package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/daniacca/ecosim/internal/eco"
)

func TestConfigBuilder(t *testing.T) {
	cfg := NewConfig("test").
		Field(10, 20).
		Seed(5).
		Species(eco.Fox, 0.1).
		Species(eco.Rabbit, 0.3).
		StepDelay(250 * time.Millisecond).
		Build()

	if cfg.Name != "test" {
		t.Errorf("Expected name 'test', got '%s'", cfg.Name)
	}
	if cfg.Depth != 10 || cfg.Width != 20 {
		t.Errorf("Expected 10x20 field, got %dx%d", cfg.Depth, cfg.Width)
	}
	if cfg.Seed != 5 {
		t.Errorf("Expected seed 5, got %d", cfg.Seed)
	}
	if len(cfg.Population) != 2 || cfg.Population[0].Species != "fox" || cfg.Population[1].CreationProbability != 0.3 {
		t.Errorf("Unexpected population: %+v", cfg.Population)
	}
	if cfg.StepDelayMS != 250 {
		t.Errorf("Expected step delay 250, got %d", cfg.StepDelayMS)
	}
}

func TestConfigBuilder_Defaults(t *testing.T) {
	cfg := NewConfig("plain").Build()
	if cfg.Depth != eco.DefaultDepth || cfg.Width != eco.DefaultWidth {
		t.Errorf("Expected default field, got %dx%d", cfg.Depth, cfg.Width)
	}
	if len(cfg.Population) != 0 {
		t.Errorf("Expected empty population, got %d entries", len(cfg.Population))
	}
}

func TestConfigBuilder_BuildCopiesPopulation(t *testing.T) {
	cb := NewConfig("copy").Species(eco.Fox, 0.1)
	first := cb.Build()
	cb.Species(eco.Rabbit, 0.2)

	if len(first.Population) != 1 {
		t.Errorf("Expected built config to be unaffected by later calls, got %d entries", len(first.Population))
	}
}

func TestConfigBuilder_Validate(t *testing.T) {
	if err := NewConfig("ok").Species(eco.Fox, 0.1).Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
	if err := NewConfig("bad").Field(0, 10).Species("wolf", 2).Validate(); err == nil {
		t.Error("Expected validation error")
	}
}

type recorded struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   string
}

type recorder struct {
	mu       sync.Mutex
	requests []recorded
}

func (r *recorder) get(i int) recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[i]
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

// fakeServer records requests and answers with canned bodies keyed by
// "METHOD /path".
func fakeServer(t *testing.T, responses map[string]string) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.requests = append(rec.requests, recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.Query(),
			header: r.Header.Clone(),
			body:   string(data),
		})
		rec.mu.Unlock()

		body, ok := responses[r.Method+" "+r.URL.Path]
		if !ok {
			http.Error(w, "environment not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, rec
}

func TestClient_ApplyConfig(t *testing.T) {
	server, rec := fakeServer(t, map[string]string{
		"POST /env/meadow/config": `{"environment_id":"meadow","step":0,"counts":{"fox":3,"rabbit":9},"viable":true}`,
	})

	c := NewClient(server.URL)
	stats, err := c.ApplyConfig(context.Background(), "meadow", NewConfig("meadow").Field(10, 10).Species(eco.Fox, 0.1))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if stats.EnvironmentID != "meadow" || stats.Counts[eco.Rabbit] != 9 || !stats.Viable {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	if rec.count() != 1 {
		t.Fatalf("Expected 1 request, got %d", rec.count())
	}
	if ct := rec.get(0).header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type application/json, got '%s'", ct)
	}
	var sent eco.SimulationConfig
	if err := json.Unmarshal([]byte(rec.get(0).body), &sent); err != nil {
		t.Fatalf("Failed to decode sent config: %v", err)
	}
	if sent.Depth != 10 || len(sent.Population) != 1 {
		t.Errorf("Unexpected config sent: %+v", sent)
	}
}

func TestClient_StepStatsField(t *testing.T) {
	server, rec := fakeServer(t, map[string]string{
		"POST /env/e/step":  `{"steps":5,"stats":{"step":5,"counts":{"rabbit":4},"viable":false}}`,
		"GET /env/e/stats":  `{"step":5,"counts":{"rabbit":4}}`,
		"GET /env/e/field":  `{"step":5,"depth":2,"width":2,"cells":[{"row":1,"col":0,"species":"rabbit","age":3}]}`,
		"POST /env/e/reset": `{"step":0,"counts":{"rabbit":2}}`,
		"GET /env":          `{"environments":["e"]}`,
	})
	c := NewClient(server.URL)
	ctx := context.Background()

	result, err := c.Step(ctx, "e", 5)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Steps != 5 || result.Stats.Step != 5 {
		t.Errorf("Unexpected step result: %+v", result)
	}
	if got := rec.get(0).query.Get("n"); got != "5" {
		t.Errorf("Expected n=5, got '%s'", got)
	}

	stats, err := c.Stats(ctx, "e")
	if err != nil || stats.Counts[eco.Rabbit] != 4 {
		t.Errorf("Unexpected stats %+v (err=%v)", stats, err)
	}

	view, err := c.Field(ctx, "e")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(view.Cells) != 1 || view.Cells[0].Row != 1 || view.Cells[0].Species != eco.Rabbit {
		t.Errorf("Unexpected field view: %+v", view)
	}

	stats, err = c.Reset(ctx, "e")
	if err != nil || stats.Step != 0 {
		t.Errorf("Unexpected reset stats %+v (err=%v)", stats, err)
	}

	ids, err := c.List(ctx)
	if err != nil || len(ids) != 1 || ids[0] != "e" {
		t.Errorf("Unexpected list %v (err=%v)", ids, err)
	}
}

func TestClient_StartStopDelete(t *testing.T) {
	server, rec := fakeServer(t, map[string]string{
		"POST /env/e/start": "",
		"POST /env/e/stop":  "",
		"DELETE /env/e":     "",
	})
	c := NewClient(server.URL)
	ctx := context.Background()

	if err := c.Start(ctx, "e", 250*time.Millisecond); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := rec.get(0).query.Get("interval"); got != "250" {
		t.Errorf("Expected interval=250, got '%s'", got)
	}
	if err := c.Start(ctx, "e", 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(rec.get(1).query) != 0 {
		t.Errorf("Expected no query for a zero interval, got %v", rec.get(1).query)
	}
	if err := c.Stop(ctx, "e"); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := c.Delete(ctx, "e"); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	server, _ := fakeServer(t, map[string]string{})
	c := NewClient(server.URL)

	_, err := c.Stats(context.Background(), "missing")
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Errorf("Expected status 404 error, got %v", err)
	}

	err = ApplyConfig(context.Background(), server.URL, "missing", NewConfig("x"))
	if err == nil {
		t.Error("Expected error from ApplyConfig")
	}
}

func TestClient_CanceledContext(t *testing.T) {
	server, _ := fakeServer(t, map[string]string{"GET /env/e/stats": `{}`})
	c := NewClient(server.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Stats(ctx, "e"); err == nil {
		t.Error("Expected error for canceled context")
	}
}
