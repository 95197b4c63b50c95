package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/daniacca/ecosim/internal/eco"
	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(NewLoggerWithOutput("error", io.Discard))
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return srv, ts
}

func smallConfigJSON() string {
	return `{"name":"small","depth":20,"width":20,"seed":7,"population":[{"species":"fox","creation_probability":0.1},{"species":"rabbit","creation_probability":0.3}]}`
}

func doRequest(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

func TestExtractEnvID(t *testing.T) {
	tests := []struct {
		path  string
		envID eco.EnvironmentID
		rest  string
	}{
		{"/env/a/step", "a", "/step"},
		{"/env/a", "a", ""},
		{"/env/", "", ""},
		{"/other/a", "", ""},
	}
	for _, tc := range tests {
		envID, rest := extractEnvID(tc.path)
		if envID != tc.envID || rest != tc.rest {
			t.Errorf("extractEnvID(%q): expected (%q, %q), got (%q, %q)", tc.path, tc.envID, tc.rest, envID, rest)
		}
	}
}

func TestServer_Health(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := doRequest(t, http.MethodGet, ts.URL+"/healthz", "")
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("Expected 200 ok, got %d %s", resp.StatusCode, body)
	}
}

func TestServer_ConfigStepStats(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := doRequest(t, http.MethodPost, ts.URL+"/env/test/config", smallConfigJSON())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, body)
	}
	var stats eco.PopulationStats
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if stats.Step != 0 || stats.EnvironmentID != "test" {
		t.Errorf("Expected step 0 of test, got step %d of %s", stats.Step, stats.EnvironmentID)
	}
	if stats.Counts[eco.Rabbit] == 0 {
		t.Error("Expected a seeded rabbit population")
	}

	resp, body = doRequest(t, http.MethodPost, ts.URL+"/env/test/step?n=3", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, body)
	}
	var step stepResponse
	if err := json.Unmarshal(body, &step); err != nil {
		t.Fatalf("Failed to decode step response: %v", err)
	}
	if step.Steps < 1 || step.Steps > 3 || step.Stats.Step != int64(step.Steps) {
		t.Errorf("Expected 1..3 steps matching the reported step, got steps=%d step=%d", step.Steps, step.Stats.Step)
	}

	resp, body = doRequest(t, http.MethodGet, ts.URL+"/env/test/stats", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	json.Unmarshal(body, &stats)
	if stats.Step != int64(step.Steps) {
		t.Errorf("Expected stats at step %d, got %d", step.Steps, stats.Step)
	}

	resp, body = doRequest(t, http.MethodPost, ts.URL+"/env/test/reset", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	json.Unmarshal(body, &stats)
	if stats.Step != 0 {
		t.Errorf("Expected step 0 after reset, got %d", stats.Step)
	}
}

func TestServer_InvalidRequests(t *testing.T) {
	_, ts := newTestServer(t)
	doRequest(t, http.MethodPost, ts.URL+"/env/test/config", smallConfigJSON())

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"Bad JSON", http.MethodPost, "/env/test/config", "{", http.StatusBadRequest},
		{"Invalid Config", http.MethodPost, "/env/test/config", `{"depth":0}`, http.StatusBadRequest},
		{"Unknown Env", http.MethodGet, "/env/missing/stats", "", http.StatusNotFound},
		{"Bad Step Count", http.MethodPost, "/env/test/step?n=0", "", http.StatusBadRequest},
		{"Too Many Steps", http.MethodPost, "/env/test/step?n=1000000", "", http.StatusBadRequest},
		{"Bad Interval", http.MethodPost, "/env/test/start?interval=abc", "", http.StatusBadRequest},
		{"Unknown Route", http.MethodGet, "/env/test/molecules", "", http.StatusNotFound},
		{"Missing Env ID", http.MethodGet, "/env/", "", http.StatusBadRequest},
		{"Delete Missing", http.MethodDelete, "/env/missing", "", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := doRequest(t, tc.method, ts.URL+tc.path, tc.body)
			if resp.StatusCode != tc.status {
				t.Errorf("Expected status %d, got %d: %s", tc.status, resp.StatusCode, body)
			}
		})
	}
}

func TestServer_FieldView(t *testing.T) {
	_, ts := newTestServer(t)
	doRequest(t, http.MethodPost, ts.URL+"/env/test/config", smallConfigJSON())

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/env/test/field", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var view eco.FieldSnapshot
	if err := json.Unmarshal(body, &view); err != nil {
		t.Fatalf("Failed to decode field: %v", err)
	}
	if view.Depth != 20 || view.Width != 20 {
		t.Errorf("Expected 20x20 field, got %dx%d", view.Depth, view.Width)
	}
	if len(view.Cells) == 0 {
		t.Error("Expected occupied cells")
	}
}

func TestServer_ListAndDelete(t *testing.T) {
	srv, ts := newTestServer(t)
	doRequest(t, http.MethodPost, ts.URL+"/env/b/config", smallConfigJSON())
	doRequest(t, http.MethodPost, ts.URL+"/env/a/config", smallConfigJSON())

	_, body := doRequest(t, http.MethodGet, ts.URL+"/env", "")
	var list map[string][]string
	json.Unmarshal(body, &list)
	if got := list["environments"]; len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Expected [a b], got %v", got)
	}

	resp, _ := doRequest(t, http.MethodDelete, ts.URL+"/env/a", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if _, ok := srv.manager.Get("a"); ok {
		t.Error("Expected simulation 'a' to be deleted")
	}
}

func TestServer_StartStop(t *testing.T) {
	srv, ts := newTestServer(t)
	doRequest(t, http.MethodPost, ts.URL+"/env/test/config", smallConfigJSON())
	sim, _ := srv.manager.Get("test")

	resp, _ := doRequest(t, http.MethodPost, ts.URL+"/env/test/start?interval=5", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if !sim.IsRunning() {
		t.Fatal("Expected simulation to be running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for sim.CurrentStep() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for the run loop to step")
		}
		time.Sleep(5 * time.Millisecond)
	}

	doRequest(t, http.MethodPost, ts.URL+"/env/test/stop", "")
	if sim.IsRunning() {
		t.Error("Expected simulation to be stopped")
	}
}

func TestServer_Notifiers(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := doRequest(t, http.MethodPost, ts.URL+"/notifiers",
		`{"type":"webhook","id":"hook","config":{"url":"http://localhost:9/hook","every":10,"headers":{"X-Token":"t"}}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, body)
	}

	_, body = doRequest(t, http.MethodGet, ts.URL+"/notifiers", "")
	var list map[string][]notifierInfo
	json.Unmarshal(body, &list)
	types := make(map[string]string)
	for _, n := range list["notifiers"] {
		types[n.ID] = n.Type
	}
	if types["hook"] != "webhook" || types[streamNotifierID] != "websocket" {
		t.Errorf("Expected hook webhook and stream websocket, got %v", types)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"Duplicate", http.MethodPost, "/notifiers", `{"type":"webhook","id":"hook","config":{"url":"http://x"}}`, http.StatusBadRequest},
		{"Missing URL", http.MethodPost, "/notifiers", `{"type":"webhook","id":"other","config":{}}`, http.StatusBadRequest},
		{"Unknown Type", http.MethodPost, "/notifiers", `{"type":"pager","id":"p"}`, http.StatusBadRequest},
		{"Missing ID", http.MethodPost, "/notifiers", `{"type":"webhook"}`, http.StatusBadRequest},
		{"Delete Stream", http.MethodDelete, "/notifiers/" + streamNotifierID, "", http.StatusBadRequest},
		{"Delete Hook", http.MethodDelete, "/notifiers/hook", "", http.StatusOK},
		{"Delete Again", http.MethodDelete, "/notifiers/hook", "", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := doRequest(t, tc.method, ts.URL+tc.path, tc.body)
			if resp.StatusCode != tc.status {
				t.Errorf("Expected status %d, got %d: %s", tc.status, resp.StatusCode, body)
			}
		})
	}
}

func TestServer_WebSocketStream(t *testing.T) {
	srv, ts := newTestServer(t)
	doRequest(t, http.MethodPost, ts.URL+"/env/test/config", smallConfigJSON())

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/env/test/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.stream.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for the stream client")
		}
		time.Sleep(10 * time.Millisecond)
	}

	doRequest(t, http.MethodPost, ts.URL+"/env/test/step", "")

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read step event: %v", err)
	}
	var event eco.StepEvent
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if event.EnvironmentID != "test" || event.Step != 1 {
		t.Errorf("Expected step 1 of test, got step %d of %s", event.Step, event.EnvironmentID)
	}
}

func TestServer_WebSocketUnknownEnv(t *testing.T) {
	_, ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/env/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Expected dial to fail for an unknown simulation")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected status 404, got %v", resp)
	}
}

func resetFlags(args ...string) {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	os.Args = append([]string{"ecosim-server"}, args...)
}

func TestLoadServerConfig_Defaults(t *testing.T) {
	for _, name := range []string{"ECOSIM_ADDR", "ECOSIM_ENV_ID", "ECOSIM_CONFIG_FILE", "ECOSIM_STEP_INTERVAL_MS", "ECOSIM_LOG_LEVEL"} {
		t.Setenv(name, "")
	}
	resetFlags()

	cfg := loadServerConfig()

	if cfg.Addr != ":8080" {
		t.Errorf("Expected Addr ':8080', got '%s'", cfg.Addr)
	}
	if cfg.DefaultEnvID != "default" {
		t.Errorf("Expected DefaultEnvID 'default', got '%s'", cfg.DefaultEnvID)
	}
	if cfg.ConfigFile != "" {
		t.Errorf("Expected empty ConfigFile, got '%s'", cfg.ConfigFile)
	}
	if cfg.StepIntervalMS != 0 {
		t.Errorf("Expected StepIntervalMS 0, got %d", cfg.StepIntervalMS)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected LogLevel 'info', got '%s'", cfg.LogLevel)
	}
}

func TestLoadServerConfig_EnvVars(t *testing.T) {
	t.Setenv("ECOSIM_ADDR", ":9090")
	t.Setenv("ECOSIM_ENV_ID", "meadow")
	t.Setenv("ECOSIM_STEP_INTERVAL_MS", "250")
	t.Setenv("ECOSIM_LOG_LEVEL", "debug")
	resetFlags()

	cfg := loadServerConfig()

	if cfg.Addr != ":9090" {
		t.Errorf("Expected Addr ':9090', got '%s'", cfg.Addr)
	}
	if cfg.DefaultEnvID != "meadow" {
		t.Errorf("Expected DefaultEnvID 'meadow', got '%s'", cfg.DefaultEnvID)
	}
	if cfg.StepIntervalMS != 250 {
		t.Errorf("Expected StepIntervalMS 250, got %d", cfg.StepIntervalMS)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected LogLevel 'debug', got '%s'", cfg.LogLevel)
	}
}

func TestLoadServerConfig_FlagsOverrideEnvVars(t *testing.T) {
	t.Setenv("ECOSIM_ADDR", ":9090")
	t.Setenv("ECOSIM_STEP_INTERVAL_MS", "250")
	resetFlags("-addr", ":7070", "-step-interval-ms", "50")

	cfg := loadServerConfig()

	if cfg.Addr != ":7070" {
		t.Errorf("Expected Addr ':7070', got '%s'", cfg.Addr)
	}
	if cfg.StepIntervalMS != 50 {
		t.Errorf("Expected StepIntervalMS 50, got %d", cfg.StepIntervalMS)
	}
}

func TestLoadServerConfig_InvalidStepInterval(t *testing.T) {
	t.Setenv("ECOSIM_STEP_INTERVAL_MS", "soon")
	resetFlags()

	cfg := loadServerConfig()

	if cfg.StepIntervalMS != 0 {
		t.Errorf("Expected StepIntervalMS 0 (default) when invalid, got %d", cfg.StepIntervalMS)
	}
}

func TestLoadSimulationConfigFromFile(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.json")
	os.WriteFile(valid, []byte(smallConfigJSON()), 0644)
	cfg, err := loadSimulationConfigFromFile(valid)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Name != "small" || cfg.Depth != 20 {
		t.Errorf("Unexpected config: %+v", cfg)
	}

	if _, err := loadSimulationConfigFromFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("Expected error when loading missing file")
	}

	invalidJSON := filepath.Join(dir, "invalid.json")
	os.WriteFile(invalidJSON, []byte("not valid json"), 0644)
	if _, err := loadSimulationConfigFromFile(invalidJSON); err == nil {
		t.Error("Expected error when loading invalid JSON")
	}

	invalidCfg := filepath.Join(dir, "invalid-config.json")
	os.WriteFile(invalidCfg, []byte(`{"depth":10,"width":10,"population":[{"species":"fox","creation_probability":2}]}`), 0644)
	if _, err := loadSimulationConfigFromFile(invalidCfg); err == nil {
		t.Error("Expected error when loading an invalid config")
	}
}

func TestStartupSimulationConfig_Default(t *testing.T) {
	cfg, err := startupSimulationConfig(ServerConfig{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Depth != eco.DefaultDepth || cfg.Width != eco.DefaultWidth {
		t.Errorf("Expected default field, got %dx%d", cfg.Depth, cfg.Width)
	}
}

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithOutput("warn", &buf)
	logger.Debugf("debug message")
	logger.Infof("info message")
	logger.Warnf("warn message")
	logger.Errorf("error message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("Expected debug and info to be filtered, got:\n%s", out)
	}
	if !strings.Contains(out, "[WARN] warn message") || !strings.Contains(out, "[ERROR] error message") {
		t.Errorf("Expected warn and error lines, got:\n%s", out)
	}

	levels := map[string]LogLevel{
		"DEBUG":   LogLevelDebug,
		"INFO":    LogLevelInfo,
		"WARN":    LogLevelWarn,
		"warning": LogLevelWarn,
		"ERROR":   LogLevelError,
		"invalid": LogLevelInfo,
	}
	for in, expected := range levels {
		if got := NewLogger(in).level; got != expected {
			t.Errorf("Expected %s to parse as %v, got %v", in, expected, got)
		}
	}
}
