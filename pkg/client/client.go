package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/daniacca/ecosim/internal/eco"
)

// ConfigBuilder provides a fluent API for building simulation configs.
// Species are seeded in the order they are added.
type ConfigBuilder struct {
	name        string
	depth       int
	width       int
	seed        uint64
	population  []eco.PopulationConfig
	stepDelayMS int
}

// NewConfig creates a config builder for a field of the default size with
// no population.
func NewConfig(name string) *ConfigBuilder {
	return &ConfigBuilder{
		name:       name,
		depth:      eco.DefaultDepth,
		width:      eco.DefaultWidth,
		population: make([]eco.PopulationConfig, 0),
	}
}

// Field sets the field dimensions.
func (cb *ConfigBuilder) Field(depth, width int) *ConfigBuilder {
	cb.depth = depth
	cb.width = width
	return cb
}

// Seed sets the random seed. Zero selects the default seed.
func (cb *ConfigBuilder) Seed(seed uint64) *ConfigBuilder {
	cb.seed = seed
	return cb
}

// Species adds a species seeded into each cell with the given probability.
func (cb *ConfigBuilder) Species(name eco.SpeciesName, creationProbability float64) *ConfigBuilder {
	cb.population = append(cb.population, eco.PopulationConfig{
		Species:             string(name),
		CreationProbability: creationProbability,
	})
	return cb
}

// StepDelay sets the default interval the server uses when auto-running.
func (cb *ConfigBuilder) StepDelay(d time.Duration) *ConfigBuilder {
	cb.stepDelayMS = int(d / time.Millisecond)
	return cb
}

// Build converts the builder to a SimulationConfig.
func (cb *ConfigBuilder) Build() eco.SimulationConfig {
	population := make([]eco.PopulationConfig, len(cb.population))
	copy(population, cb.population)

	return eco.SimulationConfig{
		Name:        cb.name,
		Depth:       cb.depth,
		Width:       cb.width,
		Seed:        cb.seed,
		Population:  population,
		StepDelayMS: cb.stepDelayMS,
	}
}

// Validate checks the built config the same way the server does.
func (cb *ConfigBuilder) Validate() error {
	return eco.ValidateSimulationConfig(cb.Build())
}

// StepResult is the response of a step request.
type StepResult struct {
	Steps int                 `json:"steps"`
	Stats eco.PopulationStats `json:"stats"`
}

// Client talks to an ecosim server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// ApplyConfig creates or replaces the simulation envID and returns its
// initial stats.
func (c *Client) ApplyConfig(ctx context.Context, envID string, cfg *ConfigBuilder) (eco.PopulationStats, error) {
	var stats eco.PopulationStats
	err := c.do(ctx, http.MethodPost, []string{"env", envID, "config"}, nil, cfg.Build(), &stats)
	return stats, err
}

// Step advances envID by n steps. The server stops early once fewer than
// two species remain.
func (c *Client) Step(ctx context.Context, envID string, n int) (StepResult, error) {
	var result StepResult
	query := url.Values{"n": {strconv.Itoa(n)}}
	err := c.do(ctx, http.MethodPost, []string{"env", envID, "step"}, query, nil, &result)
	return result, err
}

// Reset reseeds envID and returns its stats at step zero.
func (c *Client) Reset(ctx context.Context, envID string) (eco.PopulationStats, error) {
	var stats eco.PopulationStats
	err := c.do(ctx, http.MethodPost, []string{"env", envID, "reset"}, nil, nil, &stats)
	return stats, err
}

// Stats returns the current population stats of envID.
func (c *Client) Stats(ctx context.Context, envID string) (eco.PopulationStats, error) {
	var stats eco.PopulationStats
	err := c.do(ctx, http.MethodGet, []string{"env", envID, "stats"}, nil, nil, &stats)
	return stats, err
}

// Field returns the occupied cells of envID.
func (c *Client) Field(ctx context.Context, envID string) (eco.FieldSnapshot, error) {
	var view eco.FieldSnapshot
	err := c.do(ctx, http.MethodGet, []string{"env", envID, "field"}, nil, nil, &view)
	return view, err
}

// Start makes the server step envID every interval. A zero interval uses
// the simulation's configured delay.
func (c *Client) Start(ctx context.Context, envID string, interval time.Duration) error {
	var query url.Values
	if interval > 0 {
		query = url.Values{"interval": {strconv.FormatInt(interval.Milliseconds(), 10)}}
	}
	return c.do(ctx, http.MethodPost, []string{"env", envID, "start"}, query, nil, nil)
}

// Stop halts the server-side run loop of envID.
func (c *Client) Stop(ctx context.Context, envID string) error {
	return c.do(ctx, http.MethodPost, []string{"env", envID, "stop"}, nil, nil, nil)
}

// Delete stops and removes envID.
func (c *Client) Delete(ctx context.Context, envID string) error {
	return c.do(ctx, http.MethodDelete, []string{"env", envID}, nil, nil, nil)
}

// List returns the IDs of all simulations on the server.
func (c *Client) List(ctx context.Context) ([]string, error) {
	var resp struct {
		Environments []string `json:"environments"`
	}
	if err := c.do(ctx, http.MethodGet, []string{"env"}, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Environments, nil
}

// ApplyConfig sends cfg to the server at baseURL under envID.
func ApplyConfig(ctx context.Context, baseURL, envID string, cfg *ConfigBuilder) error {
	_, err := NewClient(baseURL).ApplyConfig(ctx, envID, cfg)
	return err
}

func (c *Client) do(ctx context.Context, method string, path []string, query url.Values, in, out any) error {
	u, err := url.JoinPath(c.baseURL, path...)
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
