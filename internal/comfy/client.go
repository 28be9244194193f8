package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mediagen/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("comfy: api key is required")

// Options configures the compute backend client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the ComfyDeploy-style compute backend:
// a synchronous start endpoint returning an opaque run id, and a status
// endpoint polled by run id.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// RunState is the decoded status of one in-flight run.
type RunState struct {
	// Status is the backend's raw status string (queued, running, success...).
	Status string
	// OutputURL is the ephemeral artifact location, present on success.
	OutputURL string
	// ErrorMessage carries the backend's failure detail, if reported.
	ErrorMessage string
}

type startRequest struct {
	DeploymentID string         `json:"deployment_id"`
	Inputs       map[string]any `json:"inputs"`
}

type startResponse struct {
	RunID string `json:"run_id"`
}

type statusResponse struct {
	Status  string      `json:"status"`
	Error   string      `json:"error"`
	Outputs []runOutput `json:"outputs"`
}

type runOutput struct {
	Data struct {
		Images []runFile `json:"images"`
		Videos []runFile `json:"videos"`
	} `json:"data"`
}

type runFile struct {
	URL string `json:"url"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.myapps.ai"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Start triggers a run on the given deployment and returns the backend's
// opaque run id.
func (c *Client) Start(ctx context.Context, deploymentID string, inputs map[string]any) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}
	if strings.TrimSpace(deploymentID) == "" {
		return "", errors.New("comfy: deployment id is required")
	}

	body, err := json.Marshal(startRequest{DeploymentID: deploymentID, Inputs: inputs})
	if err != nil {
		return "", fmt.Errorf("comfy: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/run", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("comfy: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("comfy: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("comfy: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("comfy: start failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded startResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("comfy: decode response: %w", err)
	}
	if decoded.RunID == "" {
		return "", errors.New("comfy: no run id in response")
	}

	c.logger.Debug().
		Str("deployment_id", deploymentID).
		Str("run_id", decoded.RunID).
		Msg("comfy: run started")
	return decoded.RunID, nil
}

// RunStatus fetches the current state of a run.
func (c *Client) RunStatus(ctx context.Context, runID string) (*RunState, error) {
	if !c.HasCredentials() {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(runID) == "" {
		return nil, errors.New("comfy: run id is required")
	}

	endpoint := c.baseURL + "/api/run?run_id=" + url.QueryEscape(runID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("comfy: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("comfy: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("comfy: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("comfy: status check failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded statusResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("comfy: decode response: %w", err)
	}

	return &RunState{
		Status:       decoded.Status,
		OutputURL:    firstOutputURL(decoded),
		ErrorMessage: decoded.Error,
	}, nil
}

// firstOutputURL walks the outputs for the first artifact URL. Image and
// video artifacts land in different slots of the same payload shape.
func firstOutputURL(resp statusResponse) string {
	for _, out := range resp.Outputs {
		for _, f := range out.Data.Images {
			if f.URL != "" {
				return f.URL
			}
		}
		for _, f := range out.Data.Videos {
			if f.URL != "" {
				return f.URL
			}
		}
	}
	return ""
}
