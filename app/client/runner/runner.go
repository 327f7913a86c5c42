// Package runner talks to the remote sandbox that compiles and runs extracted code.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tutorbot/app/config"

	"github.com/samber/do"
	"github.com/samber/oops"
)

// ErrExecution is returned when the runner could not be asked or answered with garbage.
// A program that ran and failed is not an error, see Result.Passed.
var ErrExecution = errors.New("code runner request failed")

// failedOutput is what the runner puts into "output" when the program did not succeed.
const failedOutput = "False"

const maxErrorBody = 512

type Client struct {
	url        string
	httpClient *http.Client
}

// Result is the runner response with the string sentinel translated into Passed.
type Result struct {
	Passed bool
	Output string
	Error  string
}

type executeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

type executeResponse struct {
	Output json.RawMessage `json:"output"`
	Error  *string         `json:"error"`
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return New(cfg.Executor.URL, cfg.Executor.Timeout), nil
}

func New(url string, timeout time.Duration) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Execute(ctx context.Context, code, language string) (*Result, error) {
	errb := oops.In("runner").With("language", language)

	body, err := json.Marshal(executeRequest{
		Code:     code,
		Language: language,
	})
	if err != nil {
		return nil, errb.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errb.Errorf("failed to create request: %w: %w", ErrExecution, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errb.Errorf("failed to call runner: %w: %w", ErrExecution, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errb.Errorf("failed to read runner response: %w: %w", ErrExecution, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errb.
			With("status", resp.StatusCode).
			Errorf("runner returned status %d: %w: %s", resp.StatusCode, ErrExecution, truncate(string(data), maxErrorBody))
	}

	var payload executeResponse
	if err = json.Unmarshal(data, &payload); err != nil {
		return nil, errb.Errorf("failed to unmarshal runner response: %w: %w", ErrExecution, err)
	}

	result := decodeResult(payload)

	slog.Debug("Code executed",
		"language", language,
		"passed", result.Passed,
		"duration", time.Since(start),
	)

	return result, nil
}

func decodeResult(payload executeResponse) *Result {
	var result Result

	var output string
	if err := json.Unmarshal(payload.Output, &output); err == nil {
		result.Output = output
		result.Passed = output != failedOutput
	} else {
		// non-string outputs are kept verbatim, a bare false means the same as the sentinel
		raw := strings.TrimSpace(string(payload.Output))
		result.Output = raw
		result.Passed = raw != "false"
	}

	if payload.Error != nil {
		result.Error = *payload.Error
	}

	return &result
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	return s[:limit] + "..."
}
