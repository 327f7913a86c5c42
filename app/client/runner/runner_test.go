package runner

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunnerServer(t *testing.T, status int, body string, seen *executeRequest) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestExecuteSuccess(t *testing.T) {
	var seen executeRequest
	srv := newRunnerServer(t, http.StatusOK, `{"output": "5", "error": null}`, &seen)

	result, err := New(srv.URL, time.Second).Execute(context.Background(), "print(2+3)", "python")
	require.NoError(t, err)

	assert.Equal(t, executeRequest{Code: "print(2+3)", Language: "python"}, seen)
	assert.True(t, result.Passed)
	assert.Equal(t, "5", result.Output)
	assert.Empty(t, result.Error)
}

func TestExecuteSentinelFailure(t *testing.T) {
	srv := newRunnerServer(t, http.StatusOK, `{"output": "False", "error": "NameError: name 'x' is not defined"}`, nil)

	result, err := New(srv.URL, time.Second).Execute(context.Background(), "print(x)", "python")
	require.NoError(t, err)

	assert.False(t, result.Passed)
	assert.Equal(t, "NameError: name 'x' is not defined", result.Error)
}

func TestExecuteOutputVariants(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		passed bool
		output string
	}{
		{name: "lowercase false string is output", body: `{"output": "false"}`, passed: true, output: "false"},
		{name: "empty output", body: `{"output": ""}`, passed: true, output: ""},
		{name: "number output", body: `{"output": 42}`, passed: true, output: "42"},
		{name: "boolean false", body: `{"output": false}`, passed: false, output: "false"},
		{name: "sentinel without error", body: `{"output": "False"}`, passed: false, output: "False"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newRunnerServer(t, http.StatusOK, tt.body, nil)

			result, err := New(srv.URL, time.Second).Execute(context.Background(), "code", "go")
			require.NoError(t, err)
			assert.Equal(t, tt.passed, result.Passed)
			assert.Equal(t, tt.output, result.Output)
			assert.Empty(t, result.Error)
		})
	}
}

func TestExecuteBadStatus(t *testing.T) {
	srv := newRunnerServer(t, http.StatusBadGateway, `upstream down`, nil)

	_, err := New(srv.URL, time.Second).Execute(context.Background(), "code", "go")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExecution)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestExecuteMalformedBody(t *testing.T) {
	srv := newRunnerServer(t, http.StatusOK, `not json`, nil)

	_, err := New(srv.URL, time.Second).Execute(context.Background(), "code", "go")
	assert.ErrorIs(t, err, ErrExecution)
}

func TestExecuteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).Execute(context.Background(), "code", "go")
	assert.ErrorIs(t, err, ErrExecution)
}

func TestExecuteHonorsContext(t *testing.T) {
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the disconnect is only noticed once the body is consumed
		_, _ = io.Copy(io.Discard, r.Body)

		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(srv.URL, 5*time.Second).Execute(ctx, "code", "go")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrExecution)
}
