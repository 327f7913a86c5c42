package conversation

import (
	"errors"

	"github.com/samber/oops"
)

var (
	// ErrInvalidRequest is returned for requests that cannot start a run.
	ErrInvalidRequest = errors.New("invalid chat request")
	// ErrUpstreamModel wraps failures of the language model, including malformed structured output.
	ErrUpstreamModel = errors.New("upstream model failure")
)

func upstreamError(step string, err error) error {
	return oops.
		In("conversation").
		With("step", step).
		Errorf("%s: %w: %w", step, ErrUpstreamModel, err)
}
