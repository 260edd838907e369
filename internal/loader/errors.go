package loader

import (
	"errors"
	"fmt"

	"github.com/agentic-research/rollcall/api"
)

var (
	// ErrFetch means the resource could not be retrieved at all.
	ErrFetch = errors.New("fetch failed")
	// ErrStatus means the server answered with a non-success status.
	ErrStatus = errors.New("unexpected status")
	// ErrParse means the payload arrived but is not the expected JSON shape.
	ErrParse = errors.New("unparsable payload")
)

const (
	OpFetch = "fetch"
	OpParse = "parse"
)

// LoadError reports which resource made a load fail.
type LoadError struct {
	Resource   api.Resource
	Op         string
	StatusCode int // set for ErrStatus
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Resource, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ResourceOf returns the resource a load error is attributed to.
func ResourceOf(err error) (api.Resource, bool) {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Resource, true
	}
	return "", false
}

func fetchError(r api.Resource, err error) *LoadError {
	return &LoadError{Resource: r, Op: OpFetch, Err: fmt.Errorf("%w: %w", ErrFetch, err)}
}

func parseError(r api.Resource, err error) *LoadError {
	return &LoadError{Resource: r, Op: OpParse, Err: fmt.Errorf("%w: %w", ErrParse, err)}
}
