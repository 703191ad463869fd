package browse

import (
	"errors"
	"fmt"
)

var (
	ErrNoTarget          = errors.New("browse: no target selected")
	ErrViewLive          = errors.New("browse: view is live tailing")
	ErrRefreshInProgress = errors.New("browse: refresh already in progress")
	ErrDisposed          = errors.New("browse: session disposed")
)

const (
	opPeek   = "peek"
	opCounts = "counts"
)

// FetchError is a transient failure of a peek or runtime-count call.
// It is surfaced as a warning and never stops a polling loop.
type FetchError struct {
	View View
	Op   string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Op == opCounts {
		return fmt.Sprintf("fetch counts: %v", e.Err)
	}
	return fmt.Sprintf("fetch %s messages: %v", e.View, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
