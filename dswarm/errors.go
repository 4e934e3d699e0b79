package dswarm

import (
	"fmt"

	"github.com/teranos/tpu/errors"
)

// RemoteCallError reports a non-success HTTP status from the engine.
// It matches errors.ErrRemoteCall, and errors.ErrTaskExecution when it
// came from the task submission.
type RemoteCallError struct {
	Operation  string
	StatusCode int
	Reason     string
	// Body is the start of the response body, for diagnostics
	Body string

	task bool
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("%s: engine returned %d %s", e.Operation, e.StatusCode, e.Reason)
}

// Is reports whether target is one of the sentinels this error stands for
func (e *RemoteCallError) Is(target error) bool {
	return target == errors.ErrRemoteCall || (e.task && target == errors.ErrTaskExecution)
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var remoteErr *RemoteCallError
	if errors.As(err, &remoteErr) {
		return remoteErr.StatusCode
	}
	return 0
}
