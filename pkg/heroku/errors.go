package heroku

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingToken = errors.New("heroku: api token is required")
	ErrMissingApp   = errors.New("heroku: app name is required")
	ErrNotFound     = errors.New("heroku: resource not found")
	ErrUnauthorized = errors.New("heroku: unauthorized")
	ErrRateLimited  = errors.New("heroku: rate limit exceeded")
)

// RemoteActionError is returned for any non-success outcome of a Platform API
// call: transport failures as well as non-2xx responses.
type RemoteActionError struct {
	Op         string
	App        string
	StatusCode int
	ID         string
	Message    string
	Err        error
}

func (e *RemoteActionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("heroku %s %s failed (%d %s): %s", e.Op, e.App, e.StatusCode, e.ID, e.Message)
	}
	return fmt.Sprintf("heroku %s %s failed: %s", e.Op, e.App, e.Message)
}

// Unwrap exposes the transport error or a sentinel matching the status code.
func (e *RemoteActionError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// ErrorMessage extracts the human readable message of a remote failure.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var remote *RemoteActionError
	if errors.As(err, &remote) && remote.Message != "" {
		return remote.Message
	}
	return err.Error()
}
