package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Op identifies a gateway operation; it selects the default failure message.
type Op string

const (
	OpListCompanies       Op = "companies"
	OpListTimeframes      Op = "timeframes"
	OpListProblems        Op = "problems"
	OpListCompanyProblems Op = "company-problems"
)

func (op Op) defaultMessage() string {
	switch op {
	case OpListCompanies:
		return "Failed to load companies"
	case OpListTimeframes:
		return "Failed to load timeframes"
	default:
		return "Failed to load problems"
	}
}

// RemoteFailure is returned by every gateway operation that does not produce data:
// transport errors, non-2xx statuses, undecodable bodies and success=false envelopes.
//
// Message is the server's error text when it sent one, otherwise the per-operation default.
type RemoteFailure struct {
	Op         Op
	Message    string
	StatusCode int
	Err        error
}

func (e *RemoteFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *RemoteFailure) Unwrap() error { return e.Err }

func newFailure(op Op, status int, serverMsg string, err error) *RemoteFailure {
	msg := strings.TrimSpace(serverMsg)
	if msg == "" {
		msg = op.defaultMessage()
	}
	return &RemoteFailure{Op: op, Message: msg, StatusCode: status, Err: err}
}

// IsNoProblemsFound reports whether err is the server's definitive "no problems found"
// answer. It is absence of data, not a transient failure.
func IsNoProblemsFound(err error) bool {
	var rf *RemoteFailure
	if !errors.As(err, &rf) {
		return false
	}
	return strings.Contains(strings.ToLower(rf.Message), "no problems found")
}

// IsNotFound reports an HTTP 404 from the API.
func IsNotFound(err error) bool {
	var rf *RemoteFailure
	return errors.As(err, &rf) && rf.StatusCode == http.StatusNotFound
}

// Message returns the user-facing text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var rf *RemoteFailure
	if errors.As(err, &rf) {
		return rf.Message
	}
	return err.Error()
}
