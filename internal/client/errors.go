package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a non-success response from the service. Callers display
// Error() and do not branch on Code.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// errorBody covers both error shapes the service emits: the structured
// {error_code, message} form and the legacy {error} form. FastAPI may
// also nest the structured form under "detail".
type errorBody struct {
	ErrorCode string          `json:"error_code"`
	Message   string          `json:"message"`
	Error     string          `json:"error"`
	Detail    json.RawMessage `json:"detail"`
}

func newError(status int, body []byte) *Error {
	e := &Error{Status: status}

	var parsed errorBody
	if json.Unmarshal(body, &parsed) == nil {
		e.Code = parsed.ErrorCode
		switch {
		case parsed.Message != "":
			e.Message = parsed.Message
		case parsed.Error != "":
			e.Message = parsed.Error
		case len(parsed.Detail) > 0:
			var nested errorBody
			var text string
			if json.Unmarshal(parsed.Detail, &nested) == nil && nested.Message != "" {
				e.Code = nested.ErrorCode
				e.Message = nested.Message
			} else if json.Unmarshal(parsed.Detail, &text) == nil {
				e.Message = text
			}
		}
	}

	if e.Message == "" {
		text := strings.TrimSpace(string(body))
		if text == "" || strings.HasPrefix(text, "<") {
			text = http.StatusText(status)
		}
		e.Message = fmt.Sprintf("HTTP %d: %s", status, text)
	}

	return e
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
