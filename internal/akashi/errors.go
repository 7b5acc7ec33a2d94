package akashi

import (
	"fmt"

	"stampbot/internal/attendance"
)

// TransportError is a failed HTTP exchange: either the request never got a
// response or AKASHI answered with a non-2xx status.
type TransportError struct {
	StatusCode int
	URL        string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("akashi: request to %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("akashi: request failed code:%d, url:%s", e.StatusCode, e.URL)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RejectionError is an envelope without a response payload, typically an
// expired or revoked token.
type RejectionError struct {
	Code    string
	Message string
	Token   string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("akashi: rejected [%s]%s (token: %s)", e.Code, e.Message, attendance.MaskToken(e.Token))
}

// DecodeError is a payload that does not match the operation's result shape.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("akashi: decode response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
