/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package txerror

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCode identifies why a record was skipped or a run failed.
type ErrorCode string

const (
	// Fatal: processing cannot start or cannot finish.
	ErrSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"
	ErrSinkFailure       ErrorCode = "SINK_FAILURE"
	ErrInvalidConfig     ErrorCode = "INVALID_CONFIG"

	// Tolerated: the offending record is skipped.
	ErrMalformedRow         ErrorCode = "MALFORMED_ROW"
	ErrUnknownKind          ErrorCode = "UNKNOWN_KIND"
	ErrInvalidAmount        ErrorCode = "INVALID_AMOUNT"
	ErrDuplicateTransaction ErrorCode = "DUPLICATE_TRANSACTION"
	ErrUnknownTransaction   ErrorCode = "UNKNOWN_TRANSACTION"
	ErrClientMismatch       ErrorCode = "CLIENT_MISMATCH"
	ErrNotDisputable        ErrorCode = "NOT_DISPUTABLE"
	ErrInvalidTransition    ErrorCode = "INVALID_TRANSITION"
	ErrAccountLocked        ErrorCode = "ACCOUNT_LOCKED"
	ErrInsufficientFunds    ErrorCode = "INSUFFICIENT_FUNDS"
)

var fatalCodes = map[ErrorCode]bool{
	ErrSourceUnavailable: true,
	ErrSinkFailure:       true,
	ErrInvalidConfig:     true,
}

// TxError is the error type returned for every rejected record and every
// failure of the processing pipeline.
type TxError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *TxError) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Fatal reports whether the error must stop processing.
func (e *TxError) Fatal() bool {
	return fatalCodes[e.Code]
}

// New returns a TxError with the given code, message and details.
func New(code ErrorCode, message string, details interface{}) *TxError {
	return &TxError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// CodeOf returns the code carried by err, looking through wrapped errors.
// The empty code is returned for errors that are not a *TxError.
func CodeOf(err error) ErrorCode {
	if txErr, ok := As(err); ok {
		return txErr.Code
	}
	return ""
}

// As returns the *TxError in err's chain, if any.
func As(err error) (*TxError, bool) {
	var txErr *TxError
	if errors.As(err, &txErr) {
		return txErr, true
	}
	return nil, false
}

// IsFatal reports whether err should abort a run. Errors that are not a
// *TxError are treated as fatal, since nothing is known about them.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	txErr, ok := As(err)
	if !ok {
		return true
	}
	return txErr.Fatal()
}

// MapErrorToExitCode converts an error into the process exit status.
func MapErrorToExitCode(err error) int {
	if err == nil {
		return 0
	}
	txErr, ok := As(err)
	if !ok {
		return 1
	}
	switch txErr.Code {
	case ErrInvalidConfig:
		return 2
	default:
		return 1
	}
}
