package txerror

import (
	"fmt"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestTxError_Error(t *testing.T) {
	err := New(ErrUnknownTransaction, "transaction not found", map[string]interface{}{"tx": 7})
	assert.Equal(t, "UNKNOWN_TRANSACTION: transaction not found (map[tx:7])", err.Error())

	err = New(ErrAccountLocked, "account is locked", nil)
	assert.Equal(t, "ACCOUNT_LOCKED: account is locked", err.Error())
}

func TestCodeOf(t *testing.T) {
	wrapped := errors.Wrap(New(ErrMalformedRow, "bad row", nil), "line 3")
	assert.Equal(t, ErrMalformedRow, CodeOf(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(io.EOF))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "source unavailable", err: New(ErrSourceUnavailable, "missing", nil), want: true},
		{name: "sink failure", err: New(ErrSinkFailure, "broken pipe", nil), want: true},
		{name: "insufficient funds", err: New(ErrInsufficientFunds, "", nil), want: false},
		{name: "wrapped tolerated", err: fmt.Errorf("row: %w", New(ErrUnknownKind, "", nil)), want: false},
		{name: "foreign error", err: io.ErrUnexpectedEOF, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestMapErrorToExitCode(t *testing.T) {
	assert.Equal(t, 0, MapErrorToExitCode(nil))
	assert.Equal(t, 1, MapErrorToExitCode(New(ErrSourceUnavailable, "", nil)))
	assert.Equal(t, 2, MapErrorToExitCode(New(ErrInvalidConfig, "", nil)))
	assert.Equal(t, 1, MapErrorToExitCode(io.ErrClosedPipe))
}
