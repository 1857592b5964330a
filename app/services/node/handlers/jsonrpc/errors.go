package jsonrpc

import (
	"errors"

	"github.com/ardanlabs/ethnode/foundation/blockchain/accounts"
	"github.com/ardanlabs/ethnode/foundation/blockchain/database"
	"github.com/ardanlabs/ethnode/foundation/blockchain/filters"
	"github.com/ardanlabs/ethnode/foundation/blockchain/state"
)

// Set of error codes returned to clients.
const (
	codeServerError   = -32000
	codeInvalidParams = -32602
)

// requestError is an error a client can act on. It implements the
// rpc.Error interface so the code reaches the client.
type requestError struct {
	code int
	msg  string
}

func (e *requestError) Error() string  { return e.msg }
func (e *requestError) ErrorCode() int { return e.code }

// invalidParams constructs an error for malformed call arguments.
func invalidParams(msg string) error {
	return &requestError{code: codeInvalidParams, msg: msg}
}

// toRequestError converts the errors produced by the blockchain packages
// into errors for the client. Errors that are not expected are returned
// as is.
func toRequestError(err error) error {
	switch {
	case errors.Is(err, accounts.ErrUnknownAccount),
		errors.Is(err, accounts.ErrLockedAccount),
		errors.Is(err, filters.ErrFilterNotFound),
		errors.Is(err, state.ErrStateUnavailable),
		errors.Is(err, database.ErrNonceTooLow),
		errors.Is(err, database.ErrNonceTooHigh),
		errors.Is(err, database.ErrIntrinsicGas),
		errors.Is(err, database.ErrGasLimitReached),
		errors.Is(err, database.ErrInvalidSignature):
		return &requestError{code: codeServerError, msg: err.Error()}
	}

	return err
}
