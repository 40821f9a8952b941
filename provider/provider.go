// Package provider talks to an EIP-1193 style wallet provider over JSON-RPC.
package provider

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/rpc"
)

// Error codes defined by EIP-1193 and the MetaMask provider API.
const (
	CodeUserRejected       = 4001
	CodeUnauthorized       = 4100
	CodeUnsupportedMethod  = 4200
	CodeDisconnected       = 4900
	CodeUnrecognizedChain  = 4902
	CodeChainDisconnected  = 4901
	CodeMethodNotFound     = -32601
	CodeInternalJSONRPCErr = -32603
)

// Provider accepts wallet requests. result may be nil when the reply is not
// needed.
type Provider interface {
	Request(ctx context.Context, result interface{}, method string, params ...interface{}) error
}

// Error is a provider error carrying a JSON-RPC error code. It satisfies
// rpc.Error so codes read the same way whether they came off the wire or from
// an in-process provider.
type Error struct {
	Code    int
	Message string
}

var _ rpc.Error = (*Error)(nil)

func (e *Error) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

func (e *Error) ErrorCode() int {
	return e.Code
}

// ErrorCode extracts the JSON-RPC error code from anywhere in err's chain.
func ErrorCode(err error) (int, bool) {
	var coded rpc.Error
	if errors.As(err, &coded) {
		return coded.ErrorCode(), true
	}
	return 0, false
}

// IsUnrecognizedChain reports whether err says the provider does not know the
// requested chain.
func IsUnrecognizedChain(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == CodeUnrecognizedChain
}
