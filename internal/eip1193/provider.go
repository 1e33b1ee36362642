// Package eip1193 models the injected wallet surface: a single Request method
// carrying JSON-RPC style calls, plus the numeric error codes wallets return.
package eip1193

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Wallet methods used by the connector.
const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"
	MethodChainID         = "eth_chainId"
	MethodSwitchChain     = "wallet_switchEthereumChain"
	MethodAddChain        = "wallet_addEthereumChain"
	MethodSignTransaction = "eth_signTransaction"
	MethodSendTransaction = "eth_sendTransaction"
	MethodPersonalSign    = "personal_sign"
)

// Provider error codes (EIP-1193, EIP-3085/3326 and JSON-RPC 2.0).
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeChainDisconnected = 4901
	CodeUnrecognizedChain = 4902
	CodeInvalidParams     = -32602
	CodeInternal          = -32603
	CodeMethodNotFound    = -32601
)

// ErrUserRejected matches any error carrying code 4001.
var ErrUserRejected = errors.New("user rejected the request")

// Provider is an injected wallet. Params are JSON-encoded positionally.
type Provider interface {
	Request(ctx context.Context, method string, params ...any) (json.RawMessage, error)
}

// RPCError is a wallet or node error carrying a numeric code.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// ErrorCode satisfies go-ethereum's rpc.Error.
func (e *RPCError) ErrorCode() int { return e.Code }

// Is lets errors.Is(err, ErrUserRejected) see through 4001 errors.
func (e *RPCError) Is(target error) bool {
	return target == ErrUserRejected && e.Code == CodeUserRejected
}

// NewError builds an RPCError.
func NewError(code int, format string, args ...any) *RPCError {
	return &RPCError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Code extracts a provider error code from err. It understands RPCError and
// anything implementing ErrorCode() int (go-ethereum rpc errors).
func Code(err error) (int, bool) {
	var coded interface{ ErrorCode() int }
	if errors.As(err, &coded) {
		return coded.ErrorCode(), true
	}
	return 0, false
}

// HasCode reports whether err carries the given provider error code.
func HasCode(err error, code int) bool {
	c, ok := Code(err)
	return ok && c == code
}

// Call performs a request and decodes the result into T.
func Call[T any](ctx context.Context, p Provider, method string, params ...any) (T, error) {
	var out T
	raw, err := p.Request(ctx, method, params...)
	if err != nil {
		return out, err
	}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decoding %s result: %w", method, err)
	}
	return out, nil
}
