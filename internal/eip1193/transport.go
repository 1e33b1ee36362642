package eip1193

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// injectedURL is a placeholder endpoint; requests never leave the process.
const injectedURL = "http://injected.wallet"

type jsonrpcRequest struct {
	Version string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id,omitempty"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params,omitempty"`
}

type jsonrpcResponse struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Transport is an http.RoundTripper that answers JSON-RPC requests by
// calling a Provider.
type Transport struct {
	Provider Provider
}

// RoundTrip decodes a single or batched JSON-RPC body and replies in kind.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading request: %w", err)
	}

	var out []byte
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var batch []jsonrpcRequest
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return nil, fmt.Errorf("decoding batch: %w", err)
		}
		resps := make([]jsonrpcResponse, len(batch))
		for i, r := range batch {
			resps[i] = t.dispatch(req.Context(), r)
		}
		out, err = json.Marshal(resps)
	} else {
		var r jsonrpcRequest
		if err := json.Unmarshal(trimmed, &r); err != nil {
			return nil, fmt.Errorf("decoding request: %w", err)
		}
		out, err = json.Marshal(t.dispatch(req.Context(), r))
	}
	if err != nil {
		return nil, fmt.Errorf("encoding response: %w", err)
	}

	return &http.Response{
		Status:        "200 OK",
		StatusCode:    http.StatusOK,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(bytes.NewReader(out)),
		ContentLength: int64(len(out)),
		Request:       req,
	}, nil
}

func (t *Transport) dispatch(ctx context.Context, r jsonrpcRequest) jsonrpcResponse {
	resp := jsonrpcResponse{Version: "2.0", ID: r.ID}
	params := make([]any, len(r.Params))
	for i, p := range r.Params {
		params[i] = p
	}

	result, err := t.Provider.Request(ctx, r.Method, params...)
	if err != nil {
		resp.Error = toRPCError(err)
		return resp
	}
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	resp.Result = result
	return resp
}

func toRPCError(err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	if code, ok := Code(err); ok {
		return &RPCError{Code: code, Message: err.Error()}
	}
	return &RPCError{Code: CodeInternal, Message: err.Error()}
}

// NewClient wraps a Provider as an ethclient so the usual contract and
// transaction helpers run through the wallet.
func NewClient(ctx context.Context, p Provider) (*ethclient.Client, error) {
	httpClient := &http.Client{Transport: &Transport{Provider: p}}
	c, err := rpc.DialOptions(ctx, injectedURL, rpc.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("wrapping provider: %w", err)
	}
	return ethclient.NewClient(c), nil
}
