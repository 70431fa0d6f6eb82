package provider

import (
	"encoding/json"
	"fmt"
)

// Wire protocol: one JSON object per line on the provider's standard input
// and output, JSON-RPC 2.0 framing. Requests carry a process-unique id;
// responses are correlated strictly by that id, never by arrival order.
const (
	jsonrpcVersion = "2.0"

	// methodCallTool invokes a named tool on the provider.
	methodCallTool = "tools/call"
	// methodReadResource reads a resource by URI.
	methodReadResource = "resources/read"
)

// request is one outbound line to a provider.
type request struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// callToolParams are the parameters of a tools/call request.
type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// readResourceParams are the parameters of a resources/read request.
type readResourceParams struct {
	URI string `json:"uri"`
}

// response is one inbound line from a provider.
type response struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *responseError  `json:"error,omitempty"`
}

// responseError is the error object of a failed call.
type responseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *responseError) Err() error {
	return fmt.Errorf("%w: %s (code %d)", ErrCallFailed, e.Message, e.Code)
}

// encodeRequest serializes a request as a single newline-terminated line.
func encodeRequest(req request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request %d: %w", req.ID, err)
	}
	return append(data, '\n'), nil
}

// decodeResponse parses one line as a response.
func decodeResponse(line []byte) (*response, error) {
	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &resp, nil
}
