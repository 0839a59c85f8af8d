package rpc

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/wilhg/toolbridge/pkg/errmodel"
)

// Version is the only accepted value of the jsonrpc member.
const Version = "2.0"

var nullID = json.RawMessage("null")

// Request is a decoded JSON-RPC request. ID is nil when the member was absent,
// which makes the request a notification; an explicit null is kept as "null".
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool { return r.ID == nil }

// ErrorObject is the error member of a response.
type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Response is a JSON-RPC response. Exactly one of Result and Error is
// serialized; a nil Result on a success response encodes as null.
type Response struct {
	ID     json.RawMessage
	Result json.RawMessage
	Error  *ErrorObject
}

// MarshalJSON encodes the response with the jsonrpc member and either result
// or error.
func (r *Response) MarshalJSON() ([]byte, error) {
	id := r.ID
	if id == nil {
		id = nullID
	}
	if r.Error != nil {
		return json.Marshal(struct {
			JSONRPC string          `json:"jsonrpc"`
			ID      json.RawMessage `json:"id"`
			Error   *ErrorObject    `json:"error"`
		}{Version, id, r.Error})
	}
	result := r.Result
	if result == nil {
		result = nullID
	}
	return json.Marshal(struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  json.RawMessage `json:"result"`
	}{Version, id, result})
}

// UnmarshalJSON decodes a response, as seen by clients and tests.
func (r *Response) UnmarshalJSON(b []byte) error {
	var wire struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  json.RawMessage `json:"result"`
		Error   *ErrorObject    `json:"error"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	if wire.JSONRPC != Version {
		return errors.New("jsonrpc: not a 2.0 response")
	}
	*r = Response{ID: wire.ID, Result: wire.Result, Error: wire.Error}
	return nil
}

// NewError builds an error response for id from any error.
func NewError(id json.RawMessage, err error) *Response {
	ce := errmodel.From(err)
	return &Response{ID: id, Error: &ErrorObject{
		Code:    errmodel.RPCCode(ce),
		Message: ce.Message,
		Data:    errorData(ce),
	}}
}

func errorData(ce *errmodel.Error) map[string]any {
	data := map[string]any{"kind": ce.Kind}
	for k, v := range ce.Context {
		data[k] = v
	}
	if ce.Kind == errmodel.KindExecutionFailed && len(ce.Causes) > 0 {
		data["cause"] = ce.Causes[0]
	}
	return data
}

// decodeRequest parses one request object. On failure the returned request
// still carries the id when one could be read, so the error can echo it.
func decodeRequest(raw []byte) (*Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		var syn *json.SyntaxError
		if errors.As(err, &syn) || len(bytes.TrimSpace(raw)) == 0 {
			return &Request{}, errmodel.ParseError("invalid JSON", err)
		}
		return &Request{}, errmodel.InvalidRequest("request must be a JSON object")
	}
	if fields == nil {
		return &Request{}, errmodel.InvalidRequest("request must be a JSON object")
	}

	req := &Request{}
	if id, ok := fields["id"]; ok {
		if !validID(id) {
			return &Request{}, errmodel.InvalidRequest("id must be a string, number or null")
		}
		req.ID = id
	}
	// An absent jsonrpc member is read as "2.0"; a present one must say so.
	req.JSONRPC = Version
	if v, ok := fields["jsonrpc"]; ok {
		if err := json.Unmarshal(v, &req.JSONRPC); err != nil || isNull(v) || req.JSONRPC != Version {
			return req, errmodel.InvalidRequest(`jsonrpc must be "2.0"`)
		}
	}
	if err := json.Unmarshal(fields["method"], &req.Method); err != nil || req.Method == "" {
		return req, errmodel.InvalidRequest("method must be a non-empty string")
	}
	if p, ok := fields["params"]; ok && !isNull(p) {
		if firstByte(p) != '{' {
			return req, errmodel.InvalidRequest("params must be an object")
		}
		req.Params = p
	}
	return req, nil
}

func validID(id json.RawMessage) bool {
	switch c := firstByte(id); {
	case c == '"', c == '-', c >= '0' && c <= '9':
		return true
	default:
		return isNull(id)
	}
}

func isNull(b json.RawMessage) bool { return bytes.Equal(bytes.TrimSpace(b), nullID) }

func firstByte(b []byte) byte {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}
