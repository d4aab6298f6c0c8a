package sgapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// Response is the decoded StorageGRID envelope.
type Response struct {
	StatusCode   int
	Status       string
	APIVersion   string
	ResponseTime string
	// Data is the raw "data" member; empty for 204 responses.
	Data json.RawMessage
}

type envelope struct {
	ResponseTime string          `json:"responseTime"`
	Status       string          `json:"status"`
	APIVersion   string          `json:"apiVersion"`
	Data         json.RawMessage `json:"data"`
}

// HasData reports whether the response carried a non-null data member.
func (r *Response) HasData() bool {
	if r == nil {
		return false
	}
	trimmed := bytes.TrimSpace(r.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Decode unmarshals the data member into v. A response without data leaves
// v untouched.
func (r *Response) Decode(v any) error {
	if !r.HasData() {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func decodeEnvelope(status int, raw []byte, method, path string) (*Response, error) {
	resp := &Response{StatusCode: status}
	if status == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		return resp, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	resp.Status = env.Status
	resp.APIVersion = env.APIVersion
	resp.ResponseTime = env.ResponseTime
	resp.Data = env.Data
	return resp, nil
}
