package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Request is one entry of the outbound {"requests": [...]} envelope.
type Request struct {
	Service    Service    `json:"service"`
	RequestID  int64      `json:"requestid"`
	Command    Command    `json:"command"`
	Account    string     `json:"account"`
	Source     string     `json:"source"`
	Parameters Parameters `json:"parameters"`
}

// Parameters holds a request's keys and fields, already normalized to
// comma-joined strings, plus service-specific extras such as qoslevel.
// Empty keys and fields are omitted on the wire.
type Parameters struct {
	Keys   string
	Fields string
	Extra  map[string]string
}

// MarshalJSON flattens Extra alongside keys and fields.
func (p Parameters) MarshalJSON() ([]byte, error) {
	m := make(map[string]string, len(p.Extra)+2)
	for k, v := range p.Extra {
		m[k] = v
	}

	if p.Keys != "" {
		m["keys"] = p.Keys
	}

	if p.Fields != "" {
		m["fields"] = p.Fields
	}

	return json.Marshal(m)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (p *Parameters) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	p.Keys = m["keys"]
	p.Fields = m["fields"]
	delete(m, "keys")
	delete(m, "fields")

	p.Extra = nil
	if len(m) > 0 {
		p.Extra = m
	}

	return nil
}

type envelope struct {
	Requests []Request `json:"requests"`
}

// Frame is one inbound message. A frame may carry data, notify (heartbeats
// and service notices), response (command acknowledgements), or any
// combination; each section is non-nil exactly when its key was present.
type Frame struct {
	Data     []Message         `json:"data,omitempty"`
	Snapshot []Message         `json:"snapshot,omitempty"`
	Notify   []json.RawMessage `json:"notify,omitempty"`
	Response []Response        `json:"response,omitempty"`

	// Raw is the frame exactly as received. A frame that did not decode
	// carries Raw and nothing else.
	Raw json.RawMessage `json:"-"`
}

// HasData reports whether the frame has a data section.
func (f Frame) HasData() bool {
	return f.Data != nil
}

// HasNotify reports whether the frame has a notify section.
func (f Frame) HasNotify() bool {
	return f.Notify != nil
}

// Message is a data or snapshot entry.
type Message struct {
	Service   Service         `json:"service"`
	Timestamp int64           `json:"timestamp"`
	Command   Command         `json:"command"`
	Content   json.RawMessage `json:"content"`
}

// Response acknowledges a request.
type Response struct {
	Service   Service         `json:"service"`
	RequestID ResponseID      `json:"requestid"`
	Command   Command         `json:"command"`
	Timestamp int64           `json:"timestamp"`
	Content   ResponseContent `json:"content"`
}

// ResponseContent is the result code of an acknowledged request.
type ResponseContent struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// ResponseID is a request id echoed back by the server, which sends it as
// a string ("1") or a number (1) depending on the service.
type ResponseID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ResponseID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		*id = ResponseID(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("stream: request id %s: %w", data, err)
	}

	*id = ResponseID(n.String())

	return nil
}

// Int returns the id as a number, or -1 if it is not numeric.
func (id ResponseID) Int() int64 {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return -1
	}

	return n
}

// decodeFrame parses one websocket message.
func decodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("stream: decoding frame: %w", err)
	}

	f.Raw = append(json.RawMessage(nil), data...)

	return f, nil
}

// rawFrame wraps a message that did not decode. Only Raw is set.
func rawFrame(data []byte) Frame {
	return Frame{Raw: append(json.RawMessage(nil), data...)}
}

// loginAck returns the ADMIN/LOGIN response in f, if any.
func (f Frame) loginAck() (Response, bool) {
	for _, r := range f.Response {
		if r.Service == ServiceAdmin && r.Command == CommandLogin {
			return r, true
		}
	}

	return Response{}, false
}
