// Package edge models the origin-response trigger record exchanged with the
// CDN: the viewer request and the response produced by the origin.
package edge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const BodyEncodingBase64 = "base64"

type Event struct {
	Records []Record `json:"Records"`
}

type Record struct {
	CF CloudFront `json:"cf"`
}

type CloudFront struct {
	Config   json.RawMessage `json:"config,omitempty"`
	Request  Request         `json:"request"`
	Response *Response       `json:"response"`
}

// Request is the viewer request. URI is the percent-encoded object key with a
// leading slash.
type Request struct {
	ClientIP    string  `json:"clientIp,omitempty"`
	Method      string  `json:"method,omitempty"`
	URI         string  `json:"uri"`
	QueryString string  `json:"querystring"`
	Headers     Headers `json:"headers,omitempty"`
}

// Key returns the storage key addressed by the request, still percent-encoded.
func (r Request) Key() string {
	return strings.TrimPrefix(r.URI, "/")
}

// Response is the origin response. A nil Body leaves the origin's body in
// place; a non-nil one replaces it, even when empty.
type Response struct {
	Status            Status  `json:"status"`
	StatusDescription string  `json:"statusDescription,omitempty"`
	Headers           Headers `json:"headers"`
	Body              *string `json:"body,omitempty"`
	BodyEncoding      string  `json:"bodyEncoding,omitempty"`
}

// SetBody replaces the origin's body with body in the given encoding.
func (r *Response) SetBody(body, encoding string) {
	r.Body = &body
	r.BodyEncoding = encoding
}

// Status is an HTTP status code. The CDN sends it as a string; numbers are
// accepted too.
type Status int

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.Itoa(int(s)))
}

func (s *Status) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(data, `"`))
	if raw == "" || raw == "null" {
		*s = 0
		return nil
	}

	code, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid status %s: %w", data, err)
	}

	*s = Status(code)
	return nil
}

type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Headers maps lower-cased header names to their values.
type Headers map[string][]Header

// Set replaces the header called name with a single value.
func (h Headers) Set(name, value string) {
	h[strings.ToLower(name)] = []Header{{Key: name, Value: value}}
}

// Get returns the first value of the header called name.
func (h Headers) Get(name string) string {
	values := h[strings.ToLower(name)]
	if len(values) == 0 {
		return ""
	}

	return values[0].Value
}
