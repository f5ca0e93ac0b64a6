package pipeline

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Descriptor is everything needed to send, and if necessary resend, a call.
// URL may be absolute or relative to the pipeline's base URL.
type Descriptor struct {
	Method string
	URL    string
	Header http.Header
	Params url.Values
	Body   []byte
}

// Clone returns a deep copy so a resend never shares headers or body with the
// original attempt.
func (d Descriptor) Clone() Descriptor {
	c := Descriptor{
		Method: d.Method,
		URL:    d.URL,
		Header: d.Header.Clone(),
	}
	if d.Params != nil {
		c.Params = make(url.Values, len(d.Params))
		for k, v := range d.Params {
			c.Params[k] = append([]string(nil), v...)
		}
	}
	if d.Body != nil {
		c.Body = append([]byte(nil), d.Body...)
	}
	return c
}

// Get builds a GET descriptor
func Get(path string, params url.Values) Descriptor {
	return Descriptor{Method: http.MethodGet, URL: path, Params: params}
}

// JSON builds a descriptor with a JSON encoded body.
func JSON(method, path string, body any) (Descriptor, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return Descriptor{}, fmt.Errorf("pipeline.JSON: %w", err)
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	return Descriptor{Method: method, URL: path, Header: header, Body: payload}, nil
}

// Response is a fully buffered HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) DecodeJSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("Response.DecodeJSON: %w", err)
	}
	return nil
}
