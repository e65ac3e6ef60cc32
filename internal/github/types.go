package github

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Response is one raw fetch result: status, headers and the full body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Item is one record of a list endpoint. List responses carry the full
// objects, but the crawl only reads the number, the creation time (the
// stream's sort key) and, for pull requests, the free-text body the
// link extractor scans.
type Item struct {
	Number    int       `json:"number"`
	CreatedAt time.Time `json:"created_at"`
	Body      *string   `json:"body"`
}

// Page is one fetched page of a list endpoint.
type Page struct {
	Number int
	Items  []Item
	Raw    []byte
	// LastPage is the rel="last" hint from the Link header, 0 when the
	// endpoint did not advertise one.
	LastPage int
}

// Object is a decoded detail record (pull request or issue). It keeps
// every field the API returned so persistence loses nothing, while
// exposing typed access to the few fields the crawl reads. Numbers are
// retained as json.Number and round-trip verbatim.
type Object struct {
	fields map[string]any
}

// DecodeObject decodes a JSON object body.
func DecodeObject(raw []byte) (*Object, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	fields := make(map[string]any)
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("github: decode object: %w", err)
	}
	return &Object{fields: fields}, nil
}

// Set adds or replaces a top-level field.
func (o *Object) Set(key string, value any) {
	o.fields[key] = value
}

// String returns a top-level string field, or "" when absent or not a
// string.
func (o *Object) String(key string) string {
	s, _ := o.fields[key].(string)
	return s
}

// Number returns the record's "number" field, 0 when absent.
func (o *Object) Number() int {
	n, ok := o.fields["number"].(json.Number)
	if !ok {
		return 0
	}
	v, err := n.Int64()
	if err != nil {
		return 0
	}
	return int(v)
}

// DiffURL returns the record's "diff_url" field.
func (o *Object) DiffURL() string {
	return o.String("diff_url")
}

// MarshalIndent renders the object as indented JSON with lexically
// sorted keys, the on-disk corpus format.
func (o *Object) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(o.fields, "", "  ")
}
