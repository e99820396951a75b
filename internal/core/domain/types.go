// Package domain provides the canonical request, response and event types
// exchanged between the server core, its transports and its backends.
package domain

import "maps"

// Params is the schema-free parameter bag carried by a Request.
type Params map[string]any

// Request is the normalized form of an inbound message.
// It is produced once by a translator and must not be mutated afterwards.
type Request struct {
	// ID correlates the request across events and logs.
	ID string `json:"id,omitempty"`

	// APIKey is the credential presented by the caller, nil when absent.
	APIKey *string `json:"-"`

	// Params holds request-specific values of arbitrary shape.
	Params Params `json:"params,omitempty"`

	// Metadata carries transport facts used for routing, such as a path
	// segment or selected headers. See the Meta* keys.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Well-known Metadata keys set by transports.
const (
	// MetaPathAlias holds an alias taken from the request path.
	MetaPathAlias = "path.alias"
	// MetaHeaderPrefix prefixes lower-cased header names, e.g. "header.x-backend-alias".
	MetaHeaderPrefix = "header."
)

// NewRequest creates a request with a copy of params.
func NewRequest(apiKey *string, params Params) *Request {
	return &Request{
		APIKey: apiKey,
		Params: maps.Clone(params),
	}
}

// HasAPIKey reports whether the caller presented a credential.
func (r *Request) HasAPIKey() bool {
	return r != nil && r.APIKey != nil
}

// Param returns the named parameter, if present.
func (r *Request) Param(name string) (any, bool) {
	if r == nil || r.Params == nil {
		return nil, false
	}
	v, ok := r.Params[name]
	return v, ok
}

// StringParam returns the named parameter when it holds a string.
func (r *Request) StringParam(name string) (string, bool) {
	v, ok := r.Param(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Meta returns a metadata value, if present.
func (r *Request) Meta(key string) (string, bool) {
	if r == nil || r.Metadata == nil {
		return "", false
	}
	v, ok := r.Metadata[key]
	return v, ok
}

// WithID returns a copy of the request carrying the given correlation ID.
func (r *Request) WithID(id string) *Request {
	cp := *r
	cp.ID = id
	return &cp
}

// StringPtr is a helper for optional string fields.
func StringPtr(s string) *string {
	return &s
}

// Response is the opaque value produced by a backend for one request.
type Response = any
