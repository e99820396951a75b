// Package httpapi is the JSON-over-HTTP frontdoor: it translates HTTP
// requests into domain requests and writes backend responses as JSON.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tjfontaine/bare-gateway/internal/api/middleware"
	"github.com/tjfontaine/bare-gateway/internal/auth"
	"github.com/tjfontaine/bare-gateway/internal/core/domain"
	"github.com/tjfontaine/bare-gateway/internal/core/ports"
)

// DefaultMaxBodyBytes bounds request bodies when Codec.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 1 << 20

// Exchange is the raw message handed to the server core: one HTTP request
// and the writer its response goes to.
type Exchange struct {
	W http.ResponseWriter
	R *http.Request

	// Alias is the backend alias taken from the URL path, if any.
	Alias string

	sent bool
}

// Sent reports whether a response has already been written.
func (e *Exchange) Sent() bool {
	return e.sent
}

// Codec implements ports.Translator and ports.ResponseSender over *Exchange.
type Codec struct {
	MaxBodyBytes int64
}

var (
	_ ports.Translator     = (*Codec)(nil)
	_ ports.ResponseSender = (*Codec)(nil)
)

// TranslateIncomingMessage decodes the JSON object body into Params, takes
// the bearer token as the API key and copies routing facts into Metadata:
// the path alias and every header except Authorization, lower-cased.
// An Authorization header that is not a bearer token leaves APIKey nil; the
// server's key set decides whether that is acceptable.
func (c *Codec) TranslateIncomingMessage(ctx context.Context, raw any) (*domain.Request, error) {
	ex, ok := raw.(*Exchange)
	if !ok || ex == nil || ex.R == nil {
		return nil, fmt.Errorf("%w: unsupported message %T", domain.ErrInvalidRequest, raw)
	}
	r := ex.R

	// ExtractAPIKey returns nil for anything but a bearer token.
	apiKey, _ := auth.ExtractAPIKey(r)

	params, err := c.decodeParams(r)
	if err != nil {
		return nil, err
	}

	req := domain.NewRequest(apiKey, params)
	req.ID = middleware.GetRequestID(ctx)
	req.Metadata = metadataFrom(r, ex.Alias)
	return req, nil
}

func (c *Codec) decodeParams(r *http.Request) (domain.Params, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return domain.Params{}, nil
	}

	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrInvalidRequest, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", domain.ErrInvalidRequest, limit)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return domain.Params{}, nil
	}

	var params domain.Params
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("%w: body must be a JSON object: %v", domain.ErrInvalidRequest, err)
	}
	if params == nil {
		params = domain.Params{}
	}
	return params, nil
}

func metadataFrom(r *http.Request, alias string) map[string]string {
	md := make(map[string]string, len(r.Header)+1)
	for name, values := range r.Header {
		if len(values) == 0 || strings.EqualFold(name, "Authorization") {
			continue
		}
		md[domain.MetaHeaderPrefix+strings.ToLower(name)] = values[0]
	}
	if alias = strings.TrimSpace(alias); alias != "" {
		md[domain.MetaPathAlias] = alias
	}
	return md
}

// SendResponse writes the backend response as a JSON envelope.
func (c *Codec) SendResponse(ctx context.Context, args ports.SendArgs) error {
	ex, ok := args.Raw.(*Exchange)
	if !ok || ex == nil || ex.W == nil {
		return fmt.Errorf("send response: unsupported message %T", args.Raw)
	}
	if ex.sent {
		return errors.New("send response: response already written")
	}

	body, err := json.Marshal(Envelope{ID: requestID(args.Request), Response: args.Response})
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	ex.sent = true
	ex.W.Header().Set("Content-Type", "application/json")
	ex.W.WriteHeader(http.StatusOK)
	if _, err := ex.W.Write(body); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

// Envelope is the success body of a dispatch.
type Envelope struct {
	ID       string `json:"id"`
	Response any    `json:"response"`
}

// ErrorBody is the failure body of any endpoint.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteError writes err as a JSON error with the status from domain.StatusCode.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, domain.StatusCode(err), ErrorBody{Error: ErrorDetail{
		Type:      domain.ErrorType(err),
		Message:   err.Error(),
		RequestID: middleware.GetRequestID(r.Context()),
	}})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func requestID(req *domain.Request) string {
	if req == nil {
		return ""
	}
	return req.ID
}
