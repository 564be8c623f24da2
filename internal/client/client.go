// Package client is the Go consumer of the task portal API: a shared
// bearer-session transport, the task repository client, the dashboard
// aggregator, the filter engine and the password reset flow. Every service
// in the package goes through the same transport, so an authorization
// failure behaves identically no matter which call produced it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taskhub/internal/models"
)

// ErrorKind tags the failure classes a caller can act on.
type ErrorKind string

const (
	// KindMessage is a domain failure carrying a single server message.
	KindMessage ErrorKind = "message"
	// KindFieldErrors is a domain failure carrying per-field messages.
	KindFieldErrors ErrorKind = "fieldErrors"
	// KindNotFound marks a missing entity.
	KindNotFound ErrorKind = "notFound"
	// KindSessionExpired marks a 401; the stored token is already purged.
	KindSessionExpired ErrorKind = "sessionExpired"
	// KindPrecondition is a caller-side failure raised before any network
	// call.
	KindPrecondition ErrorKind = "precondition"
)

// Error is the single error shape surfaced by this package. The kind is a
// tag, never inferred from serialized content.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Kind == KindFieldErrors {
		parts := make([]string, 0, len(e.Fields))
		for field, msg := range e.Fields {
			parts = append(parts, field+": "+msg)
		}
		return "validation failed: " + strings.Join(parts, "; ")
	}
	return e.Message
}

// Client talks to the portal API. All services share its transport and
// therefore its session handling.
type Client struct {
	baseURL string
	http    *http.Client
	store   TokenStore
}

// Option configures a Client.
type Option func(*options)

type options struct {
	store          TokenStore
	onUnauthorized func()
	timeout        time.Duration
}

// WithTokenStore sets the persistent token store. Defaults to an in-memory
// store.
func WithTokenStore(store TokenStore) Option {
	return func(o *options) { o.store = store }
}

// WithUnauthorizedHook installs the redirect-to-login seam, invoked after
// the token purge on any 401.
func WithUnauthorizedHook(hook func()) Option {
	return func(o *options) { o.onUnauthorized = hook }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// New constructs a portal client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	o := options{store: NewMemoryTokenStore(), timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		store:   o.store,
		http: &http.Client{
			Timeout: o.timeout,
			Transport: &transport{
				base:           http.DefaultTransport,
				store:          o.store,
				onUnauthorized: o.onUnauthorized,
			},
		},
	}
}

// envelope is the wire shape every endpoint responds with. The dashboard
// endpoint carries taskCounts and recentTasks at the top level.
type envelope struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message"`
	Data        json.RawMessage     `json:"data"`
	Errors      []models.FieldError `json:"errors"`
	TaskCounts  *models.TaskCounts  `json:"taskCounts"`
	RecentTasks []models.Task       `json:"recentTasks"`
}

// do issues one request and collapses every failure mode into *Error: a
// transport fault, an unparsable body and success=false are all domain
// errors; a 401 is tagged as an expired session.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Kind: KindMessage, Message: fmt.Sprintf("encode request: %v", err)}
		}
		reader = bytes.NewReader(payload)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &Error{Kind: KindMessage, Message: fmt.Sprintf("build request: %v", err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindMessage, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode == http.StatusUnauthorized {
		// The transport has already purged the stored token.
		return nil, &Error{Kind: KindSessionExpired, Message: messageOr(env.Message, "session expired")}
	}
	if decodeErr != nil {
		return nil, &Error{Kind: KindMessage, Message: "request failed"}
	}
	if !env.Success {
		return nil, failureError(resp.StatusCode, &env)
	}
	return &env, nil
}

// failureError builds the tagged error for a success=false envelope.
func failureError(status int, env *envelope) *Error {
	if len(env.Errors) > 0 {
		fields := make(map[string]string, len(env.Errors))
		for _, fe := range env.Errors {
			fields[fe.Field] = fe.Message
		}
		return &Error{Kind: KindFieldErrors, Fields: fields}
	}
	kind := KindMessage
	if status == http.StatusNotFound {
		kind = KindNotFound
	}
	return &Error{Kind: kind, Message: messageOr(env.Message, "request failed")}
}

func messageOr(message, fallback string) string {
	if message != "" {
		return message
	}
	return fallback
}

// decodeData unmarshals the data payload of a successful envelope.
func decodeData(env *envelope, out any) error {
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Kind: KindMessage, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}
