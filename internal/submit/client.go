// Package submit talks to the remote repository service: saving drafts,
// publishing, and fetching the resource type vocabulary. A failed save
// returns the service's validation errors as an error tree, which becomes
// the form's new initial errors.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/depositform/internal/cachemanager"
	"github.com/zjrosen/depositform/internal/layout"
	"github.com/zjrosen/depositform/internal/log"
	"github.com/zjrosen/depositform/internal/tracing"
	"github.com/zjrosen/depositform/internal/tree"
)

// ErrNoRecordID is returned by Publish for values that were never saved.
var ErrNoRecordID = errors.New("record has no id")

const (
	// RequestIDHeader carries the request id on every call.
	RequestIDHeader = "X-Request-ID"

	defaultVocabularyTTL = time.Hour
	resourceTypesKey     = "resourcetypes"
)

// APIError is a non-validation failure reported by the service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Response is the outcome of a save or publish.
type Response struct {
	// Values is the record as the service stored it.
	Values tree.Tree
	// Errors holds the validation errors, empty when the record is valid.
	Errors    tree.Tree
	Status    int
	RequestID string
}

// OK reports whether the service reported no validation errors.
func (r Response) OK() bool {
	return len(tree.Leaves(r.Errors)) == 0
}

// Submitter saves and publishes records.
type Submitter interface {
	SaveDraft(ctx context.Context, values tree.Tree) (Response, error)
	Publish(ctx context.Context, values tree.Tree) (Response, error)
}

// Client is an HTTP Submitter for an InvenioRDM style records API.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	tracer trace.Tracer

	vocabTTL  time.Duration
	skipCache bool
	vocab     *cachemanager.ReadThroughCache[string, []layout.ResourceTypeOption, string]
}

var _ Submitter = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTracer sets the tracer for request spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithVocabularyTTL sets how long fetched vocabularies are cached.
func WithVocabularyTTL(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.vocabTTL = d
		}
	}
}

// WithoutVocabularyCache makes every vocabulary lookup hit the service.
func WithoutVocabularyCache() Option {
	return func(c *Client) { c.skipCache = true }
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	c := &Client{
		base:     base,
		http:     &http.Client{Timeout: 30 * time.Second},
		tracer:   noop.NewTracerProvider().Tracer("noop"),
		vocabTTL: defaultVocabularyTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	cache := cachemanager.NewInMemoryCacheManager[string, []layout.ResourceTypeOption]("vocabularies", c.vocabTTL, cachemanager.DefaultCleanupInterval)
	c.vocab = cachemanager.NewReadThroughCache[string, []layout.ResourceTypeOption, string](cache, c.fetchResourceTypes,
		cachemanager.WithSkipCache(c.skipCache),
		cachemanager.WithStaleOnError(),
	)
	return c, nil
}

// SaveDraft creates the draft when values carry no id and updates it
// otherwise.
func (c *Client) SaveDraft(ctx context.Context, values tree.Tree) (Response, error) {
	id := tree.String(values, "id")
	method, path := http.MethodPost, "/api/records"
	if id != "" {
		method, path = http.MethodPut, "/api/records/"+url.PathEscape(id)+"/draft"
	}
	return c.record(ctx, "save_draft", method, path, id, values)
}

// Publish publishes the saved draft of values.
func (c *Client) Publish(ctx context.Context, values tree.Tree) (Response, error) {
	id := tree.String(values, "id")
	if id == "" {
		return Response{}, ErrNoRecordID
	}
	return c.record(ctx, "publish", http.MethodPost, "/api/records/"+url.PathEscape(id)+"/draft/actions/publish", id, nil)
}

// ResourceTypes returns the resource type vocabulary.
func (c *Client) ResourceTypes(ctx context.Context) ([]layout.ResourceTypeOption, error) {
	return c.vocab.Get(ctx, resourceTypesKey, resourceTypesKey, c.vocabTTL)
}

// FieldError is one entry of the service's validation error list.
type FieldError struct {
	Field    string   `json:"field"`
	Messages []string `json:"messages"`
}

type recordBody struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors"`
}

func (c *Client) record(ctx context.Context, op, method, path, id string, body tree.Tree) (Response, error) {
	ctx, requestID := tracing.EnsureRequestID(ctx)
	ctx, span := c.tracer.Start(ctx, tracing.SpanPrefixSubmit+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(tracing.AttrRequestID, requestID),
			attribute.String(tracing.AttrRecordID, id),
		),
	)
	defer span.End()

	resp := Response{RequestID: requestID}
	status, raw, err := c.do(ctx, method, path, requestID, body)
	resp.Status = status
	span.SetAttributes(attribute.Int(tracing.AttrHTTPStatus, status))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.ErrorErr(log.CatSubmit, "Request failed", err, "op", op, "request_id", requestID)
		return resp, err
	}

	var parsed recordBody
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			err = fmt.Errorf("decode %s response: %w", op, err)
			span.SetStatus(codes.Error, err.Error())
			return resp, err
		}
	}

	switch {
	case status >= 200 && status < 300:
		values := tree.Tree{}
		if err := json.Unmarshal(raw, &values); err != nil {
			return resp, fmt.Errorf("decode %s record: %w", op, err)
		}
		delete(values, "errors")
		resp.Values = values
	case status == http.StatusBadRequest && len(parsed.Errors) > 0:
		// Validation failure: the record was not changed.
	default:
		err := &APIError{Status: status, Message: parsed.Message}
		span.SetStatus(codes.Error, err.Error())
		log.Warn(log.CatSubmit, "Server rejected request", "op", op, "status", status, "request_id", requestID)
		return resp, err
	}

	resp.Errors = ErrorTree(parsed.Errors)
	count := len(tree.Leaves(resp.Errors))
	span.SetAttributes(attribute.Int(tracing.AttrErrorCount, count))
	span.SetStatus(codes.Ok, "")
	log.Info(log.CatSubmit, "Request done", "op", op, "status", status, "errors", count, "request_id", requestID)
	return resp, nil
}

// ErrorTree converts the service's field error list into an error tree.
// Messages for one field are joined with a space.
func ErrorTree(errs []FieldError) tree.Tree {
	out := tree.Tree{}
	for _, e := range errs {
		if e.Field == "" {
			continue
		}
		msg := strings.Join(e.Messages, " ")
		if prev := tree.String(out, e.Field); prev != "" {
			msg = prev + " " + msg
		}
		tree.Set(out, e.Field, msg)
	}
	return out
}

func (c *Client) do(ctx context.Context, method, path, requestID string, body tree.Tree) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	u := c.base.JoinPath(path)
	if i := strings.IndexByte(path, '?'); i >= 0 {
		u = c.base.JoinPath(path[:i])
		u.RawQuery = path[i+1:]
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, u.Path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return res.StatusCode, raw, nil
}
