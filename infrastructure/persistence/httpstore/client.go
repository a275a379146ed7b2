// Package httpstore is a ports.SnapshotStore that talks to the snapshot
// backend's REST API.
package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ontograph/application/ports"
	"ontograph/domain/core/aggregates"
	"ontograph/domain/core/valueobjects"
	pkgerrors "ontograph/pkg/errors"

	"go.uber.org/zap"
)

// Client implements ports.SnapshotStore over HTTP
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *zap.Logger
}

var _ ports.SnapshotStore = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithToken sends a bearer token on every request
func WithToken(token string) Option {
	return func(cl *Client) { cl.token = token }
}

// NewClient creates a client for the API rooted at baseURL
func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ontologyURL(iri valueobjects.OntologyIRI, suffix string) string {
	return c.baseURL + "/api/v1/ontologies/" + url.PathEscape(iri.String()) + suffix
}

// Save PUTs the snapshot; the base revision travels in If-Match
func (c *Client) Save(ctx context.Context, snapshot aggregates.Snapshot) (ports.SaveResult, error) {
	body, err := snapshot.Encode()
	if err != nil {
		return ports.SaveResult{}, pkgerrors.NewValidationError("snapshot cannot be encoded").WithCause(err)
	}
	req, err := c.newRequest(ctx, http.MethodPut, c.ontologyURL(snapshot.OntologyIRI, "/snapshot"), body)
	if err != nil {
		return ports.SaveResult{}, err
	}
	req.Header.Set("If-Match", strconv.FormatInt(snapshot.Revision, 10))

	var result ports.SaveResult
	if err := c.do(req, &result); err != nil {
		return ports.SaveResult{}, err
	}
	return result, nil
}

// Load GETs the snapshot
func (c *Client) Load(ctx context.Context, iri valueobjects.OntologyIRI) (aggregates.Snapshot, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.ontologyURL(iri, "/snapshot"), nil)
	if err != nil {
		return aggregates.Snapshot{}, err
	}
	var raw json.RawMessage
	if err := c.do(req, &raw); err != nil {
		return aggregates.Snapshot{}, err
	}
	return aggregates.DecodeSnapshot(raw)
}

// Rename PATCHes the label
func (c *Client) Rename(ctx context.Context, iri valueobjects.OntologyIRI, label string) error {
	body, err := json.Marshal(map[string]string{"label": label})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPatch, c.ontologyURL(iri, ""), body)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// Delete removes the ontology
func (c *Client) Delete(ctx context.Context, iri valueobjects.OntologyIRI) error {
	req, err := c.newRequest(ctx, http.MethodDelete, c.ontologyURL(iri, ""), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) newRequest(ctx context.Context, method, target string, body []byte) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, pkgerrors.NewValidationError("invalid request").WithCause(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.NewNetworkError("snapshot backend unreachable", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Snapshot backend call",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.NewNetworkError("malformed backend response", err)
	}
	return nil
}

// decodeError turns an error response back into an AppError
func decodeError(resp *http.Response) error {
	var body pkgerrors.ErrorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body)
	msg := body.Message
	if msg == "" {
		msg = fmt.Sprintf("snapshot backend returned %d", resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return pkgerrors.NewValidationError(msg)
	case http.StatusNotFound:
		return pkgerrors.NewNotFoundError("ontology")
	case http.StatusUnauthorized:
		return pkgerrors.NewUnauthorizedError(msg)
	case http.StatusForbidden:
		return pkgerrors.NewForbiddenError(msg)
	case http.StatusConflict:
		return pkgerrors.NewConflictError(msg)
	case http.StatusServiceUnavailable, http.StatusTooManyRequests, http.StatusBadGateway, http.StatusGatewayTimeout:
		return pkgerrors.NewUnavailableError("snapshot backend")
	default:
		return pkgerrors.NewInternalError(msg)
	}
}
