// Package httpapi implements service.Transport against the upstream BABO
// REST API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/utafrali/babo/internal/domain"
	"github.com/utafrali/babo/internal/service"
	apperrors "github.com/utafrali/babo/pkg/errors"
	"github.com/utafrali/babo/pkg/httpclient"
	"github.com/utafrali/babo/pkg/logger"
	"github.com/utafrali/babo/pkg/tracing"
)

const serviceName = "babo-api"

// Client talks to the upstream service over HTTP. Retries and the circuit
// breaker live in the Doer it is built with.
type Client struct {
	http    httpclient.Doer
	baseURL string
	logger  *slog.Logger
}

var _ service.Transport = (*Client)(nil)

// New creates a client for the API rooted at baseURL.
func New(doer httpclient.Doer, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		http:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// CircuitOpenFallback answers for the upstream while the breaker is open.
// The caller sees it like any other unreachable server.
func CircuitOpenFallback(_ context.Context, err error) (*http.Response, error) {
	return nil, fmt.Errorf("%s temporarily unavailable: %w", serviceName, err)
}

type recommendationRequest struct {
	Username      string `json:"username"`
	TargetISBN    string `json:"target_isbn"`
	CandidateISBN string `json:"candidate_isbn"`
}

// SubmitRating posts a new rating.
func (c *Client) SubmitRating(ctx context.Context, sub domain.RatingSubmission) (service.RatingResponse, error) {
	var out service.RatingResponse
	err := c.do(ctx, http.MethodPost, "/api/ratings", sub, &out)
	return out, err
}

// FetchRecommendationPermission reads the user's quota for one target book.
func (c *Client) FetchRecommendationPermission(ctx context.Context, username, targetISBN string) (service.PermissionResponse, error) {
	var out service.PermissionResponse
	path := "/api/recommendations/permission?" + userBookQuery(username, targetISBN)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// SubmitRecommendation recommends candidateISBN to readers of targetISBN.
func (c *Client) SubmitRecommendation(ctx context.Context, username, targetISBN, candidateISBN string) (service.ItemResponse, error) {
	var out service.ItemResponse
	body := recommendationRequest{Username: username, TargetISBN: targetISBN, CandidateISBN: candidateISBN}
	err := c.do(ctx, http.MethodPost, "/api/recommendations", body, &out)
	return out, err
}

// FetchExistingRecommendations lists what the user already recommended for targetISBN.
func (c *Client) FetchExistingRecommendations(ctx context.Context, username, targetISBN string) (service.ExistingResponse, error) {
	var out service.ExistingResponse
	path := "/api/recommendations?" + userBookQuery(username, targetISBN)
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// FetchBookRatings lists every rating of a book.
func (c *Client) FetchBookRatings(ctx context.Context, isbn string) (service.BookRatingsResponse, error) {
	var out service.BookRatingsResponse
	err := c.do(ctx, http.MethodGet, "/api/books/"+url.PathEscape(isbn)+"/ratings", nil, &out)
	return out, err
}

func userBookQuery(username, isbn string) string {
	q := url.Values{}
	q.Set("username", username)
	q.Set("isbn", isbn)
	return q.Encode()
}

// do sends one request and decodes the JSON answer into out.
//
// Any failure to reach the server or to read its answer is a connection
// error. A 4xx whose body says success:false is decoded into out like a
// normal answer; other 4xx bodies go through ParseResponseError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	reqBody := io.Reader(http.NoBody)
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", path, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return apperrors.ConnectionFailed(fmt.Errorf("create %s %s request: %w", method, path, err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}
	tracing.InjectHeaders(ctx, req.Header)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		c.logger.WarnContext(ctx, "upstream request failed",
			slog.String("method", method),
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()),
		)
		return apperrors.ConnectionFailed(err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		defer func() { _ = resp.Body.Close() }()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.ConnectionFailed(fmt.Errorf("decode %s response: %w", path, err))
		}
		return nil

	case httpclient.IsClientError(resp.StatusCode):
		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = resp.Body.Close()
		if err != nil {
			return apperrors.ConnectionFailed(fmt.Errorf("read %s response: %w", path, err))
		}
		if isFlatRejection(data) && json.Unmarshal(data, out) == nil {
			return nil
		}
		resp.Body = io.NopCloser(bytes.NewReader(data))
		return httpclient.ParseResponseError(resp, serviceName)

	default:
		return apperrors.ConnectionFailed(httpclient.ParseResponseError(resp, serviceName))
	}
}

func isFlatRejection(data []byte) bool {
	var probe struct {
		Success *bool `json:"success"`
	}
	return json.Unmarshal(data, &probe) == nil && probe.Success != nil && !*probe.Success
}
