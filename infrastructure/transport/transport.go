package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/meetscribe/scribe-go/domain/call"
	"github.com/meetscribe/scribe-go/domain/config"
	"github.com/meetscribe/scribe-go/domain/transcript"
	"github.com/meetscribe/scribe-go/infrastructure/logging"
)

// maxErrorBody caps how much of an error response body is read.
const maxErrorBody = 64 * 1024

// ErrUnknownClient reports a dispatch with a handle the pool did not issue.
var ErrUnknownClient = errors.New("transport: unknown client handle")

// apiError is the error envelope the transcription API returns.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// HTTP implements call.Transport against the transcription API's REST
// surface. All failures that reached the API are reported as
// *call.RawFailure so the classifier operates on a closed type.
type HTTP struct {
	baseURL   string
	pool      *Pool
	userAgent string
}

// Option configures the transport.
type Option func(*HTTP)

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(t *HTTP) {
		t.userAgent = ua
	}
}

// NewHTTP creates a transport dispatching against cfg.BaseURL using
// clients leased from the pool.
func NewHTTP(cfg config.TransportConfig, pool *Pool, opts ...Option) *HTTP {
	t := &HTTP{
		baseURL:   cfg.BaseURL,
		pool:      pool,
		userAgent: "scribe-go/1.0",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Dispatch routes the request to the endpoint for its call type. An
// unsupported call type is a programming error and surfaces directly
// rather than as a RawFailure.
func (t *HTTP) Dispatch(ctx context.Context, client call.ClientHandle, req call.Request) (any, error) {
	l, ok := t.pool.resolve(client.ClientID)
	if !ok {
		return nil, ErrUnknownClient
	}

	switch req.CallType {
	case call.TypeCreateTranscription:
		return t.createTranscription(ctx, l, req)
	case call.TypeGetTranscription:
		return t.getTranscription(ctx, l, req)
	case call.TypeListTranscriptions:
		return t.listTranscriptions(ctx, l, req)
	case call.TypeDeleteTranscription:
		return t.deleteTranscription(ctx, l, req)
	case call.TypeGetHealth:
		return t.getHealth(ctx, l)
	case call.TypeAuthenticate:
		return t.authenticate(ctx, l)
	default:
		return nil, fmt.Errorf("%w: %s", call.ErrUnsupportedCallType, req.CallType)
	}
}

func (t *HTTP) createTranscription(ctx context.Context, l *lease, req call.Request) (any, error) {
	payload, err := payloadAs[transcript.CreateRequest](req.Payload)
	if err != nil {
		return nil, err
	}
	var result transcript.Result
	if err := t.do(ctx, l, http.MethodPost, "/v1/transcriptions", payload, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (t *HTTP) getTranscription(ctx context.Context, l *lease, req call.Request) (any, error) {
	ref, err := payloadAs[transcript.JobRef](req.Payload)
	if err != nil {
		return nil, err
	}
	var result transcript.Result
	if err := t.do(ctx, l, http.MethodGet, "/v1/transcriptions/"+url.PathEscape(ref.JobID), nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (t *HTTP) listTranscriptions(ctx context.Context, l *lease, req call.Request) (any, error) {
	query, err := payloadAs[transcript.ListQuery](req.Payload)
	if err != nil {
		return nil, err
	}

	path := "/v1/transcriptions"
	params := url.Values{}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.PageToken != "" {
		params.Set("page_token", query.PageToken)
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var page transcript.ListPage
	if err := t.do(ctx, l, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return page, nil
}

func (t *HTTP) deleteTranscription(ctx context.Context, l *lease, req call.Request) (any, error) {
	ref, err := payloadAs[transcript.JobRef](req.Payload)
	if err != nil {
		return nil, err
	}
	if err := t.do(ctx, l, http.MethodDelete, "/v1/transcriptions/"+url.PathEscape(ref.JobID), nil, nil); err != nil {
		return nil, err
	}
	return nil, nil
}

func (t *HTTP) getHealth(ctx context.Context, l *lease) (any, error) {
	start := time.Now()
	var body struct {
		Status string `json:"status"`
	}
	if err := t.do(ctx, l, http.MethodGet, "/v1/health", nil, &body); err != nil {
		return nil, err
	}
	return transcript.HealthStatus{
		Healthy: body.Status == "ok",
		Region:  l.cfg.Region,
		Latency: time.Since(start),
	}, nil
}

func (t *HTTP) authenticate(ctx context.Context, l *lease) (any, error) {
	var token transcript.AuthToken
	if err := t.do(ctx, l, http.MethodPost, "/v1/auth/token", nil, &token); err != nil {
		return nil, err
	}
	return token, nil
}

// do performs one HTTP exchange. A non-2xx response becomes a
// *call.RawFailure carrying the status and the API's error envelope;
// transport-level failures become a *call.RawFailure with status 0.
func (t *HTTP) do(ctx context.Context, l *lease, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", t.userAgent)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if l.cfg.Credential != "" {
		httpReq.Header.Set("Authorization", "Bearer "+l.cfg.Credential)
	}
	if l.cfg.Region != "" {
		httpReq.Header.Set("X-Region", l.cfg.Region)
	}

	resp, err := l.client.Do(httpReq)
	if err != nil {
		return &call.RawFailure{Message: err.Error()}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Warn().Add(logging.ErrorField(cerr)).Msg("close response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failureFrom(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &call.RawFailure{
			StatusCode: resp.StatusCode,
			Message:    "decode response: " + err.Error(),
		}
	}
	return nil
}

// failureFrom converts an error response into the closed failure shape.
func failureFrom(resp *http.Response) *call.RawFailure {
	failure := &call.RawFailure{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return failure
	}
	var envelope apiError
	if err := json.Unmarshal(data, &envelope); err != nil {
		return failure
	}
	if envelope.Error != nil {
		envelope.Code = envelope.Error.Code
		envelope.Message = envelope.Error.Message
	}
	if envelope.Code != "" {
		failure.ErrorCode = envelope.Code
	}
	if envelope.Message != "" {
		failure.Message = envelope.Message
	}
	return failure
}

// payloadAs coerces the request payload into the concrete type the
// endpoint expects, tolerating pointers and generic map payloads via a
// JSON round-trip.
func payloadAs[T any](payload any) (T, error) {
	switch v := payload.(type) {
	case T:
		return v, nil
	case *T:
		return *v, nil
	}

	var out T
	encoded, err := json.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("%w: %v", call.ErrInvalidPayload, err)
	}
	if err := json.Unmarshal(encoded, &out); err != nil {
		return out, fmt.Errorf("%w: %v", call.ErrInvalidPayload, err)
	}
	return out, nil
}
