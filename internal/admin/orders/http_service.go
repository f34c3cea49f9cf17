package orders

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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/T0MGL/0rdefy-sub009/internal/platform/observability"
	"github.com/T0MGL/0rdefy-sub009/internal/platform/requestctx"
)

// HTTPClient matches the subset of http.Client used by HTTPService.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// StoreHeader carries the tenant the caller acts for.
const StoreHeader = "X-Store-ID"

// HTTPService implements Service backed by the REST order API.
type HTTPService struct {
	base   *url.URL
	client HTTPClient
	tracer trace.Tracer
}

// NewHTTPService constructs a Service that talks to the backend order API.
func NewHTTPService(baseURL string, client HTTPClient) (*HTTPService, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("orders: base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("orders: parse base URL: %w", err)
	}
	if !strings.HasSuffix(parsed.Path, "/") {
		parsed.Path += "/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPService{
		base:   parsed,
		client: client,
		tracer: observability.Tracer("internal/admin/orders"),
	}, nil
}

type listEnvelope struct {
	Data       []Order    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// List retrieves a page of orders.
func (s *HTTPService) List(ctx context.Context, token string, query Query) (result ListResult, err error) {
	ctx, span := s.startSpan(ctx, "List", "")
	defer func() { endSpan(span, err) }()

	endpoint := "orders"
	if encoded := query.Values().Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	req, err := s.newRequest(ctx, http.MethodGet, endpoint, nil, token)
	if err != nil {
		return ListResult{}, err
	}
	resp, err := s.do(req)
	if err != nil {
		return ListResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ListResult{}, s.errorFromResponse(resp)
	}

	var payload listEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ListResult{}, fmt.Errorf("orders: decode list: %w", err)
	}
	if payload.Pagination.Limit == 0 {
		payload.Pagination.Limit = query.Limit
	}
	if payload.Data == nil {
		payload.Data = []Order{}
	}
	span.SetAttributes(
		attribute.Int("orders.returned", len(payload.Data)),
		attribute.Int("orders.total", payload.Pagination.Total),
	)
	return ListResult{Orders: payload.Data, Pagination: payload.Pagination}, nil
}

// Get loads a single order.
func (s *HTTPService) Get(ctx context.Context, token, orderID string) (Order, error) {
	return s.orderCall(ctx, "Get", http.MethodGet, orderPath(orderID), nil, token, orderID)
}

// Create registers a manual order.
func (s *HTTPService) Create(ctx context.Context, token string, req CreateRequest) (Order, error) {
	return s.orderCall(ctx, "Create", http.MethodPost, "orders", req, token, "")
}

// Update edits an order.
func (s *HTTPService) Update(ctx context.Context, token, orderID string, req UpdateRequest) (Order, error) {
	return s.orderCall(ctx, "Update", http.MethodPut, orderPath(orderID), req, token, orderID)
}

// Delete removes an order, permanently when requested.
func (s *HTTPService) Delete(ctx context.Context, token, orderID string, permanent bool) (err error) {
	ctx, span := s.startSpan(ctx, "Delete", orderID)
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Bool("orders.permanent", permanent))

	endpoint := orderPath(orderID)
	if permanent {
		endpoint += "?permanent=true"
	}
	req, err := s.newRequest(ctx, http.MethodDelete, endpoint, nil, token)
	if err != nil {
		return err
	}
	resp, err := s.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return s.errorFromResponse(resp)
	}
	return nil
}

// Restore clears the soft delete marker.
func (s *HTTPService) Restore(ctx context.Context, token, orderID string) (Order, error) {
	return s.orderCall(ctx, "Restore", http.MethodPost, orderPath(orderID)+"/restore", nil, token, orderID)
}

// Confirm confirms an order.
func (s *HTTPService) Confirm(ctx context.Context, token, orderID string, req ConfirmRequest) (Order, error) {
	return s.orderCall(ctx, "Confirm", http.MethodPost, orderPath(orderID)+"/confirm", req, token, orderID)
}

// Reject cancels an order.
func (s *HTTPService) Reject(ctx context.Context, token, orderID string, req RejectRequest) (Order, error) {
	return s.orderCall(ctx, "Reject", http.MethodPost, orderPath(orderID)+"/reject", req, token, orderID)
}

// UpdateStatus transitions an order.
func (s *HTTPService) UpdateStatus(ctx context.Context, token, orderID string, req StatusUpdateRequest) (Order, error) {
	return s.orderCall(ctx, "UpdateStatus", http.MethodPatch, orderPath(orderID)+"/status", req, token, orderID)
}

// MarkContacted records customer contact.
func (s *HTTPService) MarkContacted(ctx context.Context, token, orderID string) (Order, error) {
	return s.orderCall(ctx, "MarkContacted", http.MethodPost, orderPath(orderID)+"/contact", nil, token, orderID)
}

// MarkPrinted records a printed label.
func (s *HTTPService) MarkPrinted(ctx context.Context, token, orderID string) (Order, error) {
	return s.orderCall(ctx, "MarkPrinted", http.MethodPost, orderPath(orderID)+"/printed", nil, token, orderID)
}

// MarkTest flags an order as a test order.
func (s *HTTPService) MarkTest(ctx context.Context, token, orderID string, isTest bool) (Order, error) {
	body := map[string]bool{"is_test": isTest}
	return s.orderCall(ctx, "MarkTest", http.MethodPatch, orderPath(orderID)+"/test", body, token, orderID)
}

// BulkPrintDispatch marks a batch of orders as printed and dispatched.
func (s *HTTPService) BulkPrintDispatch(ctx context.Context, token string, orderIDs []string) (result BulkPrintResult, err error) {
	ctx, span := s.startSpan(ctx, "BulkPrintDispatch", "")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.Int("orders.batch_size", len(orderIDs)))

	body := map[string][]string{"order_ids": orderIDs}
	req, err := s.newJSONRequest(ctx, http.MethodPost, "orders/bulk-print", body, token)
	if err != nil {
		return BulkPrintResult{}, err
	}
	resp, err := s.do(req)
	if err != nil {
		return BulkPrintResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
		return BulkPrintResult{}, s.errorFromResponse(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return BulkPrintResult{}, fmt.Errorf("orders: read bulk print: %w", err)
	}
	if isEmptyPayload(raw) {
		return BulkPrintResult{}, ErrEmptyResponse
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return BulkPrintResult{}, fmt.Errorf("orders: decode bulk print: %w", err)
	}
	if len(result.Items) == 0 && len(orderIDs) > 0 {
		return BulkPrintResult{}, ErrEmptyResponse
	}
	span.SetAttributes(attribute.Int("orders.failed", len(result.Failed())))
	return result, nil
}

func (s *HTTPService) orderCall(ctx context.Context, op, method, endpoint string, payload any, token, orderID string) (order Order, err error) {
	ctx, span := s.startSpan(ctx, op, orderID)
	defer func() { endSpan(span, err) }()

	var req *http.Request
	if payload != nil {
		req, err = s.newJSONRequest(ctx, method, endpoint, payload, token)
	} else {
		req, err = s.newRequest(ctx, method, endpoint, nil, token)
	}
	if err != nil {
		return Order{}, err
	}
	resp, err := s.do(req)
	if err != nil {
		return Order{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Order{}, s.errorFromResponse(resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Order{}, fmt.Errorf("orders: read %s response: %w", strings.ToLower(op), err)
	}
	return decodeOrder(raw, op)
}

// decodeOrder accepts both a bare order and a {"data": order} envelope. Empty payloads are
// reported as ErrEmptyResponse so callers treat them as failures.
func decodeOrder(raw []byte, op string) (Order, error) {
	if isEmptyPayload(raw) {
		return Order{}, ErrEmptyResponse
	}
	var envelope struct {
		Data *Order `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Data != nil {
		if envelope.Data.ID == "" {
			return Order{}, ErrEmptyResponse
		}
		return *envelope.Data, nil
	}
	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return Order{}, fmt.Errorf("orders: decode %s: %w", strings.ToLower(op), err)
	}
	if order.ID == "" {
		return Order{}, ErrEmptyResponse
	}
	return order, nil
}

func isEmptyPayload(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("{}")) || bytes.Equal(trimmed, []byte("false"))
}

func orderPath(orderID string) string {
	return "orders/" + url.PathEscape(strings.TrimSpace(orderID))
}

func (s *HTTPService) startSpan(ctx context.Context, op, orderID string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "orders.HTTPService."+op, trace.WithSpanKind(trace.SpanKindClient))
	if orderID != "" {
		span.SetAttributes(attribute.String("orders.id", orderID))
	}
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *HTTPService) do(req *http.Request) (*http.Response, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("orders: request failed: %w", err)
	}
	return resp, nil
}

func (s *HTTPService) newRequest(ctx context.Context, method, endpoint string, body io.Reader, token string) (*http.Request, error) {
	urlStr := s.resolve(endpoint)
	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, fmt.Errorf("orders: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if storeID := requestctx.StoreID(ctx); storeID != "" {
		req.Header.Set(StoreHeader, storeID)
	}
	return req, nil
}

func (s *HTTPService) newJSONRequest(ctx context.Context, method, endpoint string, payload any, token string) (*http.Request, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("orders: encode payload: %w", err)
	}
	req, err := s.newRequest(ctx, method, endpoint, &buf, token)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (s *HTTPService) resolve(endpoint string) string {
	if endpoint == "" {
		return s.base.String()
	}
	ref, err := url.Parse(strings.TrimPrefix(endpoint, "/"))
	if err != nil {
		return s.base.String()
	}
	return s.base.ResolveReference(ref).String()
}

func (s *HTTPService) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	type errorPayload struct {
		Code    string `json:"code"`
		Error   string `json:"error"`
		Message string `json:"message"`
		From    string `json:"from"`
		To      string `json:"to"`
		Details struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"details"`
	}
	apiErr := &APIError{Status: resp.StatusCode}
	var payload errorPayload
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		apiErr.Code = strings.TrimSpace(payload.Code)
		if apiErr.Code == "" {
			apiErr.Code = strings.TrimSpace(payload.Error)
		}
		apiErr.Message = strings.TrimSpace(payload.Message)
		from, to := payload.From, payload.To
		if from == "" && to == "" {
			from, to = payload.Details.From, payload.Details.To
		}
		if parsed, err := ParseStatus(from); err == nil {
			apiErr.From = parsed
		}
		if parsed, err := ParseStatus(to); err == nil {
			apiErr.To = parsed
		}
	} else if len(body) > 0 {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
