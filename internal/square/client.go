// Package square is a thin REST client for the parts of Square's connect API
// the gateway orchestrates: catalog search, booking availability, customers,
// payments, and bookings. Square is the system of record; this client performs
// no retries and no caching.
package square

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/lakeshore-health/telehealth-gateway/pkg/logging"
)

var tracer = otel.Tracer("gateway.internal.square")

const defaultTimeout = 20 * time.Second

// APIError is a non-2xx answer from Square. Detail carries Square's first
// error message and is passed through to gateway clients.
type APIError struct {
	Status int
	Code   string
	Detail string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("square: status %d (%s): %s", e.Status, e.Code, e.Detail)
	}
	return fmt.Sprintf("square: status %d: %s", e.Status, e.Detail)
}

// CallObserver is notified after every remote call. The metrics package
// implements it; a nil observer is a no-op.
type CallObserver interface {
	ObserveRemoteCall(api, status string)
}

// Client talks to one Square account at one location.
type Client struct {
	baseURL     string
	accessToken string
	locationID  string
	httpClient  *http.Client
	logger      *logging.Logger
	observer    CallObserver
}

// NewClient creates a Square client. env selects the production host unless it
// equals "production"; WithBaseURL overrides both (sandbox proxies, tests).
func NewClient(accessToken, locationID, env string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	base := sandboxBaseURL
	if env == "production" {
		base = productionBaseURL
	}
	return &Client{
		baseURL:     base,
		accessToken: accessToken,
		locationID:  locationID,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		logger:      logger,
	}
}

// WithBaseURL overrides the API host.
func (c *Client) WithBaseURL(baseURL string) *Client {
	if baseURL != "" {
		c.baseURL = baseURL
	}
	return c
}

// WithObserver attaches a remote-call observer.
func (c *Client) WithObserver(obs CallObserver) *Client {
	c.observer = obs
	return c
}

// LocationID returns the configured Square location.
func (c *Client) LocationID() string { return c.locationID }

// SearchCatalog returns all catalog items together with their variations.
func (c *Client) SearchCatalog(ctx context.Context) ([]CatalogObject, error) {
	body := map[string]any{
		"object_types":            []string{"ITEM"},
		"include_related_objects": false,
	}
	var out struct {
		Objects []CatalogObject `json:"objects"`
	}
	if err := c.do(ctx, "catalog.search", http.MethodPost, "/v2/catalog/search", body, &out); err != nil {
		return nil, err
	}
	return out.Objects, nil
}

// SearchAvailability asks Square for open slots matching the filter. The
// answer already accounts for provider hours and existing bookings.
func (c *Client) SearchAvailability(ctx context.Context, filter AvailabilityFilter) ([]Availability, error) {
	segment := map[string]any{
		"service_variation_id": filter.ServiceVariationID,
	}
	if filter.TeamMemberID != "" {
		segment["team_member_id_filter"] = map[string]any{"any": []string{filter.TeamMemberID}}
	}
	body := map[string]any{
		"query": map[string]any{
			"filter": map[string]any{
				"start_at_range": map[string]any{
					"start_at": filter.StartAt.UTC().Format(time.RFC3339),
					"end_at":   filter.EndAt.UTC().Format(time.RFC3339),
				},
				"location_id":     c.locationID,
				"segment_filters": []map[string]any{segment},
			},
		},
	}
	var out struct {
		Availabilities []Availability `json:"availabilities"`
	}
	if err := c.do(ctx, "bookings.search_availability", http.MethodPost, "/v2/bookings/availability/search", body, &out); err != nil {
		return nil, err
	}
	return out.Availabilities, nil
}

// SearchCustomers looks up customers by exact email match.
func (c *Client) SearchCustomers(ctx context.Context, email string) ([]Customer, error) {
	body := map[string]any{
		"query": map[string]any{
			"filter": map[string]any{
				"email_address": map[string]any{"exact": email},
			},
		},
	}
	var out struct {
		Customers []Customer `json:"customers"`
	}
	if err := c.do(ctx, "customers.search", http.MethodPost, "/v2/customers/search", body, &out); err != nil {
		return nil, err
	}
	return out.Customers, nil
}

// CreateCustomer creates a new customer record.
func (c *Client) CreateCustomer(ctx context.Context, customer Customer) (*Customer, error) {
	var out struct {
		Customer Customer `json:"customer"`
	}
	if err := c.do(ctx, "customers.create", http.MethodPost, "/v2/customers", customer, &out); err != nil {
		return nil, err
	}
	if out.Customer.ID == "" {
		return nil, fmt.Errorf("square: create customer returned empty id")
	}
	return &out.Customer, nil
}

// UpdateCustomer replaces the free-text note on an existing customer.
func (c *Client) UpdateCustomer(ctx context.Context, customerID, note string) error {
	body := map[string]any{"note": note}
	var out struct {
		Customer Customer `json:"customer"`
	}
	return c.do(ctx, "customers.update", http.MethodPut, "/v2/customers/"+url.PathEscape(customerID), body, &out)
}

// RetrieveCustomer fetches one customer by id.
func (c *Client) RetrieveCustomer(ctx context.Context, customerID string) (*Customer, error) {
	var out struct {
		Customer Customer `json:"customer"`
	}
	if err := c.do(ctx, "customers.retrieve", http.MethodGet, "/v2/customers/"+url.PathEscape(customerID), nil, &out); err != nil {
		return nil, err
	}
	return &out.Customer, nil
}

// CreatePayment captures a payment against a card token.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (*Payment, error) {
	body := map[string]any{
		"source_id":       req.SourceID,
		"idempotency_key": req.IdempotencyKey,
		"amount_money":    req.Amount,
		"location_id":     c.locationID,
	}
	if req.CustomerID != "" {
		body["customer_id"] = req.CustomerID
	}
	if req.Note != "" {
		body["note"] = req.Note
	}
	var out struct {
		Payment Payment `json:"payment"`
	}
	if err := c.do(ctx, "payments.create", http.MethodPost, "/v2/payments", body, &out); err != nil {
		return nil, err
	}
	if out.Payment.ID == "" {
		return nil, fmt.Errorf("square: create payment returned empty id")
	}
	return &out.Payment, nil
}

// CreateBooking creates an appointment for a customer at a start time.
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (*Booking, error) {
	body := map[string]any{
		"idempotency_key": req.IdempotencyKey,
		"booking": map[string]any{
			"location_id":          c.locationID,
			"customer_id":          req.CustomerID,
			"start_at":             req.StartAt.UTC().Format(time.RFC3339),
			"customer_note":        req.CustomerNote,
			"seller_note":          req.SellerNote,
			"appointment_segments": []AppointmentSegment{req.Segment},
		},
	}
	var out struct {
		Booking Booking `json:"booking"`
	}
	if err := c.do(ctx, "bookings.create", http.MethodPost, "/v2/bookings", body, &out); err != nil {
		return nil, err
	}
	if out.Booking.ID == "" {
		return nil, fmt.Errorf("square: create booking returned empty id")
	}
	return &out.Booking, nil
}

// ListBookings returns bookings at the configured location, optionally scoped
// to one provider and a start-at window.
func (c *Client) ListBookings(ctx context.Context, teamMemberID string, startAtMin, startAtMax time.Time) ([]Booking, error) {
	q := url.Values{}
	q.Set("location_id", c.locationID)
	q.Set("limit", strconv.Itoa(100))
	if teamMemberID != "" {
		q.Set("team_member_id", teamMemberID)
	}
	if !startAtMin.IsZero() {
		q.Set("start_at_min", startAtMin.UTC().Format(time.RFC3339))
	}
	if !startAtMax.IsZero() {
		q.Set("start_at_max", startAtMax.UTC().Format(time.RFC3339))
	}
	var out struct {
		Bookings []Booking `json:"bookings"`
	}
	if err := c.do(ctx, "bookings.list", http.MethodGet, "/v2/bookings?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Bookings, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	if c.accessToken == "" {
		return fmt.Errorf("square: missing access token")
	}

	ctx, span := tracer.Start(ctx, "square."+op)
	defer span.End()
	span.SetAttributes(attribute.String("square.path", path))

	var reqBody io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("square: marshal %s request: %w", op, err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("square: create %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(op, "transport_error")
		return fmt.Errorf("square: %s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(op, "read_error")
		return fmt.Errorf("square: read %s response: %w", op, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.observe(op, strconv.Itoa(resp.StatusCode))
		apiErr := &APIError{Status: resp.StatusCode, Detail: truncate(string(respBody), 300)}
		var env struct {
			Errors []struct {
				Category string `json:"category"`
				Code     string `json:"code"`
				Detail   string `json:"detail"`
			} `json:"errors"`
		}
		if json.Unmarshal(respBody, &env) == nil && len(env.Errors) > 0 {
			apiErr.Code = env.Errors[0].Code
			apiErr.Detail = env.Errors[0].Detail
		}
		c.logger.Error("square call failed", "op", op, "status", resp.StatusCode, "detail", apiErr.Detail)
		return apiErr
	}

	c.observe(op, "ok")
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("square: unmarshal %s response: %w", op, err)
	}
	return nil
}

func (c *Client) observe(op, status string) {
	if c.observer != nil {
		c.observer.ObserveRemoteCall(op, status)
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
