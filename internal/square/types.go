package square

import "time"

const (
	productionBaseURL = "https://connect.squareup.com"
	sandboxBaseURL    = "https://connect.squareupsandbox.com"
)

// Money is Square's minor-unit money shape.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CatalogObject is the subset of Square catalog objects the gateway reads.
type CatalogObject struct {
	Type          string             `json:"type"`
	ID            string             `json:"id"`
	ItemData      *CatalogItem       `json:"item_data,omitempty"`
	VariationData *CatalogVariation `json:"item_variation_data,omitempty"`
}

// CatalogItem is an appointable service definition.
type CatalogItem struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ProductType string          `json:"product_type"`
	Variations  []CatalogObject `json:"variations,omitempty"`
}

// CatalogVariation carries the priced, timed variant of a service.
// ServiceDuration is in milliseconds, the unit Square reports.
type CatalogVariation struct {
	Name            string `json:"name"`
	PriceMoney      *Money `json:"price_money,omitempty"`
	ServiceDuration int64  `json:"service_duration,omitempty"`
	Version         int64  `json:"version,omitempty"`
}

// AvailabilityFilter narrows an availability search to one service, one
// optional provider, and a start-at range.
type AvailabilityFilter struct {
	StartAt            time.Time
	EndAt              time.Time
	ServiceVariationID string
	TeamMemberID       string
}

// Availability is one open slot returned by Square.
type Availability struct {
	StartAt  string               `json:"start_at"`
	Segments []AppointmentSegment `json:"appointment_segments,omitempty"`
}

// AppointmentSegment describes the service/provider pairing inside a slot or
// booking.
type AppointmentSegment struct {
	DurationMinutes         int    `json:"duration_minutes"`
	ServiceVariationID      string `json:"service_variation_id"`
	TeamMemberID            string `json:"team_member_id"`
	ServiceVariationVersion int64  `json:"service_variation_version,omitempty"`
}

// Customer is Square's durable per-patient record. The free-text Note carries
// the rendered intake record.
type Customer struct {
	ID           string `json:"id,omitempty"`
	GivenName    string `json:"given_name,omitempty"`
	FamilyName   string `json:"family_name,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	Note         string `json:"note,omitempty"`
}

// PaymentRequest is input for CreatePayment.
type PaymentRequest struct {
	SourceID       string
	IdempotencyKey string
	Amount         Money
	CustomerID     string
	Note           string
}

// Payment is the captured-payment result.
type Payment struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	ReceiptURL string `json:"receipt_url,omitempty"`
}

// BookingRequest is input for CreateBooking.
type BookingRequest struct {
	IdempotencyKey string
	CustomerID     string
	StartAt        time.Time
	Segment        AppointmentSegment
	CustomerNote   string
	SellerNote     string
}

// Booking is Square's appointment record.
type Booking struct {
	ID           string               `json:"id"`
	Status       string               `json:"status,omitempty"`
	CustomerID   string               `json:"customer_id"`
	LocationID   string               `json:"location_id,omitempty"`
	StartAt      string               `json:"start_at"`
	CustomerNote string               `json:"customer_note,omitempty"`
	SellerNote   string               `json:"seller_note,omitempty"`
	Segments     []AppointmentSegment `json:"appointment_segments,omitempty"`
}
