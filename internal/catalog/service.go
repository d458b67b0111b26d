// Package catalog lists the bookable telehealth services from the Square
// catalog. The catalog is queried on every request; Square owns the data and
// nothing is cached here.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lakeshore-health/telehealth-gateway/internal/square"
)

// ErrUnknownService marks a variation id that resolved to no offering, as
// opposed to a failed catalog fetch. Handlers map it to a 400.
var ErrUnknownService = errors.New("catalog: unknown service")

// CatalogAPI is the slice of the Square client this package needs.
type CatalogAPI interface {
	SearchCatalog(ctx context.Context) ([]square.CatalogObject, error)
}

// ServiceOffering is one bookable appointment type in display units.
type ServiceOffering struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	PriceCents  int64  `json:"priceCents"`
	Duration    int    `json:"duration"`
	VariationID string `json:"variationId"`
	Version     int64  `json:"-"`
}

// Service filters catalog items down to appointable services matching the
// configured keyword.
type Service struct {
	api     CatalogAPI
	keyword string
}

func NewService(api CatalogAPI, keyword string) *Service {
	return &Service{api: api, keyword: strings.ToLower(strings.TrimSpace(keyword))}
}

// ListServices returns the appointable services whose name or description
// contains the keyword (case-insensitive). An empty keyword matches all
// appointable items.
func (s *Service) ListServices(ctx context.Context) ([]ServiceOffering, error) {
	objects, err := s.api.SearchCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}

	offerings := make([]ServiceOffering, 0, len(objects))
	for _, obj := range objects {
		if obj.Type != "ITEM" || obj.ItemData == nil {
			continue
		}
		item := obj.ItemData
		if item.ProductType != "APPOINTMENTS_SERVICE" {
			continue
		}
		if !s.matches(item.Name, item.Description) {
			continue
		}
		for _, v := range item.Variations {
			if v.VariationData == nil {
				continue
			}
			var priceCents int64
			if v.VariationData.PriceMoney != nil {
				priceCents = v.VariationData.PriceMoney.Amount
			}
			offerings = append(offerings, ServiceOffering{
				ID:          obj.ID,
				Name:        item.Name,
				Description: item.Description,
				Price:       FormatPrice(priceCents),
				PriceCents:  priceCents,
				Duration:    int(v.VariationData.ServiceDuration / 60000),
				VariationID: v.ID,
				Version:     v.VariationData.Version,
			})
		}
	}
	return offerings, nil
}

// FindByVariationID resolves one offering, used by the booking workflow to
// price and time the appointment segment.
func (s *Service) FindByVariationID(ctx context.Context, variationID string) (*ServiceOffering, error) {
	offerings, err := s.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	for i := range offerings {
		if offerings[i].VariationID == variationID || offerings[i].ID == variationID {
			return &offerings[i], nil
		}
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownService, variationID)
}

func (s *Service) matches(name, description string) bool {
	if s.keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), s.keyword) ||
		strings.Contains(strings.ToLower(description), s.keyword)
}

// FormatPrice renders minor currency units as a two-decimal display string.
func FormatPrice(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
