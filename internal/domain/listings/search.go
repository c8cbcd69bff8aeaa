package listings

import (
	"strings"
	"time"
)

// CatalogSort defines a supported ordering.
type CatalogSort string

const (
	SortByPriceAsc  CatalogSort = "price_asc"
	SortByPriceDesc CatalogSort = "price_desc"
	SortByRating    CatalogSort = "rating_desc"
	SortByNewest    CatalogSort = "newest"

	defaultSearchLimit = 24
	maxSearchLimit     = 60
)

// SearchParams describe catalog filters and paging options.
type SearchParams struct {
	Realtor       RealtorID
	City          string
	Country       string
	LocationQuery string
	Amenities     []string
	PropertyTypes []string
	MinGuests     int
	PriceMin      int64
	PriceMax      int64
	CheckIn       time.Time
	CheckOut      time.Time
	// Unavailable lists listings with an active booking overlapping the stay dates.
	Unavailable []ListingID
	Sort        CatalogSort
	Limit       int
	Offset      int
	OnlyActive  bool
}

// Normalized returns a sanitized copy of params.
func (p SearchParams) Normalized() SearchParams {
	normalized := p
	normalized.City = strings.TrimSpace(strings.ToLower(normalized.City))
	normalized.Country = strings.TrimSpace(strings.ToLower(normalized.Country))
	normalized.LocationQuery = strings.TrimSpace(strings.ToLower(normalized.LocationQuery))
	normalized.Amenities = normalizeTokens(normalized.Amenities)
	normalized.PropertyTypes = normalizeTokens(normalized.PropertyTypes)
	normalized.CheckIn = normalizeDate(normalized.CheckIn)
	normalized.CheckOut = normalizeDate(normalized.CheckOut)
	if !normalized.CheckIn.IsZero() && !normalized.CheckOut.IsZero() && !normalized.CheckOut.After(normalized.CheckIn) {
		normalized.CheckOut = time.Time{}
	}
	if normalized.MinGuests < 0 {
		normalized.MinGuests = 0
	}
	if normalized.PriceMin < 0 {
		normalized.PriceMin = 0
	}
	if normalized.PriceMax > 0 && normalized.PriceMax < normalized.PriceMin {
		normalized.PriceMax = 0
	}
	if normalized.Limit <= 0 {
		normalized.Limit = defaultSearchLimit
	}
	if normalized.Limit > maxSearchLimit {
		normalized.Limit = maxSearchLimit
	}
	if normalized.Offset < 0 {
		normalized.Offset = 0
	}
	switch normalized.Sort {
	case SortByPriceAsc, SortByPriceDesc, SortByRating, SortByNewest:
	default:
		normalized.Sort = SortByPriceAsc
	}
	return normalized
}

// HasStay reports whether both stay dates were supplied.
func (p SearchParams) HasStay() bool {
	return !p.CheckIn.IsZero() && !p.CheckOut.IsZero()
}

// Matches applies the in-process part of the filter set; storage adapters
// that cannot express a filter natively fall back to it.
func (p SearchParams) Matches(l *Listing) bool {
	if p.OnlyActive && l.State != ListingActive {
		return false
	}
	if p.Realtor != "" && l.Realtor != p.Realtor {
		return false
	}
	if p.City != "" && strings.ToLower(l.Address.City) != p.City {
		return false
	}
	if p.Country != "" && strings.ToLower(l.Address.Country) != p.Country {
		return false
	}
	if p.LocationQuery != "" {
		haystack := strings.ToLower(strings.Join([]string{l.Title, l.Address.Line1, l.Address.City, l.Address.Region, l.Address.Country}, " "))
		if !strings.Contains(haystack, p.LocationQuery) {
			return false
		}
	}
	if p.MinGuests > 0 && l.GuestsLimit < p.MinGuests {
		return false
	}
	if p.PriceMin > 0 && l.NightlyRate.Amount < p.PriceMin {
		return false
	}
	if p.PriceMax > 0 && l.NightlyRate.Amount > p.PriceMax {
		return false
	}
	if len(p.PropertyTypes) > 0 && !containsToken(p.PropertyTypes, l.PropertyType) {
		return false
	}
	for _, amenity := range p.Amenities {
		if !containsToken(l.Amenities, amenity) {
			return false
		}
	}
	for _, id := range p.Unavailable {
		if id == l.ID {
			return false
		}
	}
	return true
}

func containsToken(tokens []string, value string) bool {
	for _, token := range tokens {
		if token == value {
			return true
		}
	}
	return false
}

func normalizeTokens(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(strings.ToLower(token))
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}

func normalizeDate(value time.Time) time.Time {
	if value.IsZero() {
		return value
	}
	y, m, d := value.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SearchResult wraps search hits with meta.
type SearchResult struct {
	Items []*Listing
	Total int
}
