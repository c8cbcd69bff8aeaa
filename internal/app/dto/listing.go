package dto

import (
	"time"

	domainlistings "shortlet/internal/domain/listings"
	"shortlet/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.Amount, Currency: value.Currency}
}

type AddressDTO struct {
	Line1   string `json:"line1"`
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
}

// Listing is the full listing view.
type Listing struct {
	ID              string     `json:"id"`
	RealtorID       string     `json:"realtor_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	PropertyType    string     `json:"property_type"`
	Address         AddressDTO `json:"address"`
	Amenities       []string   `json:"amenities"`
	GuestsLimit     int        `json:"guests_limit"`
	Bedrooms        int        `json:"bedrooms"`
	Bathrooms       int        `json:"bathrooms"`
	MinNights       int        `json:"min_nights"`
	MaxNights       int        `json:"max_nights"`
	NightlyRate     MoneyDTO   `json:"nightly_rate"`
	CleaningFee     MoneyDTO   `json:"cleaning_fee"`
	SecurityDeposit MoneyDTO   `json:"security_deposit"`
	State           string     `json:"state"`
	Rating          float64    `json:"rating"`
	ReviewCount     int        `json:"review_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func MapListing(listing *domainlistings.Listing) Listing {
	if listing == nil {
		return Listing{}
	}
	return Listing{
		ID:           string(listing.ID),
		RealtorID:    string(listing.Realtor),
		Title:        listing.Title,
		Description:  listing.Description,
		PropertyType: listing.PropertyType,
		Address: AddressDTO{
			Line1:   listing.Address.Line1,
			City:    listing.Address.City,
			Region:  listing.Address.Region,
			Country: listing.Address.Country,
		},
		Amenities:       append([]string(nil), listing.Amenities...),
		GuestsLimit:     listing.GuestsLimit,
		Bedrooms:        listing.Bedrooms,
		Bathrooms:       listing.Bathrooms,
		MinNights:       listing.MinNights,
		MaxNights:       listing.MaxNights,
		NightlyRate:     MapMoney(listing.NightlyRate),
		CleaningFee:     MapMoney(listing.CleaningFee),
		SecurityDeposit: MapMoney(listing.SecurityDeposit),
		State:           string(listing.State),
		Rating:          listing.Rating,
		ReviewCount:     listing.ReviewCount,
		CreatedAt:       listing.CreatedAt,
		UpdatedAt:       listing.UpdatedAt,
	}
}

// ListingCatalog is a paginated collection of listings.
type ListingCatalog struct {
	Items []Listing        `json:"items"`
	Meta  CatalogMetadata `json:"meta"`
}

// CatalogMetadata describes pagination.
type CatalogMetadata struct {
	Total  int    `json:"total"`
	Count  int    `json:"count"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Sort   string `json:"sort"`
}

// MapCatalog builds a DTO collection based on a search result.
func MapCatalog(result domainlistings.SearchResult, params domainlistings.SearchParams) ListingCatalog {
	normalized := params.Normalized()
	items := make([]Listing, 0, len(result.Items))
	for _, listing := range result.Items {
		items = append(items, MapListing(listing))
	}
	return ListingCatalog{
		Items: items,
		Meta: CatalogMetadata{
			Total:  result.Total,
			Count:  len(items),
			Limit:  normalized.Limit,
			Offset: normalized.Offset,
			Sort:   string(normalized.Sort),
		},
	}
}
