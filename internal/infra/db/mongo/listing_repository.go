package mongo

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "shortlet/internal/domain/listings"
	"shortlet/internal/domain/shared/money"
)

const listingsCollection = "agg_listing"

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection(listingsCollection)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := findOne(ctx, r.col, bson.M{"_id": string(id)}, &doc, domainlistings.ErrListingNotFound); err != nil {
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlistings.Listing) error {
	doc := newListingDocument(l)
	doc.Version = l.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, l.Version, doc); err != nil {
		return err
	}
	l.Version = doc.Version
	return nil
}

// Search translates catalog filters into a Mongo query. Text fields are
// stored lowercased next to their display values for exact matching.
func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	opts := params.Normalized()
	query := listingQuery(opts)
	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return domainlistings.SearchResult{}, err
	}
	find := options.Find().SetSort(listingSort(opts.Sort)).SetSkip(int64(opts.Offset)).SetLimit(int64(opts.Limit))
	docs, err := findAll[listingDocument](ctx, r.col, query, find)
	if err != nil {
		return domainlistings.SearchResult{}, err
	}
	items := make([]*domainlistings.Listing, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.toAggregate())
	}
	return domainlistings.SearchResult{Items: items, Total: int(total)}, nil
}

func listingQuery(p domainlistings.SearchParams) bson.M {
	query := bson.M{}
	if p.OnlyActive {
		query["state"] = string(domainlistings.ListingActive)
	}
	if p.Realtor != "" {
		query["realtor_id"] = string(p.Realtor)
	}
	if p.City != "" {
		query["search.city"] = p.City
	}
	if p.Country != "" {
		query["search.country"] = p.Country
	}
	if p.LocationQuery != "" {
		query["search.location"] = bson.M{"$regex": regexp.QuoteMeta(p.LocationQuery)}
	}
	if p.MinGuests > 0 {
		query["guests_limit"] = bson.M{"$gte": p.MinGuests}
	}
	price := bson.M{}
	if p.PriceMin > 0 {
		price["$gte"] = p.PriceMin
	}
	if p.PriceMax > 0 {
		price["$lte"] = p.PriceMax
	}
	if len(price) > 0 {
		query["nightly_rate.amount"] = price
	}
	if len(p.PropertyTypes) > 0 {
		query["property_type"] = bson.M{"$in": p.PropertyTypes}
	}
	if len(p.Amenities) > 0 {
		query["amenities"] = bson.M{"$all": p.Amenities}
	}
	if len(p.Unavailable) > 0 {
		ids := make([]string, 0, len(p.Unavailable))
		for _, id := range p.Unavailable {
			ids = append(ids, string(id))
		}
		query["_id"] = bson.M{"$nin": ids}
	}
	return query
}

func listingSort(s domainlistings.CatalogSort) bson.D {
	switch s {
	case domainlistings.SortByPriceDesc:
		return bson.D{{Key: "nightly_rate.amount", Value: -1}, {Key: "_id", Value: 1}}
	case domainlistings.SortByRating:
		return bson.D{{Key: "rating", Value: -1}, {Key: "_id", Value: 1}}
	case domainlistings.SortByNewest:
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "nightly_rate.amount", Value: 1}, {Key: "_id", Value: 1}}
	}
}

type listingDocument struct {
	ID              string                 `bson:"_id"`
	RealtorID       string                 `bson:"realtor_id"`
	Title           string                 `bson:"title"`
	Description     string                 `bson:"description"`
	PropertyType    string                 `bson:"property_type"`
	Address         domainlistings.Address `bson:"address"`
	Search          listingSearchFields    `bson:"search"`
	Amenities       []string               `bson:"amenities"`
	GuestsLimit     int                    `bson:"guests_limit"`
	Bedrooms        int                    `bson:"bedrooms"`
	Bathrooms       int                    `bson:"bathrooms"`
	MinNights       int                    `bson:"min_nights"`
	MaxNights       int                    `bson:"max_nights"`
	NightlyRate     money.Money            `bson:"nightly_rate"`
	CleaningFee     money.Money            `bson:"cleaning_fee"`
	SecurityDeposit money.Money            `bson:"security_deposit"`
	State           string                 `bson:"state"`
	Rating          float64                `bson:"rating"`
	ReviewCount     int                    `bson:"review_count"`
	CreatedAt       int64                  `bson:"created_at"`
	UpdatedAt       int64                  `bson:"updated_at"`
	Version         int64                  `bson:"version"`
}

type listingSearchFields struct {
	City     string `bson:"city"`
	Country  string `bson:"country"`
	Location string `bson:"location"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	return listingDocument{
		ID:           string(l.ID),
		RealtorID:    string(l.Realtor),
		Title:        l.Title,
		Description:  l.Description,
		PropertyType: l.PropertyType,
		Address:      l.Address,
		Search: listingSearchFields{
			City:     lower(l.Address.City),
			Country:  lower(l.Address.Country),
			Location: lower(l.Title + " " + l.Address.Line1 + " " + l.Address.City + " " + l.Address.Region + " " + l.Address.Country),
		},
		Amenities:       append([]string(nil), l.Amenities...),
		GuestsLimit:     l.GuestsLimit,
		Bedrooms:        l.Bedrooms,
		Bathrooms:       l.Bathrooms,
		MinNights:       l.MinNights,
		MaxNights:       l.MaxNights,
		NightlyRate:     l.NightlyRate,
		CleaningFee:     l.CleaningFee,
		SecurityDeposit: l.SecurityDeposit,
		State:           string(l.State),
		Rating:          l.Rating,
		ReviewCount:     l.ReviewCount,
		CreatedAt:       l.CreatedAt.UnixMilli(),
		UpdatedAt:       l.UpdatedAt.UnixMilli(),
		Version:         l.Version,
	}
}

func (d listingDocument) toAggregate() *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:              domainlistings.ListingID(d.ID),
		Realtor:         domainlistings.RealtorID(d.RealtorID),
		Title:           d.Title,
		Description:     d.Description,
		PropertyType:    d.PropertyType,
		Address:         d.Address,
		Amenities:       d.Amenities,
		GuestsLimit:     d.GuestsLimit,
		Bedrooms:        d.Bedrooms,
		Bathrooms:       d.Bathrooms,
		MinNights:       d.MinNights,
		MaxNights:       d.MaxNights,
		NightlyRate:     d.NightlyRate,
		CleaningFee:     d.CleaningFee,
		SecurityDeposit: d.SecurityDeposit,
		State:           domainlistings.ListingState(d.State),
		Rating:          d.Rating,
		ReviewCount:     d.ReviewCount,
		CreatedAt:       timestampToTime(d.CreatedAt),
		UpdatedAt:       timestampToTime(d.UpdatedAt),
		Version:         d.Version,
	}
}

var _ domainlistings.ListingRepository = (*ListingRepository)(nil)
