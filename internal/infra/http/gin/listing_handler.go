package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"shortlet/internal/app/dto"
	bookingapp "shortlet/internal/app/handlers/booking"
	listingapp "shortlet/internal/app/handlers/listings"
	reviewapp "shortlet/internal/app/handlers/reviews"
	"shortlet/internal/app/queries"
)

type ListingHTTP interface {
	Search(c *gin.Context)
	Get(c *gin.Context)
	Quote(c *gin.Context)
	Reviews(c *gin.Context)
}

// ListingHandler serves the public catalog.
type ListingHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h ListingHandler) Search(c *gin.Context) {
	query := listingapp.SearchCatalogQuery{
		City:          c.Query("city"),
		Country:       c.Query("country"),
		Location:      c.Query("q"),
		Amenities:     splitCSV(c.Query("amenities")),
		PropertyTypes: splitCSV(c.Query("property_types")),
		MinGuests:     parseInt(c.Query("guests")),
		PriceMin:      parseInt64(c.Query("price_min")),
		PriceMax:      parseInt64(c.Query("price_max")),
		CheckIn:       parseDate(c.Query("check_in")),
		CheckOut:      parseDate(c.Query("check_out")),
		Sort:          c.Query("sort"),
		Limit:         parseIntWithDefault(c.Query("limit"), 24),
		Offset:        parseInt(c.Query("offset")),
	}
	result, err := queries.Ask[listingapp.SearchCatalogQuery, dto.ListingCatalog](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Get(c *gin.Context) {
	result, err := queries.Ask[listingapp.GetListingQuery, *dto.Listing](c.Request.Context(), h.Queries, listingapp.GetListingQuery{ID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Quote(c *gin.Context) {
	query := bookingapp.QuoteQuery{
		ListingID: c.Param("id"),
		CheckIn:   parseDate(c.Query("check_in")),
		CheckOut:  parseDate(c.Query("check_out")),
		Guests:    parseIntWithDefault(c.Query("guests"), 1),
	}
	result, err := queries.Ask[bookingapp.QuoteQuery, *dto.Quote](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Reviews(c *gin.Context) {
	query := reviewapp.ListListingReviewsQuery{
		ListingID: c.Param("id"),
		Limit:     parseInt(c.Query("limit")),
		Offset:    parseInt(c.Query("offset")),
	}
	result, err := queries.Ask[reviewapp.ListListingReviewsQuery, dto.ReviewCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ ListingHTTP = ListingHandler{}
