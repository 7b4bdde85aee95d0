package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"listingsearch/internal/model"
	"listingsearch/internal/utils"

	"github.com/spf13/cast"
)

// Normalizer maps raw rows onto ListingRecord. Every conversion is total:
// bad or missing values become zero values, never errors.
type Normalizer struct {
	placeholder string
}

// NewNormalizer creates a normalizer; an empty placeholder uses the default image
func NewNormalizer(placeholder string) *Normalizer {
	if placeholder == "" {
		placeholder = model.PlaceholderImageURL
	}
	return &Normalizer{placeholder: placeholder}
}

// Normalize converts every row; no row is dropped
func (n *Normalizer) Normalize(rows []model.DbRow) []model.ListingRecord {
	listings := make([]model.ListingRecord, 0, len(rows))
	for _, row := range rows {
		listings = append(listings, n.NormalizeRow(row))
	}
	return listings
}

// NormalizeRow converts one row. Column names are matched case-insensitively.
func (n *Normalizer) NormalizeRow(row model.DbRow) model.ListingRecord {
	cols := make(map[string]any, len(row))
	for k, v := range row {
		cols[strings.ToLower(k)] = v
	}

	id := toString(cols["property_id"])
	address := toString(cols["unparsed_address"])
	parts := utils.ParseAddress(address)

	return model.ListingRecord{
		ListingKey:            id,
		ListingID:             id,
		ListPrice:             toNumber(cols["list_price"]),
		UnparsedAddress:       address,
		StreetNumber:          parts.StreetNumber,
		StreetName:            parts.StreetName,
		City:                  parts.City,
		BedroomsTotal:         toNumber(cols["bedrooms"]),
		BathroomsTotalInteger: toNumber(cols["bathrooms"]),
		LivingArea:            toNumber(cols["square_footage"]),
		Media:                 []model.Media{{MediaURL: n.placeholder}},
		Latitude:              toOptionalNumber(cols["latitude"]),
		Longitude:             toOptionalNumber(cols["longitude"]),
		PublicRemarks:         toString(cols["description"]),
		YearBuilt:             toOptionalInt(cols["year_built"]),
		PropertyType:          toString(cols["property_type"]),
	}
}

// IsPlaceholder reports whether listing still carries only the placeholder image
func (n *Normalizer) IsPlaceholder(listing model.ListingRecord) bool {
	return len(listing.Media) == 1 && listing.Media[0].MediaURL == n.placeholder
}

func parseNumber(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if s, ok := v.(string); ok {
		s = strings.NewReplacer(",", "", "$", "").Replace(strings.TrimSpace(s))
		if s == "" {
			return 0, false
		}
		v = s
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toNumber(v any) float64 {
	f, _ := parseNumber(v)
	return f
}

// toOptionalNumber treats zero like absence, matching the source data where
// 0 means "unknown coordinate"
func toOptionalNumber(v any) *float64 {
	f, ok := parseNumber(v)
	if !ok || f == 0 {
		return nil
	}
	return &f
}

func toOptionalInt(v any) *int {
	f, ok := parseNumber(v)
	if !ok || f == 0 {
		return nil
	}
	i := int(f)
	return &i
}

func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}
