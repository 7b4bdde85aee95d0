package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PlaceholderImageURL is used when a listing carries no photos.
const PlaceholderImageURL = "https://via.placeholder.com/400x300?text=Property+Image"

// DbRow is one result row keyed by column name, as returned by the driver
type DbRow map[string]any

// Media is a single image reference
type Media struct {
	MediaURL string `json:"MediaURL"`
}

// ListingRecord is the canonical listing shape returned to clients.
// Field names match what the listing grid consumes.
type ListingRecord struct {
	ListingKey            string   `json:"ListingKey"`
	ListingID             string   `json:"ListingId"`
	ListPrice             float64  `json:"ListPrice"`
	UnparsedAddress       string   `json:"UnparsedAddress"`
	StreetNumber          string   `json:"StreetNumber"`
	StreetName            string   `json:"StreetName"`
	City                  string   `json:"City"`
	BedroomsTotal         float64  `json:"BedroomsTotal"`
	BathroomsTotalInteger float64  `json:"BathroomsTotalInteger"`
	LivingArea            float64  `json:"LivingArea"`
	Media                 []Media  `json:"Media"`
	Latitude              *float64 `json:"Latitude"`
	Longitude             *float64 `json:"Longitude"`
	PublicRemarks         string   `json:"PublicRemarks"`
	YearBuilt             *int     `json:"YearBuilt"`
	PropertyType          string   `json:"PropertyType"`
}

// Value implements driver.Valuer so a record can be stored as a JSON column
func (l ListingRecord) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *ListingRecord) Scan(value interface{}) error {
	if value == nil {
		*l = ListingRecord{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ListingRecord", value)
	}
	return json.Unmarshal(data, l)
}

// Dialect names the SQL flavour the synthesized query must be written in
type Dialect string

const (
	DialectTSQL     Dialect = "tsql"
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DisplayName is the name used when instructing the model
func (d Dialect) DisplayName() string {
	switch d {
	case DialectPostgres:
		return "PostgreSQL"
	case DialectSQLite:
		return "SQLite"
	default:
		return "SQL Server T-SQL"
	}
}

// IndexEntry is one listing prepared for similarity search
type IndexEntry struct {
	Key       string
	Document  string
	Listing   ListingRecord
	Embedding []float32
}
