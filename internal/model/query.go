package model

// SearchRequest represents a natural-language search request
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchResponse represents the search endpoint's answer.
// On success Message is set, on validation failure Error is set.
type SearchResponse struct {
	Success bool            `json:"success"`
	Query   string          `json:"query"`
	Results []ListingRecord `json:"results"`
	Count   int             `json:"count"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	SQL     string          `json:"sql,omitempty"`
}

// ErrorResponse is returned when the pipeline fails after validation
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// SimilarRequest asks for listings semantically close to a free-text description
type SimilarRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SimilarResponse lists the nearest listings
type SimilarResponse struct {
	Success bool            `json:"success"`
	Query   string          `json:"query"`
	Results []ScoredListing `json:"results"`
	Count   int             `json:"count"`
}

// ScoredListing is a listing with its similarity score
type ScoredListing struct {
	Listing ListingRecord `json:"listing"`
	Score   float64       `json:"score"`
}

// ReindexResponse reports the outcome of a similarity index rebuild
type ReindexResponse struct {
	Success bool   `json:"success"`
	Indexed int    `json:"indexed"`
	Message string `json:"message"`
}
