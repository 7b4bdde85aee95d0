package utils

import (
	"regexp"
	"strings"
)

// AmenityTypes is the fixed amenity_type vocabulary of the Amenities table
var AmenityTypes = []string{
	"Transit", "Malls", "Pharmacies", "Hospitals", "Schools", "Restaurants", "Groceries", "ATMs", "Parks",
}

// Common aliases for amenity types
var amenityAliases = map[string][]string{
	"Transit":     {"transit", "bus", "bus stop", "bus station", "train", "train station", "subway", "metro", "mrt", "station", "public transport", "public transportation"},
	"Malls":       {"mall", "shopping mall", "shopping center", "shopping centre", "shopping"},
	"Pharmacies":  {"pharmacy", "drugstore", "drug store", "chemist"},
	"Hospitals":   {"hospital", "clinic", "medical center", "medical centre", "emergency room"},
	"Schools":     {"school", "elementary school", "middle school", "high school", "university", "college"},
	"Restaurants": {"restaurant", "dining", "diner", "cafe", "eatery"},
	"Groceries":   {"grocery", "grocery store", "supermarket", "market"},
	"ATMs":        {"atm", "cash machine", "bank"},
	"Parks":       {"park", "playground", "green space"},
}

// CanonicalAmenityType maps a user or model supplied amenity word to the
// vocabulary. The second result is false when nothing matches.
func CanonicalAmenityType(value string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return "", false
	}

	// Exact match
	for _, t := range AmenityTypes {
		if v == strings.ToLower(t) {
			return t, true
		}
	}

	// Check aliases
	for canonical, aliases := range amenityAliases {
		for _, alias := range aliases {
			if v == alias {
				return canonical, true
			}
		}
	}

	return "", false
}

var (
	amenityComparison = regexp.MustCompile(`(?i)(amenity_type\s*(?:=|<>|!=|(?:NOT\s+)?LIKE)\s*N?)'([^']*)'`)
	amenityInList     = regexp.MustCompile(`(?i)(amenity_type\s+(?:NOT\s+)?IN\s*\()([^)]*)(\))`)
	quotedLiteral     = regexp.MustCompile(`'([^']*)'`)
)

// CanonicalizeAmenityLiterals rewrites string literals compared against
// amenity_type to their vocabulary spelling. Literals that cannot be mapped
// are left untouched and returned in unknown.
func CanonicalizeAmenityLiterals(sql string) (rewritten string, unknown []string) {
	fix := func(literal string) string {
		replacement, ok := canonicalLiteral(literal)
		if !ok {
			unknown = append(unknown, literal)
			return literal
		}
		return replacement
	}

	rewritten = amenityComparison.ReplaceAllStringFunc(sql, func(m string) string {
		parts := amenityComparison.FindStringSubmatch(m)
		return parts[1] + "'" + fix(parts[2]) + "'"
	})

	rewritten = amenityInList.ReplaceAllStringFunc(rewritten, func(m string) string {
		parts := amenityInList.FindStringSubmatch(m)
		list := quotedLiteral.ReplaceAllStringFunc(parts[2], func(q string) string {
			return "'" + fix(q[1:len(q)-1]) + "'"
		})
		return parts[1] + list + parts[3]
	})

	return rewritten, unknown
}

// canonicalLiteral handles plain values and LIKE patterns with % or _ wildcards
func canonicalLiteral(literal string) (string, bool) {
	core := strings.Trim(literal, "%_")
	if core == literal {
		return CanonicalAmenityType(literal)
	}

	lower := strings.ToLower(core)
	for _, t := range AmenityTypes {
		if strings.Contains(strings.ToLower(t), lower) {
			return literal, true
		}
	}
	if canonical, ok := CanonicalAmenityType(core); ok {
		return strings.Replace(literal, core, canonical, 1), true
	}
	return "", false
}
