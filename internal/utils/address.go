package utils

import "strings"

// AddressParts is a best-effort split of a one-line street address
type AddressParts struct {
	StreetNumber string
	StreetName   string
	City         string
}

// ParseAddress splits "123 Main St, Springfield, SC 29000" into street
// number, street name and city. The street is only split when it has at
// least two words; missing segments stay empty.
func ParseAddress(unparsed string) AddressParts {
	var parts AddressParts
	if strings.TrimSpace(unparsed) == "" {
		return parts
	}

	segments := strings.Split(unparsed, ",")
	street := strings.SplitN(strings.TrimSpace(segments[0]), " ", 2)
	if len(street) == 2 {
		parts.StreetNumber = street[0]
		parts.StreetName = strings.TrimSpace(street[1])
	}
	if len(segments) >= 2 {
		parts.City = strings.TrimSpace(segments[1])
	}
	return parts
}

// NormalizeAddress lowercases and collapses whitespace for address matching
func NormalizeAddress(address string) string {
	return strings.Join(strings.Fields(strings.ToLower(address)), " ")
}
