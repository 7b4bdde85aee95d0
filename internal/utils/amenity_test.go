package utils

import (
	"reflect"
	"testing"
)

func TestCanonicalAmenityType(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{"Schools", "Schools", true},
		{"schools", "Schools", true},
		{" atms ", "ATMs", true},
		{"school", "Schools", true},
		{"bus station", "Transit", true},
		{"supermarket", "Groceries", true},
		{"stadium", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := CanonicalAmenityType(tt.input)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("CanonicalAmenityType(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCanonicalizeAmenityLiterals(t *testing.T) {
	tests := []struct {
		name        string
		sql         string
		want        string
		wantUnknown []string
	}{
		{
			name: "Equality alias",
			sql:  "SELECT DISTINCT P.* FROM Properties P JOIN Amenities A ON A.property_id = P.property_id WHERE A.amenity_type = 'school'",
			want: "SELECT DISTINCT P.* FROM Properties P JOIN Amenities A ON A.property_id = P.property_id WHERE A.amenity_type = 'Schools'",
		},
		{
			name: "Already canonical",
			sql:  "WHERE A.amenity_type = 'Parks' AND A.distance_km <= 1",
			want: "WHERE A.amenity_type = 'Parks' AND A.distance_km <= 1",
		},
		{
			name: "IN list",
			sql:  "WHERE A.amenity_type IN ('hospital', 'Pharmacies', 'atm')",
			want: "WHERE A.amenity_type IN ('Hospitals', 'Pharmacies', 'ATMs')",
		},
		{
			name: "LIKE pattern inside vocabulary",
			sql:  "WHERE A.amenity_type LIKE '%School%'",
			want: "WHERE A.amenity_type LIKE '%School%'",
		},
		{
			name: "LIKE pattern alias",
			sql:  "WHERE A.amenity_type LIKE '%supermarket%'",
			want: "WHERE A.amenity_type LIKE '%Groceries%'",
		},
		{
			name:        "Unknown value",
			sql:         "WHERE A.amenity_type = 'Stadiums'",
			want:        "WHERE A.amenity_type = 'Stadiums'",
			wantUnknown: []string{"Stadiums"},
		},
		{
			name: "Other columns untouched",
			sql:  "WHERE P.description LIKE '%pool%'",
			want: "WHERE P.description LIKE '%pool%'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, unknown := CanonicalizeAmenityLiterals(tt.sql)
			if got != tt.want {
				t.Errorf("CanonicalizeAmenityLiterals() = %q, want %q", got, tt.want)
			}
			if !reflect.DeepEqual(unknown, tt.wantUnknown) {
				t.Errorf("unknown = %v, want %v", unknown, tt.wantUnknown)
			}
		})
	}
}
