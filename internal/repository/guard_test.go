package repository

import (
	"errors"
	"testing"

	"listingsearch/internal/apperror"
)

func TestStatementGuard(t *testing.T) {
	guard := NewStatementGuard("Properties", "Amenities")

	tests := []struct {
		name    string
		sql     string
		wantErr error
	}{
		{
			name: "Simple select",
			sql:  "SELECT DISTINCT P.* FROM Properties P WHERE P.list_price <= 300000",
		},
		{
			name: "Join with trailing semicolon",
			sql:  "SELECT DISTINCT P.* FROM Properties P JOIN Amenities A ON A.property_id = P.property_id WHERE A.amenity_type = 'Schools';",
		},
		{
			name: "Bracketed schema qualified",
			sql:  "SELECT DISTINCT P.* FROM [dbo].[Properties] P",
		},
		{
			name: "Subquery",
			sql:  "SELECT DISTINCT P.* FROM Properties P WHERE P.property_id IN (SELECT property_id FROM Amenities WHERE distance_km <= 1)",
		},
		{
			name: "CTE",
			sql:  "WITH near AS (SELECT property_id FROM Amenities WHERE distance_km <= 2) SELECT DISTINCT P.* FROM Properties P JOIN near N ON N.property_id = P.property_id",
		},
		{
			name: "Keyword inside string literal",
			sql:  "SELECT DISTINCT P.* FROM Properties P WHERE P.description LIKE '%drop-off; update kitchen%'",
		},
		{
			name: "Comma joined schema tables",
			sql:  "SELECT DISTINCT P.* FROM Properties P, Amenities A WHERE A.property_id = P.property_id",
		},
		{
			name: "Extract from column",
			sql:  "SELECT DISTINCT P.* FROM Properties P WHERE EXTRACT(YEAR FROM P.listed_at) > 2020",
		},
		{
			name: "Derived table",
			sql:  "SELECT X.* FROM (SELECT * FROM Properties WHERE bedrooms >= 3) X, Amenities A WHERE A.property_id = X.property_id",
		},
		{
			name:    "Comma joined unknown table",
			sql:     "SELECT DISTINCT P.* FROM Properties P, Secrets S WHERE S.id = P.property_id",
			wantErr: ErrUnknownTable,
		},
		{
			name:    "Comma joined system table",
			sql:     "SELECT DISTINCT P.* FROM Properties P, sys.sql_logins L",
			wantErr: ErrUnknownTable,
		},
		{
			name:    "Unknown table after derived table",
			sql:     "SELECT X.* FROM (SELECT * FROM Properties) X, Secrets S ORDER BY X.list_price",
			wantErr: ErrUnknownTable,
		},
		{
			name:    "Unknown table in subquery from list",
			sql:     "SELECT * FROM Properties WHERE property_id IN (SELECT P.property_id FROM Amenities A, Secrets S)",
			wantErr: ErrUnknownTable,
		},
		{
			name:    "Delete",
			sql:     "DELETE FROM Properties",
			wantErr: ErrNotSelect,
		},
		{
			name:    "Stacked statement",
			sql:     "SELECT * FROM Properties; DROP TABLE Properties",
			wantErr: ErrMultipleStatement,
		},
		{
			name:    "Select into",
			sql:     "SELECT * INTO Backup FROM Properties",
			wantErr: ErrForbiddenKeyword,
		},
		{
			name:    "Unknown table",
			sql:     "SELECT * FROM Users",
			wantErr: ErrUnknownTable,
		},
		{
			name:    "System table",
			sql:     "SELECT name FROM sys.tables",
			wantErr: ErrUnknownTable,
		},
		{
			name:    "Empty",
			sql:     "  ",
			wantErr: ErrNotSelect,
		},
		{
			name:    "Comment only prefix",
			sql:     "-- SELECT\nUPDATE Properties SET list_price = 0",
			wantErr: ErrNotSelect,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.Check(tt.sql)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Check() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Check() error = %v, want %v", err, tt.wantErr)
			}
			if apperror.KindOf(err) != apperror.KindExecution {
				t.Errorf("Check() kind = %s, want execution", apperror.KindOf(err))
			}
		})
	}
}
