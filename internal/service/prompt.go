package service

import (
	"fmt"
	"strings"

	"listingsearch/internal/model"
	"listingsearch/internal/utils"
)

// Table describes one table the model may query
type Table struct {
	Name    string
	Columns []string
}

// Schema is the fixed two-table listing schema
var Schema = []Table{
	{
		Name: "Properties",
		Columns: []string{
			"property_id", "unparsed_address", "list_price", "bedrooms", "bathrooms", "square_footage",
			"property_type", "year_built", "description", "latitude", "longitude",
		},
	},
	{
		Name:    "Amenities",
		Columns: []string{"amenity_id", "property_id", "amenity_type", "title", "address", "distance_km"},
	},
}

// DescribeSchema renders tables as the text block embedded in the prompt
func DescribeSchema(tables []Table) string {
	var b strings.Builder
	b.WriteString("Tables:\n")
	for _, t := range tables {
		fmt.Fprintf(&b, "- %s (%s)\n", t.Name, strings.Join(t.Columns, ", "))
	}
	return b.String()
}

// BuildPrompt combines the schema text with the SQL generation rules.
// The result is deterministic for a given schema and dialect.
func BuildPrompt(schemaText string, dialect model.Dialect) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert in converting natural language questions to %s queries and don't make mistakes in SQL queries.\n", dialect.DisplayName())
	b.WriteString("Given the database structure below, generate a SQL query for the user's question.\n")
	b.WriteString("- Always display the Properties using P.* (which includes unparsed_address)\n")
	b.WriteString("- Always ensure unparsed_address is included in the SELECT clause\n")
	b.WriteString("- For properties with a pool, check the 'description' field for the word 'pool'.\n")
	fmt.Fprintf(&b, "- For amenities, only use the following key words values for 'amenity_type': %s.\n", strings.Join(utils.AmenityTypes, ", "))
	b.WriteString("- Use DISTINCT to avoid duplicate rows.\n")
	b.WriteString("- " + caseInsensitiveRule(dialect) + "\n")
	b.WriteString("- Use <= for less than or equal to comparisons and >= for greater than or equal to comparisons.\n")
	b.WriteString("- Use the correct spelling for locations (e.g., 'South Carolina').\n")
	b.WriteString("- Only return the SQL query, nothing else. Do not wrap it in markdown code fences.\n")
	b.WriteString("Database Structure:\n")
	b.WriteString(schemaText)
	return b.String()
}

func caseInsensitiveRule(dialect model.Dialect) string {
	if dialect == model.DialectPostgres {
		return "Use ILIKE for case-insensitive searches."
	}
	return "Use LIKE for case-insensitive searches, not ILIKE."
}

// ComposeInput appends the user's query to the built prompt
func ComposeInput(prompt, userQuery string) string {
	return prompt + "\n\nUser Query: " + userQuery
}
