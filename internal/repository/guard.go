package repository

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"listingsearch/internal/apperror"
)

var (
	ErrNotSelect         = errors.New("only SELECT statements are allowed")
	ErrMultipleStatement = errors.New("only a single statement is allowed")
	ErrForbiddenKeyword  = errors.New("statement contains a forbidden keyword")
	ErrUnknownTable      = errors.New("statement references a table outside the schema")
)

var (
	lineComment     = regexp.MustCompile(`--[^\n]*`)
	blockComment    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	stringLit       = regexp.MustCompile(`N?'(?:[^']|'')*'`)
	wordPattern     = regexp.MustCompile(`[A-Za-z_]+`)
	joinTarget      = regexp.MustCompile(`(?i)\bJOIN\s+([\[\]"` + "`" + `\w.]+)`)
	fromKeyword     = regexp.MustCompile(`(?i)\bFROM\b`)
	leadingName     = regexp.MustCompile(`^[\[\]"` + "`" + `\w.]+`)
	clauseEnd       = regexp.MustCompile(`(?i)\b(?:WHERE|GROUP|ORDER|HAVING|UNION|EXCEPT|INTERSECT|LIMIT|OFFSET|FETCH|WINDOW|OPTION|FOR)\b`)
	funcBeforeParen = regexp.MustCompile(`(?i)\b(?:EXTRACT|SUBSTRING|TRIM|POSITION|OVERLAY)\s*$`)
	cteName         = regexp.MustCompile(`(?i)(?:\bWITH|,)\s*(\w+)\s+AS\s*\(`)
)

var forbiddenKeywords = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "MERGE": true, "DROP": true, "ALTER": true,
	"CREATE": true, "TRUNCATE": true, "EXEC": true, "EXECUTE": true, "GRANT": true, "REVOKE": true,
	"INTO": true, "ATTACH": true, "DETACH": true, "PRAGMA": true, "COPY": true, "CALL": true,
	"SHUTDOWN": true, "BACKUP": true, "RESTORE": true, "DBCC": true, "OPENROWSET": true,
}

// StatementGuard rejects anything but a single read-only SELECT over the
// known tables. It works on text and cannot see through dynamic SQL.
type StatementGuard struct {
	tables map[string]bool
}

// NewStatementGuard allows the given table names (case-insensitive)
func NewStatementGuard(tables ...string) *StatementGuard {
	g := &StatementGuard{tables: make(map[string]bool, len(tables))}
	for _, t := range tables {
		g.tables[strings.ToLower(t)] = true
	}
	return g
}

// Check returns an execution error when query is not allowed
func (g *StatementGuard) Check(query string) error {
	if err := g.check(query); err != nil {
		return apperror.Execution("Generated SQL rejected", err)
	}
	return nil
}

func (g *StatementGuard) check(query string) error {
	stripped := blockComment.ReplaceAllString(query, " ")
	stripped = lineComment.ReplaceAllString(stripped, " ")
	stripped = stringLit.ReplaceAllString(stripped, "''")
	stripped = strings.TrimSpace(stripped)
	stripped = strings.TrimSpace(strings.TrimRight(stripped, "; \t\r\n"))

	if stripped == "" {
		return ErrNotSelect
	}
	if strings.Contains(stripped, ";") {
		return ErrMultipleStatement
	}

	first := strings.ToUpper(wordPattern.FindString(stripped))
	if first != "SELECT" && first != "WITH" {
		return ErrNotSelect
	}

	for _, w := range wordPattern.FindAllString(stripped, -1) {
		if forbiddenKeywords[strings.ToUpper(w)] {
			return fmt.Errorf("%w: %s", ErrForbiddenKeyword, strings.ToUpper(w))
		}
	}

	ctes := map[string]bool{}
	if first == "WITH" {
		for _, m := range cteName.FindAllStringSubmatch(stripped, -1) {
			ctes[strings.ToLower(m[1])] = true
		}
	}

	for _, ref := range tableRefs(stripped) {
		name := tableName(ref)
		if name == "" || g.tables[name] || ctes[name] {
			continue
		}
		return fmt.Errorf("%w: %s", ErrUnknownTable, ref)
	}
	return nil
}

// tableRefs lists every JOIN target and every item of every FROM list.
// Items that open with a parenthesis are derived tables; their own FROM
// clauses are visited separately.
func tableRefs(query string) []string {
	var refs []string
	for _, m := range joinTarget.FindAllStringSubmatch(query, -1) {
		refs = append(refs, m[1])
	}

	for _, loc := range fromKeyword.FindAllStringIndex(query, -1) {
		if insideFunctionCall(query[:loc[0]]) {
			// EXTRACT(YEAR FROM col) and friends
			continue
		}
		for _, item := range splitTopLevel(fromList(query[loc[1]:]), ',') {
			item = strings.TrimSpace(item)
			if item == "" || strings.HasPrefix(item, "(") {
				continue
			}
			if ref := leadingName.FindString(item); ref != "" {
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

// fromList cuts s at the end of the FROM clause: an unmatched closing
// parenthesis or a clause keyword at the top nesting level.
func fromList(s string) string {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				return cutAtClause(s[:i])
			}
			depth--
		}
	}
	return cutAtClause(s)
}

// cutAtClause truncates s at the first clause keyword outside parentheses
func cutAtClause(s string) string {
	for _, loc := range clauseEnd.FindAllStringIndex(s, -1) {
		if parenDepth(s[:loc[0]]) == 0 {
			return s[:loc[0]]
		}
	}
	return s
}

func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	return append(parts, s[last:])
}

func parenDepth(s string) int {
	return strings.Count(s, "(") - strings.Count(s, ")")
}

// insideFunctionCall reports whether the innermost open parenthesis of
// prefix belongs to a function whose arguments use FROM
func insideFunctionCall(prefix string) bool {
	depth := 0
	for i := len(prefix) - 1; i >= 0; i-- {
		switch prefix[i] {
		case ')':
			depth++
		case '(':
			if depth == 0 {
				return funcBeforeParen.MatchString(prefix[:i])
			}
			depth--
		}
	}
	return false
}

// tableName strips quoting and schema qualification: [dbo].[Properties] -> properties
func tableName(ref string) string {
	ref = strings.NewReplacer("[", "", "]", "", `"`, "", "`", "").Replace(ref)
	if i := strings.LastIndex(ref, "."); i >= 0 {
		ref = ref[i+1:]
	}
	return strings.ToLower(ref)
}
