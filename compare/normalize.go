package compare

import (
	"regexp"
	"strings"

	pgquery "github.com/pganalyze/pg_query_go/v2"
)

// Normalizer reduces view and routine source to a form in which superficial
// differences (quoting style, CREATE boilerplate, whitespace) disappear.
// Two bodies are the same when their normalized forms are equal.
type Normalizer interface {
	Normalize(sql string) string
}

// routineHeader stops at the name: parameters and RETURNS stay.
var routineHeader = regexp.MustCompile(`(?is)^\s*(create|alter)\s+(or\s+(replace|alter)\s+)?(definer\s*=\s*\S+\s+)?(procedure|proc|function|package\s+body|package)\s+` +
	identifier + `(\s*\.\s*` + identifier + `)*\s*((as|is)\s+)?`)

const identifier = `(\[[^\]]*\]|"[^"]*"|` + "`[^`]*`" + `|[^\s(.;]+)`

var (
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	createHeader = regexp.MustCompile(`(?is)^\s*(create|alter)\s+(or\s+(replace|alter)\s+)?(definer\s*=\s*\S+\s+)?(view|trigger)\s+.*?\s(as|is)\s`)
	bracketed    = regexp.MustCompile(`\[([^\]]+)\]`)
	doubleQuoted = regexp.MustCompile(`"([^"]+)"`)
	backticked   = regexp.MustCompile("`([^`]+)`")
	whitespace   = regexp.MustCompile(`\s+`)
	punctuation  = regexp.MustCompile(`\s*([(),;=<>!])\s*`)
)

// TextNormalizer normalizes by text rewriting only: it strips comments, the
// CREATE ... AS header of views and triggers and the CREATE <kind> <name>
// prefix of routines and packages, unquotes identifiers, collapses
// whitespace and, unless CaseSensitive is set, folds case outside string
// literals.
type TextNormalizer struct {
	CaseSensitive bool
}

func (n TextNormalizer) Normalize(sql string) string {
	sql = blockComment.ReplaceAllString(sql, " ")
	sql = lineComment.ReplaceAllString(sql, " ")
	sql = createHeader.ReplaceAllString(sql, "")
	sql = routineHeader.ReplaceAllString(sql, "")
	sql = bracketed.ReplaceAllString(sql, "$1")
	sql = doubleQuoted.ReplaceAllString(sql, "$1")
	sql = backticked.ReplaceAllString(sql, "$1")
	sql = whitespace.ReplaceAllString(sql, " ")
	sql = punctuation.ReplaceAllString(sql, "$1")
	sql = strings.TrimRight(strings.TrimSpace(sql), ";/ ")
	if n.CaseSensitive {
		return sql
	}
	return foldOutsideLiterals(sql)
}

// foldOutsideLiterals lowercases everything but single-quoted literals. An
// escaped quote ('') splits into an empty segment, which keeps the parity.
func foldOutsideLiterals(sql string) string {
	parts := strings.Split(sql, "'")
	for i := 0; i < len(parts); i += 2 {
		parts[i] = strings.ToLower(parts[i])
	}
	return strings.Join(parts, "'")
}

// PostgresNormalizer parses the source with the PostgreSQL parser and
// deparses it, so that any two spellings of the same statement compare
// equal. A CREATE VIEW is reduced to its query. Source the parser rejects
// goes through Fallback, a TextNormalizer when unset.
type PostgresNormalizer struct {
	Fallback Normalizer
}

func (n PostgresNormalizer) Normalize(sql string) string {
	if normalized, err := deparse(sql); err == nil {
		return normalized
	}
	if n.Fallback != nil {
		return n.Fallback.Normalize(sql)
	}
	return TextNormalizer{}.Normalize(sql)
}

func deparse(sql string) (string, error) {
	tree, err := pgquery.Parse(sql)
	if err != nil {
		return "", err
	}
	for _, raw := range tree.Stmts {
		if view := raw.Stmt.GetViewStmt(); view != nil {
			raw.Stmt = view.Query
		}
	}
	return pgquery.Deparse(tree)
}

func normalizedEqual(n Normalizer, a, b string) bool {
	return n.Normalize(a) == n.Normalize(b)
}
