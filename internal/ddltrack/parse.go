package ddltrack

import (
	"regexp"
	"strings"
)

var (
	reCreateTable = regexp.MustCompile(`(?is)^\s*create\s+(?:or\s+replace\s+)?(?:temporary\s+)?table\s+(?:if\s+not\s+exists\s+)?`)
	reAlterTable  = regexp.MustCompile(`(?is)^\s*alter\s+(?:online\s+)?(?:ignore\s+)?table\s+`)
	reIdentifier  = regexp.MustCompile("^[`\"]?([A-Za-z0-9_$]+)[`\"]?\\.?[`\"]?([A-Za-z0-9_$]*)[`\"]?")

	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment  = regexp.MustCompile(`--[^\n]*`)
	reWhitespace   = regexp.MustCompile(`\s+`)

	skipClausePrefixes = []string{
		"primary", "key", "index", "constraint", "foreign", "unique", "fulltext", "spatial",
	}
)

// normalizeSQL collapses whitespace to single spaces and strips
// /* ... */ and -- ... comments, per §4.4.
func normalizeSQL(sql string) string {
	sql = reBlockComment.ReplaceAllString(sql, " ")
	sql = reLineComment.ReplaceAllString(sql, " ")
	sql = reWhitespace.ReplaceAllString(sql, " ")
	return strings.TrimSpace(sql)
}

// splitIdentifier parses a possibly schema-qualified, possibly
// backtick/double-quoted identifier at the start of s, returning
// (database, table, rest-of-string-after-identifier). database is ""
// when the identifier wasn't schema-qualified; the caller substitutes
// the QUERY_EVENT's own schema name in that case.
func splitIdentifier(s string) (db, table, rest string, ok bool) {
	m := reIdentifier.FindStringSubmatchIndex(s)
	if m == nil || m[2] < 0 {
		return "", "", s, false
	}
	first := s[m[2]:m[3]]
	second := ""
	if m[4] >= 0 && m[4] < m[5] {
		second = s[m[4]:m[5]]
	}
	if second != "" {
		db, table = first, second
	} else {
		table = first
	}
	return db, table, strings.TrimSpace(s[m[1]:]), true
}

// matchOuterParens returns the byte range [open+1, close) of the
// outermost parenthesised group starting at or after offset in s,
// tracking nesting depth so ENUM('a','b,c') / DECIMAL(10,2) and
// similar nested groups don't terminate the match early (§9 redesign:
// the source's comma-splitting parser does not do this).
func matchOuterParens(s string) (inner string, after int, ok bool) {
	start := strings.IndexByte(s, '(')
	if start == -1 {
		return "", 0, false
	}
	depth := 0
	inQuote := byte(0)
	for i := start; i < len(s); i++ {
		c := s[i]
		if inQuote != 0 {
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			inQuote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[start+1 : i], i + 1, true
			}
		}
	}
	return "", 0, false
}

// splitTopLevelItems splits a column-list body on top-level commas,
// i.e. commas not nested inside parentheses or quotes.
func splitTopLevelItems(body string) []string {
	var items []string
	depth := 0
	inQuote := byte(0)
	last := 0
	for i := 0; i < len(body); i++ {
		c := body[i]
		if inQuote != 0 {
			if c == inQuote {
				inQuote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			inQuote = c
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				items = append(items, strings.TrimSpace(body[last:i]))
				last = i + 1
			}
		}
	}
	items = append(items, strings.TrimSpace(body[last:]))
	return items
}

// firstToken returns the first whitespace- or paren-delimited token of
// s, lower-cased, and its stripped identifier form (original case,
// backtick/quotes removed) when that token is a plain column-name
// identifier rather than a keyword.
func firstToken(s string) (lower string, raw string) {
	i := 0
	for i < len(s) && s[i] != ' ' && s[i] != '(' {
		i++
	}
	raw = s[:i]
	return strings.ToLower(strings.Trim(raw, "`\"")), raw
}

// isSkipClause reports whether item begins with one of the
// index/constraint keywords §4.4 says must not become a column name.
func isSkipClause(item string) bool {
	lower, _ := firstToken(item)
	for _, kw := range skipClausePrefixes {
		if lower == kw {
			return true
		}
	}
	return false
}

// parseColumnList extracts column names from the outermost
// parenthesised body of a CREATE TABLE statement.
func parseColumnList(afterIdentifier string) ([]string, bool) {
	body, _, ok := matchOuterParens(afterIdentifier)
	if !ok {
		return nil, false
	}
	var names []string
	for _, item := range splitTopLevelItems(body) {
		if item == "" || isSkipClause(item) {
			continue
		}
		_, raw := firstToken(item)
		name := strings.Trim(raw, "`\"")
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names, true
}
