package ddltrack

import (
	"regexp"
	"strings"
)

var (
	reAlterAdd    = regexp.MustCompile(`(?i)^add\s+(?:column\s+)?`)
	reAlterDrop   = regexp.MustCompile(`(?i)^drop\s+(?:column\s+)?`)
	reAlterRename = regexp.MustCompile(`(?i)^rename\s+column\s+`)
	reAlterChange = regexp.MustCompile(`(?i)^change\s+(?:column\s+)?`)
	reAlterModify = regexp.MustCompile(`(?i)^modify\s+(?:column\s+)?`)
	reAlterTblRen = regexp.MustCompile(`(?i)^rename\s+(?:to\s+|as\s+)?`)
)

// applyAlter mutates a clone of prev's column list per the add/drop/
// rename clauses found in the ALTER TABLE body (the text following
// "ALTER TABLE <ident> "), applied in source order, and returns the
// resulting TableCreate with Version bumped. The version is bumped even
// when the statement carried no column-list-affecting clause (e.g. a
// pure ENGINE=... change), since any ALTER is schema-affecting by §4.4.
func applyAlter(prev *TableCreate, body string) *TableCreate {
	next := prev.clone()
	for _, clause := range splitTopLevelItems(body) {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		switch {
		case reAlterAdd.MatchString(clause):
			rest := reAlterAdd.ReplaceAllString(clause, "")
			_, raw := firstToken(rest)
			name := strings.Trim(raw, "`\"")
			if name != "" && !containsName(next.ColumnNames, name) {
				next.ColumnNames = append(next.ColumnNames, name)
			}
		case reAlterDrop.MatchString(clause):
			rest := reAlterDrop.ReplaceAllString(clause, "")
			_, raw := firstToken(rest)
			name := strings.Trim(raw, "`\"")
			next.ColumnNames = removeName(next.ColumnNames, name)
		case reAlterRename.MatchString(clause):
			rest := reAlterRename.ReplaceAllString(clause, "")
			oldName, newName, ok := splitRenamePair(rest)
			if ok {
				renameInPlace(next.ColumnNames, oldName, newName)
			}
		case reAlterChange.MatchString(clause):
			rest := reAlterChange.ReplaceAllString(clause, "")
			_, oldRaw := firstToken(rest)
			oldName := strings.Trim(oldRaw, "`\"")
			tail := strings.TrimSpace(rest[len(oldRaw):])
			_, newRaw := firstToken(tail)
			newName := strings.Trim(newRaw, "`\"")
			if oldName != "" && newName != "" {
				renameInPlace(next.ColumnNames, oldName, newName)
			}
		case reAlterModify.MatchString(clause):
			// type/attribute change only; column list unaffected.
		case reAlterTblRen.MatchString(clause):
			rest := reAlterTblRen.ReplaceAllString(clause, "")
			_, _, _, ok := splitIdentifier(rest)
			if ok {
				_, table, _, _ := splitIdentifier(rest)
				if table != "" {
					next.Table = table
				}
			}
		}
	}
	next.Version = prev.Version + 1
	return next
}

func splitRenamePair(s string) (old, new string, ok bool) {
	lower := strings.ToLower(s)
	i := strings.Index(lower, " to ")
	if i == -1 {
		return "", "", false
	}
	_, oldRaw := firstToken(strings.TrimSpace(s[:i]))
	_, newRaw := firstToken(strings.TrimSpace(s[i+4:]))
	old = strings.Trim(oldRaw, "`\"")
	new = strings.Trim(newRaw, "`\"")
	return old, new, old != "" && new != ""
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

func removeName(names []string, name string) []string {
	out := names[:0:0]
	for _, n := range names {
		if !strings.EqualFold(n, name) {
			out = append(out, n)
		}
	}
	return out
}

func renameInPlace(names []string, old, new string) {
	for i, n := range names {
		if strings.EqualFold(n, old) {
			names[i] = new
			return
		}
	}
}
