package docs

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Sheet identifier limits. Excel caps sheet names at 31 characters; a few are
// kept free so the names stay readable in tab bars.
const (
	MaxSheetNameLength = 28
	DefaultSheetName   = "Resource"

	// ReservedSheetName is used by Excel for change tracking.
	ReservedSheetName = "History"
)

// illegalSheetChars are the characters a workbook sheet name may not contain.
const illegalSheetChars = `:\/?*[]`

// SheetNamer hands out unique, length-bounded sheet identifiers. Comparison
// is case-insensitive, matching how workbooks resolve sheet names.
type SheetNamer struct {
	used map[string]struct{}
}

// NewSheetNamer creates a namer that never returns ReservedSheetName or any of
// the reserved names.
func NewSheetNamer(reserved ...string) *SheetNamer {
	n := &SheetNamer{used: make(map[string]struct{}, len(reserved)+1)}
	n.used[sheetKey(ReservedSheetName)] = struct{}{}
	for _, r := range reserved {
		n.used[sheetKey(r)] = struct{}{}
	}
	return n
}

// Assign returns a unique identifier derived from name. Illegal characters
// are stripped and the result truncated; on collision a "(n)" suffix is
// appended, shortening the base so the result stays within the limit.
func (n *SheetNamer) Assign(name string) string {
	base := SanitizeSheetName(name)
	candidate := base
	for i := 1; n.taken(candidate); i++ {
		suffix := "(" + strconv.Itoa(i) + ")"
		candidate = truncateRunes(base, MaxSheetNameLength-len(suffix)) + suffix
	}
	n.used[sheetKey(candidate)] = struct{}{}
	return candidate
}

func (n *SheetNamer) taken(name string) bool {
	_, ok := n.used[sheetKey(name)]
	return ok
}

// SanitizeSheetName strips control characters and characters a sheet name may
// not contain, then truncates the result. Empty results fall back to
// DefaultSheetName.
func SanitizeSheetName(name string) string {
	clean := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(illegalSheetChars, r) {
			return -1
		}
		return r
	}, name)
	clean = strings.Trim(clean, "' ")
	clean = strings.TrimRight(truncateRunes(clean, MaxSheetNameLength), "' ")
	if clean == "" {
		return DefaultSheetName
	}
	return clean
}

// IsReservedSheetName reports whether name clashes with ReservedSheetName.
func IsReservedSheetName(name string) bool {
	return sheetKey(name) == sheetKey(ReservedSheetName)
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

func sheetKey(name string) string {
	return strings.ToLower(name)
}
