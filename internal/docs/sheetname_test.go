package docs

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeSheetName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Sales", "Sales"},
		{"illegal characters", `a:b\c/d?e*f[g]h`, "abcdefgh"},
		{"empty", "", DefaultSheetName},
		{"only illegal", "[]*", DefaultSheetName},
		{"quotes trimmed", "'Quoted'", "Quoted"},
		{"truncated", strings.Repeat("x", 40), strings.Repeat("x", MaxSheetNameLength)},
		{"runes counted", strings.Repeat("é", 30), strings.Repeat("é", MaxSheetNameLength)},
		{"control characters", "a\x00b\tc\x7f", "abc"},
		{"only control characters", "\x00\n", DefaultSheetName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeSheetName(tt.in))
		})
	}
}

func TestSheetNamer_Assign(t *testing.T) {
	n := NewSheetNamer("Index")

	assert.Equal(t, "Index(1)", n.Assign("Index"))
	assert.Equal(t, "index(2)", n.Assign("index"))
	assert.Equal(t, "Sales", n.Assign("Sales"))
	assert.Equal(t, "SALES(1)", n.Assign("SALES"))
	assert.Equal(t, DefaultSheetName, n.Assign(""))
	assert.Equal(t, DefaultSheetName+"(1)", n.Assign(""))
}

func TestSheetNamer_ReservesHistory(t *testing.T) {
	n := NewSheetNamer("Index")

	assert.Equal(t, "History(1)", n.Assign("History"))
	assert.Equal(t, "history(2)", n.Assign("history"))
	assert.True(t, IsReservedSheetName("HISTORY"))
	assert.False(t, IsReservedSheetName("Histories"))
}

func TestSheetNamer_LongCollisionsStayWithinLimit(t *testing.T) {
	n := NewSheetNamer()
	long := strings.Repeat("A", 40)

	first := n.Assign(long)
	second := n.Assign(long)

	assert.Equal(t, strings.Repeat("A", MaxSheetNameLength), first)
	assert.Equal(t, strings.Repeat("A", MaxSheetNameLength-3)+"(1)", second)

	seen := map[string]bool{strings.ToLower(first): true, strings.ToLower(second): true}
	for range 12 {
		name := n.Assign(long)
		assert.LessOrEqual(t, utf8.RuneCountInString(name), MaxSheetNameLength)
		assert.False(t, seen[strings.ToLower(name)], "duplicate sheet name %q", name)
		seen[strings.ToLower(name)] = true
	}
}
