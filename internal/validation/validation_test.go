package validation

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalGroupCode(t *testing.T) {
	assert.Equal(t, "ABC123", CanonicalGroupCode("abc123"))
	assert.Equal(t, "ABC123", CanonicalGroupCode("ABC123 "))
	assert.Equal(t, "ABC123", CanonicalGroupCode("  aBc123\t"))
	assert.Equal(t, "", CanonicalGroupCode("   "))
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "anna@example.com", NormalizeEmail("  Anna@Example.COM "))
	assert.True(t, ValidateEmail("anna@example.com"))
	assert.False(t, ValidateEmail(""))
	assert.False(t, ValidateEmail("not-an-email"))
	assert.False(t, ValidateEmail("Anna <anna@example.com>"))
}

func TestValidatePassword(t *testing.T) {
	assert.False(t, ValidatePassword("short"))
	assert.True(t, ValidatePassword("festival2026"))
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(18.7883, 98.9853))
	assert.True(t, ValidCoordinates(-90, 180))
	assert.False(t, ValidCoordinates(90.1, 0))
	assert.False(t, ValidCoordinates(0, -180.5))
	assert.False(t, ValidCoordinates(math.NaN(), 0))
}

func TestValidHistoryPeriod(t *testing.T) {
	for _, h := range []int{1, 3, 6, 12, 24} {
		assert.True(t, ValidHistoryPeriod(h), "hours=%d", h)
	}
	for _, h := range []int{0, 2, 48, -1} {
		assert.False(t, ValidHistoryPeriod(h), "hours=%d", h)
	}
}

func TestTrimAndLimit(t *testing.T) {
	assert.Equal(t, "hello", TrimAndLimit("  hello  ", 10))
	assert.Equal(t, "hel", TrimAndLimit("hello", 3))
	assert.Equal(t, "hello", TrimAndLimit("hello", 0))
}

func TestTrimAndLimit_KeepsRunesWhole(t *testing.T) {
	prefix := strings.Repeat("a", 498)

	got := TrimAndLimit(prefix+"💕", 500)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, prefix, got)

	got = TrimAndLimit(prefix+"💕b", 502)
	assert.Equal(t, prefix+"💕", got)

	got = TrimAndLimit("ünïcode", 2)
	assert.Equal(t, "ü", got)
}

func TestValidGroupCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"ABC123", true},
		{"ZZZZZZ", true},
		{"000000", true},
		{"abc123", false},
		{"ABC12", false},
		{"ABC1234", false},
		{"ABC 12", false},
		{"ABC/DE", false},
		{"AB?C#1", false},
		{"ÄBC123", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidGroupCode(tt.code))
		})
	}
}
