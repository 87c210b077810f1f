package tags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_TrimDedupeSort(t *testing.T) {
	got := Normalize([]string{" rust ", "Go", "rust", "", "  ", "go"})
	assert.Equal(t, []string{"go", "rust"}, got)
}

func TestNormalize_Casefold(t *testing.T) {
	// Casefolding is stronger than lowercasing: ß folds to ss.
	got := Normalize([]string{"STRASSE", "straße"})
	assert.Equal(t, []string{"strasse"}, got)
}

func TestNormalize_NFKC(t *testing.T) {
	// Fullwidth compatibility characters collapse to ASCII under NFKC.
	got := Normalize([]string{"ｇｏ", "go"})
	assert.Equal(t, []string{"go"}, got)
}

func TestNormalize_Empty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.Empty(t, Normalize([]string{"", "   "}))
}

func TestNormalizeSet(t *testing.T) {
	set := NormalizeSet([]string{"Rust", "rust", "go"})
	assert.Len(t, set, 2)
	_, ok := set["rust"]
	assert.True(t, ok)
}
