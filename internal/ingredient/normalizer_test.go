package ingredient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_ObjectLabels(t *testing.T) {
	got, ok := Resolve("hot dog")
	assert.True(t, ok)
	assert.Equal(t, "Pork", got)

	got, ok = Resolve("cow")
	assert.True(t, ok)
	assert.Equal(t, "Beef", got)

	got, ok = Resolve("pizza")
	assert.True(t, ok)
	assert.Equal(t, "Bread", got)

	// Cutlery and furniture carry no ingredient.
	_, ok = Resolve("fork")
	assert.False(t, ok)
	_, ok = Resolve("dining table")
	assert.False(t, ok)
}

func TestResolve_NonCorpusLabelIsDropped(t *testing.T) {
	// "banana" maps to Banana, which is not a corpus column, and no later
	// stage rescues it.
	_, ok := Resolve("banana")
	assert.False(t, ok)
}

func TestResolve_VocabularyExact(t *testing.T) {
	got, ok := Resolve("  ToMaTo ")
	assert.True(t, ok)
	assert.Equal(t, "Tomato", got)
}

func TestResolve_FuzzyStems(t *testing.T) {
	cases := map[string]string{
		"chicken breast": "Chicken",
		"chick":          "Chicken",
		"tomatoes":       "Tomato",
		"salmon fillet":  "Salmon",
		"lobster tail":   "Lobster",
		"fishcake":       "Seafood",
	}
	for token, want := range cases {
		got, ok := Resolve(token)
		assert.True(t, ok, token)
		assert.Equal(t, want, got, token)
	}
}

func TestResolve_Keywords(t *testing.T) {
	got, ok := Resolve("some red meat")
	assert.True(t, ok)
	assert.Equal(t, "Beef", got)

	got, ok = Resolve("leafy thing")
	assert.True(t, ok)
	assert.Equal(t, "Cabbage", got)

	got, ok = Resolve("round object")
	assert.True(t, ok)
	assert.Equal(t, "Tomato", got)

	// Color keywords outrank category keywords listed after them, so a
	// green-qualified token resolves by color.
	got, ok = Resolve("green fish")
	assert.True(t, ok)
	assert.Equal(t, "Cucumber", got)
}

func TestResolve_Substring(t *testing.T) {
	got, ok := Resolve("grilled porkchop")
	assert.True(t, ok)
	assert.Equal(t, "Pork", got)
}

func TestNormalize_DedupKeepsFirstOccurrence(t *testing.T) {
	got := Normalize([]string{"chicken", "tomato", "chick", "Tomatoes", "egg"})
	assert.Equal(t, []string{"Chicken", "Tomato", "Egg"}, got)
}

func TestNormalize_EmptyFallsBackToDefaults(t *testing.T) {
	got := Normalize([]string{"car", "person", "traffic light"})
	assert.Equal(t, DefaultIngredients, got)

	got = Normalize(nil)
	assert.Equal(t, DefaultIngredients, got)
}

func TestNormalize_OutputIsVocabularyOnly(t *testing.T) {
	got := Normalize([]string{"cow", "bird", "sandwich", "wine glass", "shrimp tempura"})
	for _, name := range got {
		assert.True(t, InVocabulary(name), name)
	}
}
