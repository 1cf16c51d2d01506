package genre

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucket(t *testing.T) {
	testCases := []struct {
		name     string
		subjects string
		expected string
	}{
		{name: "empty", subjects: "", expected: ""},
		{name: "fantasy wins over later rules", subjects: "Dragons, History", expected: "Fantasy"},
		{name: "case insensitive", subjects: "SCIENCE FICTION, Space opera", expected: "Science Fiction"},
		{name: "first rule in priority order", subjects: "Horror, Mystery", expected: "Mystery"},
		{name: "nonfiction", subjects: "Cookery, Recipes", expected: "Food & Drink"},
		{name: "lgbtq", subjects: "Queer studies", expected: "LGBTQ+"},
		{name: "no match", subjects: "xyz", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Bucket(tc.subjects))
		})
	}
}

func TestRulesOnlyProduceStarterGenres(t *testing.T) {
	for _, rule := range Rules {
		assert.True(t, IsStarter(rule.Genre), rule.Genre)
		assert.NotEmpty(t, rule.Keywords, rule.Genre)
	}
}

func TestStarterOnly(t *testing.T) {
	assert.Equal(t, "Science Fiction", StarterOnly("  science fiction "))
	assert.Equal(t, "LGBTQ+", StarterOnly("lgbtq+"))
	assert.Equal(t, "How-To/Guides", StarterOnly("HOW-TO/GUIDES"))
	assert.Equal(t, "", StarterOnly("Space Westerns"))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Science Fiction", TitleCase("  science FICTION "))
	assert.Equal(t, "Self-Help", TitleCase("self-help"))
	assert.Equal(t, "Art & Photography", TitleCase("art & photography"))
	assert.Equal(t, "Lgbtq+", TitleCase("LGBTQ+"))
	assert.Equal(t, "", TitleCase("   "))
}
