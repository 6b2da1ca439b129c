package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xaenox/jarvis/internal/models"
)

func TestCategorize_KeywordMatch(t *testing.T) {
	tests := []struct {
		name     string
		previous string
		text     string
		want     string
	}{
		{"technical keyword", models.CategoryGeneral, "I found a bug in the API error handling", models.CategoryTechnical},
		{"planning keyword", models.CategoryGeneral, "Let's plan the Q3 roadmap", models.CategoryPlanning},
		{"analysis keyword", models.CategoryGeneral, "Can you analyze last month's numbers", models.CategoryAnalysis},
		{"creative keyword", models.CategoryGeneral, "I have an idea for the landing page", models.CategoryCreative},
		{"case insensitive", models.CategoryGeneral, "DEPLOY the new build", models.CategoryTechnical},
		{"no match keeps previous", models.CategoryPlanning, "thanks, sounds good", models.CategoryPlanning},
		{"no match keeps general", models.CategoryGeneral, "thanks, sounds good", models.CategoryGeneral},
		{"technical beats planning", models.CategoryGeneral, "plan the database migration", models.CategoryTechnical},
		{"reclassification overwrites", models.CategoryTechnical, "now let's schedule the rollout", models.CategoryPlanning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Categorize(tt.previous, tt.text))
		})
	}
}

func TestExtractTags(t *testing.T) {
	// Stopwords are dropped, short words ignored, capped at three.
	tags := ExtractTags("This budget review from yesterday covers staffing numbers and vendors", 3)
	assert.Equal(t, []string{"budget", "review", "yesterday"}, tags)
}

func TestExtractTags_CapAtThree(t *testing.T) {
	tags := ExtractTags("alpha bravo charlie delta echo foxtrot golf hotel india juliet", 3)
	assert.Len(t, tags, 3)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, tags)
}

func TestExtractTags_ShortWordsIgnored(t *testing.T) {
	tags := ExtractTags("go is fun but abc xyz", 3)
	assert.Empty(t, tags)
}

func TestMemoryTags_NoStoplist(t *testing.T) {
	// Memory tags keep stopwords; the asymmetry with conversation tags is
	// intentional.
	tags := MemoryTags("This budget review from yesterday", 5)
	assert.Equal(t, []string{"this", "budget", "review", "from", "yesterday"}, tags)
}

func TestMemoryTags_CapAtFive(t *testing.T) {
	tags := MemoryTags("alpha bravo charlie delta echo foxtrot golf", 5)
	assert.Len(t, tags, 5)
}

func TestMergeTags(t *testing.T) {
	merged := MergeTags([]string{"budget", "review"}, []string{"review", "staffing"})
	assert.Equal(t, []string{"budget", "review", "staffing"}, merged)
}

func TestMergeTags_Empty(t *testing.T) {
	assert.Equal(t, []string{"alpha"}, MergeTags(nil, []string{"alpha"}))
	assert.Equal(t, []string{"alpha"}, MergeTags([]string{"alpha"}, nil))
}
