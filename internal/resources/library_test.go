package resources

import (
	"testing"

	"github.com/reveal-labs/reveal/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mode       ai.Mode
		firstTitle string
	}{
		{name: "learner", mode: ai.ModeLearner, firstTitle: "Spot the Signs"},
		{name: "tutor", mode: ai.ModeTutor, firstTitle: "Guidance for Guardians"},
		{name: "unknown falls back to learner", mode: ai.Mode("other"), firstTitle: "Spot the Signs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cards := ForMode(tt.mode)
			require.Len(t, cards, 2)
			assert.Equal(t, tt.firstTitle, cards[0].Title)

			for _, card := range cards {
				assert.NotEmpty(t, card.Description)
				assert.NotEmpty(t, card.Links)

				for _, link := range card.Links {
					assert.Contains(t, link.URL, "https://")
					assert.NotEmpty(t, link.Label)
				}
			}
		})
	}
}

func TestForModeReturnsCopies(t *testing.T) {
	t.Parallel()

	cards := ForMode(ai.ModeLearner)
	cards[0].Title = "mutated"

	assert.Equal(t, "Spot the Signs", ForMode(ai.ModeLearner)[0].Title)
}
