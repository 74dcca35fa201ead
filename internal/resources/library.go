// Package resources holds the curated safety resource cards shown alongside
// training sessions.
package resources

import "github.com/reveal-labs/reveal/internal/ai"

// Link points at an external safety organization.
type Link struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// Card is one resource entry with its outbound links.
type Card struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Links       []Link `json:"links"`
}

var learnerCards = []Card{
	{
		Title:       "Spot the Signs",
		Description: "Learn how to recognize uncomfortable requests and how to respond safely.",
		Links: []Link{
			{
				URL:   "https://www.stopitnow.org/ohc-content/what-is-grooming",
				Label: "Stop It Now: What is Grooming?",
			},
		},
	},
	{
		Title:       "Talk to Trusted Adults",
		Description: "Find adults you can talk to whenever you feel unsure about an online conversation.",
		Links: []Link{
			{
				URL:   "https://kidshelpphone.ca",
				Label: "Kids Help Phone",
			},
			{
				URL:   "https://www.childhelplineinternational.org/helplines",
				Label: "Child Helpline International",
			},
		},
	},
}

var tutorCards = []Card{
	{
		Title:       "Guidance for Guardians",
		Description: "Tips for discussing online safety with young people.",
		Links: []Link{
			{
				URL:   "https://www.missingkids.org/netsmartz/parents",
				Label: "NetSmartz for Parents & Guardians",
			},
		},
	},
	{
		Title:       "Professional Support",
		Description: "Access support lines and best practices from verified organizations.",
		Links: []Link{
			{
				URL:   "https://www.icmec.org/child-protection-resources",
				Label: "International Centre for Missing & Exploited Children",
			},
			{
				URL:   "https://www.end-violence.org",
				Label: "End Violence Against Children",
			},
		},
	},
}

// ForMode returns the resource cards for a mode. Unknown modes get the
// learner set.
func ForMode(mode ai.Mode) []Card {
	if mode == ai.ModeTutor {
		return append([]Card(nil), tutorCards...)
	}

	return append([]Card(nil), learnerCards...)
}
