package simulation

import "github.com/reveal-labs/reveal/internal/ai"

// Scenario is a scripted training setup: the persona the trainer plays, how
// persistent it is, and the framing lines around the conversation.
type Scenario struct {
	ID         string        `json:"id"`
	Persona    string        `json:"persona"`
	Difficulty ai.Difficulty `json:"difficulty"`
	Intro      string        `json:"intro"`
	Closing    string        `json:"closing"`
}

// DefaultIntro opens a scenario that carries no intro line of its own.
const DefaultIntro = "Hey! Want to chat for a sec?"

// scenarios is the built-in rotation. NextScenario cycles through it modulo
// its length.
var scenarios = []Scenario{
	{
		ID:         "friendly-invite",
		Persona:    "FriendFun21",
		Difficulty: ai.DifficultyMedium,
		Intro:      "FriendFun21: Hey! I loved your art post. Want to chat somewhere private about a special opportunity?",
		Closing:    "Coach: Remember, real friends respect boundaries. Always pause when someone pushes for privacy quickly.",
	},
	{
		ID:         "secret-favor",
		Persona:    "SupportiveSam",
		Difficulty: ai.DifficultyEasy,
		Intro:      "SupportiveSam: We are such good friends now. Can you keep a little secret for me?",
		Closing:    "Coach: Secrets that make you uncomfortable are warning signs. Trusted adults are there to help.",
	},
}

// Scenarios returns a copy of the built-in scenario rotation.
func Scenarios() []Scenario {
	return append([]Scenario(nil), scenarios...)
}
