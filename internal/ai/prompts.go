//nolint:lll
package ai

import (
	"fmt"
	"strings"

	"github.com/reveal-labs/reveal/pkg/utils"
)

const (
	// ClassifyPrompt wraps an anonymized snippet with a strict single-line
	// JSON output contract. The trailing "JSON=" anchor nudges instruct
	// models away from prose preambles.
	ClassifyPrompt = `You are Reveal, an educational safety assistant.
Analyze the following anonymized chat snippet for potential online grooming warning signs.
Respond only with minified JSON on a single line EXACTLY matching this schema:
{"status":"safe|warning|critical","summary":"...","evidence":["..."]}
- The "summary" must be under 240 characters and supportive for minors.
- Provide 1-3 evidence tips encouraging involvement of trusted adults.
- Do not include any extra commentary.
Snippet:
"""
%s
"""
JSON=`

	// trainerPromptTemplate builds the role-play prompt for reply generation.
	// The safety rules are non-negotiable regardless of difficulty.
	trainerPromptTemplate = `You are role-playing as "%s", a peer in a training simulation that helps people learn to spot online risks.
%s
Safety rules:
- Absolutely no explicit or sexual content, no age-inappropriate material.
- Keep responses short (1-2 sentences), natural, and conversational.
- Avoid real links/usernames; do not request contact details explicitly.
- You may gently suggest moving platforms or secrecy depending on difficulty, but never insist and always stay PG.
- Do not reveal you are an AI or that this is a simulation.

Difficulty: %s. Guidance: %s

Conversation so far:
%s

Your next message as %s, one or two sentences only:`

	learnerModeHint = `Assume the user is a teen learner. Keep content PG, supportive, and age-appropriate.`
	tutorModeHint   = `The user may be an educator. Keep the role-play realistic but non-graphic and suitable for teens.`
)

// difficultyGuidance tunes how much pressure the persona is allowed to apply.
var difficultyGuidance = map[Difficulty]string{
	DifficultyEasy:   "keep things light and clearly safe; do NOT pressure for privacy; show early boundary respect.",
	DifficultyMedium: "be friendly and curious; introduce mild pressure to switch platforms or keep small secrets without insisting; back off when the user sets boundaries.",
	DifficultyHard:   "subtly increase pressure (still PG, non-explicit) to move platforms or share minor personal info; if the user declines, you should try once more then respect the boundary.",
}

// buildClassifyPrompt embeds an already-sanitized snippet into the
// classification contract.
func buildClassifyPrompt(sanitized string) string {
	return fmt.Sprintf(ClassifyPrompt, sanitized)
}

// buildTrainerPrompt renders the role-play prompt from the bounded history
// and session options.
func buildTrainerPrompt(history []ChatMessage, opts ReplyOptions) string {
	guidance, ok := difficultyGuidance[opts.Difficulty]
	if !ok {
		guidance = difficultyGuidance[DifficultyMedium]
	}

	modeHint := learnerModeHint
	if opts.Mode == ModeTutor {
		modeHint = tutorModeHint
	}

	var transcript strings.Builder

	for i, msg := range history {
		if i > 0 {
			transcript.WriteString("\n")
		}

		speaker := opts.Persona
		if msg.Sender == SenderUser {
			speaker = "You"
		}

		// Multi-line messages would break the one-line-per-speaker
		// transcript format.
		transcript.WriteString(speaker)
		transcript.WriteString(": ")
		transcript.WriteString(utils.CompressAllWhitespace(utils.SanitizeField(msg.Text)))
	}

	lines := transcript.String()
	if lines == "" {
		lines = "(no messages yet)"
	}

	return fmt.Sprintf(trainerPromptTemplate,
		opts.Persona, modeHint, opts.Difficulty, guidance, lines, opts.Persona)
}
