// Package ai implements the client for the local Ollama-compatible inference
// service: prompt construction, bounded-deadline requests, response parsing
// with normalization, and the trainer reply generator.
package ai

import "errors"

// Client error taxonomy. Callers branch on these with errors.Is, never on
// message text.
var (
	// ErrTimeout indicates the local model did not respond within the deadline.
	ErrTimeout = errors.New("local model did not respond in time")
	// ErrForbidden indicates the local model rejected the request, typically
	// an origin/permission denial (HTTP 403).
	ErrForbidden = errors.New("local model rejected the request")
	// ErrInvalidResponse indicates the model output could not be parsed into
	// the expected structure.
	ErrInvalidResponse = errors.New("local model returned an invalid response")
	// ErrUnavailable covers every other transport or service failure.
	ErrUnavailable = errors.New("local model is unavailable")
)

// Sender identifies which side of the training conversation produced a turn.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ChatMessage is a single turn in the bounded training history.
type ChatMessage struct {
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
}

// Difficulty controls how much pressure the simulated persona applies.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Mode adjusts prompt phrasing for the audience; it never affects state
// transitions.
type Mode string

const (
	ModeLearner Mode = "learner"
	ModeTutor   Mode = "tutor"
)

// ReplyOptions carries the session context for trainer reply generation.
type ReplyOptions struct {
	Persona    string
	Difficulty Difficulty
	Mode       Mode
}

// ServiceStatus reports the health-check outcome for the inference service.
type ServiceStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version"`
}
