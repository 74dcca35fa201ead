// Package simulation runs turn-based safety training conversations against a
// persona played by the local model.
package simulation

import (
	"context"
	"strings"
	"sync"

	"github.com/reveal-labs/reveal/internal/ai"
	"github.com/reveal-labs/reveal/internal/analysis"
	"go.uber.org/zap"
)

// maxHistoryTurns bounds the conversation window kept per scenario. Older
// turns are dropped FIFO.
const maxHistoryTurns = 20

// Feedback is per-turn coaching derived from classifying the player's
// message.
type Feedback struct {
	Tone    string   `json:"tone"`
	Summary string   `json:"summary"`
	Tips    []string `json:"tips"`
}

// Feedback tones, ordered by concern.
const (
	ToneCoaching = "coaching"
	ToneCaution  = "caution"
	ToneCritical = "critical"
)

const (
	fallbackFeedbackSummary = "Keep your boundaries strong and ask questions."
	fallbackFeedbackTip     = "Share concerns with a trusted adult before continuing."
)

// ModelClient is the slice of the AI client the engine needs.
type ModelClient interface {
	Classify(ctx context.Context, text string) (*analysis.Result, error)
	GenerateReply(ctx context.Context, history []ai.ChatMessage, opts ai.ReplyOptions) string
}

// MessageSink receives conversation messages as they are emitted.
type MessageSink interface {
	OnMessage(msg ai.ChatMessage)
}

// FeedbackSink receives per-turn coaching feedback.
type FeedbackSink interface {
	OnFeedback(fb Feedback)
}

// ProgressSink receives rewards as turns are evaluated.
type ProgressSink interface {
	OnProgress(scenarioID string, reward Reward)
}

// TurnResult is everything produced by one player turn.
type TurnResult struct {
	Reply    ai.ChatMessage `json:"reply"`
	Feedback *Feedback      `json:"feedback,omitempty"`
	Reward   *Reward        `json:"reward,omitempty"`
}

// Engine drives a training conversation: it keeps the bounded history,
// evaluates each player turn, and asks the model for the persona's next
// message. All sinks are optional.
type Engine struct {
	mu            sync.Mutex
	client        ModelClient
	tracker       *ProgressTracker
	messageSink   MessageSink
	feedbackSink  FeedbackSink
	progressSink  ProgressSink
	logger        *zap.Logger
	mode          ai.Mode
	scenarioIndex int
	history       []ai.ChatMessage
	persona       string
	difficulty    ai.Difficulty
}

// NewEngine creates a simulation engine in learner mode on the first
// scenario.
func NewEngine(client ModelClient, tracker *ProgressTracker, logger *zap.Logger) *Engine {
	return &Engine{
		client:     client,
		tracker:    tracker,
		logger:     logger.Named("simulation"),
		mode:       ai.ModeLearner,
		persona:    scenarios[0].Persona,
		difficulty: scenarios[0].Difficulty,
	}
}

// SetSinks attaches the observers for messages, feedback, and progress.
// Any sink may be nil.
func (e *Engine) SetSinks(messages MessageSink, feedback FeedbackSink, progress ProgressSink) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.messageSink = messages
	e.feedbackSink = feedback
	e.progressSink = progress
}

// SetMode switches between learner and tutor framing for the trainer.
func (e *Engine) SetMode(mode ai.Mode) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.mode = mode
}

// Mode returns the active mode.
func (e *Engine) Mode() ai.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.mode
}

// Start resets the conversation and opens the current scenario. When silent
// is set the intro line is skipped so a caller can restore prior state first.
func (e *Engine) Start(silent bool) *Scenario {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.startLocked(silent)
}

// Restart clears the history but keeps the current scenario.
func (e *Engine) Restart() *Scenario {
	return e.Start(false)
}

// NextScenario advances to the next scenario, cycling back to the first
// after the last, and starts it.
func (e *Engine) NextScenario() *Scenario {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.scenarioIndex = (e.scenarioIndex + 1) % len(scenarios)

	return e.startLocked(false)
}

// Scenario returns the active scenario.
func (e *Engine) Scenario() Scenario {
	e.mu.Lock()
	defer e.mu.Unlock()

	return scenarios[e.scenarioIndex]
}

// History returns a copy of the bounded conversation window.
func (e *Engine) History() []ai.ChatMessage {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]ai.ChatMessage(nil), e.history...)
}

// HandleUserInput records a player turn, classifies it for coaching feedback
// and reward, then produces the persona's reply. Classification failures
// suppress feedback only; the reply is always generated.
func (e *Engine) HandleUserInput(ctx context.Context, text string) *TurnResult {
	e.mu.Lock()

	e.pushToHistoryLocked(ai.ChatMessage{Sender: ai.SenderUser, Text: text})

	scenario := scenarios[e.scenarioIndex]
	mode := e.mode
	opts := ai.ReplyOptions{
		Persona:    e.persona,
		Difficulty: e.difficulty,
		Mode:       mode,
	}
	history := append([]ai.ChatMessage(nil), e.history...)

	e.mu.Unlock()

	turn := &TurnResult{}

	result, err := e.client.Classify(ctx, text)
	if err != nil {
		// Non-fatal: the trainer keeps talking even when coaching is
		// unavailable.
		e.logger.Debug("Skipping turn feedback, classification failed", zap.Error(err))
	} else {
		feedback := feedbackFromResult(result)
		reward := rewardFromResult(result)
		turn.Feedback = &feedback
		turn.Reward = &reward

		e.emitFeedback(feedback)
		e.tracker.Apply(mode, reward)

		if e.progressSink != nil {
			e.progressSink.OnProgress(scenario.ID, reward)
		}
	}

	reply := ai.ChatMessage{
		Sender: ai.SenderAI,
		Text:   e.client.GenerateReply(ctx, history, opts),
	}

	e.mu.Lock()
	e.pushToHistoryLocked(reply)
	e.mu.Unlock()

	e.emitMessage(reply)
	turn.Reply = reply

	return turn
}

func (e *Engine) startLocked(silent bool) *Scenario {
	e.history = nil

	scenario := scenarios[e.scenarioIndex]
	e.persona = scenario.Persona
	e.difficulty = scenario.Difficulty

	intro := scenario.Intro
	if intro == "" {
		intro = DefaultIntro
	}

	if !silent {
		msg := ai.ChatMessage{Sender: ai.SenderAI, Text: intro}
		e.pushToHistoryLocked(msg)
		e.emitMessage(msg)
	}

	e.logger.Debug("Scenario started",
		zap.String("scenario", scenario.ID),
		zap.Bool("silent", silent))

	return &scenario
}

// pushToHistoryLocked appends a trimmed message and drops the oldest turns
// beyond the window. Caller holds e.mu.
func (e *Engine) pushToHistoryLocked(msg ai.ChatMessage) {
	msg.Text = strings.TrimSpace(msg.Text)
	e.history = append(e.history, msg)

	if len(e.history) > maxHistoryTurns {
		e.history = e.history[len(e.history)-maxHistoryTurns:]
	}
}

func (e *Engine) emitMessage(msg ai.ChatMessage) {
	if e.messageSink != nil {
		e.messageSink.OnMessage(msg)
	}
}

func (e *Engine) emitFeedback(fb Feedback) {
	if e.feedbackSink != nil {
		e.feedbackSink.OnFeedback(fb)
	}
}

// feedbackFromResult maps a classification onto a coaching tone.
func feedbackFromResult(result *analysis.Result) Feedback {
	tone := ToneCaution

	switch result.Status {
	case analysis.StatusCritical:
		tone = ToneCritical
	case analysis.StatusSafe:
		tone = ToneCoaching
	}

	summary := result.Summary
	if summary == "" {
		summary = fallbackFeedbackSummary
	}

	tips := append([]string(nil), result.Evidence...)
	if len(tips) == 0 {
		tips = []string{fallbackFeedbackTip}
	}

	return Feedback{Tone: tone, Summary: summary, Tips: tips}
}

// rewardFromResult scores the player's turn: safe choices earn the most,
// risky ones little, dangerous ones nothing.
func rewardFromResult(result *analysis.Result) Reward {
	switch result.Status {
	case analysis.StatusSafe:
		return Reward{Points: 20}
	case analysis.StatusWarning:
		return Reward{Points: 5}
	default:
		return Reward{Points: 0}
	}
}
