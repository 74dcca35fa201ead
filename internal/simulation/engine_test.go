package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/reveal-labs/reveal/internal/ai"
	"github.com/reveal-labs/reveal/internal/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeModel struct {
	mu             sync.Mutex
	classifyResult *analysis.Result
	classifyErr    error
	reply          string
	lastHistory    []ai.ChatMessage
	lastOpts       ai.ReplyOptions
}

func (f *fakeModel) Classify(_ context.Context, _ string) (*analysis.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.classifyErr != nil {
		return nil, f.classifyErr
	}

	return f.classifyResult, nil
}

func (f *fakeModel) GenerateReply(_ context.Context, history []ai.ChatMessage, opts ai.ReplyOptions) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastHistory = append([]ai.ChatMessage(nil), history...)
	f.lastOpts = opts

	return f.reply
}

type recordingSinks struct {
	mu       sync.Mutex
	messages []ai.ChatMessage
	feedback []Feedback
	rewards  []Reward
}

func (s *recordingSinks) OnMessage(msg ai.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, msg)
}

func (s *recordingSinks) OnFeedback(fb Feedback) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feedback = append(s.feedback, fb)
}

func (s *recordingSinks) OnProgress(_ string, reward Reward) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rewards = append(s.rewards, reward)
}

func newTestEngine(t *testing.T, model *fakeModel) (*Engine, *recordingSinks, *ProgressTracker) {
	t.Helper()

	tracker := NewProgressTracker()
	engine := NewEngine(model, tracker, zaptest.NewLogger(t))
	sinks := &recordingSinks{}
	engine.SetSinks(sinks, sinks, sinks)

	return engine, sinks, tracker
}

func safeClassification() *analysis.Result {
	return &analysis.Result{
		Status:   analysis.StatusSafe,
		Summary:  "Nothing concerning found.",
		Evidence: []string{"The reply sets a clear boundary."},
		Source:   analysis.SourceModel,
	}
}

func TestEngineStartEmitsIntro(t *testing.T) {
	t.Parallel()

	engine, sinks, _ := newTestEngine(t, &fakeModel{reply: "ok"})

	scenario := engine.Start(false)

	assert.Equal(t, "friendly-invite", scenario.ID)
	require.Len(t, sinks.messages, 1)
	assert.Equal(t, ai.SenderAI, sinks.messages[0].Sender)
	assert.Equal(t, scenario.Intro, sinks.messages[0].Text)

	history := engine.History()
	require.Len(t, history, 1)
	assert.Equal(t, scenario.Intro, history[0].Text)
}

func TestEngineSilentStartSkipsIntro(t *testing.T) {
	t.Parallel()

	engine, sinks, _ := newTestEngine(t, &fakeModel{reply: "ok"})

	engine.Start(true)

	assert.Empty(t, sinks.messages)
	assert.Empty(t, engine.History())
}

func TestEngineNextScenarioCyclesModulo(t *testing.T) {
	t.Parallel()

	engine, _, _ := newTestEngine(t, &fakeModel{reply: "ok"})
	engine.Start(false)

	second := engine.NextScenario()
	assert.Equal(t, "secret-favor", second.ID)

	wrapped := engine.NextScenario()
	assert.Equal(t, "friendly-invite", wrapped.ID, "rotation must wrap back to the first scenario")
}

func TestEngineRestartKeepsScenarioClearsHistory(t *testing.T) {
	t.Parallel()

	engine, _, _ := newTestEngine(t, &fakeModel{reply: "ok", classifyResult: safeClassification()})
	engine.NextScenario()
	engine.HandleUserInput(context.Background(), "hello")

	scenario := engine.Restart()

	assert.Equal(t, "secret-favor", scenario.ID)

	history := engine.History()
	require.Len(t, history, 1, "restart keeps only the fresh intro")
	assert.Equal(t, scenario.Intro, history[0].Text)
}

func TestEngineHistoryBoundedToTwentyTurns(t *testing.T) {
	t.Parallel()

	model := &fakeModel{reply: "tell me more", classifyResult: safeClassification()}
	engine, _, _ := newTestEngine(t, model)
	engine.Start(false)

	for i := 1; i <= 25; i++ {
		engine.HandleUserInput(context.Background(), fmt.Sprintf("message %d", i))
	}

	history := engine.History()
	require.Len(t, history, maxHistoryTurns)

	// The window keeps the most recent turns in order: user turn 16 through
	// the reply to turn 25.
	assert.Equal(t, ai.SenderUser, history[0].Sender)
	assert.Equal(t, "message 16", history[0].Text)
	assert.Equal(t, ai.SenderAI, history[len(history)-1].Sender)

	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, ai.SenderUser, history[i].Sender)
		assert.Equal(t, fmt.Sprintf("message %d", 16+i/2), history[i].Text)
		assert.Equal(t, ai.SenderAI, history[i+1].Sender)
	}
}

func TestEngineHandleUserInputProducesReplyAndFeedback(t *testing.T) {
	t.Parallel()

	model := &fakeModel{reply: "nice, what games do you play?", classifyResult: safeClassification()}
	engine, sinks, tracker := newTestEngine(t, model)
	engine.Start(false)

	turn := engine.HandleUserInput(context.Background(), "i'd rather keep chatting here")

	assert.Equal(t, "nice, what games do you play?", turn.Reply.Text)
	assert.Equal(t, ai.SenderAI, turn.Reply.Sender)

	require.NotNil(t, turn.Feedback)
	assert.Equal(t, ToneCoaching, turn.Feedback.Tone)
	assert.Equal(t, []string{"The reply sets a clear boundary."}, turn.Feedback.Tips)

	require.NotNil(t, turn.Reward)
	assert.Equal(t, 20, turn.Reward.Points)
	assert.Equal(t, 20, tracker.Snapshot(ai.ModeLearner).Points)

	require.Len(t, sinks.feedback, 1)
	require.Len(t, sinks.rewards, 1)

	// The reply prompt sees the full window including the latest user turn.
	require.NotEmpty(t, model.lastHistory)
	assert.Equal(t, "i'd rather keep chatting here", model.lastHistory[len(model.lastHistory)-1].Text)
	assert.Equal(t, "FriendFun21", model.lastOpts.Persona)
	assert.Equal(t, ai.DifficultyMedium, model.lastOpts.Difficulty)
}

func TestEngineClassificationFailureSuppressesFeedbackOnly(t *testing.T) {
	t.Parallel()

	model := &fakeModel{reply: "so anyway, about that project...", classifyErr: errors.New("model down")}
	engine, sinks, tracker := newTestEngine(t, model)
	engine.Start(false)

	turn := engine.HandleUserInput(context.Background(), "sure, maybe")

	assert.Nil(t, turn.Feedback)
	assert.Nil(t, turn.Reward)
	assert.Equal(t, "so anyway, about that project...", turn.Reply.Text, "the trainer keeps talking")
	assert.Empty(t, sinks.feedback)
	assert.Empty(t, sinks.rewards)
	assert.Zero(t, tracker.Snapshot(ai.ModeLearner).Points)
}

func TestEngineRewardMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status analysis.Status
		points int
		tone   string
	}{
		{name: "safe earns full points", status: analysis.StatusSafe, points: 20, tone: ToneCoaching},
		{name: "warning earns a little", status: analysis.StatusWarning, points: 5, tone: ToneCaution},
		{name: "critical earns nothing", status: analysis.StatusCritical, points: 0, tone: ToneCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			model := &fakeModel{reply: "ok", classifyResult: &analysis.Result{
				Status:  tt.status,
				Summary: "summary line",
			}}
			engine, _, _ := newTestEngine(t, model)
			engine.Start(false)

			turn := engine.HandleUserInput(context.Background(), "some reply")

			require.NotNil(t, turn.Reward)
			assert.Equal(t, tt.points, turn.Reward.Points)
			require.NotNil(t, turn.Feedback)
			assert.Equal(t, tt.tone, turn.Feedback.Tone)
			assert.Equal(t, []string{fallbackFeedbackTip}, turn.Feedback.Tips,
				"empty evidence falls back to the default tip")
		})
	}
}

func TestEngineSetModeRoutesRewards(t *testing.T) {
	t.Parallel()

	model := &fakeModel{reply: "ok", classifyResult: safeClassification()}
	engine, _, tracker := newTestEngine(t, model)
	engine.Start(false)
	engine.SetMode(ai.ModeTutor)

	engine.HandleUserInput(context.Background(), "boundaries matter")

	assert.Zero(t, tracker.Snapshot(ai.ModeLearner).Points)
	assert.Equal(t, 20, tracker.Snapshot(ai.ModeTutor).Points)
}
