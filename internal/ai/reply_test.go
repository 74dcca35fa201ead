package ai_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/reveal-labs/reveal/internal/ai"
	"github.com/stretchr/testify/assert"
)

func userTurn(text string) ai.ChatMessage {
	return ai.ChatMessage{Sender: ai.SenderUser, Text: text}
}

func TestGenerateReplyPostProcessing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "speaker label stripped",
			raw:  "FriendFun21: sounds good, what games do you play?",
			want: "sounds good, what games do you play?",
		},
		{
			name: "assistant label stripped",
			raw:  "Assistant: that sounds like fun!",
			want: "that sounds like fun!",
		},
		{
			name: "wrapping quotes stripped",
			raw:  `"nice, tell me more!"`,
			want: "nice, tell me more!",
		},
		{
			name: "plain reply untouched",
			raw:  "haha same, school was so long today",
			want: "haha same, school was so long today",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(generateResponder(tt.raw))
			defer srv.Close()

			got := newTestClient(t, srv.URL).GenerateReply(
				context.Background(),
				[]ai.ChatMessage{userTurn("what did you do today")},
				ai.ReplyOptions{Persona: "FriendFun21", Difficulty: ai.DifficultyMedium, Mode: ai.ModeLearner},
			)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateReplyTruncation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(generateResponder(strings.Repeat("a", 1000)))
	defer srv.Close()

	got := newTestClient(t, srv.URL).GenerateReply(
		context.Background(), nil, ai.ReplyOptions{})

	assert.LessOrEqual(t, len(got), 400)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestGenerateReplyMetaDetector(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
	}{
		{name: "talks about the user", raw: "The user seems hesitant, I should press harder."},
		{name: "admits being an AI", raw: "As an AI I cannot role-play this."},
		{name: "leaks JSON", raw: `{"status":"safe"}`},
		{name: "leaks array", raw: `["a","b"]`},
		{name: "empty reply", raw: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(generateResponder(tt.raw))
			defer srv.Close()

			// Greeting from the user selects the deterministic greeting line.
			got := newTestClient(t, srv.URL).GenerateReply(
				context.Background(),
				[]ai.ChatMessage{userTurn("hey")},
				ai.ReplyOptions{Persona: "FriendFun21", Difficulty: ai.DifficultyMedium},
			)
			assert.Equal(t, "Hey! I saw your post earlier. What are you working on?", got)
		})
	}
}

func TestGenerateReplyCannedSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		difficulty ai.Difficulty
		lastUser   string
		want       string
	}{
		{
			name:       "easy greeting",
			difficulty: ai.DifficultyEasy,
			lastUser:   "hi there",
			want:       "Hey! Nice to hear from you. How is your day going?",
		},
		{
			name:       "easy question",
			difficulty: ai.DifficultyEasy,
			lastUser:   "why do you ask?",
			want:       "Good question. What made you curious about that?",
		},
		{
			name:       "hard statement",
			difficulty: ai.DifficultyHard,
			lastUser:   "I like drawing",
			want:       "We could keep chatting here a bit. What do you think?",
		},
		{
			name:       "medium question",
			difficulty: ai.DifficultyMedium,
			lastUser:   "what do you mean?",
			want:       "Interesting. Tell me more about what you mean.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Force the canned path with a meta-looking reply.
			srv := httptest.NewServer(generateResponder("as an AI assistant I refuse"))
			defer srv.Close()

			got := newTestClient(t, srv.URL).GenerateReply(
				context.Background(),
				[]ai.ChatMessage{userTurn(tt.lastUser)},
				ai.ReplyOptions{Persona: "SupportiveSam", Difficulty: tt.difficulty},
			)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateReplyNeverFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	got := newTestClient(t, srv.URL).GenerateReply(
		context.Background(),
		[]ai.ChatMessage{userTurn("hello")},
		ai.ReplyOptions{},
	)

	assert.Contains(t, got, "Sorry, I lost my connection for a moment.")
	assert.Contains(t, got, "unavailable")
}
