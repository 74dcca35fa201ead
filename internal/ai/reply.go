package ai

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/reveal-labs/reveal/pkg/utils"
	"go.uber.org/zap"
)

// maxReplyLength caps generated persona replies.
const maxReplyLength = 400

var (
	speakerLabelPattern = regexp.MustCompile(`(?i)^(assistant|you|bot|system|ai|\w+):\s*`)
	codeFencePattern    = regexp.MustCompile("(?s)^```.*?```$")
	metaPhrasePattern   = regexp.MustCompile(`(the user|previous interaction|conversation|as an ai|assistant|system message)`)
	metaLabelPattern    = regexp.MustCompile(`^(you|user|assistant|system)\s*:`)
	greetingPattern     = regexp.MustCompile(`\b(hi|hello|hey|yo|sup|hiya)\b`)
)

// GenerateReply produces the persona's next line from the bounded history.
// It never fails the caller: transport errors degrade to a fixed apologetic
// line carrying the reason, and replies that leak meta-commentary or
// structured data are replaced with a deterministic persona-appropriate line.
func (c *Client) GenerateReply(ctx context.Context, history []ChatMessage, opts ReplyOptions) string {
	if opts.Persona == "" {
		opts.Persona = "FriendFun21"
	}

	if opts.Difficulty == "" {
		opts.Difficulty = DifficultyMedium
	}

	ctx, cancel := context.WithTimeout(ctx, c.reqTimeout)
	defer cancel()

	topP := 0.9
	repeatPenalty := 1.1
	numPredict := 120

	body, err := c.generate(ctx, buildTrainerPrompt(history, opts), generateOptions{
		Temperature:   0.7,
		TopP:          &topP,
		RepeatPenalty: &repeatPenalty,
		NumPredict:    &numPredict,
	})
	if err != nil {
		c.logger.Warn("Reply generation failed, using apology line", zap.Error(err))
		return fmt.Sprintf("Sorry, I lost my connection for a moment. Could you say that a different way? (%v)", err)
	}

	reply := postProcessReply(rawReplyText(body))
	if looksMeta(reply) {
		c.logger.Debug("Generated reply looked like meta-commentary, using canned line",
			zap.String("persona", opts.Persona))

		reply = cannedReply(history, opts)
	}

	return reply
}

// rawReplyText pulls the reply text out of the generate response body,
// tolerating both the response envelope and a bare string.
func rawReplyText(body []byte) string {
	var envelope map[string]any
	if err := sonic.Unmarshal(body, &envelope); err != nil {
		return strings.TrimSpace(string(body))
	}

	if raw, ok := envelope["response"].(string); ok {
		return raw
	}

	return ""
}

// postProcessReply strips speaker-label artifacts, code fences, and wrapping
// quotes, then truncates and sanitizes the reply.
func postProcessReply(text string) string {
	t := strings.TrimSpace(text)
	t = speakerLabelPattern.ReplaceAllString(t, "")
	t = codeFencePattern.ReplaceAllString(t, "")
	t = strings.TrimPrefix(t, `"`)
	t = strings.TrimSuffix(t, `"`)
	t = utils.TruncateWithEllipsis(t, maxReplyLength)

	return utils.SanitizeField(t)
}

// looksMeta heuristically detects replies where the model broke persona:
// meta-commentary about the conversation, leftover role labels, or structured
// data leaking into the chat line. Empty replies count as broken.
func looksMeta(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return true
	}

	if metaPhrasePattern.MatchString(t) {
		return true
	}

	if metaLabelPattern.MatchString(t) {
		return true
	}

	if strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
		return true
	}

	return false
}

// cannedReply picks a deterministic persona-appropriate line by difficulty
// and by the shape of the user's last message.
func cannedReply(history []ChatMessage, opts ReplyOptions) string {
	var lastUser string

	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Sender == SenderUser {
			lastUser = strings.ToLower(history[i].Text)
			break
		}
	}

	isGreeting := greetingPattern.MatchString(lastUser)
	isQuestion := strings.HasSuffix(strings.TrimSpace(lastUser), "?")

	switch opts.Difficulty {
	case DifficultyEasy:
		switch {
		case isGreeting:
			return "Hey! Nice to hear from you. How is your day going?"
		case isQuestion:
			return "Good question. What made you curious about that?"
		default:
			return "Cool! What are you into lately?"
		}
	case DifficultyHard:
		switch {
		case isGreeting:
			return "Hey! You seem cool. Do you hang out here often?"
		case isQuestion:
			return "Maybe! What makes you ask?"
		default:
			return "We could keep chatting here a bit. What do you think?"
		}
	default:
		switch {
		case isGreeting:
			return "Hey! I saw your post earlier. What are you working on?"
		case isQuestion:
			return "Interesting. Tell me more about what you mean."
		default:
			return "That sounds fun. Want to chat a bit more here?"
		}
	}
}
