package processor

import "strings"

// NeutralReply answers messages that are not classified as scams.
const NeutralReply = "Thank you for your message. I'll look into this."

// DefaultReply stands in when a turn somehow produced no reply.
const DefaultReply = "I understand. Could you provide more details?"

// ErrorReply is returned to the counterparty when a turn fails outright.
const ErrorReply = "I'm having trouble understanding. Could you explain again?"

var fallbackReplies = []string{
	"I'm not sure I understand. Could you explain more?",
	"This is confusing to me. Can you help me understand what I need to do?",
	"Okay, but I'm a bit worried. Is this really necessary?",
	"I want to help, but I need more information first.",
}

// FallbackReply picks a canned reply by turn index.
func FallbackReply(turn int) string {
	if turn < 0 {
		turn = -turn
	}
	return fallbackReplies[turn%len(fallbackReplies)]
}

var replyPrefixes = []string{"Response:", "Agent:", "Reply:", "Here is", "Here's"}

// cleanReply strips boilerplate a generator tends to put around the utterance.
func cleanReply(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range replyPrefixes {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
		}
	}
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
