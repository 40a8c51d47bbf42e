package conversation

import "strings"

// Window returns the last n messages of history (all of them when n <= 0 or
// history is shorter). The returned slice aliases history and must not be mutated.
func Window(history []Message, n int) []Message {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// FormatTranscript renders messages one per line as "sender: text" for prompting.
func FormatTranscript(msgs []Message) string {
	var sb strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(string(msg.Sender))
		sb.WriteString(": ")
		sb.WriteString(msg.Text)
	}
	return sb.String()
}

// ScammerTexts returns the text of every counterparty message in msgs, in order.
func ScammerTexts(msgs []Message) []string {
	var out []string
	for _, msg := range msgs {
		if msg.Sender == SenderScammer {
			out = append(out, msg.Text)
		}
	}
	return out
}
