package engagement

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/decoy/internal/conversation"
)

var ErrInvalidEnvelope = errors.New("engagement: invalid envelope")

// StatusSuccess is reported for every turn that produced a reply, including
// turns that failed internally and answered with the apology line.
const StatusSuccess = "success"

// WireMessage is a message as channels send it.
type WireMessage struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

func (m WireMessage) toMessage() conversation.Message {
	return conversation.Message{
		Sender:    conversation.ParseSender(m.Sender),
		Text:      m.Text,
		Timestamp: m.Timestamp,
	}
}

// Envelope is the inbound request shared by the HTTP and NATS shells.
type Envelope struct {
	SessionID           string         `json:"sessionId"`
	Message             WireMessage    `json:"message"`
	ConversationHistory []WireMessage  `json:"conversationHistory"`
	Metadata            map[string]any `json:"metadata"`
}

func (e Envelope) Validate() error {
	if strings.TrimSpace(e.SessionID) == "" {
		return fmt.Errorf("%w: sessionId is required", ErrInvalidEnvelope)
	}
	if strings.TrimSpace(e.Message.Text) == "" {
		return fmt.Errorf("%w: message.text is required", ErrInvalidEnvelope)
	}
	return nil
}

func (e Envelope) history() []conversation.Message {
	out := make([]conversation.Message, 0, len(e.ConversationHistory))
	for _, m := range e.ConversationHistory {
		out = append(out, m.toMessage())
	}
	return out
}

// metadata flattens caller metadata to strings for prompting.
func (e Envelope) metadata() map[string]string {
	out := make(map[string]string, len(e.Metadata))
	for k, v := range e.Metadata {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}

// Reply is the outbound answer.
type Reply struct {
	Status string `json:"status"`
	Reply  string `json:"reply"`
}
