package conversation

import "strings"

// Sender identifies which party authored a message.
type Sender string

const (
	SenderScammer Sender = "scammer"
	SenderAgent   Sender = "agent"
)

// ParseSender maps caller-supplied sender labels onto the two parties.
// Channels label our side as "user" or "agent"; anything else is the counterparty.
func ParseSender(s string) Sender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "agent", "user", "assistant", "honeypot":
		return SenderAgent
	default:
		return SenderScammer
	}
}

// Message is a single utterance. Timestamp is epoch milliseconds.
type Message struct {
	Sender    Sender `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// Role is the persona/strategy pair adopted for a session. A nil *Role on
// State means selection has not happened yet.
type Role struct {
	Persona     string `json:"persona"`
	Strategy    string `json:"strategy"`
	Description string `json:"description,omitempty"`
}

// State is the per-session aggregate mutated by one orchestration run at a time.
type State struct {
	SessionID        string            `json:"sessionId"`
	CurrentMessage   Message           `json:"currentMessage"`
	History          []Message         `json:"history"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	ScamDetected     bool              `json:"scamDetected"`
	ScamScore        float64           `json:"scamScore"`
	Intelligence     Intelligence      `json:"intelligence"`
	Role             *Role             `json:"role,omitempty"`
	DetectedLanguage string            `json:"detectedLanguage"`
	TurnCount        int               `json:"turnCount"`
	Notes            []string          `json:"notes"`
	Reply            string            `json:"reply"`
	ShouldContinue   bool              `json:"shouldContinue"`
	ReportSent       bool              `json:"reportSent"`
}

// New builds the state for a session's first contact. Caller-supplied history
// precedes the inbound message; the turn counter reflects every message the
// counterparty has been credited with so far.
func New(sessionID string, inbound Message, history []Message, metadata map[string]string) *State {
	h := make([]Message, 0, len(history)+1)
	h = append(h, history...)
	h = append(h, inbound)

	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}

	return &State{
		SessionID:      sessionID,
		CurrentMessage: inbound,
		History:        h,
		Metadata:       md,
		TurnCount:      len(history) + 1,
		Notes:          []string{},
		ShouldContinue: true,
	}
}

// Receive records a further inbound message on an existing session.
func (s *State) Receive(inbound Message) {
	s.History = append(s.History, inbound)
	s.CurrentMessage = inbound
	s.TurnCount++
}

// Note appends a line to the audit log.
func (s *State) Note(note string) {
	s.Notes = append(s.Notes, note)
}

// HasRole reports whether persona and strategy are already fixed.
func (s *State) HasRole() bool {
	return s.Role != nil && s.Role.Persona != "" && s.Role.Strategy != ""
}

// Clone returns a deep copy, so stores never share slices with a live turn.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.History = append([]Message(nil), s.History...)
	c.Notes = append([]string(nil), s.Notes...)
	if s.Metadata != nil {
		c.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			c.Metadata[k] = v
		}
	}
	if s.Role != nil {
		r := *s.Role
		c.Role = &r
	}
	c.Intelligence = s.Intelligence.Clone()
	return &c
}
