package hermes

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/decoy/internal/report"
)

const (
	SubjectInbound    = "swarm.decoy.message.inbound"
	SubjectReply      = "swarm.decoy.message.reply"
	SubjectReported   = "swarm.decoy.session.reported"
	SubjectRegistered = "swarm.agent.decoy.registered"

	// QueueEngagement load-balances inbound messages across replicas.
	QueueEngagement = "decoy-engagement"
)

// ReplyEvent answers one inbound message.
type ReplyEvent struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Status    string    `json:"status"`
	Reply     string    `json:"reply"`
	Timestamp time.Time `json:"timestamp"`
}

// ReportedEvent announces a delivered intelligence report.
type ReportedEvent struct {
	ID          string         `json:"id"`
	ReportID    string         `json:"reportId"`
	SessionID   string         `json:"sessionId"`
	Report      report.Payload `json:"report"`
	DeliveredAt time.Time      `json:"deliveredAt"`
}

// RegisteredEvent is published once on startup.
type RegisteredEvent struct {
	ID        string    `json:"id"`
	AgentID   string    `json:"agentId"`
	Version   string    `json:"version"`
	Subjects  []string  `json:"subjects"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReplyEvent(sessionID, status, reply string) ReplyEvent {
	return ReplyEvent{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Status:    status,
		Reply:     reply,
		Timestamp: time.Now().UTC(),
	}
}

func NewReportedEvent(d report.Delivery) ReportedEvent {
	return ReportedEvent{
		ID:          uuid.NewString(),
		ReportID:    d.ID.String(),
		SessionID:   d.Payload.SessionID,
		Report:      d.Payload,
		DeliveredAt: d.DeliveredAt,
	}
}

// Register announces this agent to the swarm.
func (c *Client) Register(version string) error {
	return c.Publish(SubjectRegistered, RegisteredEvent{
		ID:        uuid.NewString(),
		AgentID:   "decoy",
		Version:   version,
		Subjects:  []string{SubjectInbound, SubjectReply, SubjectReported},
		Timestamp: time.Now().UTC(),
	})
}

// Notify publishes a reported event; it satisfies report.Notifier.
func (c *Client) Notify(_ context.Context, d report.Delivery) error {
	return c.Publish(SubjectReported, NewReportedEvent(d))
}
