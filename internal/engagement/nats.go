package engagement

import (
	"context"
	"encoding/json"

	"github.com/MikeSquared-Agency/decoy/internal/hermes"
)

// Publisher is the subset of the NATS client the inbound handler needs.
type Publisher interface {
	Publish(subject string, data any) error
}

// InboundHandler consumes envelopes from NATS and publishes the reply to the
// request inbox, or to the reply subject for fire-and-forget publishes.
func (s *Service) InboundHandler(ctx context.Context, pub Publisher) hermes.Handler {
	return func(subject, replyTo string, data []byte) {
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.logger.Warn("invalid inbound envelope", "subject", subject, "error", err)
			return
		}

		status := StatusSuccess
		reply, err := s.HandleMessage(ctx, env)
		if err != nil {
			s.logger.Warn("rejected inbound envelope", "subject", subject, "error", err)
			status = "error"
		}

		target := replyTo
		if target == "" {
			target = hermes.SubjectReply
		}
		if err := pub.Publish(target, hermes.NewReplyEvent(env.SessionID, status, reply.Reply)); err != nil {
			s.logger.Error("publish reply", "session_id", env.SessionID, "error", err)
		}
	}
}
