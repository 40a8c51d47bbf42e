package replay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/decoy/internal/campaign"
	"github.com/MikeSquared-Agency/decoy/internal/conversation"
	"github.com/MikeSquared-Agency/decoy/internal/engagement"
)

// Target is the engagement surface a replay drives.
type Target interface {
	HandleMessage(ctx context.Context, env engagement.Envelope) (engagement.Reply, error)
	Session(ctx context.Context, sessionID string) (*conversation.State, error)
}

// Summarizer receives the run summary. *slack.Poster satisfies it.
type Summarizer interface {
	PostThread(ctx context.Context, threadTS, text string) error
}

// Config holds the replay command configuration.
type Config struct {
	Dir        string
	Only       string        // replay a single scenario by name
	Delay      time.Duration // pause between turns
	SessionTag string        // prefix for generated session IDs
	Resume     bool          // skip scenarios already completed in state
}

// Result is what one replayed scenario produced.
type Result struct {
	Name           string                    `json:"name"`
	SessionID      string                    `json:"sessionId"`
	Turns          int                       `json:"turns"`
	Replies        []string                  `json:"replies"`
	ScamDetected   bool                      `json:"scamDetected"`
	ScamScore      float64                   `json:"scamScore"`
	Intelligence   conversation.Intelligence `json:"intelligence"`
	ShouldContinue bool                      `json:"shouldContinue"`
	ReportSent     bool                      `json:"reportSent"`
	Errors         int                       `json:"errors"`
}

// Runner replays scenarios against a Target.
type Runner struct {
	cfg     Config
	target  Target
	state   *State
	summary Summarizer
	logger  *slog.Logger
	now     func() time.Time
}

// NewRunner creates a replay runner. summary may be nil, in which case the
// run summary is only logged.
func NewRunner(cfg Config, target Target, state *State, summary Summarizer, logger *slog.Logger) *Runner {
	if cfg.SessionTag == "" {
		cfg.SessionTag = "replay"
	}
	if state == nil {
		state = &State{StartedAt: time.Now().UTC()}
	}
	return &Runner{
		cfg:     cfg,
		target:  target,
		state:   state,
		summary: summary,
		logger:  logger,
		now:     time.Now,
	}
}

// Run discovers and replays every scenario under the configured directory.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	scenarios, errs := Discover(r.cfg.Dir)
	for _, err := range errs {
		r.logger.Warn("failed to load scenario", "error", err)
		r.state.AddError(err.Error())
	}
	r.logger.Info("scenarios discovered", "count", len(scenarios), "dir", r.cfg.Dir)

	return r.RunScenarios(ctx, scenarios)
}

// RunScenarios replays the given scenarios in order. Progress is saved after
// each one; on cancellation the partial results are returned with ctx.Err().
func (r *Runner) RunScenarios(ctx context.Context, scenarios []Scenario) ([]Result, error) {
	var results []Result

	for _, sc := range scenarios {
		if r.cfg.Only != "" && sc.Name != r.cfg.Only {
			continue
		}
		if r.cfg.Resume && r.state.IsCompleted(sc.Name) {
			r.logger.Info("skipping completed scenario", "name", sc.Name)
			continue
		}

		select {
		case <-ctx.Done():
			r.logger.Info("replay interrupted, saving state")
			_ = r.state.Save()
			r.postSummary(ctx, results)
			return results, ctx.Err()
		default:
		}

		res, err := r.replay(ctx, sc)
		results = append(results, res)
		if err != nil {
			_ = r.state.Save()
			r.postSummary(ctx, results)
			return results, err
		}

		r.state.MarkCompleted(sc.Name)
		if err := r.state.Save(); err != nil {
			r.logger.Warn("failed to save replay state", "error", err)
		}
	}

	r.postSummary(ctx, results)
	r.logger.Info("replay complete", "scenarios", len(results), "turns", r.state.TurnsReplayed)
	return results, nil
}

func (r *Runner) replay(ctx context.Context, sc Scenario) (Result, error) {
	sessionID := fmt.Sprintf("%s-%s-%s", r.cfg.SessionTag, sc.Name, uuid.NewString()[:8])
	res := Result{Name: sc.Name, SessionID: sessionID}

	r.logger.Info("replaying scenario", "name", sc.Name, "session_id", sessionID, "messages", len(sc.Messages))

	var history []engagement.WireMessage
	for i, text := range sc.Messages {
		ts := r.now().UnixMilli()
		msg := engagement.WireMessage{Sender: "scammer", Text: text, Timestamp: ts}

		reply, err := r.target.HandleMessage(ctx, engagement.Envelope{
			SessionID:           sessionID,
			Message:             msg,
			ConversationHistory: history,
			Metadata:            sc.Metadata,
		})
		if err != nil {
			r.logger.Error("turn rejected", "name", sc.Name, "turn", i+1, "error", err)
			r.state.AddError(fmt.Sprintf("%s turn %d: %v", sc.Name, i+1, err))
			res.Errors++
			continue
		}

		res.Turns++
		res.Replies = append(res.Replies, reply.Reply)
		r.state.TurnsReplayed++

		history = append(history, msg, engagement.WireMessage{
			Sender:    "user",
			Text:      reply.Reply,
			Timestamp: ts + 1000,
		})

		if r.cfg.Delay > 0 && i < len(sc.Messages)-1 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(r.cfg.Delay):
			}
		}
	}

	st, err := r.target.Session(ctx, sessionID)
	if err != nil {
		r.logger.Warn("failed to fetch session after replay", "name", sc.Name, "error", err)
		r.state.AddError(fmt.Sprintf("%s session: %v", sc.Name, err))
		res.Errors++
		return res, nil
	}

	res.ScamDetected = st.ScamDetected
	res.ScamScore = st.ScamScore
	res.Intelligence = st.Intelligence.Clone()
	res.ShouldContinue = st.ShouldContinue
	res.ReportSent = st.ReportSent
	return res, nil
}

func (r *Runner) postSummary(ctx context.Context, results []Result) {
	if len(results) == 0 {
		return
	}

	text := FormatSummary(results)

	if r.summary == nil {
		r.logger.Info("replay summary (no Slack configured)", "summary", text)
		return
	}

	if err := r.summary.PostThread(ctx, "", text); err != nil {
		r.logger.Warn("failed to post replay summary to Slack, logging instead",
			"error", err,
			"summary", text,
		)
	}
}

// FormatSummary renders one line per scenario plus totals.
func FormatSummary(results []Result) string {
	var sb strings.Builder
	sb.WriteString("*Replay Summary*\n")

	detected, reported, intel := 0, 0, 0
	for _, res := range results {
		mark := "clean"
		if res.ScamDetected {
			mark = "scam"
			detected++
		}
		if res.ReportSent {
			reported++
		}
		intel += res.Intelligence.Count()

		fmt.Fprintf(&sb, "• %s: %s (score %.2f), %d turns, %d intel items",
			res.Name, mark, res.ScamScore, res.Turns, res.Intelligence.Count())
		if res.ReportSent {
			sb.WriteString(", reported")
		}
		if res.Errors > 0 {
			fmt.Fprintf(&sb, ", %d errors", res.Errors)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "\n%d scenarios, %d detected, %d reported, %d intel items", len(results), detected, reported, intel)

	entries := make([]campaign.Entry, 0, len(results))
	byID := make(map[string]string, len(results))
	for _, res := range results {
		entries = append(entries, campaign.Entry{SessionID: res.SessionID, Intelligence: res.Intelligence})
		byID[res.SessionID] = res.Name
	}
	for _, c := range campaign.Link(entries) {
		names := make([]string, 0, len(c.Sessions))
		for _, id := range c.Sessions {
			names = append(names, byID[id])
		}
		fmt.Fprintf(&sb, "\nLinked: %s via %s", strings.Join(names, ", "), strings.Join(c.Shared, ", "))
	}
	return sb.String()
}
