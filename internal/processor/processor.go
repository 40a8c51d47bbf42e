// Package processor runs one turn of a session through the engagement state
// machine: detect, localize, select persona, reply, extract, decide, report.
package processor

import (
	"context"
	"log/slog"

	"github.com/MikeSquared-Agency/decoy/internal/conversation"
	"github.com/MikeSquared-Agency/decoy/internal/observe"
	"github.com/MikeSquared-Agency/decoy/internal/oracle"
)

// Stage names a state of the turn machine.
type Stage string

const (
	StageDetectScam          Stage = "detect_scam"
	StageLocalizeLanguage    Stage = "localize_language"
	StageSelectPersona       Stage = "select_persona"
	StageGenerateReply       Stage = "generate_reply"
	StageExtractIntelligence Stage = "extract_intelligence"
	StageDecideContinuation  Stage = "decide_continuation"
	StageEndTurn             Stage = "end_turn"
	StageReported            Stage = "reported"
)

// Terminal reports whether the turn stops at this stage.
func (s Stage) Terminal() bool {
	return s == StageEndTurn || s == StageReported
}

// Oracle is the completion capability the machine consults. Any error is
// treated as "no answer".
type Oracle interface {
	CompleteText(ctx context.Context, profile oracle.Profile, prompt string, temperature float64) (string, error)
	CompleteJSON(ctx context.Context, profile oracle.Profile, prompt string, temperature float64, out oracle.Result) error
}

// Reporter delivers the terminal intelligence report for a session.
type Reporter interface {
	Report(ctx context.Context, st *conversation.State) error
}

type Config struct {
	MaxTurns        int
	DefaultLanguage string
}

type Processor struct {
	oracle   Oracle
	reporter Reporter
	metrics  *observe.Metrics
	logger   *slog.Logger

	maxTurns        int
	defaultLanguage string
}

func New(o Oracle, r Reporter, cfg Config, metrics *observe.Metrics, logger *slog.Logger) *Processor {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 20
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		oracle:          o,
		reporter:        r,
		metrics:         metrics,
		logger:          logger,
		maxTurns:        cfg.MaxTurns,
		defaultLanguage: cfg.DefaultLanguage,
	}
}

// Outcome summarizes one run.
type Outcome struct {
	Reply     string
	Final     Stage
	Path      []Stage
	Fallbacks []Stage
	Reported  bool
}

// turn carries the state for the duration of one run only.
type turn struct {
	st  *conversation.State
	out *Outcome
}

func (t *turn) fallback(s Stage) {
	t.out.Fallbacks = append(t.out.Fallbacks, s)
}

// Run drives st from DetectScam to a terminal stage. st is mutated in place
// and must not be retained by the caller's collaborators after Run returns.
func (p *Processor) Run(ctx context.Context, st *conversation.State) Outcome {
	out := Outcome{}
	t := &turn{st: st, out: &out}

	stage := StageDetectScam
	for {
		out.Path = append(out.Path, stage)
		p.logger.Debug("stage", "session_id", st.SessionID, "turn", st.TurnCount, "stage", stage)

		next := p.step(ctx, t, stage)
		if stage.Terminal() {
			break
		}
		stage = next
	}

	out.Final = stage
	out.Reply = st.Reply
	for _, s := range out.Fallbacks {
		p.metrics.RecordFallback(ctx, string(s))
	}
	return out
}

func (p *Processor) step(ctx context.Context, t *turn, stage Stage) Stage {
	switch stage {
	case StageDetectScam:
		return p.detectScam(ctx, t)
	case StageLocalizeLanguage:
		return p.localizeLanguage(ctx, t)
	case StageSelectPersona:
		return p.selectPersona(ctx, t)
	case StageGenerateReply:
		return p.generateReply(ctx, t)
	case StageExtractIntelligence:
		return p.extractIntelligence(ctx, t)
	case StageDecideContinuation:
		return p.decideContinuation(ctx, t)
	case StageReported:
		p.report(ctx, t)
		return StageReported
	default:
		return StageEndTurn
	}
}
