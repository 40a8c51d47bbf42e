package processor

import (
	"context"
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/decoy/internal/conversation"
	"github.com/MikeSquared-Agency/decoy/internal/extractor"
	"github.com/MikeSquared-Agency/decoy/internal/oracle"
	"github.com/MikeSquared-Agency/decoy/internal/policy"
)

// urgencyKeywords drive detection when the classifier is unavailable.
var urgencyKeywords = []string{"urgent", "immediately", "verify", "blocked", "suspend", "तुरंत", "உடனே"}

const (
	heuristicScamScore  = 0.6
	heuristicCleanScore = 0.2
	sufficientIntel     = 3
)

// prior is the history before the current inbound message.
func prior(st *conversation.State) []conversation.Message {
	if n := len(st.History); n > 0 {
		return st.History[:n-1]
	}
	return nil
}

func transcriptOr(msgs []conversation.Message, empty string) string {
	if len(msgs) == 0 {
		return empty
	}
	return conversation.FormatTranscript(msgs)
}

func metadataOr(md map[string]string, key, fallback string) string {
	if v := strings.TrimSpace(md[key]); v != "" {
		return v
	}
	return fallback
}

func (p *Processor) detectScam(ctx context.Context, t *turn) Stage {
	st := t.st
	text := st.CurrentMessage.Text
	wasDetected := st.ScamDetected

	prompt := fmt.Sprintf(detectionPrompt,
		text,
		transcriptOr(conversation.Window(prior(st), 5), "No prior conversation"),
		metadataOr(st.Metadata, "channel", "Unknown"),
		metadataOr(st.Metadata, "language", "Auto-detect"),
	)

	var res detectionResult
	source := "oracle"
	if err := p.oracle.CompleteJSON(ctx, oracle.Detection, prompt, 0.3, &res); err != nil {
		p.logger.Warn("scam detection unavailable, using keyword heuristic", "session_id", st.SessionID, "error", err)
		t.fallback(StageDetectScam)
		source = "heuristic"

		lower := strings.ToLower(text)
		var matched []string
		for _, kw := range urgencyKeywords {
			if strings.Contains(lower, kw) {
				matched = append(matched, kw)
			}
		}
		if len(matched) > 0 {
			st.ScamDetected = true
			st.ScamScore = heuristicScamScore
			st.Intelligence.AddKeywords(matched...)
		} else if !st.ScamDetected {
			st.ScamScore = heuristicCleanScore
		}
	} else {
		st.ScamScore = *res.ScamScore
		if *res.ScamDetected {
			st.ScamDetected = true
			st.Intelligence.AddKeywords(res.Indicators...)
			st.Note(fmt.Sprintf("Scam detected: %s - %s", res.ScamType, res.Reasoning))
		}
	}

	if !st.ScamDetected {
		st.Reply = NeutralReply
		if st.TurnCount >= p.maxTurns && st.ShouldContinue {
			st.ShouldContinue = false
			st.Note("Maximum turns reached - forcing termination")
		}
		return StageEndTurn
	}
	if !wasDetected {
		p.metrics.RecordScamDetected(ctx, source)
		p.logger.Info("scam detected", "session_id", st.SessionID, "score", st.ScamScore, "source", source)
	}
	return StageLocalizeLanguage
}

func (p *Processor) localizeLanguage(ctx context.Context, t *turn) Stage {
	st := t.st

	texts := conversation.ScammerTexts(conversation.Window(prior(st), 3))
	texts = append(texts, st.CurrentMessage.Text)

	codes := make([]string, 0, len(policy.Languages))
	for _, l := range policy.Languages {
		codes = append(codes, fmt.Sprintf("- %s: %s", l.Code, l.Name))
	}
	prompt := fmt.Sprintf(languagePrompt, strings.Join(texts, " "), strings.Join(codes, "\n"))

	var res languageResult
	if err := p.oracle.CompleteJSON(ctx, oracle.Extraction, prompt, 0.2, &res); err != nil {
		p.logger.Warn("language detection unavailable", "session_id", st.SessionID, "error", err)
		t.fallback(StageLocalizeLanguage)
		if st.DetectedLanguage == "" {
			st.DetectedLanguage = p.defaultLanguage
		}
	} else {
		st.DetectedLanguage = policy.NormalizeLanguage(res.LanguageCode, p.defaultLanguage)
		st.Note(fmt.Sprintf("Language detected: %s (%s) - Confidence: %.2f", res.LanguageName, st.DetectedLanguage, res.Confidence))
	}

	if st.HasRole() {
		return StageGenerateReply
	}
	return StageSelectPersona
}

func (p *Processor) selectPersona(ctx context.Context, t *turn) Stage {
	st := t.st

	personas := make([]string, 0, len(policy.Personas))
	for _, ps := range policy.Personas {
		personas = append(personas, fmt.Sprintf("- %q: %s", ps, ps.Summary()))
	}
	strategies := make([]string, 0, len(policy.Strategies))
	for _, s := range policy.Strategies {
		strategies = append(strategies, fmt.Sprintf("- %q: %s", s, s.Summary()))
	}
	prompt := fmt.Sprintf(personaPrompt, st.CurrentMessage.Text, st.ScamScore,
		strings.Join(personas, "\n"), strings.Join(strategies, "\n"))

	var res personaResult
	if err := p.oracle.CompleteJSON(ctx, oracle.Decision, prompt, 0.5, &res); err != nil {
		p.logger.Warn("persona selection unavailable, using default", "session_id", st.SessionID, "error", err)
		t.fallback(StageSelectPersona)
		st.Role = &conversation.Role{
			Persona:  string(policy.DefaultPersona),
			Strategy: string(policy.DefaultStrategy),
		}
		return StageGenerateReply
	}

	persona, _ := policy.ParsePersona(res.SelectedPersona)
	strategy, _ := policy.ParseStrategy(res.ConversationStrategy)
	st.Role = &conversation.Role{
		Persona:     string(persona),
		Strategy:    string(strategy),
		Description: res.PersonaDescription,
	}
	st.Note(fmt.Sprintf("Persona: %s | Strategy: %s", res.PersonaDescription, res.StrategyReasoning))
	p.logger.Info("persona selected", "session_id", st.SessionID, "persona", persona, "strategy", strategy)
	return StageGenerateReply
}

func (p *Processor) generateReply(ctx context.Context, t *turn) Stage {
	st := t.st

	persona, strategy := policy.DefaultPersona, policy.DefaultStrategy
	if st.HasRole() {
		persona, strategy = policy.Persona(st.Role.Persona), policy.Strategy(st.Role.Strategy)
	}

	gaps := "Most intelligence gathered, prepare to wrap up"
	if missing := st.Intelligence.Missing(); len(missing) > 0 {
		gaps = strings.Join(missing, ", ")
	}

	prompt := fmt.Sprintf(replyPrompt,
		policy.LanguageInstruction(st.DetectedLanguage),
		persona, persona.Traits(),
		strategy, strategy.Guide(),
		st.TurnCount, policy.Objective(st.TurnCount),
		transcriptOr(conversation.Window(prior(st), 8), "This is the first message"),
		st.CurrentMessage.Text,
		gaps,
	)

	raw, err := p.oracle.CompleteText(ctx, oracle.Generation, prompt, 0.8)
	reply := cleanReply(raw)
	if err != nil || reply == "" {
		p.logger.Warn("reply generation unavailable, using canned reply", "session_id", st.SessionID, "error", err)
		t.fallback(StageGenerateReply)
		reply = FallbackReply(st.TurnCount)
	}

	st.Reply = reply
	st.History = append(st.History, conversation.Message{
		Sender:    conversation.SenderAgent,
		Text:      reply,
		Timestamp: st.CurrentMessage.Timestamp + 1000,
	})
	return StageExtractIntelligence
}

func (p *Processor) extractIntelligence(ctx context.Context, t *turn) Stage {
	st := t.st

	// History now ends with our reply; the inbound message sits just before it.
	texts := conversation.ScammerTexts(st.History)
	if st.CurrentMessage.Sender != conversation.SenderScammer {
		texts = append(texts, st.CurrentMessage.Text)
	}
	corpus := strings.Join(texts, "\n")

	found := extractor.Extract(corpus)
	added := 0
	for category, n := range found.MergeInto(&st.Intelligence) {
		if n > 0 {
			p.metrics.RecordIntelligence(ctx, category, n)
			added += n
		}
	}
	p.logger.Debug("regex extraction", "session_id", st.SessionID, "matched", found.Total(), "new", added)

	intel := st.Intelligence
	prompt := fmt.Sprintf(analystPrompt, corpus,
		intel.BankAccounts, intel.UPIIDs, intel.PhoneNumbers, intel.PhishingLinks)

	var res analystResult
	if err := p.oracle.CompleteJSON(ctx, oracle.Extraction, prompt, 0.3, &res); err != nil {
		p.logger.Debug("analyst signals unavailable", "session_id", st.SessionID, "error", err)
		t.fallback(StageExtractIntelligence)
		return StageDecideContinuation
	}

	if n := st.Intelligence.AddKeywords(res.AdditionalKeywords...); n > 0 {
		p.metrics.RecordIntelligence(ctx, conversation.CategoryKeywords, n)
	}
	if res.AgentObservations != "" {
		st.Note("Intelligence: " + res.AgentObservations)
	}
	if len(res.ManipulationTactics) > 0 {
		st.Note("Tactics: " + strings.Join(res.ManipulationTactics, ", "))
	}
	if res.ScammerIdentity != "" {
		st.Note("Identity: " + res.ScammerIdentity)
	}
	if res.ScammerGoal != "" {
		st.Note("Goal: " + res.ScammerGoal)
	}
	return StageDecideContinuation
}

func (p *Processor) decideContinuation(ctx context.Context, t *turn) Stage {
	st := t.st
	intel := st.Intelligence

	var recent []string
	for _, m := range conversation.Window(st.History, 3) {
		recent = append(recent, m.Text)
	}
	recentText := "No recent messages"
	if len(recent) > 0 {
		recentText = strings.Join(recent, "\n")
	}

	prompt := fmt.Sprintf(decisionPrompt,
		st.TurnCount, p.maxTurns,
		intel.Count(),
		len(intel.BankAccounts), len(intel.UPIIDs), len(intel.PhoneNumbers), len(intel.PhishingLinks),
		len(intel.SuspiciousKeywords),
		st.CurrentMessage.Text,
		recentText,
	)

	var res decisionResult
	if err := p.oracle.CompleteJSON(ctx, oracle.Decision, prompt, 0.4, &res); err != nil {
		p.logger.Warn("continuation decision unavailable, using fallback rule", "session_id", st.SessionID, "error", err)
		t.fallback(StageDecideContinuation)
		st.ShouldContinue = st.TurnCount < p.maxTurns && intel.Count() < sufficientIntel
	} else {
		st.ShouldContinue = *res.ShouldContinue
		reasoning := res.Reasoning
		if reasoning == "" {
			reasoning = "Decision made"
		}
		st.Note("Decision: " + reasoning)
	}

	if st.TurnCount >= p.maxTurns {
		st.ShouldContinue = false
		st.Note("Maximum turns reached - forcing termination")
	}

	if st.ShouldContinue {
		return StageEndTurn
	}
	p.logger.Info("engagement finished", "session_id", st.SessionID, "turn", st.TurnCount, "intel_items", intel.Count())
	return StageReported
}

func (p *Processor) report(ctx context.Context, t *turn) {
	st := t.st
	if !st.ScamDetected || st.ShouldContinue || st.ReportSent {
		return
	}
	if p.reporter == nil {
		p.logger.Warn("no reporter configured, skipping report", "session_id", st.SessionID)
		return
	}
	if err := p.reporter.Report(ctx, st); err != nil {
		p.logger.Error("report delivery failed", "session_id", st.SessionID, "error", err)
		return
	}
	st.ReportSent = true
	t.out.Reported = true
}
