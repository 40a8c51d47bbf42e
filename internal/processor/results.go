package processor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/decoy/internal/policy"
)

// detectionResult is the scam classifier's answer.
type detectionResult struct {
	ScamDetected           *bool    `json:"scamDetected"`
	ScamScore              *float64 `json:"scamScore"`
	ScamType               string   `json:"scamType"`
	UrgencyLevel           string   `json:"urgencyLevel"`
	AuthorityImpersonation bool     `json:"authorityImpersonation"`
	RequestsSensitiveData  bool     `json:"requestsSensitiveData"`
	Indicators             []string `json:"indicators"`
	Reasoning              string   `json:"reasoning"`
}

func (r *detectionResult) Validate() error {
	if r.ScamDetected == nil {
		return errors.New("scamDetected missing")
	}
	if r.ScamScore == nil {
		return errors.New("scamScore missing")
	}
	if *r.ScamScore < 0 || *r.ScamScore > 1 {
		return fmt.Errorf("scamScore %v out of range", *r.ScamScore)
	}
	return nil
}

// languageResult identifies the counterparty's language.
type languageResult struct {
	LanguageCode string  `json:"languageCode"`
	LanguageName string  `json:"languageName"`
	Confidence   float64 `json:"confidence"`
	Notes        string  `json:"notes"`
}

func (r *languageResult) Validate() error {
	if !policy.Supported(strings.TrimSpace(r.LanguageCode)) {
		return fmt.Errorf("unsupported language code %q", r.LanguageCode)
	}
	return nil
}

// personaResult picks the roleplay identity for the session.
type personaResult struct {
	SelectedPersona      string   `json:"selectedPersona"`
	PersonaDescription   string   `json:"personaDescription"`
	ConversationStrategy string   `json:"conversationStrategy"`
	StrategyReasoning    string   `json:"strategyReasoning"`
	KeyBehaviors         []string `json:"keyBehaviors"`
}

func (r *personaResult) Validate() error {
	if _, ok := policy.ParsePersona(r.SelectedPersona); !ok {
		return fmt.Errorf("unknown persona %q", r.SelectedPersona)
	}
	if _, ok := policy.ParseStrategy(r.ConversationStrategy); !ok {
		return fmt.Errorf("unknown strategy %q", r.ConversationStrategy)
	}
	return nil
}

// analystResult holds the higher-level signals gathered alongside regex extraction.
type analystResult struct {
	AdditionalKeywords  []string `json:"additionalKeywords"`
	ScammerIdentity     string   `json:"scammerIdentity"`
	ManipulationTactics []string `json:"manipulationTactics"`
	ScammerGoal         string   `json:"scammerGoal"`
	AgentObservations   string   `json:"agentObservations"`
}

func (r *analystResult) Validate() error {
	if len(r.AdditionalKeywords) == 0 && len(r.ManipulationTactics) == 0 &&
		r.ScammerIdentity == "" && r.ScammerGoal == "" && r.AgentObservations == "" {
		return errors.New("no signals")
	}
	return nil
}

// decisionResult is the continue/terminate verdict.
type decisionResult struct {
	ShouldContinue    *bool   `json:"shouldContinue"`
	Reasoning         string  `json:"reasoning"`
	ConfidenceLevel   float64 `json:"confidenceLevel"`
	RecommendedAction string  `json:"recommendedAction"`
}

func (r *decisionResult) Validate() error {
	if r.ShouldContinue == nil {
		return errors.New("shouldContinue missing")
	}
	return nil
}
