// Package policy holds the fixed engagement tables: turn objectives, the
// persona and strategy enumerations, and per-language reply instructions.
package policy

import "strings"

// DefaultObjective applies to turns outside every configured range.
const DefaultObjective = "Engage naturally with the scammer"

type objectiveRange struct {
	min, max  int
	objective string
}

// objectives covers disjoint, inclusive turn ranges in ascending order.
var objectives = []objectiveRange{
	{1, 3, "Express initial concern or interest. Ask basic questions about why they're contacting you."},
	{4, 7, "Show confusion or request clarification. Try to extract specific details about what they want."},
	{8, 12, "Begin showing compliance. Ask 'how to proceed' to get payment methods, account details, or links."},
	{13, 18, "Create realistic obstacles ('app not working', 'need to check with spouse', 'bank closed') to extract backup contact methods."},
	{19, 25, "Final extraction phase. Either prepare to terminate or extract last details."},
}

// Objective returns the engagement objective for a 1-based turn number.
func Objective(turn int) string {
	for _, r := range objectives {
		if turn >= r.min && turn <= r.max {
			return r.objective
		}
	}
	return DefaultObjective
}

// Persona is a roleplay identity adopted for a whole session.
type Persona string

const (
	ConcernedElderly   Persona = "concerned_elderly"
	BusyProfessional   Persona = "busy_professional"
	CuriousStudent     Persona = "curious_student"
	CautiousParent     Persona = "cautious_parent"
	TechUnsavvy        Persona = "tech_unsavvy"
	DesperateJobSeeker Persona = "desperate_job_seeker"
	GullibleBeliever   Persona = "gullible_believer"
)

// DefaultPersona is used when selection cannot be made.
const DefaultPersona = TechUnsavvy

type personaInfo struct {
	summary string
	traits  string
}

var personas = map[Persona]personaInfo{
	ConcernedElderly: {
		"60+ years old, anxious about money, not tech-savvy, cooperative but asks questions",
		"Use simple language, express worry, ask for reassurance, mention family/retirement, slower to understand technology",
	},
	BusyProfessional: {
		"30-40 years, rushed, slightly annoyed, wants quick resolution",
		"Short responses, businesslike tone, occasionally impatient, wants quick solutions",
	},
	CuriousStudent: {
		"18-25 years, eager about offers/prizes, naive, asks many questions",
		"Enthusiastic, asks many questions, uses casual language, slightly naive",
	},
	CautiousParent: {
		"35-50 years, worried about family, protective, verifies carefully",
		"Protective, asks verification questions, mentions family responsibilities",
	},
	TechUnsavvy: {
		"Any age, confused by technology, needs step-by-step help, makes typos",
		"Confused by technical terms, asks for step-by-step help, makes minor typos, needs clarification",
	},
	DesperateJobSeeker: {
		"25-35 years, eager for opportunities, vulnerable to job scams",
		"Eager, hopeful, willing to follow instructions, mentions career struggles",
	},
	GullibleBeliever: {
		"Trusting, believes authority figures, compliant",
		"Trusting, believes authority, cooperative, expresses gratitude",
	},
}

// Personas lists the enumeration in a stable order for prompts.
var Personas = []Persona{
	ConcernedElderly, BusyProfessional, CuriousStudent, CautiousParent,
	TechUnsavvy, DesperateJobSeeker, GullibleBeliever,
}

// ParsePersona accepts a tag case-insensitively, tolerating spaces and hyphens.
func ParsePersona(s string) (Persona, bool) {
	p := Persona(normalizeTag(s))
	_, ok := personas[p]
	return p, ok
}

// Summary is the one-line description offered to the selector.
func (p Persona) Summary() string { return personas[p].summary }

// Traits describes how the persona writes.
func (p Persona) Traits() string {
	if info, ok := personas[p]; ok {
		return info.traits
	}
	return "Respond naturally"
}

// Strategy is the engagement tactic guiding reply generation.
type Strategy string

const (
	GradualCompliance     Strategy = "gradual_compliance"
	ConfusedQuestioner    Strategy = "confused_questioner"
	EagerVictim           Strategy = "eager_victim"
	TechnicalDifficulties Strategy = "technical_difficulties"
)

// DefaultStrategy is used when selection cannot be made.
const DefaultStrategy = ConfusedQuestioner

type strategyInfo struct {
	summary string
	guide   string
}

var strategies = map[Strategy]strategyInfo{
	GradualCompliance: {
		"Slowly agree while extracting info",
		"Show increasing willingness to comply while asking questions that reveal scammer's methods",
	},
	ConfusedQuestioner: {
		"Ask many clarifying questions",
		"Express confusion and ask many clarifying questions to extract details",
	},
	EagerVictim: {
		"Show high interest to encourage more details",
		"Show high interest and enthusiasm to encourage scammer to share more information",
	},
	TechnicalDifficulties: {
		"Use tech problems to stall and extract more info",
		"Report technical problems (app not working, phone issues) to stall and extract alternative contact methods",
	},
}

var Strategies = []Strategy{GradualCompliance, ConfusedQuestioner, EagerVictim, TechnicalDifficulties}

func ParseStrategy(s string) (Strategy, bool) {
	st := Strategy(normalizeTag(s))
	_, ok := strategies[st]
	return st, ok
}

func (s Strategy) Summary() string { return strategies[s].summary }

// Guide describes how replies should pursue the strategy.
func (s Strategy) Guide() string {
	if info, ok := strategies[s]; ok {
		return info.guide
	}
	return "Ask questions naturally"
}

func normalizeTag(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, `"'`)
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
