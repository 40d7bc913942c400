// Package template defines named debate configurations.
package template

import (
	"github.com/arbiterhq/arbiter/internal/domain/debate"
	"github.com/arbiterhq/arbiter/internal/domain/specialty"
)

// Template is a named preset of debate parameters plus a prompt preamble.
// Applying one temporarily overrides the council configuration for a
// single debate.
type Template struct {
	ID                  string                `json:"id"`
	Name                string                `json:"name"`
	Description         string                `json:"description"`
	RequiredSpecialties []specialty.Specialty `json:"requiredSpecialties,omitempty"`
	ConsensusMode       debate.ConsensusMode  `json:"consensusMode"`
	DebateRounds        int                   `json:"debateRounds"`
	ConsensusThreshold  float64               `json:"consensusThreshold"`
	SystemPrompt        string                `json:"systemPrompt,omitempty"`
}

// BuiltIns returns the immutable built-in templates. Callers receive a
// fresh slice on every call so the built-ins cannot be mutated.
func BuiltIns() []Template {
	return []Template{
		{
			ID:                  "quick-check",
			Name:                "Quick Check",
			Description:         "Single-round majority review for low-risk changes",
			ConsensusMode:       debate.ModeSimpleMajority,
			DebateRounds:        1,
			ConsensusThreshold:  0.5,
			SystemPrompt:        "Review this change briefly. Focus on obvious defects only.",
			RequiredSpecialties: nil,
		},
		{
			ID:                  "security-audit",
			Name:                "Security Audit",
			Description:         "Deep security review requiring unanimity",
			RequiredSpecialties: []specialty.Specialty{specialty.Security},
			ConsensusMode:       debate.ModeUnanimous,
			DebateRounds:        3,
			ConsensusThreshold:  1.0,
			SystemPrompt:        "You are reviewing for security impact. Treat any exploitable path as grounds for rejection.",
		},
		{
			ID:                  "architecture-review",
			Name:                "Architecture Review",
			Description:         "Weighted multi-round review for structural changes",
			RequiredSpecialties: []specialty.Specialty{specialty.Architecture},
			ConsensusMode:       debate.ModeWeighted,
			DebateRounds:        3,
			ConsensusThreshold:  0.6,
			SystemPrompt:        "Evaluate long-term maintainability and coupling, not just correctness.",
		},
		{
			ID:                  "performance-review",
			Name:                "Performance Review",
			Description:         "Supermajority review for performance-sensitive changes",
			RequiredSpecialties: []specialty.Specialty{specialty.Performance},
			ConsensusMode:       debate.ModeSupermajority,
			DebateRounds:        2,
			ConsensusThreshold:  0.66,
			SystemPrompt:        "Consider latency, allocation behavior, and scalability under load.",
		},
		{
			ID:                  "lead-decides",
			Name:                "Lead Decides",
			Description:         "Advisory debate with the lead reviewer making the call",
			ConsensusMode:       debate.ModeCEOOverride,
			DebateRounds:        2,
			ConsensusThreshold:  0.5,
			SystemPrompt:        "Provide your honest assessment; the lead reviewer will make the final decision.",
		},
	}
}
