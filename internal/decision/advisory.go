package decision

import (
	"context"

	"github.com/AustinJR6/LysaraInvestments/internal/market"
)

// Advice is the outcome of consulting an external advisor. The zero
// value is LocalOnly: no advisory input, the local decision stands.
type Advice struct {
	advisory   bool
	action     Action
	confidence float64
	reason     string
}

// LocalOnly returns the advice variant carrying no advisory input.
func LocalOnly() Advice {
	return Advice{}
}

// Advisory returns advice carrying an external recommendation.
func Advisory(action Action, confidence float64, reason string) Advice {
	return Advice{
		advisory:   true,
		action:     action,
		confidence: confidence,
		reason:     reason,
	}
}

// IsAdvisory reports whether the advice carries a recommendation.
func (a Advice) IsAdvisory() bool {
	return a.advisory
}

// Advisor is an external strategist consulted after the local decision
// is formed. Implementations are collaborators (an LLM client, a
// remote service); errors degrade to LocalOnly rather than blocking
// the cycle.
type Advisor interface {
	Advise(ctx context.Context, snapshot market.MarketSnapshot, local Decision) (Advice, error)
}

// merge folds advice into a local decision. The advisory action and
// confidence win only when the advisor is at least as confident as the
// local verdict; either way the reasoning trail records that the
// advisor was consulted. Pure: the input decision is not mutated.
func merge(d Decision, a Advice) Decision {
	if !a.advisory {
		return d
	}

	if a.action != "" && a.confidence >= d.Confidence {
		d.Action = a.action
		d.Confidence = a.confidence
		d.Reasoning += " | " + a.reason
		d.Order.Side = d.Action.Side()
		d.Order.Confidence = d.Confidence
		return d
	}

	d.Reasoning += " | external advisor considered"
	return d
}
