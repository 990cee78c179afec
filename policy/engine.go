// Package policy evaluates the suggestion admission policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision values returned by the policy.
const (
	DecisionRequireApproval = "require_approval"
	DecisionAllow           = "allow"
	DecisionBlock           = "block"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// Input is the document the policy is evaluated against.
type Input struct {
	TaskID      string `json:"task_id"`
	TargetAgent string `json:"target_agent"`
	SuggestedBy string `json:"suggested_by"`
	Reasoning   string `json:"reasoning"`
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.suggestion_policy.decision"),
		rego.Module("suggestion_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the suggestion policy and returns the decision.
// Unmatched inputs fall back to requiring human approval.
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionRequireApproval, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return DecisionRequireApproval, nil
}

// DefaultPolicy is the default policy content. Every suggestion goes
// through the human gate unless a rule says otherwise.
const DefaultPolicy = `
package suggestion_policy

import rego.v1

default decision := "require_approval"

# Routine chores skip the human gate
decision := "allow" if startswith(input.task_id, "chore.")

# Work is never routed back at the coordinator itself
decision := "block" if input.target_agent == "orchestrator"
`
