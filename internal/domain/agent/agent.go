package agent

import (
	"context"
	"strings"

	"github.com/xenking/lester-loyalty/internal/domain/ledger"
)

// Agent is a field sales agent allowed to submit orders.
type Agent struct {
	ID          string `json:"id"`
	AgentNumber string `json:"agentNumber"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
}

// FullName returns the display name used on customer records.
func (a Agent) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Repository persists the agent collection. SaveAgents replaces it whole.
type Repository interface {
	Agents(ctx context.Context) ([]Agent, error)
	SaveAgents(ctx context.Context, agents []Agent) error
}

// Input holds the editable fields of an agent.
type Input struct {
	AgentNumber string
	FirstName   string
	LastName    string
}

func (in Input) normalize() (Input, error) {
	in.AgentNumber = strings.TrimSpace(in.AgentNumber)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	switch {
	case in.AgentNumber == "":
		return Input{}, &ledger.ValidationError{Field: "agentNumber", Reason: "agent number is required"}
	case in.LastName == "":
		return Input{}, &ledger.ValidationError{Field: "lastName", Reason: "last name is required"}
	}
	return in, nil
}
