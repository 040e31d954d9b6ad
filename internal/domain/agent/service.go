package agent

import (
	"context"
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/lester-loyalty/internal/domain/ledger"
)

// ErrInvalidCredentials is returned by Authenticate when no agent matches.
var ErrInvalidCredentials = errors.New("invalid agent credentials")

// Service manages the agent registry.
type Service struct {
	repo  Repository
	newID func() string
}

// NewService creates an agent Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, newID: uuid.NewString}
}

// List returns all agents in stored order.
func (s *Service) List(ctx context.Context) ([]Agent, error) {
	agents, err := s.repo.Agents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load agents")
	}
	return agents, nil
}

// Get returns a single agent by id.
func (s *Service) Get(ctx context.Context, id string) (*Agent, error) {
	agents, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	i := findAgent(agents, id)
	if i < 0 {
		return nil, &ledger.NotFoundError{Kind: "agent", ID: id}
	}
	a := agents[i]
	return &a, nil
}

// Create registers a new agent. Agent numbers are unique.
func (s *Service) Create(ctx context.Context, in Input) (*Agent, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	agents, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkNumber(agents, in.AgentNumber, ""); err != nil {
		return nil, err
	}

	a := Agent{ID: s.newID(), AgentNumber: in.AgentNumber, FirstName: in.FirstName, LastName: in.LastName}
	if err := s.repo.SaveAgents(ctx, append(slices.Clone(agents), a)); err != nil {
		return nil, errors.Wrap(err, "save agents")
	}
	return &a, nil
}

// Update replaces the editable fields of an agent.
func (s *Service) Update(ctx context.Context, id string, in Input) (*Agent, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	agents, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	i := findAgent(agents, id)
	if i < 0 {
		return nil, &ledger.NotFoundError{Kind: "agent", ID: id}
	}
	if err := checkNumber(agents, in.AgentNumber, id); err != nil {
		return nil, err
	}

	agents = slices.Clone(agents)
	agents[i] = Agent{ID: id, AgentNumber: in.AgentNumber, FirstName: in.FirstName, LastName: in.LastName}
	if err := s.repo.SaveAgents(ctx, agents); err != nil {
		return nil, errors.Wrap(err, "save agents")
	}
	a := agents[i]
	return &a, nil
}

// Delete removes an agent. Orders it submitted keep its id.
func (s *Service) Delete(ctx context.Context, id string) error {
	agents, err := s.List(ctx)
	if err != nil {
		return err
	}
	i := findAgent(agents, id)
	if i < 0 {
		return &ledger.NotFoundError{Kind: "agent", ID: id}
	}
	if err := s.repo.SaveAgents(ctx, slices.Delete(slices.Clone(agents), i, i+1)); err != nil {
		return errors.Wrap(err, "save agents")
	}
	return nil
}

// Authenticate resolves an agent from its number and last name. The number
// must match exactly after trimming; the last name is compared
// case-insensitively.
func (s *Service) Authenticate(ctx context.Context, number, lastName string) (*Agent, error) {
	number = strings.TrimSpace(number)
	lastName = strings.TrimSpace(lastName)
	if number == "" || lastName == "" {
		return nil, ErrInvalidCredentials
	}

	agents, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range agents {
		if a.AgentNumber == number && strings.EqualFold(a.LastName, lastName) {
			return &a, nil
		}
	}
	return nil, ErrInvalidCredentials
}

func findAgent(agents []Agent, id string) int {
	return slices.IndexFunc(agents, func(a Agent) bool { return a.ID == id })
}

func checkNumber(agents []Agent, number, selfID string) error {
	for _, a := range agents {
		if a.AgentNumber == number && a.ID != selfID {
			return &ledger.ValidationError{Field: "agentNumber", Reason: "agent number " + number + " is already registered"}
		}
	}
	return nil
}
