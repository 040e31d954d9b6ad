package ledger

import (
	"slices"
	"strings"
)

// Customer is a loyalty-program member with a running point balance.
type Customer struct {
	ID string `json:"id"`
	Profile

	// Points only ever grows, through order approval.
	Points int64 `json:"points"`
	// Level is the cached tier for Points. It may lag behind a threshold edit
	// until the next approval or recalculation.
	Level string `json:"level"`
}

// Profile holds the admin-editable descriptive fields of a customer.
type Profile struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	ClientType  string `json:"clientType"`
	AgentName   string `json:"agentName"`
	AccountType string `json:"accountType"`
}

func (p Profile) normalize() (Profile, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Location = strings.TrimSpace(p.Location)
	p.ClientType = strings.TrimSpace(p.ClientType)
	p.AgentName = strings.TrimSpace(p.AgentName)
	p.AccountType = strings.TrimSpace(p.AccountType)
	if p.Name == "" {
		return Profile{}, &ValidationError{Field: "name", Reason: "customer name is required"}
	}
	return p, nil
}

// RankingFilter narrows a ranking. Zero values match everything.
type RankingFilter struct {
	// Level matches the cached tier name exactly.
	Level string
	// Agent matches a case-insensitive substring of the responsible agent name.
	Agent string
}

// Rank returns the customers matching f ordered by points, highest first.
// Customers with equal balances keep their stored order.
func Rank(customers []Customer, f RankingFilter) []Customer {
	agent := strings.ToLower(strings.TrimSpace(f.Agent))

	out := make([]Customer, 0, len(customers))
	for _, c := range customers {
		if f.Level != "" && c.Level != f.Level {
			continue
		}
		if agent != "" && !strings.Contains(strings.ToLower(c.AgentName), agent) {
			continue
		}
		out = append(out, c)
	}

	slices.SortStableFunc(out, func(a, b Customer) int {
		switch {
		case a.Points > b.Points:
			return -1
		case a.Points < b.Points:
			return 1
		default:
			return 0
		}
	})
	return out
}

func findCustomer(customers []Customer, id string) int {
	return slices.IndexFunc(customers, func(c Customer) bool { return c.ID == id })
}
