package domain

import "fmt"

// TargetKind discriminates which balance namespace an adjustment applies to.
type TargetKind string

const (
	TargetDeveloper TargetKind = "developer"
	TargetTeam      TargetKind = "team"
)

// Target identifies the account whose prepaid balance a job adjusts.
// A job targets exactly one of a developer (keyed by email) or a team.
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id"`
}

// DeveloperTarget builds a target for a developer account.
func DeveloperTarget(email string) Target {
	return Target{Kind: TargetDeveloper, ID: email}
}

// TeamTarget builds a target for a team account.
func TeamTarget(id string) Target {
	return Target{Kind: TargetTeam, ID: id}
}

// Describe renders the target the way reports and notifications name it,
// e.g. "developer `dev@example.com`".
func (t Target) Describe() string {
	return fmt.Sprintf("%s `%s`", t.Kind, t.ID)
}

func (t Target) String() string {
	return t.Describe()
}
