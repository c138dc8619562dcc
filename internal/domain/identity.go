package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrInvalidEmail  = errors.New("invalid email")
	ErrInvalidTeam   = errors.New("invalid team")
	ErrInvalidItemID = errors.New("invalid item id")
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Identity is the operator the events are reported for.
type Identity struct {
	Email string
	Team  string
}

// Normalize trims surrounding whitespace from both fields.
func (i Identity) Normalize() Identity {
	return Identity{
		Email: strings.TrimSpace(i.Email),
		Team:  strings.TrimSpace(i.Team),
	}
}

// Validate checks the email format and that the team is one of teams.
func (i Identity) Validate(teams []string) error {
	if !emailPattern.MatchString(i.Email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, i.Email)
	}
	for _, t := range teams {
		if t == i.Team {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidTeam, i.Team)
}

// Valid is Validate without the reason.
func (i Identity) Valid(teams []string) bool {
	return i.Validate(teams) == nil
}
