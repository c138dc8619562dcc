package extract

import (
	"fmt"
	"regexp"

	"github.com/emiliopalmerini/worktimer/internal/domain"
)

// Policy is the identifier format predicate. The pattern is deployment
// configuration.
type Policy struct {
	pattern *regexp.Regexp
}

func NewPolicy(pattern string) (*Policy, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to compile id pattern: %w", err)
	}
	return &Policy{pattern: re}, nil
}

func (p *Policy) Validate(id string) error {
	if id == "" || !p.pattern.MatchString(id) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidItemID, id)
	}
	return nil
}

func (p *Policy) Valid(id string) bool {
	return p.Validate(id) == nil
}
