// Package extract derives the work-item identifier, section label and page
// source from a page snapshot.
package extract

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/emiliopalmerini/worktimer/internal/domain"
)

// Extractor derives a candidate item id from one page signal. An empty
// result means the signal carried nothing.
type Extractor interface {
	Name() string
	Extract(c domain.PageContent) string
}

// Candidate is the result of one scan.
type Candidate struct {
	ItemID  string
	Section string
	Source  domain.Source
}

// Set runs its extractors in order and keeps the first id the policy accepts.
type Set struct {
	extractors []Extractor
	policy     *Policy
	section    *SectionExtractor
	sources    *SourceClassifier
	selectors  []string
	logger     hclog.Logger
}

type Option func(*Set)

func WithLogger(l hclog.Logger) Option {
	return func(s *Set) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithSection(se *SectionExtractor) Option {
	return func(s *Set) { s.section = se }
}

func WithSources(sc *SourceClassifier) Option {
	return func(s *Set) { s.sources = sc }
}

// NewSet builds a set over extractors, tried in the given order.
func NewSet(policy *Policy, extractors []Extractor, opts ...Option) *Set {
	s := &Set{
		extractors: extractors,
		policy:     policy,
		section:    NewSectionExtractor(SectionSelector),
		sources:    NewSourceClassifier(nil),
		logger:     hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	seen := make(map[string]bool)
	add := func(sel string) {
		if sel != "" && !seen[sel] {
			seen[sel] = true
			s.selectors = append(s.selectors, sel)
		}
	}
	for _, e := range s.extractors {
		if se, ok := e.(selectorExtractor); ok {
			add(se.Selector())
		}
	}
	add(s.section.selector)
	return s
}

// Selectors lists the elements page adapters must capture for this set.
func (s *Set) Selectors() []string {
	return s.selectors
}

// Scan returns the item id, section and source found in c. ItemID is empty
// when no extractor produced a valid id.
func (s *Set) Scan(c domain.PageContent) Candidate {
	return Candidate{
		ItemID:  s.ItemID(c),
		Section: s.section.Extract(c),
		Source:  s.sources.Classify(c.URL),
	}
}

// ItemID runs the extractors in order.
func (s *Set) ItemID(c domain.PageContent) string {
	for _, e := range s.extractors {
		id, err := safeExtract(e, c)
		if err != nil {
			s.logger.Debug("extractor failed", "extractor", e.Name(), "error", err)
			continue
		}
		if id == "" {
			continue
		}
		if err := s.policy.Validate(id); err != nil {
			s.logger.Debug("candidate rejected", "extractor", e.Name(), "candidate", id, "error", err)
			continue
		}
		return id
	}
	return ""
}

func safeExtract(e Extractor, c domain.PageContent) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", e.Name(), r)
		}
	}()
	return e.Extract(c), nil
}
