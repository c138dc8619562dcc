package extract

import (
	"strings"

	"github.com/emiliopalmerini/worktimer/internal/domain"
)

// SectionSelector is the breadcrumb title element.
const SectionSelector = "#bcTitle"

// SectionExtractor reads the section label from a breadcrumb such as
// "Product Analysis:8317, Open". Only the name left of the first colon in the
// first comma-separated part is kept.
type SectionExtractor struct {
	selector string
}

func NewSectionExtractor(selector string) *SectionExtractor {
	return &SectionExtractor{selector: selector}
}

func (s *SectionExtractor) Extract(c domain.PageContent) string {
	el, ok := c.Element(s.selector)
	if !ok {
		return ""
	}
	raw := strings.TrimSpace(el.Title)
	if raw == "" {
		raw = strings.TrimSpace(el.Text)
	}
	if raw == "" {
		return ""
	}
	first, _, _ := strings.Cut(raw, ",")
	name, _, _ := strings.Cut(first, ":")
	return strings.TrimSpace(name)
}
