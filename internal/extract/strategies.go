package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/emiliopalmerini/worktimer/internal/domain"
)

// SideNavSelector is the side-navigation anchor that carries the bare item id.
const SideNavSelector = "a.GUIDE-sideNav"

var (
	digitsOnly      = regexp.MustCompile(`^\d{6,}$`)
	digitRun        = regexp.MustCompile(`\d{6,}`)
	srMarker        = regexp.MustCompile(`(?i)\bSR[:#\s-]*([0-9]{6,})\b`)
	transactionMark = regexp.MustCompile(`(?i)\bTransaction\s*ID[:#\s-]*([0-9]{6,})\b`)
)

type selectorExtractor interface {
	Selector() string
}

// SideNav reads the id from the side-navigation anchor text.
type SideNav struct{}

func (SideNav) Name() string     { return "sidenav" }
func (SideNav) Selector() string { return SideNavSelector }

func (SideNav) Extract(c domain.PageContent) string {
	el, ok := c.Element(SideNavSelector)
	if !ok {
		return ""
	}
	t := strings.TrimSpace(el.Text)
	if digitsOnly.MatchString(t) {
		return t
	}
	return ""
}

// URLParams looks for the id in known query parameters, then in an SR marker
// in the fragment.
type URLParams struct {
	Params []string
}

func (URLParams) Name() string { return "url" }

func (e URLParams) Extract(c domain.PageContent) string {
	u, err := url.Parse(c.URL)
	if err != nil {
		return ""
	}
	q := u.Query()
	for _, k := range e.Params {
		if m := digitRun.FindString(q.Get(k)); m != "" {
			return m
		}
	}
	if u.Fragment != "" {
		return firstGroup(srMarker, u.Fragment)
	}
	return ""
}

// Title looks for an SR marker in the page title.
type Title struct{}

func (Title) Name() string { return "title" }

func (Title) Extract(c domain.PageContent) string {
	return firstGroup(srMarker, c.Title)
}

// Text scans the leading part of the body text for an SR marker, then for a
// Transaction ID marker.
type Text struct {
	Limit int
}

func (Text) Name() string { return "text" }

func (e Text) Extract(c domain.PageContent) string {
	body := truncate(c.Text, e.Limit)
	if body == "" {
		return ""
	}
	if id := firstGroup(srMarker, body); id != "" {
		return id
	}
	return firstGroup(transactionMark, body)
}

// HostMarker reads the id from a dedicated element on a recognized alternate
// host. It yields nothing on any other host.
type HostMarker struct {
	Host   string
	Marker string
}

func (e HostMarker) Name() string     { return "host:" + e.Host }
func (e HostMarker) Selector() string { return e.Marker }

func (e HostMarker) Extract(c domain.PageContent) string {
	u, err := url.Parse(c.URL)
	if err != nil || !strings.EqualFold(u.Hostname(), e.Host) {
		return ""
	}
	el, ok := c.Element(e.Marker)
	if !ok {
		return ""
	}
	for _, v := range []string{el.Text, el.Title} {
		if m := digitRun.FindString(v); m != "" {
			return m
		}
	}
	return ""
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
