package domain

// Visibility mirrors document.visibilityState.
type Visibility string

const (
	VisibilityVisible Visibility = "visible"
	VisibilityHidden  Visibility = "hidden"
)

// Frame is an embedded iframe as rendered in the page.
type Frame struct {
	URL    string  `json:"url"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rendered reports whether the frame takes up any space on screen.
func (f Frame) Rendered() bool {
	return f.Width > 0 && f.Height > 0
}

// PageState is the cheap per-tick probe of a page.
type PageState struct {
	Visibility Visibility `json:"visibility"`
	Focused    bool       `json:"focused"`
	Frames     []Frame    `json:"frames,omitempty"`
}

// Element is the text and title attribute of the first node matching a selector.
type Element struct {
	Text  string `json:"text"`
	Title string `json:"title"`
}

// PageContent is what the extractors read on each scan.
type PageContent struct {
	URL      string             `json:"url"`
	Title    string             `json:"title"`
	Text     string             `json:"text"`
	Elements map[string]Element `json:"elements,omitempty"`
}

// Element returns the element captured for selector, if any.
func (c PageContent) Element(selector string) (Element, bool) {
	el, ok := c.Elements[selector]
	return el, ok
}

// PageEventType classifies page lifecycle notifications.
type PageEventType int

const (
	PageMutated PageEventType = iota
	PageVisibilityChanged
	PageUnloaded
)

var pageEventNames = map[PageEventType]string{
	PageMutated:           "mutation",
	PageVisibilityChanged: "visibility",
	PageUnloaded:          "unload",
}

func (t PageEventType) String() string {
	if s, ok := pageEventNames[t]; ok {
		return s
	}
	return "unknown"
}

// PageEvent is a lifecycle notification from a page adapter.
type PageEvent struct {
	Type PageEventType
}
