// Package feed receives page activity from an injected script over a
// websocket. Each connection is one loaded page.
package feed

import (
	_ "embed"

	"github.com/emiliopalmerini/worktimer/internal/domain"
)

// Shim is the script pages load to stream their activity to /ws.
//
//go:embed shim.js
var Shim []byte

const (
	MsgState       = "state"
	MsgContent     = "content"
	MsgInteraction = "interaction"
	MsgMutation    = "mutation"
	MsgVisibility  = "visibility"
	MsgUnload      = "unload"

	MsgScanRequest = "scan_request"
)

// Message is one frame from the page.
type Message struct {
	Type    string              `json:"type"`
	State   *domain.PageState   `json:"state,omitempty"`
	Content *domain.PageContent `json:"content,omitempty"`
	// At is the interaction time in unix milliseconds.
	At int64 `json:"at,omitempty"`
}

// ScanRequest tells the page which selectors to capture.
type ScanRequest struct {
	Type      string   `json:"type"`
	Selectors []string `json:"selectors"`
	TextLimit int      `json:"text_limit"`
}
