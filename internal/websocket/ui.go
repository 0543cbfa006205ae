package websocket

import (
	"encoding/json"
	"sync"

	"threadview/internal/models"
)

// UIEffect asks viewers to do something besides re-rendering.
type UIEffect struct {
	Type       string `json:"type"`
	Effect     string `json:"effect"`
	IsStaff    *bool  `json:"isStaff,omitempty"`
	Horizontal *bool  `json:"horizontal,omitempty"`
}

const (
	EffectStaffClasses  = "staffClasses"
	EffectReloadPage    = "reloadPage"
	EffectLayoutChanged = "layoutChanged"
	EffectRestartGifs   = "restartGifs"
)

// heightReport is the one frame viewers send: rendered post heights in
// pixels, keyed by post id.
type heightReport struct {
	Type    string                `json:"type"`
	Heights map[models.PostID]int `json:"heights"`
}

// RemoteUI forwards store UI effects to every connected viewer and keeps
// the post heights viewers report. Heights are shared across viewers; the
// latest report wins.
type RemoteUI struct {
	hub *Hub

	mu      sync.RWMutex
	heights map[models.PostID]int
}

// NewRemoteUI wires a RemoteUI to hub, including the hub's inbound frames.
func NewRemoteUI(hub *Hub) *RemoteUI {
	ui := &RemoteUI{
		hub:     hub,
		heights: make(map[models.PostID]int),
	}
	hub.inbound = ui.handleInbound
	return ui
}

func (ui *RemoteUI) SetStaffClasses(isStaff bool) {
	ui.hub.broadcastJSON(UIEffect{Type: "effect", Effect: EffectStaffClasses, IsStaff: &isStaff})
}

func (ui *RemoteUI) ReloadPage() {
	ui.hub.broadcastJSON(UIEffect{Type: "effect", Effect: EffectReloadPage})
}

func (ui *RemoteUI) LayoutChanged(horizontal bool) {
	ui.hub.broadcastJSON(UIEffect{Type: "effect", Effect: EffectLayoutChanged, Horizontal: &horizontal})
}

func (ui *RemoteUI) RestartGifs() {
	ui.hub.broadcastJSON(UIEffect{Type: "effect", Effect: EffectRestartGifs})
}

func (ui *RemoteUI) RenderedHeight(postID models.PostID) int {
	ui.mu.RLock()
	defer ui.mu.RUnlock()
	return ui.heights[postID]
}

func (ui *RemoteUI) handleInbound(c *Client, payload []byte) {
	var report heightReport
	if err := json.Unmarshal(payload, &report); err != nil || report.Type != "heights" {
		ui.hub.logger.Debug("unrecognized viewer frame", "viewer_id", c.ViewerID)
		return
	}
	ui.mu.Lock()
	defer ui.mu.Unlock()
	for postID, height := range report.Heights {
		ui.heights[postID] = height
	}
}
