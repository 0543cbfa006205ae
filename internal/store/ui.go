package store

import "threadview/internal/models"

// UI is the presentation side of the store. Actions that need the view to do
// something beyond re-rendering call through it.
type UI interface {
	// SetStaffClasses toggles staff-only styling.
	SetStaffClasses(isStaff bool)
	// ReloadPage asks the view to reload rather than reset in place.
	ReloadPage()
	// LayoutChanged reports a flip between the vertical and 2D tree layout.
	LayoutChanged(horizontal bool)
	// RestartGifs re-arms click-to-play on animated images after a render.
	RestartGifs()
	// RenderedHeight is the post's height in pixels as last rendered, or 0
	// if unknown.
	RenderedHeight(postID models.PostID) int
}

// NoopUI ignores every effect and knows no heights.
type NoopUI struct{}

func (NoopUI) SetStaffClasses(bool)             {}
func (NoopUI) ReloadPage()                      {}
func (NoopUI) LayoutChanged(bool)               {}
func (NoopUI) RestartGifs()                     {}
func (NoopUI) RenderedHeight(models.PostID) int { return 0 }
