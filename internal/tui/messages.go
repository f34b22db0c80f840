package tui

import (
	"github.com/mmcdole/galleria/internal/domain"
	"github.com/mmcdole/galleria/internal/gallery"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// ItemsLoadedMsg signals that a page has been fetched
type ItemsLoadedMsg struct {
	Items    *gallery.Items
	Snapshot gallery.ItemsSnapshot
}

// FetchFailedMsg signals that a page fetch failed
type FetchFailedMsg struct {
	Items *gallery.Items
	Err   error
}

// LikeToggledMsg signals that a like toggle finished. Change is applied
// to the liker's item in Update.
type LikeToggledMsg struct {
	Liker  *gallery.Liker
	Change gallery.LikeChange
}

// SessionChangedMsg signals that the auth session or uploader profile changed
type SessionChangedMsg struct{}

// OpenedMsg signals that a file was handed to a viewer
type OpenedMsg struct {
	Title string
}

// NotificationMsg carries a notification raised by the core
type NotificationMsg struct {
	Notification domain.Notification
}

// TickMsg is sent periodically for spinner animation
type TickMsg struct{}

// ClearStatusMsg clears the status line
type ClearStatusMsg struct {
	// seq matches the status it was scheduled for; newer statuses survive
	seq int
}
