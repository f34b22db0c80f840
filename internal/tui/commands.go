package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/galleria/internal/domain"
	"github.com/mmcdole/galleria/internal/gallery"
)

const requestTimeout = 30 * time.Second

// Opener shows a file URL to the user
type Opener interface {
	Open(url string) error
}

// FetchCmd loads one page of items
func FetchCmd(items *gallery.Items, page int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if err := items.Fetch(ctx, page); err != nil {
			return FetchFailedMsg{Items: items, Err: err}
		}
		return ItemsLoadedMsg{Items: items, Snapshot: items.Snapshot()}
	}
}

// ToggleLikeCmd toggles the like of the liker's content. Failures are
// reported by the core through the notifier.
func ToggleLikeCmd(liker *gallery.Liker) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		change, err := liker.Toggle(ctx)
		if err != nil {
			return nil
		}
		return LikeToggledMsg{Liker: liker, Change: change}
	}
}

// OpenCmd hands a file URL to the opener
func OpenCmd(opener Opener, url, title string) tea.Cmd {
	return func() tea.Msg {
		if err := opener.Open(url); err != nil {
			return ErrMsg{Err: err, Context: "opening " + title}
		}
		return OpenedMsg{Title: title}
	}
}

// WaitForNotificationCmd delivers the next core notification
func WaitForNotificationCmd(ch <-chan domain.Notification) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return NotificationMsg{Notification: n}
	}
}

// WaitForSessionChangeCmd delivers the next session change signal
func WaitForSessionChangeCmd(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return SessionChangedMsg{}
	}
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(seq int, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return ClearStatusMsg{seq: seq}
	})
}
