package query

import (
	"errors"
	"fmt"
	"time"
)

// MostLikedWindow is a preset time range for the most-liked view
type MostLikedWindow string

const (
	WindowAllTime     MostLikedWindow = "alltime"
	WindowOneYear     MostLikedWindow = "1year"
	WindowSixMonths   MostLikedWindow = "6months"
	WindowThreeMonths MostLikedWindow = "3months"
	WindowOneMonth    MostLikedWindow = "1month"
	WindowOneWeek     MostLikedWindow = "1week"
)

// ErrInvalidWindow is returned for a tag outside the fixed set
var ErrInvalidWindow = errors.New("invalid option for most liked window")

// Windows lists every valid window, shortest last
func Windows() []MostLikedWindow {
	return []MostLikedWindow{
		WindowAllTime,
		WindowOneYear,
		WindowSixMonths,
		WindowThreeMonths,
		WindowOneMonth,
		WindowOneWeek,
	}
}

// allTimeStart is the fixed lower bound of the all-time window
var allTimeStart = [3]int{2000, 1, 1}

// Range returns the window anchored at now. Start is clamped to 00:00:00 of
// its day and end to 23:59:59.999 of now's day, both in now's location.
func (w MostLikedWindow) Range(now time.Time) (start, end time.Time, err error) {
	switch w {
	case WindowAllTime:
		start = time.Date(allTimeStart[0], time.Month(allTimeStart[1]), allTimeStart[2], 0, 0, 0, 0, now.Location())
	case WindowOneYear:
		start = now.AddDate(-1, 0, 0)
	case WindowSixMonths:
		start = now.AddDate(0, -6, 0)
	case WindowThreeMonths:
		start = now.AddDate(0, -3, 0)
	case WindowOneMonth:
		start = now.AddDate(0, -1, 0)
	case WindowOneWeek:
		start = now.AddDate(0, 0, -7)
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidWindow, string(w))
	}
	return startOfDay(start), endOfDay(now), nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}
