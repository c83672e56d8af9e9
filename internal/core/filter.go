package core

import (
	"sort"
	"time"
)

const (
	ModeAllTime     FilterMode = "all"
	ModeSingleMonth FilterMode = "month"
	ModeCustomRange FilterMode = "custom"
)

// FilterMode names the active time-window selection strategy.
type FilterMode string

// Selection is the transient time-window filter. Exactly one mode is
// active; the zero value is not valid, use AllTime.
type Selection struct {
	Mode     FilterMode `json:"mode"`
	MonthKey string     `json:"monthKey,omitempty"`
	From     Date       `json:"from,omitempty"`
	To       Date       `json:"to,omitempty"`
}

// AllTime selects the whole history.
func AllTime() Selection {
	return Selection{Mode: ModeAllTime}
}

// SingleMonth selects one calendar month by its "2006-01" key.
func SingleMonth(monthKey string) (Selection, error) {
	if _, err := time.Parse("2006-01", monthKey); err != nil {
		return Selection{}, ErrInvalidRange
	}
	return Selection{Mode: ModeSingleMonth, MonthKey: monthKey}, nil
}

// CustomRange selects an inclusive date range. Both endpoints are
// required and from must not be after to.
func CustomRange(from, to Date) (Selection, error) {
	if from.IsZero() || to.IsZero() || from.After(to) {
		return Selection{}, ErrInvalidRange
	}
	return Selection{Mode: ModeCustomRange, From: from, To: to}, nil
}

// Key is a stable cache identity for the selection.
func (s Selection) Key() string {
	switch s.Mode {
	case ModeSingleMonth:
		return "month:" + s.MonthKey
	case ModeCustomRange:
		return "custom:" + s.From.String() + ":" + s.To.String()
	default:
		return "all"
	}
}

// Apply filters transactions to the selection's window. AllTime passes
// everything through; custom ranges are inclusive on both ends.
func (s Selection) Apply(txs []Transaction) []Transaction {
	switch s.Mode {
	case ModeSingleMonth:
		out := make([]Transaction, 0, len(txs))
		for _, t := range txs {
			if t.Date.MonthKey() == s.MonthKey {
				out = append(out, t)
			}
		}
		return out
	case ModeCustomRange:
		out := make([]Transaction, 0, len(txs))
		for _, t := range txs {
			if t.Date.Before(s.From) || t.Date.After(s.To) {
				continue
			}
			out = append(out, t)
		}
		return out
	default:
		out := make([]Transaction, len(txs))
		copy(out, txs)
		return out
	}
}

// MonthKeys enumerates the selectable months: the trailing 12, the
// current month, and the following 11, plus any month that holds a
// transaction outside that window. Sorted descending, so the most recent
// month comes first.
func MonthKeys(txs []Transaction, now time.Time) []string {
	seen := make(map[string]struct{})
	for _, t := range txs {
		seen[t.Date.MonthKey()] = struct{}{}
	}
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := -12; i <= 11; i++ {
		seen[current.AddDate(0, i, 0).Format("2006-01")] = struct{}{}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys
}
