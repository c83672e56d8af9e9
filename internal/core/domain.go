package core

import (
	"errors"
	"strings"
	"time"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

type (
	// Kind classifies a category or transaction as money in or money out.
	Kind string

	// Period is the time window a budget limit applies to.
	Period string

	// Date is a calendar date with no time-of-day semantics. The embedded
	// time.Time is always midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Category is a named bucket transactions are classified under.
	// The ID is stable once any transaction references it.
	Category struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Icon  string `json:"icon"`
		Color string `json:"color"`
		Kind  Kind   `json:"type"`
	}

	// Transaction is a single dated money movement. Amount is always a
	// non-negative magnitude; the direction lives in Kind.
	Transaction struct {
		ID          string    `json:"id"`
		Description string    `json:"description"`
		Amount      Money     `json:"amount"`
		Kind        Kind      `json:"type"`
		CategoryID  string    `json:"category"`
		Date        Date      `json:"date"`
		Notes       string    `json:"notes,omitempty"`
		Tags        []string  `json:"tags,omitempty"`
		Location    string    `json:"location,omitempty"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}

	// Budget is a per-category spending ceiling for a period.
	Budget struct {
		Amount    Money     `json:"amount"`
		Period    Period    `json:"period"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// Settings are user preferences carried opaquely by the core.
	Settings struct {
		Theme            string    `json:"theme"`
		Language         string    `json:"language"`
		DailyReminder    bool      `json:"dailyReminder"`
		LocationTracking bool      `json:"locationTracking"`
		AutoCategorize   bool      `json:"autoCategorize"`
		InstallationDate time.Time `json:"installationDate"`
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInUse            = errors.New("category has transactions")
	ErrInvalidRange     = errors.New("invalid date range")
	ErrInvalidImport    = errors.New("invalid import payload")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKind      = errors.New("invalid kind")
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyIcon        = errors.New("empty icon")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrNotExpenseKind   = errors.New("budgets apply to expense categories only")
	ErrEmptyDescription = errors.New("empty description")
)

// DefaultSettings returns the settings a fresh data root starts with.
func DefaultSettings(now time.Time) Settings {
	return Settings{
		Theme:            "auto",
		Language:         "en",
		DailyReminder:    true,
		LocationTracking: false,
		AutoCategorize:   true,
		InstallationDate: now,
	}
}

func (k Kind) Validate() error {
	switch k {
	case KindIncome, KindExpense:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (p Period) Validate() error {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodYearly:
		return nil
	default:
		return ErrInvalidPeriod
	}
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO calendar date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t.UTC()}, nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// MonthKey returns the calendar month the date falls in, as "2006-01".
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(c.Icon) == "" {
		return ErrEmptyIcon
	}
	return c.Kind.Validate()
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrUnknownCategory
	}
	return nil
}

func (b Budget) Validate() error {
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	return b.Period.Validate()
}
