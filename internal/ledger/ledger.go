// Package ledger holds the single in-memory data root and the mutation
// operations over it: categories, transactions, and budget entries.
//
// The ledger itself is not safe for concurrent use; the service layer
// serializes access. Failed operations leave the data root untouched.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

// DataRoot is everything the application persists, replaced wholesale on
// import and cleared wholesale on reset.
type DataRoot struct {
	Transactions []core.Transaction     `json:"transactions"`
	Categories   []core.Category        `json:"categories"`
	Budgets      map[string]core.Budget `json:"budgets"`
	Settings     core.Settings          `json:"settings"`
}

// Clone returns a deep copy of the data root, so callers can hold on
// to it without aliasing the original's slices and budget map.
func (r DataRoot) Clone() DataRoot {
	return copyRoot(r)
}

// NewDataRoot returns an empty data root with default settings.
func NewDataRoot(now time.Time) DataRoot {
	return DataRoot{
		Transactions: []core.Transaction{},
		Categories:   []core.Category{},
		Budgets:      map[string]core.Budget{},
		Settings:     core.DefaultSettings(now),
	}
}

// Ledger wraps a data root with the store operations.
type Ledger struct {
	root DataRoot
	now  func() time.Time
}

// New creates a ledger over the given data root. nowFn may be nil for
// wall-clock time.
func New(root DataRoot, nowFn func() time.Time) *Ledger {
	if nowFn == nil {
		nowFn = time.Now
	}
	if root.Budgets == nil {
		root.Budgets = map[string]core.Budget{}
	}
	return &Ledger{root: root, now: nowFn}
}

// Root returns a deep copy of the data root, safe to hand out.
func (l *Ledger) Root() DataRoot {
	return copyRoot(l.root)
}

// Replace swaps in a new data root wholesale.
func (l *Ledger) Replace(root DataRoot) {
	if root.Budgets == nil {
		root.Budgets = map[string]core.Budget{}
	}
	l.root = copyRoot(root)
}

// Reset clears the data root back to empty defaults and reseeds the
// default categories.
func (l *Ledger) Reset() {
	l.root = NewDataRoot(l.now())
	l.SeedDefaults()
}

func copyRoot(root DataRoot) DataRoot {
	out := DataRoot{
		Transactions: make([]core.Transaction, len(root.Transactions)),
		Categories:   make([]core.Category, len(root.Categories)),
		Budgets:      make(map[string]core.Budget, len(root.Budgets)),
		Settings:     root.Settings,
	}
	copy(out.Transactions, root.Transactions)
	copy(out.Categories, root.Categories)
	for i, t := range out.Transactions {
		if len(t.Tags) > 0 {
			tags := make([]string, len(t.Tags))
			copy(tags, t.Tags)
			out.Transactions[i].Tags = tags
		}
	}
	for k, v := range root.Budgets {
		out.Budgets[k] = v
	}
	return out
}

// defaultCategories is the fixed seed set for a fresh data root.
var defaultCategories = []core.Category{
	{ID: "food", Name: "Food", Icon: "🍕", Color: "#FF6B6B", Kind: core.KindExpense},
	{ID: "transport", Name: "Transport", Icon: "🚗", Color: "#4ECDC4", Kind: core.KindExpense},
	{ID: "shopping", Name: "Shopping", Icon: "🛒", Color: "#45B7D1", Kind: core.KindExpense},
	{ID: "entertainment", Name: "Entertainment", Icon: "🎬", Color: "#96CEB4", Kind: core.KindExpense},
	{ID: "bills", Name: "Bills", Icon: "📄", Color: "#FFEAA7", Kind: core.KindExpense},
	{ID: "salary", Name: "Salary", Icon: "💰", Color: "#6C5CE7", Kind: core.KindIncome},
	{ID: "freelance", Name: "Freelance", Icon: "💼", Color: "#A29BFE", Kind: core.KindIncome},
}

// SeedDefaults populates the category store with the built-in set when it
// is empty. Calling it again is a no-op.
func (l *Ledger) SeedDefaults() bool {
	if len(l.root.Categories) > 0 {
		return false
	}
	l.root.Categories = append(l.root.Categories, defaultCategories...)
	return true
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

// CreateCategory appends a new category with a fresh id.
func (l *Ledger) CreateCategory(name, icon, color string, kind core.Kind) (core.Category, error) {
	cat := core.Category{
		ID:    uuid.NewString(),
		Name:  strings.TrimSpace(name),
		Icon:  strings.TrimSpace(icon),
		Color: strings.TrimSpace(color),
		Kind:  kind,
	}
	if err := cat.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("validate category: %w", err)
	}
	l.root.Categories = append(l.root.Categories, cat)
	return cat, nil
}

// UpdateCategory replaces the category in place, keeping its id. A
// category changed away from the expense kind loses its budget entry,
// since budgets only apply to expense categories.
func (l *Ledger) UpdateCategory(id string, name, icon, color string, kind core.Kind) (core.Category, error) {
	i := l.categoryIndex(id)
	if i < 0 {
		return core.Category{}, fmt.Errorf("update category %s: %w", id, core.ErrNotFound)
	}
	cat := core.Category{
		ID:    id,
		Name:  strings.TrimSpace(name),
		Icon:  strings.TrimSpace(icon),
		Color: strings.TrimSpace(color),
		Kind:  kind,
	}
	if err := cat.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("validate category: %w", err)
	}
	l.root.Categories[i] = cat
	if kind != core.KindExpense {
		delete(l.root.Budgets, id)
	}
	return cat, nil
}

// DeleteCategory removes a category and cascades its budget entry. It
// fails with ErrInUse while any transaction still references the id.
func (l *Ledger) DeleteCategory(id string) error {
	i := l.categoryIndex(id)
	if i < 0 {
		return fmt.Errorf("delete category %s: %w", id, core.ErrNotFound)
	}
	for _, t := range l.root.Transactions {
		if t.CategoryID == id {
			return fmt.Errorf("delete category %s: %w", id, core.ErrInUse)
		}
	}
	l.root.Categories = append(l.root.Categories[:i], l.root.Categories[i+1:]...)
	delete(l.root.Budgets, id)
	return nil
}

// Category looks a category up by id.
func (l *Ledger) Category(id string) (core.Category, bool) {
	i := l.categoryIndex(id)
	if i < 0 {
		return core.Category{}, false
	}
	return l.root.Categories[i], true
}

func (l *Ledger) categoryIndex(id string) int {
	for i, c := range l.root.Categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

// TransactionInput carries the user-provided fields of a transaction.
type TransactionInput struct {
	Description string
	Amount      core.Money
	Kind        core.Kind
	CategoryID  string
	Date        core.Date
	Notes       string
	Tags        []string
	Location    string
}

// CreateTransaction validates the input, including that the category
// exists, and appends a new transaction.
func (l *Ledger) CreateTransaction(in TransactionInput) (core.Transaction, error) {
	now := l.now().UTC()
	t := core.Transaction{
		ID:          uuid.NewString(),
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Kind:        in.Kind,
		CategoryID:  in.CategoryID,
		Date:        in.Date,
		Notes:       in.Notes,
		Tags:        in.Tags,
		Location:    in.Location,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}
	if l.categoryIndex(t.CategoryID) < 0 {
		return core.Transaction{}, fmt.Errorf("transaction category %s: %w", t.CategoryID, core.ErrUnknownCategory)
	}
	l.root.Transactions = append(l.root.Transactions, t)
	return t, nil
}

// UpdateTransaction replaces the stored fields, preserving id and
// creation time.
func (l *Ledger) UpdateTransaction(id string, in TransactionInput) (core.Transaction, error) {
	i := l.transactionIndex(id)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", id, core.ErrNotFound)
	}
	t := l.root.Transactions[i]
	updated := core.Transaction{
		ID:          t.ID,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Kind:        in.Kind,
		CategoryID:  in.CategoryID,
		Date:        in.Date,
		Notes:       in.Notes,
		Tags:        in.Tags,
		Location:    in.Location,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   l.now().UTC(),
	}
	if err := updated.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}
	if l.categoryIndex(updated.CategoryID) < 0 {
		return core.Transaction{}, fmt.Errorf("transaction category %s: %w", updated.CategoryID, core.ErrUnknownCategory)
	}
	l.root.Transactions[i] = updated
	return updated, nil
}

// DeleteTransaction removes a transaction by id.
func (l *Ledger) DeleteTransaction(id string) error {
	i := l.transactionIndex(id)
	if i < 0 {
		return fmt.Errorf("delete transaction %s: %w", id, core.ErrNotFound)
	}
	l.root.Transactions = append(l.root.Transactions[:i], l.root.Transactions[i+1:]...)
	return nil
}

func (l *Ledger) transactionIndex(id string) int {
	for i, t := range l.root.Transactions {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Budgets
// ---------------------------------------------------------------------------

// SetBudget stores a spending limit for an expense category.
func (l *Ledger) SetBudget(categoryID string, amount core.Money, period core.Period) (core.Budget, error) {
	cat, ok := l.Category(categoryID)
	if !ok {
		return core.Budget{}, fmt.Errorf("budget category %s: %w", categoryID, core.ErrNotFound)
	}
	if cat.Kind != core.KindExpense {
		return core.Budget{}, fmt.Errorf("budget category %s: %w", categoryID, core.ErrNotExpenseKind)
	}
	b := core.Budget{Amount: amount, Period: period, CreatedAt: l.now().UTC()}
	if err := b.Validate(); err != nil {
		return core.Budget{}, fmt.Errorf("validate budget: %w", err)
	}
	l.root.Budgets[categoryID] = b
	return b, nil
}

// RemoveBudget drops the budget entry for a category, if any.
func (l *Ledger) RemoveBudget(categoryID string) error {
	if _, ok := l.root.Budgets[categoryID]; !ok {
		return fmt.Errorf("budget %s: %w", categoryID, core.ErrNotFound)
	}
	delete(l.root.Budgets, categoryID)
	return nil
}

// UpdateSettings replaces the settings blob; the core passes it through
// unchanged.
func (l *Ledger) UpdateSettings(s core.Settings) {
	l.root.Settings = s
}
