// Package services orchestrates the ledger, persistence, and the active
// filter selection. Every mutation runs the full path synchronously:
// mutate the ledger, persist the data root, bump the revision that
// invalidates cached aggregates.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
	"bilancio/internal/storage"
)

// Trailing months shown in the trend series.
const trendMonths = 6

// Transactions shown in the recent list.
const recentCount = 5

// TrackerService owns the data root. All access goes through one mutex,
// so a mutation and its re-aggregation are a single step with no partial
// state visible.
type TrackerService struct {
	mu        sync.Mutex
	ledger    *ledger.Ledger
	store     storage.Store
	selection core.Selection
	revision  uint64
	now       func() time.Time
}

// Snapshot is everything the dashboard needs for the active selection,
// computed in one pass.
type Snapshot struct {
	Revision     uint64               `json:"revision"`
	Selection    core.Selection       `json:"selection"`
	Totals       core.TotalsSummary   `json:"totals"`
	Breakdown    []core.CategoryTotal `json:"breakdown"`
	Daily        []core.DayTotal      `json:"daily"`
	Trend        []core.MonthPoint    `json:"trend"`
	Budgets      []core.BudgetUsage   `json:"budgets"`
	QuickStats   core.QuickStats      `json:"quickStats"`
	Recent       []core.Transaction   `json:"recent"`
	Transactions []core.Transaction   `json:"transactions"`
	MonthKeys    []string             `json:"monthKeys"`
}

// NewTrackerService loads the data root from the store, initializing and
// seeding a fresh one when the store is empty. nowFn may be nil for
// wall-clock time.
func NewTrackerService(ctx context.Context, store storage.Store, nowFn func() time.Time) (*TrackerService, error) {
	if nowFn == nil {
		nowFn = time.Now
	}

	root, present, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load data root: %w", err)
	}
	if !present {
		root = ledger.NewDataRoot(nowFn())
	}

	l := ledger.New(root, nowFn)
	if l.SeedDefaults() || !present {
		if err := store.Save(ctx, l.Root()); err != nil {
			return nil, fmt.Errorf("save seeded data root: %w", err)
		}
		slog.InfoContext(ctx, "Data root initialized", "seeded", true)
	}

	return &TrackerService{
		ledger:    l,
		store:     store,
		selection: core.AllTime(),
		now:       nowFn,
	}, nil
}

// Revision increases on every mutation and selection change. Cached
// aggregates keyed by revision can never be served stale.
func (s *TrackerService) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Root returns a copy of the full data root.
func (s *TrackerService) Root() ledger.DataRoot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Root()
}

// persist writes the data root back. A failed save is surfaced as a
// warning only: the in-memory mutation already succeeded from the user's
// perspective and a later save can retry it.
func (s *TrackerService) persist(ctx context.Context) {
	if err := s.store.Save(ctx, s.ledger.Root()); err != nil {
		slog.WarnContext(ctx, "Saving data root failed, in-memory state kept", "error", err)
	}
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

func (s *TrackerService) AddTransaction(ctx context.Context, in ledger.TransactionInput) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.ledger.CreateTransaction(in)
	if err != nil {
		return core.Transaction{}, err
	}
	s.revision++
	s.persist(ctx)
	slog.InfoContext(ctx, "Transaction added",
		"id", t.ID, "kind", t.Kind, "amount_cents", t.Amount.Cents, "category", t.CategoryID)
	return t, nil
}

func (s *TrackerService) UpdateTransaction(ctx context.Context, id string, in ledger.TransactionInput) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.ledger.UpdateTransaction(id, in)
	if err != nil {
		return core.Transaction{}, err
	}
	s.revision++
	s.persist(ctx)
	return t, nil
}

func (s *TrackerService) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.DeleteTransaction(id); err != nil {
		return err
	}
	s.revision++
	s.persist(ctx)
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// ---------------------------------------------------------------------------
// Categories
// ---------------------------------------------------------------------------

func (s *TrackerService) CreateCategory(ctx context.Context, name, icon, color string, kind core.Kind) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.ledger.CreateCategory(name, icon, color, kind)
	if err != nil {
		return core.Category{}, err
	}
	s.revision++
	s.persist(ctx)
	return c, nil
}

func (s *TrackerService) UpdateCategory(ctx context.Context, id, name, icon, color string, kind core.Kind) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.ledger.UpdateCategory(id, name, icon, color, kind)
	if err != nil {
		return core.Category{}, err
	}
	s.revision++
	s.persist(ctx)
	return c, nil
}

func (s *TrackerService) DeleteCategory(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.DeleteCategory(id); err != nil {
		return err
	}
	s.revision++
	s.persist(ctx)
	return nil
}

// ---------------------------------------------------------------------------
// Budgets and settings
// ---------------------------------------------------------------------------

func (s *TrackerService) SetBudget(ctx context.Context, categoryID string, amount core.Money, period core.Period) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.ledger.SetBudget(categoryID, amount, period)
	if err != nil {
		return core.Budget{}, err
	}
	s.revision++
	s.persist(ctx)
	return b, nil
}

func (s *TrackerService) RemoveBudget(ctx context.Context, categoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.RemoveBudget(categoryID); err != nil {
		return err
	}
	s.revision++
	s.persist(ctx)
	return nil
}

func (s *TrackerService) UpdateSettings(ctx context.Context, settings core.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ledger.UpdateSettings(settings)
	s.revision++
	s.persist(ctx)
}

// Reset clears everything back to a seeded empty data root.
func (s *TrackerService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	s.ledger.Reset()
	s.selection = core.AllTime()
	s.revision++
	s.persist(ctx)
	slog.InfoContext(ctx, "All data cleared")
	return nil
}

// ---------------------------------------------------------------------------
// Filter selection
// ---------------------------------------------------------------------------

// SelectMonth switches the window to one calendar month.
func (s *TrackerService) SelectMonth(monthKey string) error {
	sel, err := core.SingleMonth(monthKey)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = sel
	s.revision++
	return nil
}

// SelectAllTime switches the window to the whole history.
func (s *TrackerService) SelectAllTime() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = core.AllTime()
	s.revision++
}

// ApplyCustomRange switches to an inclusive custom date range.
func (s *TrackerService) ApplyCustomRange(from, to core.Date) error {
	sel, err := core.CustomRange(from, to)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = sel
	s.revision++
	return nil
}

// ClearCustomRange falls back to the all-time window.
func (s *TrackerService) ClearCustomRange() {
	s.SelectAllTime()
}

// Selection returns the active time-window selection.
func (s *TrackerService) Selection() core.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// ---------------------------------------------------------------------------
// Aggregation
// ---------------------------------------------------------------------------

// Snapshot recomputes every derived summary for the active selection.
// Budget consumption always runs over the full history, since its window
// is the budget period containing today, not the filter window.
func (s *TrackerService) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	root := s.ledger.Root()
	now := s.now()
	filtered := s.selection.Apply(root.Transactions)

	budgets := make([]core.BudgetUsage, 0, len(root.Budgets))
	for _, id := range sortedBudgetIDs(root.Budgets) {
		budgets = append(budgets, core.BudgetConsumption(root.Transactions, id, root.Budgets[id], now))
	}

	return Snapshot{
		Revision:     s.revision,
		Selection:    s.selection,
		Totals:       core.Totals(filtered),
		Breakdown:    core.CategoryBreakdown(filtered, root.Categories),
		Daily:        core.DailyBreakdown(filtered, root.Categories),
		Trend:        core.MonthlyTrend(root.Transactions, trendMonths, now),
		Budgets:      budgets,
		QuickStats:   core.ComputeQuickStats(root.Transactions, root.Categories, now),
		Recent:       core.RecentTransactions(root.Transactions, recentCount),
		Transactions: filtered,
		MonthKeys:    core.MonthKeys(root.Transactions, now),
	}
}

// Categories lists the category set.
func (s *TrackerService) Categories() []core.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Root().Categories
}

func sortedBudgetIDs(budgets map[string]core.Budget) []string {
	ids := make([]string, 0, len(budgets))
	for id := range budgets {
		ids = append(ids, id)
	}
	// Deterministic order for rendering and tests.
	sort.Strings(ids)
	return ids
}
