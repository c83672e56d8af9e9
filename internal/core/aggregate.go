package core

import (
	"sort"
	"time"
)

// Budget consumption thresholds, in percent of the limit.
const (
	budgetWarningPercent = 60
	budgetDangerPercent  = 80
)

const (
	BudgetOk      BudgetStatus = "ok"
	BudgetWarning BudgetStatus = "warning"
	BudgetDanger  BudgetStatus = "danger"
)

type (
	// BudgetStatus grades budget consumption against the fixed thresholds.
	BudgetStatus string

	// TotalsSummary is the income/expense/balance roll-up for a
	// transaction window.
	TotalsSummary struct {
		Income   Money `json:"income"`
		Expenses Money `json:"expenses"`
		Balance  Money `json:"balance"`
	}

	// CategoryTotal is one row of a category breakdown.
	CategoryTotal struct {
		Category Category `json:"category"`
		Count    int      `json:"count"`
		Total    Money    `json:"total"`
	}

	// DayTotal groups a single calendar date's activity, split by
	// direction and by category name.
	DayTotal struct {
		Date              Date             `json:"date"`
		Income            Money            `json:"income"`
		Expenses          Money            `json:"expenses"`
		IncomeByCategory  map[string]Money `json:"incomeByCategory"`
		ExpenseByCategory map[string]Money `json:"expenseByCategory"`
	}

	// MonthPoint is one month of a trend series.
	MonthPoint struct {
		MonthKey string `json:"monthKey"`
		Label    string `json:"label"`
		Income   Money  `json:"income"`
		Expenses Money  `json:"expenses"`
	}

	// BudgetUsage reports spend against a single budget entry for the
	// period window containing the reference date.
	BudgetUsage struct {
		CategoryID string       `json:"categoryId"`
		Spent      Money        `json:"spent"`
		Limit      Money        `json:"limit"`
		Percentage float64      `json:"percentage"`
		Status     BudgetStatus `json:"status"`
	}

	// QuickStats are the dashboard's at-a-glance numbers for the current
	// calendar month.
	QuickStats struct {
		MonthExpenses Money  `json:"monthExpenses"`
		DailyAverage  Money  `json:"dailyAverage"`
		TopCategory   string `json:"topCategory"`
	}
)

// PlaceholderCategory resolves transactions whose category reference no
// longer exists, so breakdowns render instead of erroring.
var PlaceholderCategory = Category{Name: "Unknown", Icon: "❓", Color: "#999999", Kind: KindExpense}

// Totals sums the window by direction. Balance may be negative.
func Totals(txs []Transaction) TotalsSummary {
	var income, expenses int64
	for _, t := range txs {
		switch t.Kind {
		case KindIncome:
			income += t.Amount.Cents
		case KindExpense:
			expenses += t.Amount.Cents
		}
	}
	return TotalsSummary{
		Income:   Money{Cents: income},
		Expenses: Money{Cents: expenses},
		Balance:  Money{Cents: income - expenses},
	}
}

// CategoryBreakdown groups the window by category, sorted descending by
// total with encounter order as the stable tie-break. Dangling category
// references resolve to PlaceholderCategory.
func CategoryBreakdown(txs []Transaction, categories []Category) []CategoryTotal {
	byID := make(map[string]Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	index := make(map[string]int)
	var rows []CategoryTotal
	for _, t := range txs {
		i, seen := index[t.CategoryID]
		if !seen {
			cat, ok := byID[t.CategoryID]
			if !ok {
				cat = PlaceholderCategory
				cat.ID = t.CategoryID
			}
			i = len(rows)
			index[t.CategoryID] = i
			rows = append(rows, CategoryTotal{Category: cat})
		}
		rows[i].Count++
		rows[i].Total = rows[i].Total.Add(t.Amount)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Total.Cents > rows[j].Total.Cents
	})
	return rows
}

// DailyBreakdown groups the window by calendar date, most recent first.
// Per-category splits are keyed by category name for display.
func DailyBreakdown(txs []Transaction, categories []Category) []DayTotal {
	byID := make(map[string]Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	index := make(map[string]int)
	var days []DayTotal
	for _, t := range txs {
		key := t.Date.String()
		i, seen := index[key]
		if !seen {
			i = len(days)
			index[key] = i
			days = append(days, DayTotal{
				Date:              t.Date,
				IncomeByCategory:  make(map[string]Money),
				ExpenseByCategory: make(map[string]Money),
			})
		}
		name := PlaceholderCategory.Name
		if cat, ok := byID[t.CategoryID]; ok {
			name = cat.Name
		}
		switch t.Kind {
		case KindIncome:
			days[i].Income = days[i].Income.Add(t.Amount)
			days[i].IncomeByCategory[name] = days[i].IncomeByCategory[name].Add(t.Amount)
		case KindExpense:
			days[i].Expenses = days[i].Expenses.Add(t.Amount)
			days[i].ExpenseByCategory[name] = days[i].ExpenseByCategory[name].Add(t.Amount)
		}
	}

	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.After(days[j].Date)
	})
	return days
}

// MonthlyTrend produces the trailing monthCount calendar months ending at
// now's month, oldest first. Months with no activity appear with zero
// totals.
func MonthlyTrend(txs []Transaction, monthCount int, now time.Time) []MonthPoint {
	if monthCount <= 0 {
		return nil
	}

	type bucket struct{ income, expenses int64 }
	byMonth := make(map[string]*bucket)
	for _, t := range txs {
		key := t.Date.MonthKey()
		b, ok := byMonth[key]
		if !ok {
			b = &bucket{}
			byMonth[key] = b
		}
		switch t.Kind {
		case KindIncome:
			b.income += t.Amount.Cents
		case KindExpense:
			b.expenses += t.Amount.Cents
		}
	}

	points := make([]MonthPoint, 0, monthCount)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(monthCount - 1), 0)
	for i := 0; i < monthCount; i++ {
		m := first.AddDate(0, i, 0)
		key := m.Format("2006-01")
		p := MonthPoint{MonthKey: key, Label: m.Format("Jan 06")}
		if b, ok := byMonth[key]; ok {
			p.Income = Money{Cents: b.income}
			p.Expenses = Money{Cents: b.expenses}
		}
		points = append(points, p)
	}
	return points
}

// BudgetConsumption reports expense spend in categoryID against the
// budget's period window containing referenceDate. A non-positive limit
// yields zero percentage and BudgetOk rather than dividing by it.
func BudgetConsumption(txs []Transaction, categoryID string, b Budget, referenceDate time.Time) BudgetUsage {
	from, to := periodWindow(b.Period, referenceDate)

	var spent int64
	for _, t := range txs {
		if t.Kind != KindExpense || t.CategoryID != categoryID {
			continue
		}
		if t.Date.Before(from) || t.Date.After(to) {
			continue
		}
		spent += t.Amount.Cents
	}

	usage := BudgetUsage{
		CategoryID: categoryID,
		Spent:      Money{Cents: spent},
		Limit:      b.Amount,
		Status:     BudgetOk,
	}
	limit := b.Amount.Cents
	if limit <= 0 {
		return usage
	}

	pct := float64(spent*100) / float64(limit)
	if pct > 100 {
		pct = 100
	}
	usage.Percentage = pct

	// Threshold checks stay in integer cents to avoid float edges at the
	// exact boundaries.
	switch {
	case spent*100 > limit*budgetDangerPercent:
		usage.Status = BudgetDanger
	case spent*100 > limit*budgetWarningPercent:
		usage.Status = BudgetWarning
	}
	return usage
}

// periodWindow returns the inclusive date bounds of the period containing
// ref. Weeks run Sunday through Saturday.
func periodWindow(p Period, ref time.Time) (Date, Date) {
	day := DateOf(ref)
	switch p {
	case PeriodWeekly:
		start := day.AddDate(0, 0, -int(day.Weekday()))
		return Date{Time: start}, Date{Time: start.AddDate(0, 0, 6)}
	case PeriodYearly:
		start := NewDate(day.Year(), 1, 1)
		return start, NewDate(day.Year(), 12, 31)
	default: // monthly
		start := NewDate(day.Year(), int(day.Month()), 1)
		return start, Date{Time: start.AddDate(0, 1, -1)}
	}
}

// ComputeQuickStats summarizes the calendar month containing now: total
// expenses, the running daily average, and the top expense category name.
func ComputeQuickStats(txs []Transaction, categories []Category, now time.Time) QuickStats {
	monthKey := DateOf(now).MonthKey()

	totals := make(map[string]int64)
	var order []string
	var monthExpenses int64
	for _, t := range txs {
		if t.Kind != KindExpense || t.Date.MonthKey() != monthKey {
			continue
		}
		monthExpenses += t.Amount.Cents
		if _, seen := totals[t.CategoryID]; !seen {
			order = append(order, t.CategoryID)
		}
		totals[t.CategoryID] += t.Amount.Cents
	}

	stats := QuickStats{MonthExpenses: Money{Cents: monthExpenses}}
	if monthExpenses > 0 {
		stats.DailyAverage = Money{Cents: monthExpenses / int64(now.Day())}
	}

	// First-seen category wins ties, keeping the result deterministic.
	var topID string
	var topCents int64
	for _, id := range order {
		if totals[id] > topCents {
			topID, topCents = id, totals[id]
		}
	}
	if topID != "" {
		name := PlaceholderCategory.Name
		for _, c := range categories {
			if c.ID == topID {
				name = c.Name
				break
			}
		}
		stats.TopCategory = name
	}
	return stats
}

// RecentTransactions returns the n most recent transactions, newest date
// first with creation time breaking ties.
func RecentTransactions(txs []Transaction, n int) []Transaction {
	if n <= 0 {
		return nil
	}
	sorted := make([]Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date.Time) {
			return sorted[i].Date.After(sorted[j].Date)
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
