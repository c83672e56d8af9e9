package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
)

// BackupVersion is written into JSON exports and accepted on import.
const BackupVersion = "1.0.0"

// BackupPayload is the JSON backup envelope. Import accepts exactly this
// shape and rejects payloads missing data.transactions or
// data.categories.
type BackupPayload struct {
	ExportDate time.Time       `json:"exportDate"`
	Version    string          `json:"version"`
	Data       ledger.DataRoot `json:"data"`
}

// backupEnvelope mirrors BackupPayload with pointer fields so absent
// keys are distinguishable from empty ones.
type backupEnvelope struct {
	ExportDate time.Time `json:"exportDate"`
	Version    string    `json:"version"`
	Data       *struct {
		Transactions *[]core.Transaction    `json:"transactions"`
		Categories   *[]core.Category       `json:"categories"`
		Budgets      map[string]core.Budget `json:"budgets"`
		Settings     *core.Settings         `json:"settings"`
	} `json:"data"`
}

// ExportJSON renders the full data root as a backup payload.
func (s *TrackerService) ExportJSON() ([]byte, error) {
	payload := BackupPayload{
		ExportDate: s.now().UTC(),
		Version:    BackupVersion,
		Data:       s.Root(),
	}
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return out, nil
}

// ImportJSON replaces the entire data root from a backup payload. The
// replace is all-or-nothing: a rejected payload leaves the current data
// untouched. Legacy signed amounts are normalized to explicit kind plus
// magnitude.
func (s *TrackerService) ImportJSON(ctx context.Context, payload []byte) error {
	var env backupEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return fmt.Errorf("decode backup: %w", core.ErrInvalidImport)
	}
	if env.Data == nil || env.Data.Transactions == nil || env.Data.Categories == nil {
		return fmt.Errorf("backup missing transactions or categories: %w", core.ErrInvalidImport)
	}

	root := ledger.DataRoot{
		Transactions: normalizeTransactions(*env.Data.Transactions),
		Categories:   *env.Data.Categories,
		Budgets:      env.Data.Budgets,
	}
	if env.Data.Settings != nil && env.Data.Settings.Theme != "" {
		root.Settings = *env.Data.Settings
	} else {
		root.Settings = core.DefaultSettings(s.now())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.Replace(root)
	s.selection = core.AllTime()
	s.revision++
	s.persist(ctx)
	slog.InfoContext(ctx, "Data imported",
		"transactions", len(root.Transactions), "categories", len(root.Categories))
	return nil
}

// normalizeTransactions converts legacy signed-amount records into the
// explicit kind + non-negative magnitude encoding.
func normalizeTransactions(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	for i, t := range txs {
		if t.Amount.Cents < 0 {
			t.Amount.Cents = -t.Amount.Cents
			if t.Kind.Validate() != nil {
				t.Kind = core.KindExpense
			}
		} else if t.Kind.Validate() != nil {
			t.Kind = core.KindIncome
		}
		out[i] = t
	}
	return out
}

// ExportCSV renders every transaction as the fixed six-column CSV shape:
// each field double-quote wrapped, comma separated, one row per
// transaction.
func (s *TrackerService) ExportCSV() []byte {
	root := s.Root()
	byID := make(map[string]core.Category, len(root.Categories))
	for _, c := range root.Categories {
		byID[c.ID] = c
	}

	var b strings.Builder
	writeCSVRow(&b, "Date", "Description", "Category", "Type", "Amount", "Notes")
	for _, t := range root.Transactions {
		name := core.PlaceholderCategory.Name
		if c, ok := byID[t.CategoryID]; ok {
			name = c.Name
		}
		writeCSVRow(&b, t.Date.String(), t.Description, name, string(t.Kind), t.Amount.String(), t.Notes)
	}
	return []byte(b.String())
}

func writeCSVRow(b *strings.Builder, fields ...string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}

// ExportReport renders a human-readable plain-text report: totals
// summary followed by the transaction listing.
func (s *TrackerService) ExportReport() []byte {
	root := s.Root()
	byID := make(map[string]core.Category, len(root.Categories))
	for _, c := range root.Categories {
		byID[c.ID] = c
	}
	totals := core.Totals(root.Transactions)

	var b strings.Builder
	b.WriteString("BUDGET TRACKER REPORT\n")
	b.WriteString("Generated: " + s.now().Format("2006-01-02") + "\n\n")
	b.WriteString("SUMMARY:\n")
	b.WriteString("Total Income: " + totals.Income.String() + "\n")
	b.WriteString("Total Expenses: " + totals.Expenses.String() + "\n")
	b.WriteString("Balance: " + totals.Balance.String() + "\n\n")
	b.WriteString("TRANSACTIONS:\n")
	for _, t := range root.Transactions {
		name := core.PlaceholderCategory.Name
		if c, ok := byID[t.CategoryID]; ok {
			name = c.Name
		}
		sign := "-"
		if t.Kind == core.KindIncome {
			sign = "+"
		}
		b.WriteString(t.Date.String() + " - " + t.Description + " - " + name + " - " + sign + t.Amount.String() + "\n")
	}
	return []byte(b.String())
}
