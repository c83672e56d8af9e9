package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"bilancio/internal/core"
)

func TestExportImportRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddTransaction(ctx, input(t, "food", core.KindExpense, 1250, "2024-03-05")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.AddTransaction(ctx, input(t, "salary", core.KindIncome, 250000, "2024-03-01")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.SetBudget(ctx, "food", core.Money{Cents: 10000}, core.PeriodMonthly); err != nil {
		t.Fatalf("budget: %v", err)
	}
	before := svc.Root()

	payload, err := svc.ExportJSON()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var envelope struct {
		ExportDate string          `json:"exportDate"`
		Version    string          `json:"version"`
		Data       json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Version != BackupVersion {
		t.Fatalf("version = %q, want %q", envelope.Version, BackupVersion)
	}
	if envelope.ExportDate == "" {
		t.Fatal("exportDate missing")
	}

	// Importing into a fresh service reproduces the full data root.
	other, _ := newTestService(t)
	if err := other.ImportJSON(ctx, payload); err != nil {
		t.Fatalf("import: %v", err)
	}
	after := other.Root()

	if len(after.Transactions) != len(before.Transactions) {
		t.Fatalf("transactions: got %d, want %d", len(after.Transactions), len(before.Transactions))
	}
	for i := range before.Transactions {
		if after.Transactions[i].ID != before.Transactions[i].ID ||
			after.Transactions[i].Amount != before.Transactions[i].Amount ||
			after.Transactions[i].Date != before.Transactions[i].Date {
			t.Fatalf("transaction %d: got %+v, want %+v", i, after.Transactions[i], before.Transactions[i])
		}
	}
	if len(after.Categories) != len(before.Categories) {
		t.Fatalf("categories: got %d, want %d", len(after.Categories), len(before.Categories))
	}
	if got, ok := after.Budgets["food"]; !ok || got.Amount.Cents != 10000 || got.Period != core.PeriodMonthly {
		t.Fatalf("budgets after import = %+v", after.Budgets)
	}
}

func TestImportRejectsMissingSections(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"not json", "{nope"},
		{"no data key", `{"exportDate":"x","version":"1.0.0"}`},
		{"missing transactions", `{"version":"1.0.0","data":{"categories":[]}}`},
		{"missing categories", `{"version":"1.0.0","data":{"transactions":[]}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			ctx := context.Background()
			if _, err := svc.AddTransaction(ctx, input(t, "food", core.KindExpense, 500, "2024-03-05")); err != nil {
				t.Fatalf("add: %v", err)
			}
			before := svc.Root()

			err := svc.ImportJSON(ctx, []byte(tc.payload))
			if !errors.Is(err, core.ErrInvalidImport) {
				t.Fatalf("err = %v, want ErrInvalidImport", err)
			}

			// Nothing changed.
			after := svc.Root()
			if len(after.Transactions) != len(before.Transactions) || len(after.Categories) != len(before.Categories) {
				t.Fatal("failed import must leave the data root untouched")
			}
		})
	}
}

func TestImportNormalizesSignedAmounts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	payload := `{
		"version": "1.0.0",
		"data": {
			"categories": [{"id":"food","name":"Food","icon":"🍔","color":"#f00","type":"expense"}],
			"transactions": [
				{"id":"a","description":"legacy expense","amount":-12.50,"type":"expense","category":"food","date":"2024-03-05"},
				{"id":"b","description":"plain","amount":3.25,"type":"expense","category":"food","date":"2024-03-06"}
			]
		}
	}`
	if err := svc.ImportJSON(ctx, []byte(payload)); err != nil {
		t.Fatalf("import: %v", err)
	}

	root := svc.Root()
	for _, tr := range root.Transactions {
		if tr.Amount.Cents <= 0 {
			t.Fatalf("transaction %s: amount %d, want positive magnitude", tr.ID, tr.Amount.Cents)
		}
	}
	if root.Transactions[0].Amount.Cents != 1250 {
		t.Fatalf("legacy amount = %d, want 1250", root.Transactions[0].Amount.Cents)
	}
}

func TestImportResetsSelection(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.SelectMonth("2024-03"); err != nil {
		t.Fatalf("select: %v", err)
	}
	payload, err := svc.ExportJSON()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := svc.ImportJSON(ctx, payload); err != nil {
		t.Fatalf("import: %v", err)
	}
	if svc.Selection().Mode != core.ModeAllTime {
		t.Fatalf("selection after import = %s, want all-time", svc.Selection().Mode)
	}
}

func TestExportCSVQuotesEveryField(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	in := input(t, "food", core.KindExpense, 1250, "2024-03-05")
	in.Description = `lunch with "friends"`
	in.Notes = "a, b"
	if _, err := svc.AddTransaction(ctx, in); err != nil {
		t.Fatalf("add: %v", err)
	}

	lines := strings.Split(strings.TrimRight(string(svc.ExportCSV()), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %d, want header plus one row", len(lines))
	}
	if lines[0] != `"Date","Description","Category","Type","Amount","Notes"` {
		t.Fatalf("header = %s", lines[0])
	}
	row := lines[1]
	if !strings.HasPrefix(row, `"2024-03-05","lunch with ""friends""",`) {
		t.Fatalf("row = %s", row)
	}
	if !strings.Contains(row, `"a, b"`) {
		t.Fatalf("notes field not quoted intact: %s", row)
	}
}

func TestExportReportContainsTotals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddTransaction(ctx, input(t, "salary", core.KindIncome, 250000, "2024-03-01")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := svc.AddTransaction(ctx, input(t, "food", core.KindExpense, 1250, "2024-03-05")); err != nil {
		t.Fatalf("add: %v", err)
	}

	report := string(svc.ExportReport())
	for _, want := range []string{"2500.00", "12.50", "2487.50"} {
		if !strings.Contains(report, want) {
			t.Fatalf("report missing %q:\n%s", want, report)
		}
	}
}
