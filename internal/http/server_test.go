package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bilancio/internal/services"
	"bilancio/internal/storage"
)

func newTestServer(t *testing.T) (*httptest.Server, *services.TrackerService) {
	t.Helper()
	store := storage.NewMemoryStore()
	tracker, err := services.NewTrackerService(context.Background(), store, time.Now)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	srv := NewServer(":0", tracker, DefaultOptions())
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return ts, tracker
}

func doJSON(t *testing.T, client *http.Client, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func TestHealthEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, _ := doJSON(t, ts.Client(), http.MethodGet, ts.URL+path, "")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestTransactionLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)
	client := ts.Client()

	body := `{"description":"groceries","amount":"12.50","type":"expense","category":"food","date":"2024-03-05"}`
	resp, data := doJSON(t, client, http.MethodPost, ts.URL+"/api/transactions", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create = %d: %s", resp.StatusCode, data)
	}
	var created struct {
		ID     string  `json:"id"`
		Amount float64 `json:"amount"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.ID == "" || created.Amount != 12.50 {
		t.Fatalf("created = %+v", created)
	}

	update := `{"description":"supermarket","amount":"15.00","type":"expense","category":"food","date":"2024-03-05"}`
	resp, data = doJSON(t, client, http.MethodPut, ts.URL+"/api/transactions/"+created.ID, update)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update = %d: %s", resp.StatusCode, data)
	}
	if !bytes.Contains(data, []byte("supermarket")) {
		t.Fatalf("update response = %s", data)
	}

	resp, _ = doJSON(t, client, http.MethodDelete, ts.URL+"/api/transactions/"+created.ID, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete = %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, client, http.MethodDelete, ts.URL+"/api/transactions/"+created.ID, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete missing = %d, want 404", resp.StatusCode)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	ts, _ := newTestServer(t)
	client := ts.Client()

	resp, _ := doJSON(t, client, http.MethodPost, ts.URL+"/api/transactions", "{nope")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body = %d, want 400", resp.StatusCode)
	}

	body := `{"description":"x","amount":"5.00","type":"expense","category":"no-such","date":"2024-03-05"}`
	resp, _ = doJSON(t, client, http.MethodPost, ts.URL+"/api/transactions", body)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("unknown category = %d, want 422", resp.StatusCode)
	}
}

func TestCategoryDeletionConflict(t *testing.T) {
	ts, _ := newTestServer(t)
	client := ts.Client()

	body := `{"description":"groceries","amount":"12.50","type":"expense","category":"food","date":"2024-03-05"}`
	resp, data := doJSON(t, client, http.MethodPost, ts.URL+"/api/transactions", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create = %d: %s", resp.StatusCode, data)
	}

	resp, _ = doJSON(t, client, http.MethodDelete, ts.URL+"/api/categories/food", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("delete referenced category = %d, want 409", resp.StatusCode)
	}
}

func TestBudgetEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)
	client := ts.Client()

	resp, data := doJSON(t, client, http.MethodPut, ts.URL+"/api/budgets/food", `{"amount":"100.00","period":"monthly"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set budget = %d: %s", resp.StatusCode, data)
	}

	// Income categories cannot carry budgets.
	resp, _ = doJSON(t, client, http.MethodPut, ts.URL+"/api/budgets/salary", `{"amount":"100.00","period":"monthly"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("budget on income category = %d, want 422", resp.StatusCode)
	}

	resp, _ = doJSON(t, client, http.MethodDelete, ts.URL+"/api/budgets/food", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("remove budget = %d", resp.StatusCode)
	}
}

func TestFilterEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	client := ts.Client()

	resp, data := doJSON(t, client, http.MethodPut, ts.URL+"/api/filter", `{"mode":"month","monthKey":"2024-03"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set filter = %d: %s", resp.StatusCode, data)
	}
	if !bytes.Contains(data, []byte(`"2024-03"`)) {
		t.Fatalf("filter response = %s", data)
	}

	resp, _ = doJSON(t, client, http.MethodPut, ts.URL+"/api/filter", `{"mode":"month","monthKey":"March"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("bad month key = %d, want 422", resp.StatusCode)
	}

	resp, _ = doJSON(t, client, http.MethodPut, ts.URL+"/api/filter", `{"mode":"bogus"}`)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("unknown mode = %d, want 422", resp.StatusCode)
	}
}

func TestImportRejectsBadPayload(t *testing.T) {
	ts, _ := newTestServer(t)
	client := ts.Client()

	resp, _ := doJSON(t, client, http.MethodPost, ts.URL+"/api/import", `{"version":"1.0.0","data":{"transactions":[]}}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("import missing categories = %d, want 400", resp.StatusCode)
	}
}

func TestExportEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)
	client := ts.Client()

	resp, data := doJSON(t, client, http.MethodGet, ts.URL+"/api/export/json", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export json = %d", resp.StatusCode)
	}
	if !bytes.Contains(data, []byte(`"version"`)) {
		t.Fatalf("export json body = %s", data)
	}

	resp, data = doJSON(t, client, http.MethodGet, ts.URL+"/api/export/csv", "")
	if resp.StatusCode != http.StatusOK || !bytes.HasPrefix(data, []byte(`"Date"`)) {
		t.Fatalf("export csv = %d: %s", resp.StatusCode, data)
	}

	resp, _ = doJSON(t, client, http.MethodGet, ts.URL+"/api/export/report", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export report = %d", resp.StatusCode)
	}
}

func TestDashboardCaching(t *testing.T) {
	ts, tracker := newTestServer(t)
	client := ts.Client()

	resp, first := doJSON(t, client, http.MethodGet, ts.URL+"/api/dashboard", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard = %d", resp.StatusCode)
	}
	_, second := doJSON(t, client, http.MethodGet, ts.URL+"/api/dashboard", "")
	if !bytes.Equal(first, second) {
		t.Fatal("same revision must serve identical snapshots")
	}

	before := tracker.Revision()
	body := `{"description":"coffee","amount":"2.00","type":"expense","category":"food","date":"2024-03-05"}`
	resp, data := doJSON(t, client, http.MethodPost, ts.URL+"/api/transactions", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create = %d: %s", resp.StatusCode, data)
	}
	if tracker.Revision() == before {
		t.Fatal("mutation must bump the revision")
	}

	_, third := doJSON(t, client, http.MethodGet, ts.URL+"/api/dashboard", "")
	if !bytes.Contains(third, []byte("coffee")) {
		t.Fatal("snapshot after mutation must include the new transaction")
	}
}

func TestSecurityHeaders(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/api/dashboard", "")
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
}
