package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"chitbook/internal/services"
	"chitbook/internal/sheets/memory"
	"chitbook/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "chitbook.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}

	store := memory.New()
	loans := services.NewLoanService(repo, nil)
	funds := services.NewChitFundService(repo)
	reports := services.NewReportService(repo, store, nil)

	srv := NewServer(":0", loans, funds, reports)
	t.Cleanup(func() { repo.Close() })
	return srv, store
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestLoanEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	disbursed := time.Now().UTC().AddDate(0, -2, 0).Format("2006-01-02")
	rec := doJSON(t, srv, http.MethodPost, "/loans", map[string]any{
		"amount":            "100000",
		"interest_rate":     "1000",
		"document_charge":   "500",
		"repayment_type":    "monthly",
		"disbursement_date": disbursed,
		"duration":          10,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create loan = %d, body %s", rec.Code, rec.Body.String())
	}

	var loan struct {
		ID            string `json:"ID"`
		MissedPeriods int    `json:"MissedPeriods"`
	}
	decodeBody(t, rec, &loan)
	if loan.MissedPeriods != 2 {
		t.Fatalf("missed periods = %d, want 2", loan.MissedPeriods)
	}

	rec = doJSON(t, srv, http.MethodGet, "/loans/"+loan.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get loan = %d", rec.Code)
	}

	paid := time.Now().UTC().AddDate(0, -1, 0).Format("2006-01-02")
	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/loans/%s/repayments", loan.ID), map[string]any{
		"amount":       "11000",
		"paid_date":    paid,
		"payment_type": "full",
		"period":       1,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record repayment = %d, body %s", rec.Code, rec.Body.String())
	}

	var created struct {
		RepaymentID string `json:"repayment_id"`
		Loan        struct {
			MissedPeriods   int    `json:"MissedPeriods"`
			RemainingAmount string `json:"RemainingAmount"`
		} `json:"loan"`
	}
	decodeBody(t, rec, &created)
	if created.Loan.MissedPeriods != 1 {
		t.Fatalf("missed periods after repayment = %d, want 1", created.Loan.MissedPeriods)
	}
	if created.Loan.RemainingAmount != "90000" {
		t.Fatalf("remaining = %s, want 90000", created.Loan.RemainingAmount)
	}

	rec = doJSON(t, srv, http.MethodDelete, "/repayments/"+created.RepaymentID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete repayment = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/loans/%s/repayments", loan.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list repayments = %d", rec.Code)
	}
	var reps []json.RawMessage
	decodeBody(t, rec, &reps)
	if len(reps) != 0 {
		t.Fatalf("repayments = %d, want 0 after delete", len(reps))
	}
}

func TestLoanValidationErrors(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/loans", map[string]any{
		"amount":            "-100",
		"repayment_type":    "monthly",
		"disbursement_date": "2024-01-01",
		"duration":          10,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative amount = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/loans", map[string]any{
		"amount":            "100",
		"repayment_type":    "fortnightly",
		"disbursement_date": "2024-01-01",
		"duration":          10,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown cadence = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/loans/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad uuid = %d, want 400", rec.Code)
	}
}

func TestChitFundEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	start := time.Now().UTC().AddDate(0, -2, 0).Format("2006-01-02")
	rec := doJSON(t, srv, http.MethodPost, "/chitfunds", map[string]any{
		"total_amount":         "100000",
		"monthly_contribution": "1000",
		"member_count":         10,
		"duration":             10,
		"chit_fund_type":       "auction",
		"start_date":           start,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create chit fund = %d, body %s", rec.Code, rec.Body.String())
	}

	var fund struct {
		ID string `json:"ID"`
	}
	decodeBody(t, rec, &fund)

	paid := time.Now().UTC().AddDate(0, -1, 0).Format("2006-01-02")
	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/chitfunds/%s/contributions", fund.ID), map[string]any{
		"amount":    "1000",
		"paid_date": paid,
		"period":    1,
		"balance":   "0",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record contribution = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/chitfunds/%s/auctions", fund.ID), map[string]any{
		"amount": "9000",
		"date":   paid,
		"period": 2,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record auction = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, http.MethodGet, "/chitfunds/"+fund.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get chit fund = %d", rec.Code)
	}
	var got struct {
		CurrentPeriod int `json:"CurrentPeriod"`
	}
	decodeBody(t, rec, &got)
	if got.CurrentPeriod != 2 {
		t.Fatalf("current period = %d, want 2 after period-2 auction", got.CurrentPeriod)
	}

	rec = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/chitfunds/%s/profit", fund.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("fund profit = %d", rec.Code)
	}
}

func TestDashboardMetricsCaching(t *testing.T) {
	srv, _ := newTestServer(t)

	path := "/dashboard/metrics?start=2024-01-01&end=2024-12-31"

	rec := doJSON(t, srv, http.MethodGet, path, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard = %d, body %s", rec.Code, rec.Body.String())
	}
	var first struct {
		Cached bool `json:"cached"`
	}
	decodeBody(t, rec, &first)
	if first.Cached {
		t.Fatal("first window read must miss the cache")
	}

	rec = doJSON(t, srv, http.MethodGet, path, nil)
	var second struct {
		Cached bool `json:"cached"`
	}
	decodeBody(t, rec, &second)
	if !second.Cached {
		t.Fatal("second window read must hit the cache")
	}

	// Any mutation invalidates cached windows.
	rec = doJSON(t, srv, http.MethodPost, "/loans", map[string]any{
		"amount":            "50000",
		"interest_rate":     "500",
		"document_charge":   "250",
		"repayment_type":    "monthly",
		"disbursement_date": "2024-03-10",
		"duration":          10,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create loan = %d", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, path, nil)
	var third struct {
		Cached bool `json:"cached"`
	}
	decodeBody(t, rec, &third)
	if third.Cached {
		t.Fatal("mutation must invalidate cached windows")
	}
}

func TestRequestReportExportsSynchronously(t *testing.T) {
	srv, store := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/reports?start=2024-01-01&end=2024-01-31", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("request report = %d, body %s", rec.Code, rec.Body.String())
	}
	// No broker configured, the report service exports inline.
	if len(store.Reports()) != 1 {
		t.Fatalf("exported reports = %d, want 1", len(store.Reports()))
	}
}

func TestDashboardRejectsBadWindow(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/dashboard/metrics?start=2024-13-01&end=2024-01-31", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad start = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/dashboard/metrics?start=2024-02-01&end=2024-01-31", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("reversed window = %d, want 400", rec.Code)
	}
}
