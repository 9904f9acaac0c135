package http

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"chitbook/internal/core"
)

type createLoanRequest struct {
	Amount           decimal.Decimal `json:"amount"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
	DocumentCharge   decimal.Decimal `json:"document_charge"`
	RepaymentType    string          `json:"repayment_type"`
	DisbursementDate string          `json:"disbursement_date"`
	Duration         int             `json:"duration"`
}

type recordRepaymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PaidDate    string          `json:"paid_date"`
	PaymentType string          `json:"payment_type"`
	Period      int             `json:"period"`
}

func (s *Server) handleCreateLoan(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	disbursed, err := parseDate(req.DisbursementDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid disbursement_date: want YYYY-MM-DD")
		return
	}

	loan := core.Loan{
		ID:               uuid.New(),
		Amount:           req.Amount,
		InterestRate:     req.InterestRate,
		DocumentCharge:   req.DocumentCharge,
		RepaymentType:    core.RepaymentCadence(req.RepaymentType),
		DisbursementDate: disbursed,
		Duration:         req.Duration,
		RemainingAmount:  req.Amount,
		Status:           core.LoanPending,
	}

	created, err := s.loans.CreateLoan(r.Context(), loan)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create loan failed", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.invalidateMetrics()
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := s.loans.ListLoans(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List loans failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list loans")
		return
	}
	if loans == nil {
		loans = []core.Loan{}
	}
	writeJSON(w, http.StatusOK, loans)
}

func (s *Server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	loan, err := s.loans.GetLoan(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "loan not found")
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) handleListRepayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reps, err := s.loans.ListRepayments(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "List repayments failed", "loan_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list repayments")
		return
	}
	if reps == nil {
		reps = []core.Repayment{}
	}
	writeJSON(w, http.StatusOK, reps)
}

func (s *Server) handleRecordRepayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathUUID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req recordRepaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	paid, err := parseDate(req.PaidDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid paid_date: want YYYY-MM-DD")
		return
	}

	rep := core.Repayment{
		ID:          uuid.New(),
		LoanID:      loanID,
		Amount:      req.Amount,
		PaidDate:    paid,
		PaymentType: core.PaymentKind(req.PaymentType),
		Period:      req.Period,
	}

	loan, err := s.loans.RecordRepayment(r.Context(), rep)
	if err != nil {
		slog.ErrorContext(r.Context(), "Record repayment failed", "loan_id", loanID, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.invalidateMetrics()
	writeJSON(w, http.StatusCreated, map[string]any{
		"repayment_id": rep.ID,
		"loan":         loan,
	})
}

func (s *Server) handleDeleteRepayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	loan, err := s.loans.DeleteRepayment(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete repayment failed", "repayment_id", id, "error", err)
		writeError(w, http.StatusNotFound, "repayment not found")
		return
	}

	s.invalidateMetrics()
	writeJSON(w, http.StatusOK, loan)
}
