package http

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"chitbook/internal/core"
)

type createChitFundRequest struct {
	TotalAmount            decimal.Decimal `json:"total_amount"`
	MonthlyContribution    decimal.Decimal `json:"monthly_contribution"`
	FirstMonthContribution decimal.Decimal `json:"first_month_contribution"`
	MemberCount            int             `json:"member_count"`
	Duration               int             `json:"duration"`
	ChitFundType           string          `json:"chit_fund_type"`
	StartDate              string          `json:"start_date"`
}

type recordContributionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PaidDate    string          `json:"paid_date"`
	Period      int             `json:"period"`
	Balance     decimal.Decimal `json:"balance"`
	BalancePaid bool            `json:"balance_paid"`
}

type recordAuctionRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
	Period int             `json:"period"`
}

func (s *Server) handleCreateChitFund(w http.ResponseWriter, r *http.Request) {
	var req createChitFundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date: want YYYY-MM-DD")
		return
	}

	fund := core.ChitFund{
		ID:                     uuid.New(),
		TotalAmount:            req.TotalAmount,
		MonthlyContribution:    req.MonthlyContribution,
		FirstMonthContribution: req.FirstMonthContribution,
		MemberCount:            req.MemberCount,
		Duration:               req.Duration,
		ChitFundType:           core.ChitFundVariant(req.ChitFundType),
		CurrentPeriod:          1,
		StartDate:              start,
	}

	if err := s.funds.CreateChitFund(r.Context(), fund); err != nil {
		slog.ErrorContext(r.Context(), "Create chit fund failed", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.invalidateMetrics()
	writeJSON(w, http.StatusCreated, fund)
}

func (s *Server) handleListChitFunds(w http.ResponseWriter, r *http.Request) {
	funds, err := s.funds.ListChitFunds(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "List chit funds failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list chit funds")
		return
	}
	if funds == nil {
		funds = []core.ChitFund{}
	}
	writeJSON(w, http.StatusOK, funds)
}

func (s *Server) handleGetChitFund(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fund, err := s.funds.GetChitFund(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "chit fund not found")
		return
	}
	writeJSON(w, http.StatusOK, fund)
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	contributions, err := s.funds.ListContributions(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "List contributions failed", "chit_fund_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list contributions")
		return
	}
	if contributions == nil {
		contributions = []core.Contribution{}
	}
	writeJSON(w, http.StatusOK, contributions)
}

func (s *Server) handleRecordContribution(w http.ResponseWriter, r *http.Request) {
	fundID, err := pathUUID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req recordContributionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	paid, err := parseDate(req.PaidDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid paid_date: want YYYY-MM-DD")
		return
	}

	contribution := core.Contribution{
		ID:          uuid.New(),
		ChitFundID:  fundID,
		Amount:      req.Amount,
		PaidDate:    paid,
		Period:      req.Period,
		Balance:     req.Balance,
		BalancePaid: req.BalancePaid,
	}

	if err := s.funds.RecordContribution(r.Context(), contribution); err != nil {
		slog.ErrorContext(r.Context(), "Record contribution failed", "chit_fund_id", fundID, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.invalidateMetrics()
	writeJSON(w, http.StatusCreated, contribution)
}

func (s *Server) handleListAuctions(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	auctions, err := s.funds.ListAuctions(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "List auctions failed", "chit_fund_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list auctions")
		return
	}
	if auctions == nil {
		auctions = []core.Auction{}
	}
	writeJSON(w, http.StatusOK, auctions)
}

func (s *Server) handleRecordAuction(w http.ResponseWriter, r *http.Request) {
	fundID, err := pathUUID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req recordAuctionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date: want YYYY-MM-DD")
		return
	}

	auction := core.Auction{
		ID:         uuid.New(),
		ChitFundID: fundID,
		Amount:     req.Amount,
		Date:       date,
		Period:     req.Period,
	}

	if err := s.funds.RecordAuction(r.Context(), auction); err != nil {
		slog.ErrorContext(r.Context(), "Record auction failed", "chit_fund_id", fundID, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.invalidateMetrics()
	writeJSON(w, http.StatusCreated, auction)
}

func (s *Server) handleChitFundProfit(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profit, err := s.funds.FundProfitToDate(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Fund profit failed", "chit_fund_id", id, "error", err)
		writeError(w, http.StatusNotFound, "chit fund not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"chit_fund_id": id,
		"profit":       profit,
	})
}
