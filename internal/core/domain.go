package core

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// CadenceMonthly schedules one instalment per calendar month.
	CadenceMonthly RepaymentCadence = "monthly"
	// CadenceWeekly schedules one instalment per 7-day bucket. The first
	// weekly period is interest-only by convention, so principal is spread
	// across duration-1 periods.
	CadenceWeekly RepaymentCadence = "weekly"
)

const (
	// PaymentFull settles the whole instalment for its period.
	PaymentFull PaymentKind = "full"
	// PaymentInterestOnly covers only the interest portion; the principal
	// portion of the period stays outstanding.
	PaymentInterestOnly PaymentKind = "interest_only"
)

const (
	// VariantAuction attributes profit per auction as the margin between
	// the collected pot and the payout.
	VariantAuction ChitFundVariant = "auction"
	// VariantFixed sizes the first period's contribution separately and
	// distributes each auction's margin evenly across the fund duration.
	VariantFixed ChitFundVariant = "fixed"
)

const (
	LoanPending   LoanStatus = "pending"
	LoanActive    LoanStatus = "active"
	LoanCompleted LoanStatus = "completed"
	LoanDefaulted LoanStatus = "defaulted"
)

type (
	RepaymentCadence string
	PaymentKind      string
	ChitFundVariant  string
	LoanStatus       string

	// Loan is an instalment loan. Amount is the disbursed principal and
	// InterestRate is the flat amount charged per period (monthly loans
	// only; weekly loans earn the excess of repayments over principal).
	// OverdueAmount, MissedPeriods and NextPaymentDate are derived fields:
	// the persistence layer writes back whatever the schedule tracker
	// computed after every repayment mutation.
	Loan struct {
		ID               uuid.UUID
		Amount           decimal.Decimal
		InterestRate     decimal.Decimal
		DocumentCharge   decimal.Decimal
		RepaymentType    RepaymentCadence
		DisbursementDate time.Time
		Duration         int // total number of periods
		RemainingAmount  decimal.Decimal
		OverdueAmount    decimal.Decimal
		MissedPeriods    int
		NextPaymentDate  *time.Time
		Status           LoanStatus
		CreatedAt        time.Time
		UpdatedAt        time.Time
	}

	// Repayment is an append-only payment fact against one loan period.
	// When two repayments carry the same period, the one with the latest
	// PaidDate is authoritative.
	Repayment struct {
		ID          uuid.UUID
		LoanID      uuid.UUID
		Amount      decimal.Decimal
		PaidDate    time.Time
		PaymentType PaymentKind
		Period      int // 1-based instalment number; 0 means "derive from PaidDate" (weekly only)
	}

	// ChitFund is a rotating savings pool. FirstMonthContribution is only
	// meaningful for the fixed variant and is zero otherwise.
	ChitFund struct {
		ID                     uuid.UUID
		TotalAmount            decimal.Decimal
		MonthlyContribution    decimal.Decimal
		FirstMonthContribution decimal.Decimal
		MemberCount            int
		Duration               int // total number of periods
		ChitFundType           ChitFundVariant
		CurrentPeriod          int
		StartDate              time.Time
		CreatedAt              time.Time
		UpdatedAt              time.Time
	}

	// Contribution is a member payment into a chit fund for one period.
	Contribution struct {
		ID          uuid.UUID
		ChitFundID  uuid.UUID
		Amount      decimal.Decimal
		PaidDate    time.Time
		Period      int
		Balance     decimal.Decimal // outstanding part of the period contribution, zero when settled
		BalancePaid bool
	}

	// Auction records the payout of one chit-fund period.
	Auction struct {
		ID         uuid.UUID
		ChitFundID uuid.UUID
		Amount     decimal.Decimal // payout handed to the winning member
		Date       time.Time
		Period     int
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidDuration     = errors.New("invalid duration")
	ErrInvalidPeriod       = errors.New("invalid period")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidRange        = errors.New("invalid period range")
	ErrUnknownCadence      = errors.New("unknown repayment cadence")
	ErrUnknownPaymentKind  = errors.New("unknown payment kind")
	ErrUnknownFundVariant  = errors.New("unknown chit fund variant")
	ErrInvalidMemberCount  = errors.New("invalid member count")
)

// Valid reports whether the cadence is one of the closed set.
func (c RepaymentCadence) Valid() bool {
	return c == CadenceMonthly || c == CadenceWeekly
}

// Valid reports whether the payment kind is one of the closed set.
func (k PaymentKind) Valid() bool {
	return k == PaymentFull || k == PaymentInterestOnly
}

// Valid reports whether the variant is one of the closed set.
func (v ChitFundVariant) Valid() bool {
	return v == VariantAuction || v == VariantFixed
}

func (l Loan) Validate() error {
	if !l.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if l.Duration <= 0 {
		return ErrInvalidDuration
	}
	if !l.RepaymentType.Valid() {
		return ErrUnknownCadence
	}
	if l.DisbursementDate.IsZero() {
		return ErrInvalidDate
	}
	if l.InterestRate.IsNegative() || l.DocumentCharge.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (r Repayment) Validate() error {
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if r.PaidDate.IsZero() {
		return ErrInvalidDate
	}
	if !r.PaymentType.Valid() {
		return ErrUnknownPaymentKind
	}
	if r.Period < 0 {
		return ErrInvalidPeriod
	}
	return nil
}

func (f ChitFund) Validate() error {
	if !f.TotalAmount.IsPositive() || !f.MonthlyContribution.IsPositive() {
		return ErrInvalidAmount
	}
	if f.MemberCount <= 0 {
		return ErrInvalidMemberCount
	}
	if f.Duration <= 0 {
		return ErrInvalidDuration
	}
	if !f.ChitFundType.Valid() {
		return ErrUnknownFundVariant
	}
	if f.ChitFundType == VariantFixed && !f.FirstMonthContribution.IsPositive() {
		return ErrInvalidAmount
	}
	if f.StartDate.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (c Contribution) Validate() error {
	if !c.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if c.PaidDate.IsZero() {
		return ErrInvalidDate
	}
	if c.Period <= 0 {
		return ErrInvalidPeriod
	}
	return nil
}

func (a Auction) Validate() error {
	if !a.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if a.Date.IsZero() {
		return ErrInvalidDate
	}
	if a.Period <= 0 {
		return ErrInvalidPeriod
	}
	return nil
}
