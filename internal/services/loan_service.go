package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"chitbook/internal/amqp"
	"chitbook/internal/core"
	"chitbook/internal/finance"
	"chitbook/internal/storage"
)

// LoanService orchestrates loan operations across SQLite and AMQP. Every
// repayment mutation recomputes the loan's derived fields inside the storage
// transaction, the AMQP message only tells other workers to pick up the
// change.
type LoanService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	version    atomic.Int64
}

func NewLoanService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *LoanService {
	return &LoanService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// CreateLoan stores the loan and computes its initial derived fields.
func (s *LoanService) CreateLoan(ctx context.Context, loan core.Loan) (core.Loan, error) {
	if err := s.storage.CreateLoan(ctx, loan); err != nil {
		return core.Loan{}, fmt.Errorf("create loan: %w", err)
	}

	created, err := s.storage.RecomputeLoan(ctx, loan.ID)
	if err != nil {
		return core.Loan{}, fmt.Errorf("compute initial loan state: %w", err)
	}

	s.publishRecompute(ctx, loan.ID)
	return created, nil
}

// RecordRepayment saves a repayment and returns the loan with refreshed
// derived fields.
func (s *LoanService) RecordRepayment(ctx context.Context, rep core.Repayment) (core.Loan, error) {
	loan, err := s.storage.RecordRepayment(ctx, rep)
	if err != nil {
		return core.Loan{}, fmt.Errorf("record repayment: %w", err)
	}

	s.publishRecompute(ctx, loan.ID)
	return loan, nil
}

// DeleteRepayment removes a repayment and returns the loan recomputed from
// the remaining facts.
func (s *LoanService) DeleteRepayment(ctx context.Context, repaymentID uuid.UUID) (core.Loan, error) {
	loan, err := s.storage.DeleteRepayment(ctx, repaymentID)
	if err != nil {
		return core.Loan{}, fmt.Errorf("delete repayment: %w", err)
	}

	s.publishRecompute(ctx, loan.ID)
	return loan, nil
}

// RecomputeLoan refreshes one loan's derived fields from stored facts.
func (s *LoanService) RecomputeLoan(ctx context.Context, loanID uuid.UUID) (core.Loan, error) {
	return s.storage.RecomputeLoan(ctx, loanID)
}

func (s *LoanService) GetLoan(ctx context.Context, id uuid.UUID) (core.Loan, error) {
	return s.storage.GetLoan(ctx, id)
}

func (s *LoanService) ListLoans(ctx context.Context) ([]core.Loan, error) {
	return s.storage.ListLoans(ctx)
}

func (s *LoanService) ListRepayments(ctx context.Context, loanID uuid.UUID) ([]core.Repayment, error) {
	return s.storage.ListRepayments(ctx, loanID)
}

func (s *LoanService) LoanAccounts(ctx context.Context) ([]finance.LoanAccount, error) {
	return s.storage.LoanAccounts(ctx)
}

// publishRecompute is best effort. The loan is already consistent on disk, a
// lost message only delays downstream report refreshes.
func (s *LoanService) publishRecompute(ctx context.Context, loanID uuid.UUID) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping recompute message")
		return
	}
	if err := s.amqpClient.PublishLoanRecompute(ctx, loanID, s.version.Add(1)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish recompute message",
			"loan_id", loanID, "error", err)
	}
}

// Close closes both storage and AMQP connections.
func (s *LoanService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close loan service: %v", errs)
	}
	return nil
}
