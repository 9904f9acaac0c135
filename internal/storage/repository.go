// Package storage persists loans, chit funds and their payment facts in
// SQLite. Repayment mutations and the recomputation of the loan's derived
// fields run inside one transaction, so callers can never observe a loan
// whose overdue amount disagrees with its repayment set.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"chitbook/internal/core"
	"chitbook/internal/finance"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateLoan stores a new loan with its derived fields zeroed.
func (r *SQLiteRepository) CreateLoan(ctx context.Context, loan core.Loan) error {
	if err := loan.Validate(); err != nil {
		return fmt.Errorf("validate loan: %w", err)
	}

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO loans (id, amount, interest_rate, document_charge, repayment_type,
			disbursement_date, duration, remaining_amount, overdue_amount,
			missed_periods, next_payment_date, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, '0', 0, NULL, ?, ?, ?)`,
		loan.ID.String(), loan.Amount.String(), loan.InterestRate.String(),
		loan.DocumentCharge.String(), string(loan.RepaymentType),
		loan.DisbursementDate, loan.Duration, loan.Amount.String(),
		string(loan.Status), now, now)
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}

	slog.InfoContext(ctx, "Loan saved",
		"loan_id", loan.ID,
		"amount", loan.Amount,
		"repayment_type", loan.RepaymentType,
		"duration", loan.Duration)
	return nil
}

func (r *SQLiteRepository) GetLoan(ctx context.Context, id uuid.UUID) (core.Loan, error) {
	row := r.db.QueryRowContext(ctx, selectLoan+" WHERE id = ?", id.String())
	loan, err := scanLoan(row)
	if err != nil {
		return core.Loan{}, fmt.Errorf("get loan %s: %w", id, err)
	}
	return loan, nil
}

func (r *SQLiteRepository) ListLoans(ctx context.Context) ([]core.Loan, error) {
	rows, err := r.db.QueryContext(ctx, selectLoan+" ORDER BY disbursement_date")
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	var loans []core.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

// ListRepayments returns every repayment fact recorded against one loan.
func (r *SQLiteRepository) ListRepayments(ctx context.Context, loanID uuid.UUID) ([]core.Repayment, error) {
	return r.listRepayments(ctx, r.db, loanID)
}

// RecordRepayment appends a repayment fact and recomputes the loan's derived
// fields in the same transaction, returning the refreshed loan.
func (r *SQLiteRepository) RecordRepayment(ctx context.Context, rep core.Repayment) (core.Loan, error) {
	if err := rep.Validate(); err != nil {
		return core.Loan{}, fmt.Errorf("validate repayment: %w", err)
	}

	var loan core.Loan
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO repayments (id, loan_id, amount, paid_date, payment_type, period)
			VALUES (?, ?, ?, ?, ?, ?)`,
			rep.ID.String(), rep.LoanID.String(), rep.Amount.String(),
			rep.PaidDate, string(rep.PaymentType), rep.Period)
		if err != nil {
			return fmt.Errorf("insert repayment: %w", err)
		}
		loan, err = r.refreshLoanTx(ctx, tx, rep.LoanID)
		return err
	})
	if err != nil {
		return core.Loan{}, err
	}

	slog.InfoContext(ctx, "Repayment recorded",
		"loan_id", rep.LoanID,
		"repayment_id", rep.ID,
		"amount", rep.Amount,
		"period", rep.Period,
		"overdue", loan.OverdueAmount,
		"missed_periods", loan.MissedPeriods)
	return loan, nil
}

// DeleteRepayment removes a repayment fact and recomputes the loan's derived
// fields in the same transaction.
func (r *SQLiteRepository) DeleteRepayment(ctx context.Context, id uuid.UUID) (core.Loan, error) {
	var loan core.Loan
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var loanIDText string
		err := tx.QueryRowContext(ctx,
			"SELECT loan_id FROM repayments WHERE id = ?", id.String()).Scan(&loanIDText)
		if err != nil {
			return fmt.Errorf("find repayment %s: %w", id, err)
		}
		loanID, err := uuid.Parse(loanIDText)
		if err != nil {
			return fmt.Errorf("parse loan id: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM repayments WHERE id = ?", id.String()); err != nil {
			return fmt.Errorf("delete repayment: %w", err)
		}
		loan, err = r.refreshLoanTx(ctx, tx, loanID)
		return err
	})
	if err != nil {
		return core.Loan{}, err
	}

	slog.InfoContext(ctx, "Repayment deleted, loan recomputed",
		"repayment_id", id,
		"loan_id", loan.ID,
		"overdue", loan.OverdueAmount,
		"missed_periods", loan.MissedPeriods)
	return loan, nil
}

// RecomputeLoan refreshes a loan's derived fields from its stored repayment
// set without mutating any facts. The recompute worker calls this on every
// mutation message and during its startup backfill.
func (r *SQLiteRepository) RecomputeLoan(ctx context.Context, loanID uuid.UUID) (core.Loan, error) {
	var loan core.Loan
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		loan, err = r.refreshLoanTx(ctx, tx, loanID)
		return err
	})
	return loan, err
}

// LoanAccounts loads every loan with its repayments for the aggregator.
func (r *SQLiteRepository) LoanAccounts(ctx context.Context) ([]finance.LoanAccount, error) {
	loans, err := r.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	accounts := make([]finance.LoanAccount, 0, len(loans))
	for _, loan := range loans {
		reps, err := r.ListRepayments(ctx, loan.ID)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, finance.LoanAccount{Loan: loan, Repayments: reps})
	}
	return accounts, nil
}

// refreshLoanTx reloads the loan and its repayments inside tx, reruns the
// schedule tracker and writes the derived fields back.
func (r *SQLiteRepository) refreshLoanTx(ctx context.Context, tx *sql.Tx, loanID uuid.UUID) (core.Loan, error) {
	row := tx.QueryRowContext(ctx, selectLoan+" WHERE id = ?", loanID.String())
	loan, err := scanLoan(row)
	if err != nil {
		return core.Loan{}, fmt.Errorf("get loan %s: %w", loanID, err)
	}

	reps, err := r.listRepayments(ctx, tx, loanID)
	if err != nil {
		return core.Loan{}, err
	}

	loan, err = finance.RefreshDerived(loan, reps, time.Now().UTC())
	if err != nil {
		return core.Loan{}, fmt.Errorf("refresh derived fields: %w", err)
	}

	var next any
	if loan.NextPaymentDate != nil {
		next = *loan.NextPaymentDate
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE loans SET remaining_amount = ?, overdue_amount = ?, missed_periods = ?,
			next_payment_date = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		loan.RemainingAmount.String(), loan.OverdueAmount.String(), loan.MissedPeriods,
		next, string(loan.Status), loan.UpdatedAt, loan.ID.String())
	if err != nil {
		return core.Loan{}, fmt.Errorf("update loan derived fields: %w", err)
	}
	return loan, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *SQLiteRepository) listRepayments(ctx context.Context, q querier, loanID uuid.UUID) ([]core.Repayment, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, loan_id, amount, paid_date, payment_type, period
		FROM repayments WHERE loan_id = ? ORDER BY paid_date`, loanID.String())
	if err != nil {
		return nil, fmt.Errorf("list repayments: %w", err)
	}
	defer rows.Close()

	var reps []core.Repayment
	for rows.Next() {
		var (
			rep              core.Repayment
			idText, loanText string
			amountText       string
			paymentType      string
		)
		if err := rows.Scan(&idText, &loanText, &amountText, &rep.PaidDate, &paymentType, &rep.Period); err != nil {
			return nil, fmt.Errorf("scan repayment: %w", err)
		}
		if rep.ID, err = uuid.Parse(idText); err != nil {
			return nil, fmt.Errorf("parse repayment id: %w", err)
		}
		if rep.LoanID, err = uuid.Parse(loanText); err != nil {
			return nil, fmt.Errorf("parse loan id: %w", err)
		}
		if rep.Amount, err = decimal.NewFromString(amountText); err != nil {
			return nil, fmt.Errorf("parse repayment amount: %w", err)
		}
		rep.PaymentType = core.PaymentKind(paymentType)
		reps = append(reps, rep)
	}
	return reps, rows.Err()
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const selectLoan = `
	SELECT id, amount, interest_rate, document_charge, repayment_type,
		disbursement_date, duration, remaining_amount, overdue_amount,
		missed_periods, next_payment_date, status, created_at, updated_at
	FROM loans`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoan(row rowScanner) (core.Loan, error) {
	var (
		loan                                            core.Loan
		idText, amountText, rateText, chargeText        string
		remainingText, overdueText, cadence, statusText string
		next                                            sql.NullTime
	)
	err := row.Scan(&idText, &amountText, &rateText, &chargeText, &cadence,
		&loan.DisbursementDate, &loan.Duration, &remainingText, &overdueText,
		&loan.MissedPeriods, &next, &statusText, &loan.CreatedAt, &loan.UpdatedAt)
	if err != nil {
		return core.Loan{}, err
	}

	if loan.ID, err = uuid.Parse(idText); err != nil {
		return core.Loan{}, fmt.Errorf("parse loan id: %w", err)
	}
	if loan.Amount, err = decimal.NewFromString(amountText); err != nil {
		return core.Loan{}, fmt.Errorf("parse amount: %w", err)
	}
	if loan.InterestRate, err = decimal.NewFromString(rateText); err != nil {
		return core.Loan{}, fmt.Errorf("parse interest rate: %w", err)
	}
	if loan.DocumentCharge, err = decimal.NewFromString(chargeText); err != nil {
		return core.Loan{}, fmt.Errorf("parse document charge: %w", err)
	}
	if loan.RemainingAmount, err = decimal.NewFromString(remainingText); err != nil {
		return core.Loan{}, fmt.Errorf("parse remaining amount: %w", err)
	}
	if loan.OverdueAmount, err = decimal.NewFromString(overdueText); err != nil {
		return core.Loan{}, fmt.Errorf("parse overdue amount: %w", err)
	}
	loan.RepaymentType = core.RepaymentCadence(cadence)
	loan.Status = core.LoanStatus(statusText)
	if next.Valid {
		t := next.Time
		loan.NextPaymentDate = &t
	}
	return loan, nil
}
