package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"chitbook/internal/core"
	"chitbook/internal/finance"
)

// CreateChitFund stores a new chit fund.
func (r *SQLiteRepository) CreateChitFund(ctx context.Context, fund core.ChitFund) error {
	if err := fund.Validate(); err != nil {
		return fmt.Errorf("validate chit fund: %w", err)
	}

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chit_funds (id, total_amount, monthly_contribution,
			first_month_contribution, member_count, duration, chit_fund_type,
			current_period, start_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		fund.ID.String(), fund.TotalAmount.String(), fund.MonthlyContribution.String(),
		fund.FirstMonthContribution.String(), fund.MemberCount, fund.Duration,
		string(fund.ChitFundType), fund.CurrentPeriod, fund.StartDate, now, now)
	if err != nil {
		return fmt.Errorf("insert chit fund: %w", err)
	}

	slog.InfoContext(ctx, "Chit fund saved",
		"chit_fund_id", fund.ID,
		"total_amount", fund.TotalAmount,
		"variant", fund.ChitFundType,
		"members", fund.MemberCount)
	return nil
}

func (r *SQLiteRepository) GetChitFund(ctx context.Context, id uuid.UUID) (core.ChitFund, error) {
	row := r.db.QueryRowContext(ctx, selectChitFund+" WHERE id = ?", id.String())
	fund, err := scanChitFund(row)
	if err != nil {
		return core.ChitFund{}, fmt.Errorf("get chit fund %s: %w", id, err)
	}
	return fund, nil
}

func (r *SQLiteRepository) ListChitFunds(ctx context.Context) ([]core.ChitFund, error) {
	rows, err := r.db.QueryContext(ctx, selectChitFund+" ORDER BY start_date")
	if err != nil {
		return nil, fmt.Errorf("list chit funds: %w", err)
	}
	defer rows.Close()

	var funds []core.ChitFund
	for rows.Next() {
		fund, err := scanChitFund(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chit fund: %w", err)
		}
		funds = append(funds, fund)
	}
	return funds, rows.Err()
}

// RecordContribution appends a member contribution fact.
func (r *SQLiteRepository) RecordContribution(ctx context.Context, c core.Contribution) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate contribution: %w", err)
	}

	balancePaid := 0
	if c.BalancePaid {
		balancePaid = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contributions (id, chit_fund_id, amount, paid_date, period, balance, balance_paid)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.ChitFundID.String(), c.Amount.String(),
		c.PaidDate, c.Period, c.Balance.String(), balancePaid)
	if err != nil {
		return fmt.Errorf("insert contribution: %w", err)
	}

	slog.InfoContext(ctx, "Contribution recorded",
		"chit_fund_id", c.ChitFundID,
		"amount", c.Amount,
		"period", c.Period)
	return nil
}

// RecordAuction appends an auction payout fact and advances the fund's
// current period when the auction is for a later period.
func (r *SQLiteRepository) RecordAuction(ctx context.Context, a core.Auction) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("validate auction: %w", err)
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO auctions (id, chit_fund_id, amount, auction_date, period)
			VALUES (?, ?, ?, ?, ?)`,
			a.ID.String(), a.ChitFundID.String(), a.Amount.String(), a.Date, a.Period)
		if err != nil {
			return fmt.Errorf("insert auction: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE chit_funds SET current_period = MAX(current_period, ?), updated_at = ?
			WHERE id = ?`,
			a.Period, time.Now().UTC(), a.ChitFundID.String())
		if err != nil {
			return fmt.Errorf("advance chit fund period: %w", err)
		}

		slog.InfoContext(ctx, "Auction recorded",
			"chit_fund_id", a.ChitFundID,
			"payout", a.Amount,
			"period", a.Period)
		return nil
	})
}

func (r *SQLiteRepository) ListContributions(ctx context.Context, fundID uuid.UUID) ([]core.Contribution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chit_fund_id, amount, paid_date, period, balance, balance_paid
		FROM contributions WHERE chit_fund_id = ? ORDER BY paid_date`, fundID.String())
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	var contributions []core.Contribution
	for rows.Next() {
		var (
			c                       core.Contribution
			idText, fundText        string
			amountText, balanceText string
			balancePaid             int
		)
		if err := rows.Scan(&idText, &fundText, &amountText, &c.PaidDate, &c.Period, &balanceText, &balancePaid); err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		if c.ID, err = uuid.Parse(idText); err != nil {
			return nil, fmt.Errorf("parse contribution id: %w", err)
		}
		if c.ChitFundID, err = uuid.Parse(fundText); err != nil {
			return nil, fmt.Errorf("parse chit fund id: %w", err)
		}
		if c.Amount, err = decimal.NewFromString(amountText); err != nil {
			return nil, fmt.Errorf("parse contribution amount: %w", err)
		}
		if c.Balance, err = decimal.NewFromString(balanceText); err != nil {
			return nil, fmt.Errorf("parse contribution balance: %w", err)
		}
		c.BalancePaid = balancePaid != 0
		contributions = append(contributions, c)
	}
	return contributions, rows.Err()
}

func (r *SQLiteRepository) ListAuctions(ctx context.Context, fundID uuid.UUID) ([]core.Auction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chit_fund_id, amount, auction_date, period
		FROM auctions WHERE chit_fund_id = ? ORDER BY period`, fundID.String())
	if err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}
	defer rows.Close()

	var auctions []core.Auction
	for rows.Next() {
		var (
			a                core.Auction
			idText, fundText string
			amountText       string
		)
		if err := rows.Scan(&idText, &fundText, &amountText, &a.Date, &a.Period); err != nil {
			return nil, fmt.Errorf("scan auction: %w", err)
		}
		if a.ID, err = uuid.Parse(idText); err != nil {
			return nil, fmt.Errorf("parse auction id: %w", err)
		}
		if a.ChitFundID, err = uuid.Parse(fundText); err != nil {
			return nil, fmt.Errorf("parse chit fund id: %w", err)
		}
		if a.Amount, err = decimal.NewFromString(amountText); err != nil {
			return nil, fmt.Errorf("parse auction amount: %w", err)
		}
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}

// ChitFundAccounts loads every chit fund with its contributions and auctions
// for the aggregator.
func (r *SQLiteRepository) ChitFundAccounts(ctx context.Context) ([]finance.ChitFundAccount, error) {
	funds, err := r.ListChitFunds(ctx)
	if err != nil {
		return nil, err
	}
	accounts := make([]finance.ChitFundAccount, 0, len(funds))
	for _, fund := range funds {
		contributions, err := r.ListContributions(ctx, fund.ID)
		if err != nil {
			return nil, err
		}
		auctions, err := r.ListAuctions(ctx, fund.ID)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, finance.ChitFundAccount{
			Fund:          fund,
			Contributions: contributions,
			Auctions:      auctions,
		})
	}
	return accounts, nil
}

const selectChitFund = `
	SELECT id, total_amount, monthly_contribution, first_month_contribution,
		member_count, duration, chit_fund_type, current_period, start_date,
		created_at, updated_at
	FROM chit_funds`

func scanChitFund(row rowScanner) (core.ChitFund, error) {
	var (
		fund                           core.ChitFund
		idText, totalText, monthlyText string
		firstText, variant             string
	)
	err := row.Scan(&idText, &totalText, &monthlyText, &firstText,
		&fund.MemberCount, &fund.Duration, &variant, &fund.CurrentPeriod,
		&fund.StartDate, &fund.CreatedAt, &fund.UpdatedAt)
	if err != nil {
		return core.ChitFund{}, err
	}

	if fund.ID, err = uuid.Parse(idText); err != nil {
		return core.ChitFund{}, fmt.Errorf("parse chit fund id: %w", err)
	}
	if fund.TotalAmount, err = decimal.NewFromString(totalText); err != nil {
		return core.ChitFund{}, fmt.Errorf("parse total amount: %w", err)
	}
	if fund.MonthlyContribution, err = decimal.NewFromString(monthlyText); err != nil {
		return core.ChitFund{}, fmt.Errorf("parse monthly contribution: %w", err)
	}
	if fund.FirstMonthContribution, err = decimal.NewFromString(firstText); err != nil {
		return core.ChitFund{}, fmt.Errorf("parse first month contribution: %w", err)
	}
	fund.ChitFundType = core.ChitFundVariant(variant)
	return fund, nil
}
