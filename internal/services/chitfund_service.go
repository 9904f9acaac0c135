package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"chitbook/internal/core"
	"chitbook/internal/finance"
	"chitbook/internal/storage"
)

// ChitFundService orchestrates chit fund operations. Fund profit is always
// computed on read from stored facts, so no async recompute is needed here.
type ChitFundService struct {
	storage *storage.SQLiteRepository
}

func NewChitFundService(storage *storage.SQLiteRepository) *ChitFundService {
	return &ChitFundService{storage: storage}
}

func (s *ChitFundService) CreateChitFund(ctx context.Context, fund core.ChitFund) error {
	if err := s.storage.CreateChitFund(ctx, fund); err != nil {
		return fmt.Errorf("create chit fund: %w", err)
	}
	return nil
}

func (s *ChitFundService) RecordContribution(ctx context.Context, c core.Contribution) error {
	if err := s.storage.RecordContribution(ctx, c); err != nil {
		return fmt.Errorf("record contribution: %w", err)
	}
	return nil
}

// RecordAuction stores the auction and advances the fund's current period.
func (s *ChitFundService) RecordAuction(ctx context.Context, a core.Auction) error {
	if err := s.storage.RecordAuction(ctx, a); err != nil {
		return fmt.Errorf("record auction: %w", err)
	}
	return nil
}

func (s *ChitFundService) GetChitFund(ctx context.Context, id uuid.UUID) (core.ChitFund, error) {
	return s.storage.GetChitFund(ctx, id)
}

func (s *ChitFundService) ListChitFunds(ctx context.Context) ([]core.ChitFund, error) {
	return s.storage.ListChitFunds(ctx)
}

func (s *ChitFundService) ListContributions(ctx context.Context, fundID uuid.UUID) ([]core.Contribution, error) {
	return s.storage.ListContributions(ctx, fundID)
}

func (s *ChitFundService) ListAuctions(ctx context.Context, fundID uuid.UUID) ([]core.Auction, error) {
	return s.storage.ListAuctions(ctx, fundID)
}

func (s *ChitFundService) ChitFundAccounts(ctx context.Context) ([]finance.ChitFundAccount, error) {
	return s.storage.ChitFundAccounts(ctx)
}

// FundProfitToDate computes the accumulated profit of one fund up to its
// current period.
func (s *ChitFundService) FundProfitToDate(ctx context.Context, fundID uuid.UUID) (decimal.Decimal, error) {
	fund, err := s.storage.GetChitFund(ctx, fundID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load chit fund: %w", err)
	}
	contributions, err := s.storage.ListContributions(ctx, fundID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load contributions: %w", err)
	}
	auctions, err := s.storage.ListAuctions(ctx, fundID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load auctions: %w", err)
	}

	profit, err := finance.ChitFundProfitToDate(fund, contributions, auctions)
	if err != nil {
		return decimal.Zero, fmt.Errorf("compute fund profit: %w", err)
	}
	return profit, nil
}
