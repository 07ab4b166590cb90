// Package report builds the financial statements from rolled-up ledger balances.
//
// Builders are pure functions over a rollup.Tree. Service loads accounts and
// active entries from a store, runs the roll-up and hands the tree to a builder.
package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tinoosan/shopledger/internal/config"
	"github.com/tinoosan/shopledger/internal/errs"
	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/rollup"
	"github.com/tinoosan/shopledger/internal/storage"
)

// AccountBalance is one account's rolled-up balance, keyed by account id in ComputeBalances.
type AccountBalance struct {
	AccountID      uuid.UUID          `json:"account_id"`
	Code           string             `json:"code"`
	Name           string             `json:"name"`
	Type           ledger.AccountType `json:"type"`
	OpeningDebit   decimal.Decimal    `json:"opening_debit"`
	OpeningCredit  decimal.Decimal    `json:"opening_credit"`
	MovementDebit  decimal.Decimal    `json:"movement_debit"`
	MovementCredit decimal.Decimal    `json:"movement_credit"`
	Closing        decimal.Decimal    `json:"closing_balance"`
}

// AgingQuery selects an as-of date and a page of counterparties.
type AgingQuery struct {
	AsOf     time.Time
	Page     int
	PageSize int
}

type Service interface {
	ComputeBalances(ctx context.Context, p rollup.Period) (map[uuid.UUID]AccountBalance, error)
	TrialBalance(ctx context.Context, p rollup.Period) (TrialBalance, error)
	ProfitAndLoss(ctx context.Context, p rollup.Period) (ProfitAndLoss, error)
	PeriodicProfitAndLoss(ctx context.Context, p rollup.Period) (PeriodicProfitAndLoss, error)
	YTDProfitAndLoss(ctx context.Context, p rollup.Period) (YTDProfitAndLoss, error)
	BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error)
	CashFlow(ctx context.Context, p rollup.Period) (CashFlow, error)
	DebtorsAging(ctx context.Context, q AgingQuery) (Aging, error)
	CreditorsAging(ctx context.Context, q AgingQuery) (Aging, error)
	Expenses(ctx context.Context, p rollup.Period) (ExpensesReport, error)
	Dashboard(ctx context.Context, asOf time.Time) (Dashboard, error)
}

type service struct {
	store storage.Reader
	roles config.Roles
	log   *slog.Logger
	now   func() time.Time
}

func New(store storage.Reader, roles config.Roles, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{store: store, roles: roles, log: logger, now: func() time.Time { return time.Now().UTC() }}
}

func validatePeriod(p rollup.Period) error {
	if p.Start != nil && p.End != nil && startOfDay(*p.Start).After(startOfDay(*p.End)) {
		return errs.Invalid("start_date", "must not be after end_date")
	}
	return nil
}

// load fetches active accounts and the active entries up to the end of the
// period. An open-ended period stops now, so future-dated postings stay out.
func (s *service) load(ctx context.Context, p rollup.Period) ([]ledger.Account, []ledger.LedgerEntry, error) {
	if err := validatePeriod(p); err != nil {
		return nil, nil, err
	}
	accounts, err := s.store.Accounts(ctx, storage.AccountFilter{})
	if err != nil {
		return nil, nil, err
	}
	end := s.now()
	if p.End != nil {
		end = endOfDay(*p.End)
	}
	f := storage.EntryFilter{Status: ledger.StatusActive, End: &end}
	entries, err := s.store.Entries(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	return accounts, entries, nil
}

func (s *service) tree(ctx context.Context, p rollup.Period) (*rollup.Tree, error) {
	accounts, entries, err := s.load(ctx, p)
	if err != nil {
		return nil, err
	}
	return rollup.Compute(accounts, entries, p)
}

func (s *service) ComputeBalances(ctx context.Context, p rollup.Period) (map[uuid.UUID]AccountBalance, error) {
	t, err := s.tree(ctx, p)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]AccountBalance, t.Len())
	t.Walk(func(n *rollup.Node) bool {
		out[n.Account.ID] = AccountBalance{
			AccountID:      n.Account.ID,
			Code:           n.Account.Code,
			Name:           n.Account.Name,
			Type:           n.Account.Type,
			OpeningDebit:   n.Total.OpeningDebit,
			OpeningCredit:  n.Total.OpeningCredit,
			MovementDebit:  n.Total.MovementDebit,
			MovementCredit: n.Total.MovementCredit,
			Closing:        n.Total.Closing(),
		}
		return true
	})
	return out, nil
}

func (s *service) TrialBalance(ctx context.Context, p rollup.Period) (TrialBalance, error) {
	t, err := s.tree(ctx, p)
	if err != nil {
		return TrialBalance{}, err
	}
	tb := BuildTrialBalance(t)
	if !tb.IsBalanced {
		s.log.Warn("trial balance does not balance",
			"closing_debit", tb.Totals.ClosingDebit.String(),
			"closing_credit", tb.Totals.ClosingCredit.String())
	}
	return tb, nil
}

func (s *service) ProfitAndLoss(ctx context.Context, p rollup.Period) (ProfitAndLoss, error) {
	t, err := s.tree(ctx, p)
	if err != nil {
		return ProfitAndLoss{}, err
	}
	return BuildProfitAndLoss(t, s.roles.Code(config.RoleCOGS)), nil
}

// monthly computes one tree per calendar month of p. A missing start begins at the
// month of the first active entry; a missing end stops today.
func (s *service) monthly(ctx context.Context, p rollup.Period) ([]*rollup.Tree, error) {
	accounts, entries, err := s.load(ctx, p)
	if err != nil {
		return nil, err
	}
	to := s.now()
	if p.End != nil {
		to = *p.End
	}
	var from time.Time
	switch {
	case p.Start != nil:
		from = *p.Start
	case len(entries) > 0:
		from = entries[0].Date
		for _, e := range entries {
			if e.Date.Before(from) {
				from = e.Date
			}
		}
	default:
		return []*rollup.Tree{}, nil
	}
	from, to = startOfDay(from), startOfDay(to)

	out := make([]*rollup.Tree, 0)
	for _, m := range months(from, to) {
		t, err := rollup.Compute(accounts, entries, m)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *service) PeriodicProfitAndLoss(ctx context.Context, p rollup.Period) (PeriodicProfitAndLoss, error) {
	trees, err := s.monthly(ctx, p)
	if err != nil {
		return PeriodicProfitAndLoss{}, err
	}
	return BuildPeriodicProfitAndLoss(p, trees, s.roles.Code(config.RoleCOGS)), nil
}

func (s *service) YTDProfitAndLoss(ctx context.Context, p rollup.Period) (YTDProfitAndLoss, error) {
	trees, err := s.monthly(ctx, p)
	if err != nil {
		return YTDProfitAndLoss{}, err
	}
	return BuildYTDProfitAndLoss(p, trees, s.roles.Code(config.RoleCOGS)), nil
}

func (s *service) BalanceSheet(ctx context.Context, asOf time.Time) (BalanceSheet, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	t, err := s.tree(ctx, rollup.Period{End: &asOf})
	if err != nil {
		return BalanceSheet{}, err
	}
	bs := BuildBalanceSheet(t, asOf)
	if !bs.Summary.IsBalanced {
		s.log.Warn("balance sheet does not balance", "discrepancy", bs.Summary.Discrepancy.String())
	}
	return bs, nil
}

func (s *service) CashFlow(ctx context.Context, p rollup.Period) (CashFlow, error) {
	t, err := s.tree(ctx, p)
	if err != nil {
		return CashFlow{}, err
	}
	return BuildCashFlow(t), nil
}

func (s *service) DebtorsAging(ctx context.Context, q AgingQuery) (Aging, error) {
	return s.aging(ctx, ledger.DocumentSale, q)
}

func (s *service) CreditorsAging(ctx context.Context, q AgingQuery) (Aging, error) {
	return s.aging(ctx, ledger.DocumentPurchase, q)
}

func (s *service) aging(ctx context.Context, kind ledger.DocumentKind, q AgingQuery) (Aging, error) {
	if q.Page < 0 {
		return Aging{}, errs.Invalid("page", "must be >= 1")
	}
	if q.PageSize < 0 {
		return Aging{}, errs.Invalid("page_size", "must be >= 1")
	}
	if q.AsOf.IsZero() {
		q.AsOf = s.now()
	}
	docs, err := s.store.Documents(ctx, storage.DocumentFilter{Kind: kind, OpenOnly: true})
	if err != nil {
		return Aging{}, err
	}
	return BuildAging(docs, q.AsOf, q.Page, q.PageSize), nil
}

func (s *service) Expenses(ctx context.Context, p rollup.Period) (ExpensesReport, error) {
	t, err := s.tree(ctx, p)
	if err != nil {
		return ExpensesReport{}, err
	}
	f := storage.DocumentFilter{Kind: ledger.DocumentExpense, ExcludeVoid: true}
	if p.Start != nil {
		start := startOfDay(*p.Start)
		f.Start = &start
	}
	end := s.now()
	if p.End != nil {
		end = endOfDay(*p.End)
	}
	f.End = &end
	docs, err := s.store.Documents(ctx, f)
	if err != nil {
		return ExpensesReport{}, err
	}
	return BuildExpensesReport(t, docs, s.roles.Code(config.RoleCOGS)), nil
}

// Dashboard loads the ledger once and rolls it up for all time and for each
// trailing day up to asOf.
func (s *service) Dashboard(ctx context.Context, asOf time.Time) (Dashboard, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	p := rollup.Period{End: &asOf}
	accounts, entries, err := s.load(ctx, p)
	if err != nil {
		return Dashboard{}, err
	}
	total, err := rollup.Compute(accounts, entries, p)
	if err != nil {
		return Dashboard{}, err
	}
	days := make([]*rollup.Tree, 0, DashboardDays)
	for _, d := range trailingDays(asOf, DashboardDays) {
		t, err := rollup.Compute(accounts, entries, d)
		if err != nil {
			return Dashboard{}, err
		}
		days = append(days, t)
	}
	docs, err := s.store.Documents(ctx, storage.DocumentFilter{ExcludeVoid: true})
	if err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(total, days, docs, s.roles, asOf), nil
}
