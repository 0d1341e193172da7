package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DashboardOverview aggregates the figures the role-gated dashboard shows.
// Financial fields are only exposed to callers holding
// dashboard:view_financials; the handler zeroes them otherwise.
type DashboardOverview struct {
	TotalCustomers       int64 `json:"total_customers"`
	ActiveLoans          int64 `json:"active_loans"`
	PortfolioOutstanding int64 `json:"portfolio_outstanding"`
	DueToday             int64 `json:"due_today"`
	OverdueInstallments  int64 `json:"overdue_installments"`
	IncomeThisMonth      int64 `json:"income_this_month"`
	ExpenseThisMonth     int64 `json:"expense_this_month"`
}

type DashboardStore struct {
	db *pgxpool.Pool
}

func (s *DashboardStore) Overview(ctx context.Context, orgID int64) (*DashboardOverview, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	query := `
        SELECT
            (SELECT COUNT(*) FROM customers WHERE organization_id = $1),
            (SELECT COUNT(*) FROM loans WHERE organization_id = $1 AND status = 'active'),
            (SELECT COALESCE(SUM(outstanding_amount), 0) FROM loans WHERE organization_id = $1 AND status = 'active'),
            (SELECT COALESCE(SUM(ls.total_due - ls.paid_amount), 0)
               FROM loan_schedules ls
               JOIN loans l ON l.id = ls.loan_id
              WHERE l.organization_id = $1 AND l.status = 'active'
                AND ls.status <> 'paid' AND ls.due_date >= $2 AND ls.due_date < $3),
            (SELECT COUNT(*)
               FROM loan_schedules ls
               JOIN loans l ON l.id = ls.loan_id
              WHERE l.organization_id = $1 AND l.status = 'active'
                AND ls.status <> 'paid' AND ls.due_date < $2),
            (SELECT COALESCE(SUM(amount), 0) FROM transactions
              WHERE organization_id = $1 AND type = 'income' AND occurred_at >= $4),
            (SELECT COALESCE(SUM(amount), 0) FROM transactions
              WHERE organization_id = $1 AND type = 'expense' AND occurred_at >= $4)
    `
	var o DashboardOverview
	err := s.db.QueryRow(ctx, query, orgID, dayStart, dayEnd, monthStart).Scan(
		&o.TotalCustomers, &o.ActiveLoans, &o.PortfolioOutstanding,
		&o.DueToday, &o.OverdueInstallments, &o.IncomeThisMonth, &o.ExpenseThisMonth,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
