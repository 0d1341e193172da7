package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Loan statuses. Transitions: pending -> approved -> active -> closed, with
// defaulted reachable from active.
const (
	LoanStatusPending   = "pending"
	LoanStatusApproved  = "approved"
	LoanStatusActive    = "active"
	LoanStatusClosed    = "closed"
	LoanStatusDefaulted = "defaulted"
)

// Schedule entry statuses.
const (
	InstallmentPending = "pending"
	InstallmentPartial = "partial"
	InstallmentPaid    = "paid"
)

var ErrInvalidTransition = errors.New("invalid loan status transition")

type Loan struct {
	ID                int64      `json:"id"`
	OrganizationID    int64      `json:"organization_id"`
	CustomerID        int64      `json:"customer_id"`
	Reference         string     `json:"reference"`
	PrincipalAmount   int64      `json:"principal_amount"`
	InterestRateBPS   int        `json:"interest_rate_bps"`
	TermMonths        int        `json:"term_months"`
	Method            string     `json:"method"`
	Status            string     `json:"status"`
	OutstandingAmount int64      `json:"outstanding_amount"`
	DisbursedAt       *time.Time `json:"disbursed_at,omitempty"`
	ApprovedBy        *int64     `json:"approved_by,omitempty"`
	CreatedBy         int64      `json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type LoanFilter struct {
	Status     string
	CustomerID int64
	Limit      int
	Offset     int
}

// ScheduleEntry is a persisted installment with its repayment progress.
type ScheduleEntry struct {
	ID           int64     `json:"id"`
	LoanID       int64     `json:"loan_id"`
	Sequence     int       `json:"sequence"`
	DueDate      time.Time `json:"due_date"`
	PrincipalDue int64     `json:"principal_due"`
	InterestDue  int64     `json:"interest_due"`
	TotalDue     int64     `json:"total_due"`
	PaidAmount   int64     `json:"paid_amount"`
	Status       string    `json:"status"`
}

// DueInstallment feeds the payment-due reminders.
type DueInstallment struct {
	LoanID        int64     `json:"loan_id"`
	LoanReference string    `json:"loan_reference"`
	CustomerName  string    `json:"customer_name"`
	Sequence      int       `json:"sequence"`
	DueDate       time.Time `json:"due_date"`
	AmountDue     int64     `json:"amount_due"`
}

type LoansStore struct {
	db *pgxpool.Pool
}

const loanColumns = `
        id, organization_id, customer_id, reference, principal_amount,
        interest_rate_bps, term_months, method, status, outstanding_amount,
        disbursed_at, approved_by, created_by, created_at, updated_at`

func scanLoan(row pgx.Row) (*Loan, error) {
	var l Loan
	err := row.Scan(
		&l.ID, &l.OrganizationID, &l.CustomerID, &l.Reference, &l.PrincipalAmount,
		&l.InterestRateBPS, &l.TermMonths, &l.Method, &l.Status, &l.OutstandingAmount,
		&l.DisbursedAt, &l.ApprovedBy, &l.CreatedBy, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (s *LoansStore) Create(ctx context.Context, l *Loan) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	// The customer must belong to the same organization.
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1 AND organization_id = $2)`,
		l.CustomerID, l.OrganizationID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}

	query := `
        INSERT INTO loans (organization_id, customer_id, reference, principal_amount,
                           interest_rate_bps, term_months, method, outstanding_amount, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, status, created_at, updated_at
    `
	return s.db.QueryRow(ctx, query,
		l.OrganizationID, l.CustomerID, l.Reference, l.PrincipalAmount,
		l.InterestRateBPS, l.TermMonths, l.Method, l.PrincipalAmount, l.CreatedBy,
	).Scan(&l.ID, &l.Status, &l.CreatedAt, &l.UpdatedAt)
}

func (s *LoansStore) GetByID(ctx context.Context, orgID, loanID int64) (*Loan, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `SELECT` + loanColumns + `
        FROM loans
        WHERE id = $1 AND organization_id = $2
    `
	return scanLoan(s.db.QueryRow(ctx, query, loanID, orgID))
}

func (s *LoansStore) List(ctx context.Context, orgID int64, filter LoanFilter) ([]Loan, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `SELECT` + loanColumns + `
        FROM loans
        WHERE organization_id = $1
          AND ($2 = '' OR status = $2)
          AND ($3 = 0 OR customer_id = $3)
        ORDER BY created_at DESC
        LIMIT $4 OFFSET $5
    `
	rows, err := s.db.Query(ctx, query, orgID, filter.Status, filter.CustomerID, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loans []Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, *l)
	}
	return loans, rows.Err()
}

func (s *LoansStore) Approve(ctx context.Context, orgID, loanID, approvedBy int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := s.db.Exec(ctx, `
        UPDATE loans
        SET status = $1, approved_by = $2, updated_at = NOW()
        WHERE id = $3 AND organization_id = $4 AND status = $5
    `, LoanStatusApproved, approvedBy, loanID, orgID, LoanStatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.transitionError(ctx, orgID, loanID)
	}
	return nil
}

// Disburse activates an approved loan and writes its repayment schedule in
// the same transaction.
func (s *LoansStore) Disburse(ctx context.Context, orgID, loanID int64, disbursedAt time.Time, installments []Installment) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	outstanding := ScheduleTotal(installments)

	tag, err := tx.Exec(ctx, `
        UPDATE loans
        SET status = $1, disbursed_at = $2, outstanding_amount = $3, updated_at = NOW()
        WHERE id = $4 AND organization_id = $5 AND status = $6
    `, LoanStatusActive, disbursedAt, outstanding, loanID, orgID, LoanStatusApproved)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.transitionError(ctx, orgID, loanID)
	}

	for _, in := range installments {
		_, err := tx.Exec(ctx, `
            INSERT INTO loan_schedules (loan_id, sequence, due_date, principal_due, interest_due, total_due, status)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
        `, loanID, in.Sequence, in.DueDate, in.PrincipalDue, in.InterestDue, in.TotalDue, InstallmentPending)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *LoansStore) UpdateStatus(ctx context.Context, orgID, loanID int64, from, to string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := s.db.Exec(ctx, `
        UPDATE loans
        SET status = $1, updated_at = NOW()
        WHERE id = $2 AND organization_id = $3 AND status = $4
    `, to, loanID, orgID, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.transitionError(ctx, orgID, loanID)
	}
	return nil
}

// Delete removes a loan that was never approved.
func (s *LoansStore) Delete(ctx context.Context, orgID, loanID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := s.db.Exec(ctx, `
        DELETE FROM loans
        WHERE id = $1 AND organization_id = $2 AND status = $3
    `, loanID, orgID, LoanStatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.transitionError(ctx, orgID, loanID)
	}
	return nil
}

func (s *LoansStore) GetSchedule(ctx context.Context, orgID, loanID int64) ([]ScheduleEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        SELECT ls.id, ls.loan_id, ls.sequence, ls.due_date,
               ls.principal_due, ls.interest_due, ls.total_due, ls.paid_amount, ls.status
        FROM loan_schedules ls
        JOIN loans l ON l.id = ls.loan_id
        WHERE ls.loan_id = $1 AND l.organization_id = $2
        ORDER BY ls.sequence
    `
	rows, err := s.db.Query(ctx, query, loanID, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ScheduleEntry
	for rows.Next() {
		var e ScheduleEntry
		if err := rows.Scan(
			&e.ID, &e.LoanID, &e.Sequence, &e.DueDate,
			&e.PrincipalDue, &e.InterestDue, &e.TotalDue, &e.PaidAmount, &e.Status,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		// Distinguish "no schedule yet" from "loan not in this tenant".
		var exists bool
		if err := s.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM loans WHERE id = $1 AND organization_id = $2)`,
			loanID, orgID,
		).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
	}
	return entries, rows.Err()
}

func (s *LoansStore) DueInstallments(ctx context.Context, orgID int64, by time.Time) ([]DueInstallment, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        SELECT l.id, l.reference, c.first_name || ' ' || c.last_name,
               ls.sequence, ls.due_date, ls.total_due - ls.paid_amount
        FROM loan_schedules ls
        JOIN loans l ON l.id = ls.loan_id
        JOIN customers c ON c.id = l.customer_id
        WHERE l.organization_id = $1
          AND l.status = $2
          AND ls.status <> $3
          AND ls.due_date <= $4
        ORDER BY ls.due_date, l.id
    `
	rows, err := s.db.Query(ctx, query, orgID, LoanStatusActive, InstallmentPaid, by)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []DueInstallment
	for rows.Next() {
		var d DueInstallment
		if err := rows.Scan(
			&d.LoanID, &d.LoanReference, &d.CustomerName, &d.Sequence, &d.DueDate, &d.AmountDue,
		); err != nil {
			return nil, err
		}
		due = append(due, d)
	}
	return due, rows.Err()
}

// transitionError reports why a guarded status update matched no rows:
// missing loan (possibly cross-tenant) vs. wrong current status.
func (s *LoansStore) transitionError(ctx context.Context, orgID, loanID int64) error {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM loans WHERE id = $1 AND organization_id = $2)`,
		loanID, orgID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInvalidTransition
}
