package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrLoanNotActive = errors.New("loan is not active")

type Repayment struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	LoanID         int64     `json:"loan_id"`
	Amount         int64     `json:"amount"`
	Method         string    `json:"method,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	ReceivedBy     int64     `json:"received_by"`
	PaidAt         time.Time `json:"paid_at"`
	CreatedAt      time.Time `json:"created_at"`
}

type RepaymentsStore struct {
	db *pgxpool.Pool
}

// Record applies a repayment in one transaction: insert the repayment row,
// walk the unpaid schedule entries oldest-first applying the amount,
// decrement the loan's outstanding balance, and close the loan when it
// reaches zero.
func (s *RepaymentsStore) Record(ctx context.Context, rp *Repayment) error {
	if rp.Amount <= 0 {
		return ErrValidation
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var status string
	var outstanding int64
	err = tx.QueryRow(ctx, `
        SELECT status, outstanding_amount
        FROM loans
        WHERE id = $1 AND organization_id = $2
        FOR UPDATE
    `, rp.LoanID, rp.OrganizationID).Scan(&status, &outstanding)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if status != LoanStatusActive {
		return ErrLoanNotActive
	}

	err = tx.QueryRow(ctx, `
        INSERT INTO repayments (organization_id, loan_id, amount, method, notes, received_by, paid_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at
    `, rp.OrganizationID, rp.LoanID, rp.Amount, rp.Method, rp.Notes, rp.ReceivedBy, rp.PaidAt,
	).Scan(&rp.ID, &rp.CreatedAt)
	if err != nil {
		return err
	}

	if err := applyToSchedule(ctx, tx, rp.LoanID, rp.Amount); err != nil {
		return err
	}

	remaining := outstanding - rp.Amount
	if remaining < 0 {
		remaining = 0
	}
	newStatus := LoanStatusActive
	if remaining == 0 {
		newStatus = LoanStatusClosed
	}
	_, err = tx.Exec(ctx, `
        UPDATE loans
        SET outstanding_amount = $1, status = $2, updated_at = NOW()
        WHERE id = $3
    `, remaining, newStatus, rp.LoanID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func applyToSchedule(ctx context.Context, tx pgx.Tx, loanID, amount int64) error {
	rows, err := tx.Query(ctx, `
        SELECT id, total_due, paid_amount
        FROM loan_schedules
        WHERE loan_id = $1 AND status <> $2
        ORDER BY sequence
        FOR UPDATE
    `, loanID, InstallmentPaid)
	if err != nil {
		return err
	}

	type entry struct {
		id         int64
		totalDue   int64
		paidAmount int64
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.totalDue, &e.paidAmount); err != nil {
			rows.Close()
			return err
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, e := range entries {
		if amount <= 0 {
			break
		}
		owed := e.totalDue - e.paidAmount
		applied := amount
		if applied > owed {
			applied = owed
		}

		newPaid := e.paidAmount + applied
		newStatus := InstallmentPartial
		if newPaid >= e.totalDue {
			newStatus = InstallmentPaid
		}
		if _, err := tx.Exec(ctx, `
            UPDATE loan_schedules SET paid_amount = $1, status = $2 WHERE id = $3
        `, newPaid, newStatus, e.id); err != nil {
			return err
		}
		amount -= applied
	}
	return nil
}

func (s *RepaymentsStore) ListByLoan(ctx context.Context, orgID, loanID int64) ([]Repayment, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        SELECT id, organization_id, loan_id, amount,
               COALESCE(method, ''), COALESCE(notes, ''), received_by, paid_at, created_at
        FROM repayments
        WHERE loan_id = $1 AND organization_id = $2
        ORDER BY paid_at DESC
    `
	rows, err := s.db.Query(ctx, query, loanID, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var repayments []Repayment
	for rows.Next() {
		var rp Repayment
		if err := rows.Scan(
			&rp.ID, &rp.OrganizationID, &rp.LoanID, &rp.Amount,
			&rp.Method, &rp.Notes, &rp.ReceivedBy, &rp.PaidAt, &rp.CreatedAt,
		); err != nil {
			return nil, err
		}
		repayments = append(repayments, rp)
	}
	return repayments, rows.Err()
}
