package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	TransactionIncome  = "income"
	TransactionExpense = "expense"
)

type Transaction struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	BankAccountID  *int64    `json:"bank_account_id,omitempty"`
	Type           string    `json:"type"`
	Category       string    `json:"category"`
	Amount         int64     `json:"amount"`
	Description    string    `json:"description,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
	CreatedBy      int64     `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}

type TransactionFilter struct {
	Type     string
	Category string
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

type TransactionSummary struct {
	TotalIncome  int64            `json:"total_income"`
	TotalExpense int64            `json:"total_expense"`
	Net          int64            `json:"net"`
	ByCategory   map[string]int64 `json:"by_category"`
}

type TransactionsStore struct {
	db *pgxpool.Pool
}

// Create inserts the entry and, when it is tied to a bank account, adjusts
// that account's balance in the same transaction (income adds, expense
// subtracts).
func (s *TransactionsStore) Create(ctx context.Context, t *Transaction) error {
	if t.Type != TransactionIncome && t.Type != TransactionExpense {
		return ErrValidation
	}
	if t.Amount <= 0 {
		return ErrValidation
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
        INSERT INTO transactions (organization_id, bank_account_id, type, category, amount, description, occurred_at, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at
    `, t.OrganizationID, t.BankAccountID, t.Type, t.Category, t.Amount, t.Description, t.OccurredAt, t.CreatedBy,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return err
	}

	if t.BankAccountID != nil {
		delta := t.Amount
		if t.Type == TransactionExpense {
			delta = -delta
		}
		tag, err := tx.Exec(ctx, `
            UPDATE bank_accounts
            SET balance = balance + $1, updated_at = NOW()
            WHERE id = $2 AND organization_id = $3
        `, delta, *t.BankAccountID, t.OrganizationID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
	}

	return tx.Commit(ctx)
}

func (s *TransactionsStore) List(ctx context.Context, orgID int64, filter TransactionFilter) ([]Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	to := filter.To
	if to.IsZero() {
		to = time.Now()
	}

	query := `
        SELECT id, organization_id, bank_account_id, type, category, amount,
               COALESCE(description, ''), occurred_at, created_by, created_at
        FROM transactions
        WHERE organization_id = $1
          AND ($2 = '' OR type = $2)
          AND ($3 = '' OR category = $3)
          AND occurred_at >= $4 AND occurred_at <= $5
        ORDER BY occurred_at DESC
        LIMIT $6 OFFSET $7
    `
	rows, err := s.db.Query(ctx, query,
		orgID, filter.Type, filter.Category, filter.From, to, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(
			&t.ID, &t.OrganizationID, &t.BankAccountID, &t.Type, &t.Category,
			&t.Amount, &t.Description, &t.OccurredAt, &t.CreatedBy, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

// Delete removes the entry and reverses its bank-account balance effect.
func (s *TransactionsStore) Delete(ctx context.Context, orgID, txID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var txType string
	var amount int64
	var accountID *int64
	err = tx.QueryRow(ctx, `
        SELECT type, amount, bank_account_id
        FROM transactions
        WHERE id = $1 AND organization_id = $2
        FOR UPDATE
    `, txID, orgID).Scan(&txType, &amount, &accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if accountID != nil {
		delta := -amount
		if txType == TransactionExpense {
			delta = amount
		}
		if _, err := tx.Exec(ctx, `
            UPDATE bank_accounts
            SET balance = balance + $1, updated_at = NOW()
            WHERE id = $2 AND organization_id = $3
        `, delta, *accountID, orgID); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM transactions WHERE id = $1 AND organization_id = $2`,
		txID, orgID,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *TransactionsStore) Summary(ctx context.Context, orgID int64, from, to time.Time) (*TransactionSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if to.IsZero() {
		to = time.Now()
	}

	query := `
        SELECT type, category, SUM(amount)
        FROM transactions
        WHERE organization_id = $1 AND occurred_at >= $2 AND occurred_at <= $3
        GROUP BY type, category
    `
	rows, err := s.db.Query(ctx, query, orgID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := &TransactionSummary{ByCategory: map[string]int64{}}
	for rows.Next() {
		var txType, category string
		var total int64
		if err := rows.Scan(&txType, &category, &total); err != nil {
			return nil, err
		}
		summary.ByCategory[category] += total
		if txType == TransactionIncome {
			summary.TotalIncome += total
		} else {
			summary.TotalExpense += total
		}
	}
	summary.Net = summary.TotalIncome - summary.TotalExpense
	return summary, rows.Err()
}
