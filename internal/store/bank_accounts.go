package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BankAccount struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Name           string    `json:"name"`
	BankName       string    `json:"bank_name"`
	AccountNumber  string    `json:"account_number"`
	Balance        int64     `json:"balance"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type BankAccountsStore struct {
	db *pgxpool.Pool
}

func (s *BankAccountsStore) Create(ctx context.Context, a *BankAccount) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        INSERT INTO bank_accounts (organization_id, name, bank_name, account_number, balance)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at
    `
	err := s.db.QueryRow(ctx, query,
		a.OrganizationID, a.Name, a.BankName, a.AccountNumber, a.Balance,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *BankAccountsStore) GetByID(ctx context.Context, orgID, accountID int64) (*BankAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        SELECT id, organization_id, name, bank_name, account_number, balance, created_at, updated_at
        FROM bank_accounts
        WHERE id = $1 AND organization_id = $2
    `
	var a BankAccount
	err := s.db.QueryRow(ctx, query, accountID, orgID).Scan(
		&a.ID, &a.OrganizationID, &a.Name, &a.BankName, &a.AccountNumber,
		&a.Balance, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *BankAccountsStore) List(ctx context.Context, orgID int64) ([]BankAccount, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        SELECT id, organization_id, name, bank_name, account_number, balance, created_at, updated_at
        FROM bank_accounts
        WHERE organization_id = $1
        ORDER BY name
    `
	rows, err := s.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []BankAccount
	for rows.Next() {
		var a BankAccount
		if err := rows.Scan(
			&a.ID, &a.OrganizationID, &a.Name, &a.BankName, &a.AccountNumber,
			&a.Balance, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *BankAccountsStore) Update(ctx context.Context, a *BankAccount) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        UPDATE bank_accounts
        SET name = $1, bank_name = $2, account_number = $3, updated_at = NOW()
        WHERE id = $4 AND organization_id = $5
    `
	tag, err := s.db.Exec(ctx, query, a.Name, a.BankName, a.AccountNumber, a.ID, a.OrganizationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *BankAccountsStore) Delete(ctx context.Context, orgID, accountID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var hasTransactions bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE bank_account_id = $1)`,
		accountID,
	).Scan(&hasTransactions)
	if err != nil {
		return err
	}
	if hasTransactions {
		return ErrConflict
	}

	tag, err := s.db.Exec(ctx,
		`DELETE FROM bank_accounts WHERE id = $1 AND organization_id = $2`,
		accountID, orgID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
