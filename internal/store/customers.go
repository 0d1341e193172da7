package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Customer struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email,omitempty"`
	Address        string    `json:"address,omitempty"`
	NationalID     string    `json:"national_id,omitempty"`
	CreatedBy      int64     `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type CustomerFilter struct {
	Search string
	Limit  int
	Offset int
}

type CustomersStore struct {
	db *pgxpool.Pool
}

func (s *CustomersStore) Create(ctx context.Context, c *Customer) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        INSERT INTO customers (organization_id, first_name, last_name, phone, email, address, national_id, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at
    `
	err := s.db.QueryRow(ctx, query,
		c.OrganizationID, c.FirstName, c.LastName, c.Phone, c.Email, c.Address, c.NationalID, c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

// GetByID is always scoped by organization: a customer id belonging to
// another tenant reads as a missing row.
func (s *CustomersStore) GetByID(ctx context.Context, orgID, customerID int64) (*Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        SELECT id, organization_id, first_name, last_name, phone,
               COALESCE(email, ''), COALESCE(address, ''), COALESCE(national_id, ''),
               created_by, created_at, updated_at
        FROM customers
        WHERE id = $1 AND organization_id = $2
    `
	var c Customer
	err := s.db.QueryRow(ctx, query, customerID, orgID).Scan(
		&c.ID, &c.OrganizationID, &c.FirstName, &c.LastName, &c.Phone,
		&c.Email, &c.Address, &c.NationalID, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *CustomersStore) List(ctx context.Context, orgID int64, filter CustomerFilter) ([]Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
        SELECT id, organization_id, first_name, last_name, phone,
               COALESCE(email, ''), COALESCE(address, ''), COALESCE(national_id, ''),
               created_by, created_at, updated_at
        FROM customers
        WHERE organization_id = $1
          AND ($2 = '' OR first_name ILIKE '%' || $2 || '%'
                       OR last_name ILIKE '%' || $2 || '%'
                       OR phone ILIKE '%' || $2 || '%')
        ORDER BY first_name, last_name
        LIMIT $3 OFFSET $4
    `
	rows, err := s.db.Query(ctx, query, orgID, filter.Search, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(
			&c.ID, &c.OrganizationID, &c.FirstName, &c.LastName, &c.Phone,
			&c.Email, &c.Address, &c.NationalID, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *CustomersStore) Update(ctx context.Context, c *Customer) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        UPDATE customers
        SET first_name = $1, last_name = $2, phone = $3, email = $4,
            address = $5, national_id = $6, updated_at = NOW()
        WHERE id = $7 AND organization_id = $8
    `
	tag, err := s.db.Exec(ctx, query,
		c.FirstName, c.LastName, c.Phone, c.Email, c.Address, c.NationalID,
		c.ID, c.OrganizationID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *CustomersStore) Delete(ctx context.Context, orgID, customerID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var hasLoans bool
	err := s.db.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM loans
            WHERE customer_id = $1 AND organization_id = $2 AND status IN ('pending', 'approved', 'active')
        )
    `, customerID, orgID).Scan(&hasLoans)
	if err != nil {
		return err
	}
	if hasLoans {
		return ErrConflict
	}

	tag, err := s.db.Exec(ctx,
		`DELETE FROM customers WHERE id = $1 AND organization_id = $2`,
		customerID, orgID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
