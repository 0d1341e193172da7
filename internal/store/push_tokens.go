package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PushTokensStore struct {
	db *pgxpool.Pool
}

func (s *PushTokensStore) Upsert(ctx context.Context, userID int64, token, platform string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        INSERT INTO push_tokens (user_id, token, platform)
        VALUES ($1, $2, $3)
        ON CONFLICT (token) DO UPDATE SET user_id = $1, platform = $3, updated_at = NOW()
    `
	_, err := s.db.Exec(ctx, query, userID, token, platform)
	return err
}

func (s *PushTokensStore) Delete(ctx context.Context, userID int64, token string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := s.db.Exec(ctx,
		`DELETE FROM push_tokens WHERE user_id = $1 AND token = $2`,
		userID, token,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByOrganization returns the device tokens of every active staff member
// of the organization, for payment-due reminders.
func (s *PushTokensStore) ListByOrganization(ctx context.Context, orgID int64) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        SELECT pt.token
        FROM push_tokens pt
        JOIN user_role_assignments ura ON ura.user_id = pt.user_id AND ura.is_active = TRUE
        WHERE ura.organization_id = $1
    `
	rows, err := s.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}
