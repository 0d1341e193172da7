package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDuplicateEmail = errors.New("a user with that email already exists")
	ErrDuplicatePhone = errors.New("a user with that phone number already exists")
)

type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Password     password  `json:"-"`
	RefreshToken string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StaffMember is a user plus their active role inside one organization, the
// shape the staff management screens consume.
type StaffMember struct {
	UserID         int64     `json:"user_id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	RoleID         int64     `json:"role_id"`
	RoleName       string    `json:"role_name"`
	HierarchyLevel int       `json:"hierarchy_level"`
	AssignedAt     time.Time `json:"assigned_at"`
}

type password struct {
	text *string
	hash []byte
}

func (p *password) Set(text string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(text), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.text = &text
	p.hash = hash
	return nil
}

func (p *password) Compare(text string) error {
	return bcrypt.CompareHashAndPassword(p.hash, []byte(text))
}

type UsersStore struct {
	db *pgxpool.Pool
}

func (s *UsersStore) GetByID(ctx context.Context, userID int64) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        SELECT id, first_name, last_name, email, phone, password,
               COALESCE(refresh_token, ''), is_active, created_at, updated_at
        FROM users
        WHERE id = $1 AND is_active = TRUE
    `
	var user User
	err := s.db.QueryRow(ctx, query, userID).Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.Phone,
		&user.Password.hash, &user.RefreshToken, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *UsersStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        SELECT id, first_name, last_name, email, phone, password,
               COALESCE(refresh_token, ''), is_active, created_at, updated_at
        FROM users
        WHERE email = $1 AND is_active = TRUE
    `
	var user User
	err := s.db.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.Phone,
		&user.Password.hash, &user.RefreshToken, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateAndInvite stores the user inactive together with the hashed
// invitation token; activation flips is_active within the expiry window.
func (s *UsersStore) CreateAndInvite(ctx context.Context, user *User, invitationToken string, exp time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO users (first_name, last_name, email, phone, password)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at
    `
	err = tx.QueryRow(ctx, query,
		user.FirstName, user.LastName, user.Email, user.Phone, user.Password.hash,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "users_email_key":
				return ErrDuplicateEmail
			case "users_phone_key":
				return ErrDuplicatePhone
			}
			return ErrConflict
		}
		return err
	}

	_, err = tx.Exec(ctx, `
        INSERT INTO user_invitations (token, user_id, expires_at)
        VALUES ($1, $2, $3)
    `, invitationToken, user.ID, time.Now().Add(exp))
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Activate redeems an invitation token. The stored token is the sha256 of
// the plaintext the user received.
func (s *UsersStore) Activate(ctx context.Context, plainToken string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	hash := sha256.Sum256([]byte(plainToken))
	token := hex.EncodeToString(hash[:])

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var userID int64
	err = tx.QueryRow(ctx, `
        SELECT user_id FROM user_invitations
        WHERE token = $1 AND expires_at > NOW()
    `, token).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE users SET is_active = TRUE, updated_at = NOW() WHERE id = $1`, userID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM user_invitations WHERE user_id = $1`, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *UsersStore) UpdateRefreshToken(ctx context.Context, userID int64, hashedToken string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := s.db.Exec(ctx,
		`UPDATE users SET refresh_token = $1, updated_at = NOW() WHERE id = $2`,
		hashedToken, userID,
	)
	return err
}

func (s *UsersStore) ClearRefreshToken(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := s.db.Exec(ctx,
		`UPDATE users SET refresh_token = NULL, updated_at = NOW() WHERE id = $1`,
		userID,
	)
	return err
}

// Delete removes a user row. Invitations, role assignments and push tokens
// cascade. Used to roll back a registration whose notification email failed.
func (s *UsersStore) Delete(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	return err
}

func (s *UsersStore) ListByOrganization(ctx context.Context, orgID int64) ([]StaffMember, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	query := `
        SELECT u.id, u.first_name, u.last_name, u.email, u.phone,
               r.id, r.name, r.hierarchy_level, ura.assigned_at
        FROM users u
        JOIN user_role_assignments ura ON ura.user_id = u.id AND ura.is_active = TRUE
        JOIN roles r ON r.id = ura.role_id
        WHERE ura.organization_id = $1 AND u.is_active = TRUE
        ORDER BY r.hierarchy_level, u.first_name, u.last_name
    `
	rows, err := s.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staff []StaffMember
	for rows.Next() {
		var m StaffMember
		if err := rows.Scan(
			&m.UserID, &m.FirstName, &m.LastName, &m.Email, &m.Phone,
			&m.RoleID, &m.RoleName, &m.HierarchyLevel, &m.AssignedAt,
		); err != nil {
			return nil, err
		}
		staff = append(staff, m)
	}
	return staff, rows.Err()
}
