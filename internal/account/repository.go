package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rosterhq/rosterd/internal/credential"
)

// ErrNotFound reports that no user matched the lookup.
var ErrNotFound = errors.New("account: user not found")

// ErrDuplicate reports a username or email uniqueness violation.
var ErrDuplicate = errors.New("account: username or email already exists")

// Repository persists users. It also satisfies credential.Store so the
// migration sweep can run over the same backend.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByUsername(ctx context.Context, username string) (User, error)
	List(ctx context.Context) ([]User, error)
	ListCredentials(ctx context.Context) ([]credential.StoredCredential, error)
	UpdateCredential(ctx context.Context, userID, encoded string) error
}

const uniqueViolationCode = "23505"

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user. A unique-index rejection on username or email is
// reported as ErrDuplicate.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	_, err := r.db.Exec(ctx, `INSERT INTO users (id, username, email, password, team_id, group_id, org_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Username, user.Email, user.Password,
		user.TeamID, user.GroupID, user.OrgID, user.CreatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		}
		return err
	}
	return nil
}

// FindByUsername fetches a user by username.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, username, email, password, team_id, group_id, org_id, created_at
        FROM users WHERE username = $1`, username)

	var (
		user      User
		createdAt time.Time
	)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password,
		&user.TeamID, &user.GroupID, &user.OrgID, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.CreatedAt = createdAt.UTC()
	return user, nil
}

// List returns all users ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT id, username, email, password, team_id, group_id, org_id, created_at
        FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var (
			user      User
			createdAt time.Time
		)
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.Password,
			&user.TeamID, &user.GroupID, &user.OrgID, &createdAt); err != nil {
			return nil, err
		}
		user.CreatedAt = createdAt.UTC()
		users = append(users, user)
	}
	return users, rows.Err()
}

// ListCredentials returns every stored credential for the migration sweep.
func (r *PostgresRepository) ListCredentials(ctx context.Context) ([]credential.StoredCredential, error) {
	rows, err := r.db.Query(ctx, `SELECT id, password FROM users`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []credential.StoredCredential
	for rows.Next() {
		var cred credential.StoredCredential
		if err := rows.Scan(&cred.UserID, &cred.Secret); err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}

// UpdateCredential replaces the stored credential for a user.
func (r *PostgresRepository) UpdateCredential(ctx context.Context, userID, encoded string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE users SET password = $1 WHERE id = $2`, encoded, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
