package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"user_service/internal/config"
	"user_service/internal/models"
	"user_service/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPool is the subset of pgxpool.Pool used by the repository.
// It is also implemented by pgxmock.PgxPoolIface.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

type PostgresRepo struct {
	pool PgxPool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := DSN(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

// NewWithPool wraps an existing pool, used by tests.
func NewWithPool(pool PgxPool) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

func (r *PostgresRepo) SaveUser(ctx context.Context, publicID uuid.UUID, name, email string, passHash []byte) (int64, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (public_id, name, email, pass_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query, publicID, name, email, passHash).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, storage.ErrUserExists
		}

		return 0, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	query := `
		SELECT id, public_id, name, email, pass_hash, created_at
		FROM users
		WHERE email = $1;
	`

	row := r.pool.QueryRow(ctx, query, email)

	var u models.User
	err := row.Scan(
		&u.ID,
		&u.PublicID,
		&u.Name,
		&u.Email,
		&u.PassHash,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, err
	}

	return u, nil
}

func (r *PostgresRepo) UserByPublicID(ctx context.Context, publicID uuid.UUID) (models.User, error) {
	query := `
		SELECT id, public_id, name, email, pass_hash, created_at
		FROM users
		WHERE public_id = $1;
	`

	row := r.pool.QueryRow(ctx, query, publicID)

	var u models.User
	err := row.Scan(
		&u.ID,
		&u.PublicID,
		&u.Name,
		&u.Email,
		&u.PassHash,
		&u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, storage.ErrUserNotFound
	}

	return u, err
}

func (r *PostgresRepo) UpdateUserName(ctx context.Context, publicID uuid.UUID, name string) error {
	const op = "storage.postgres.UpdateUserName"

	query := `UPDATE users SET name = $2 WHERE public_id = $1`

	tag, err := r.pool.Exec(ctx, query, publicID, name)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (r *PostgresRepo) DeleteUser(ctx context.Context, publicID uuid.UUID) error {
	const op = "storage.postgres.DeleteUser"

	query := `DELETE FROM users WHERE public_id = $1`

	tag, err := r.pool.Exec(ctx, query, publicID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (r *PostgresRepo) Users(ctx context.Context) ([]models.User, error) {
	const op = "storage.postgres.Users"

	query := `
		SELECT id, public_id, name, email, pass_hash, created_at
		FROM users
		ORDER BY id;
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var users []models.User

	for rows.Next() {
		var u models.User

		err := rows.Scan(
			&u.ID,
			&u.PublicID,
			&u.Name,
			&u.Email,
			&u.PassHash,
			&u.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		users = append(users, u)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: %w", op, rows.Err())
	}

	return users, nil
}

func (r *PostgresRepo) SavePost(ctx context.Context, title, text, image string, userID int64) (int64, error) {
	const op = "storage.postgres.SavePost"

	query := `
		INSERT INTO posts (title, text, image, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query, title, text, image, userID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to save post: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

// * DSN формирует конфигурацию базы данных.
func DSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
