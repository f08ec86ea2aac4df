package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"genai-gallery/common"
	"genai-gallery/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

const accountColumns = `id, email, display_name, provider, provider_user_id, password_hash, created_at`

// PostgresStore 基于 PostgreSQL 的账号存储
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore 使用已有连接创建账号存储
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgresStore 连接数据库并执行迁移
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	common.Info("Account database migrated")
	return NewPostgresStore(db), nil
}

// Migrate 执行内嵌的 goose 迁移
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("goose: failed to run migrations: %w", err)
	}
	return nil
}

// Close 关闭数据库连接
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Create(ctx context.Context, account *Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, display_name, provider, provider_user_id, password_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		account.ID, account.Email, account.DisplayName, account.Provider, account.ProviderUserID, account.PasswordHash, account.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("create %s account %s: %w", account.Provider, account.Email, common.ErrAccountExists)
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, provider, email string) (*Account, error) {
	return s.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE provider = $1 AND email = $2`, provider, email)
}

func (s *PostgresStore) FindByProviderUserID(ctx context.Context, provider, providerUserID string) (*Account, error) {
	return s.get(ctx, `SELECT `+accountColumns+` FROM accounts WHERE provider = $1 AND provider_user_id = $2`, provider, providerUserID)
}

func (s *PostgresStore) get(ctx context.Context, query string, args ...interface{}) (*Account, error) {
	var account Account
	if err := s.db.GetContext(ctx, &account, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return &account, nil
}
