package repo

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/example/storefront/internal/domain"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresReceiptRepo journals resolved checkout submissions.
type PostgresReceiptRepo struct {
	Pool *pgxpool.Pool
}

func NewPostgresReceiptRepo(pool *pgxpool.Pool) *PostgresReceiptRepo {
	return &PostgresReceiptRepo{Pool: pool}
}

func (r *PostgresReceiptRepo) Save(ctx context.Context, rc domain.Receipt) error {
	items, err := json.Marshal(rc.Lines)
	if err != nil {
		return fmt.Errorf("encode receipt items: %w", err)
	}
	_, err = r.Pool.Exec(ctx, `INSERT INTO receipts
        (attempt_id, shop_label, payment_method, currency, total, success, message, items, resolved_at)
        VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9)`,
		rc.AttemptID, rc.ShopLabel, rc.Method, rc.Currency.String(), rc.Total.String(),
		rc.Success, rc.Message, items, rc.ResolvedAt)
	return err
}

// Recent returns the latest receipts, newest first.
func (r *PostgresReceiptRepo) Recent(ctx context.Context, limit int) ([]domain.Receipt, error) {
	rows, err := r.Pool.Query(ctx, `SELECT attempt_id, shop_label, payment_method, currency, total::text,
        success, message, items, resolved_at FROM receipts ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Receipt
	for rows.Next() {
		var (
			rc       domain.Receipt
			currency string
			total    string
			items    []byte
		)
		if err := rows.Scan(&rc.AttemptID, &rc.ShopLabel, &rc.Method, &currency, &total,
			&rc.Success, &rc.Message, &items, &rc.ResolvedAt); err != nil {
			return nil, err
		}
		if err := rc.Currency.UnmarshalText([]byte(currency)); err != nil {
			return nil, err
		}
		if rc.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("receipt %s total: %w", rc.AttemptID, err)
		}
		if err := json.Unmarshal(items, &rc.Lines); err != nil {
			return nil, fmt.Errorf("receipt %s items: %w", rc.AttemptID, err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

var _ domain.ReceiptRepository = (*PostgresReceiptRepo)(nil)

// Migrate applies the embedded schema migrations to databaseURL.
func Migrate(databaseURL string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, pgx5URL(databaseURL))
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// pgx5URL rewrites a postgres:// URL to the scheme the migrate pgx driver registers.
func pgx5URL(databaseURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}
