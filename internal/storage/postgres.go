package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/mselser95/arbengine/pkg/types"
)

// PostgresStorage implements Storage using PostgreSQL, for operators who
// want the trade log queryable instead of tailing a JSON-lines file.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage opens a connection and verifies it with a ping.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{db: db, logger: cfg.Logger}, nil
}

// WriteTrade inserts one executed leg into the trade_log table.
func (p *PostgresStorage) WriteTrade(ctx context.Context, entry types.TradeLogEntry) error {
	query := `
		INSERT INTO trade_log (
			ts, venue, token_id, outcome, side,
			order_qty, limit_price, filled_qty, avg_fill_price, fee,
			opportunity_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		entry.Timestamp,
		string(entry.Venue),
		entry.TokenID,
		string(entry.Outcome),
		string(entry.Side),
		entry.OrderQty,
		entry.LimitPrice,
		entry.FilledQty,
		entry.AvgFillPrice,
		entry.Fee,
		entry.OpportunityID,
	)
	if err != nil {
		return fmt.Errorf("insert trade log entry: %w", err)
	}

	p.logger.Debug("trade-log-entry-stored",
		zap.String("venue", string(entry.Venue)),
		zap.String("token-id", entry.TokenID),
		zap.String("opportunity-id", entry.OpportunityID))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
