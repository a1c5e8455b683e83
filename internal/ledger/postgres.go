package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/acastellana/prediction-agent/pkg/types"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStore connects to PostgreSQL and returns a ledger backed by it.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-ledger-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStore{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

const tradeColumns = `
	id, created_at, updated_at,
	platform, market_id, market_question, market_category, market_end_date,
	side, entry_price, amount, shares, strategy, entry_context,
	status, resolution_date, resolution_outcome, closing_price,
	pnl, roi, clv, beat_closing_line, lessons
`

// CreateTrade inserts a new trade row.
func (p *PostgresStore) CreateTrade(ctx context.Context, trade *types.Trade) error {
	query := `
		INSERT INTO trades (` + tradeColumns + `) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23
		)
	`

	var ctxJSON []byte
	if trade.EntryContext != nil {
		ctxJSON = trade.EntryContext
	}

	_, err := p.db.ExecContext(ctx, query,
		trade.ID,
		trade.CreatedAt,
		trade.UpdatedAt,
		trade.Platform,
		trade.MarketID,
		trade.MarketQuestion,
		nullString(trade.MarketCategory),
		trade.MarketEndDate,
		string(trade.Side),
		trade.EntryPrice,
		trade.Amount,
		trade.Shares,
		trade.Strategy,
		nullString(string(ctxJSON)),
		string(trade.Status),
		trade.ResolutionDate,
		nullString(string(trade.ResolutionOutcome)),
		trade.ClosingPrice,
		trade.PnL,
		trade.ROI,
		trade.CLV,
		trade.BeatClosingLine,
		nullString(trade.Lessons),
	)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}

	p.logger.Debug("trade-stored",
		zap.String("trade-id", trade.ID),
		zap.String("market-id", trade.MarketID),
		zap.String("strategy", trade.Strategy))

	return nil
}

// GetTrade fetches a single trade by ID.
func (p *PostgresStore) GetTrade(ctx context.Context, id string) (*types.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = $1`

	trade, err := scanTrade(p.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, types.ErrTradeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select trade: %w", err)
	}

	return trade, nil
}

// ListTrades returns trades matching the filter, newest first.
func (p *PostgresStore) ListTrades(ctx context.Context, f Filter) ([]*types.Trade, error) {
	var (
		where []string
		args  []interface{}
	)

	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Strategy != "" {
		add("strategy = $%d", f.Strategy)
	}
	if f.Platform != "" {
		add("platform = $%d", f.Platform)
	}
	if f.CreatedAfter != nil {
		add("created_at >= $%d", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		add("created_at <= $%d", *f.CreatedBefore)
	}

	query := `SELECT ` + tradeColumns + ` FROM trades`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select trades: %w", err)
	}
	defer rows.Close()

	var trades []*types.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}

	return trades, nil
}

// ResolveTrade sets all resolution fields in a single UPDATE guarded on the
// open state, so two concurrent resolution attempts cannot both apply and a
// reader never observes a partially resolved row.
func (p *PostgresStore) ResolveTrade(ctx context.Context, id string, res types.Resolution) (*types.Trade, error) {
	query := `
		UPDATE trades SET
			status = $2,
			resolution_date = $3,
			resolution_outcome = $4,
			closing_price = $5,
			pnl = $6,
			roi = $7,
			clv = $8,
			beat_closing_line = $9,
			lessons = $10,
			updated_at = $3
		WHERE id = $1 AND status = 'open'
	`

	result, err := p.db.ExecContext(ctx, query,
		id,
		string(res.Status),
		res.Date,
		string(res.Outcome),
		res.ClosingPrice,
		res.PnL,
		res.ROI,
		res.CLV,
		res.BeatClosingLine,
		nullString(res.Lessons),
	)
	if err != nil {
		return nil, fmt.Errorf("update trade: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		// Distinguish a missing trade from a double resolve.
		trade, getErr := p.GetTrade(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, &types.InvalidStateError{TradeID: id, Status: trade.Status, Op: "resolve"}
	}

	p.logger.Debug("trade-resolved",
		zap.String("trade-id", id),
		zap.String("status", string(res.Status)))

	return p.GetTrade(ctx, id)
}

// Close closes the database connection.
func (p *PostgresStore) Close() error {
	p.logger.Info("closing-postgres-ledger")
	return p.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row rowScanner) (*types.Trade, error) {
	var (
		t          types.Trade
		category   sql.NullString
		endDate    sql.NullTime
		entryCtx   sql.NullString
		resDate    sql.NullTime
		resOutcome sql.NullString
		closing    sql.NullFloat64
		pnl        sql.NullFloat64
		roi        sql.NullFloat64
		clv        sql.NullFloat64
		beat       sql.NullBool
		lessons    sql.NullString
		side       string
		status     string
	)

	err := row.Scan(
		&t.ID, &t.CreatedAt, &t.UpdatedAt,
		&t.Platform, &t.MarketID, &t.MarketQuestion, &category, &endDate,
		&side, &t.EntryPrice, &t.Amount, &t.Shares, &t.Strategy, &entryCtx,
		&status, &resDate, &resOutcome, &closing,
		&pnl, &roi, &clv, &beat, &lessons,
	)
	if err != nil {
		return nil, err
	}

	t.Side = types.Side(side)
	t.Status = types.TradeStatus(status)
	if category.Valid {
		t.MarketCategory = category.String
	}
	if endDate.Valid {
		d := endDate.Time
		t.MarketEndDate = &d
	}
	if entryCtx.Valid {
		t.EntryContext = []byte(entryCtx.String)
	}
	if resDate.Valid {
		d := resDate.Time
		t.ResolutionDate = &d
	}
	if resOutcome.Valid {
		t.ResolutionOutcome = types.Side(resOutcome.String)
	}
	if closing.Valid {
		v := closing.Float64
		t.ClosingPrice = &v
	}
	if pnl.Valid {
		v := pnl.Float64
		t.PnL = &v
	}
	if roi.Valid {
		v := roi.Float64
		t.ROI = &v
	}
	if clv.Valid {
		v := clv.Float64
		t.CLV = &v
	}
	if beat.Valid {
		v := beat.Bool
		t.BeatClosingLine = &v
	}
	if lessons.Valid {
		t.Lessons = lessons.String
	}

	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
