package source

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finsight/finsight/internal/errs"
	"github.com/finsight/finsight/internal/logger"
	"github.com/finsight/finsight/internal/table"
)

// PostgresSource implements Source on a pgx connection pool.
type PostgresSource struct {
	pool *pgxpool.Pool
	cfg  Config
	log  *logger.Logger
}

// NewPostgres connects to PostgreSQL and verifies the connection.
func NewPostgres(ctx context.Context, cfg *Config, log *logger.Logger) (*PostgresSource, error) {
	if log == nil {
		log = logger.Global()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid postgres DSN", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindUnavailable, "failed to create postgres pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errs.Wrap(errs.ErrKindUnavailable, "postgres unreachable", err)
	}

	log.With().Str("driver", string(DriverPostgres)).Logger().Info("database source connected")
	return &PostgresSource{pool: pool, cfg: *cfg, log: log}, nil
}

func (s *PostgresSource) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresSource) Close() {
	s.pool.Close()
}

func (s *PostgresSource) ListTables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// FetchTable loads a whole table. The name is checked against the live
// catalog before it is interpolated, so arbitrary SQL can never ride in
// on a dataset name.
func (s *PostgresSource) FetchTable(ctx context.Context, name string) (*table.Table, error) {
	if err := s.verifyTable(ctx, name); err != nil {
		return nil, err
	}

	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	q := fmt.Sprintf(`SELECT * FROM %q`, name)
	if s.cfg.MaxRows > 0 {
		q = fmt.Sprintf("%s LIMIT %d", q, s.cfg.MaxRows)
	}

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch table %s: %w", name, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = string(f.Name)
	}

	var data [][]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = cellValue(v)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table %s: %w", name, err)
	}

	return table.New(columns, data), nil
}

func (s *PostgresSource) verifyTable(ctx context.Context, name string) error {
	tables, err := s.ListTables(ctx)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if t == name {
			return nil
		}
	}
	return errs.New(errs.ErrKindNotFound, "table not found: "+name)
}
