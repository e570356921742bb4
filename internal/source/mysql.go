package source

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/finsight/finsight/internal/errs"
	"github.com/finsight/finsight/internal/logger"
	"github.com/finsight/finsight/internal/table"
)

// MySQLSource implements Source on database/sql with the mysql driver.
type MySQLSource struct {
	db  *sql.DB
	cfg Config
	log *logger.Logger
}

// NewMySQL connects to MySQL and verifies the connection.
func NewMySQL(ctx context.Context, cfg *Config, log *logger.Logger) (*MySQLSource, error) {
	if log == nil {
		log = logger.Global()
	}

	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid mysql DSN", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(int(cfg.MinConns))
	}
	if cfg.MaxConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}
	if cfg.MaxConnIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)
	}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.ErrKindUnavailable, "mysql unreachable", err)
	}

	log.With().Str("driver", string(DriverMySQL)).Logger().Info("database source connected")
	return &MySQLSource{db: db, cfg: *cfg, log: log}, nil
}

func (s *MySQLSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *MySQLSource) Close() {
	_ = s.db.Close()
}

func (s *MySQLSource) ListTables(ctx context.Context) ([]string, error) {
	const q = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := s.db.QueryContext(ctx, q)
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
func (s *MySQLSource) FetchTable(ctx context.Context, name string) (*table.Table, error) {
	if err := s.verifyTable(ctx, name); err != nil {
		return nil, err
	}

	if s.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.QueryTimeout)
		defer cancel()
	}

	q := fmt.Sprintf("SELECT * FROM `%s`", name)
	if s.cfg.MaxRows > 0 {
		q = fmt.Sprintf("%s LIMIT %d", q, s.cfg.MaxRows)
	}

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch table %s: %w", name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var data [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
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

func (s *MySQLSource) verifyTable(ctx context.Context, name string) error {
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
