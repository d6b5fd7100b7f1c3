package measurement

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/marcboeker/go-duckdb/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/floatchat/internal/domain"
	"github.com/kailas-cloud/floatchat/internal/domain/query"
	"github.com/kailas-cloud/floatchat/internal/domain/result"
)

// Store executes compiled queries.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return classify(fmt.Errorf("ping: %w", err))
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Query renders q and returns every row, at most q.RowCap+1 of them.
// Failures are classified as ErrStoreTimeout (also ErrTransient), ErrMalformedQuery or
// ErrStoreUnavailable.
func (s *Store) Query(ctx context.Context, q query.CompiledQuery) (result.RowSet, error) {
	stmt, err := Render(q)
	if err != nil {
		return result.RowSet{}, fmt.Errorf("%w: render: %w", domain.ErrMalformedQuery, err)
	}

	s.logger.Debug("Measurement query",
		zap.String("sql", stmt.SQL),
		zap.Int("args", len(stmt.Args)),
		zap.String("fingerprint", q.Fingerprint()),
	)

	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return result.RowSet{}, classify(fmt.Errorf("execute query: %w", err))
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return result.RowSet{}, classify(fmt.Errorf("query columns: %w", err))
	}
	if len(columns) != len(stmt.Columns) {
		return result.RowSet{}, fmt.Errorf("%w: expected %d columns, store returned %d",
			domain.ErrMalformedQuery, len(stmt.Columns), len(columns))
	}

	out := result.RowSet{Columns: stmt.Columns, Rows: make([][]any, 0)}
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return result.RowSet{}, classify(fmt.Errorf("scan row: %w", err))
		}
		out.Rows = append(out.Rows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return result.RowSet{}, classify(fmt.Errorf("iterate rows: %w", err))
	}

	return out, nil
}

// normalizeValues maps driver values onto the types the summary understands.
func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		case int32:
			normalized[i] = int64(typed)
		case int:
			normalized[i] = int64(typed)
		case float32:
			normalized[i] = float64(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

// classify attaches the store failure kind to err.
func classify(err error) error {
	if isTimeout(err) {
		return fmt.Errorf("%w: %w: %w", domain.ErrStoreTimeout, domain.ErrTransient, err)
	}
	if isMalformed(err) {
		return fmt.Errorf("%w: %w", domain.ErrMalformedQuery, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 57014 query_canceled (statement_timeout), class 08 connection exception
		return pgErr.Code == "57014" || strings.HasPrefix(pgErr.Code, "08")
	}
	return pgconn.Timeout(err)
}

func isMalformed(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 42: syntax error or access rule violation
		return strings.HasPrefix(pgErr.Code, "42")
	}
	var duckErr *duckdb.Error
	if errors.As(err, &duckErr) {
		switch duckErr.Type {
		case duckdb.ErrorTypeParser, duckdb.ErrorTypeBinder, duckdb.ErrorTypeCatalog:
			return true
		}
	}
	return false
}
