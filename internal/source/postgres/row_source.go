// Package postgres reads spreadsheet-shaped datasets from a Postgres query.
package postgres

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/econ-dashboard/internal/dashboard"
	"github.com/JakeFAU/econ-dashboard/internal/sheet"
)

// Querier is the subset of a pgx pool used to run one query.
type Querier interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// ConnectFunc opens a connection for one query.
type ConnectFunc func(ctx context.Context, dsn string) (Querier, error)

// RowSource runs a read-only query and exposes its result as spreadsheet rows.
type RowSource struct {
	connect ConnectFunc
}

// NewRowSource creates a RowSource that opens a pgx pool per call.
func NewRowSource() *RowSource {
	return &RowSource{connect: func(ctx context.Context, dsn string) (Querier, error) {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return pool, nil
	}}
}

// NewRowSourceWithConnect constructs a source from a custom connector (primarily for testing).
func NewRowSourceWithConnect(connect ConnectFunc) (*RowSource, error) {
	if connect == nil {
		return nil, fmt.Errorf("connect func is required")
	}
	return &RowSource{connect: connect}, nil
}

// Rows connects to dsn, runs query and returns the column names as the header and every
// value rendered as text. SQL NULL becomes a null cell. The connection is closed before returning.
func (s *RowSource) Rows(ctx context.Context, dsn, query string) (sheet.RowSet, error) {
	if strings.TrimSpace(dsn) == "" {
		return sheet.RowSet{}, fmt.Errorf("%w: postgres dsn is required", dashboard.ErrUnsupportedSource)
	}
	if strings.TrimSpace(query) == "" {
		return sheet.RowSet{}, fmt.Errorf("%w: postgres query is required", dashboard.ErrUnsupportedSource)
	}
	conn, err := s.connect(ctx, dsn)
	if err != nil {
		return sheet.RowSet{}, fmt.Errorf("%w: connect postgres: %w", dashboard.ErrTransport, err)
	}
	defer conn.Close()

	rows, err := conn.Query(ctx, query)
	if err != nil {
		return sheet.RowSet{}, fmt.Errorf("%w: run query: %w", dashboard.ErrTransport, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	header := make([]string, len(fields))
	for i, fd := range fields {
		header[i] = fd.Name
	}

	var cells [][]*string
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return sheet.RowSet{}, fmt.Errorf("%w: scan row: %w", dashboard.ErrTransport, err)
		}
		record := make([]*string, len(values))
		for i, v := range values {
			record[i] = cellText(v)
		}
		cells = append(cells, record)
	}
	if err := rows.Err(); err != nil {
		return sheet.RowSet{}, fmt.Errorf("%w: iterate rows: %w", dashboard.ErrTransport, err)
	}
	return sheet.NewRowSet(header, cells), nil
}

func cellText(v any) *string {
	if v == nil {
		return nil
	}
	var text string
	switch value := v.(type) {
	case string:
		text = value
	case []byte:
		text = string(value)
	case float64:
		text = strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		text = strconv.FormatFloat(float64(value), 'f', -1, 32)
	case int64:
		text = strconv.FormatInt(value, 10)
	case int32:
		text = strconv.FormatInt(int64(value), 10)
	case int16:
		text = strconv.FormatInt(int64(value), 10)
	case int:
		text = strconv.Itoa(value)
	case bool:
		text = strconv.FormatBool(value)
	case time.Time:
		if value.Equal(value.Truncate(24 * time.Hour)) {
			text = value.Format("2006-01-02")
		} else {
			text = value.Format(time.RFC3339)
		}
	case driver.Valuer:
		inner, err := value.Value()
		if err != nil {
			return nil
		}
		return cellText(inner)
	case fmt.Stringer:
		text = value.String()
	default:
		text = fmt.Sprint(value)
	}
	return &text
}
