package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/svcdeck/svcdeck/internal/history"
)

// Sink sends drive audit events to ClickHouse using the official ClickHouse Go client.
type Sink struct {
	conn  driver.Conn
	table string
}

func New(addr, table string) (*Sink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: "default",
			Password: "",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	// Test the connection
	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	s := &Sink{conn: conn, table: table}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		timestamp DateTime DEFAULT now(),
		service String,
		display String,
		action String,
		target String,
		observed String,
		outcome String
	) ENGINE = MergeTree() ORDER BY (timestamp, service)`, s.table)
	return s.conn.Exec(ctx, stmt)
}

func (s *Sink) Send(ctx context.Context, e history.Event) error {
	query := fmt.Sprintf(`INSERT INTO %s (timestamp, service, display, action, target, observed, outcome) VALUES (?, ?, ?, ?, ?, ?, ?)`, s.table)

	err := s.conn.Exec(ctx, query,
		e.OccurredAt.UTC(),
		e.Service,
		e.Display,
		e.Action,
		e.Target,
		e.Observed,
		string(e.Outcome),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event to ClickHouse: %w", err)
	}
	return nil
}

func (s *Sink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
