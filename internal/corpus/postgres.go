package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/resilience"
)

// PostgresLoader reads pages from a table shaped like
//
//	CREATE TABLE pages (uri text PRIMARY KEY, title text, body text, links text[])
type PostgresLoader struct {
	client  *postgres.Client
	table   string
	workers int
	logger  *slog.Logger
}

func NewPostgresLoader(client *postgres.Client, table string, workers int) *PostgresLoader {
	return &PostgresLoader{
		client:  client,
		table:   table,
		workers: workers,
		logger:  slog.Default().With("component", "corpus-postgres", "table", table),
	}
}

func selectQuery(table string) string {
	return fmt.Sprintf("SELECT uri, coalesce(title, ''), coalesce(body, ''), coalesce(links, '{}') FROM %s ORDER BY uri",
		pq.QuoteIdentifier(table))
}

func (l *PostgresLoader) Load(ctx context.Context) ([]*Page, error) {
	var pages []*Page
	err := resilience.Retry(ctx, "load-pages", resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
	}, func() error {
		var err error
		pages, err = l.query(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading pages from %s: %w", l.table, err)
	}
	if err := prepareAll(ctx, pages, l.workers); err != nil {
		return nil, err
	}
	l.logger.Info("corpus table loaded", "pages", len(pages))
	return Dedupe(pages), nil
}

func (l *PostgresLoader) query(ctx context.Context) ([]*Page, error) {
	rows, err := l.client.DB.QueryContext(ctx, selectQuery(l.table))
	if err != nil {
		return nil, fmt.Errorf("querying pages: %w", err)
	}
	defer rows.Close()
	return scanPages(rows)
}

func scanPages(rows *sql.Rows) ([]*Page, error) {
	var pages []*Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.URI, &p.Title, &p.Body, pq.Array(&p.Links)); err != nil {
			return nil, fmt.Errorf("scanning page: %w", err)
		}
		pages = append(pages, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pages: %w", err)
	}
	return pages, nil
}

// Store upserts pages into the table, creating it when missing.
func Store(ctx context.Context, client *postgres.Client, table string, pages []*Page) error {
	quoted := pq.QuoteIdentifier(table)
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (uri text PRIMARY KEY, title text, body text, links text[])", quoted)
	upsert := fmt.Sprintf(`INSERT INTO %s (uri, title, body, links) VALUES ($1, $2, $3, $4)
ON CONFLICT (uri) DO UPDATE SET title = EXCLUDED.title, body = EXCLUDED.body, links = EXCLUDED.links`, quoted)
	return client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, create); err != nil {
			return fmt.Errorf("creating table: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, upsert)
		if err != nil {
			return fmt.Errorf("preparing upsert: %w", err)
		}
		defer stmt.Close()
		for _, p := range pages {
			if _, err := stmt.ExecContext(ctx, p.URI, p.Title, p.Body, pq.Array(p.Links)); err != nil {
				return fmt.Errorf("storing %s: %w", p.URI, err)
			}
		}
		return nil
	})
}

func (l *PostgresLoader) Close() error {
	return l.client.Close()
}
