package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepline/prepline-backend/internal/document"
)

// TestRepository stores API-format test documents as JSONB rows.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

// GetByID retrieves one API-format test document.
func (r *TestRepository) GetByID(ctx context.Context, id string) (*document.APITest, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx,
		`SELECT doc FROM api_tests WHERE id = $1`, id,
	).Scan(&doc)
	if err != nil {
		return nil, err
	}

	var test document.APITest
	if err := json.Unmarshal(doc, &test); err != nil {
		return nil, fmt.Errorf("decode test document %s: %w", id, err)
	}
	return &test, nil
}

// List retrieves all stored test documents in insertion order.
func (r *TestRepository) List(ctx context.Context) ([]document.APITest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT doc FROM api_tests ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []document.APITest
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var test document.APITest
		if err := json.Unmarshal(doc, &test); err != nil {
			// One bad row must not hide the rest of the catalog.
			continue
		}
		tests = append(tests, test)
	}
	return tests, rows.Err()
}

// Upsert stores a test document, replacing any previous version by id.
func (r *TestRepository) Upsert(ctx context.Context, id string, doc []byte) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO api_tests (id, doc)
		 VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE
		 SET doc = EXCLUDED.doc, updated_at = NOW()`,
		id, doc,
	)
	return err
}
