package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/facerec/internal/database"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// SampleRepository provides PostgreSQL-backed gallery storage.
type SampleRepository struct {
	pool *Pool
}

// NewSampleRepository creates a new PostgreSQL sample repository.
func NewSampleRepository(pool *Pool) *SampleRepository {
	return &SampleRepository{pool: pool}
}

var _ database.SampleWriter = (*SampleRepository)(nil)

// LoadAll returns every sample in enrollment order.
func (r *SampleRepository) LoadAll(ctx context.Context) ([]database.StoredSample, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT id, position, category, embedding, source, created_at
		FROM samples
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []database.StoredSample
	for rows.Next() {
		var s database.StoredSample
		var vec pgvector.Vector
		if err := rows.Scan(&s.ID, &s.Position, &s.Category, &vec, &s.Source, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		s.Embedding = vec.Slice()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return out, nil
}

// Count returns the number of stored samples.
func (r *SampleRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM samples").Scan(&n); err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return n, nil
}

// ReplaceAll deletes the stored gallery and inserts samples in one
// transaction, so concurrent readers see either the old or the new gallery.
func (r *SampleRepository) ReplaceAll(ctx context.Context, list []database.StoredSample) error {
	return r.pool.withTx(ctx, "samples", func(tx *sql.Tx) error {
		return replaceSamples(ctx, tx, list)
	})
}

func replaceSamples(ctx context.Context, tx *sql.Tx, list []database.StoredSample) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM samples"); err != nil {
		return fmt.Errorf("delete samples: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (position, category, embedding, source)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range list {
		vec := pgvector.NewVector(s.Embedding)
		if _, err := stmt.ExecContext(ctx, i, s.Category, vec, s.Source); err != nil {
			return fmt.Errorf("insert sample %d: %w", i, err)
		}
	}
	return nil
}

// Labels returns the category id to person name mapping.
func (r *SampleRepository) Labels(ctx context.Context) (map[int32]string, error) {
	rows, err := r.pool.db.QueryContext(ctx, "SELECT category, name FROM labels ORDER BY category")
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()

	labels := make(map[int32]string)
	for rows.Next() {
		var cat int32
		var name string
		if err := rows.Scan(&cat, &name); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		labels[cat] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate labels: %w", err)
	}
	return labels, nil
}

// SaveLabels upserts labels and removes categories that are no longer named.
func (r *SampleRepository) SaveLabels(ctx context.Context, labels map[int32]string) error {
	return r.pool.withTx(ctx, "labels", func(tx *sql.Tx) error {
		return saveLabels(ctx, tx, labels)
	})
}

// ReplaceGallery replaces samples and, when labels is not nil, the labels in
// one transaction.
func (r *SampleRepository) ReplaceGallery(ctx context.Context, list []database.StoredSample, labels map[int32]string) error {
	return r.pool.withTx(ctx, "gallery", func(tx *sql.Tx) error {
		if err := replaceSamples(ctx, tx, list); err != nil {
			return err
		}
		if labels == nil {
			return nil
		}
		return saveLabels(ctx, tx, labels)
	})
}

func saveLabels(ctx context.Context, tx *sql.Tx, labels map[int32]string) error {
	cats := make([]int64, 0, len(labels))
	for cat, name := range labels {
		cats = append(cats, int64(cat))
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO labels (category, name) VALUES ($1, $2)
			ON CONFLICT (category) DO UPDATE SET name = EXCLUDED.name
		`, cat, name); err != nil {
			return fmt.Errorf("upsert label %d: %w", cat, err)
		}
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM labels WHERE NOT (category = ANY($1))", pq.Array(cats)); err != nil {
		return fmt.Errorf("delete stale labels: %w", err)
	}
	return nil
}
