package vector

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// PostgresStore persists note vectors in the note_vectors table. Embeddings
// are stored as float8[]; similarity is computed in Go over the patient's
// namespace, which stays small (one entry per active medical record).
type PostgresStore struct {
	DB *sql.DB
}

// NewPostgresStore wraps an existing sql.DB. The caller owns the connection.
func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{DB: db} }

func (s *PostgresStore) Upsert(ctx context.Context, e Entry) error {
	emb := make([]float64, len(e.Vector))
	for i, v := range e.Vector {
		emb[i] = float64(v)
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO note_vectors (vector_id, patient_id, note, embedding)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (vector_id) DO UPDATE
         SET note = EXCLUDED.note, embedding = EXCLUDED.embedding`,
		e.VectorID, e.PatientID, e.Note, pq.Array(emb),
	)
	return errors.Wrap(err, "upsert note vector")
}

func (s *PostgresStore) Delete(ctx context.Context, patientID int64, vectorID string) error {
	_, err := s.DB.ExecContext(ctx,
		`DELETE FROM note_vectors WHERE patient_id = $1 AND vector_id = $2`,
		patientID, vectorID,
	)
	return errors.Wrap(err, "delete note vector")
}

func (s *PostgresStore) List(ctx context.Context, patientID int64) ([]Entry, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT vector_id, patient_id, note, embedding, created_at
         FROM note_vectors
         WHERE patient_id = $1`, patientID)
	if err != nil {
		return nil, errors.Wrap(err, "list note vectors")
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var emb []float64
		if err := rows.Scan(&e.VectorID, &e.PatientID, &e.Note, pq.Array(&emb), &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan note vector")
		}
		e.Vector = make([]float32, len(emb))
		for i, v := range emb {
			e.Vector[i] = float32(v)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
