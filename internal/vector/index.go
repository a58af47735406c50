package vector

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"medichat-backend/internal/llm"
	"medichat-backend/pkg"
)

// Entry is one embedded clinical note. Notes are namespaced per patient: a
// query for one patient never sees another patient's vectors.
type Entry struct {
	VectorID  string
	PatientID int64
	Note      string
	Vector    []float32
	CreatedAt time.Time
}

// Store persists embedded notes keyed by (patient, vector id).
type Store interface {
	Upsert(ctx context.Context, e Entry) error
	Delete(ctx context.Context, patientID int64, vectorID string) error
	List(ctx context.Context, patientID int64) ([]Entry, error)
}

// Index combines an embedder with a vector store: notes go in as embeddings,
// queries come back ranked by cosine similarity within the patient namespace.
type Index struct {
	embedder llm.Embedder
	store    Store
}

// NewIndex constructs a vector index over the given embedder and store.
func NewIndex(embedder llm.Embedder, store Store) *Index {
	return &Index{embedder: embedder, store: store}
}

// IndexNote embeds a note and stores it under the patient's namespace,
// returning the generated vector id.
func (i *Index) IndexNote(ctx context.Context, patientID int64, note string) (string, error) {
	vec, err := i.embedder.Embed(ctx, note)
	if err != nil {
		return "", errors.Wrap(err, "embed note")
	}
	e := Entry{
		VectorID:  uuid.NewString(),
		PatientID: patientID,
		Note:      note,
		Vector:    vec,
		CreatedAt: time.Now(),
	}
	if err := i.store.Upsert(ctx, e); err != nil {
		return "", errors.Wrap(err, "store note vector")
	}
	log.Debug().Int64("patient_id", patientID).Str("vector_id", e.VectorID).Msg("note indexed")
	return e.VectorID, nil
}

// DeleteNote removes one vector from the patient's namespace.
func (i *Index) DeleteNote(ctx context.Context, patientID int64, vectorID string) error {
	return i.store.Delete(ctx, patientID, vectorID)
}

// Query embeds the query text and returns the top-k most similar notes for
// the patient, best first.
func (i *Index) Query(ctx context.Context, patientID int64, query string, topK int) ([]pkg.RecordMatch, error) {
	qv, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "embed query")
	}
	entries, err := i.store.List(ctx, patientID)
	if err != nil {
		return nil, errors.Wrap(err, "list note vectors")
	}
	matches := make([]pkg.RecordMatch, 0, len(entries))
	for _, e := range entries {
		matches = append(matches, pkg.RecordMatch{
			VectorID: e.VectorID,
			Note:     e.Note,
			Score:    Cosine(qv, e.Vector),
		})
	}
	sort.Slice(matches, func(a, b int) bool { return matches[a].Score > matches[b].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Cosine returns the cosine similarity of two vectors. Mismatched lengths or
// zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
