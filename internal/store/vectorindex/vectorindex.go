// Package vectorindex implements the embedded vector store: one bbolt
// bucket per entry type, keyed by entryId, storing embedding vectors as
// little-endian float32 blobs with a small header recording dimension and
// provider tag so a mismatch (spec section 6.2) is detectable on read
// without the provider present. Grounded on the pack's bbolt usage
// (evalgo-org-eve) generalized from a single KV bucket to a typed,
// per-entry-kind vector store.
package vectorindex

import (
	"encoding/binary"
	"fmt"
	"math"

	"go.etcd.io/bbolt"

	"github.com/agentmemory/memoryd/internal/domain/entrytype"
	apperrors "github.com/agentmemory/memoryd/internal/errors"
)

// Index wraps a bbolt database dedicated to embedding storage.
type Index struct {
	db *bbolt.DB
}

// Open opens (creating if absent) the bbolt file at path and ensures one
// bucket per entrytype.Kind exists.
func Open(path string) (*Index, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open vector index: %w", err)
	}
	kinds := []entrytype.Kind{entrytype.KindGuideline, entrytype.KindKnowledge, entrytype.KindTool, entrytype.KindExperience}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, k := range kinds {
			if _, err := tx.CreateBucketIfNotExists([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init vector index buckets: %w", err)
	}
	return &Index{db: db}, nil
}

// Close closes the underlying bbolt database.
func (idx *Index) Close() error { return idx.db.Close() }

// header is the fixed-size prefix stored ahead of each vector's float32
// bytes: dimension (uint32) and provider-tag length (uint32), followed by
// the provider tag string itself.
func encode(vec []float32, provider string) []byte {
	buf := make([]byte, 4+4+len(provider)+4*len(vec))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(vec)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(provider)))
	copy(buf[8:8+len(provider)], provider)
	off := 8 + len(provider)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[off+i*4:off+i*4+4], math.Float32bits(v))
	}
	return buf
}

func decode(buf []byte) (vec []float32, provider string, err error) {
	if len(buf) < 8 {
		return nil, "", fmt.Errorf("vector record truncated")
	}
	dim := binary.LittleEndian.Uint32(buf[0:4])
	provLen := binary.LittleEndian.Uint32(buf[4:8])
	if len(buf) < int(8+provLen+4*dim) {
		return nil, "", fmt.Errorf("vector record truncated")
	}
	provider = string(buf[8 : 8+provLen])
	off := 8 + int(provLen)
	vec = make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off+i*4 : off+i*4+4]))
	}
	return vec, provider, nil
}

// Put stores entryID's embedding under kind's bucket, overwriting any prior
// vector.
func (idx *Index) Put(kind entrytype.Kind, entryID string, vec []float32, provider string) error {
	return idx.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(kind))
		if b == nil {
			return fmt.Errorf("unknown entry kind %q", kind)
		}
		return b.Put([]byte(entryID), encode(vec, provider))
	})
}

// Get retrieves entryID's embedding. expectedDim, when non-zero, is checked
// against the stored dimension and reported as a validation error on
// mismatch (spec section 6.2) rather than silently truncating/padding.
func (idx *Index) Get(op string, kind entrytype.Kind, entryID string, expectedDim int) (vec []float32, provider string, err *apperrors.UnifiedError) {
	var raw []byte
	dbErr := idx.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(kind))
		if b == nil {
			return fmt.Errorf("unknown entry kind %q", kind)
		}
		v := b.Get([]byte(entryID))
		if v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if dbErr != nil {
		return nil, "", apperrors.NewInternal(op, "vector index read failed", dbErr)
	}
	if raw == nil {
		return nil, "", nil
	}
	vec, provider, decErr := decode(raw)
	if decErr != nil {
		return nil, "", apperrors.NewInternal(op, "vector record corrupt", decErr)
	}
	if expectedDim > 0 && len(vec) != expectedDim {
		return nil, "", apperrors.NewValidation(op, fmt.Sprintf("embedding dimension mismatch: stored %d, expected %d", len(vec), expectedDim))
	}
	return vec, provider, nil
}

// Delete removes entryID's stored embedding, if any.
func (idx *Index) Delete(kind entrytype.Kind, entryID string) error {
	return idx.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(kind))
		if b == nil {
			return fmt.Errorf("unknown entry kind %q", kind)
		}
		return b.Delete([]byte(entryID))
	})
}

// CosineSimilarity computes the cosine similarity between two equal-length
// vectors, returning 0 for a zero-magnitude vector rather than NaN.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Entry pairs a decoded vector with the entry it belongs to, used by the
// semantic query channel's in-process scan over bbolt-resident candidates.
type Entry struct {
	EntryID string
	Vector  []float32
}

// All returns every stored (entryId, vector) pair for kind, for the
// in-process semantic scan (spec section 4.2 step 4: candidates are fetched
// then scored with a bounded min-heap, not sorted in the store).
func (idx *Index) All(kind entrytype.Kind) ([]Entry, error) {
	var out []Entry
	err := idx.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(kind))
		if b == nil {
			return fmt.Errorf("unknown entry kind %q", kind)
		}
		return b.ForEach(func(k, v []byte) error {
			vec, _, decErr := decode(v)
			if decErr != nil {
				return nil // skip corrupt record rather than fail the whole scan
			}
			out = append(out, Entry{EntryID: string(k), Vector: vec})
			return nil
		})
	})
	return out, err
}
