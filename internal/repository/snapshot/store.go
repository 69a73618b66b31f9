// Package snapshot persists a corpus index in a bbolt file.
package snapshot

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/kailas-cloud/coursefind/internal/domain"
	"github.com/kailas-cloud/coursefind/internal/domain/corpus"
	"github.com/kailas-cloud/coursefind/internal/domain/course"
	"github.com/kailas-cloud/coursefind/internal/domain/vector"
)

var (
	bucketMeta    = []byte("meta")
	bucketCourses = []byte("courses")
	bucketVectors = []byte("vectors")
	keyMeta       = []byte("index")
)

// Meta describes a stored index.
type Meta struct {
	Encoder     string    `json:"encoder"`
	Dimension   int       `json:"dimension"`
	Fingerprint string    `json:"fingerprint"`
	Count       int       `json:"count"`
	SavedAt     time.Time `json:"saved_at"`
}

type courseDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Link        string `json:"course_link"`
}

// Store reads and writes one index snapshot.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// Open opens or creates the snapshot file at path.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the file lock.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	return nil
}

// Save replaces the stored snapshot with idx in one transaction.
// Keys are big-endian positions, so cursor order equals corpus order.
func (s *Store) Save(_ context.Context, idx *corpus.Index) error {
	meta := Meta{
		Encoder:     idx.Encoder(),
		Dimension:   idx.Dimension(),
		Fingerprint: idx.Fingerprint(),
		Count:       idx.Len(),
		SavedAt:     s.now().UTC(),
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal snapshot meta: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketCourses, bucketVectors} {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return fmt.Errorf("reset bucket %s: %w", name, err)
			}
		}
		courses, err := tx.CreateBucket(bucketCourses)
		if err != nil {
			return fmt.Errorf("create courses bucket: %w", err)
		}
		vectors, err := tx.CreateBucket(bucketVectors)
		if err != nil {
			return fmt.Errorf("create vectors bucket: %w", err)
		}

		for i := 0; i < idx.Len(); i++ {
			e := idx.Entry(i)
			c := e.Course()
			data, err := json.Marshal(courseDTO{
				ID:          c.ID(),
				Title:       c.Title(),
				Description: c.Description(),
				ImageURL:    c.ImageURL(),
				Link:        c.Link(),
			})
			if err != nil {
				return fmt.Errorf("marshal course %s: %w", c.ID(), err)
			}
			key := positionKey(i)
			if err := courses.Put(key, data); err != nil {
				return fmt.Errorf("put course %s: %w", c.ID(), err)
			}
			if err := vectors.Put(key, vector.Encode(e.Vector())); err != nil {
				return fmt.Errorf("put vector %s: %w", c.ID(), err)
			}
		}

		// meta last: a snapshot without meta is treated as absent
		mb, err := tx.CreateBucket(bucketMeta)
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		return mb.Put(keyMeta, metaBytes)
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Meta returns the stored snapshot description, or domain.ErrSnapshotNotFound.
func (s *Store) Meta(_ context.Context) (Meta, error) {
	var meta Meta
	err := s.db.View(func(tx *bbolt.Tx) error {
		return readMeta(tx, &meta)
	})
	if err != nil {
		return Meta{}, err
	}
	return meta, nil
}

// Load reads the stored index, or returns domain.ErrSnapshotNotFound.
// A snapshot whose content disagrees with its meta is reported as stale.
func (s *Store) Load(_ context.Context) (*corpus.Index, error) {
	var meta Meta
	var entries []corpus.Entry

	err := s.db.View(func(tx *bbolt.Tx) error {
		if err := readMeta(tx, &meta); err != nil {
			return err
		}
		courses := tx.Bucket(bucketCourses)
		vectors := tx.Bucket(bucketVectors)
		if courses == nil || vectors == nil {
			return fmt.Errorf("snapshot buckets missing: %w", domain.ErrSnapshotStale)
		}

		entries = make([]corpus.Entry, 0, meta.Count)
		cur := courses.Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			var dto courseDTO
			if err := json.Unmarshal(v, &dto); err != nil {
				return fmt.Errorf("decode course at %x: %w", k, err)
			}
			vec, err := vector.Decode(vectors.Get(k))
			if err != nil {
				return fmt.Errorf("decode vector %s: %w", dto.ID, err)
			}
			c := course.Reconstruct(dto.ID, dto.Title, dto.Description, dto.ImageURL, dto.Link)
			entries = append(entries, corpus.NewEntry(c, vec))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	if len(entries) != meta.Count {
		return nil, fmt.Errorf("snapshot has %d entries, meta says %d: %w",
			len(entries), meta.Count, domain.ErrSnapshotStale)
	}
	idx, err := corpus.New(meta.Encoder, meta.Dimension, entries)
	if err != nil {
		return nil, fmt.Errorf("rebuild index from snapshot: %v: %w", err, domain.ErrSnapshotStale)
	}
	if idx.Fingerprint() != meta.Fingerprint {
		return nil, fmt.Errorf("snapshot fingerprint mismatch: %w", domain.ErrSnapshotStale)
	}
	return idx, nil
}

func readMeta(tx *bbolt.Tx, meta *Meta) error {
	b := tx.Bucket(bucketMeta)
	if b == nil {
		return domain.ErrSnapshotNotFound
	}
	data := b.Get(keyMeta)
	if data == nil {
		return domain.ErrSnapshotNotFound
	}
	if err := json.Unmarshal(data, meta); err != nil {
		return fmt.Errorf("decode snapshot meta: %w", err)
	}
	return nil
}

func positionKey(i int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(i))
	return k
}
