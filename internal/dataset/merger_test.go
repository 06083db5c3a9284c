package dataset

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/smartprice/pricelist/constants"
)

// memStore applies staged transaction state on commit, so atomicity
// bugs in the merger surface as visible partial state.
type memStore struct {
	mu         sync.Mutex
	rows       []Record
	failInsert bool
	begun      int
}

type memTx struct {
	store     *memStore
	deletes   []TripleKey
	inserts   []Record
	committed bool
}

func (s *memStore) Begin(_ context.Context) (Tx, error) {
	s.mu.Lock()
	s.begun++
	s.mu.Unlock()
	return &memTx{store: s}, nil
}

func (s *memStore) countTriple(key TripleKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.rows {
		if r.Triple() == key {
			n++
		}
	}
	return n
}

func (t *memTx) DeleteTriple(_ context.Context, key TripleKey) (int64, error) {
	t.deletes = append(t.deletes, key)
	return int64(t.store.countTriple(key)), nil
}

func (t *memTx) InsertRecords(_ context.Context, recs []Record) error {
	if t.store.failInsert {
		return errors.New("disk full")
	}
	t.inserts = append(t.inserts, recs...)
	return nil
}

func (t *memTx) Commit(_ context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	kept := t.store.rows[:0]
	for _, r := range t.store.rows {
		drop := false
		for _, key := range t.deletes {
			if r.Triple() == key {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, r)
		}
	}
	t.store.rows = append(kept, t.inserts...)
	t.committed = true
	return nil
}

func (t *memTx) Rollback(_ context.Context) error { return nil }

type memPurger struct {
	mu      sync.Mutex
	deleted []string
}

func (p *memPurger) DeleteSource(src string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, src)
	return nil
}

func rec(brand string, year, month int, code, src string) Record {
	return Record{
		MaterialCode: code,
		Price:        "10,00",
		PriceValue:   10,
		Brand:        brand,
		SourceFile:   src,
		Page:         1,
		Year:         year,
		Month:        month,
	}
}

func newTestMerger(store Store, opts ...MergerOption) *Merger {
	return NewMerger(store, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
}

func TestMergeAppendKeepsExistingRows(t *testing.T) {
	store := &memStore{rows: []Record{
		rec("Kale", 2025, 3, "A-1", "old.pdf"),
	}}
	m := newTestMerger(store)

	sum, err := m.Merge(context.Background(), constants.MergeAppend, []Record{
		rec("Kale", 2025, 3, "A-1", "new.pdf"), // same key, duplicate tolerated
		rec("Kale", 2025, 3, "B-2", "new.pdf"),
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := store.countTriple(TripleKey{"Kale", 2025, 3}); got != 3 {
		t.Errorf("rows for triple = %d, want 3", got)
	}
	if sum.Inserted() != 2 {
		t.Errorf("inserted = %d, want 2", sum.Inserted())
	}
	if len(sum.Triples) != 1 || sum.Triples[0].Deleted != 0 {
		t.Errorf("append must not delete: %+v", sum.Triples)
	}
}

func TestMergeUpdateReplacesTripleWholesale(t *testing.T) {
	store := &memStore{}
	for i := 0; i < 5; i++ {
		store.rows = append(store.rows, rec("BrandX", 2025, 3, "OLD", "prior.pdf"))
	}
	store.rows = append(store.rows, rec("BrandY", 2025, 3, "KEEP", "other.pdf"))
	m := newTestMerger(store)

	incoming := []Record{
		rec("BrandX", 2025, 3, "N-1", "resubmit.pdf"),
		rec("BrandX", 2025, 3, "N-2", "resubmit.pdf"),
		rec("BrandX", 2025, 3, "N-3", "resubmit.pdf"),
		rec("BrandX", 2025, 3, "N-4", "resubmit.pdf"),
	}
	sum, err := m.Merge(context.Background(), constants.MergeUpdate, incoming)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := store.countTriple(TripleKey{"BrandX", 2025, 3}); got != 4 {
		t.Errorf("BrandX triple rows = %d, want exactly the 4 new", got)
	}
	if got := store.countTriple(TripleKey{"BrandY", 2025, 3}); got != 1 {
		t.Errorf("untouched triple rows = %d, want 1", got)
	}
	if sum.Triples[0].Deleted != 5 {
		t.Errorf("deleted = %d, want 5", sum.Triples[0].Deleted)
	}
}

func TestMergeUpdateIsIdempotent(t *testing.T) {
	store := &memStore{}
	m := newTestMerger(store)
	incoming := []Record{
		rec("Kale", 2025, 1, "A-1", "kale.pdf"),
		rec("Kale", 2025, 1, "B-2", "kale.pdf"),
	}

	for i := 0; i < 2; i++ {
		if _, err := m.Merge(context.Background(), constants.MergeUpdate, incoming); err != nil {
			t.Fatalf("merge %d: %v", i+1, err)
		}
	}
	if got := store.countTriple(TripleKey{"Kale", 2025, 1}); got != 2 {
		t.Errorf("rows after double merge = %d, want 2", got)
	}
}

func TestMergeDiscardsEmptyMaterialCode(t *testing.T) {
	store := &memStore{}
	m := newTestMerger(store)

	blank := rec("Kale", 2025, 1, "  ", "kale.pdf")
	sum, err := m.Merge(context.Background(), constants.MergeAppend, []Record{
		blank,
		rec("Kale", 2025, 1, "A-1", "kale.pdf"),
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if sum.Discarded != 1 || sum.Inserted() != 1 {
		t.Errorf("discarded=%d inserted=%d, want 1/1", sum.Discarded, sum.Inserted())
	}
}

func TestMergeFailedTripleRetainsPriorState(t *testing.T) {
	store := &memStore{failInsert: true}
	store.rows = append(store.rows, rec("Kale", 2025, 1, "OLD", "prior.pdf"))
	m := newTestMerger(store)

	_, err := m.Merge(context.Background(), constants.MergeUpdate, []Record{
		rec("Kale", 2025, 1, "N-1", "resubmit.pdf"),
	})
	if err == nil {
		t.Fatal("want insert failure surfaced")
	}
	if got := store.countTriple(TripleKey{"Kale", 2025, 1}); got != 1 {
		t.Errorf("rows = %d, want untouched prior state", got)
	}
}

func TestMergeUpdatePurgesReplacedArtifacts(t *testing.T) {
	store := &memStore{}
	purger := &memPurger{}
	m := newTestMerger(store, WithArtifactPurger(purger))

	_, err := m.Merge(context.Background(), constants.MergeUpdate, []Record{
		rec("Kale", 2025, 1, "A-1", "kale.pdf"),
		rec("Kale", 2025, 1, "B-2", "kale.pdf"),
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(purger.deleted) != 1 || purger.deleted[0] != "kale.pdf" {
		t.Errorf("purged = %v, want [kale.pdf]", purger.deleted)
	}

	// Append mode must leave artifacts alone.
	purger.deleted = nil
	if _, err := m.Merge(context.Background(), constants.MergeAppend, []Record{
		rec("Kale", 2025, 2, "C-3", "kale2.pdf"),
	}); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(purger.deleted) != 0 {
		t.Errorf("append purged %v", purger.deleted)
	}
}
