package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/smartprice/pricelist/constants"
	"github.com/smartprice/pricelist/internal/common"
)

// Tx is one store transaction covering a single triple's replacement.
type Tx interface {
	DeleteTriple(ctx context.Context, key TripleKey) (int64, error)
	InsertRecords(ctx context.Context, recs []Record) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the slice of the persistence layer the merger writes through.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// ArtifactPurger removes the debug artifacts of a replaced source file.
// Purge failures are logged, never propagated.
type ArtifactPurger interface {
	DeleteSource(sourceFile string) error
}

// TripleResult is the merge outcome for one (brand, year, month) key.
type TripleResult struct {
	Key      TripleKey
	Deleted  int64
	Inserted int
}

// Summary reports one Merge call.
type Summary struct {
	Mode    constants.MergeMode
	Triples []TripleResult
	// Discarded counts records dropped for an empty material code.
	Discarded int
}

func (s Summary) Inserted() int {
	n := 0
	for _, t := range s.Triples {
		n += t.Inserted
	}
	return n
}

// Merger is the single mutation path into the master dataset. Merges
// touching the same triple are serialized by a keyed mutex; disjoint
// triples proceed concurrently.
type Merger struct {
	store  Store
	purger ArtifactPurger
	logger *slog.Logger

	mu    sync.Mutex
	locks map[TripleKey]*sync.Mutex
}

// MergerOption configures a Merger.
type MergerOption func(*Merger)

// WithArtifactPurger wires debug artifact cleanup into update-mode
// replacement.
func WithArtifactPurger(p ArtifactPurger) MergerOption {
	return func(m *Merger) { m.purger = p }
}

func NewMerger(store Store, logger *slog.Logger, opts ...MergerOption) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Merger{
		store:  store,
		logger: logger,
		locks:  make(map[TripleKey]*sync.Mutex),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Merge writes records into the master dataset.
//
// Append mode inserts as-is and never removes existing rows. Update mode
// replaces every triple present in the input wholesale: delete the
// triple's rows, insert the new ones, in one transaction per triple, so
// a reader observes either the prior state or the full replacement.
// Failed triples roll back and do not abort the remaining triples.
func (m *Merger) Merge(ctx context.Context, mode constants.MergeMode, recs []Record) (Summary, error) {
	sum := Summary{Mode: mode}

	groups := make(map[TripleKey][]Record)
	for _, r := range recs {
		if !r.Valid() {
			sum.Discarded++
			continue
		}
		groups[r.Triple()] = append(groups[r.Triple()], r)
	}

	keys := make([]TripleKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Brand != b.Brand {
			return a.Brand < b.Brand
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Month < b.Month
	})

	var errs []error
	for _, key := range keys {
		res, err := m.mergeTriple(ctx, mode, key, groups[key])
		if err != nil {
			errs = append(errs, fmt.Errorf("triple %s: %w", key, err))
			continue
		}
		sum.Triples = append(sum.Triples, res)
	}
	return sum, errors.Join(errs...)
}

func (m *Merger) mergeTriple(ctx context.Context, mode constants.MergeMode, key TripleKey, recs []Record) (TripleResult, error) {
	unlock := m.lockTriple(key)
	defer unlock()

	tx, err := m.store.Begin(ctx)
	if err != nil {
		return TripleResult{}, fmt.Errorf("%w: begin: %w", common.ErrMergeConflict, err)
	}

	res := TripleResult{Key: key}
	if mode == constants.MergeUpdate {
		deleted, err := tx.DeleteTriple(ctx, key)
		if err != nil {
			_ = tx.Rollback(ctx)
			return TripleResult{}, fmt.Errorf("delete: %w", err)
		}
		res.Deleted = deleted
	}
	if err := tx.InsertRecords(ctx, recs); err != nil {
		_ = tx.Rollback(ctx)
		return TripleResult{}, fmt.Errorf("insert: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return TripleResult{}, fmt.Errorf("commit: %w", err)
	}
	res.Inserted = len(recs)

	if mode == constants.MergeUpdate && m.purger != nil {
		for _, src := range sourceFiles(recs) {
			if err := m.purger.DeleteSource(src); err != nil {
				m.logger.Warn("debug artifact cleanup failed", "source", src, "error", err)
			}
		}
	}

	m.logger.Info("merge.triple",
		"mode", string(mode),
		"triple", key.String(),
		"deleted", res.Deleted,
		"inserted", res.Inserted,
	)
	return res, nil
}

func (m *Merger) lockTriple(key TripleKey) func() {
	m.mu.Lock()
	lk, ok := m.locks[key]
	if !ok {
		lk = &sync.Mutex{}
		m.locks[key] = lk
	}
	m.mu.Unlock()

	lk.Lock()
	return lk.Unlock
}

func sourceFiles(recs []Record) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range recs {
		if r.SourceFile == "" {
			continue
		}
		if _, ok := seen[r.SourceFile]; ok {
			continue
		}
		seen[r.SourceFile] = struct{}{}
		out = append(out, r.SourceFile)
	}
	return out
}
