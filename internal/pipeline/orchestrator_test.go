package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/smartprice/pricelist/constants"
	"github.com/smartprice/pricelist/internal/common"
	"github.com/smartprice/pricelist/internal/dataset"
	"github.com/smartprice/pricelist/internal/extract"
)

type fakeStrategy struct {
	name string
	// pages maps page number to the extract returned; missing pages
	// yield zero rows.
	pages map[int]extract.PageExtract
	err   error
	// failFor aborts only the named document, for isolation tests.
	failFor string

	mu    sync.Mutex
	calls []int
}

func (s *fakeStrategy) Name() string { return s.name }

func (s *fakeStrategy) Extract(_ context.Context, doc extract.Document, page int) (extract.PageExtract, error) {
	s.mu.Lock()
	s.calls = append(s.calls, page)
	s.mu.Unlock()
	if s.failFor != "" && doc.Name == s.failFor {
		return extract.PageExtract{}, fmt.Errorf("auth: %w", common.ErrRemotePermanent)
	}
	if s.err != nil {
		return extract.PageExtract{}, s.err
	}
	if ext, ok := s.pages[page]; ok {
		return ext, nil
	}
	return extract.PageExtract{Note: s.name + ": nothing found"}, nil
}

func (s *fakeStrategy) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type fakeCounter struct{ pages int }

func (c fakeCounter) PageCount(_ context.Context, _ string) (int, error) { return c.pages, nil }

func productPage(codes ...string) extract.PageExtract {
	var rows []extract.RawRow
	for _, code := range codes {
		row := extract.RawRow{}
		row.Set("Malzeme_Kodu", code)
		row.Set("Fiyat", "10,00")
		rows = append(rows, row)
	}
	return extract.PageExtract{Rows: rows}
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newOrchestrator(t *testing.T, counter PageCounter, strategies ...extract.Strategy) *Orchestrator {
	t.Helper()
	return NewOrchestrator(strategies, testCanon(t), counter, discard())
}

func TestFallbackOrderStopsAtFirstRows(t *testing.T) {
	direct := &fakeStrategy{name: "direct-text"}
	ocr := &fakeStrategy{name: "ocr-model", pages: map[int]extract.PageExtract{1: productPage("AB-1")}}
	vision := &fakeStrategy{name: "vision"}
	o := newOrchestrator(t, fakeCounter{pages: 1}, direct, ocr, vision)

	res := o.ProcessDocument(context.Background(), kaleDoc())
	if res.State != constants.DocSucceeded {
		t.Fatalf("state = %s", res.State)
	}
	if direct.callCount() != 1 || ocr.callCount() != 1 {
		t.Errorf("direct/ocr calls = %d/%d, want 1/1", direct.callCount(), ocr.callCount())
	}
	if vision.callCount() != 0 {
		t.Errorf("vision called %d times after ocr succeeded", vision.callCount())
	}
	if res.Pages[0].Strategy != "ocr-model" {
		t.Errorf("winning strategy = %q", res.Pages[0].Strategy)
	}
}

func TestTwoPageDocumentWithEmptySecondPage(t *testing.T) {
	direct := &fakeStrategy{name: "direct-text", pages: map[int]extract.PageExtract{
		1: productPage("A-1", "B-2", "C-3"),
	}}
	ocr := &fakeStrategy{name: "ocr-model"}
	vision := &fakeStrategy{name: "vision"}
	o := newOrchestrator(t, fakeCounter{pages: 2}, direct, ocr, vision)

	res := o.ProcessDocument(context.Background(), kaleDoc())
	if res.Err != nil {
		t.Fatalf("empty page must not be an error: %v", res.Err)
	}
	if res.State != constants.DocSucceeded {
		t.Errorf("state = %s", res.State)
	}
	if res.Rows() != 3 {
		t.Errorf("rows = %d, want 3", res.Rows())
	}
	if len(res.Pages) != 2 {
		t.Fatalf("page reports = %d", len(res.Pages))
	}
	if res.Pages[0].Status != constants.PageStatusSuccess || res.Pages[0].Rows != 3 {
		t.Errorf("page 1 = %+v", res.Pages[0])
	}
	if res.Pages[1].Status != constants.PageStatusEmpty {
		t.Errorf("page 2 status = %s, want EMPTY", res.Pages[1].Status)
	}
	if res.Pages[1].Note == "" {
		t.Error("empty page must carry its diagnostic note")
	}
}

func TestRecordsPreservePageOrder(t *testing.T) {
	direct := &fakeStrategy{name: "direct-text", pages: map[int]extract.PageExtract{
		1: productPage("P1-A"),
		2: productPage("P2-A"),
		3: productPage("P3-A"),
	}}
	o := newOrchestrator(t, fakeCounter{pages: 3}, direct)

	res := o.ProcessDocument(context.Background(), kaleDoc())
	if res.Rows() != 3 {
		t.Fatalf("rows = %d", res.Rows())
	}
	for i, rec := range res.Records {
		if rec.Page != i+1 {
			t.Errorf("record %d from page %d, want %d", i, rec.Page, i+1)
		}
	}
}

func TestPermanentFailureAbortsDocumentOnly(t *testing.T) {
	failing := &fakeStrategy{name: "ocr-model", err: fmt.Errorf("auth: %w", common.ErrRemotePermanent)}
	o := newOrchestrator(t, fakeCounter{pages: 2}, failing)

	res := o.ProcessDocument(context.Background(), kaleDoc())
	if res.State != constants.DocExhausted {
		t.Errorf("state = %s, want EXHAUSTED", res.State)
	}
	if res.Err == nil {
		t.Fatal("want the permanent error surfaced on the document")
	}
}

func TestTransientExhaustionFallsThroughToNextStrategy(t *testing.T) {
	flaky := &fakeStrategy{name: "ocr-model", err: fmt.Errorf("rate limited: %w", common.ErrRemoteTransient)}
	vision := &fakeStrategy{name: "vision", pages: map[int]extract.PageExtract{1: productPage("AB-1")}}
	o := newOrchestrator(t, fakeCounter{pages: 1}, flaky, vision)

	res := o.ProcessDocument(context.Background(), kaleDoc())
	if res.Err != nil {
		t.Fatalf("exhausted transient must not abort: %v", res.Err)
	}
	if res.Rows() != 1 || res.Pages[0].Strategy != "vision" {
		t.Errorf("rows=%d strategy=%q, want vision to win", res.Rows(), res.Pages[0].Strategy)
	}
}

// trackingStore counts inserts through the dataset merger contract.
type trackingStore struct {
	mu       sync.Mutex
	inserted []dataset.Record
}

type trackingTx struct{ store *trackingStore }

func (s *trackingStore) Begin(_ context.Context) (dataset.Tx, error) {
	return &trackingTx{store: s}, nil
}

func (t *trackingTx) DeleteTriple(_ context.Context, _ dataset.TripleKey) (int64, error) {
	return 0, nil
}

func (t *trackingTx) InsertRecords(_ context.Context, recs []dataset.Record) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.store.inserted = append(t.store.inserted, recs...)
	return nil
}

func (t *trackingTx) Commit(_ context.Context) error   { return nil }
func (t *trackingTx) Rollback(_ context.Context) error { return nil }

func TestRunnerMergesAndDedupes(t *testing.T) {
	first := kaleDoc()
	second := kaleDoc()
	second.Name = "Kale 2025 Ocak v2.pdf"
	second.Path = "/in/Kale 2025 Ocak v2.pdf"

	direct := &fakeStrategy{name: "direct-text", pages: map[int]extract.PageExtract{1: productPage("AB-1")}}
	orch := newOrchestrator(t, fakeCounter{pages: 1}, direct)

	store := &trackingStore{}
	runner := NewRunner(RunnerConfig{
		Orchestrator: orch,
		Merger:       dataset.NewMerger(store, discard()),
		BatchSize:    2,
		Mode:         constants.MergeAppend,
	}, discard())

	sum, err := runner.Run(context.Background(), []extract.Document{first, second})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Both documents extract the same code+price; the batch-level
	// duplicate filter keeps one.
	if sum.Deduped != 1 {
		t.Errorf("deduped = %d, want 1", sum.Deduped)
	}
	if len(store.inserted) != 1 {
		t.Errorf("inserted = %d, want 1", len(store.inserted))
	}
}

func TestRunnerIsolatesFailedDocuments(t *testing.T) {
	good := kaleDoc()
	bad := kaleDoc()
	bad.Name = "ECA 2025 Subat.pdf"
	bad.Path = "/in/ECA 2025 Subat.pdf"

	direct := &fakeStrategy{
		name:    "direct-text",
		pages:   map[int]extract.PageExtract{1: productPage("AB-1")},
		failFor: bad.Name,
	}
	orch := newOrchestrator(t, fakeCounter{pages: 1}, direct)

	store := &trackingStore{}
	runner := NewRunner(RunnerConfig{
		Orchestrator: orch,
		Merger:       dataset.NewMerger(store, discard()),
		BatchSize:    2,
		Mode:         constants.MergeAppend,
	}, discard())

	sum, err := runner.Run(context.Background(), []extract.Document{good, bad})
	if err != nil {
		t.Fatalf("one failed document must not fail the batch: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Errorf("inserted = %d, want the good document's row", len(store.inserted))
	}
	var badRes *DocumentResult
	for i := range sum.Documents {
		if sum.Documents[i].Name == bad.Name {
			badRes = &sum.Documents[i]
		}
	}
	if badRes == nil || badRes.Err == nil || badRes.State != constants.DocExhausted {
		t.Errorf("failed document not reported: %+v", badRes)
	}
}
