package service

import (
	"bytes"
	"context"
	"contract-insight/logic/ingestion/parser"
	"contract-insight/logic/normalize"
	"contract-insight/storage/es"
	"contract-insight/storage/postgres"
	"contract-insight/types"
	"errors"
	"io"
	"mime/multipart"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"
)

type memStore struct {
	mu   sync.Mutex
	recs map[string]*postgres.ContractAnalysis
	seq  int
}

func newMemStore() *memStore {
	return &memStore{recs: map[string]*postgres.ContractAnalysis{}}
}

func (m *memStore) Create(_ context.Context, rec *postgres.ContractAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	rec.CreatedAt = time.Unix(int64(m.seq), 0)
	cp := *rec
	m.recs[rec.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, userID, id string) (*postgres.ContractAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok || rec.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memStore) GetByIDs(_ context.Context, userID string, ids []string) ([]postgres.ContractAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []postgres.ContractAnalysis
	for _, id := range ids {
		if rec, ok := m.recs[id]; ok && rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *memStore) ListByUser(_ context.Context, userID string) ([]postgres.ContractAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []postgres.ContractAnalysis
	for _, rec := range m.recs {
		if rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) SearchByKeyword(_ context.Context, userID, keyword string, _ int) ([]postgres.ContractAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []postgres.ContractAnalysis
	for _, rec := range m.recs {
		if rec.UserID == userID && strings.Contains(strings.ToLower(rec.Summary), strings.ToLower(keyword)) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok || rec.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	delete(m.recs, id)
	return nil
}

// ListDegraded 与 SQL 的排序一致：last_reanalyzed_at NULLS FIRST，再按 created_at
func (m *memStore) ListDegraded(_ context.Context, limit, maxAttempts int) ([]postgres.ContractAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []postgres.ContractAnalysis
	for _, rec := range m.recs {
		if rec.Degraded && rec.ReanalyzeAttempts < maxAttempts {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LastReanalyzedAt, out[j].LastReanalyzedAt
		switch {
		case a == nil && b != nil:
			return true
		case a != nil && b == nil:
			return false
		case a != nil && !a.Equal(*b):
			return a.Before(*b)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) MarkReanalyzed(_ context.Context, id string, countAttempt bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.seq++
	at := time.Unix(int64(m.seq), 0)
	rec.LastReanalyzedAt = &at
	if countAttempt {
		rec.ReanalyzeAttempts++
	}
	return nil
}

func (m *memStore) UpdateAnalysis(_ context.Context, rec *postgres.ContractAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.recs[rec.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cur.ContractType = rec.ContractType
	cur.Summary = rec.Summary
	cur.OverallScore = rec.OverallScore
	cur.Analysis = rec.Analysis
	cur.Degraded = rec.Degraded
	cur.NormalizePath = rec.NormalizePath
	return nil
}

type memIndex struct {
	docs      map[string]es.IndexDoc
	searchErr error
	deleted   []string
}

func newMemIndex() *memIndex { return &memIndex{docs: map[string]es.IndexDoc{}} }

func (x *memIndex) Store(_ context.Context, doc es.IndexDoc) error {
	x.docs[doc.DocID] = doc
	return nil
}

func (x *memIndex) DeleteByDocID(_ context.Context, docID string) error {
	x.deleted = append(x.deleted, docID)
	delete(x.docs, docID)
	return nil
}

func (x *memIndex) Search(_ context.Context, userID, query string, _ int) ([]types.SearchHit, error) {
	if x.searchErr != nil {
		return nil, x.searchErr
	}
	var hits []types.SearchHit
	for id, d := range x.docs {
		if d.UserID == userID && strings.Contains(strings.Join(d.Risks, " "), query) {
			hits = append(hits, types.SearchHit{DocID: id, Score: 1})
		}
	}
	return hits, nil
}

type stubAnalyzer struct {
	contractType string
	result       types.ContractAnalysis
	path         normalize.Path
	err          error
	calls        int
	// 按合同文本覆盖 result
	byText map[string]types.ContractAnalysis
}

func (a *stubAnalyzer) DetectContractType(context.Context, string) (string, error) {
	return a.contractType, nil
}

func (a *stubAnalyzer) Analyze(_ context.Context, text string, _ types.Tier, _ string) (types.ContractAnalysis, normalize.Report, error) {
	a.calls++
	if a.err != nil {
		return types.SentinelAnalysis(), normalize.Report{Path: normalize.PathSentinel}, a.err
	}
	if r, ok := a.byText[text]; ok {
		if r.IsDegraded() {
			return r, normalize.Report{Path: normalize.PathSentinel}, nil
		}
		return r, normalize.Report{Path: normalize.PathStrict}, nil
	}
	return a.result, normalize.Report{Path: a.path}, nil
}

type stubExtractor struct {
	text string
	err  error
}

func (e stubExtractor) Extract(_ context.Context, r io.Reader, _ string) (string, error) {
	_, _ = io.ReadAll(r)
	return e.text, e.err
}

func goodAnalysis() types.ContractAnalysis {
	score := 81.0
	return types.ContractAnalysis{
		Risks:         []types.Risk{{Description: "Auto renewal", Explanation: "Renews yearly"}},
		Opportunities: []types.Opportunity{},
		Summary:       "Annual SaaS subscription",
		OverallScore:  &score,
	}
}

func fileHeader(t *testing.T, name, content string) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	w.Close()
	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	return form.File["file"][0]
}

func TestUploadStoresAnalysis(t *testing.T) {
	store, index := newMemStore(), newMemIndex()
	an := &stubAnalyzer{contractType: "Software License Agreement", result: goodAnalysis(), path: normalize.PathStrict}
	svc := NewContractService(store, index, an, stubExtractor{text: "License terms..."})

	detail, err := svc.Upload(context.Background(), "u1", fileHeader(t, "saas.pdf", "%PDF-1.4"), types.TierFree)
	if err != nil {
		t.Fatal(err)
	}
	if detail.ID == "" || detail.FileName != "saas.pdf" || detail.ContractType != "Software License Agreement" {
		t.Fatalf("detail=%+v", detail.ContractRow)
	}
	if detail.ScoreBadge != types.BadgeFavorable || detail.Degraded {
		t.Fatalf("row=%+v", detail.ContractRow)
	}
	rec, err := store.GetByID(context.Background(), "u1", detail.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.ContractText != "License terms..." || rec.NormalizePath != "strict" {
		t.Fatalf("rec=%+v", rec)
	}
	if _, ok := index.docs[detail.ID]; !ok {
		t.Fatal("analysis was not indexed")
	}
}

func TestUploadEmptyDocumentRejected(t *testing.T) {
	svc := NewContractService(newMemStore(), nil, &stubAnalyzer{}, stubExtractor{err: parser.ErrNoText})
	_, err := svc.Upload(context.Background(), "u1", fileHeader(t, "scan.pdf", "%PDF"), types.TierFree)
	if !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("err=%v", err)
	}
}

func TestAnalyzeTextWhitespaceOnlyRejected(t *testing.T) {
	an := &stubAnalyzer{}
	svc := NewContractService(newMemStore(), nil, an, nil)
	if _, err := svc.AnalyzeText(context.Background(), "u1", "a.txt", " \n\x00\t ", types.TierFree); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("err=%v", err)
	}
	if an.calls != 0 {
		t.Fatal("model must not be called for an empty document")
	}
}

func TestAnalyzeTextModelFailureStoresDegradedRecord(t *testing.T) {
	store := newMemStore()
	an := &stubAnalyzer{contractType: types.UnknownContractType, err: errors.New("status code: 503")}
	svc := NewContractService(store, nil, an, nil)

	detail, err := svc.AnalyzeText(context.Background(), "u1", "nda.txt", "Confidential information...", types.TierPremium)
	if err != nil {
		t.Fatalf("transport failure must not fail the upload: %v", err)
	}
	if !detail.Degraded || detail.Analysis.Summary != types.SentinelSummary || detail.ScoreBadge != types.BadgeUnscored {
		t.Fatalf("detail=%+v", detail)
	}
	if len(store.recs) != 1 {
		t.Fatalf("records=%d", len(store.recs))
	}
}

func TestGetAndDeleteAreScopedToUser(t *testing.T) {
	store, index := newMemStore(), newMemIndex()
	svc := NewContractService(store, index, &stubAnalyzer{result: goodAnalysis(), path: normalize.PathStrict}, nil)
	detail, err := svc.AnalyzeText(context.Background(), "alice", "a.txt", "text", types.TierFree)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Get(context.Background(), "bob", detail.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("bob get err=%v", err)
	}
	if err := svc.Delete(context.Background(), "bob", detail.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("bob delete err=%v", err)
	}

	got, err := svc.Get(context.Background(), "alice", detail.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Analysis.Summary != "Annual SaaS subscription" {
		t.Fatalf("analysis=%+v", got.Analysis)
	}
	if err := svc.Delete(context.Background(), "alice", detail.ID); err != nil {
		t.Fatal(err)
	}
	if len(index.deleted) != 1 || index.deleted[0] != detail.ID {
		t.Fatalf("index deletes=%v", index.deleted)
	}
}

func TestListNewestFirstWithBadges(t *testing.T) {
	store := newMemStore()
	an := &stubAnalyzer{result: goodAnalysis(), path: normalize.PathStrict}
	svc := NewContractService(store, nil, an, nil)
	ctx := context.Background()

	first, _ := svc.AnalyzeText(ctx, "u1", "first.txt", "one", types.TierFree)
	an.err = errors.New("timeout")
	second, _ := svc.AnalyzeText(ctx, "u1", "second.txt", "two", types.TierFree)
	svc.AnalyzeText(ctx, "u2", "other.txt", "three", types.TierFree)

	rows, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].ID != second.ID || rows[1].ID != first.ID {
		t.Fatalf("rows=%+v", rows)
	}
	if rows[0].ScoreBadge != types.BadgeUnscored || rows[1].ScoreBadge != types.BadgeFavorable {
		t.Fatalf("badges=%s,%s", rows[0].ScoreBadge, rows[1].ScoreBadge)
	}
}

func TestSearchUsesIndexThenFallsBack(t *testing.T) {
	store, index := newMemStore(), newMemIndex()
	svc := NewContractService(store, index, &stubAnalyzer{result: goodAnalysis(), path: normalize.PathStrict}, nil)
	ctx := context.Background()
	detail, _ := svc.AnalyzeText(ctx, "u1", "saas.txt", "text", types.TierFree)

	rows, err := svc.Search(ctx, "u1", "Auto renewal")
	if err != nil || len(rows) != 1 || rows[0].ID != detail.ID {
		t.Fatalf("rows=%+v err=%v", rows, err)
	}

	index.searchErr = errors.New("connection refused")
	rows, err = svc.Search(ctx, "u1", "saas subscription")
	if err != nil || len(rows) != 1 {
		t.Fatalf("fallback rows=%+v err=%v", rows, err)
	}

	if _, err := svc.Search(ctx, "u1", "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("err=%v", err)
	}
}

func TestReanalyzeDegraded(t *testing.T) {
	store := newMemStore()
	an := &stubAnalyzer{contractType: "Lease Agreement", err: errors.New("status code: 500")}
	svc := NewContractService(store, nil, an, nil)
	ctx := context.Background()

	detail, err := svc.AnalyzeText(ctx, "u1", "lease.txt", "lease text", types.TierFree)
	if err != nil || !detail.Degraded {
		t.Fatalf("detail=%+v err=%v", detail, err)
	}

	// 仍然失败时不改动
	n, err := svc.ReanalyzeDegraded(ctx, 10)
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v", n, err)
	}

	// 模型恢复后但结果仍是兜底记录，也不更新
	an.err = nil
	an.result = types.SentinelAnalysis()
	an.path = normalize.PathSentinel
	if n, _ := svc.ReanalyzeDegraded(ctx, 10); n != 0 {
		t.Fatalf("n=%d want 0 for degraded result", n)
	}

	an.result = goodAnalysis()
	an.path = normalize.PathStrict
	n, err = svc.ReanalyzeDegraded(ctx, 10)
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	got, err := svc.Get(ctx, "u1", detail.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Degraded || got.Analysis.Summary != "Annual SaaS subscription" || got.ScoreBadge != types.BadgeFavorable {
		t.Fatalf("got=%+v", got)
	}
}

func TestReanalyzeDegradedRotatesPastHopelessRecords(t *testing.T) {
	store := newMemStore()
	an := &stubAnalyzer{contractType: "Lease Agreement", err: errors.New("status code: 503")}
	svc := NewContractService(store, nil, an, nil)
	ctx := context.Background()

	// 先上传的三条永远得不到有效结果，最后一条在模型恢复后可以修复
	var hopeless []string
	for _, text := range []string{"menu", "poem", "receipt"} {
		d, err := svc.AnalyzeText(ctx, "u1", text+".txt", text, types.TierFree)
		if err != nil || !d.Degraded {
			t.Fatalf("detail=%+v err=%v", d, err)
		}
		hopeless = append(hopeless, d.ID)
	}
	lease, _ := svc.AnalyzeText(ctx, "u1", "lease.txt", "lease", types.TierFree)

	an.err = nil
	an.result = goodAnalysis()
	an.path = normalize.PathStrict
	an.byText = map[string]types.ContractAnalysis{
		"menu":    types.SentinelAnalysis(),
		"poem":    types.SentinelAnalysis(),
		"receipt": types.SentinelAnalysis(),
	}

	// 每批只取两条，旧的降级记录不能一直占住批次
	fixed := 0
	for run := 0; run < 3 && fixed == 0; run++ {
		n, err := svc.ReanalyzeDegraded(ctx, 2)
		if err != nil {
			t.Fatal(err)
		}
		fixed += n
	}
	if fixed != 1 {
		t.Fatalf("recoverable record was not reanalyzed, fixed=%d", fixed)
	}
	got, err := svc.Get(ctx, "u1", lease.ID)
	if err != nil || got.Degraded {
		t.Fatalf("got=%+v err=%v", got, err)
	}

	// 达到上限后不再消耗模型调用
	for run := 0; run < maxReanalyzeAttempts*2; run++ {
		if _, err := svc.ReanalyzeDegraded(ctx, 2); err != nil {
			t.Fatal(err)
		}
	}
	for _, id := range hopeless {
		if rec := store.recs[id]; rec.ReanalyzeAttempts != maxReanalyzeAttempts {
			t.Fatalf("record %s attempts=%d want %d", id, rec.ReanalyzeAttempts, maxReanalyzeAttempts)
		}
	}
	before := an.calls
	if n, _ := svc.ReanalyzeDegraded(ctx, 2); n != 0 || an.calls != before {
		t.Fatalf("capped records analyzed again: n=%d calls=%d->%d", n, before, an.calls)
	}
}

func TestReanalyzeTransportFailureDoesNotCountAttempt(t *testing.T) {
	store := newMemStore()
	an := &stubAnalyzer{contractType: "Lease Agreement", err: errors.New("status code: 500")}
	svc := NewContractService(store, nil, an, nil)
	ctx := context.Background()

	d, _ := svc.AnalyzeText(ctx, "u1", "lease.txt", "lease", types.TierFree)
	for run := 0; run < maxReanalyzeAttempts+1; run++ {
		svc.ReanalyzeDegraded(ctx, 10)
	}
	rec := store.recs[d.ID]
	if rec.ReanalyzeAttempts != 0 || rec.LastReanalyzedAt == nil {
		t.Fatalf("attempts=%d last=%v", rec.ReanalyzeAttempts, rec.LastReanalyzedAt)
	}
}
