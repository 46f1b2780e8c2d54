package service

import (
	"context"
	"contract-insight/logic/ingestion/parser"
	"contract-insight/logic/ingestion/processors"
	"contract-insight/logic/normalize"
	"contract-insight/metrics"
	"contract-insight/storage/es"
	"contract-insight/storage/postgres"
	"contract-insight/types"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("contract not found")
	ErrEmptyDocument = errors.New("document contains no text")
	ErrEmptyQuery    = errors.New("search query is empty")
)

const (
	searchTopK = 20
	// 模型连续给出降级结果达到这个次数后，定时任务不再重跑该记录
	maxReanalyzeAttempts = 5
)

// Store 持久化层，postgres.ContractRepo 实现
type Store interface {
	Create(ctx context.Context, rec *postgres.ContractAnalysis) error
	GetByID(ctx context.Context, userID, id string) (*postgres.ContractAnalysis, error)
	GetByIDs(ctx context.Context, userID string, ids []string) ([]postgres.ContractAnalysis, error)
	ListByUser(ctx context.Context, userID string) ([]postgres.ContractAnalysis, error)
	SearchByKeyword(ctx context.Context, userID, keyword string, limit int) ([]postgres.ContractAnalysis, error)
	Delete(ctx context.Context, userID, id string) error
	ListDegraded(ctx context.Context, limit, maxAttempts int) ([]postgres.ContractAnalysis, error)
	MarkReanalyzed(ctx context.Context, id string, countAttempt bool) error
	UpdateAnalysis(ctx context.Context, rec *postgres.ContractAnalysis) error
}

// SearchIndex 全文检索，es.ESIndexer 实现；可以为 nil
type SearchIndex interface {
	Store(ctx context.Context, doc es.IndexDoc) error
	DeleteByDocID(ctx context.Context, docID string) error
	Search(ctx context.Context, userID, query string, topK int) ([]types.SearchHit, error)
}

type Analyzer interface {
	DetectContractType(ctx context.Context, text string) (string, error)
	Analyze(ctx context.Context, text string, tier types.Tier, contractType string) (types.ContractAnalysis, normalize.Report, error)
}

type Extractor interface {
	Extract(ctx context.Context, r io.Reader, fileName string) (string, error)
}

type ContractService struct {
	store     Store
	index     SearchIndex
	analyzer  Analyzer
	extractor Extractor
}

// 构造函数：依赖注入。index 传 nil 表示不启用 ES
func NewContractService(store Store, index SearchIndex, analyzer Analyzer, extractor Extractor) *ContractService {
	return &ContractService{
		store:     store,
		index:     index,
		analyzer:  analyzer,
		extractor: extractor,
	}
}

// Upload 解析 PDF 后走 AnalyzeText
func (s *ContractService) Upload(ctx context.Context, userID string, fileHeader *multipart.FileHeader, tier types.Tier) (*types.ContractDetail, error) {
	src, err := fileHeader.Open()
	if err != nil {
		metrics.Uploads.WithLabelValues("error").Inc()
		return nil, err
	}
	defer src.Close()

	text, err := s.extractor.Extract(ctx, src, fileHeader.Filename)
	if err != nil {
		if errors.Is(err, parser.ErrNoText) {
			metrics.Uploads.WithLabelValues("rejected").Inc()
			return nil, ErrEmptyDocument
		}
		metrics.Uploads.WithLabelValues("error").Inc()
		return nil, err
	}
	return s.AnalyzeText(ctx, userID, fileHeader.Filename, text, tier)
}

// AnalyzeText 模型调用失败不会让上传失败，而是保存一条降级记录，由定时任务重跑
func (s *ContractService) AnalyzeText(ctx context.Context, userID, fileName, text string, tier types.Tier) (*types.ContractDetail, error) {
	text = processors.CleanText(text)
	if text == "" {
		metrics.Uploads.WithLabelValues("rejected").Inc()
		return nil, ErrEmptyDocument
	}
	if strings.TrimSpace(fileName) == "" {
		fileName = "untitled"
	}

	log := zap.L().With(zap.String("user_id", userID), zap.String("file", fileName), zap.String("tier", string(tier)))

	contractType, err := s.analyzer.DetectContractType(ctx, text)
	if err != nil {
		log.Warn("detect contract type failed", zap.Error(err))
	}

	analysis, report, err := s.analyzer.Analyze(ctx, text, tier, contractType)
	if err != nil {
		log.Error("analyze contract failed, storing degraded record", zap.Error(err))
	}

	rec := &postgres.ContractAnalysis{
		ID:           uuid.NewString(),
		UserID:       userID,
		FileName:     fileName,
		ContractText: text,
		ContractType: contractType,
		Tier:         string(tier),
	}
	if err := rec.SetAnalysis(analysis, string(report.Path)); err != nil {
		metrics.Uploads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	if err := s.store.Create(ctx, rec); err != nil {
		metrics.Uploads.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("save analysis: %w", err)
	}

	row := rec.Row()
	s.indexAnalysis(ctx, row, userID, analysis)

	outcome := "ok"
	if rec.Degraded {
		outcome = "degraded"
	}
	metrics.Uploads.WithLabelValues(outcome).Inc()
	log.Info("contract analyzed",
		zap.String("id", rec.ID),
		zap.String("contract_type", contractType),
		zap.String("path", string(report.Path)),
		zap.Bool("degraded", rec.Degraded))

	return &types.ContractDetail{ContractRow: row, Analysis: analysis}, nil
}

func (s *ContractService) Get(ctx context.Context, userID, id string) (*types.ContractDetail, error) {
	rec, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	analysis, err := rec.Decode()
	if err != nil {
		zap.L().Warn("stored analysis is not valid json", zap.String("id", id), zap.Error(err))
	}
	return &types.ContractDetail{ContractRow: rec.Row(), Analysis: analysis}, nil
}

// List 仪表盘列表，按上传时间倒序
func (s *ContractService) List(ctx context.Context, userID string) ([]types.ContractRow, error) {
	recs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toRows(recs), nil
}

func (s *ContractService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return mapNotFound(err)
	}
	if s.index != nil {
		if err := s.index.DeleteByDocID(ctx, id); err != nil {
			zap.L().Warn("delete from search index failed", zap.String("id", id), zap.Error(err))
		}
	}
	return nil
}

// Search 优先走 ES，ES 不可用时退回数据库模糊查询
func (s *ContractService) Search(ctx context.Context, userID, query string) ([]types.ContractRow, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	if s.index != nil {
		hits, err := s.index.Search(ctx, userID, query, searchTopK)
		if err == nil {
			ids := make([]string, 0, len(hits))
			for _, h := range hits {
				ids = append(ids, h.DocID)
			}
			recs, err := s.store.GetByIDs(ctx, userID, ids)
			if err != nil {
				return nil, err
			}
			return toRows(recs), nil
		}
		zap.L().Warn("es search failed, falling back to database", zap.Error(err))
	}

	recs, err := s.store.SearchByKeyword(ctx, userID, query, searchTopK)
	if err != nil {
		return nil, err
	}
	return toRows(recs), nil
}

// ReanalyzeDegraded 重跑降级记录。新结果仍然降级时保留原记录不动，只记一次重跑
func (s *ContractService) ReanalyzeDegraded(ctx context.Context, limit int) (int, error) {
	recs, err := s.store.ListDegraded(ctx, limit, maxReanalyzeAttempts)
	if err != nil {
		return 0, err
	}

	fixed := 0
	for i := range recs {
		if ctx.Err() != nil {
			return fixed, ctx.Err()
		}
		rec := &recs[i]
		if rec.ContractText == "" {
			s.markReanalyzed(ctx, rec.ID, true)
			continue
		}
		log := zap.L().With(zap.String("id", rec.ID))

		tier := types.ParseTier(rec.Tier)
		if rec.ContractType == "" || rec.ContractType == types.UnknownContractType {
			if ct, err := s.analyzer.DetectContractType(ctx, rec.ContractText); err == nil {
				rec.ContractType = ct
			}
		}
		analysis, report, err := s.analyzer.Analyze(ctx, rec.ContractText, tier, rec.ContractType)
		if err != nil {
			log.Warn("reanalyze failed", zap.Error(err))
			s.markReanalyzed(ctx, rec.ID, false)
			continue
		}
		if analysis.IsDegraded() {
			log.Info("reanalyze still degraded",
				zap.String("path", string(report.Path)),
				zap.Int("attempts", rec.ReanalyzeAttempts+1))
			s.markReanalyzed(ctx, rec.ID, true)
			continue
		}

		if err := rec.SetAnalysis(analysis, string(report.Path)); err != nil {
			log.Warn("encode analysis failed", zap.Error(err))
			continue
		}
		if err := s.store.UpdateAnalysis(ctx, rec); err != nil {
			log.Error("update analysis failed", zap.Error(err))
			continue
		}
		s.indexAnalysis(ctx, rec.Row(), rec.UserID, analysis)
		metrics.Reanalyzed.Inc()
		fixed++
	}
	return fixed, nil
}

func (s *ContractService) markReanalyzed(ctx context.Context, id string, countAttempt bool) {
	if err := s.store.MarkReanalyzed(ctx, id, countAttempt); err != nil {
		zap.L().Warn("mark reanalyzed failed", zap.String("id", id), zap.Error(err))
	}
}

// indexAnalysis ES 写入失败只记日志，数据库是权威数据
func (s *ContractService) indexAnalysis(ctx context.Context, row types.ContractRow, userID string, a types.ContractAnalysis) {
	if s.index == nil {
		return
	}
	if err := s.index.Store(ctx, es.NewIndexDoc(row, userID, a)); err != nil {
		zap.L().Warn("index analysis failed", zap.String("id", row.ID), zap.Error(err))
	}
}

func toRows(recs []postgres.ContractAnalysis) []types.ContractRow {
	rows := make([]types.ContractRow, 0, len(recs))
	for i := range recs {
		rows = append(rows, recs[i].Row())
	}
	return rows
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
