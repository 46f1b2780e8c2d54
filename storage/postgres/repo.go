package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// 列表页不需要全文和 jsonb
var rowColumns = []string{
	"id", "user_id", "file_name", "contract_type", "tier",
	"summary", "overall_score", "degraded", "normalize_path", "created_at", "updated_at",
}

// ContractRepo 封装对 contract_analyses 表的所有操作，按 user_id 隔离
type ContractRepo struct {
	db *gorm.DB
}

// NewContractRepo 构造函数
func NewContractRepo(db *gorm.DB) *ContractRepo {
	return &ContractRepo{db: db}
}

// Create 创建新记录
func (r *ContractRepo) Create(ctx context.Context, rec *ContractAnalysis) error {
	// WithContext 允许你在超时的时候取消数据库操作
	return r.db.WithContext(ctx).Create(rec).Error
}

// GetByID 只能查到自己的记录，查不到返回 gorm.ErrRecordNotFound
func (r *ContractRepo) GetByID(ctx context.Context, userID, id string) (*ContractAnalysis, error) {
	var rec ContractAnalysis
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByUser 按上传时间倒序
func (r *ContractRepo) ListByUser(ctx context.Context, userID string) ([]ContractAnalysis, error) {
	var recs []ContractAnalysis
	err := r.db.WithContext(ctx).
		Select(rowColumns).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&recs).Error
	return recs, err
}

// GetByIDs 保持 ids 的顺序，查不到的直接跳过
func (r *ContractRepo) GetByIDs(ctx context.Context, userID string, ids []string) ([]ContractAnalysis, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var recs []ContractAnalysis
	err := r.db.WithContext(ctx).
		Select(rowColumns).
		Where("user_id = ? AND id IN ?", userID, ids).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	byID := make(map[string]ContractAnalysis, len(recs))
	for _, rec := range recs {
		byID[rec.ID] = rec
	}
	ordered := make([]ContractAnalysis, 0, len(recs))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			ordered = append(ordered, rec)
		}
	}
	return ordered, nil
}

// SearchByKeyword 简单的 SQL 模糊搜索，ES 没启用时兜底
func (r *ContractRepo) SearchByKeyword(ctx context.Context, userID, keyword string, limit int) ([]ContractAnalysis, error) {
	var results []ContractAnalysis
	pattern := "%" + keyword + "%"
	err := r.db.WithContext(ctx).
		Select(rowColumns).
		Where("user_id = ?", userID).
		Where("file_name ILIKE ? OR contract_type ILIKE ? OR summary ILIKE ?", pattern, pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error
	return results, err
}

// Delete 没有删到任何行时返回 gorm.ErrRecordNotFound
func (r *ContractRepo) Delete(ctx context.Context, userID, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&ContractAnalysis{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListDegraded 用于定时任务：找出重跑次数未到上限的降级记录。
// 从未重跑过的优先，其余按上次重跑时间轮转，保证每条记录都能轮到
func (r *ContractRepo) ListDegraded(ctx context.Context, limit, maxAttempts int) ([]ContractAnalysis, error) {
	var recs []ContractAnalysis
	err := r.db.WithContext(ctx).
		Where("degraded = ? AND reanalyze_attempts < ?", true, maxAttempts).
		Order("last_reanalyzed_at ASC NULLS FIRST").
		Order("created_at ASC").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}

// MarkReanalyzed 记录一次重跑。countAttempt 为 false 时（比如模型调用失败）只更新时间，不计入次数
func (r *ContractRepo) MarkReanalyzed(ctx context.Context, id string, countAttempt bool) error {
	updates := map[string]any{"last_reanalyzed_at": time.Now()}
	if countAttempt {
		updates["reanalyze_attempts"] = gorm.Expr("reanalyze_attempts + 1")
	}
	return r.db.WithContext(ctx).
		Model(&ContractAnalysis{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateAnalysis 只更新分析相关的列
func (r *ContractRepo) UpdateAnalysis(ctx context.Context, rec *ContractAnalysis) error {
	return r.db.WithContext(ctx).
		Model(&ContractAnalysis{}).
		Where("id = ?", rec.ID).
		Updates(map[string]any{
			"contract_type":  rec.ContractType,
			"summary":        rec.Summary,
			"overall_score":  rec.OverallScore,
			"analysis":       rec.Analysis,
			"degraded":       rec.Degraded,
			"normalize_path": rec.NormalizePath,
		}).Error
}
