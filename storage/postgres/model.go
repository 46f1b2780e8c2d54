package postgres

import (
	"contract-insight/types"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// ContractAnalysis 对应数据库里的 contract_analyses 表，一次上传一行
type ContractAnalysis struct {
	// ID 不使用 gorm.Model 的自增 ID，而是手动指定的 UUID
	ID            string         `gorm:"column:id;primaryKey;type:uuid"`
	UserID        string         `gorm:"column:user_id;type:varchar(64);not null;index"`
	FileName      string         `gorm:"column:file_name;type:varchar(255);not null"`
	ContractText  string         `gorm:"column:contract_text;type:text"`
	ContractType  string         `gorm:"column:contract_type;type:varchar(100);index"`
	Tier          string         `gorm:"column:tier;type:varchar(16);not null;default:free"`
	Summary       string         `gorm:"column:summary;type:text"`
	OverallScore  *float64       `gorm:"column:overall_score;type:numeric(5,2)"` // 没有分数时为 NULL，不是 0
	Analysis      datatypes.JSON `gorm:"column:analysis;type:jsonb"`
	Degraded      bool           `gorm:"column:degraded;not null;default:false;index"`
	NormalizePath string         `gorm:"column:normalize_path;type:varchar(16)"`

	// 定时重跑：模型有返回但结果仍然降级的次数，达到上限后不再重跑
	ReanalyzeAttempts int        `gorm:"column:reanalyze_attempts;not null;default:0"`
	LastReanalyzedAt  *time.Time `gorm:"column:last_reanalyzed_at"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName 强制指定表名
func (ContractAnalysis) TableName() string {
	return "contract_analyses"
}

// SetAnalysis 同步更新 jsonb 列和冗余出来的 summary / overall_score / degraded
func (c *ContractAnalysis) SetAnalysis(a types.ContractAnalysis, path string) error {
	b, err := json.Marshal(a)
	if err != nil {
		return err
	}
	c.Analysis = datatypes.JSON(b)
	c.Summary = a.Summary
	c.OverallScore = a.OverallScore
	c.Degraded = a.IsDegraded()
	c.NormalizePath = path
	return nil
}

// Decode 取出 jsonb 里的分析结果；列为空时返回兜底记录
func (c *ContractAnalysis) Decode() (types.ContractAnalysis, error) {
	if len(c.Analysis) == 0 {
		return types.SentinelAnalysis(), nil
	}
	a := types.SentinelAnalysis()
	if err := json.Unmarshal(c.Analysis, &a); err != nil {
		return types.SentinelAnalysis(), err
	}
	if a.Risks == nil {
		a.Risks = []types.Risk{}
	}
	if a.Opportunities == nil {
		a.Opportunities = []types.Opportunity{}
	}
	return a, nil
}

func (c *ContractAnalysis) Row() types.ContractRow {
	return types.ContractRow{
		ID:           c.ID,
		FileName:     c.FileName,
		ContractType: c.ContractType,
		Tier:         types.ParseTier(c.Tier),
		OverallScore: c.OverallScore,
		ScoreBadge:   types.BadgeFor(c.OverallScore),
		Degraded:     c.Degraded,
		CreatedAt:    c.CreatedAt,
	}
}
