package types

import "time"

// UnknownContractType 无法识别合同类型时模型应返回的固定文案
const UnknownContractType = "Unknown Document Type"

// AnalyzeRequest 已经提取好文本时直接分析
type AnalyzeRequest struct {
	FileName string `json:"fileName"`
	Text     string `json:"text" binding:"required"`
	Tier     string `json:"tier"`
}

// NormalizeRequest 只跑规范化流程，不调用模型
type NormalizeRequest struct {
	Raw  string `json:"raw"`
	Tier string `json:"tier"`
}

type NormalizeResponse struct {
	Analysis ContractAnalysis `json:"analysis"`
	Path     string           `json:"path"`
	Reason   string           `json:"reason,omitempty"`
}

// ContractRow 仪表盘表格中的一行
type ContractRow struct {
	ID           string     `json:"id"`
	FileName     string     `json:"fileName"`
	ContractType string     `json:"contractType"`
	Tier         Tier       `json:"tier"`
	OverallScore *float64   `json:"overallScore,omitempty"`
	ScoreBadge   ScoreBadge `json:"scoreBadge"`
	Degraded     bool       `json:"degraded"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// ContractDetail 单份合同的完整分析结果
type ContractDetail struct {
	ContractRow
	Analysis ContractAnalysis `json:"analysis"`
}

// SearchHit 全文检索命中
type SearchHit struct {
	DocID string  `json:"docId"`
	Score float64 `json:"score"`
}
