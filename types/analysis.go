package types

import "strings"

// SentinelSummary 分析完全失败时写入 summary 的固定文案
const SentinelSummary = "Error analyzing contract"

// UnknownField fallback 提取时字段缺失的占位值
const UnknownField = "Unknown"

// Tier 分析深度
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// ParseTier unknown values fall back to the free tier.
func ParseTier(s string) Tier {
	if strings.EqualFold(strings.TrimSpace(s), string(TierPremium)) {
		return TierPremium
	}
	return TierFree
}

func (t Tier) IsPremium() bool {
	return t == TierPremium
}

// Level severity / impact 等级
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// ParseLevel 大小写不敏感，无法识别时返回 false
func ParseLevel(s string) (Level, bool) {
	switch Level(strings.ToLower(strings.TrimSpace(s))) {
	case LevelLow:
		return LevelLow, true
	case LevelMedium:
		return LevelMedium, true
	case LevelHigh:
		return LevelHigh, true
	}
	return "", false
}

type Risk struct {
	Description string `json:"description" jsonschema:"description=Risk description,required"`
	Explanation string `json:"explanation" jsonschema:"description=Brief explanation,required"`
	Severity    *Level `json:"severity,omitempty" jsonschema:"enum=low,enum=medium,enum=high"`
}

type Opportunity struct {
	Description string `json:"description" jsonschema:"description=Opportunity description,required"`
	Explanation string `json:"explanation" jsonschema:"description=Brief explanation,required"`
	Impact      *Level `json:"impact,omitempty" jsonschema:"enum=low,enum=medium,enum=high"`
}

type FinancialTerms struct {
	Description string   `json:"description" jsonschema:"description=Overview of financial terms"`
	Details     []string `json:"details,omitempty"`
}

// ContractAnalysis 模型输出经过规范化之后的结构
// Risks / Opportunities 永远不为 nil，序列化后是 []
type ContractAnalysis struct {
	Risks         []Risk        `json:"risks" jsonschema:"description=Potential risks for the party receiving the contract,required"`
	Opportunities []Opportunity `json:"opportunities" jsonschema:"description=Potential opportunities or benefits for the receiving party,required"`
	Summary       string        `json:"summary" jsonschema:"description=Summary of the contract,required"`
	OverallScore  *float64      `json:"overallScore,omitempty" jsonschema:"description=Overall favorability from 1 to 100,minimum=1,maximum=100"`

	// premium only
	Recommendations       []string        `json:"recommendations,omitempty" jsonschema:"description=Recommendations for improving the contract"`
	KeyClauses            []string        `json:"keyClauses,omitempty"`
	LegalCompliance       string          `json:"legalCompliance,omitempty" jsonschema:"description=Assessment of legal compliance"`
	NegotiationPoints     []string        `json:"negotiationPoints,omitempty"`
	ContractDuration      string          `json:"contractDuration,omitempty"`
	TerminationConditions string          `json:"terminationConditions,omitempty"`
	FinancialTerms        *FinancialTerms `json:"financialTerms,omitempty"`
	PerformanceMetrics    []string        `json:"performanceMetrics,omitempty"`
	SpecificClauses       string          `json:"specificClauses,omitempty" jsonschema:"description=Summary of clauses specific to this contract type"`
}

// PremiumFields JSON keys only requested from the premium tier.
var PremiumFields = []string{
	"recommendations",
	"keyClauses",
	"legalCompliance",
	"negotiationPoints",
	"contractDuration",
	"terminationConditions",
	"financialTerms",
	"performanceMetrics",
	"specificClauses",
}

// SentinelAnalysis 兜底记录
func SentinelAnalysis() ContractAnalysis {
	return ContractAnalysis{
		Risks:         []Risk{},
		Opportunities: []Opportunity{},
		Summary:       SentinelSummary,
	}
}

// IsDegraded reports whether no summary could be recovered.
func (a ContractAnalysis) IsDegraded() bool {
	return a.Summary == "" || a.Summary == SentinelSummary
}

// ScoreBadge 仪表盘上分数徽章的颜色分类
type ScoreBadge string

const (
	BadgeFavorable   ScoreBadge = "favorable"
	BadgeNeutral     ScoreBadge = "neutral"
	BadgeUnfavorable ScoreBadge = "unfavorable"
	BadgeUnscored    ScoreBadge = "unscored"
)

// BadgeFor >75 favorable, <50 unfavorable, otherwise neutral. A missing score is unscored, not zero.
func BadgeFor(score *float64) ScoreBadge {
	if score == nil {
		return BadgeUnscored
	}
	switch {
	case *score > 75:
		return BadgeFavorable
	case *score < 50:
		return BadgeUnfavorable
	default:
		return BadgeNeutral
	}
}
