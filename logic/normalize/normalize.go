// Package normalize 把模型返回的原始文本转换成 types.ContractAnalysis。
//
// 模型输出被当作不可信文本处理：先清洗、修复，再严格解析；
// 严格解析失败时退化为按字段的正则提取，最坏情况返回兜底记录。
// 包内没有状态，也不做任何 I/O，可以并发调用。
package normalize

import (
	"contract-insight/types"
	"fmt"
	"unicode/utf8"
)

// MaxInputBytes 超出部分在处理前被截断
const MaxInputBytes = 1 << 20

// Path 规范化最终走的分支
type Path string

const (
	PathStrict   Path = "strict"
	PathFallback Path = "fallback"
	PathSentinel Path = "sentinel"
)

// Report describes how a result was produced. Reason is diagnostic text only.
type Report struct {
	Path   Path
	Reason string
}

// Normalize never fails: on total failure it returns types.SentinelAnalysis().
func Normalize(raw string, tier types.Tier) types.ContractAnalysis {
	analysis, _ := Inspect(raw, tier)
	return analysis
}

// Inspect 同 Normalize，额外返回走了哪条分支，用于日志和指标
func Inspect(raw string, tier types.Tier) (analysis types.ContractAnalysis, report Report) {
	defer func() {
		if r := recover(); r != nil {
			analysis = types.SentinelAnalysis()
			report = Report{Path: PathSentinel, Reason: fmt.Sprintf("normalize panic: %v", r)}
		}
	}()

	cleaned := cleanup(truncate(raw, MaxInputBytes))
	candidate := narrowToObject(cleaned)
	repaired := repair(candidate)

	analysis, err := decodeStrict(repaired, tier)
	if err == nil {
		return analysis, Report{Path: PathStrict}
	}

	// fallback 在完整文本上提取，不受 narrowToObject 截断影响
	if candidate != cleaned {
		repaired = repair(cleaned)
	}
	analysis = extractFallback(repaired)
	report = Report{Path: PathFallback, Reason: err.Error()}
	if len(analysis.Risks) == 0 && len(analysis.Opportunities) == 0 && analysis.IsDegraded() {
		report.Path = PathSentinel
	}
	return analysis, report
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
