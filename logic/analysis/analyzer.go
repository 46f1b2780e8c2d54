package analysis

import (
	"bytes"
	"context"
	"contract-insight/logic/normalize"
	"contract-insight/metrics"
	"contract-insight/types"
	"contract-insight/vars"
	"fmt"
	"strings"
	"text/template"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

var (
	typeTmpl    = template.Must(template.New("type").Parse(vars.CONTRACT_TYPE_PROMPT))
	freeTmpl    = template.Must(template.New("free").Parse(vars.FREE_ANALYSIS_PROMPT))
	premiumTmpl = template.Must(template.New("premium").Parse(vars.PREMIUM_ANALYSIS_PROMPT))
)

// 类型名超过这个长度基本可以认定模型没按要求回答
const maxTypeNameRunes = 80

// Analyzer 负责和模型交互：识别合同类型、生成分析并规范化
type Analyzer struct {
	model    model.BaseChatModel
	maxRunes int
}

func NewAnalyzer(m model.BaseChatModel) *Analyzer {
	return &Analyzer{model: m, maxRunes: vars.MAX_CONTRACT_RUNES}
}

// DetectContractType 只把开头一段发给模型。模型调用失败时返回 Unknown Document Type 和错误
func (a *Analyzer) DetectContractType(ctx context.Context, text string) (string, error) {
	var buf bytes.Buffer
	if err := typeTmpl.Execute(&buf, map[string]string{
		"Content": truncateRunes(text, vars.TYPE_SNIPPET_RUNES),
	}); err != nil {
		return types.UnknownContractType, err
	}

	resp, err := a.model.Generate(ctx, []*schema.Message{schema.UserMessage(buf.String())})
	if err != nil {
		metrics.LLMCalls.WithLabelValues("detect_type", "error").Inc()
		return types.UnknownContractType, fmt.Errorf("detect contract type: %w", err)
	}
	metrics.LLMCalls.WithLabelValues("detect_type", "ok").Inc()
	return cleanTypeName(resp.Content), nil
}

// Analyze 返回的 error 只表示模型调用失败；模型回了什么都不会报错，由 normalize 兜底
func (a *Analyzer) Analyze(ctx context.Context, text string, tier types.Tier, contractType string) (types.ContractAnalysis, normalize.Report, error) {
	prompt, err := renderAnalysisPrompt(tier, contractType, truncateRunes(text, a.maxRunes))
	if err != nil {
		return types.SentinelAnalysis(), normalize.Report{Path: normalize.PathSentinel, Reason: err.Error()}, err
	}

	resp, err := a.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		metrics.LLMCalls.WithLabelValues("analyze", "error").Inc()
		return types.SentinelAnalysis(),
			normalize.Report{Path: normalize.PathSentinel, Reason: err.Error()},
			fmt.Errorf("analyze contract: %w", err)
	}
	metrics.LLMCalls.WithLabelValues("analyze", "ok").Inc()

	result, report := normalize.Inspect(resp.Content, tier)
	metrics.NormalizePath.WithLabelValues(string(tier), string(report.Path)).Inc()
	if report.Path != normalize.PathStrict {
		zap.L().Warn("model response needed recovery",
			zap.String("tier", string(tier)),
			zap.String("path", string(report.Path)),
			zap.String("reason", report.Reason),
			zap.Int("raw_bytes", len(resp.Content)))
	}
	return result, report, nil
}

func renderAnalysisPrompt(tier types.Tier, contractType, content string) (string, error) {
	if strings.TrimSpace(contractType) == "" {
		contractType = "contract"
	}
	data := map[string]any{
		"ContractType": contractType,
		"Content":      content,
		"MinItems":     5,
		"Schema":       freeSchema,
	}
	tmpl := freeTmpl
	if tier.IsPremium() {
		tmpl = premiumTmpl
		data["MinItems"] = 10
		data["Schema"] = premiumSchema
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// cleanTypeName 取第一行非空内容，去掉引号和 markdown 标记
func cleanTypeName(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		name := strings.Trim(strings.TrimSpace(line), "\"'`*#. ")
		if name == "" {
			continue
		}
		if len([]rune(name)) > maxTypeNameRunes {
			return types.UnknownContractType
		}
		return name
	}
	return types.UnknownContractType
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
