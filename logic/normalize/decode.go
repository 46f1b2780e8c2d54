package normalize

import (
	"bytes"
	"contract-insight/types"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var errNotObject = errors.New("model response is not a JSON object")

// "85"、"85/100"、"85%"
var scoreTextRe = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*(?:/\s*100)?\s*%?\s*$`)

// decodeStrict 解析修复后的文本。开头必须是一个 JSON 对象，对象之后的内容被忽略；
// 每个字段独立、宽松地解码：单个字段类型不对只会让该字段缺省，不会导致整体失败。
func decodeStrict(text string, tier types.Tier) (types.ContractAnalysis, error) {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(strings.NewReader(text)).Decode(&fields); err != nil {
		return types.ContractAnalysis{}, err
	}
	if fields == nil {
		return types.ContractAnalysis{}, errNotObject
	}

	a := types.SentinelAnalysis()
	a.Risks = decodeRisks(fields["risks"], tier)
	a.Opportunities = decodeOpportunities(fields["opportunities"], tier)
	if s := decodeText(fields["summary"]); s != "" {
		a.Summary = s
	}
	a.OverallScore = decodeScore(lookup(fields, "overallScore", "overall_score"))

	if !tier.IsPremium() {
		return a, nil
	}
	a.Recommendations = decodeTextList(fields["recommendations"])
	a.KeyClauses = decodeTextList(fields["keyClauses"])
	a.LegalCompliance = decodeText(fields["legalCompliance"])
	a.NegotiationPoints = decodeTextList(fields["negotiationPoints"])
	a.ContractDuration = decodeText(fields["contractDuration"])
	a.TerminationConditions = decodeText(fields["terminationConditions"])
	a.FinancialTerms = decodeFinancialTerms(fields["financialTerms"])
	a.PerformanceMetrics = decodeTextList(fields["performanceMetrics"])
	a.SpecificClauses = decodeText(fields["specificClauses"])
	return a, nil
}

func lookup(fields map[string]json.RawMessage, keys ...string) json.RawMessage {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			return v
		}
	}
	return nil
}

// decodeEntries 解析 risks / opportunities 数组；元素是纯字符串时当作 description
func decodeEntries(raw json.RawMessage) []map[string]json.RawMessage {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	entries := make([]map[string]json.RawMessage, 0, len(items))
	for _, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err == nil && obj != nil {
			entries = append(entries, obj)
			continue
		}
		if s := decodeText(item); s != "" {
			entries = append(entries, map[string]json.RawMessage{"description": item})
		}
	}
	return entries
}

func decodeRisks(raw json.RawMessage, tier types.Tier) []types.Risk {
	entries := decodeEntries(raw)
	risks := make([]types.Risk, 0, len(entries))
	for _, e := range entries {
		r := types.Risk{
			Description: orUnknown(decodeText(lookup(e, "risk", "description"))),
			Explanation: orUnknown(decodeText(e["explanation"])),
		}
		if tier.IsPremium() {
			r.Severity = decodeLevel(e["severity"])
		}
		risks = append(risks, r)
	}
	return risks
}

func decodeOpportunities(raw json.RawMessage, tier types.Tier) []types.Opportunity {
	entries := decodeEntries(raw)
	opps := make([]types.Opportunity, 0, len(entries))
	for _, e := range entries {
		o := types.Opportunity{
			Description: orUnknown(decodeText(lookup(e, "opportunity", "description"))),
			Explanation: orUnknown(decodeText(e["explanation"])),
		}
		if tier.IsPremium() {
			o.Impact = decodeLevel(e["impact"])
		}
		opps = append(opps, o)
	}
	return opps
}

func decodeLevel(raw json.RawMessage) *types.Level {
	l, ok := types.ParseLevel(decodeText(raw))
	if !ok {
		return nil
	}
	return &l
}

// decodeScore 接受数字或 "85"、"85/100" 这样的字符串，不在 [1,100] 的视为缺省
func decodeScore(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		m := scoreTextRe.FindStringSubmatch(s)
		if m == nil {
			return nil
		}
		if v, err = strconv.ParseFloat(m[1], 64); err != nil {
			return nil
		}
	}
	if v < 1 || v > 100 {
		return nil
	}
	return &v
}

// decodeText 字符串原样返回，数字 / 布尔取字面量，对象和数组保留紧凑的 JSON 文本
func decodeText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return ""
	}
	return buf.String()
}

func decodeTextList(raw json.RawMessage) []string {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		if s := decodeText(raw); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, item := range items {
		if s := decodeText(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func decodeFinancialTerms(raw json.RawMessage) *types.FinancialTerms {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		if s := decodeText(raw); s != "" {
			return &types.FinancialTerms{Description: s}
		}
		return nil
	}
	ft := &types.FinancialTerms{
		Description: decodeText(obj["description"]),
		Details:     decodeTextList(obj["details"]),
	}
	if ft.Description == "" && len(ft.Details) == 0 {
		return nil
	}
	return ft
}

func orUnknown(s string) string {
	if s == "" {
		return types.UnknownField
	}
	return s
}
