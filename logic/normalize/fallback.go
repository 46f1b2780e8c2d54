package normalize

import (
	"contract-insight/types"
	"regexp"
	"strconv"
	"strings"
)

// fallback 只恢复 risks、opportunities、summary 三个字段。
// overallScore 和 premium 字段即使出现在文本里也不会被提取。
var (
	risksHeadRe         = regexp.MustCompile(`"risks"\s*:\s*\[`)
	opportunitiesHeadRe = regexp.MustCompile(`"opportunities"\s*:\s*\[`)
	entryDelimRe        = regexp.MustCompile(`\}\s*,`)

	riskFieldRe        = stringFieldRe("risk", "description")
	opportunityFieldRe = stringFieldRe("opportunity", "description")
	explanationFieldRe = stringFieldRe("explanation")
	summaryFieldRe     = stringFieldRe("summary")
)

func stringFieldRe(keys ...string) *regexp.Regexp {
	return regexp.MustCompile(`"(?:` + strings.Join(keys, "|") + `)"\s*:\s*"((?:[^"\\]|\\.)*)"`)
}

func extractFallback(text string) types.ContractAnalysis {
	a := types.SentinelAnalysis()

	for _, entry := range candidateEntries(text, risksHeadRe) {
		a.Risks = append(a.Risks, types.Risk{
			Description: fieldOrUnknown(riskFieldRe, entry),
			Explanation: fieldOrUnknown(explanationFieldRe, entry),
		})
	}
	for _, entry := range candidateEntries(text, opportunitiesHeadRe) {
		a.Opportunities = append(a.Opportunities, types.Opportunity{
			Description: fieldOrUnknown(opportunityFieldRe, entry),
			Explanation: fieldOrUnknown(explanationFieldRe, entry),
		})
	}
	if m := summaryFieldRe.FindStringSubmatch(text); m != nil {
		if s := strings.TrimSpace(unescape(m[1])); s != "" {
			a.Summary = s
		}
	}
	return a
}

// candidateEntries 找到 head 之后的数组区间并按 "}," 切分
func candidateEntries(text string, head *regexp.Regexp) []string {
	loc := head.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	return splitEntries(arraySpan(text, loc[1]))
}

// arraySpan 返回从 start 开始到匹配的 ] 之前的内容；数组没有闭合（输出被截断）时一直取到文本末尾
func arraySpan(text string, start int) string {
	depth := 1
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '"':
			i = scanString(text, i) - 1
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start:i]
			}
		}
	}
	return text[start:]
}

// splitEntries 空白片段不算候选条目
func splitEntries(span string) []string {
	var entries []string
	for _, seg := range entryDelimRe.Split(span, -1) {
		if strings.TrimSpace(seg) != "" {
			entries = append(entries, seg)
		}
	}
	return entries
}

func fieldOrUnknown(re *regexp.Regexp, entry string) string {
	m := re.FindStringSubmatch(entry)
	if m == nil {
		return types.UnknownField
	}
	return unescape(m[1])
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	if u, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return u
	}
	return s
}
