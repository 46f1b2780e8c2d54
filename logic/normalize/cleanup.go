package normalize

import (
	"regexp"
	"strings"
)

// 匹配开头的 ```json / ``` 以及结尾的 ```，文本中任意位置都会被去掉
var fenceRe = regexp.MustCompile("(?i)```(?:json)?[ \\t]*\\r?\\n?|\\r?\\n?```")

func cleanup(raw string) string {
	s := strings.TrimPrefix(raw, "\uFEFF")
	s = fenceRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// narrowToObject 取第一个 { 到最后一个 } 之间的内容，去掉前后的说明文字
func narrowToObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end > start {
		return s[start : end+1]
	}
	return s
}
