package processors

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

var (
	// 控制字符（保留 \t \n \r）
	controlRe = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	// 连续的空格和制表符
	spaceRunRe = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	// 三个以上的空行压成一个
	blankLinesRe = regexp.MustCompile(`\n\s*\n(\s*\n)+`)
)

// CleanText 清洗 PDF 提取出来的文本，保留换行，方便模型识别条款结构
func CleanText(text string) string {
	// 移除无效的 UTF-8 字符
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = controlRe.ReplaceAllString(text, "")
	text = spaceRunRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	text = strings.Join(lines, "\n")
	text = blankLinesRe.ReplaceAllString(text, "\n\n")

	// 去除首尾空白
	return strings.TrimSpace(text)
}

// Processor 逐个清洗文档，空文档直接丢弃
func Processor(ctx context.Context, src []*schema.Document) ([]*schema.Document, error) {
	var cleanDocs []*schema.Document
	for _, doc := range src {
		if doc == nil {
			continue
		}
		content := CleanText(doc.Content)
		if content == "" {
			zap.L().Warn("found empty document, skipping", zap.String("id", doc.ID))
			continue
		}
		doc.Content = content
		cleanDocs = append(cleanDocs, doc)
	}
	return cleanDocs, nil
}
