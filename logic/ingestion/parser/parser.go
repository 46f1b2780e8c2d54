package parser

import (
	"context"
	"contract-insight/logic/ingestion/processors"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoparser "github.com/cloudwego/eino/components/document/parser"
)

// ErrNoText PDF 里没有可提取的文字（比如扫描件）
var ErrNoText = errors.New("no extractable text in document")

// Extractor 把上传的文件转换成清洗过的纯文本
type Extractor struct {
	p einoparser.Parser
}

func NewExtractor(p einoparser.Parser) *Extractor {
	return &Extractor{p: p}
}

// NewPDFExtractor pdf解析器，整份文档合并成一个 Document
func NewPDFExtractor(ctx context.Context) (*Extractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: false})
	if err != nil {
		return nil, fmt.Errorf("create pdf parser failed: %w", err)
	}
	return NewExtractor(p), nil
}

func (e *Extractor) Extract(ctx context.Context, r io.Reader, fileName string) (string, error) {
	docs, err := e.p.Parse(ctx, r, einoparser.WithURI(fileName))
	if err != nil {
		return "", fmt.Errorf("parse pdf failed: %w", err)
	}

	docs, _ = processors.Processor(ctx, docs)
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		parts = append(parts, doc.Content)
	}
	text := strings.Join(parts, "\n")
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
