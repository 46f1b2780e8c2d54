package loaders

import (
	"context"
	"contract-insight/logic/ingestion/processors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"
)

// NewFileLoader 本地文件加载器：.pdf 走 pdf 解析器，其余按纯文本读取
func NewFileLoader(ctx context.Context) (document.Loader, error) {
	pdfParser, err := pdf.NewPDFParser(ctx, &pdf.Config{ToPages: false})
	if err != nil {
		return nil, fmt.Errorf("create pdf parser failed: %w", err)
	}
	extParser, err := parser.NewExtParser(ctx, &parser.ExtParserConfig{
		Parsers:        map[string]parser.Parser{".pdf": pdfParser},
		FallbackParser: parser.TextParser{},
	})
	if err != nil {
		return nil, fmt.Errorf("create ext parser failed: %w", err)
	}
	return file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      extParser,
	})
}

// LoadFile 读取本地合同文件并返回清洗后的全文
func LoadFile(ctx context.Context, path string) (string, error) {
	loader, err := NewFileLoader(ctx)
	if err != nil {
		return "", err
	}
	docs, err := loader.Load(ctx, document.Source{URI: path})
	if err != nil {
		return "", fmt.Errorf("load %s failed: %w", path, err)
	}
	docs, _ = processors.Processor(ctx, docs)
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	return strings.Join(parts, "\n"), nil
}
