package parser

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	einoparser "github.com/cloudwego/eino/components/document/parser"
	"github.com/cloudwego/eino/schema"
)

type pagesParser struct {
	pages []string
	err   error
	uri   string
}

func (p *pagesParser) Parse(_ context.Context, r io.Reader, opts ...einoparser.Option) ([]*schema.Document, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.uri = einoparser.GetCommonOptions(nil, opts...).URI
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	docs := make([]*schema.Document, 0, len(p.pages))
	for _, c := range p.pages {
		docs = append(docs, &schema.Document{Content: c})
	}
	return docs, nil
}

func TestExtractJoinsCleanPages(t *testing.T) {
	fp := &pagesParser{pages: []string{"  Lease\x00 Agreement ", "", "Rent:   1000  USD"}}
	text, err := NewExtractor(fp).Extract(context.Background(), strings.NewReader("%PDF"), "lease.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if text != "Lease Agreement\nRent: 1000 USD" {
		t.Fatalf("text=%q", text)
	}
	if fp.uri != "lease.pdf" {
		t.Fatalf("uri=%q", fp.uri)
	}
}

func TestExtractEmptyDocument(t *testing.T) {
	_, err := NewExtractor(&pagesParser{pages: []string{" ", "\x00"}}).Extract(context.Background(), strings.NewReader(""), "scan.pdf")
	if !errors.Is(err, ErrNoText) {
		t.Fatalf("err=%v want ErrNoText", err)
	}
}

func TestExtractParserError(t *testing.T) {
	_, err := NewExtractor(&pagesParser{err: errors.New("bad xref")}).Extract(context.Background(), strings.NewReader(""), "x.pdf")
	if err == nil || errors.Is(err, ErrNoText) {
		t.Fatalf("err=%v", err)
	}
}
