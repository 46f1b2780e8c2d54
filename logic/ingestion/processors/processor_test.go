package processors

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestCleanText(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"null bytes", "Party\x00 A", "Party A"},
		{"control chars", "Term\x07s\x1b", "Terms"},
		{"space runs", "Section   1.\t\tPayment", "Section 1. Payment"},
		{"keeps line breaks", "Clause 1\nClause 2", "Clause 1\nClause 2"},
		{"crlf", "Clause 1\r\nClause 2", "Clause 1\nClause 2"},
		{"blank line runs", "A\n\n\n\n  \nB", "A\n\nB"},
		{"invalid utf8", "Fee\xff\xfe due", "Fee due"},
		{"trim", "  \n body \n ", "body"},
		{"only whitespace", " \x00 \n\t", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanText(tc.in); got != tc.want {
				t.Fatalf("CleanText(%q)=%q want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestProcessorDropsEmptyDocuments(t *testing.T) {
	docs := []*schema.Document{
		{ID: "1", Content: " page one "},
		{ID: "2", Content: "\x00  "},
		nil,
		{ID: "3", Content: "page\x00 three"},
	}
	out, err := Processor(context.Background(), docs)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].Content != "page one" || out[1].Content != "page three" {
		t.Fatalf("out=%+v", out)
	}
}
