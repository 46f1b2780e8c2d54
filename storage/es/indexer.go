package es

import (
	"context"
	"contract-insight/types"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"go.uber.org/zap"
)

// mapping 全文字段用 english 分析器，过滤字段用 keyword
const mapping = `
{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "properties": {
      "doc_id":          { "type": "keyword" },
      "user_id":         { "type": "keyword" },
      "file_name":       { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "contract_type":   { "type": "text", "fields": { "keyword": { "type": "keyword" } } },
      "tier":            { "type": "keyword" },
      "summary":         { "type": "text", "analyzer": "english" },
      "risks":           { "type": "text", "analyzer": "english" },
      "opportunities":   { "type": "text", "analyzer": "english" },
      "recommendations": { "type": "text", "analyzer": "english" },
      "overall_score":   { "type": "double" },
      "degraded":        { "type": "boolean" },
      "created_at":      { "type": "date" }
    }
  }
}`

// IndexDoc 一份分析结果在 ES 里的文档，_id 就是 doc_id
type IndexDoc struct {
	DocID           string    `json:"doc_id"`
	UserID          string    `json:"user_id"`
	FileName        string    `json:"file_name"`
	ContractType    string    `json:"contract_type"`
	Tier            string    `json:"tier"`
	Summary         string    `json:"summary"`
	Risks           []string  `json:"risks"`
	Opportunities   []string  `json:"opportunities"`
	Recommendations []string  `json:"recommendations,omitempty"`
	OverallScore    *float64  `json:"overall_score,omitempty"`
	Degraded        bool      `json:"degraded"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewIndexDoc 把风险和机会拍平成 "描述: 解释" 的文本，方便 BM25 检索
func NewIndexDoc(row types.ContractRow, userID string, a types.ContractAnalysis) IndexDoc {
	doc := IndexDoc{
		DocID:           row.ID,
		UserID:          userID,
		FileName:        row.FileName,
		ContractType:    row.ContractType,
		Tier:            string(row.Tier),
		Summary:         a.Summary,
		Risks:           make([]string, 0, len(a.Risks)),
		Opportunities:   make([]string, 0, len(a.Opportunities)),
		Recommendations: a.Recommendations,
		OverallScore:    a.OverallScore,
		Degraded:        a.IsDegraded(),
		CreatedAt:       row.CreatedAt,
	}
	for _, r := range a.Risks {
		doc.Risks = append(doc.Risks, r.Description+": "+r.Explanation)
	}
	for _, o := range a.Opportunities {
		doc.Opportunities = append(doc.Opportunities, o.Description+": "+o.Explanation)
	}
	return doc
}

type ESIndexer struct {
	client *elasticsearch.Client
	index  string
}

// NewESIndexer 初始化 ES 客户端并确保索引存在
func NewESIndexer(ctx context.Context, addresses []string, indexName string) (*ESIndexer, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("error creating the client: %w", err)
	}

	indexer := &ESIndexer{client: client, index: indexName}
	if err := indexer.initMapping(ctx); err != nil {
		return nil, err
	}
	return indexer, nil
}

func (e *ESIndexer) initMapping(ctx context.Context) error {
	// 1. 检查索引是否存在
	res, err := e.client.Indices.Exists([]string{e.index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil // 已存在，跳过
	}

	// 2. 创建索引
	zap.L().Info("creating es index", zap.String("index", e.index))
	res, err = e.client.Indices.Create(
		e.index,
		e.client.Indices.Create.WithBody(strings.NewReader(mapping)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index error: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index response error: %s", res.String())
	}
	return nil
}

// Store 写入或覆盖一份分析结果
func (e *ESIndexer) Store(ctx context.Context, doc IndexDoc) error {
	req := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: doc.DocID,
		Body:       esutil.NewJSONReader(doc),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("ES index request failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ES index response error: %s", res.String())
	}
	return nil
}

func (e *ESIndexer) DeleteByDocID(ctx context.Context, docID string) error {
	// {"query": {"term": {"doc_id": "xxx"}}}
	query := map[string]any{
		"query": map[string]any{
			"term": map[string]any{
				"doc_id": docID, // 注意：doc_id 字段必须是 keyword 类型
			},
		},
	}

	res, err := e.client.DeleteByQuery(
		[]string{e.index},
		esutil.NewJSONReader(query),
		e.client.DeleteByQuery.WithContext(ctx),
		e.client.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return fmt.Errorf("ES delete request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("ES delete response error: %s", res.String())
	}

	zap.L().Debug("es documents deleted", zap.String("doc_id", docID))
	return nil
}
