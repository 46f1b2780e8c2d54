package es

import (
	"context"
	"contract-insight/types"
	"encoding/json"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"go.uber.org/zap"
)

// 检索的字段和权重
var searchFields = []string{"summary^3", "risks^2", "opportunities^2", "recommendations", "contract_type^2", "file_name"}

// Search BM25 检索当前用户的分析结果，按分数返回 doc_id
func (e *ESIndexer) Search(ctx context.Context, userID, query string, topK int) ([]types.SearchHit, error) {
	req := esapi.SearchRequest{
		Index: []string{e.index},
		Body:  esutil.NewJSONReader(buildSearchQuery(userID, query, topK)),
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("error getting response: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error response: %s", res.String())
	}

	hits, err := parseHits(res.Body)
	if err != nil {
		return nil, err
	}
	zap.L().Debug("es search", zap.String("query", query), zap.Int("hits", len(hits)))
	return hits, nil
}

// buildSearchQuery user_id 放在 filter 里，不参与打分
func buildSearchQuery(userID, query string, topK int) map[string]any {
	if topK <= 0 {
		topK = 10
	}
	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []map[string]any{
					{
						"multi_match": map[string]any{
							"query":  query,
							"fields": searchFields,
						},
					},
				},
				"filter": []map[string]any{
					{"term": map[string]any{"user_id": userID}},
				},
			},
		},
		"size":    topK,
		"_source": []string{"doc_id"}, // 只返回 doc_id，减少传输
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string   `json:"_id"`
			Score  *float64 `json:"_score"`
			Source struct {
				DocID string `json:"doc_id"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// parseHits 同一个 doc_id 只保留第一次出现（分数最高）
func parseHits(body io.Reader) ([]types.SearchHit, error) {
	var resp searchResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("error parsing response body: %w", err)
	}

	seen := make(map[string]struct{}, len(resp.Hits.Hits))
	hits := make([]types.SearchHit, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		docID := h.Source.DocID
		if docID == "" {
			docID = h.ID
		}
		if docID == "" {
			continue
		}
		if _, ok := seen[docID]; ok {
			continue
		}
		seen[docID] = struct{}{}
		var score float64
		if h.Score != nil {
			score = *h.Score
		}
		hits = append(hits, types.SearchHit{DocID: docID, Score: score})
	}
	return hits, nil
}
