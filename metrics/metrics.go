package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// NormalizePath 规范化走到的分支，按 tier 区分
	NormalizePath = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contract_normalize_total",
			Help: "Model responses normalized, by tier and path (strict, fallback, sentinel).",
		},
		[]string{"tier", "path"},
	)

	LLMCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contract_llm_calls_total",
			Help: "LLM calls by purpose and outcome.",
		},
		[]string{"purpose", "outcome"},
	)

	Uploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contract_uploads_total",
			Help: "Contract submissions by outcome.",
		},
		[]string{"outcome"},
	)

	Reanalyzed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contract_reanalyzed_total",
			Help: "Degraded analyses successfully re-run by the scheduled job.",
		},
	)
)

func init() {
	prometheus.MustRegister(NormalizePath, LLMCalls, Uploads, Reanalyzed)
}
