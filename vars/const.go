package vars

import (
	"os"
	"strconv"
	"strings"

	_ "github.com/joho/godotenv/autoload"
)

// GetEnv 获取环境变量，如果不存在则返回默认值
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// GetEnvOptional 未设置时用默认值；显式设置为空字符串表示关闭该功能
func GetEnvOptional(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

// GetEnvInt 解析失败时同样返回默认值
func GetEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

const (
	// 模型名称
	QWEN7B        = "qwen2.5:7b"
	GPT4OMINI     = "gpt-4o-mini"
	GEMINI25FLASH = "gemini-2.5-flash"

	// 合同类型识别只看开头这么多字符
	TYPE_SNIPPET_RUNES = 2000
	// 送给模型的合同正文上限
	MAX_CONTRACT_RUNES = 120000
)

// 环境变量配置（支持 Docker 部署）
var (
	HTTP_ADDR = GetEnv("HTTP_ADDR", ":8080")
	APP_ENV   = GetEnv("APP_ENV", "development")

	// LLM
	LLM_PROVIDER    = GetEnv("LLM_PROVIDER", "ollama")
	OLLAMA_PATH     = GetEnv("OLLAMA_PATH", "http://localhost:11434")
	OLLAMA_MODEL    = GetEnv("OLLAMA_MODEL", QWEN7B)
	OPENAI_API_KEY  = GetEnv("OPENAI_API_KEY", "")
	OPENAI_BASE_URL = GetEnv("OPENAI_BASE_URL", "")
	OPENAI_MODEL    = GetEnv("OPENAI_MODEL", GPT4OMINI)
	GEMINI_API_KEY  = GetEnv("GEMINI_API_KEY", "")
	GEMINI_MODEL    = GetEnv("GEMINI_MODEL", GEMINI25FLASH)

	// PG
	PGUSER = GetEnv("PGUSER", "postgres")
	PGPWD  = GetEnv("PGPWD", "postgres")
	PGDB   = GetEnv("PGDB", "contract_insight")
	PGHOST = GetEnv("PGHOST", "localhost")
	PGPORT = GetEnv("PGPORT", "5432")

	// ES，ESADDR= 显式留空则不启用全文检索
	ESADDR   = GetEnvOptional("ESADDR", "http://localhost:9200")
	ES_INDEX = GetEnv("ES_INDEX", "contract_analyses_v1")

	// 定时重跑降级的分析结果，6 位 cron（含秒）
	REANALYZE_CRON = GetEnv("REANALYZE_CRON", "0 */30 * * * *")

	UPLOAD_RATE_PER_MIN = GetEnvInt("UPLOAD_RATE_PER_MIN", 10)
	MAX_UPLOAD_MB       = GetEnvInt("MAX_UPLOAD_MB", 10)
)
