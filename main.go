package main

import (
	"context"
	"contract-insight/api/handler"
	"contract-insight/api/middleware"
	"contract-insight/api/router"
	"contract-insight/job"
	"contract-insight/logger"
	"contract-insight/logic/analysis"
	"contract-insight/logic/chat"
	"contract-insight/logic/ingestion/parser"
	"contract-insight/service"
	"contract-insight/storage/es"
	"contract-insight/storage/postgres"
	"contract-insight/vars"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	z := logger.Init(vars.APP_ENV)
	defer z.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. 初始化 DB
	dsn := postgres.DSN(vars.PGHOST, vars.PGUSER, vars.PGPWD, vars.PGDB, vars.PGPORT)
	db, err := postgres.InitDB(dsn, logger.Gorm(z, gormlogger.Warn))
	if err != nil {
		z.Fatal("DB connection failed", zap.Error(err))
	}
	pgRepo := postgres.NewContractRepo(db)

	// 2. 初始化 LLM Model，带重试和熔断
	baseModel, err := chat.NewChatModel(ctx, chat.EnvConfig())
	if err != nil {
		z.Fatal("create chat model failed", zap.Error(err))
	}
	chatModel := chat.Guard(baseModel, chat.DefaultGuardConfig(vars.LLM_PROVIDER))

	// 3. ES 可选
	var index service.SearchIndex
	if vars.ESADDR != "" {
		esIndexer, err := es.NewESIndexer(ctx, []string{vars.ESADDR}, vars.ES_INDEX)
		if err != nil {
			z.Warn("ES unavailable, search falls back to postgres", zap.Error(err))
		} else {
			index = esIndexer
		}
	}

	extractor, err := parser.NewPDFExtractor(ctx)
	if err != nil {
		z.Fatal("create pdf extractor failed", zap.Error(err))
	}

	// 4. 初始化 Service (业务层)
	contractSvc := service.NewContractService(pgRepo, index, analysis.NewAnalyzer(chatModel), extractor)

	// 启动定时任务
	cronJob, err := job.StartCronJob(vars.REANALYZE_CRON, contractSvc)
	if err != nil {
		z.Fatal("start cron job failed", zap.Error(err), zap.String("spec", vars.REANALYZE_CRON))
	}
	defer cronJob.Stop()

	// 5. 初始化 Handler (API 层)
	contractHandler := handler.NewContractHandler(contractSvc, vars.MAX_UPLOAD_MB)

	// 6. 启动 Web Server
	if vars.APP_ENV != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), gin.Logger())
	r.MaxMultipartMemory = int64(vars.MAX_UPLOAD_MB) << 20
	router.RegisterRoutes(r, contractHandler, middleware.NewUserRateLimiter(vars.UPLOAD_RATE_PER_MIN))

	srv := &http.Server{Addr: vars.HTTP_ADDR, Handler: r}
	go func() {
		z.Info("Starting HTTP server", zap.String("addr", vars.HTTP_ADDR), zap.String("llm", vars.LLM_PROVIDER))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			z.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	z.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		z.Error("graceful shutdown failed", zap.Error(err))
	}
}
