package job

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// 每轮最多重跑多少条，避免一次占满模型配额
const reanalyzeBatch = 20

type Reanalyzer interface {
	ReanalyzeDegraded(ctx context.Context, limit int) (int, error)
}

// StartCronJob spec 是带秒的 6 位表达式，例如 "0 */30 * * * *"
func StartCronJob(spec string, svc Reanalyzer) (*cron.Cron, error) {
	c := cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() { runReanalyze(svc) }); err != nil {
		return nil, err
	}
	c.Start()
	zap.L().Info("cron job started", zap.String("spec", spec))
	return c, nil
}

func runReanalyze(svc Reanalyzer) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Minute)
	defer cancel()

	n, err := svc.ReanalyzeDegraded(ctx, reanalyzeBatch)
	if err != nil {
		zap.L().Error("[Cron] reanalyze degraded contracts failed", zap.Error(err))
		return
	}
	zap.L().Info("[Cron] reanalyzed degraded contracts", zap.Int("fixed", n))
}
