package logger

import (
	"log"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// Init 创建 zap logger 并替换全局实例，返回的 logger 需要在退出前 Sync
func Init(env string) *zap.Logger {
	var (
		z   *zap.Logger
		err error
	)
	if env == "development" {
		z, err = zap.NewDevelopment()
	} else {
		z, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("init zap logger failed: %v", err)
	}
	zap.ReplaceGlobals(z)
	return z
}

// Gorm 让 gorm 的日志也走 zap
func Gorm(z *zap.Logger, level gormlogger.LogLevel) gormlogger.Interface {
	return gormlogger.New(
		zap.NewStdLog(z),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
