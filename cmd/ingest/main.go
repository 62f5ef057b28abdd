// Package main 提供附件摄取 Worker 的进程入口：拉取存储通知并逐条执行摄取流水线。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kratos/kratos/v2/log"
	_ "go.uber.org/automaxprocs"

	"github.com/bionicotaku/attachment-ingest/internal/infrastructure/configloader"
	"github.com/bionicotaku/attachment-ingest/internal/tasks/uploads"
)

type ingestApp struct {
	Runner *uploads.Runner
	Logger log.Logger
}

func newIngestApp(logger log.Logger, runner *uploads.Runner) (*ingestApp, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	return &ingestApp{Runner: runner, Logger: logger}, nil
}

func main() {
	ctx := context.Background()

	confFlag := flag.String("conf", "", "config path or directory, eg: -conf configs/config.yaml")
	flag.Parse()

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := wireIngest(runCtx, configloader.Params{ConfPath: *confFlag})
	if err != nil {
		panic(err)
	}
	defer cleanup()

	helper := log.NewHelper(app.Logger)
	helper.Info("starting attachment ingest runner")

	if err := app.Runner.Run(runCtx); err != nil {
		helper.Errorf("ingest runner stopped unexpectedly: %v", err)
		cleanup()
		os.Exit(1)
	}
	helper.Info("attachment ingest runner stopped")
}
