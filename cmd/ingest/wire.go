//go:build wireinject
// +build wireinject

// Package main 为 ingest Worker 提供 Wire 依赖注入定义。
package main

import (
	"context"

	"github.com/google/wire"

	"github.com/bionicotaku/attachment-ingest/internal/infrastructure/configloader"
	"github.com/bionicotaku/attachment-ingest/internal/infrastructure/gcs"
	loginfra "github.com/bionicotaku/attachment-ingest/internal/infrastructure/logger"
	"github.com/bionicotaku/attachment-ingest/internal/infrastructure/telemetry"
	"github.com/bionicotaku/attachment-ingest/internal/infrastructure/transcoder"
	"github.com/bionicotaku/attachment-ingest/internal/repositories"
	"github.com/bionicotaku/attachment-ingest/internal/services"
	"github.com/bionicotaku/attachment-ingest/internal/tasks/uploads"
)

//go:generate go run github.com/google/wire/cmd/wire

func wireIngest(context.Context, configloader.Params) (*ingestApp, func(), error) {
	panic(wire.Build(
		configloader.ProviderSet,
		loginfra.ProviderSet,
		telemetry.ProviderSet,
		gcs.ProviderSet,
		repositories.ProviderSet,
		transcoder.ProvideEngine,
		services.ProviderSet,
		uploads.ProviderSet,
		newIngestApp,
	))
}
