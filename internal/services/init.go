package services

import (
	"github.com/google/wire"

	"github.com/bionicotaku/attachment-ingest/internal/infrastructure/gcs"
	"github.com/bionicotaku/attachment-ingest/internal/infrastructure/transcoder"
	"github.com/bionicotaku/attachment-ingest/internal/repositories"
)

// ProviderSet 暴露服务层构造函数。
var ProviderSet = wire.NewSet(
	NewImageTransform,
	NewIngestionService,
	wire.Bind(new(Transcoder), new(transcoder.Engine)),
	wire.Bind(new(ObjectStore), new(*gcs.Gateway)),
	wire.Bind(new(AttachmentStore), new(*repositories.AttachmentRepository)),
)
