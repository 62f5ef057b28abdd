package gcs

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"google.golang.org/api/option"

	"github.com/bionicotaku/attachment-ingest/internal/infrastructure/configloader"
)

// ProviderSet 暴露 GCS 相关依赖。
var ProviderSet = wire.NewSet(ProvideStorageClient, ProvideURLSigner, NewGateway)

// ProvideStorageClient 创建 storage.Client，并返回关闭函数。
func ProvideStorageClient(ctx context.Context, cfg configloader.GCSConfig) (*storage.Client, func(), error) {
	var opts []option.ClientOption
	if cfg.EmulatorEndpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.EmulatorEndpoint), option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("gcs: new storage client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideURLSigner 供 Wire 注入使用。
func ProvideURLSigner(ctx context.Context, cfg configloader.GCSConfig, logger log.Logger) (*URLSigner, error) {
	scheme := storage.SigningSchemeV2
	if cfg.SignedURLScheme == configloader.SignedURLSchemeV4 {
		scheme = storage.SigningSchemeV4
	}
	return NewURLSigner(ctx, cfg.SignerServiceAccount, logger,
		WithScheme(scheme),
		WithExpiry(cfg.SignedURLExpiry),
	)
}
