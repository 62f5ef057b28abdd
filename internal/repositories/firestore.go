package repositories

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/api/option"
	"google.golang.org/grpc"

	"github.com/bionicotaku/attachment-ingest/internal/infrastructure/configloader"
)

// ProvideFirestoreClient 创建 Firestore 客户端；设置 FIRESTORE_EMULATOR_HOST 时 SDK 自动连接模拟器。
func ProvideFirestoreClient(ctx context.Context, cfg configloader.FirestoreConfig) (*firestore.Client, func(), error) {
	opts := []option.ClientOption{
		option.WithGRPCDialOption(grpc.WithStatsHandler(otelgrpc.NewClientHandler())),
	}
	var (
		client *firestore.Client
		err    error
	)
	if cfg.DatabaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, cfg.ProjectID, cfg.DatabaseID, opts...)
	} else {
		client, err = firestore.NewClient(ctx, cfg.ProjectID, opts...)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("firestore: new client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}
