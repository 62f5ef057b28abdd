package uploads

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/bionicotaku/attachment-ingest/internal/infrastructure/configloader"
	"github.com/bionicotaku/attachment-ingest/internal/services"
)

// ProviderSet 装配上传事件消费链路。
var ProviderSet = wire.NewSet(
	ProvidePubSubClient,
	ProvideSubscriber,
	ProvideDeadLetterPublisher,
	ProvideRunner,
)

// ProvidePubSubClient 创建带 otelgrpc 埋点的 Pub/Sub 客户端；配置了模拟器地址时使用明文连接。
func ProvidePubSubClient(ctx context.Context, cfg configloader.PubSubConfig) (*pubsub.Client, func(), error) {
	opts := []option.ClientOption{
		option.WithGRPCDialOption(grpc.WithStatsHandler(otelgrpc.NewClientHandler())),
	}
	if cfg.EmulatorEndpoint != "" {
		opts = append(opts,
			option.WithEndpoint(cfg.EmulatorEndpoint),
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("uploads: new pubsub client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideSubscriber 返回配置好流控参数的订阅者。
func ProvideSubscriber(client *pubsub.Client, cfg configloader.PubSubConfig) *pubsub.Subscriber {
	sub := client.Subscriber(cfg.SubscriptionID)
	if cfg.MaxOutstandingMessages > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstandingMessages
	}
	if cfg.NumGoroutines > 0 {
		sub.ReceiveSettings.NumGoroutines = cfg.NumGoroutines
	}
	return sub
}

// ProvideDeadLetterPublisher 在配置了死信主题时返回发布器，否则返回 nil。
func ProvideDeadLetterPublisher(client *pubsub.Client, cfg configloader.PubSubConfig, logger log.Logger) (*DeadLetterPublisher, func()) {
	if cfg.DeadLetterTopicID == "" {
		return nil, func() {}
	}
	dl := NewDeadLetterPublisher(client.Publisher(cfg.DeadLetterTopicID), logger)
	return dl, dl.Stop
}

// ProvideRunner 装配 Uploads Runner。
func ProvideRunner(sub *pubsub.Subscriber, svc *services.IngestionService, dl *DeadLetterPublisher, logger log.Logger) (*Runner, error) {
	params := RunnerParams{
		Subscriber: sub,
		Processor:  svc,
		Logger:     logger,
	}
	if dl != nil {
		params.Reporter = dl
	}
	return NewRunner(params)
}
