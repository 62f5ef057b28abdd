package uploads

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/bionicotaku/attachment-ingest/internal/models/vo"
	"github.com/bionicotaku/attachment-ingest/internal/services"
)

// StageDecode 标记通知本身无法解析的失败。
const StageDecode services.Stage = "decode"

// Subscriber 抽象 Pub/Sub 拉取订阅。
type Subscriber interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Processor 处理单个上传事件并返回终态。
type Processor interface {
	Process(ctx context.Context, evt vo.UploadEvent) services.Outcome
}

// FailureReporter 接收失败终态，例如写入死信主题。
type FailureReporter interface {
	Report(ctx context.Context, evt vo.UploadEvent, out services.Outcome) error
}

// Runner 负责消费存储通知并逐条交给 Processor。
type Runner struct {
	sub       Subscriber
	processor Processor
	reporter  FailureReporter
	decoder   *eventDecoder
	log       *log.Helper
}

// RunnerParams 注入构建 Runner 所需的依赖。
type RunnerParams struct {
	Subscriber Subscriber
	Processor  Processor
	Reporter   FailureReporter
	Logger     log.Logger
}

// NewRunner 构造上传事件 Runner。
func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Subscriber == nil {
		return nil, fmt.Errorf("uploads: subscriber is required")
	}
	if params.Processor == nil {
		return nil, fmt.Errorf("uploads: processor is required")
	}
	logger := params.Logger
	if logger == nil {
		logger = log.DefaultLogger
	}
	return &Runner{
		sub:       params.Subscriber,
		processor: params.Processor,
		reporter:  params.Reporter,
		decoder:   newDecoder(),
		log:       log.NewHelper(logger),
	}, nil
}

// Run 启动消费循环，直到 ctx 结束。
func (r *Runner) Run(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.log.WithContext(ctx).Info("uploads: runner started")
	err := r.sub.Receive(ctx, r.handle)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("uploads: receive: %w", err)
	}
	r.log.WithContext(ctx).Info("uploads: runner stopped")
	return nil
}

// handle 总是确认消息；失败通过 Outcome 与死信暴露，不依赖重投。
func (r *Runner) handle(ctx context.Context, msg *pubsub.Message) {
	defer msg.Ack()

	evt, err := r.decoder.Decode(msg.Data, msg.Attributes)
	if err != nil {
		r.log.WithContext(ctx).Errorf("uploads: drop undecodable message id=%s: %v", msg.ID, err)
		r.report(ctx, vo.UploadEvent{
			Bucket:    msg.Attributes[attrBucketID],
			ObjectKey: msg.Attributes[attrObjectID],
			EventType: msg.Attributes[attrEventType],
		}, services.Outcome{Status: services.StatusFailed, Stage: StageDecode, Err: err})
		return
	}

	out := r.processor.Process(ctx, evt)
	if out.Failed() {
		r.report(ctx, evt, out)
	}
}

func (r *Runner) report(ctx context.Context, evt vo.UploadEvent, out services.Outcome) {
	if r.reporter == nil {
		return
	}
	if err := r.reporter.Report(ctx, evt, out); err != nil {
		r.log.WithContext(ctx).Warnf("uploads: dead-letter publish failed object=%s: %v", evt.ObjectKey, err)
	}
}
