package uploads

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/bionicotaku/attachment-ingest/internal/models/vo"
	"github.com/bionicotaku/attachment-ingest/internal/services"
)

type deadLetterPayload struct {
	Bucket       string    `json:"bucket"`
	Object       string    `json:"object"`
	Stage        string    `json:"stage"`
	Error        string    `json:"error"`
	InvocationID string    `json:"invocation_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// DeadLetterPublisher 将失败终态发布到死信主题。
type DeadLetterPublisher struct {
	pub *pubsub.Publisher
	now func() time.Time
	log *log.Helper
}

// NewDeadLetterPublisher 构造 DeadLetterPublisher。
func NewDeadLetterPublisher(pub *pubsub.Publisher, logger log.Logger) *DeadLetterPublisher {
	return &DeadLetterPublisher{pub: pub, now: time.Now, log: log.NewHelper(logger)}
}

// Report 发布一条失败记录并等待服务端确认。
func (d *DeadLetterPublisher) Report(ctx context.Context, evt vo.UploadEvent, out services.Outcome) error {
	payload := deadLetterPayload{
		Bucket:       evt.Bucket,
		Object:       evt.ObjectKey,
		Stage:        string(out.Stage),
		InvocationID: out.InvocationID,
		OccurredAt:   d.now().UTC(),
	}
	if out.Err != nil {
		payload.Error = out.Err.Error()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("uploads: marshal dead letter: %w", err)
	}

	result := d.pub.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"stage":  string(out.Stage),
			"status": string(out.Status),
		},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return fmt.Errorf("uploads: publish dead letter: %w", err)
	}
	d.log.WithContext(ctx).Debugf("uploads: dead letter published id=%s object=%s", id, evt.ObjectKey)
	return nil
}

// Stop 刷新并停止底层 Publisher。
func (d *DeadLetterPublisher) Stop() {
	if d != nil && d.pub != nil {
		d.pub.Stop()
	}
}
