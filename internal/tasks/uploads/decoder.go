// Package uploads consumes storage notifications and drives the ingestion pipeline.
package uploads

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/bionicotaku/attachment-ingest/internal/models/vo"
)

// Pub/Sub notification attributes set by Cloud Storage.
const (
	attrEventType        = "eventType"
	attrBucketID         = "bucketId"
	attrObjectID         = "objectId"
	attrObjectGeneration = "objectGeneration"

	eventObjectDelete  = "OBJECT_DELETE"
	eventObjectArchive = "OBJECT_ARCHIVE"
)

// gcsObjectMessage 为 JSON_API_V1 负载中用到的字段。
type gcsObjectMessage struct {
	Bucket         string      `json:"bucket"`
	Name           string      `json:"name"`
	Generation     json.Number `json:"generation"`
	Metageneration json.Number `json:"metageneration"`
	ContentType    string      `json:"contentType"`
	ResourceState  string      `json:"resourceState"`
}

type eventDecoder struct{}

func newDecoder() *eventDecoder {
	return &eventDecoder{}
}

// Decode 将 Pub/Sub 消息数据与属性解析为 UploadEvent。
func (d *eventDecoder) Decode(data []byte, attrs map[string]string) (vo.UploadEvent, error) {
	var msg gcsObjectMessage
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			return vo.UploadEvent{}, fmt.Errorf("uploads: decode gcs object payload: %w", err)
		}
	}

	bucket := firstNonEmpty(msg.Bucket, attrs[attrBucketID])
	name := firstNonEmpty(msg.Name, attrs[attrObjectID])
	if bucket == "" || name == "" {
		return vo.UploadEvent{}, fmt.Errorf("uploads: missing bucket or object name")
	}

	metageneration := int64(1)
	if msg.Metageneration != "" {
		parsed, err := strconv.ParseInt(msg.Metageneration.String(), 10, 64)
		if err != nil {
			return vo.UploadEvent{}, fmt.Errorf("uploads: parse metageneration: %w", err)
		}
		if parsed > 0 {
			metageneration = parsed
		}
	}

	eventType := attrs[attrEventType]
	return vo.UploadEvent{
		Bucket:         bucket,
		ObjectKey:      name,
		ContentType:    msg.ContentType,
		ResourceState:  resourceState(msg.ResourceState, eventType),
		Metageneration: metageneration,
		Generation:     firstNonEmpty(msg.Generation.String(), attrs[attrObjectGeneration]),
		EventType:      eventType,
	}, nil
}

// resourceState 优先采用负载中的 resourceState，否则按事件类型推断。
func resourceState(legacy, eventType string) vo.ResourceState {
	switch strings.ToLower(legacy) {
	case "not_exists":
		return vo.ResourceStateNotExists
	case "exists":
		return vo.ResourceStateExists
	}
	switch strings.ToUpper(eventType) {
	case eventObjectDelete, eventObjectArchive:
		return vo.ResourceStateNotExists
	default:
		return vo.ResourceStateExists
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
