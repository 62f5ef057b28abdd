// Package vo 定义附件摄取流程中流转的值对象。
// 这些对象仅在单次调用内有效，处理完成后即丢弃。
package vo

import "strings"

// ResourceState 表示通知所指对象当前是否存在。
type ResourceState string

const (
	ResourceStateExists    ResourceState = "exists"
	ResourceStateNotExists ResourceState = "not_exists"
)

// UploadEvent 为一次存储通知解析后的不可变输入。
type UploadEvent struct {
	Bucket         string
	ObjectKey      string
	ContentType    string
	ResourceState  ResourceState
	Metageneration int64
	Generation     string
	EventType      string
}

// NormalizedContentType 返回去除参数、统一小写后的 MIME 类型；缺失时返回空串。
func (e UploadEvent) NormalizedContentType() string {
	ct := strings.TrimSpace(e.ContentType)
	if idx := strings.IndexByte(ct, ';'); idx >= 0 {
		ct = ct[:idx]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// IsImage 判断内容类型是否为 image/*。
func (e UploadEvent) IsImage() bool {
	return strings.HasPrefix(e.NormalizedContentType(), "image/")
}

// IsJPEG 判断内容类型是否已是 JPEG，无需格式归一化。
func (e UploadEvent) IsJPEG() bool {
	switch e.NormalizedContentType() {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return true
	default:
		return false
	}
}
