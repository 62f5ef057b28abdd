package vo

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	// CompressedPrefix 标记压缩后的全尺寸输出。
	CompressedPrefix = "full_"
	// ThumbPrefix 标记缩略图输出。
	ThumbPrefix = "thumb_"
	// JPEGExtension 为派生文件统一使用的扩展名。
	JPEGExtension = ".jpg"

	ownerSegment      = 2
	fieldSegment      = 3
	attachmentSegment = 4
	minDirSegments    = 5
)

// ErrMalformedKey 表示对象路径段数不足，无法提取归属标识。
var ErrMalformedKey = errors.New("malformed object key")

// ObjectIdentity 为对象路径解析出的结构化标识。
//
// 路径约定：<ignored>/<ignored>/<ownerId>/<fieldId>/<attachmentId>/<filename>
type ObjectIdentity struct {
	Key          string
	Dir          string
	FileName     string
	Extension    string
	BaseName     string
	OwnerID      string
	FieldID      string
	AttachmentID string
}

// DerivedPaths 为图片分支生成的两个输出对象路径。
type DerivedPaths struct {
	Full  string
	Thumb string
}

// ParseObjectKey 解析对象路径；目录段数少于 5 或关键段为空时返回 ErrMalformedKey。
func ParseObjectKey(key string) (ObjectIdentity, error) {
	id := SplitName(key)
	segments := strings.Split(id.Dir, "/")
	if id.Dir == "" || id.Dir == "." || len(segments) < minDirSegments {
		return id, fmt.Errorf("%w: %q has %d directory segments, want at least %d", ErrMalformedKey, key, countSegments(id.Dir), minDirSegments)
	}
	id.OwnerID = segments[ownerSegment]
	id.FieldID = segments[fieldSegment]
	id.AttachmentID = segments[attachmentSegment]
	if id.OwnerID == "" || id.FieldID == "" || id.AttachmentID == "" || id.FileName == "" {
		return id, fmt.Errorf("%w: %q has empty identifier segments", ErrMalformedKey, key)
	}
	return id, nil
}

// SplitName 仅拆分目录与文件名部分，不做段数校验。
func SplitName(key string) ObjectIdentity {
	file := path.Base(key)
	if key == "" || strings.HasSuffix(key, "/") {
		file = ""
	}
	ext := path.Ext(file)
	return ObjectIdentity{
		Key:       key,
		Dir:       path.Dir(key),
		FileName:  file,
		Extension: ext,
		BaseName:  strings.TrimSuffix(file, ext),
	}
}

// Derived 计算压缩图与缩略图的目标路径，与原文件位于同一目录。
func (o ObjectIdentity) Derived() DerivedPaths {
	return DerivedPaths{
		Full:  path.Join(o.Dir, CompressedPrefix+o.BaseName+JPEGExtension),
		Thumb: path.Join(o.Dir, ThumbPrefix+o.BaseName+JPEGExtension),
	}
}

func countSegments(dir string) int {
	if dir == "" || dir == "." {
		return 0
	}
	return len(strings.Split(dir, "/"))
}
