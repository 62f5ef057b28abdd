// Package services 实现附件摄取的事件分类与处理流水线。
package services

import (
	"strings"

	"github.com/bionicotaku/attachment-ingest/internal/models/vo"
)

// Classify 按固定顺序判定事件的处理方式，首个命中的规则生效。无副作用。
func Classify(evt vo.UploadEvent, reservedFilename string) vo.ProcessingDecision {
	if evt.ResourceState == vo.ResourceStateNotExists {
		return vo.Skip(vo.SkipDeletionEcho)
	}
	if evt.Metageneration > 1 {
		return vo.Skip(vo.SkipMetadataOnly)
	}

	name := vo.SplitName(evt.ObjectKey)
	if reservedFilename != "" && name.FileName == reservedFilename {
		return vo.Skip(vo.SkipExcludedFilename)
	}
	if !evt.IsImage() {
		return vo.ProcessAsOpaqueFile()
	}
	if strings.HasPrefix(name.BaseName, vo.CompressedPrefix) || strings.HasPrefix(name.BaseName, vo.ThumbPrefix) {
		return vo.Skip(vo.SkipAlreadyProcessed)
	}
	return vo.ProcessAsImage()
}
