package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bionicotaku/attachment-ingest/internal/infrastructure/configloader"
	"github.com/bionicotaku/attachment-ingest/internal/models/vo"
)

// Transcoder 抽象像素转码引擎，便于测试替换。
type Transcoder interface {
	ToJPEG(ctx context.Context, src string) (string, error)
	Compress(ctx context.Context, path string, maxEdge, quality int) error
	Thumbnail(ctx context.Context, src, dst string, size, quality int) error
	Dimensions(ctx context.Context, path string) (width, height int, err error)
}

// TransformResult 为一次完整图片变换的本地产物。
type TransformResult struct {
	FullPath   string
	ThumbPath  string
	Dimensions vo.PhotoDimensions
}

// ImageTransform 依次执行 Normalize、Compress、Thumbnail 三个有序步骤。
type ImageTransform struct {
	engine       Transcoder
	maxEdge      int
	fullQuality  int
	thumbSize    int
	thumbQuality int
}

// NewImageTransform 构造 ImageTransform。
func NewImageTransform(engine Transcoder, cfg configloader.TranscoderConfig) (*ImageTransform, error) {
	if engine == nil {
		return nil, errors.New("image transform: engine is required")
	}
	return &ImageTransform{
		engine:       engine,
		maxEdge:      positiveOr(cfg.MaxEdge, 1800),
		fullQuality:  positiveOr(cfg.FullQuality, 75),
		thumbSize:    positiveOr(cfg.ThumbSize, 500),
		thumbQuality: positiveOr(cfg.ThumbQuality, 90),
	}, nil
}

// Normalize 保证本地工作文件为 .jpg 后缀的 JPEG，返回新的本地路径。
func (t *ImageTransform) Normalize(ctx context.Context, src string, isJPEG bool) (string, error) {
	if !isJPEG {
		return t.engine.ToJPEG(ctx, src)
	}
	switch strings.ToLower(filepath.Ext(src)) {
	case ".jpg", ".jpeg":
		return src, nil
	}
	// 已是 JPEG 但后缀不符时只改名，避免引擎按后缀选错编码。
	dst := strings.TrimSuffix(src, filepath.Ext(src)) + vo.JPEGExtension
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("normalize: rename %s: %w", src, err)
	}
	return dst, nil
}

// Compress 原地压缩并返回压缩后图片的宽高。
func (t *ImageTransform) Compress(ctx context.Context, path string) (vo.PhotoDimensions, error) {
	if err := t.engine.Compress(ctx, path, t.maxEdge, t.fullQuality); err != nil {
		return vo.PhotoDimensions{}, err
	}
	w, h, err := t.engine.Dimensions(ctx, path)
	if err != nil {
		return vo.PhotoDimensions{}, err
	}
	return vo.PhotoDimensions{Width: w, Height: h}, nil
}

// Thumbnail 生成独立的方形缩略图文件。
func (t *ImageTransform) Thumbnail(ctx context.Context, src, dst string) error {
	return t.engine.Thumbnail(ctx, src, dst, t.thumbSize, t.thumbQuality)
}

// Run 在 dir 中对 src 执行完整的三步变换。
func (t *ImageTransform) Run(ctx context.Context, src, contentType, dir string) (TransformResult, error) {
	full, err := t.Normalize(ctx, src, vo.UploadEvent{ContentType: contentType}.IsJPEG())
	if err != nil {
		return TransformResult{}, &StageError{Stage: StageNormalize, Err: err}
	}
	dims, err := t.Compress(ctx, full)
	if err != nil {
		return TransformResult{}, &StageError{Stage: StageCompress, Err: err}
	}
	base := strings.TrimSuffix(filepath.Base(full), filepath.Ext(full))
	thumb := filepath.Join(dir, vo.ThumbPrefix+base+vo.JPEGExtension)
	if err := t.Thumbnail(ctx, full, thumb); err != nil {
		return TransformResult{}, &StageError{Stage: StageThumbnail, Err: err}
	}
	return TransformResult{FullPath: full, ThumbPath: thumb, Dimensions: dims}, nil
}

func positiveOr(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
