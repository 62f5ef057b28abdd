// Package transcoder drives the pixel transcoding engines used by the image branch.
//
// Every engine honors the same contract: ToJPEG produces a JPEG next to the source,
// Compress rewrites a JPEG in place (auto-orient, bounded longest edge, quality) and
// Thumbnail writes a separate exact-square, center-cropped JPEG.
package transcoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // DecodeConfig for compressed output
	"os"
	"path/filepath"
	"strings"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/bionicotaku/attachment-ingest/internal/infrastructure/configloader"
)

// ErrEngineFailed marks a failed engine invocation.
var ErrEngineFailed = errors.New("transcoder: engine failed")

// Engine is the black-box transcoding contract.
type Engine interface {
	ToJPEG(ctx context.Context, src string) (string, error)
	Compress(ctx context.Context, path string, maxEdge, quality int) error
	Thumbnail(ctx context.Context, src, dst string, size, quality int) error
	Dimensions(ctx context.Context, path string) (width, height int, err error)
}

// ProvideEngine selects the engine configured in cfg.
func ProvideEngine(cfg configloader.TranscoderConfig, logger log.Logger) (Engine, error) {
	switch cfg.Engine {
	case configloader.EngineImaging:
		return NewImagingEngine(logger), nil
	case configloader.EngineMagick, "":
		return NewMagickEngine(cfg.MogrifyBin, cfg.ConvertBin, logger), nil
	default:
		return nil, fmt.Errorf("transcoder: unsupported engine %q", cfg.Engine)
	}
}

// jpegPath returns the sibling path of src carrying the .jpg extension.
func jpegPath(src string) string {
	ext := filepath.Ext(src)
	return strings.TrimSuffix(src, ext) + ".jpg"
}

func readDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("transcoder: open %s: %w", path, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: read dimensions of %s: %v", ErrEngineFailed, path, err)
	}
	return cfg.Width, cfg.Height, nil
}
