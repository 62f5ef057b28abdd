package transcoder

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/go-kratos/kratos/v2/log"
)

// ImagingEngine transcodes in-process with disintegration/imaging.
type ImagingEngine struct {
	log *log.Helper
}

// NewImagingEngine builds an in-process engine.
func NewImagingEngine(logger log.Logger) *ImagingEngine {
	return &ImagingEngine{log: log.NewHelper(logger)}
}

// ToJPEG decodes src and writes it as a sibling .jpg file.
func (e *ImagingEngine) ToJPEG(ctx context.Context, src string) (string, error) {
	img, err := open(src)
	if err != nil {
		return "", err
	}
	dst := jpegPath(src)
	if err := saveJPEG(img, dst, 100); err != nil {
		return "", err
	}
	return dst, nil
}

// Compress auto-orients path, fits it inside maxEdge x maxEdge and re-encodes it in place.
func (e *ImagingEngine) Compress(ctx context.Context, path string, maxEdge, quality int) error {
	img, err := open(path)
	if err != nil {
		return err
	}
	b := img.Bounds()
	if b.Dx() > maxEdge || b.Dy() > maxEdge {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}
	return saveJPEG(img, path, quality)
}

// Thumbnail resizes src to cover size x size and crops it around the center.
func (e *ImagingEngine) Thumbnail(ctx context.Context, src, dst string, size, quality int) error {
	img, err := open(src)
	if err != nil {
		return err
	}
	thumb := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)
	return saveJPEG(thumb, dst, quality)
}

// Dimensions reads the pixel size of a JPEG.
func (e *ImagingEngine) Dimensions(_ context.Context, path string) (int, int, error) {
	return readDimensions(path)
}

func open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrEngineFailed, path, err)
	}
	return img, nil
}

// saveJPEG always encodes JPEG, whatever extension path carries.
func saveJPEG(img image.Image, path string, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("transcoder: create %s: %w", path, err)
	}
	if err := imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: encode %s: %v", ErrEngineFailed, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("transcoder: close %s: %w", path, err)
	}
	return nil
}
