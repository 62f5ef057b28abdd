package transcoder

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
)

// CommandRunner executes one external process.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// MagickEngine shells out to ImageMagick's mogrify and convert.
type MagickEngine struct {
	mogrify string
	convert string
	runner  CommandRunner
	log     *log.Helper
}

// MagickOption customizes MagickEngine.
type MagickOption func(*MagickEngine)

// WithCommandRunner replaces the process runner, mainly for tests.
func WithCommandRunner(r CommandRunner) MagickOption {
	return func(e *MagickEngine) {
		if r != nil {
			e.runner = r
		}
	}
}

// NewMagickEngine builds an engine around the given binaries.
func NewMagickEngine(mogrify, convert string, logger log.Logger, opts ...MagickOption) *MagickEngine {
	if mogrify == "" {
		mogrify = "mogrify"
	}
	if convert == "" {
		convert = "convert"
	}
	e := &MagickEngine{
		mogrify: mogrify,
		convert: convert,
		runner:  execRunner{},
		log:     log.NewHelper(logger),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ToJPEG converts the first frame of src into a sibling .jpg file.
func (e *MagickEngine) ToJPEG(ctx context.Context, src string) (string, error) {
	dst := jpegPath(src)
	if err := e.run(ctx, e.convert, src+"[0]", dst); err != nil {
		return "", err
	}
	if _, err := os.Stat(dst); err != nil {
		return "", fmt.Errorf("%w: convert produced no output at %s", ErrEngineFailed, dst)
	}
	return dst, nil
}

// Compress auto-orients path, shrinks its longest edge to maxEdge and re-encodes it in place.
func (e *MagickEngine) Compress(ctx context.Context, path string, maxEdge, quality int) error {
	geometry := fmt.Sprintf("%dx%d>", maxEdge, maxEdge)
	return e.run(ctx, e.mogrify,
		"-auto-orient",
		"-resize", geometry,
		"-quality", strconv.Itoa(quality),
		path,
	)
}

// Thumbnail covers a size x size box and crops the overflow around the center.
func (e *MagickEngine) Thumbnail(ctx context.Context, src, dst string, size, quality int) error {
	box := fmt.Sprintf("%dx%d", size, size)
	return e.run(ctx, e.convert,
		"-define", "jpeg:size="+box,
		src,
		"-auto-orient",
		"-thumbnail", box+"^",
		"-quality", strconv.Itoa(quality),
		"-gravity", "center",
		"-extent", box,
		dst,
	)
}

// Dimensions reads the pixel size of a JPEG.
func (e *MagickEngine) Dimensions(_ context.Context, path string) (int, int, error) {
	return readDimensions(path)
}

func (e *MagickEngine) run(ctx context.Context, name string, args ...string) error {
	out, err := e.runner.Run(ctx, name, args...)
	if err != nil {
		e.log.WithContext(ctx).Warnf("transcoder: %s failed: %v output=%s", name, err, strings.TrimSpace(string(out)))
		return fmt.Errorf("%w: %s %s: %v", ErrEngineFailed, name, strings.Join(args, " "), err)
	}
	return nil
}
