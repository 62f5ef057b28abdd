package transcoder_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/bionicotaku/attachment-ingest/internal/infrastructure/transcoder"
)

type call struct {
	name string
	args []string
}

type recordingRunner struct {
	calls []call
	err   error
	// touch 在 convert 调用时创建最后一个参数对应的文件。
	touch bool
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, call{name: name, args: append([]string(nil), args...)})
	if r.err != nil {
		return []byte("magick: no decode delegate"), r.err
	}
	if r.touch && len(args) > 0 {
		if err := os.WriteFile(args[len(args)-1], []byte("jpeg"), 0o600); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func TestMagickCompressArguments(t *testing.T) {
	runner := &recordingRunner{}
	engine := transcoder.NewMagickEngine("mogrify", "convert", log.NewStdLogger(io.Discard), transcoder.WithCommandRunner(runner))

	if err := engine.Compress(context.Background(), "/tmp/work/photo.jpg", 1800, 75); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	want := call{name: "mogrify", args: []string{"-auto-orient", "-resize", "1800x1800>", "-quality", "75", "/tmp/work/photo.jpg"}}
	if len(runner.calls) != 1 || !reflect.DeepEqual(runner.calls[0], want) {
		t.Fatalf("unexpected calls: %+v", runner.calls)
	}
}

func TestMagickThumbnailArguments(t *testing.T) {
	runner := &recordingRunner{}
	engine := transcoder.NewMagickEngine("", "", log.NewStdLogger(io.Discard), transcoder.WithCommandRunner(runner))

	if err := engine.Thumbnail(context.Background(), "/w/photo.jpg", "/w/thumb_photo.jpg", 500, 90); err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	want := call{name: "convert", args: []string{
		"-define", "jpeg:size=500x500",
		"/w/photo.jpg",
		"-auto-orient",
		"-thumbnail", "500x500^",
		"-quality", "90",
		"-gravity", "center",
		"-extent", "500x500",
		"/w/thumb_photo.jpg",
	}}
	if len(runner.calls) != 1 || !reflect.DeepEqual(runner.calls[0], want) {
		t.Fatalf("unexpected calls: %+v", runner.calls)
	}
}

func TestMagickToJPEGWritesSibling(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	runner := &recordingRunner{touch: true}
	engine := transcoder.NewMagickEngine("mogrify", "convert", log.NewStdLogger(io.Discard), transcoder.WithCommandRunner(runner))

	out, err := engine.ToJPEG(context.Background(), src)
	if err != nil {
		t.Fatalf("ToJPEG: %v", err)
	}
	if out != filepath.Join(dir, "photo.jpg") {
		t.Fatalf("unexpected output path %s", out)
	}
	if got := runner.calls[0].args; got[0] != src+"[0]" || got[1] != out {
		t.Fatalf("unexpected convert args: %v", got)
	}
}

func TestMagickToJPEGMissingOutput(t *testing.T) {
	runner := &recordingRunner{}
	engine := transcoder.NewMagickEngine("mogrify", "convert", log.NewStdLogger(io.Discard), transcoder.WithCommandRunner(runner))

	_, err := engine.ToJPEG(context.Background(), filepath.Join(t.TempDir(), "scan.tiff"))
	if !errors.Is(err, transcoder.ErrEngineFailed) {
		t.Fatalf("expected ErrEngineFailed, got %v", err)
	}
}

func TestMagickFailureWrapsEngineError(t *testing.T) {
	runner := &recordingRunner{err: errors.New("exit status 1")}
	engine := transcoder.NewMagickEngine("mogrify", "convert", log.NewStdLogger(io.Discard), transcoder.WithCommandRunner(runner))

	err := engine.Compress(context.Background(), "/w/photo.jpg", 1800, 75)
	if !errors.Is(err, transcoder.ErrEngineFailed) {
		t.Fatalf("expected ErrEngineFailed, got %v", err)
	}
}
