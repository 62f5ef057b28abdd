package services_test

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel/metric"

	"github.com/bionicotaku/attachment-ingest/internal/infrastructure/configloader"
	"github.com/bionicotaku/attachment-ingest/internal/models/po"
	"github.com/bionicotaku/attachment-ingest/internal/services"
)

type stubStore struct {
	mu      sync.Mutex
	ops     []string
	uploads map[string]string // object -> content type
	fail    map[string]error  // "op:object" -> error
	// signBarrier 非空时，每次签名都需等待另一路签名到达。
	signBarrier *sync.WaitGroup
}

func newStubStore() *stubStore {
	return &stubStore{uploads: map[string]string{}, fail: map[string]error{}}
}

func (s *stubStore) record(op, object string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op+":"+object)
	return s.fail[op+":"+object]
}

func (s *stubStore) Download(_ context.Context, _ string, objectName, dir string) (string, error) {
	if err := s.record("download", objectName); err != nil {
		return "", err
	}
	local := filepath.Join(dir, path.Base(objectName))
	if err := os.WriteFile(local, []byte("original"), 0o600); err != nil {
		return "", err
	}
	return local, nil
}

func (s *stubStore) Upload(_ context.Context, localPath, _ string, objectName, contentType string) error {
	if _, err := os.Stat(localPath); err != nil {
		return fmt.Errorf("upload source missing: %w", err)
	}
	if err := s.record("upload", objectName); err != nil {
		return err
	}
	s.mu.Lock()
	s.uploads[objectName] = contentType
	s.mu.Unlock()
	return nil
}

func (s *stubStore) Delete(_ context.Context, _ string, objectName string) error {
	return s.record("delete", objectName)
}

func (s *stubStore) SignedURL(_ context.Context, _ string, objectName string) (string, error) {
	if s.signBarrier != nil {
		s.signBarrier.Done()
		s.signBarrier.Wait()
	}
	if err := s.record("sign", objectName); err != nil {
		return "", err
	}
	return "https://signed.example/" + objectName, nil
}

func (s *stubStore) opsWithPrefix(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, op := range s.ops {
		if strings.HasPrefix(op, prefix) {
			out = append(out, op)
		}
	}
	return out
}

type stubRecords struct {
	owners   []po.OwnerRecord
	findErr  error
	appendFn func(po.OwnerRecord) error
	queried  []string
	appended []appendCall
}

type appendCall struct {
	owner  po.OwnerRecord
	record po.AttachmentRecord
}

func (r *stubRecords) FindOwners(_ context.Context, ownerID string) ([]po.OwnerRecord, error) {
	r.queried = append(r.queried, ownerID)
	return r.owners, r.findErr
}

func (r *stubRecords) Append(_ context.Context, owner po.OwnerRecord, record po.AttachmentRecord) (string, error) {
	if r.appendFn != nil {
		if err := r.appendFn(owner); err != nil {
			return "", err
		}
	}
	r.appended = append(r.appended, appendCall{owner: owner, record: record})
	return fmt.Sprintf("doc-%d", len(r.appended)), nil
}

type stubEngine struct {
	calls  []string
	width  int
	height int
	err    map[string]error
}

func (e *stubEngine) ToJPEG(_ context.Context, src string) (string, error) {
	e.calls = append(e.calls, "tojpeg")
	if err := e.err["tojpeg"]; err != nil {
		return "", err
	}
	dst := strings.TrimSuffix(src, filepath.Ext(src)) + ".jpg"
	return dst, os.WriteFile(dst, []byte("jpeg"), 0o600)
}

func (e *stubEngine) Compress(_ context.Context, _ string, maxEdge, quality int) error {
	e.calls = append(e.calls, fmt.Sprintf("compress:%d:%d", maxEdge, quality))
	return e.err["compress"]
}

func (e *stubEngine) Thumbnail(_ context.Context, _ string, dst string, size, quality int) error {
	e.calls = append(e.calls, fmt.Sprintf("thumbnail:%d:%d", size, quality))
	if err := e.err["thumbnail"]; err != nil {
		return err
	}
	return os.WriteFile(dst, []byte("thumb"), 0o600)
}

func (e *stubEngine) Dimensions(context.Context, string) (int, int, error) {
	return e.width, e.height, nil
}

type harness struct {
	svc     *services.IngestionService
	store   *stubStore
	records *stubRecords
	engine  *stubEngine
	workDir string
}

func newHarness(t *testing.T, cfg configloader.PipelineConfig, meter metric.Meter) *harness {
	t.Helper()
	h := &harness{
		store:   newStubStore(),
		records: &stubRecords{owners: []po.OwnerRecord{{DocumentID: "doc-1", Path: "reports/doc-1"}}},
		engine:  &stubEngine{width: 1800, height: 1200, err: map[string]error{}},
		workDir: t.TempDir(),
	}
	cfg.WorkDir = h.workDir
	if cfg.ReservedFilename == "" {
		cfg.ReservedFilename = "logo.png"
	}
	transform, err := services.NewImageTransform(h.engine, configloader.TranscoderConfig{})
	if err != nil {
		t.Fatalf("NewImageTransform: %v", err)
	}
	svc, err := services.NewIngestionService(h.store, h.records, transform, cfg, meter, log.DefaultLogger)
	if err != nil {
		t.Fatalf("NewIngestionService: %v", err)
	}
	h.svc = svc
	return h
}

func (h *harness) assertWorkDirEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.workDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected work dir cleaned, found %d entries", len(entries))
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o600)
}
