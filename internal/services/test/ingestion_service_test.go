package services_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/bionicotaku/attachment-ingest/internal/infrastructure/configloader"
	"github.com/bionicotaku/attachment-ingest/internal/models/po"
	"github.com/bionicotaku/attachment-ingest/internal/models/vo"
	"github.com/bionicotaku/attachment-ingest/internal/repositories"
	"github.com/bionicotaku/attachment-ingest/internal/services"
)

const (
	imageKey = "r1/x/OWNER1/FIELD1/ATT1/photo.png"
	fullKey  = "r1/x/OWNER1/FIELD1/ATT1/full_photo.jpg"
	thumbKey = "r1/x/OWNER1/FIELD1/ATT1/thumb_photo.jpg"
	pdfKey   = "r1/x/OWNER1/FIELD1/ATT2/report.pdf"
)

func imageEvent() vo.UploadEvent {
	return vo.UploadEvent{
		Bucket:         "reports-bucket",
		ObjectKey:      imageKey,
		ContentType:    "image/png",
		ResourceState:  vo.ResourceStateExists,
		Metageneration: 1,
	}
}

func TestProcessImageSuccess(t *testing.T) {
	h := newHarness(t, configloader.PipelineConfig{}, nil)

	out := h.svc.Process(context.Background(), imageEvent())
	if out.Status != services.StatusSucceeded {
		t.Fatalf("expected success, got %s", out)
	}
	if out.Appended != 1 {
		t.Fatalf("expected one append, got %d", out.Appended)
	}

	wantEngine := []string{"tojpeg", "compress:1800:75", "thumbnail:500:90"}
	if !reflect.DeepEqual(h.engine.calls, wantEngine) {
		t.Fatalf("engine calls = %v, want %v", h.engine.calls, wantEngine)
	}

	ops := h.store.ops
	if ops[0] != "download:"+imageKey {
		t.Fatalf("expected download first, got %v", ops)
	}
	if ops[len(ops)-1] != "delete:"+imageKey {
		t.Fatalf("expected delete of original last, got %v", ops)
	}
	if got := h.store.opsWithPrefix("upload:"); !reflect.DeepEqual(got, []string{"upload:" + fullKey, "upload:" + thumbKey}) {
		t.Fatalf("unexpected uploads: %v", got)
	}
	if h.store.uploads[fullKey] != "image/jpeg" || h.store.uploads[thumbKey] != "image/jpeg" {
		t.Fatalf("derived uploads must be image/jpeg: %v", h.store.uploads)
	}
	if len(h.store.opsWithPrefix("sign:")) != 2 {
		t.Fatalf("expected two signatures, got %v", ops)
	}

	if len(h.records.queried) != 1 || h.records.queried[0] != "OWNER1" {
		t.Fatalf("unexpected owner lookups: %v", h.records.queried)
	}
	rec := h.records.appended[0].record
	want := po.AttachmentRecord{
		Kind:                  po.AttachmentKindPhoto,
		StorageReference:      fullKey,
		StorageReferenceThumb: thumbKey,
		AttachmentID:          "ATT1",
		FieldID:               "FIELD1",
		FullPhotoURL:          "https://signed.example/" + fullKey,
		ThumbPhotoURL:         "https://signed.example/" + thumbKey,
		PhotoWidth:            1800,
		PhotoHeight:           1200,
	}
	if rec != want {
		t.Fatalf("record = %+v, want %+v", rec, want)
	}
	h.assertWorkDirEmpty(t)
}

func TestProcessJPEGSkipsNormalize(t *testing.T) {
	h := newHarness(t, configloader.PipelineConfig{}, nil)
	evt := imageEvent()
	evt.ObjectKey = "r1/x/OWNER1/FIELD1/ATT1/photo.jpg"
	evt.ContentType = "image/jpeg"

	out := h.svc.Process(context.Background(), evt)
	if out.Status != services.StatusSucceeded {
		t.Fatalf("expected success, got %s", out)
	}
	for _, c := range h.engine.calls {
		if c == "tojpeg" {
			t.Fatalf("JPEG input must not be normalized: %v", h.engine.calls)
		}
	}
}

func TestProcessThumbUploadFailureKeepsOriginal(t *testing.T) {
	h := newHarness(t, configloader.PipelineConfig{}, nil)
	uploadErr := errors.New("permission denied")
	h.store.fail["upload:"+thumbKey] = uploadErr

	out := h.svc.Process(context.Background(), imageEvent())
	if out.Status != services.StatusFailed || out.Stage != services.StageUploadThumb {
		t.Fatalf("expected failed(upload_thumb), got %s", out)
	}
	if !errors.Is(out.Err, uploadErr) {
		t.Fatalf("expected cause to be preserved, got %v", out.Err)
	}
	if _, ok := h.store.uploads[fullKey]; !ok {
		t.Fatal("full image upload must remain")
	}
	if len(h.records.appended) != 0 {
		t.Fatalf("no record may be appended, got %d", len(h.records.appended))
	}
	if len(h.store.opsWithPrefix("delete:")) != 0 {
		t.Fatal("original must not be deleted")
	}
	if len(h.store.opsWithPrefix("sign:")) != 0 {
		t.Fatal("signing must not run after a failed upload")
	}
	h.assertWorkDirEmpty(t)
}

func TestProcessTranscodeFailureShortCircuits(t *testing.T) {
	h := newHarness(t, configloader.PipelineConfig{}, nil)
	h.engine.err["compress"] = errors.New("no decode delegate")

	out := h.svc.Process(context.Background(), imageEvent())
	if out.Status != services.StatusFailed || out.Stage != services.StageCompress {
		t.Fatalf("expected failed(compress), got %s", out)
	}
	if len(h.store.opsWithPrefix("upload:")) != 0 {
		t.Fatal("nothing may be uploaded after a compress failure")
	}
	h.assertWorkDirEmpty(t)
}

func TestProcessSignsConcurrently(t *testing.T) {
	h := newHarness(t, configloader.PipelineConfig{}, nil)
	var barrier sync.WaitGroup
	barrier.Add(2)
	h.store.signBarrier = &barrier

	done := make(chan services.Outcome, 1)
	go func() { done <- h.svc.Process(context.Background(), imageEvent()) }()

	select {
	case out := <-done:
		if out.Status != services.StatusSucceeded {
			t.Fatalf("expected success, got %s", out)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("signed URL requests were not issued concurrently")
	}
}

func TestProcessOpaqueFile(t *testing.T) {
	h := newHarness(t, configloader.PipelineConfig{}, nil)
	h.records.owners = []po.OwnerRecord{{DocumentID: "a", Path: "reports/a"}, {DocumentID: "b", Path: "reports/b"}}

	out := h.svc.Process(context.Background(), vo.UploadEvent{
		Bucket:         "reports-bucket",
		ObjectKey:      pdfKey,
		ContentType:    "application/pdf",
		ResourceState:  vo.ResourceStateExists,
		Metageneration: 1,
	})
	if out.Status != services.StatusSucceeded {
		t.Fatalf("expected success, got %s", out)
	}
	if len(h.engine.calls) != 0 {
		t.Fatalf("no transcoding expected, got %v", h.engine.calls)
	}
	if got := h.store.ops; !reflect.DeepEqual(got, []string{"sign:" + pdfKey}) {
		t.Fatalf("expected only the original to be signed, got %v", got)
	}
	if len(h.records.appended) != 2 {
		t.Fatalf("expected one append per owner, got %d", len(h.records.appended))
	}
	for _, call := range h.records.appended {
		rec := call.record
		if rec.Kind != po.AttachmentKindFile || rec.StorageReference != pdfKey || rec.AttachmentID != "ATT2" || rec.FieldID != "FIELD1" {
			t.Fatalf("unexpected record: %+v", rec)
		}
		if rec.FileURL != "https://signed.example/"+pdfKey {
			t.Fatalf("unexpected file url: %s", rec.FileURL)
		}
	}
}

func TestProcessZeroOwnersSucceeds(t *testing.T) {
	h := newHarness(t, configloader.PipelineConfig{}, nil)
	h.records.owners = nil

	out := h.svc.Process(context.Background(), vo.UploadEvent{
		Bucket: "b", ObjectKey: pdfKey, ContentType: "application/pdf",
		ResourceState: vo.ResourceStateExists, Metageneration: 1,
	})
	if out.Status != services.StatusSucceeded || out.Appended != 0 {
		t.Fatalf("expected silent success, got %s appended=%d", out, out.Appended)
	}
	if len(h.records.appended) != 0 {
		t.Fatal("no record may be written")
	}
}

func TestProcessRequireSingleOwner(t *testing.T) {
	cases := []struct {
		name   string
		owners []po.OwnerRecord
		want   error
	}{
		{"none", nil, repositories.ErrOwnerNotFound},
		{"many", []po.OwnerRecord{{DocumentID: "a"}, {DocumentID: "b"}}, repositories.ErrAmbiguousOwner},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, configloader.PipelineConfig{RequireSingleOwner: true}, nil)
			h.records.owners = tc.owners

			out := h.svc.Process(context.Background(), imageEvent())
			if out.Stage != services.StageLookup || !errors.Is(out.Err, tc.want) {
				t.Fatalf("expected failed(lookup, %v), got %s", tc.want, out)
			}
			if len(h.records.appended) != 0 || len(h.store.opsWithPrefix("delete:")) != 0 {
				t.Fatal("no append or delete expected")
			}
		})
	}
}

func TestProcessAppendFailureKeepsOriginal(t *testing.T) {
	h := newHarness(t, configloader.PipelineConfig{}, nil)
	h.records.appendFn = func(po.OwnerRecord) error { return errors.New("unavailable") }

	out := h.svc.Process(context.Background(), imageEvent())
	if out.Stage != services.StageAppend {
		t.Fatalf("expected failed(append), got %s", out)
	}
	if len(h.store.opsWithPrefix("delete:")) != 0 {
		t.Fatal("original must not be deleted")
	}
}

func TestProcessSkipPerformsNoIO(t *testing.T) {
	h := newHarness(t, configloader.PipelineConfig{}, nil)
	evt := imageEvent()
	evt.ResourceState = vo.ResourceStateNotExists

	out := h.svc.Process(context.Background(), evt)
	if out.Status != services.StatusSkipped || out.Reason != vo.SkipDeletionEcho {
		t.Fatalf("expected skipped(deletion-echo), got %s", out)
	}
	if len(h.store.ops) != 0 || len(h.records.queried) != 0 || len(h.engine.calls) != 0 {
		t.Fatal("skip must not perform I/O")
	}
}

func TestProcessMalformedKey(t *testing.T) {
	h := newHarness(t, configloader.PipelineConfig{}, nil)
	evt := imageEvent()
	evt.ObjectKey = "uploads/photo.png"

	out := h.svc.Process(context.Background(), evt)
	if out.Stage != services.StageParse || !errors.Is(out.Err, vo.ErrMalformedKey) {
		t.Fatalf("expected failed(parse, ErrMalformedKey), got %s", out)
	}
	if len(h.store.ops) != 0 {
		t.Fatal("malformed key must not touch storage")
	}
}

func TestProcessRecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	h := newHarness(t, configloader.PipelineConfig{}, provider.Meter("test"))

	h.svc.Process(context.Background(), imageEvent())
	skip := imageEvent()
	skip.Metageneration = 3
	h.svc.Process(context.Background(), skip)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var total int64
	var sawHistogram bool
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch m.Name {
			case "ingest.invocations":
				sum, ok := m.Data.(metricdata.Sum[int64])
				if !ok {
					t.Fatalf("unexpected data type %T", m.Data)
				}
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			case "ingest.duration":
				sawHistogram = true
			}
		}
	}
	if total != 2 {
		t.Fatalf("expected 2 invocations recorded, got %d", total)
	}
	if !sawHistogram {
		t.Fatal("expected duration histogram")
	}
}
