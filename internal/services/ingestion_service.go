package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/bionicotaku/attachment-ingest/internal/infrastructure/configloader"
	"github.com/bionicotaku/attachment-ingest/internal/models/po"
	"github.com/bionicotaku/attachment-ingest/internal/models/vo"
	"github.com/bionicotaku/attachment-ingest/internal/repositories"
)

const derivedContentType = "image/jpeg"

// ObjectStore 抽象对象存储的下载、上传、删除与签名能力。
type ObjectStore interface {
	Download(ctx context.Context, bucket, objectName, dir string) (string, error)
	Upload(ctx context.Context, localPath, bucket, objectName, contentType string) error
	Delete(ctx context.Context, bucket, objectName string) error
	SignedURL(ctx context.Context, bucket, objectName string) (string, error)
}

// AttachmentStore 抽象归属记录查询与附件追加。
type AttachmentStore interface {
	FindOwners(ctx context.Context, ownerID string) ([]po.OwnerRecord, error)
	Append(ctx context.Context, owner po.OwnerRecord, record po.AttachmentRecord) (string, error)
}

// IngestionService 编排单次上传事件的完整处理流程。
//
// 图片分支：Download → Normalize → Compress → UploadFull → Thumbnail → UploadThumb →
// Sign(并发) → Lookup → Append → DeleteOriginal；非图片分支：Sign → Lookup → Append。
// 任一步骤失败即短路，已产生的副作用不回滚；删除原图始终是最后一步。
type IngestionService struct {
	store              ObjectStore
	records            AttachmentStore
	transform          *ImageTransform
	workDir            string
	reservedFilename   string
	requireSingleOwner bool
	metrics            *pipelineMetrics
	tracer             trace.Tracer
	now                func() time.Time
	log                *log.Helper
}

// NewIngestionService 创建 IngestionService。
func NewIngestionService(store ObjectStore, records AttachmentStore, transform *ImageTransform, cfg configloader.PipelineConfig, meter metric.Meter, logger log.Logger) (*IngestionService, error) {
	switch {
	case store == nil:
		return nil, errors.New("ingestion service: object store is required")
	case records == nil:
		return nil, errors.New("ingestion service: attachment store is required")
	case transform == nil:
		return nil, errors.New("ingestion service: image transform is required")
	}
	metrics, err := newPipelineMetrics(meter)
	if err != nil {
		return nil, err
	}
	return &IngestionService{
		store:              store,
		records:            records,
		transform:          transform,
		workDir:            cfg.WorkDir,
		reservedFilename:   cfg.ReservedFilename,
		requireSingleOwner: cfg.RequireSingleOwner,
		metrics:            metrics,
		tracer:             otel.Tracer(instrumentationName),
		now:                time.Now,
		log:                log.NewHelper(logger),
	}, nil
}

// Process 处理一个事件并返回显式结果；失败不会以 panic 或 error 形式外抛。
func (s *IngestionService) Process(ctx context.Context, evt vo.UploadEvent) Outcome {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "ingest.process", trace.WithAttributes(
		attribute.String("gcs.bucket", evt.Bucket),
		attribute.String("gcs.object", evt.ObjectKey),
	))
	defer span.End()

	out := Outcome{InvocationID: uuid.NewString()}
	out.Decision = Classify(evt, s.reservedFilename)

	switch {
	case out.Decision.Skipped():
		out.Status = StatusSkipped
		out.Reason = out.Decision.Reason
	default:
		appended, err := s.run(ctx, evt, out.Decision, &out.Identity)
		out.Appended = appended
		if err != nil {
			out.Status = StatusFailed
			out.Err = err
			var stageErr *StageError
			if errors.As(err, &stageErr) {
				out.Stage = stageErr.Stage
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			out.Status = StatusSucceeded
		}
	}

	out.Duration = s.now().Sub(start)
	span.SetAttributes(attribute.String("ingest.status", string(out.Status)))
	s.metrics.record(ctx, out)
	s.logOutcome(ctx, evt, out)
	return out
}

func (s *IngestionService) run(ctx context.Context, evt vo.UploadEvent, decision vo.ProcessingDecision, identity *vo.ObjectIdentity) (int, error) {
	id, err := vo.ParseObjectKey(evt.ObjectKey)
	if err != nil {
		return 0, &StageError{Stage: StageParse, Err: err}
	}
	*identity = id

	if decision.Kind == vo.DecisionProcessImage {
		return s.processImage(ctx, evt, id)
	}
	return s.processOpaque(ctx, evt, id)
}

func (s *IngestionService) processImage(ctx context.Context, evt vo.UploadEvent, id vo.ObjectIdentity) (int, error) {
	var dir string
	if err := s.step(ctx, StageWorkspace, func(context.Context) (err error) {
		dir, err = os.MkdirTemp(s.workDir, "ingest-*")
		return err
	}); err != nil {
		return 0, err
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			s.log.WithContext(ctx).Warnf("uploads: remove work dir %s: %v", dir, err)
		}
	}()

	derived := id.Derived()
	var (
		local, full       string
		dims              vo.PhotoDimensions
		fullURL, thumbURL string
	)
	thumbLocal := filepath.Join(dir, path.Base(derived.Thumb))

	steps := []struct {
		stage Stage
		fn    func(context.Context) error
	}{
		{StageDownload, func(ctx context.Context) (err error) {
			local, err = s.store.Download(ctx, evt.Bucket, evt.ObjectKey, dir)
			return err
		}},
		{StageNormalize, func(ctx context.Context) (err error) {
			full, err = s.transform.Normalize(ctx, local, evt.IsJPEG())
			return err
		}},
		{StageCompress, func(ctx context.Context) (err error) {
			dims, err = s.transform.Compress(ctx, full)
			return err
		}},
		{StageUploadFull, func(ctx context.Context) error {
			return s.store.Upload(ctx, full, evt.Bucket, derived.Full, derivedContentType)
		}},
		{StageThumbnail, func(ctx context.Context) error {
			return s.transform.Thumbnail(ctx, full, thumbLocal)
		}},
		{StageUploadThumb, func(ctx context.Context) error {
			return s.store.Upload(ctx, thumbLocal, evt.Bucket, derived.Thumb, derivedContentType)
		}},
		{StageSign, func(ctx context.Context) (err error) {
			fullURL, thumbURL, err = s.signBoth(ctx, evt.Bucket, derived.Full, derived.Thumb)
			return err
		}},
	}
	for _, st := range steps {
		if err := s.step(ctx, st.stage, st.fn); err != nil {
			return 0, err
		}
	}

	record := po.AttachmentRecord{
		Kind:                  po.AttachmentKindPhoto,
		StorageReference:      derived.Full,
		StorageReferenceThumb: derived.Thumb,
		AttachmentID:          id.AttachmentID,
		FieldID:               id.FieldID,
		FullPhotoURL:          fullURL,
		ThumbPhotoURL:         thumbURL,
		PhotoWidth:            dims.Width,
		PhotoHeight:           dims.Height,
	}
	appended, err := s.appendToOwners(ctx, id.OwnerID, record)
	if err != nil {
		return appended, err
	}

	err = s.step(ctx, StageDeleteOriginal, func(ctx context.Context) error {
		return s.store.Delete(ctx, evt.Bucket, evt.ObjectKey)
	})
	return appended, err
}

func (s *IngestionService) processOpaque(ctx context.Context, evt vo.UploadEvent, id vo.ObjectIdentity) (int, error) {
	var url string
	if err := s.step(ctx, StageSign, func(ctx context.Context) (err error) {
		url, err = s.store.SignedURL(ctx, evt.Bucket, evt.ObjectKey)
		return err
	}); err != nil {
		return 0, err
	}

	return s.appendToOwners(ctx, id.OwnerID, po.AttachmentRecord{
		Kind:             po.AttachmentKindFile,
		StorageReference: evt.ObjectKey,
		AttachmentID:     id.AttachmentID,
		FieldID:          id.FieldID,
		FileURL:          url,
	})
}

// signBoth 并发签发两个 URL 并一起等待。
func (s *IngestionService) signBoth(ctx context.Context, bucket, fullKey, thumbKey string) (string, string, error) {
	var fullURL, thumbURL string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		fullURL, err = s.store.SignedURL(gctx, bucket, fullKey)
		return err
	})
	g.Go(func() (err error) {
		thumbURL, err = s.store.SignedURL(gctx, bucket, thumbKey)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return fullURL, thumbURL, nil
}

// appendToOwners 默认写入全部匹配记录；requireSingleOwner 时要求恰好一条。
func (s *IngestionService) appendToOwners(ctx context.Context, ownerID string, record po.AttachmentRecord) (int, error) {
	var owners []po.OwnerRecord
	if err := s.step(ctx, StageLookup, func(ctx context.Context) (err error) {
		owners, err = s.records.FindOwners(ctx, ownerID)
		if err != nil || !s.requireSingleOwner {
			return err
		}
		switch len(owners) {
		case 1:
			return nil
		case 0:
			return fmt.Errorf("owner %s: %w", ownerID, repositories.ErrOwnerNotFound)
		default:
			return fmt.Errorf("owner %s matched %d records: %w", ownerID, len(owners), repositories.ErrAmbiguousOwner)
		}
	}); err != nil {
		return 0, err
	}

	if len(owners) == 0 {
		s.log.WithContext(ctx).Infof("uploads: no owner record for id=%s; nothing appended", ownerID)
		return 0, nil
	}

	appended := 0
	err := s.step(ctx, StageAppend, func(ctx context.Context) error {
		for _, owner := range owners {
			if _, err := s.records.Append(ctx, owner, record); err != nil {
				return err
			}
			appended++
		}
		return nil
	})
	return appended, err
}

// step 在独立 span 中执行一个阶段，失败时包装为 StageError。
func (s *IngestionService) step(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "ingest."+string(stage))
	defer span.End()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}

func (s *IngestionService) logOutcome(ctx context.Context, evt vo.UploadEvent, out Outcome) {
	helper := s.log.WithContext(ctx)
	switch out.Status {
	case StatusFailed:
		helper.Errorf("uploads: failed invocation=%s bucket=%s object=%s stage=%s duration=%s err=%v",
			out.InvocationID, evt.Bucket, evt.ObjectKey, out.Stage, out.Duration, out.Err)
	case StatusSkipped:
		helper.Infof("uploads: skipped invocation=%s bucket=%s object=%s reason=%s",
			out.InvocationID, evt.Bucket, evt.ObjectKey, out.Reason)
	default:
		helper.Infof("uploads: succeeded invocation=%s bucket=%s object=%s kind=%s appended=%d duration=%s",
			out.InvocationID, evt.Bucket, evt.ObjectKey, out.Decision.Kind, out.Appended, out.Duration)
	}
}
