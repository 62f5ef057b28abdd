package repositories

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/go-kratos/kratos/v2/log"
	"google.golang.org/api/iterator"

	"github.com/bionicotaku/attachment-ingest/internal/infrastructure/configloader"
	"github.com/bionicotaku/attachment-ingest/internal/models/po"
	"github.com/bionicotaku/attachment-ingest/internal/repositories/mappers"
)

var (
	// ErrOwnerNotFound 表示按 owner id 未查到任何归属记录。
	ErrOwnerNotFound = errors.New("owner record not found")
	// ErrAmbiguousOwner 表示单一归属模式下匹配到多条记录。
	ErrAmbiguousOwner = errors.New("owner id matches more than one record")
)

// AttachmentRepository 负责在 Firestore 中定位归属记录并追加附件文档。
type AttachmentRepository struct {
	client      *firestore.Client
	owners      string
	idField     string
	attachments string
	log         *log.Helper
}

// NewAttachmentRepository 构造 AttachmentRepository。
func NewAttachmentRepository(client *firestore.Client, cfg configloader.FirestoreConfig, logger log.Logger) (*AttachmentRepository, error) {
	if client == nil {
		return nil, errors.New("attachment repository: firestore client is required")
	}
	return &AttachmentRepository{
		client:      client,
		owners:      firstNonEmpty(cfg.OwnersCollection, "reports"),
		idField:     firstNonEmpty(cfg.OwnerIDField, "id"),
		attachments: firstNonEmpty(cfg.AttachmentsCollection, "files"),
		log:         log.NewHelper(logger),
	}, nil
}

// FindOwners 返回 id 字段等于 ownerID 的全部归属记录；未命中时返回空切片。
func (r *AttachmentRepository) FindOwners(ctx context.Context, ownerID string) ([]po.OwnerRecord, error) {
	iter := r.client.Collection(r.owners).Where(r.idField, "==", ownerID).Documents(ctx)
	defer iter.Stop()

	var owners []po.OwnerRecord
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			r.log.WithContext(ctx).Errorf("query owners failed: collection=%s owner_id=%s err=%v", r.owners, ownerID, err)
			return nil, fmt.Errorf("query owners %s: %w", ownerID, err)
		}
		owners = append(owners, mappers.OwnerFromSnapshot(r.owners, snap))
	}
	return owners, nil
}

// Append 在归属记录的附件子集合下新增一条文档，返回新文档 ID。
func (r *AttachmentRepository) Append(ctx context.Context, owner po.OwnerRecord, record po.AttachmentRecord) (string, error) {
	ownerRef := r.ownerRef(owner)
	if ownerRef == nil {
		return "", fmt.Errorf("append attachment: invalid owner %+v", owner)
	}
	ref, _, err := ownerRef.Collection(r.attachments).Add(ctx, mappers.AttachmentDocument(record))
	if err != nil {
		r.log.WithContext(ctx).Errorf("append attachment failed: owner=%s attachment_id=%s err=%v", owner.DocumentID, record.AttachmentID, err)
		return "", fmt.Errorf("append attachment to %s: %w", owner.DocumentID, err)
	}
	return ref.ID, nil
}

func (r *AttachmentRepository) ownerRef(owner po.OwnerRecord) *firestore.DocumentRef {
	if owner.Path != "" {
		return r.client.Doc(owner.Path)
	}
	if owner.DocumentID != "" {
		return r.client.Collection(r.owners).Doc(owner.DocumentID)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
