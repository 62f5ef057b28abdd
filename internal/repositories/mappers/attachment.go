// Package mappers 负责持久化对象与 Firestore 文档之间的转换。
package mappers

import (
	"path"

	"cloud.google.com/go/firestore"

	"github.com/bionicotaku/attachment-ingest/internal/models/po"
)

// AttachmentDocument 按附件类型返回待写入的 Firestore 文档。
func AttachmentDocument(rec po.AttachmentRecord) any {
	if rec.Kind == po.AttachmentKindPhoto {
		return po.PhotoDocument{
			StorageReference:      rec.StorageReference,
			StorageReferenceThumb: rec.StorageReferenceThumb,
			FileID:                rec.AttachmentID,
			FieldID:               rec.FieldID,
			FullPhotoURL:          rec.FullPhotoURL,
			ThumbPhotoURL:         rec.ThumbPhotoURL,
			PhotoHeight:           rec.PhotoHeight,
			PhotoWidth:            rec.PhotoWidth,
		}
	}
	return po.FileDocument{
		StorageReference: rec.StorageReference,
		FileID:           rec.AttachmentID,
		FieldID:          rec.FieldID,
		FileURL:          rec.FileURL,
	}
}

// OwnerFromSnapshot 将查询结果转换为归属记录，Path 为相对数据库根的文档路径。
func OwnerFromSnapshot(collection string, snap *firestore.DocumentSnapshot) po.OwnerRecord {
	if snap == nil || snap.Ref == nil {
		return po.OwnerRecord{}
	}
	return po.OwnerRecord{
		DocumentID: snap.Ref.ID,
		Path:       path.Join(collection, snap.Ref.ID),
	}
}
