// Package po 定义写入文档库的持久化对象。
package po

// AttachmentKind 区分图片附件与普通文件附件。
type AttachmentKind string

const (
	AttachmentKindPhoto AttachmentKind = "photo"
	AttachmentKindFile  AttachmentKind = "file"
)

// OwnerRecord 描述一条归属记录（例如 report）在文档库中的位置。
type OwnerRecord struct {
	DocumentID string
	Path       string
}

// AttachmentRecord 为一次成功处理后追加到归属记录下的附件文档。
type AttachmentRecord struct {
	Kind AttachmentKind

	StorageReference      string
	StorageReferenceThumb string
	AttachmentID          string
	FieldID               string

	FileURL       string
	FullPhotoURL  string
	ThumbPhotoURL string
	PhotoWidth    int
	PhotoHeight   int
}

// PhotoDocument 为图片附件在 Firestore 中的文档形态。
type PhotoDocument struct {
	StorageReference      string `firestore:"storageReference"`
	StorageReferenceThumb string `firestore:"storageReferenceThumb"`
	FileID                string `firestore:"fileId"`
	FieldID               string `firestore:"fieldId"`
	FullPhotoURL          string `firestore:"fullPhotoUrl"`
	ThumbPhotoURL         string `firestore:"thumbPhotoUrl"`
	PhotoHeight           int    `firestore:"photoHeight"`
	PhotoWidth            int    `firestore:"photoWidth"`
}

// FileDocument 为非图片附件在 Firestore 中的文档形态。
type FileDocument struct {
	StorageReference string `firestore:"storageReference"`
	FileID           string `firestore:"fileId"`
	FieldID          string `firestore:"fieldId"`
	FileURL          string `firestore:"fileUrl"`
}
