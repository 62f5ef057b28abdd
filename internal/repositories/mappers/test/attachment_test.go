package mappers_test

import (
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bionicotaku/attachment-ingest/internal/models/po"
	"github.com/bionicotaku/attachment-ingest/internal/repositories/mappers"
)

func TestAttachmentDocument(t *testing.T) {
	tests := []struct {
		name     string
		input    po.AttachmentRecord
		expected any
	}{
		{
			name: "图片附件",
			input: po.AttachmentRecord{
				Kind:                  po.AttachmentKindPhoto,
				StorageReference:      "a/b/R1/F1/A1/full_photo.jpg",
				StorageReferenceThumb: "a/b/R1/F1/A1/thumb_photo.jpg",
				AttachmentID:          "A1",
				FieldID:               "F1",
				FullPhotoURL:          "u1",
				ThumbPhotoURL:         "u2",
				PhotoWidth:            1800,
				PhotoHeight:           900,
			},
			expected: po.PhotoDocument{
				StorageReference:      "a/b/R1/F1/A1/full_photo.jpg",
				StorageReferenceThumb: "a/b/R1/F1/A1/thumb_photo.jpg",
				FileID:                "A1",
				FieldID:               "F1",
				FullPhotoURL:          "u1",
				ThumbPhotoURL:         "u2",
				PhotoHeight:           900,
				PhotoWidth:            1800,
			},
		},
		{
			name: "普通文件附件",
			input: po.AttachmentRecord{
				Kind:             po.AttachmentKindFile,
				StorageReference: "a/b/R1/F1/A2/report.pdf",
				AttachmentID:     "A2",
				FieldID:          "F1",
				FileURL:          "u3",
			},
			expected: po.FileDocument{
				StorageReference: "a/b/R1/F1/A2/report.pdf",
				FileID:           "A2",
				FieldID:          "F1",
				FileURL:          "u3",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mappers.AttachmentDocument(tt.input))
		})
	}
}

func TestOwnerFromSnapshot(t *testing.T) {
	snap := &firestore.DocumentSnapshot{Ref: &firestore.DocumentRef{ID: "doc-1"}}
	owner := mappers.OwnerFromSnapshot("reports", snap)
	require.Equal(t, "doc-1", owner.DocumentID)
	require.Equal(t, "reports/doc-1", owner.Path)

	require.Equal(t, po.OwnerRecord{}, mappers.OwnerFromSnapshot("reports", nil))
}
