package database

import (
	"time"

	"github.com/google/uuid"

	"github.com/suzWaks/frs-fyp-mobileApp/internal/facematch"
)

// StoredFace is a registered student face. Rows are written once and never updated.
type StoredFace struct {
	ID          uuid.UUID
	StudentID   string
	StudentName string
	Embedding   facematch.RawEmbedding
	CreatedAt   time.Time
}

// Record converts the stored face into the form the match engine scans.
func (f StoredFace) Record() facematch.Record {
	return facematch.Record{
		Identity:    f.StudentID,
		DisplayName: f.StudentName,
		Raw:         f.Embedding,
	}
}

// Records converts a corpus snapshot, keeping its order.
func Records(faces []StoredFace) []facematch.Record {
	records := make([]facematch.Record, len(faces))
	for i, f := range faces {
		records[i] = f.Record()
	}
	return records
}
