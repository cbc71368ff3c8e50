package database

import (
	"context"
	"errors"
)

// ErrStudentExists is returned when a face is already registered under the student id.
var ErrStudentExists = errors.New("student already registered")

// FaceReader provides read-only access to registered faces
type FaceReader interface {
	// ListFaces returns every stored face in registration order
	ListFaces(ctx context.Context) ([]StoredFace, error)
	// Count returns the total number of faces stored
	Count(ctx context.Context) (int, error)
	// GetFace returns the face registered for a student, nil if none
	GetFace(ctx context.Context, studentID string) (*StoredFace, error)
}

// FaceWriter inserts faces without any duplicate check
type FaceWriter interface {
	// InsertFace stores a new face; ErrStudentExists if the student id is taken
	InsertFace(ctx context.Context, face StoredFace) error
}

// DecideFunc inspects the corpus and reports whether the new face may be stored.
type DecideFunc func(ctx context.Context, corpus []StoredFace) (bool, error)

// FaceRegistrar runs check-then-insert as one serialized step, so two concurrent
// registrations of the same face cannot both pass the duplicate check.
type FaceRegistrar interface {
	// RegisterFace reads the corpus, calls decide and inserts face only when decide
	// returns true. It reports whether the face was stored.
	RegisterFace(ctx context.Context, face StoredFace, decide DecideFunc) (bool, error)
}

// FaceStore is everything a storage backend provides.
type FaceStore interface {
	FaceReader
	FaceWriter
	FaceRegistrar
}
