// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/suzWaks/frs-fyp-mobileApp/internal/database"
)

// MockFaceStore is an in-memory database.FaceStore. RegisterFace holds the
// store lock for the whole check-then-insert, like the real backends.
type MockFaceStore struct {
	mu    sync.RWMutex
	faces []database.StoredFace

	// Error injection
	ListError     error
	CountError    error
	GetError      error
	InsertError   error
	RegisterError error

	// Calls counts RegisterFace invocations.
	Calls int
}

// NewMockFaceStore creates a new empty mock store
func NewMockFaceStore() *MockFaceStore {
	return &MockFaceStore{}
}

// AddFace adds a face to the mock store, bypassing every check
func (m *MockFaceStore) AddFace(face database.StoredFace) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if face.CreatedAt.IsZero() {
		face.CreatedAt = time.Now()
	}
	m.faces = append(m.faces, face)
}

// ListFaces returns all faces in insertion order
func (m *MockFaceStore) ListFaces(ctx context.Context) ([]database.StoredFace, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.faces), nil
}

// Count returns the number of stored faces
func (m *MockFaceStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.faces), nil
}

// GetFace returns the face for a student id, nil if none
func (m *MockFaceStore) GetFace(ctx context.Context, studentID string) (*database.StoredFace, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, f := range m.faces {
		if f.StudentID == studentID {
			return &f, nil
		}
	}
	return nil, nil
}

// InsertFace stores a face, rejecting a taken student id
func (m *MockFaceStore) InsertFace(ctx context.Context, face database.StoredFace) error {
	if m.InsertError != nil {
		return m.InsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(face)
}

func (m *MockFaceStore) insertLocked(face database.StoredFace) error {
	for _, f := range m.faces {
		if f.StudentID == face.StudentID {
			return fmt.Errorf("insert face %s: %w", face.StudentID, database.ErrStudentExists)
		}
	}
	if face.CreatedAt.IsZero() {
		face.CreatedAt = time.Now()
	}
	m.faces = append(m.faces, face)
	return nil
}

// RegisterFace runs decide on a snapshot and inserts when it approves
func (m *MockFaceStore) RegisterFace(ctx context.Context, face database.StoredFace, decide database.DecideFunc) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++

	if m.RegisterError != nil {
		return false, m.RegisterError
	}

	ok, err := decide(ctx, slices.Clone(m.faces))
	if err != nil || !ok {
		return false, err
	}
	if m.InsertError != nil {
		return false, m.InsertError
	}
	if err := m.insertLocked(face); err != nil {
		return false, err
	}
	return true, nil
}

var _ database.FaceStore = (*MockFaceStore)(nil)
