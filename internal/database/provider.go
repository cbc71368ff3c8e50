package database

import (
	"errors"
	"sync"
)

var (
	backendStore FaceStore
	backendName  string
	backendMu    sync.RWMutex
)

// RegisterBackend makes store the active face storage backend.
// This is called by the backend packages to avoid import cycles.
func RegisterBackend(name string, store FaceStore) {
	backendMu.Lock()
	defer backendMu.Unlock()
	backendStore = store
	backendName = name
}

// GetFaceStore returns the active backend.
func GetFaceStore() (FaceStore, error) {
	backendMu.RLock()
	defer backendMu.RUnlock()
	if backendStore == nil {
		return nil, errors.New("storage backend not initialized: DATABASE_URL is required")
	}
	return backendStore, nil
}

// BackendName returns the name of the active backend, empty if none.
func BackendName() string {
	backendMu.RLock()
	defer backendMu.RUnlock()
	return backendName
}
