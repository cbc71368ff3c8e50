package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/suzWaks/frs-fyp-mobileApp/internal/database"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/facematch"
)

// uniqueViolation is the SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

const selectFaces = `
	SELECT id, student_id, student_name, embedding, legacy_embedding::text, created_at
	FROM face_data
`

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// FaceRepository provides PostgreSQL-backed face storage.
type FaceRepository struct {
	pool *Pool
}

// NewFaceRepository creates a new PostgreSQL face repository.
func NewFaceRepository(pool *Pool) *FaceRepository {
	return &FaceRepository{pool: pool}
}

// ListFaces returns every stored face in registration order.
func (r *FaceRepository) ListFaces(ctx context.Context) ([]database.StoredFace, error) {
	return listFaces(ctx, r.pool.db)
}

// Count returns the total number of faces stored.
func (r *FaceRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM face_data").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

// GetFace returns the face registered for a student, nil if none.
func (r *FaceRepository) GetFace(ctx context.Context, studentID string) (*database.StoredFace, error) {
	row := r.pool.QueryRow(ctx, selectFaces+" WHERE student_id = $1", studentID)
	face, err := scanFaceRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get face %s: %w", studentID, err)
	}
	return &face, nil
}

// InsertFace stores a new face without a duplicate check.
func (r *FaceRepository) InsertFace(ctx context.Context, face database.StoredFace) error {
	return insertFace(ctx, r.pool.db, face)
}

// RegisterFace runs the duplicate check and insert in one transaction under a
// transaction-scoped advisory lock, so concurrent registrations see each other.
func (r *FaceRepository) RegisterFace(ctx context.Context, face database.StoredFace, decide database.DecideFunc) (bool, error) {
	tx, err := r.pool.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", database.RegistrationLockKey); err != nil {
		return false, fmt.Errorf("acquire registration lock: %w", err)
	}

	corpus, err := listFaces(ctx, tx)
	if err != nil {
		return false, err
	}

	ok, err := decide(ctx, corpus)
	if err != nil || !ok {
		return false, err
	}

	if err := insertFace(ctx, tx, face); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit registration: %w", err)
	}
	return true, nil
}

func listFaces(ctx context.Context, q querier) ([]database.StoredFace, error) {
	rows, err := q.QueryContext(ctx, selectFaces+" ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("query faces: %w", err)
	}
	defer rows.Close()

	var faces []database.StoredFace
	for rows.Next() {
		face, err := scanFaceRow(rows)
		if err != nil {
			return nil, err
		}
		faces = append(faces, face)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faces: %w", err)
	}
	return faces, nil
}

func insertFace(ctx context.Context, q querier, face database.StoredFace) error {
	values, ok := face.Embedding.Values()
	if !ok {
		return fmt.Errorf("insert face %s: embedding must be numeric, got %s", face.StudentID, face.Embedding.Kind())
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO face_data (id, student_id, student_name, embedding)
		VALUES ($1, $2, $3, $4)
	`, face.ID, face.StudentID, face.StudentName, pgvector.NewVector(values))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("insert face %s: %w", face.StudentID, database.ErrStudentExists)
		}
		return fmt.Errorf("insert face %s: %w", face.StudentID, err)
	}
	return nil
}

// scanFaceRow scans one face_data row. The pgvector column wins over the legacy
// JSON column; a row with neither carries a null embedding.
func scanFaceRow(scanner interface{ Scan(...any) error }) (database.StoredFace, error) {
	var face database.StoredFace
	var vec *pgvector.Vector
	var legacy sql.NullString

	if err := scanner.Scan(&face.ID, &face.StudentID, &face.StudentName, &vec, &legacy, &face.CreatedAt); err != nil {
		return database.StoredFace{}, fmt.Errorf("scan face: %w", err)
	}

	switch {
	case vec != nil:
		face.Embedding = facematch.ValuesEmbedding(vec.Slice())
	case legacy.Valid:
		face.Embedding = facematch.EncodedEmbedding(legacy.String)
	default:
		face.Embedding = facematch.NullEmbedding()
	}
	return face, nil
}

var _ database.FaceStore = (*FaceRepository)(nil)
