package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/suzWaks/frs-fyp-mobileApp/internal/database"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/facematch"
)

// duplicateEntry is the MySQL error number for unique key violations.
const duplicateEntry = 1062

const selectFaces = `
	SELECT id, student_id, student_name, embedding, created_at
	FROM face_data
`

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// FaceRepository provides MariaDB-backed face storage.
type FaceRepository struct {
	pool *Pool
}

// NewFaceRepository creates a new MariaDB face repository.
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
	if err := r.pool.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM face_data").Scan(&count); err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return count, nil
}

// GetFace returns the face registered for a student, nil if none.
func (r *FaceRepository) GetFace(ctx context.Context, studentID string) (*database.StoredFace, error) {
	row := r.pool.db.QueryRowContext(ctx, selectFaces+" WHERE student_id = ?", studentID)
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

// RegisterFace holds a named lock on a single connection while the duplicate
// check and insert run, so concurrent registrations see each other.
func (r *FaceRepository) RegisterFace(ctx context.Context, face database.StoredFace, decide database.DecideFunc) (bool, error) {
	conn, err := r.pool.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	var acquired sql.NullInt64
	err = conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)",
		database.RegistrationLockName, database.RegistrationLockTimeoutSeconds).Scan(&acquired)
	if err != nil {
		return false, fmt.Errorf("acquire registration lock: %w", err)
	}
	if !acquired.Valid || acquired.Int64 != 1 {
		return false, errors.New("acquire registration lock: timed out")
	}
	defer conn.ExecContext(context.WithoutCancel(ctx), "SELECT RELEASE_LOCK(?)", database.RegistrationLockName)

	corpus, err := listFaces(ctx, conn)
	if err != nil {
		return false, err
	}

	ok, err := decide(ctx, corpus)
	if err != nil || !ok {
		return false, err
	}

	if err := insertFace(ctx, conn, face); err != nil {
		return false, err
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
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO face_data (id, student_id, student_name, embedding)
		VALUES (?, ?, ?, ?)
	`, face.ID.String(), face.StudentID, face.StudentName, string(data))
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == duplicateEntry {
			return fmt.Errorf("insert face %s: %w", face.StudentID, database.ErrStudentExists)
		}
		return fmt.Errorf("insert face %s: %w", face.StudentID, err)
	}
	return nil
}

// scanFaceRow scans one face_data row. The JSON text is handed to the
// validator untouched; a NULL column carries a null embedding.
func scanFaceRow(scanner interface{ Scan(...any) error }) (database.StoredFace, error) {
	var face database.StoredFace
	var embedding sql.NullString

	if err := scanner.Scan(&face.ID, &face.StudentID, &face.StudentName, &embedding, &face.CreatedAt); err != nil {
		return database.StoredFace{}, fmt.Errorf("scan face: %w", err)
	}

	if embedding.Valid {
		face.Embedding = facematch.EncodedEmbedding(embedding.String)
	} else {
		face.Embedding = facematch.NullEmbedding()
	}
	return face, nil
}

var _ database.FaceStore = (*FaceRepository)(nil)
