package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/suzWaks/frs-fyp-mobileApp/internal/database"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/database/mock"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/embedder"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/facematch"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/imaging"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/recognition"
)

// fakeModel answers detection and embedding with fixed values.
type fakeModel struct {
	detections []embedder.Detection
	embedding  []float32
	err        error
}

func (m *fakeModel) DetectFaces(context.Context, []byte) ([]embedder.Detection, error) {
	return m.detections, m.err
}

func (m *fakeModel) Embed(context.Context, []byte) ([]float32, error) {
	return m.embedding, m.err
}

// faceModel returns a model that finds one face with the given embedding.
func faceModel(embedding ...float32) *fakeModel {
	return &fakeModel{
		detections: []embedder.Detection{{Box: imaging.BoundingBox{X: 4, Y: 4, Width: 24, Height: 24}, Confidence: 0.98}},
		embedding:  embedding,
	}
}

// setupFacesHandler creates a handler over a real service with in-memory storage.
func setupFacesHandler(t *testing.T, model recognition.FaceModel) (*FacesHandler, *mock.MockFaceStore) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	store := mock.NewMockFaceStore()
	engine := facematch.NewEngine(facematch.NewValidator(3, logger), logger)
	svc := recognition.NewService(model, store, engine, facematch.DefaultPolicy(), logger)
	return NewFacesHandler(svc, 1<<20, logger), store
}

// storedFace builds a stored record for seeding the mock store.
func storedFace(studentID, name string, raw facematch.RawEmbedding) database.StoredFace {
	return database.StoredFace{ID: uuid.New(), StudentID: studentID, StudentName: name, Embedding: raw}
}

// testImageBase64 returns a small JPEG as base64.
func testImageBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := range 32 {
		for x := range 32 {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: 90, B: uint8(y * 8), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// jsonRequest creates a request with a JSON body.
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%v'", expectedMessage, result["error"])
	}
}
