package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/suzWaks/frs-fyp-mobileApp/internal/facematch"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/recognition"
)

func TestFacesHandler_RegisterSuccess(t *testing.T) {
	handler, store := setupFacesHandler(t, faceModel(1, 0, 0))

	req := jsonRequest(t, "POST", "/recognize", map[string]string{
		"image":       testImageBase64(t),
		"studentId":   "02230123",
		"studentName": "Tashi Dema",
	})
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["success"] != true {
		t.Errorf("expected success true, got %v", result["success"])
	}
	if result["message"] != facematch.MsgRegistered {
		t.Errorf("expected message %q, got %v", facematch.MsgRegistered, result["message"])
	}
	if id, _ := result["registration_id"].(string); id == "" {
		t.Error("expected registration_id")
	}

	if n, _ := store.Count(context.Background()); n != 1 {
		t.Errorf("expected 1 stored face, got %d", n)
	}
}

func TestFacesHandler_RegisterDuplicate(t *testing.T) {
	handler, store := setupFacesHandler(t, faceModel(0, 1, 0))
	store.AddFace(storedFace("1", "Pema", facematch.EncodedEmbedding("[0, 1, 0]")))

	req := jsonRequest(t, "POST", "/recognize", map[string]string{
		"image":       testImageBase64(t),
		"studentId":   "2",
		"studentName": "Someone Else",
	})
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)

	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["success"] != false {
		t.Errorf("expected success false, got %v", result["success"])
	}
	if result["message"] != "You cannot register your face twice." {
		t.Errorf("unexpected message %v", result["message"])
	}
	if _, ok := result["registration_id"]; ok {
		t.Error("expected no registration_id for a rejected face")
	}
}

func TestFacesHandler_RegisterErrors(t *testing.T) {
	tests := []struct {
		name       string
		model      *fakeModel
		body       map[string]string
		seed       bool
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing fields",
			model:      faceModel(1, 0, 0),
			body:       map[string]string{"studentId": "1"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing image, student ID, or student name",
		},
		{
			name:       "no face",
			model:      &fakeModel{},
			body:       map[string]string{"studentId": "1", "studentName": "A"},
			wantStatus: http.StatusBadRequest,
			wantError:  "No face detected in the image.",
		},
		{
			name:       "model output",
			model:      faceModel(1, 0),
			body:       map[string]string{"studentId": "1", "studentName": "A"},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "student id taken",
			model:      faceModel(0, 0, 1),
			body:       map[string]string{"studentId": "taken", "studentName": "A"},
			seed:       true,
			wantStatus: http.StatusConflict,
			wantError:  "student already registered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, store := setupFacesHandler(t, tt.model)
			if tt.seed {
				store.AddFace(storedFace("taken", "B", facematch.ValuesEmbedding([]float32{1, 0, 0})))
			}
			if tt.name != "missing fields" {
				tt.body["image"] = testImageBase64(t)
			}

			recorder := httptest.NewRecorder()
			handler.Register(recorder, jsonRequest(t, "POST", "/recognize", tt.body))

			assertStatusCode(t, recorder, tt.wantStatus)
			if tt.wantError != "" {
				assertJSONError(t, recorder, tt.wantError)
			}
		})
	}
}

func TestFacesHandler_RecognizeMatched(t *testing.T) {
	handler, store := setupFacesHandler(t, faceModel(1, 0, 0))
	store.AddFace(storedFace("far", "Far Away", facematch.ValuesEmbedding([]float32{0.3, 0.953939, 0})))
	store.AddFace(storedFace("near", "Karma Wangchuk", facematch.ValuesEmbedding([]float32{0.9, 0.435890, 0})))
	store.AddFace(storedFace("broken", "Broken", facematch.EncodedEmbedding("[NaN, 1, 0]")))

	recorder := httptest.NewRecorder()
	handler.Recognize(recorder, jsonRequest(t, "POST", "/compare", map[string]string{"image": testImageBase64(t)}))

	assertStatusCode(t, recorder, http.StatusOK)

	var result recognizeResponse
	parseJSONResponse(t, recorder, &result)
	if !result.Success || result.Matched == nil || !*result.Matched {
		t.Fatalf("expected a match, got %+v", result)
	}
	if result.BestMatch.StudentID != "near" {
		t.Errorf("expected best match 'near', got %q", result.BestMatch.StudentID)
	}
	if result.Message != "Face matched with student: Karma Wangchuk" {
		t.Errorf("unexpected message %q", result.Message)
	}
	if len(result.AllMatches) != 2 {
		t.Errorf("expected 2 comparisons, got %d", len(result.AllMatches))
	}
}

func TestFacesHandler_RecognizeBelowThreshold(t *testing.T) {
	handler, store := setupFacesHandler(t, faceModel(1, 0, 0))
	store.AddFace(storedFace("x", "X", facematch.ValuesEmbedding([]float32{0, 1, 0})))

	recorder := httptest.NewRecorder()
	handler.Recognize(recorder, jsonRequest(t, "POST", "/compare", map[string]string{"image": testImageBase64(t)}))

	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["success"] != true || result["matched"] != false {
		t.Errorf("expected success without match, got %v", result)
	}
	if result["message"] != facematch.MsgNoMatch {
		t.Errorf("unexpected message %v", result["message"])
	}
	if _, ok := result["best_match"]; !ok {
		t.Error("expected best_match to be reported")
	}
}

func TestFacesHandler_RecognizeNoData(t *testing.T) {
	handler, store := setupFacesHandler(t, faceModel(1, 0, 0))
	store.AddFace(storedFace("bad", "Bad", facematch.EncodedEmbedding("garbage")))

	recorder := httptest.NewRecorder()
	handler.Recognize(recorder, jsonRequest(t, "POST", "/compare", map[string]string{"image": testImageBase64(t)}))

	assertStatusCode(t, recorder, http.StatusOK)

	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["success"] != false {
		t.Errorf("expected success false, got %v", result["success"])
	}
	if result["hint"] != facematch.HintNoData {
		t.Errorf("unexpected hint %v", result["hint"])
	}
	for _, key := range []string{"matched", "best_match", "all_matches"} {
		if _, ok := result[key]; ok {
			t.Errorf("unexpected key %q in no-data response", key)
		}
	}
}

func TestFacesHandler_RecognizeMissingImage(t *testing.T) {
	handler, _ := setupFacesHandler(t, faceModel(1, 0, 0))

	recorder := httptest.NewRecorder()
	handler.Recognize(recorder, jsonRequest(t, "POST", "/compare", map[string]string{}))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "No image provided")
}

func TestFacesHandler_StorageFailure(t *testing.T) {
	handler, store := setupFacesHandler(t, faceModel(1, 0, 0))
	store.ListError = errors.New("connection refused")

	recorder := httptest.NewRecorder()
	handler.Recognize(recorder, jsonRequest(t, "POST", "/compare", map[string]string{"image": testImageBase64(t)}))

	assertStatusCode(t, recorder, http.StatusInternalServerError)

	var result map[string]any
	parseJSONResponse(t, recorder, &result)
	if result["success"] != false || result["error"] == nil {
		t.Errorf("expected success false with error, got %v", result)
	}
}

func TestFacesHandler_Debug(t *testing.T) {
	handler, store := setupFacesHandler(t, faceModel(1, 0, 0))
	store.AddFace(storedFace("ok", "Ok", facematch.MappingEmbedding(map[string]float64{"0": 0.1, "1": 0.2, "2": 0.3})))
	store.AddFace(storedFace("null", "Null", facematch.NullEmbedding()))

	recorder := httptest.NewRecorder()
	handler.Debug(recorder, httptest.NewRequest("GET", "/debug_embeddings", nil))

	assertStatusCode(t, recorder, http.StatusOK)

	var result []debugEntry
	parseJSONResponse(t, recorder, &result)
	if len(result) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(result))
	}
	if result[0].StudentID != "ok" || len(result[0].Sample) != 3 || result[0].Error != "" {
		t.Errorf("unexpected valid entry %+v", result[0])
	}
	if result[1].Error == "" || result[1].Sample != nil {
		t.Errorf("unexpected invalid entry %+v", result[1])
	}
}

func TestFacesHandler_Stats(t *testing.T) {
	handler, store := setupFacesHandler(t, faceModel(1, 0, 0))
	store.AddFace(storedFace("ok", "Ok", facematch.ValuesEmbedding([]float32{1, 0, 0})))
	store.AddFace(storedFace("bad", "Bad", facematch.EncodedEmbedding("[1]")))

	recorder := httptest.NewRecorder()
	handler.Stats(recorder, httptest.NewRequest("GET", "/api/v1/faces/stats", nil))

	assertStatusCode(t, recorder, http.StatusOK)

	var result recognition.Stats
	parseJSONResponse(t, recorder, &result)
	if result.Total != 2 || result.Valid != 1 || result.Invalid != 1 {
		t.Errorf("unexpected stats %+v", result)
	}
	if result.Dimension != 3 || result.Threshold != facematch.DefaultThreshold {
		t.Errorf("unexpected configuration in stats %+v", result)
	}
}
