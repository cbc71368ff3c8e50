package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRespondJSON(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		data     any
		wantBody string
	}{
		{"object", http.StatusOK, map[string]string{"status": "ok"}, "{\"status\":\"ok\"}\n"},
		{"empty map", http.StatusCreated, map[string]string{}, "{}\n"},
		{"array", http.StatusOK, []string{"one", "two"}, "[\"one\",\"two\"]\n"},
		{"nil data", http.StatusNoContent, nil, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			respondJSON(recorder, tc.status, tc.data)

			assertStatusCode(t, recorder, tc.status)
			assertContentType(t, recorder, "application/json")
			if recorder.Body.String() != tc.wantBody {
				t.Errorf("expected body %q, got %q", tc.wantBody, recorder.Body.String())
			}
		})
	}
}

func TestRespondError(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusConflict, http.StatusInternalServerError} {
		recorder := httptest.NewRecorder()
		respondError(recorder, status, "something went wrong")

		assertStatusCode(t, recorder, status)
		assertJSONError(t, recorder, "something went wrong")
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Image string `json:"image"`
	}

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/compare", strings.NewReader(`{"image":"abc"}`))
		recorder := httptest.NewRecorder()
		var dst body
		if !decodeJSON(recorder, req, 1024, &dst) {
			t.Fatalf("expected decode to succeed, body: %s", recorder.Body.String())
		}
		if dst.Image != "abc" {
			t.Errorf("expected image 'abc', got %q", dst.Image)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/compare", strings.NewReader(`{"image":`))
		recorder := httptest.NewRecorder()
		var dst body
		if decodeJSON(recorder, req, 1024, &dst) {
			t.Fatal("expected decode to fail")
		}
		assertStatusCode(t, recorder, http.StatusBadRequest)
		assertJSONError(t, recorder, errInvalidRequestBody)
	})

	t.Run("too large", func(t *testing.T) {
		payload := `{"image":"` + strings.Repeat("A", 200) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/compare", strings.NewReader(payload))
		recorder := httptest.NewRecorder()
		var dst body
		if decodeJSON(recorder, req, 64, &dst) {
			t.Fatal("expected decode to fail")
		}
		assertStatusCode(t, recorder, http.StatusRequestEntityTooLarge)
	})
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("line1\nline2\r"); got != "line1line2" {
		t.Errorf("unexpected sanitized value %q", got)
	}
}

func TestHealthCheck(t *testing.T) {
	for _, method := range []string{"GET", "POST", "HEAD"} {
		t.Run(method, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			HealthCheck(recorder, httptest.NewRequest(method, "/api/v1/health", nil))

			assertStatusCode(t, recorder, http.StatusOK)
			assertContentType(t, recorder, "application/json")

			var result map[string]string
			if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if result["status"] != "ok" {
				t.Errorf("expected status 'ok', got '%s'", result["status"])
			}
		})
	}
}

func TestHome(t *testing.T) {
	recorder := httptest.NewRecorder()
	Home(recorder, httptest.NewRequest("GET", "/", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	if recorder.Body.String() != Banner {
		t.Errorf("unexpected banner %q", recorder.Body.String())
	}
}
