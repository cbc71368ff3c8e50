// Package embedder talks to the face model server, which runs face detection
// (MTCNN) and the FaceNet embedding model.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/suzWaks/frs-fyp-mobileApp/internal/facematch"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/imaging"
)

const (
	defaultURL     = "http://localhost:8000"
	defaultTimeout = 30 * time.Second
)

var (
	// ErrNoFace is returned when the detector finds no face in the image.
	ErrNoFace = errors.New("no face detected in the image")
	// ErrInvalidBox is returned when the detector reports a box without area.
	ErrInvalidBox = errors.New("invalid face bounding box detected")
)

// Detection is one face found by the detector.
type Detection struct {
	Box        imaging.BoundingBox
	Confidence float64
}

// Client calls the model server over HTTP. It holds no per-request state.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the model server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// detectResponse is the detector output; box is [x, y, width, height].
type detectResponse struct {
	Faces []struct {
		Box        []int   `json:"box"`
		Confidence float64 `json:"confidence"`
	} `json:"faces"`
}

// embeddingResponse represents the response from the embedding endpoint
type embeddingResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

// postMultipartImage posts the image as the "file" form field with a Content-Type
// detected from its magic bytes.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// DetectFaces returns the faces found in the image, in detector order.
func (c *Client) DetectFaces(ctx context.Context, imageData []byte) ([]Detection, error) {
	body, err := c.postMultipartImage(ctx, "/detect/face", imageData)
	if err != nil {
		return nil, fmt.Errorf("face detection: %w", err)
	}

	var detResp detectResponse
	if err := json.Unmarshal(body, &detResp); err != nil {
		return nil, fmt.Errorf("failed to parse detection response: %w", err)
	}

	detections := make([]Detection, 0, len(detResp.Faces))
	for i, f := range detResp.Faces {
		if len(f.Box) != 4 {
			return nil, fmt.Errorf("detection %d: box has %d values, want 4", i, len(f.Box))
		}
		detections = append(detections, Detection{
			Box:        imaging.BoundingBox{X: f.Box[0], Y: f.Box[1], Width: f.Box[2], Height: f.Box[3]},
			Confidence: f.Confidence,
		})
	}
	return detections, nil
}

// Embed computes the embedding of a normalized face crop. An unparsable or
// empty embedding is reported as facematch.ErrModelOutput.
func (c *Client) Embed(ctx context.Context, faceJPEG []byte) ([]float32, error) {
	body, err := c.postMultipartImage(ctx, "/embed/face", faceJPEG)
	if err != nil {
		return nil, fmt.Errorf("face embedding: %w", err)
	}

	var embResp embeddingResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("%w: %v", facematch.ErrModelOutput, err)
	}

	if len(embResp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", facematch.ErrModelOutput)
	}

	return embResp.Embedding, nil
}

// PrimaryFace picks the face the pipeline works on: the first detection.
func PrimaryFace(detections []Detection) (imaging.BoundingBox, error) {
	if len(detections) == 0 {
		return imaging.BoundingBox{}, ErrNoFace
	}
	box := detections[0].Box
	if !box.Valid() {
		return imaging.BoundingBox{}, fmt.Errorf("%w (%dx%d)", ErrInvalidBox, box.Width, box.Height)
	}
	return box, nil
}

// DuplicateOverlap is the IoU above which two detections are the same face.
const DuplicateOverlap = 0.5

// DistinctFaces counts detections that do not overlap an earlier valid one by
// more than overlap. Detectors sometimes report one face twice.
func DistinctFaces(detections []Detection, overlap float64) int {
	var kept []imaging.BoundingBox
	for _, d := range detections {
		if !d.Box.Valid() {
			continue
		}
		duplicate := false
		for _, k := range kept {
			if imaging.IoU(k, d.Box) > overlap {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, d.Box)
		}
	}
	return len(kept)
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// GIF: 47 49 46 38
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 {
		return "image/gif"
	}
	// WebP: 52 49 46 46 ... 57 45 42 50
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
