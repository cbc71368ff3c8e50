// Package recognition runs the registration and recognition pipelines:
// image decoding, face detection, embedding and the match engine on top of
// the face store.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/suzWaks/frs-fyp-mobileApp/internal/database"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/embedder"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/facematch"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/imaging"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/metrics"
)

// Operation names used in logs and metrics.
const (
	OpRegister  = "register"
	OpRecognize = "recognize"
)

// sampleSize is how many leading values Inspect reports per record.
const sampleSize = 5

// FaceModel detects faces and computes embeddings. *embedder.Client satisfies it.
type FaceModel interface {
	DetectFaces(ctx context.Context, imageData []byte) ([]embedder.Detection, error)
	Embed(ctx context.Context, faceJPEG []byte) ([]float32, error)
}

// RegisterRequest is a registration as sent by the client. Image is base64.
type RegisterRequest struct {
	Image       string
	StudentID   string
	StudentName string
}

// RegisterResult is the decision for a registration. RegistrationID is set
// only when the face was stored.
type RegisterResult struct {
	Outcome        facematch.Outcome
	RegistrationID uuid.UUID
}

// Inspection is the debug view of one stored record.
type Inspection struct {
	StudentID   string
	StudentName string
	Sample      []float32
	Err         error
}

// Stats summarizes the stored corpus.
type Stats struct {
	Backend   string  `json:"backend"`
	Total     int     `json:"total"`
	Valid     int     `json:"valid"`
	Invalid   int     `json:"invalid"`
	Dimension int     `json:"dimension"`
	Threshold float64 `json:"threshold"`
}

// Service wires the face model, the store and the match engine together.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	model  FaceModel
	store  database.FaceStore
	engine *facematch.Engine
	policy facematch.Policy
	logger logrus.FieldLogger
}

// NewService creates a service.
func NewService(model FaceModel, store database.FaceStore, engine *facematch.Engine, policy facematch.Policy, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		model:  model,
		store:  store,
		engine: engine,
		policy: policy,
		logger: logger,
	}
}

// Register decodes the request image and registers it.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	if strings.TrimSpace(req.Image) == "" || strings.TrimSpace(req.StudentID) == "" || strings.TrimSpace(req.StudentName) == "" {
		return s.registerFailed(inputError(MsgMissingRegistration, nil))
	}
	data, err := imaging.DecodeBase64(req.Image)
	if err != nil {
		return s.registerFailed(inputError(MsgInvalidImage, err))
	}
	return s.RegisterImage(ctx, data, req.StudentID, req.StudentName)
}

// RegisterImage registers the primary face of an image for a student. The
// duplicate check and insert run as one serialized step in the store.
func (s *Service) RegisterImage(ctx context.Context, data []byte, studentID, studentName string) (RegisterResult, error) {
	studentID = strings.TrimSpace(studentID)
	studentName = facematch.CleanDisplayName(studentName)
	if studentID == "" || studentName == "" || len(data) == 0 {
		return s.registerFailed(inputError(MsgMissingRegistration, nil))
	}
	if len(studentID) > database.MaxStudentIDLength {
		return s.registerFailed(inputError(MsgStudentIDTooLong, nil))
	}

	query, err := s.embedImage(ctx, data)
	if err != nil {
		return s.registerFailed(err)
	}

	face := database.StoredFace{
		ID:          uuid.New(),
		StudentID:   studentID,
		StudentName: studentName,
		Embedding:   facematch.ValuesEmbedding(query),
	}

	var outcome facematch.Outcome
	stored, err := s.store.RegisterFace(ctx, face, func(ctx context.Context, corpus []database.StoredFace) (bool, error) {
		highest, found, err := s.engine.CheckDuplicate(ctx, query, database.Records(corpus))
		if err != nil {
			return false, err
		}
		outcome = s.policy.DecideRegistration(studentID, highest, found)
		return outcome.Kind == facematch.OutcomeRegistered, nil
	})
	if err != nil {
		return s.registerFailed(storageError(ctx, err))
	}

	log := s.logger.WithFields(logrus.Fields{
		"operation":  OpRegister,
		"student_id": studentID,
		"outcome":    outcome.Kind,
	})
	if outcome.HasScore {
		log = log.WithField("highest", outcome.HighestScore)
	}
	log.Info("registration decided")
	metrics.ObserveOutcome(OpRegister, string(outcome.Kind), outcome.HighestScore, outcome.HasScore)

	res := RegisterResult{Outcome: outcome}
	if stored {
		res.RegistrationID = face.ID
	}
	return res, nil
}

// Recognize decodes the request image and recognizes it.
func (s *Service) Recognize(ctx context.Context, image string) (facematch.Outcome, error) {
	if strings.TrimSpace(image) == "" {
		return s.recognizeFailed(inputError(MsgMissingImage, nil))
	}
	data, err := imaging.DecodeBase64(image)
	if err != nil {
		return s.recognizeFailed(inputError(MsgInvalidImage, err))
	}
	return s.RecognizeImage(ctx, data)
}

// RecognizeImage ranks every valid stored face against the primary face of the image.
func (s *Service) RecognizeImage(ctx context.Context, data []byte) (facematch.Outcome, error) {
	if len(data) == 0 {
		return s.recognizeFailed(inputError(MsgMissingImage, nil))
	}

	query, err := s.embedImage(ctx, data)
	if err != nil {
		return s.recognizeFailed(err)
	}

	faces, err := s.store.ListFaces(ctx)
	if err != nil {
		return s.recognizeFailed(storageError(ctx, err))
	}

	ranked, err := s.engine.FindBest(ctx, query, database.Records(faces))
	if err != nil {
		return s.recognizeFailed(err)
	}
	outcome := s.policy.DecideRecognition(ranked)

	log := s.logger.WithFields(logrus.Fields{
		"operation": OpRecognize,
		"outcome":   outcome.Kind,
		"compared":  len(ranked),
	})
	if outcome.Best != nil {
		log = log.WithFields(logrus.Fields{
			"best":       outcome.Best.Identity,
			"similarity": outcome.Best.Score,
		})
	}
	log.Info("recognition decided")
	metrics.ObserveOutcome(OpRecognize, string(outcome.Kind), outcome.HighestScore, outcome.HasScore)

	return outcome, nil
}

// Inspect validates every stored record and returns a short sample of each
// usable vector, or the reason it is skipped.
func (s *Service) Inspect(ctx context.Context) ([]Inspection, error) {
	faces, err := s.store.ListFaces(ctx)
	if err != nil {
		return nil, storageError(ctx, err)
	}

	v := s.engine.Validator()
	out := make([]Inspection, 0, len(faces))
	for _, f := range faces {
		in := Inspection{StudentID: f.StudentID, StudentName: f.StudentName}
		emb, err := v.Validate(f.Embedding)
		if err != nil {
			in.Err = err
		} else {
			in.Sample = emb[:min(sampleSize, len(emb))]
		}
		out = append(out, in)
	}
	return out, nil
}

// Stats counts stored records by validity.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	faces, err := s.store.ListFaces(ctx)
	if err != nil {
		return Stats{}, storageError(ctx, err)
	}

	v := s.engine.Validator()
	st := Stats{
		Backend:   database.BackendName(),
		Total:     len(faces),
		Dimension: v.Dimension(),
		Threshold: s.policy.Threshold(),
	}
	for _, f := range faces {
		if _, err := v.Validate(f.Embedding); err != nil {
			st.Invalid++
		} else {
			st.Valid++
		}
	}
	return st, nil
}

// embedImage turns an uploaded image into a validated query embedding.
func (s *Service) embedImage(ctx context.Context, data []byte) (facematch.Embedding, error) {
	img, _, err := imaging.Decode(data)
	if err != nil {
		return nil, inputError(MsgInvalidImage, err)
	}

	detections, err := s.model.DetectFaces(ctx, data)
	if err != nil {
		return nil, modelError(ctx, err)
	}
	if n := embedder.DistinctFaces(detections, embedder.DuplicateOverlap); n > 1 {
		s.logger.WithField("faces", n).Warn("image contains several faces, using the first detection")
	}
	box, err := embedder.PrimaryFace(detections)
	switch {
	case errors.Is(err, embedder.ErrNoFace):
		return nil, inputError(MsgNoFace, err)
	case err != nil:
		return nil, inputError(MsgInvalidBox, err)
	}

	crop, err := imaging.Crop(img, box)
	if err != nil {
		return nil, inputError(MsgInvalidBox, err)
	}
	faceJPEG, err := imaging.Normalize(crop, imaging.FaceSize)
	if err != nil {
		return nil, fmt.Errorf("normalize face: %w", err)
	}

	values, err := s.model.Embed(ctx, faceJPEG)
	if err != nil {
		return nil, modelError(ctx, err)
	}
	return s.engine.Validator().ValidateQuery(values)
}

func (s *Service) registerFailed(err error) (RegisterResult, error) {
	s.failed(OpRegister, err)
	return RegisterResult{}, err
}

func (s *Service) recognizeFailed(err error) (facematch.Outcome, error) {
	s.failed(OpRecognize, err)
	return facematch.Outcome{}, err
}

func (s *Service) failed(operation string, err error) {
	label := FailureLabel(err)
	log := s.logger.WithField("operation", operation).WithError(err)
	if label == "invalid_input" || label == "already_registered" {
		log.Info("request rejected")
	} else {
		log.Error("request failed")
	}
	metrics.ObserveOutcome(operation, label, 0, false)
}

// FailureLabel classifies an error returned by the service.
func FailureLabel(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, facematch.ErrModelOutput):
		return "model_output"
	case errors.Is(err, ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, ErrStorage):
		return "storage_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

func modelError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, facematch.ErrModelOutput) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrModelUnavailable, err)
}

func storageError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, database.ErrStudentExists):
		return fmt.Errorf("%w: %w", ErrAlreadyRegistered, err)
	case ctx.Err() != nil:
		return err
	default:
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
}
