package recognition

import (
	"errors"
	"fmt"
)

// User-facing input messages, kept identical to what mobile clients already show.
const (
	MsgMissingRegistration = "Missing image, student ID, or student name"
	MsgMissingImage        = "No image provided"
	MsgNoFace              = "No face detected in the image."
	MsgInvalidBox          = "Invalid face bounding box detected."
	MsgInvalidImage        = "Invalid image data."
	MsgStudentIDTooLong    = "Student ID is too long."
)

var (
	// ErrInvalidInput marks requests that can never succeed as sent.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorage marks failures of the face store.
	ErrStorage = errors.New("storage failure")
	// ErrModelUnavailable marks failed calls to the face model server.
	ErrModelUnavailable = errors.New("face model unavailable")
	// ErrAlreadyRegistered is returned when the student id already has a face.
	ErrAlreadyRegistered = errors.New("student already registered")
)

// InputError carries the message shown to the client for a rejected request.
type InputError struct {
	Message string
	Err     error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Is makes every InputError match ErrInvalidInput.
func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func inputError(msg string, err error) error {
	return &InputError{Message: msg, Err: err}
}
