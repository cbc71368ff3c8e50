package facematch

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fastjson"
)

// DefaultDimension is the embedding size produced by the FaceNet model.
const DefaultDimension = 512

var (
	ErrMissingEmbedding = errors.New("embedding missing")
	ErrMalformed        = errors.New("embedding malformed")
	ErrDimension        = errors.New("embedding has wrong dimension")
	ErrNaN              = errors.New("embedding contains NaN")
	ErrInfinite         = errors.New("embedding contains infinite value")

	// ErrModelOutput marks a query embedding the model should never have produced.
	ErrModelOutput = errors.New("model returned an invalid embedding")
)

// RejectionError is returned for a stored record whose embedding cannot be used.
type RejectionError struct {
	Identity string
	Reason   error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("record %s rejected: %v", e.Identity, e.Reason)
}

func (e *RejectionError) Unwrap() error {
	return e.Reason
}

var parserPool fastjson.ParserPool

// Validator turns raw embeddings into vectors of a fixed dimension.
type Validator struct {
	dim    int
	logger logrus.FieldLogger
}

// NewValidator creates a validator for vectors of length dim.
func NewValidator(dim int, logger logrus.FieldLogger) *Validator {
	if dim <= 0 {
		dim = DefaultDimension
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Validator{dim: dim, logger: logger}
}

// Dimension returns the required vector length.
func (v *Validator) Dimension() int {
	return v.dim
}

// Validate normalizes raw and checks its shape and values.
func (v *Validator) Validate(raw RawEmbedding) (Embedding, error) {
	values, err := v.Decode(raw)
	if err != nil {
		return nil, err
	}
	if len(values) != v.dim {
		return nil, fmt.Errorf("%w: got %d values, want %d", ErrDimension, len(values), v.dim)
	}
	if err := checkFinite(values); err != nil {
		return nil, err
	}
	return Embedding(values), nil
}

// ValidateRecord validates a stored record. Rejections are logged with the
// record identity and returned as *RejectionError; a panic while decoding is
// recovered and reported the same way.
func (v *Validator) ValidateRecord(rec *Record) (Embedding, error) {
	emb, err := recovering(rec.Identity, func() (Embedding, error) {
		return v.Validate(rec.Raw)
	})
	if err != nil {
		v.logger.WithFields(logrus.Fields{
			"identity": rec.Identity,
			"kind":     rec.Raw.Kind().String(),
			"reason":   err.Error(),
		}).Warn("skipping stored embedding")
		return nil, err
	}
	return emb, nil
}

// recovering runs fn and turns both its error and any panic into a *RejectionError.
func recovering(identity string, fn func() (Embedding, error)) (emb Embedding, err error) {
	defer func() {
		if r := recover(); r != nil {
			emb = nil
			err = &RejectionError{Identity: identity, Reason: fmt.Errorf("%w: panic: %v", ErrMalformed, r)}
		}
	}()

	emb, err = fn()
	if err != nil {
		return nil, &RejectionError{Identity: identity, Reason: err}
	}
	return emb, nil
}

// ValidateQuery validates an embedding freshly computed by the model.
func (v *Validator) ValidateQuery(values []float32) (Embedding, error) {
	if values == nil {
		return nil, fmt.Errorf("%w: %w", ErrModelOutput, ErrMissingEmbedding)
	}
	emb, err := v.Validate(ValuesEmbedding(values))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelOutput, err)
	}
	return emb, nil
}

// Decode normalizes raw to a numeric sequence without checking its length or values.
func (v *Validator) Decode(raw RawEmbedding) ([]float32, error) {
	switch raw.kind {
	case KindNull:
		return nil, ErrMissingEmbedding
	case KindValues:
		return raw.values, nil
	case KindMapping:
		return decodeMapping(raw.mapping)
	case KindEncoded:
		return decodeEncoded(raw.encoded, 0)
	default:
		return nil, fmt.Errorf("%w: unknown representation %s", ErrMalformed, raw.kind)
	}
}

// decodeEncoded parses JSON text. A JSON string is unwrapped once, which covers
// vectors serialized to text and then stored in a JSON column.
func decodeEncoded(text string, depth int) ([]float32, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	val, err := p.Parse(text)
	if err != nil {
		return nil, parseError(text, err)
	}

	switch val.Type() {
	case fastjson.TypeArray:
		items, _ := val.Array()
		out := make([]float32, len(items))
		for i, item := range items {
			f, err := item.Float64()
			if err != nil {
				return nil, fmt.Errorf("%w: element %d is %s", ErrMalformed, i, item.Type())
			}
			out[i] = float32(f)
		}
		return out, nil
	case fastjson.TypeObject:
		obj, _ := val.Object()
		m := make(map[string]float64, obj.Len())
		var visitErr error
		obj.Visit(func(key []byte, item *fastjson.Value) {
			if visitErr != nil {
				return
			}
			f, err := item.Float64()
			if err != nil {
				visitErr = fmt.Errorf("%w: key %q is %s", ErrMalformed, key, item.Type())
				return
			}
			m[string(key)] = f
		})
		if visitErr != nil {
			return nil, visitErr
		}
		if len(m) != obj.Len() {
			return nil, fmt.Errorf("%w: duplicate keys", ErrMalformed)
		}
		return decodeMapping(m)
	case fastjson.TypeString:
		if depth > 0 {
			return nil, fmt.Errorf("%w: nested string encoding", ErrMalformed)
		}
		inner, _ := val.StringBytes()
		return decodeEncoded(string(inner), depth+1)
	default:
		return nil, fmt.Errorf("%w: unexpected JSON %s", ErrMalformed, val.Type())
	}
}

// parseError classifies a JSON parse failure. Python's json.dumps writes NaN
// and Infinity as bare tokens, which are not JSON.
func parseError(text string, err error) error {
	switch {
	case strings.Contains(text, "NaN"):
		return fmt.Errorf("%w: non-standard NaN token", ErrNaN)
	case strings.Contains(text, "Infinity"):
		return fmt.Errorf("%w: non-standard Infinity token", ErrInfinite)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}

// decodeMapping orders an index->value map. Keys must be exactly 0..n-1.
func decodeMapping(m map[string]float64) ([]float32, error) {
	out := make([]float32, len(m))
	seen := make([]bool, len(m))
	for key, f := range m {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(m) || strconv.Itoa(idx) != key {
			return nil, fmt.Errorf("%w: mapping key %q is not an index below %d", ErrMalformed, key, len(m))
		}
		if seen[idx] {
			return nil, fmt.Errorf("%w: mapping index %d repeated", ErrMalformed, idx)
		}
		seen[idx] = true
		out[idx] = narrow(f)
	}
	return out, nil
}

// narrow converts to float32, saturating out-of-range values to infinity.
func narrow(f float64) float32 {
	if f > math.MaxFloat32 {
		return float32(math.Inf(1))
	}
	if f < -math.MaxFloat32 {
		return float32(math.Inf(-1))
	}
	return float32(f)
}

// checkFinite rejects NaN before infinities so NaN-bearing vectors report the NaN.
func checkFinite(values []float32) error {
	for i, f := range values {
		if math.IsNaN(float64(f)) {
			return fmt.Errorf("%w at index %d", ErrNaN, i)
		}
	}
	for i, f := range values {
		if math.IsInf(float64(f), 0) {
			return fmt.Errorf("%w at index %d", ErrInfinite, i)
		}
	}
	return nil
}
