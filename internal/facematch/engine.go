package facematch

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/sirupsen/logrus"
)

// Scan modes reported to observers.
const (
	ModeDuplicateCheck = "duplicate_check"
	ModeBestMatch      = "best_match"
)

// ScanObserver receives per-scan statistics.
type ScanObserver interface {
	ObserveScan(mode string, valid, skipped int, elapsed time.Duration)
}

// Engine scores a query embedding against a corpus of stored records.
// It keeps no state between calls and is safe for concurrent use.
//
// Every call walks the whole corpus: O(N) per request. The recognition
// decision needs the full ranked list, so no index is consulted.
type Engine struct {
	validator *Validator
	logger    logrus.FieldLogger
	observer  ScanObserver
}

// NewEngine creates an engine that validates records with v.
func NewEngine(v *Validator, logger logrus.FieldLogger) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Engine{validator: v, logger: logger}
}

// WithObserver returns a copy of the engine reporting scans to o.
func (e *Engine) WithObserver(o ScanObserver) *Engine {
	cp := *e
	cp.observer = o
	return &cp
}

// Validator returns the validator used for stored records.
func (e *Engine) Validator() *Validator {
	return e.validator
}

// Scan validates every record and scores the valid ones against query.
// Invalid records are skipped; only a cancelled context or an invalid query fails the scan.
func (e *Engine) Scan(ctx context.Context, query Embedding, corpus []Record) (ScanResult, error) {
	if _, err := e.validator.ValidateQuery(query); err != nil {
		return ScanResult{}, err
	}

	res := ScanResult{Results: make([]SimilarityResult, 0, len(corpus))}
	for i := range corpus {
		if err := ctx.Err(); err != nil {
			return ScanResult{}, fmt.Errorf("scan abandoned after %d of %d records: %w", i, len(corpus), err)
		}
		rec := &corpus[i]
		stored, err := e.validator.ValidateRecord(rec)
		if err != nil {
			res.Skipped++
			continue
		}
		res.Results = append(res.Results, SimilarityResult{
			Identity:    rec.Identity,
			DisplayName: rec.DisplayName,
			Score:       CosineSimilarity(query, stored),
		})
	}
	return res, nil
}

// CheckDuplicate returns the highest score in the corpus. found is false when
// no record could be compared.
func (e *Engine) CheckDuplicate(ctx context.Context, query Embedding, corpus []Record) (highest float64, found bool, err error) {
	start := time.Now()
	res, err := e.Scan(ctx, query, corpus)
	if err != nil {
		return 0, false, err
	}
	e.observe(ModeDuplicateCheck, res, start)

	for i, r := range res.Results {
		if i == 0 || r.Score > highest {
			highest = r.Score
		}
	}
	return highest, len(res.Results) > 0, nil
}

// FindBest returns every valid comparison ranked by score, highest first.
// Equal scores keep corpus order. The slice is empty when nothing was usable.
func (e *Engine) FindBest(ctx context.Context, query Embedding, corpus []Record) ([]SimilarityResult, error) {
	start := time.Now()
	res, err := e.Scan(ctx, query, corpus)
	if err != nil {
		return nil, err
	}
	e.observe(ModeBestMatch, res, start)

	ranked := res.Results
	slices.SortStableFunc(ranked, func(a, b SimilarityResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return ranked, nil
}

func (e *Engine) observe(mode string, res ScanResult, start time.Time) {
	elapsed := time.Since(start)
	e.logger.WithFields(logrus.Fields{
		"mode":    mode,
		"valid":   len(res.Results),
		"skipped": res.Skipped,
		"elapsed": elapsed,
	}).Debug("corpus scan finished")
	if e.observer != nil {
		e.observer.ObserveScan(mode, len(res.Results), res.Skipped, elapsed)
	}
}
