// Package validator checks summary and commit requests before any
// annotation work starts, reporting problems per field.
package validator

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/transcript-summarizer/internal/summarizer"
)

const (
	maxTextLength      = 1048576
	maxReferences      = 20
	maxReferenceLength = 65536
	maxIDLength        = 128
	maxIdempotencyKey  = 255
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateSummaryRequest checks text, ids, target count and references.
// maxTarget of zero disables the target upper bound.
func ValidateSummaryRequest(req *summarizer.Request, maxTarget int) error {
	errs := make(map[string]string)
	checkText(errs, req.Text)
	checkID(errs, "corpus_id", req.CorpusID)
	checkID(errs, "user_id", req.UserID)

	if req.TargetCount < 0 {
		errs["target_count"] = "target count must not be negative"
	} else if maxTarget > 0 && req.TargetCount > maxTarget {
		errs["target_count"] = fmt.Sprintf("target count must be at most %d", maxTarget)
	}

	if len(req.References) > maxReferences {
		errs["references"] = fmt.Sprintf("at most %d references are allowed", maxReferences)
	} else {
		for i, ref := range req.References {
			if strings.TrimSpace(ref) == "" {
				errs["references"] = fmt.Sprintf("reference %d is empty", i)
				break
			}
			if len(ref) > maxReferenceLength {
				errs["references"] = fmt.Sprintf("reference %d must be at most %d characters", i, maxReferenceLength)
				break
			}
		}
	}

	for _, name := range req.Strategies {
		if !slices.Contains(summarizer.Strategies, name) {
			errs["strategies"] = fmt.Sprintf("unknown strategy %q", name)
			break
		}
		if name == summarizer.StrategyTFIUDF && req.UserID == "" {
			errs["strategies"] = "tfiudf requires user_id"
			break
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

// ValidateCommitRequest checks text, ids and the idempotency key.
func ValidateCommitRequest(req *summarizer.CommitRequest) error {
	errs := make(map[string]string)
	checkText(errs, req.Text)
	if req.CorpusID == "" {
		errs["corpus_id"] = "corpus is required"
	} else {
		checkID(errs, "corpus_id", req.CorpusID)
	}
	checkID(errs, "user_id", req.UserID)
	if len(req.IdempotencyKey) > maxIdempotencyKey {
		errs["idempotency_key"] = fmt.Sprintf("idempotency key must be at most %d characters", maxIdempotencyKey)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func checkText(errs map[string]string, text string) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		errs["text"] = "text is required and must not be empty"
	} else if len(text) > maxTextLength {
		errs["text"] = fmt.Sprintf("text must be at most %d characters", maxTextLength)
	}
}

// checkID allows empty ids; callers that require one check separately.
func checkID(errs map[string]string, field, id string) {
	if id == "" {
		return
	}
	if len(id) > maxIDLength {
		errs[field] = fmt.Sprintf("%s must be at most %d characters", field, maxIDLength)
		return
	}
	if strings.ContainsAny(id, "/ \t\n") {
		errs[field] = fmt.Sprintf("%s must not contain slashes or whitespace", field)
	}
}
