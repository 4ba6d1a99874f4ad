package domain

import "errors"

// ErrInvalidRequest indicates that an evaluation request contains invalid data.
var ErrInvalidRequest = errors.New("invalid evaluation request")

// ErrInvalidQuestion indicates that a question violates its invariants.
var ErrInvalidQuestion = errors.New("invalid question")

// ErrInvalidRecord indicates that an evaluation record cannot be stored.
var ErrInvalidRecord = errors.New("invalid evaluation record")

// ErrNoMarks indicates that there is nothing to grade: the aligned input is
// empty so the maximum total score would be zero. Callers avoid it by always
// supplying at least one question.
var ErrNoMarks = errors.New("no marks found in aligned questions")

// ErrEvaluationTimeout indicates that the caller's deadline expired before
// the pipeline finished. Partial results are discarded. It is distinct from
// oracle failures, which never abort a batch.
var ErrEvaluationTimeout = errors.New("evaluation timed out")
