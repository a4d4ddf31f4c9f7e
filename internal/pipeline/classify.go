package pipeline

import (
	"errors"
	"fmt"

	"github.com/examlens/examlens/internal/llm"
	"github.com/examlens/examlens/internal/nl2sql"
	"github.com/examlens/examlens/internal/query"
)

type ErrorKind string

const (
	KindNone             ErrorKind = ""
	KindInvalidRequest   ErrorKind = "invalid_request"
	KindMalformedOutput  ErrorKind = "malformed_model_output"
	KindUnsafeQuery      ErrorKind = "unsafe_query"
	KindQueryExecution   ErrorKind = "query_execution_error"
	KindModelUnavailable ErrorKind = "model_unavailable"
	KindInternal         ErrorKind = "internal"
)

const redactedExecutionError = "the database could not execute the generated query"

func Classify(err error) ErrorKind {
	var (
		malformed   *llm.MalformedOutputError
		unavailable *llm.UnavailableError
		execution   *query.ExecutionError
	)
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, nl2sql.ErrEmptyQuestion):
		return KindInvalidRequest
	case errors.Is(err, query.ErrUnsafeQuery):
		return KindUnsafeQuery
	case errors.As(err, &malformed):
		return KindMalformedOutput
	case errors.As(err, &execution):
		return KindQueryExecution
	case errors.As(err, &unavailable):
		return KindModelUnavailable
	default:
		return KindInternal
	}
}

// message renders the user-facing text for a terminal error.
func message(kind ErrorKind, err error, redactDB bool) string {
	switch kind {
	case KindUnsafeQuery:
		return query.ErrUnsafeQuery.Error()
	case KindQueryExecution:
		if redactDB {
			return redactedExecutionError
		}
		return err.Error()
	case KindInternal:
		return "internal error"
	case KindModelUnavailable:
		var unavailable *llm.UnavailableError
		if errors.As(err, &unavailable) && unavailable.Err != nil {
			return fmt.Sprintf("the language model is unavailable: %v", unavailable.Err)
		}
		return err.Error()
	default:
		return err.Error()
	}
}
