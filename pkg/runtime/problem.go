package runtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/marshallshelly/shale-orm/pkg/schema"
)

// CorrelationHeader is the header carrying the correlation id on problem
// responses, and the inbound header whose value is reused when present.
const CorrelationHeader = "X-Request-Id"

// Problem is an RFC 7807 problem document describing a classified failure.
// Field names the logical field behind a violation when one is known. In
// production mode both Detail and Field are redacted so schema internals
// never reach a caller.
type Problem struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	Status        int    `json:"status"`
	Detail        string `json:"detail,omitempty"`
	Instance      string `json:"instance,omitempty"`
	Field         string `json:"field,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

// ProblemOption configures problem rendering.
type ProblemOption func(*problemConfig)

type problemConfig struct {
	production    bool
	correlationID string
}

// InProduction redacts rendered problems: detail collapses to generic text
// and field names are dropped. Development mode keeps both verbatim.
func InProduction() ProblemOption {
	return func(c *problemConfig) { c.production = true }
}

// WithCorrelationID reuses an inbound correlation id instead of generating
// a fresh one.
func WithCorrelationID(id string) ProblemOption {
	return func(c *problemConfig) {
		if id != "" {
			c.correlationID = id
		}
	}
}

// NewProblem renders a classified error as a problem document. instance is
// the request path or resource identifier the failure occurred on. Unknown
// errors map to a 500 whose detail is redacted in production.
func NewProblem(err error, instance string, opts ...ProblemOption) *Problem {
	cfg := problemConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.correlationID == "" {
		cfg.correlationID = uuid.NewString()
	}

	p := &Problem{
		Instance:      instance,
		CorrelationID: cfg.correlationID,
	}

	var (
		vErr  *schema.ValidationError
		uErr  *UniqueViolationError
		fkErr *ForeignKeyViolationError
		nnErr *NotNullViolationError
		ckErr *CheckViolationError
		dnErr *DoesNotExistError
		amErr *AmbiguousResultError
	)

	switch {
	case errors.As(err, &vErr):
		p.Type = "validation_error"
		p.Title = "Validation Failed"
		p.Status = http.StatusBadRequest
		p.Field = vErr.Field
		if cfg.production {
			p.Detail = "the request contained an invalid value"
		} else {
			p.Detail = vErr.Reason
		}

	case errors.As(err, &nnErr):
		p.Type = "validation_error"
		p.Title = "Validation Failed"
		p.Status = http.StatusBadRequest
		p.Field = nnErr.Field
		if cfg.production {
			p.Detail = "a required value is missing"
		} else {
			p.Detail = nnErr.Error()
		}

	case errors.As(err, &ckErr):
		p.Type = "validation_error"
		p.Title = "Validation Failed"
		p.Status = http.StatusBadRequest
		if cfg.production {
			p.Detail = "a data constraint was violated"
		} else {
			p.Detail = ckErr.Error()
		}

	case errors.As(err, &dnErr):
		p.Type = "not_found"
		p.Title = "Not Found"
		p.Status = http.StatusNotFound
		if cfg.production {
			p.Detail = fmt.Sprintf("%s not found", dnErr.Model)
		} else {
			p.Detail = dnErr.Error()
		}

	case errors.As(err, &uErr):
		p.Type = "conflict"
		p.Title = "Conflict"
		p.Status = http.StatusConflict
		p.Field = uErr.Field
		if cfg.production {
			p.Detail = "a resource with this value already exists"
		} else {
			p.Detail = uErr.Error()
		}

	case errors.As(err, &fkErr):
		p.Type = "conflict"
		p.Title = "Conflict"
		p.Status = http.StatusConflict
		p.Field = fkErr.Field
		if cfg.production {
			p.Detail = "a related resource constraint was violated"
		} else {
			p.Detail = fkErr.Error()
		}

	case errors.As(err, &amErr):
		p.Type = "internal_error"
		p.Title = "Internal Server Error"
		p.Status = http.StatusInternalServerError
		if cfg.production {
			p.Detail = "an internal error occurred"
		} else {
			p.Detail = amErr.Error()
		}

	default:
		p.Type = "internal_error"
		p.Title = "Internal Server Error"
		p.Status = http.StatusInternalServerError
		if cfg.production {
			p.Detail = "an internal error occurred"
		} else if err != nil {
			p.Detail = err.Error()
		}
	}

	if cfg.production {
		p.Field = ""
	}
	return p
}

// Write emits the problem as application/problem+json with the correlation
// header set.
func (p *Problem) Write(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set(CorrelationHeader, p.CorrelationID)
	w.WriteHeader(p.Status)
	return json.NewEncoder(w).Encode(p)
}
