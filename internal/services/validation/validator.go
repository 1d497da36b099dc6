// Package validation parses the model's trade plan, rejects anything that
// violates the output schema and deterministically rewrites its risk figures.
package validation

import (
	"encoding/json"
	"errors"
	"strings"

	"PerpDesk/internal/domain/models"
	applogger "PerpDesk/pkg/logger"

	"github.com/go-playground/validator/v10"
)

const (
	invalidJSONPrefix = "Invalid JSON: "
	schemaPrefix      = "Schema validation failed: "
)

// Validator is safe for concurrent use.
type Validator struct {
	limits        models.RiskLimits
	resizeOnScale bool
	schema        *validator.Validate
	logger        *applogger.Logger
}

type Option func(*Validator)

func WithLogger(l *applogger.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// WithResizeOnScale makes the total-risk gate re-derive notional, leverage
// and margin from the scaled risk percentage instead of leaving them as sized.
func WithResizeOnScale(on bool) Option {
	return func(v *Validator) { v.resizeOnScale = on }
}

func New(limits models.RiskLimits, opts ...Option) *Validator {
	v := &Validator{
		limits: limits,
		schema: newSchemaValidator(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = applogger.OrNop(v.logger)
	return v
}

// ValidateAndCorrect parses raw, validates it and corrects its risk figures.
// On a parse or schema failure the output is nil and every problem is
// returned. Otherwise the corrected output is returned with correction notes
// first, then residual issues.
func (v *Validator) ValidateAndCorrect(raw string) (*models.LLMOutput, []string) {
	if !json.Valid([]byte(raw)) {
		var doc interface{}
		err := json.Unmarshal([]byte(raw), &doc)
		if err == nil {
			err = errors.New("malformed document")
		}
		return nil, []string{invalidJSONPrefix + err.Error()}
	}

	var out models.LLMOutput
	dec, err := decodeLenient(raw, &out)
	if err != nil {
		return nil, []string{invalidJSONPrefix + err.Error()}
	}

	msgs := dec.errs
	if dec.paths[rootPath] {
		return nil, []string{schemaPrefix + msgs[0]}
	}
	if err := v.schema.Struct(&out); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			msgs = append(msgs, err.Error())
		} else {
			for _, m := range schemaErrors(verrs) {
				// a field that failed to decode is reported once, as a type error
				if path, _, _ := strings.Cut(m, ":"); !dec.paths[path] {
					msgs = append(msgs, m)
				}
			}
		}
	}
	if len(msgs) > 0 {
		notes := make([]string, len(msgs))
		for i, m := range msgs {
			notes[i] = schemaPrefix + m
		}
		v.logger.Warn("model output rejected by schema", applogger.Int("violations", len(notes)))
		return nil, notes
	}

	notes := v.Correct(&out)
	return &out, notes
}
