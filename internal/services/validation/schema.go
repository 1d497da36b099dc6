package validation

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"PerpDesk/internal/domain/models"

	"github.com/go-playground/validator/v10"
)

const (
	confidenceTolerance = 2
	tpPctTolerance      = 0.5
)

func newSchemaValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(setupStructLevel, models.Setup{})
	return v
}

// setupStructLevel checks rules spanning several fields of one setup.
func setupStructLevel(sl validator.StructLevel) {
	s, ok := sl.Current().Interface().(models.Setup)
	if !ok {
		return
	}

	// A wrong breakdown length is already reported by the len tag.
	if len(s.ConfidenceBreakdown) == len(models.ConfidenceWeights) {
		expected := int(math.Round(s.WeightedConfidence()))
		if diff := s.Confidence - expected; diff > confidenceTolerance || diff < -confidenceTolerance {
			sl.ReportError(s.Confidence, "confidence", "Confidence", "weighted_sum", strconv.Itoa(expected))
		}
	}

	if s.Tradeable() && len(s.TakeProfits) > 0 {
		var sum float64
		for _, tp := range s.TakeProfits {
			sum += tp.Pct
		}
		if math.Abs(sum-100) > tpPctTolerance {
			sl.ReportError(sum, "take_profits", "TakeProfits", "pct_sum", "100")
		}
	}
}

// schemaErrors renders validator errors as "<path>: <message>".
func schemaErrors(errs validator.ValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, fe := range errs {
		out = append(out, fmt.Sprintf("%s: %s", fieldPath(fe.Namespace()), fieldMessage(fe)))
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "len":
		return fmt.Sprintf("must contain exactly %s items, got %d", fe.Param(), lengthOf(fe.Value()))
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", strings.ReplaceAll(fe.Param(), " ", ", "), fmt.Sprint(fe.Value()))
	case "min":
		return fmt.Sprintf("must be at least %s, got %v", fe.Param(), fe.Value())
	case "max":
		return fmt.Sprintf("must be at most %s, got %v", fe.Param(), fe.Value())
	case "weighted_sum":
		return fmt.Sprintf("confidence %v does not match weighted breakdown sum %s (tolerance ±%d)",
			fe.Value(), fe.Param(), confidenceTolerance)
	case "pct_sum":
		return fmt.Sprintf("take-profit percentages sum to %v, expected %s", fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func lengthOf(v interface{}) int {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
		return rv.Len()
	default:
		return 0
	}
}
