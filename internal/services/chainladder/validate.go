package chainladder

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"ClaimReserve/internal/domain/models"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	// report json names so messages match the column names callers know
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if !f.CanFloat() {
			return true
		}
		return isFinite(f.Float())
	})
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// ValidatePolicies checks every policy against its struct rules.
// An empty table is rejected.
func ValidatePolicies(policies []models.Policy) error {
	verr := &ValidationError{}
	if len(policies) == 0 {
		verr.add(Violation{Row: -1, Field: "policies", Rule: "required", Message: "policy table is empty"})
		return verr
	}
	for i := range policies {
		if err := validate.Struct(&policies[i]); err != nil {
			var fieldErrs validator.ValidationErrors
			if !errors.As(err, &fieldErrs) {
				return fmt.Errorf("validate policy %d: %w", i, err)
			}
			for _, fe := range fieldErrs {
				verr.add(Violation{Row: i, Field: fe.Field(), Rule: fe.Tag(), Message: ruleMessage(fe)})
			}
		}
	}
	return verr.orNil()
}

// ValidateOptions rejects options that cannot be normalized.
func ValidateOptions(opts models.AnalysisOptions) error {
	verr := &ValidationError{}
	switch {
	case !isFinite(opts.TailFactor):
		verr.add(Violation{Row: -1, Field: "tail_factor", Rule: "finite", Message: fmt.Sprintf("tail_factor must be a finite number, got %v", opts.TailFactor)})
	case opts.TailFactor < 0:
		verr.add(Violation{Row: -1, Field: "tail_factor", Rule: "gte", Message: "tail_factor must be greater than or equal to 0"})
	}
	return verr.orNil()
}

func ruleMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "finite":
		return fmt.Sprintf("%s must be a finite number, got %v", field, fe.Value())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s, got %v", field, fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s, got %v", field, fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s, got %v", field, strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
