package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/preceptorhub/preceptor-engine/pkg/apperrors"
	"github.com/preceptorhub/preceptor-engine/pkg/models"
)

const outlierReasonTag = "outlier_reason"

// InputValidator checks inputs against their validate tags and reports
// failures as *apperrors.ValidationError keyed by JSON field name.
type InputValidator struct {
	validate *validator.Validate
}

// NewInputValidator creates an InputValidator with the review outlier rule registered.
func NewInputValidator() *InputValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateOutlierReason, models.ReviewInput{})
	return &InputValidator{validate: v}
}

// Struct validates s. Returns nil or a *apperrors.ValidationError.
func (iv *InputValidator) Struct(s any) error {
	return iv.translate(iv.validate.Struct(s))
}

// Email validates a single email address.
func (iv *InputValidator) Email(email string) error {
	err := iv.validate.Var(email, "required,email,max=320")
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperrors.NewValidationError("email", fieldMessage(verrs[0]))
	}
	return fmt.Errorf("validate email: %w", err)
}

func (iv *InputValidator) translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate input: %w", err)
	}

	out := &apperrors.ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = fieldMessage(fe)
	}
	return out
}

// validateOutlierReason requires a non-blank reason when a review is flagged as an outlier.
func validateOutlierReason(sl validator.StructLevel) {
	in := sl.Current().Interface().(models.ReviewInput)
	if !bool(in.IsOutlier) {
		return
	}
	if in.OutlierReason == nil || strings.TrimSpace(*in.OutlierReason) == "" {
		sl.ReportError(in.OutlierReason, "outlierReason", "OutlierReason", outlierReasonTag, "")
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_unless":
		return "is required"
	case outlierReasonTag:
		return "is required when isOutlier is true"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "email":
		return "must be a valid email address"
	}
	return "is invalid"
}
