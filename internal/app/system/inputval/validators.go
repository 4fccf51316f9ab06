package inputval

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/dalemusser/flowbase/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	once     sync.Once
	validate *validator.Validate
	hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

func instance() *validator.Validate {
	once.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
			return f.Name
		})
		_ = v.RegisterValidation("emailaddr", func(fl validator.FieldLevel) bool {
			return IsValidEmail(fl.Field().String())
		})
		_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return IsValidObjectID(fl.Field().String())
		})
		_ = v.RegisterValidation("hexcolor6", func(fl validator.FieldLevel) bool {
			return IsValidHexColor(fl.Field().String())
		})
		_ = v.RegisterValidation("wsrole", func(fl validator.FieldLevel) bool {
			return models.IsInvitableRole(strings.TrimSpace(fl.Field().String()))
		})
		_ = v.RegisterValidation("taskstatus", func(fl validator.FieldLevel) bool {
			return models.IsValidTaskStatus(fl.Field().String())
		})
		_ = v.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
			return models.IsValidPriority(fl.Field().String())
		})
		_ = v.RegisterValidation("projectstatus", func(fl validator.FieldLevel) bool {
			return models.IsValidProjectStatus(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// IsValidObjectID reports whether s is a 24-character hex ObjectID.
func IsValidObjectID(s string) bool {
	_, err := primitive.ObjectIDFromHex(strings.TrimSpace(s))
	return err == nil
}

// IsValidHexColor reports whether s looks like #RRGGBB.
func IsValidHexColor(s string) bool {
	return hexColor.MatchString(strings.TrimSpace(s))
}

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Message string
}

// Result collects the failures from Validate.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether any rule failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

// Validate runs the struct's validate tags. Failures come back in field order.
func Validate(s any) *Result {
	res := &Result{}
	err := instance().Struct(s)
	if err == nil {
		return res
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		res.Errors = append(res.Errors, FieldError{Message: err.Error()})
		return res
	}
	for _, fe := range verrs {
		res.Errors = append(res.Errors, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return res
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "email", "emailaddr":
		return "A valid email address is required."
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", label, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", label, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s must match %s.", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, fe.Param())
	case "objectid":
		return label + " must be a valid id."
	case "hexcolor6":
		return label + " must be a hex color like #FF5733."
	case "wsrole":
		return label + " must be admin, member or viewer."
	case "taskstatus":
		return label + " must be To Do, In Progress or Done."
	case "priority":
		return label + " must be Low, Medium or High."
	case "projectstatus":
		return label + " is not a valid project status."
	default:
		return label + " is invalid."
	}
}
