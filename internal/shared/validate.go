package shared

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var hhmmPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the process-wide validator with the application's
// custom rules registered: "hhmm" for HH:MM times and "isodate" for
// ISO-8601 dates.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
			return hhmmPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			_, err := ParseISOTime(fl.Field().String())
			return err == nil
		})
		validate = v
	})
	return validate
}

// Validate checks v against its validate tags and reports all violations
// as a single 400 Error.
func Validate(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return BadRequest(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return BadRequest(strings.Join(msgs, ". "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Поле %q обязательно", field)
	case "min":
		return fmt.Sprintf("Поле %q должно содержать не менее %s символов", field, fe.Param())
	case "max":
		return fmt.Sprintf("Поле %q должно содержать не более %s символов", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("Поле %q должно быть одним из: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url", "uri":
		return fmt.Sprintf("Поле %q должно быть ссылкой", field)
	case "hhmm":
		return fmt.Sprintf("Поле %q должно быть временем в формате ЧЧ:ММ", field)
	case "isodate":
		return fmt.Sprintf("Поле %q должно быть датой в формате ISO 8601", field)
	default:
		return fmt.Sprintf("Поле %q заполнено некорректно", field)
	}
}

var isoLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

// ParseISOTime parses an ISO-8601 timestamp or calendar date. Values
// without a zone are taken as UTC.
func ParseISOTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO-8601 time %q", s)
}
