// Package validation 封装 go-playground/validator：全局单例校验器，
// 并把字段错误翻译成可读消息。
//
//	type Request struct {
//	    Limit int `json:"limit" validate:"gt=0"`
//	}
//	if err := validation.Struct(&req); err != nil {
//	    // err.Error() == "limit must be greater than 0"
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator 返回全局校验器，线程安全。
// 字段名优先取 json tag，其次 koanf tag，使错误消息与外部字段名一致。
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, key := range []string{"json", "koanf"} {
				name, _, _ := strings.Cut(f.Tag.Get(key), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return f.Name
		})
	})
	return validate
}

// FieldError 是单个字段的校验错误。
type FieldError struct {
	Field   string
	Tag     string
	Param   string
	Message string
}

// Errors 是一次校验的全部字段错误。
type Errors []FieldError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return strings.Join(msgs, "; ")
}

// Struct 校验结构体，通过时返回 nil，否则返回 Errors。
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Errors{{Field: "unknown", Tag: "unknown", Message: err.Error()}}
	}
	out := make(Errors, len(verrs))
	for i, fe := range verrs {
		out[i] = FieldError{
			Field:   fieldPath(fe),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: translate(fe),
		}
	}
	return out
}

var messages = map[string]string{
	"required":      "%s is required",
	"oneof":         "%s must be one of: %s",
	"gte":           "%s must be greater than or equal to %s",
	"lte":           "%s must be less than or equal to %s",
	"gt":            "%s must be greater than %s",
	"lt":            "%s must be less than %s",
	"min":           "%s must be at least %s",
	"max":           "%s must be at most %s",
	"hostname_port": "%s must be host:port",
}

// fieldPath 返回去掉顶层结构体名的字段路径，例如 recommend.fallback_windows[0].span。
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func translate(fe validator.FieldError) string {
	field := fieldPath(fe)
	tmpl, ok := messages[fe.Tag()]
	if !ok {
		return fmt.Sprintf("%s failed on %s", field, fe.Tag())
	}
	if strings.Count(tmpl, "%s") == 2 {
		return fmt.Sprintf(tmpl, field, fe.Param())
	}
	return fmt.Sprintf(tmpl, field)
}
