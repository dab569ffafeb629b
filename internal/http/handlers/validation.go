package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/creator-payments/internal/domain"
	"github.com/tbourn/creator-payments/internal/services"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding rules on gin's validator
// and reports fields by their JSON name. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("product_type", func(fl validator.FieldLevel) bool {
			_, ok := domain.ParseProductType(strings.TrimSpace(fl.Field().String()))
			return ok
		})
	})
}

// bindError turns a binding failure into a code and a user-facing message.
func bindError(err error) (code, msg string) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return ErrCodeBadRequest, "invalid JSON body"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return services.ErrMissingFields.Code, fmt.Sprintf("%s is required", fe.Field())
	case "product_type":
		return services.ErrInvalidProductType.Code, "product_type must be one of pack, live_ticket, video-call, subscription"
	case "oneof":
		return ErrCodeBadRequest, fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	case "url", "http_url":
		return ErrCodeBadRequest, fmt.Sprintf("%s must be an absolute URL", fe.Field())
	case "gte", "min":
		return ErrCodeBadRequest, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	default:
		return ErrCodeBadRequest, fmt.Sprintf("%s is invalid", fe.Field())
	}
}
