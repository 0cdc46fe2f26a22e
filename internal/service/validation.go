package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/zolffix/internal/locale"
	"github.com/zolffix/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := time.Parse("15:04", fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("mood", func(fl validator.FieldLevel) bool {
		_, ok := model.LookupMood(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("quotecategory", func(fl validator.FieldLevel) bool {
		return model.IsQuoteCategory(fl.Field().String())
	})
	_ = v.RegisterValidation("language", func(fl validator.FieldLevel) bool {
		return locale.IsSupported(fl.Field().String())
	})
	return v
}

// validateInput 校验结构体，失败时用 sentinel 包装首个字段错误
func validateInput(sentinel error, input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return fmt.Errorf("%w: %s failed %s", sentinel, strings.ToLower(first.Field()), first.Tag())
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}
