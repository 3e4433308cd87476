package utils

import (
	"errors"
	"fmt"
	"strings"

	"Backend-PollSurvey/src/services/apperr"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct ตรวจ struct ตาม tag `validate` แล้วรวมข้อความเป็นบรรทัดเดียว
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", apperr.ErrValidation, strings.Join(msgs, "; "))
}
