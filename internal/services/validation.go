package services

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"userhub/internal/models"
)

var validate = validator.New()

// ValidateUserForm checks a submitted form and returns a field → message
// mapping, keyed by the lowercase field name. An empty map means the form
// passed. Rules per field are evaluated in tag order, so only the first
// failing rule of a field produces a message.
func ValidateUserForm(form models.UserForm) map[string]string {
	err := validate.Struct(form)
	if err == nil {
		return map[string]string{}
	}

	messages := make(map[string]string)
	for _, e := range err.(validator.ValidationErrors) {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			messages[field] = "can't be blank"
		case "min":
			messages[field] = "must be at least " + e.Param() + " characters"
		default:
			messages[field] = "is invalid"
		}
	}
	return messages
}
