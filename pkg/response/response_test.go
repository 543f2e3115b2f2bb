package response

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestSuccessResponse(t *testing.T) {
	t.Run("without data", func(t *testing.T) {
		resp := SuccessResponse("ok")

		assert.Equal(t, StatusSuccess, resp.Status)
		assert.Equal(t, "ok", resp.Message)
		assert.Nil(t, resp.Data)
	})

	t.Run("with data", func(t *testing.T) {
		data := map[string]string{"key": "value"}

		resp := SuccessResponse("ok", data)

		assert.Equal(t, StatusSuccess, resp.Status)
		assert.Equal(t, data, resp.Data)
	})
}

func TestValidationErrorResponse(t *testing.T) {
	type payload struct {
		URL string `json:"originalUrl" validate:"required,url"`
	}

	validate := validator.New()

	t.Run("non-validation error", func(t *testing.T) {
		resp := ValidationErrorResponse(assert.AnError)

		assert.Equal(t, StatusError, resp.Status)
		assert.Empty(t, resp.Details)
	})

	t.Run("validation error", func(t *testing.T) {
		err := validate.Struct(payload{URL: "not a url"})

		resp := ValidationErrorResponse(err)

		assert.Equal(t, StatusError, resp.Status)
		assert.Len(t, resp.Details, 1)
		assert.Contains(t, resp.Details[0], "url")
	})
}
