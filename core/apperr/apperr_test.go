package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		InvalidInput: http.StatusBadRequest,
		MissingFile:  http.StatusBadRequest,
		Unauthorized: http.StatusUnauthorized,
		Forbidden:    http.StatusForbidden,
		NotFound:     http.StatusNotFound,
		RateLimited:  http.StatusTooManyRequests,
		UploadFailed: http.StatusInternalServerError,
		SearchFailed: http.StatusInternalServerError,
		Internal:     http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.Status(), kind.String())
	}
}

func TestStatusOfWrappedError(t *testing.T) {
	err := fmt.Errorf("handler: %w", NotFoundf("Song %s not found", "x"))
	assert.Equal(t, http.StatusNotFound, Status(err))
	assert.True(t, Is(err, NotFound))

	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("boom")))
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(UploadFailed, "Failed to upload audio", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Failed to upload audio: connection reset", err.Error())
}

func TestValidationCollectsFields(t *testing.T) {
	err := Validation([]FieldError{
		{Field: "title", Message: "Title is required", Value: ""},
		{Field: "artist", Message: "Artist is required", Value: ""},
	})

	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, InvalidInput, e.Kind)
	assert.Equal(t, "Validation errors", e.Message)
	assert.Len(t, e.Fields, 2)
}
