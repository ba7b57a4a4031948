package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrProfileNotFound, http.StatusNotFound},
		{gorm.ErrRecordNotFound, http.StatusNotFound},
		{ErrQuotaExceeded, http.StatusForbidden},
		{ErrInvalidTarget, http.StatusBadRequest},
		{ErrValidation, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrEmailTaken, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, Status(c.err), "err: %v", c.err)
	}
}

func TestStatusSeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("handling swipe: %w", ErrQuotaExceeded)
	assert.Equal(t, http.StatusForbidden, Status(err))

	err = Validationf("age must be %d+", 18)
	assert.Equal(t, http.StatusBadRequest, Status(err))
	assert.ErrorIs(t, err, ErrValidation)

	err = InvalidTargetf("cannot swipe on yourself")
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestMessageHidesInternals(t *testing.T) {
	assert.Equal(t, "internal error", Message(errors.New("dsn=root:root@tcp(db)")))
	assert.Equal(t, "weekly quota exceeded", Message(ErrQuotaExceeded))
}
