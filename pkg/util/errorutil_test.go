package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorMatchesSentinelByCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewTicketNotFound("t-1"))

	assert.True(t, errors.Is(err, ErrTicketNotFound))
	assert.False(t, errors.Is(err, ErrAnalystNotFound))
}

func TestEveryKindHasDistinctCodeAndMessage(t *testing.T) {
	all := []error{
		NewUnauthorized("no session"),
		NewForbidden("role lacks permission"),
		NewTicketNotFound("t"),
		NewAnalystNotFound("a"),
		NewUnknownCategory("X"),
		NewSchemaViolation("PADE", []string{"agency"}, nil),
		NewEmptyMessage(),
		NewInvalidCredentials(),
	}
	codes := map[string]bool{}
	messages := map[string]bool{}
	for _, err := range all {
		de := ToDomainError(err)
		require.NotNil(t, de)
		assert.NotEmpty(t, de.Message)
		assert.False(t, codes[de.Code], "duplicate code %s", de.Code)
		assert.False(t, messages[de.Message], "duplicate message %s", de.Message)
		codes[de.Code] = true
		messages[de.Message] = true
	}
}

func TestSchemaViolationDetails(t *testing.T) {
	de := ToDomainError(NewSchemaViolation("META", []string{"period", "agency"}, []string{"color"}))

	assert.Equal(t, http.StatusUnprocessableEntity, de.HTTPStatus)
	assert.Equal(t, []string{"agency", "period"}, de.Details["missing"])
	assert.Equal(t, []string{"color"}, de.Details["unknown"])
	assert.Contains(t, de.Message, "agency, period")
}

func TestToDomainErrorWrapsUnknownErrors(t *testing.T) {
	de := ToDomainError(errors.New("disk on fire"))

	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)
	assert.Nil(t, MapError(nil))
}
