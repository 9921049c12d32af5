package assist

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Format(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewNetworkError("discovery", cause)

	assert.Equal(t, "[discovery:NETWORK_ERROR] network request failed: dial tcp: refused", err.Error())
	assert.Equal(t, "network request failed", err.UserMessage())
	assert.ErrorIs(t, err, cause)

	bare := NewConfigurationMissingError("llm", "no API key configured")
	assert.Equal(t, "[llm:CONFIGURATION_MISSING] no API key configured", bare.Error())
}

func TestNewActionError(t *testing.T) {
	typed := NewPermissionDeniedError("calendar", "the calendar", nil)
	err := NewActionError("day_summary", typed)
	assert.Equal(t, "day_summary failed: access to the calendar was denied", err.UserMessage())
	assert.Equal(t, "day_summary", err.Stage)

	plain := NewActionError("day_summary", errors.New("boom"))
	assert.Equal(t, "day_summary failed", plain.UserMessage())
}

func TestHasCode(t *testing.T) {
	inner := NewTimeoutError("search", context.DeadlineExceeded)
	wrapped := fmt.Errorf("round 2: %w", NewActionError("restaurants", inner))

	assert.True(t, HasCode(wrapped, ErrCodeActionFailed))
	assert.True(t, HasCode(wrapped, ErrCodeTimeout))
	assert.False(t, HasCode(wrapped, ErrCodeNetwork))
	assert.False(t, HasCode(errors.New("plain"), ErrCodeNetwork))
	assert.False(t, HasCode(nil, ErrCodeNetwork))
	assert.ErrorIs(t, wrapped, context.DeadlineExceeded)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "plain", UserMessage(errors.New("plain")))
	assert.Equal(t, "another action is still running", UserMessage(fmt.Errorf("wrap: %w", NewBusyError("x"))))
}

func TestFromContext(t *testing.T) {
	assert.Nil(t, FromContext("s", nil))

	timeout := FromContext("s", context.DeadlineExceeded)
	require.NotNil(t, timeout)
	assert.Equal(t, ErrCodeTimeout, timeout.Code)

	cancelled := FromContext("s", context.Canceled)
	require.NotNil(t, cancelled)
	assert.Equal(t, ErrCodeCancelled, cancelled.Code)
	assert.Equal(t, "execution cancelled", cancelled.Message)
}

func TestActionResultText(t *testing.T) {
	assert.Equal(t, "hi", TextResult("hi").Text())
	assert.Equal(t, "3 places", StructuredResult("3 places", []int{1, 2, 3}).Text())

	composite := CompositeResult(TextResult("Good morning"), TextResult(""), StructuredResult("Lunch: 3 places", nil))
	assert.Equal(t, ResultComposite, composite.Kind)
	assert.Equal(t, "Good morning\n\nLunch: 3 places", composite.Text())
}

func TestCoordinatesString(t *testing.T) {
	assert.Equal(t, "52.52000,13.40500", Coordinates{Latitude: 52.52, Longitude: 13.405}.String())
}
