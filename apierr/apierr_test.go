package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("router: %w", Send(io.ErrClosedPipe))

	assert.True(t, errors.Is(err, ErrSendFailure))
	assert.False(t, errors.Is(err, ErrDecodeFailure))
	assert.True(t, errors.Is(err, io.ErrClosedPipe))
	assert.Equal(t, KindSendFailure, KindOf(err))
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, KindUnclassified, KindOf(io.EOF))
}

func TestClassify(t *testing.T) {
	var target map[string]any
	jsonErr := json.Unmarshal([]byte("{"), &target)
	require.Error(t, jsonErr)

	_, numErr := strconv.ParseFloat("abc", 64)
	require.Error(t, numErr)

	already := InvalidRequest("method")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"json syntax", jsonErr, KindDecodeFailure},
		{"number", numErr, KindNumericParseFailure},
		{"transport", io.ErrUnexpectedEOF, KindUnclassified},
		{"already classified", already, KindInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(Classify(tt.err)))
		})
	}

	assert.Nil(t, Classify(nil))
	assert.Same(t, already, Classify(already))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "missing `method` from request", InvalidRequest("method").Error())
	assert.Equal(t, "authorization failed code: `10002`", AuthFailed(10002).Error())
	assert.Equal(t, "missing configuration `websocket_user_api`", MissingConfiguration("websocket_user_api").Error())
	assert.Contains(t, UnsupportedMethod("private/not-a-real-method", nil).Error(), "private/not-a-real-method")
	assert.Equal(t, "unsupported_subscription", KindUnsupportedSubscription.String())
}
