package backend

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"

	"github.com/Xxwwzz12/luna-tarot-tma-sub000/internal/models"
)

func TestClassifyError_DeadlineExceeded(t *testing.T) {
	berr := classifyError("m1", fmt.Errorf("call failed: %w", context.DeadlineExceeded))
	assert.Equal(t, models.ErrClassTimeout, berr.Class)
	assert.Equal(t, "m1", berr.Model)
}

func TestClassifyError_APIStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		class  models.ErrorClass
	}{
		{404, models.ErrClassNotFound},
		{429, models.ErrClassRateLimit},
		{401, models.ErrClassUnauthorized},
		{503, models.ErrClassUnavailable},
		{502, models.ErrClassUnavailable},
		{500, models.ErrClassAPI},
	}
	for _, tc := range cases {
		err := &openaigo.APIError{HTTPStatusCode: tc.status, Message: "boom"}
		berr := classifyError("m1", err)
		assert.Equal(t, tc.class, berr.Class, "status %d", tc.status)
	}
}

func TestClassifyError_StringFallback(t *testing.T) {
	cases := map[string]models.ErrorClass{
		"model not found":              models.ErrClassNotFound,
		"429 too many requests":        models.ErrClassRateLimit,
		"request timed out":            models.ErrClassTimeout,
		"503 service unavailable":      models.ErrClassUnavailable,
		"unauthorized":                 models.ErrClassUnauthorized,
		"openrouter internal problem":  models.ErrClassAPI,
		"что-то совсем непредвиденное": models.ErrClassUnknown,
	}
	for msg, class := range cases {
		berr := classifyError("m1", errors.New(msg))
		assert.Equal(t, class, berr.Class, msg)
	}
}

func TestClassifyError_PreservesCause(t *testing.T) {
	cause := errors.New("rate limit hit")
	berr := classifyError("m1", cause)
	assert.ErrorIs(t, berr, cause)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 45*time.Second, ParseRetryAfter("45"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter(""))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("-5"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("Wed, 21 Oct 2026 07:28:00 GMT"))
}
