package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"asset-rental-backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestExitMethodWithError_Levels(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter("debug", "json", &buf)

	ExitMethodWithError("rentalService.ApproveRequest", domain.ErrRequestNotPending)
	assert.Contains(t, buf.String(), `"level":"WARN"`)

	buf.Reset()
	ExitMethodWithError("rentalService.ApproveRequest", errors.New("connection reset"))
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter("info", "json", &buf)

	ctx := NewContext(context.Background(), "request_id", "abc-123")
	InfoContext(ctx, "handled")
	assert.Contains(t, buf.String(), `"request_id":"abc-123"`)

	buf.Reset()
	InfoContext(context.Background(), "plain")
	assert.NotContains(t, buf.String(), "request_id")
}

func TestParseLevel(t *testing.T) {
	var buf bytes.Buffer
	InitializeWithWriter("warning", "text", &buf)
	Info("hidden")
	Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
