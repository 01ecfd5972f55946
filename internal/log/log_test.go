package log_test

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	applog "ppecatalog/internal/log"
)

func observe(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	core, logs := observer.New(level)
	prev := applog.SetLogger(zap.New(core))
	t.Cleanup(func() { applog.SetLogger(prev) })
	return logs
}

func TestRequestFieldsAreAttached(t *testing.T) {
	logs := observe(t, zapcore.DebugLevel)

	app := fiber.New()
	app.Use(requestid.New())
	app.Get("/x", func(c *fiber.Ctx) error {
		c.Status(fiber.StatusAccepted)
		applog.Audit(c, "quote_status_update", map[string]any{"quote_id": "q1"})
		return nil
	})
	resp, err := app.Test(httptest.NewRequest("GET", "/x", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	entries := logs.FilterMessage("quote_status_update").All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "audit", ctx["kind"])
	assert.Equal(t, "GET", ctx["method"])
	assert.Equal(t, "/x", ctx["path"])
	assert.Equal(t, int64(fiber.StatusAccepted), ctx["status"])
	assert.Equal(t, "q1", ctx["quote_id"])
	assert.NotEmpty(t, ctx["req_id"])
}

func TestLevels(t *testing.T) {
	logs := observe(t, zapcore.WarnLevel)

	applog.Info(nil, "ignored", nil)
	applog.Security(nil, "csrf_reject", nil)
	applog.Error(nil, "db_error", errors.New("boom"), map[string]any{"op": "list"})

	all := logs.All()
	require.Len(t, all, 2)
	assert.Equal(t, zapcore.WarnLevel, all[0].Level)
	assert.Equal(t, zapcore.ErrorLevel, all[1].Level)
	assert.Equal(t, "boom", all[1].ContextMap()["error"])
}

func TestNewFallsBackToInfo(t *testing.T) {
	l, err := applog.New("chatty", "")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}
