package handlers_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"ppecatalog/internal/config"
	"ppecatalog/internal/domain"
	"ppecatalog/internal/http/handlers"
	applog "ppecatalog/internal/log"
	"ppecatalog/internal/repos"
	"ppecatalog/internal/seed"
)

func testConfig() config.Config {
	return config.Config{
		TemplatesDir: "../../web/templates",
		StaticDir:    "../../web/static",
		NotifyTo:     "ventes@example.com",
	}
}

func seededStore(t *testing.T) repos.Store {
	t.Helper()
	b, err := seed.Load("")
	require.NoError(t, err)
	return repos.NewMemory(b)
}

// newApp wires the production app over store. Rate limits are off unless
// cfg sets them.
func newApp(t *testing.T, store repos.Store, cfg config.Config) *fiber.App {
	t.Helper()
	deps := handlers.NewDeps(store, cfg, zap.NewNop())
	return handlers.NewApp(deps, cfg)
}

// observeLogs routes the process logger to an observer for the test.
func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := applog.SetLogger(zap.New(core))
	t.Cleanup(func() { applog.SetLogger(prev) })
	return logs
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func get(t *testing.T, app *fiber.App, target string) (*http.Response, string) {
	t.Helper()
	return do(t, app, httptest.NewRequest(http.MethodGet, target, nil))
}

func sendJSON(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return do(t, app, req)
}

// csrfToken fetches a page to obtain the CSRF cookie.
func csrfToken(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp, _ := get(t, app, "/contact")
	for _, c := range resp.Cookies() {
		if c.Name == "csrf_" {
			return c.Value
		}
	}
	t.Fatal("csrf cookie missing")
	return ""
}

// postForm submits form with a valid CSRF token.
func postForm(t *testing.T, app *fiber.App, target string, form url.Values) (*http.Response, string) {
	t.Helper()
	tok := csrfToken(t, app)
	form.Set("csrf", tok)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: tok})
	return do(t, app, req)
}

var errStorage = errors.New("sqlite: database is locked at /var/lib/catalog.db")

// failingStore fails every read the pages and API depend on.
type failingStore struct{ repos.Store }

func (failingStore) Categories(context.Context) ([]domain.Category, error) {
	return nil, errStorage
}

func (failingStore) Products(context.Context, string, string) ([]domain.Product, error) {
	return nil, errStorage
}
