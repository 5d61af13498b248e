package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/rosterhq/rosterd/internal/logging"
)

func healthzResponse(t *testing.T, db, cache pinger, sweepDone bool) (int, string) {
	t.Helper()
	app := fiber.New()
	app.Get("/healthz", healthz(db, cache, sweepDone, logging.Discard()))

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/healthz", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestHealthzOKWithDisabledDependencies(t *testing.T) {
	status, body := healthzResponse(t, nil, nil, true)
	if status != http.StatusOK {
		t.Fatalf("expected 200 got %d", status)
	}
	if !strings.Contains(body, `"credential_sweep":"complete"`) {
		t.Fatalf("expected completed sweep state, got %s", body)
	}
}

func TestHealthzFailingProbeNeverLeaksErrorText(t *testing.T) {
	failing := func(context.Context) error {
		return errors.New("dial tcp 10.0.0.3:5432: connect: connection refused")
	}

	status, body := healthzResponse(t, failing, nil, true)
	if status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", status)
	}
	if strings.Contains(body, "10.0.0.3") || strings.Contains(body, "dial tcp") {
		t.Fatalf("response leaks driver error text: %s", body)
	}

	var decoded struct {
		Status map[string]string `json:"status"`
	}
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Status["postgres"] != "unavailable" {
		t.Fatalf("expected fixed unavailable marker, got %q", decoded.Status["postgres"])
	}
}

func TestHealthzPendingSweepIsNotReady(t *testing.T) {
	status, body := healthzResponse(t, nil, nil, false)
	if status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while sweep pending, got %d", status)
	}
	if !strings.Contains(body, `"credential_sweep":"pending"`) {
		t.Fatalf("expected pending sweep state, got %s", body)
	}
}
