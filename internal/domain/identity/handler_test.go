package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinic/scheduler/internal/platform/apperr"
	"github.com/clinic/scheduler/internal/platform/auth"
)

func newTestHandler(t *testing.T) (*Handler, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	gate := auth.NewGate(env.tokens, env.svc, nil)
	return NewHandler(env.svc, gate), env
}

func jsonContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_CreateDoctor(t *testing.T) {
	h, _ := newTestHandler(t)
	body := `{"name":"Dr. A","specialty":"Cardiology","email":"doc@example.com","phone":"5551234567","password":"pw","available_times":["09:00","09:30"]}`
	c, rec := jsonContext(http.MethodPost, "/", body)

	if err := h.CreateDoctor(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := out["password"]; ok {
		t.Error("password must not be echoed back")
	}
	if _, ok := out["password_hash"]; ok {
		t.Error("password hash must not be serialized")
	}
}

func TestHandler_GetDoctor_InvalidID(t *testing.T) {
	h, _ := newTestHandler(t)
	c, _ := jsonContext(http.MethodGet, "/", "")
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.GetDoctor(c)
	if !apperr.Is(err, apperr.KindMalformed) {
		t.Errorf("expected malformed, got %v", err)
	}
}

func TestHandler_SearchDoctors_BadPeriod(t *testing.T) {
	h, _ := newTestHandler(t)
	c, _ := jsonContext(http.MethodGet, "/?time=evening", "")

	if err := h.SearchDoctors(c); !apperr.Is(err, apperr.KindMalformed) {
		t.Errorf("expected malformed, got %v", err)
	}
}

func TestHandler_SearchDoctors_EmptyList(t *testing.T) {
	h, _ := newTestHandler(t)
	c, rec := jsonContext(http.MethodGet, "/", "")

	if err := h.SearchDoctors(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("expected empty data array, got %s", rec.Body.String())
	}
}

func TestHandler_Login(t *testing.T) {
	h, env := newTestHandler(t)
	if err := env.svc.SignupPatient(context.Background(), samplePatient()); err != nil {
		t.Fatalf("SignupPatient: %v", err)
	}

	c, rec := jsonContext(http.MethodPost, "/", `{"identifier":"pat@example.com","password":"patient-pass"}`)
	c.SetParamNames("role")
	c.SetParamValues("patient")
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var session struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if session.Token == "" || session.Role != "patient" {
		t.Errorf("unexpected session: %+v", session)
	}

	c, _ = jsonContext(http.MethodPost, "/", `{"identifier":"x","password":"y"}`)
	c.SetParamNames("role")
	c.SetParamValues("nurse")
	if err := h.Login(c); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("expected not found for unknown role, got %v", err)
	}
}
