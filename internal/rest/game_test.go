package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"restoPlay/business/registration"
	"restoPlay/business/session"
	"restoPlay/business/tenant"
	"restoPlay/domain"
	"restoPlay/internal/repository/memory"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	catalog, err := tenant.New(domain.Tenant{
		Name:           "Cafe X",
		Partition:      "cafe_x_users",
		Offers:         []string{"Free coffee"},
		WinProbability: 0.2,
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	repo := memory.NewParticipantRepository(catalog.Partitions()...)
	reg := registration.NewRegistrationService(repo, validator.New(), nil, nil, registration.Config{MultiTenant: true})
	sess := session.NewSessionService(repo, session.Config{MultiTenant: true})
	h := NewGameHandler(reg, sess, catalog, 0)

	e := echo.New()
	api := e.Group("/api")
	api.POST("/register", h.Register)
	api.POST("/game-played", h.GamePlayed)
	api.POST("/feedback", h.Feedback)
	api.GET("/validate-token", h.ValidateToken)
	api.GET("/restaurants", h.Restaurants)

	return e
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (int, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var raw interface{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
			t.Fatalf("decode %s %s response %q: %v", method, target, rec.Body.String(), err)
		}
	}

	out, _ := raw.(map[string]interface{})
	if out == nil {
		out = map[string]interface{}{}
	}

	return rec.Code, out
}

func TestRegisterFlow(t *testing.T) {
	e := newTestServer(t)

	code, body := do(t, e, http.MethodPost, "/api/register?restaurantName=cafe%20x",
		`{"name":"A","email":"a@example.com","phone":"+911234567890"}`)
	if code != http.StatusCreated {
		t.Fatalf("register status = %d, body = %v", code, body)
	}
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatalf("missing token: %v", body)
	}
	if body["winProbability"] != 0.2 || body["tableName"] != "cafe_x_users" {
		t.Errorf("reward not echoed: %v", body)
	}

	code, body = do(t, e, http.MethodPost, "/api/register?restaurantName=CAFE%20X",
		`{"name":"A","phone":"01234567890"}`)
	if code != http.StatusOK || body["token"] != token {
		t.Fatalf("repeat register = %d %v, want 200 with %s", code, body, token)
	}
	if v, ok := body["latestPlayedTimestamp"]; !ok || v != nil {
		t.Errorf("latestPlayedTimestamp = %v (present=%v), want null", v, ok)
	}

	code, body = do(t, e, http.MethodPost, "/api/game-played", `{"token":"`+token+`","tableName":"cafe_x_users"}`)
	if code != http.StatusOK || body["acknowledged"] != true || body["token"] != token {
		t.Fatalf("game-played = %d %v", code, body)
	}

	code, body = do(t, e, http.MethodPost, "/api/register?restaurantName=Cafe%20X", `{"name":"A","phone":"1234567890"}`)
	if code != http.StatusOK || body["latestPlayedTimestamp"] == nil {
		t.Errorf("register after play = %d %v, want latestPlayedTimestamp set", code, body)
	}

	code, body = do(t, e, http.MethodPost, "/api/feedback", `{"token":"`+token+`","rating":5,"restaurantName":"cafe x"}`)
	if code != http.StatusOK || body["rating"] != float64(5) {
		t.Fatalf("feedback = %d %v", code, body)
	}

	code, body = do(t, e, http.MethodGet, "/api/validate-token?token="+token+"&tableName=cafe_x_users", "")
	if code != http.StatusOK {
		t.Fatalf("validate-token = %d %v", code, body)
	}
}

func TestRegister_UnknownRestaurant(t *testing.T) {
	e := newTestServer(t)

	tests := []struct {
		target string
		body   string
	}{
		{target: "/api/register", body: `{"name":"A","phone":"1234567890"}`},
		{target: "/api/register?restaurantName=nowhere", body: `{"name":"A","phone":"1234567890"}`},
		{target: "/api/register?restaurantName=Nope", body: `{"phone":"9876543210"}`},
		{target: "/api/register", body: `{"restaurantName":"nowhere","email":"bad"}`},
	}

	for _, tt := range tests {
		code, body := do(t, e, http.MethodPost, tt.target, tt.body)
		if code != http.StatusBadRequest || body["code"] != "INVALID_TENANT" || body["error"] == "" {
			t.Errorf("%s %s = %d %v", tt.target, tt.body, code, body)
		}
	}
}

func TestRegister_RestaurantFromBody(t *testing.T) {
	e := newTestServer(t)

	code, body := do(t, e, http.MethodPost, "/api/register", `{"name":"A","phone":"1234567890","restaurantName":"Cafe X"}`)
	if code != http.StatusCreated || body["tableName"] != "cafe_x_users" {
		t.Errorf("register = %d %v", code, body)
	}
}

func TestRegister_InvalidBody(t *testing.T) {
	e := newTestServer(t)

	code, _ := do(t, e, http.MethodPost, "/api/register?restaurantName=cafe%20x", `{"name":"A"}`)
	if code != http.StatusBadRequest {
		t.Errorf("missing phone status = %d", code)
	}

	code, _ = do(t, e, http.MethodPost, "/api/register?restaurantName=cafe%20x", `{"name":`)
	if code != http.StatusBadRequest {
		t.Errorf("malformed json status = %d", code)
	}
}

func TestGamePlayed_Errors(t *testing.T) {
	e := newTestServer(t)

	code, body := do(t, e, http.MethodPost, "/api/game-played", `{"token":"abc"}`)
	if code != http.StatusBadRequest || body["code"] != "MISSING_TENANT" {
		t.Errorf("missing table = %d %v", code, body)
	}

	code, body = do(t, e, http.MethodPost, "/api/game-played", `{"token":"abc","tableName":"users"}`)
	if code != http.StatusBadRequest || body["code"] != "INVALID_TENANT" {
		t.Errorf("unknown table = %d %v", code, body)
	}

	code, body = do(t, e, http.MethodPost, "/api/game-played", `{"token":"abc","tableName":"cafe_x_users"}`)
	if code != http.StatusNotFound || body["code"] != "UNKNOWN_TOKEN" {
		t.Errorf("unknown token = %d %v", code, body)
	}
}

func TestFeedback_InvalidRatings(t *testing.T) {
	e := newTestServer(t)

	for _, rating := range []string{"0", "6", "3.5", "null", `"5"`, `"five"`, "[5]", "true"} {
		code, body := do(t, e, http.MethodPost, "/api/feedback",
			`{"token":"abc","tableName":"cafe_x_users","rating":`+rating+`}`)
		if code != http.StatusBadRequest || body["code"] != "INVALID_RATING" {
			t.Errorf("rating %s = %d %v", rating, code, body)
		}
	}

	code, body := do(t, e, http.MethodPost, "/api/feedback", `{"token":"abc","tableName":"cafe_x_users"}`)
	if code != http.StatusBadRequest || body["code"] != "INVALID_RATING" {
		t.Errorf("missing rating = %d %v", code, body)
	}
}

func TestParseRating(t *testing.T) {
	got, err := parseRating(json.RawMessage("4"))
	if err != nil || got != 4 {
		t.Errorf("parseRating(4) = %v, %v", got, err)
	}

	for _, raw := range []string{"", "null", `"4"`, "{}"} {
		if _, err := parseRating(json.RawMessage(raw)); !errors.Is(err, domain.ErrInvalidRating) {
			t.Errorf("parseRating(%q) err = %v, want ErrInvalidRating", raw, err)
		}
	}
}

func TestRestaurants(t *testing.T) {
	e := newTestServer(t)

	code, _ := do(t, e, http.MethodGet, "/api/restaurants", "")
	if code != http.StatusOK {
		t.Errorf("restaurants status = %d", code)
	}
}
