package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/sports-tracker/internal/domain/game"
	"github.com/riskibarqy/sports-tracker/internal/platform/cache"
	"github.com/riskibarqy/sports-tracker/internal/platform/logging"
	"github.com/riskibarqy/sports-tracker/internal/usecase"
)

func doRequest(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := sonic.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode body %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, out
}

func errorStatus(body map[string]any) string {
	errObj, _ := body["error"].(map[string]any)
	status, _ := errObj["status"].(string)
	return status
}

func errorMessage(body map[string]any) string {
	errObj, _ := body["error"].(map[string]any)
	msg, _ := errObj["message"].(string)
	return msg
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, cache.NewMemoryStore())
	rec, body := doRequest(t, srv.router, http.MethodGet, "/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["status"] != "ok" || body["timestamp"] == "" {
		t.Fatalf("unexpected health body: %v", body)
	}
	if _, ok := body["uptime"].(float64); !ok {
		t.Fatalf("expected numeric uptime, got %v", body["uptime"])
	}
}

func TestRouter_CacheHealthReportsDegradedStore(t *testing.T) {
	t.Parallel()

	store := cache.NewRedisStore(context.Background(), "redis://127.0.0.1:1/0", logging.NewNop())
	defer store.Close()

	srv := newTestServer(t, store)
	rec, body := doRequest(t, srv.router, http.MethodGet, "/health/cache", "")
	if rec.Code != http.StatusServiceUnavailable || body["cache"] != "disconnected" {
		t.Fatalf("expected degraded cache health, got %d %v", rec.Code, body)
	}

	healthy := newTestServer(t, cache.NewMemoryStore())
	rec, body = doRequest(t, healthy.router, http.MethodGet, "/health/cache", "")
	if rec.Code != http.StatusOK || body["cache"] != "connected" {
		t.Fatalf("expected connected cache, got %d %v", rec.Code, body)
	}
}

func TestRouter_UnknownRouteIsJSON404(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, cache.NewMemoryStore())
	rec, body := doRequest(t, srv.router, http.MethodGet, "/api/nope", "")

	if rec.Code != http.StatusNotFound || errorStatus(body) != "NOT_FOUND" {
		t.Fatalf("expected JSON 404, got %d %v", rec.Code, body)
	}
	if !strings.Contains(errorMessage(body), "Route not found") {
		t.Fatalf("unexpected message %q", errorMessage(body))
	}
}

func TestRouter_SportGamesRejectsUnknownSport(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, cache.NewMemoryStore())
	rec, body := doRequest(t, srv.router, http.MethodGet, "/api/sports/cricket/games", "")

	if rec.Code != http.StatusBadRequest || errorStatus(body) != "INVALID_ARGUMENT" {
		t.Fatalf("expected 400, got %d %v", rec.Code, body)
	}
	if !strings.Contains(errorMessage(body), "Invalid sport") {
		t.Fatalf("unexpected message %q", errorMessage(body))
	}

	rec, _ = doRequest(t, srv.router, http.MethodGet, "/api/sports/f1/standings", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("f1 has no standings, expected 400 got %d", rec.Code)
	}
}

func TestRouter_SportGamesDeltaCycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	srv := newTestServer(t, cache.NewMemoryStore())
	srv.espn.set(game.SportNBA, nbaEvent("401", "in", "3", "2"))

	rec, body := doRequest(t, srv.router, http.MethodGet, "/api/sports/nba/games", "")
	if rec.Code != http.StatusOK || body["deltaType"] != "full" {
		t.Fatalf("expected full first response, got %d %v", rec.Code, body)
	}

	srv.espn.set(game.SportNBA, nbaEvent("401", "post", "5", "2"))
	srv.store.DeletePattern(ctx, cache.Key("sport_data", "*"))

	rec, body = doRequest(t, srv.router, http.MethodGet, "/api/sports/nba/games?lastSync=2026-07-01T17:30:00.000Z", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["deltaType"] != "delta" || body["hasChanges"] != true {
		t.Fatalf("expected a field-level delta, got %v", body)
	}
	changes, _ := body["changes"].(map[string]any)
	updated, _ := changes["updated"].([]any)
	if len(updated) != 1 {
		t.Fatalf("expected one updated game, got %v", changes)
	}
	entry, _ := updated[0].(map[string]any)
	fields, _ := entry["changes"].(map[string]any)
	if entry["id"] != "401" || fields["homeScore"] == nil || fields["completed"] == nil {
		t.Fatalf("unexpected updated entry: %v", entry)
	}
}

func TestRouter_SportGamesSurvivesDisconnectedCache(t *testing.T) {
	t.Parallel()

	store := cache.NewRedisStore(context.Background(), "redis://127.0.0.1:1/0", logging.NewNop())
	defer store.Close()

	srv := newTestServer(t, store, withRateLimit(1))
	srv.espn.set(game.SportNBA, nbaEvent("401", "in", "1", "0"))

	for i := 0; i < 3; i++ {
		rec, body := doRequest(t, srv.router, http.MethodGet, "/api/sports/nba/games?lastSync=2026-07-01T17:30:00.000Z", "")
		if rec.Code != http.StatusOK || body["deltaType"] != "full" {
			t.Fatalf("request %d: expected 200 full, got %d %v", i, rec.Code, body)
		}
	}
}

func TestRouter_RateLimitRejectsAfterLimit(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, cache.NewMemoryStore(), withRateLimit(2))
	for i := 0; i < 2; i++ {
		rec, _ := doRequest(t, srv.router, http.MethodGet, "/api/jobs/status", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec, body := doRequest(t, srv.router, http.MethodGet, "/api/jobs/status", "")
	if rec.Code != http.StatusTooManyRequests || errorStatus(body) != "RESOURCE_EXHAUSTED" {
		t.Fatalf("expected 429, got %d %v", rec.Code, body)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	rec, _ = doRequest(t, srv.router, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health must not be rate limited, got %d", rec.Code)
	}
}

func TestRouter_FavoritesSaveAndRead(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, cache.NewMemoryStore())

	rec, body := doRequest(t, srv.router, http.MethodPost, "/api/favorites/teams/user-1",
		`{"teams":[{"teamId":13,"sport":"NBA","displayName":"Lakers"},{"teamId":"13","sport":"nba"}]}`)
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("save favorites: %d %v", rec.Code, body)
	}

	rec, body = doRequest(t, srv.router, http.MethodGet, "/api/favorites/teams/user-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get favorites: %d", rec.Code)
	}
	teams, _ := body["teams"].([]any)
	if len(teams) != 1 {
		t.Fatalf("expected deduped single team, got %v", body["teams"])
	}
	team, _ := teams[0].(map[string]any)
	if team["teamId"] != "13" || team["sport"] != "nba" {
		t.Fatalf("unexpected stored team: %v", team)
	}

	rec, body = doRequest(t, srv.router, http.MethodGet, "/api/favorites/user-1/sync-status", "")
	if rec.Code != http.StatusOK || body["status"] != "never" {
		t.Fatalf("unexpected sync status: %d %v", rec.Code, body)
	}

	rec, body = doRequest(t, srv.router, http.MethodDelete, "/api/favorites/cache/user-1", "")
	if rec.Code != http.StatusOK || body["message"] != "Cache cleared for user" {
		t.Fatalf("clear cache: %d %v", rec.Code, body)
	}
	_, body = doRequest(t, srv.router, http.MethodGet, "/api/favorites/teams/user-1", "")
	if teams, _ := body["teams"].([]any); len(teams) != 0 || body["hasChanges"] != false {
		t.Fatalf("expected empty favorites after clear, got %v", body)
	}
}

func TestRouter_FavoritesRejectsBadPayload(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, cache.NewMemoryStore())
	cases := []string{
		`{"teams":"lakers"}`,
		`{}`,
		`{"teams":[{"teamId":"13","sport":"cricket"}]}`,
		`not json`,
	}
	for _, payload := range cases {
		rec, body := doRequest(t, srv.router, http.MethodPost, "/api/favorites/teams/user-1", payload)
		if rec.Code != http.StatusBadRequest || errorStatus(body) != "INVALID_ARGUMENT" {
			t.Fatalf("payload %s: expected 400, got %d %v", payload, rec.Code, body)
		}
	}
}

func TestRouter_FavoritesDeltaWithoutFavorites(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, cache.NewMemoryStore())
	rec, body := doRequest(t, srv.router, http.MethodGet, "/api/favorites/user-9/delta?include=summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body["userId"] != "user-9" || body["summary"] == nil || body["games"] == nil {
		t.Fatalf("unexpected delta body: %v", body)
	}
}

func TestRouter_NotificationLifecycle(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, cache.NewMemoryStore())

	rec, body := doRequest(t, srv.router, http.MethodGet, "/api/notifications/vapid-public-key", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("disabled push must answer 503, got %d %v", rec.Code, body)
	}

	rec, body = doRequest(t, srv.router, http.MethodPost, "/api/notifications/subscribe/user-1", `{"subscription":{"keys":{}}}`)
	if rec.Code != http.StatusBadRequest || errorMessage(body) != "invalid input: Invalid subscription object" {
		t.Fatalf("expected invalid subscription, got %d %v", rec.Code, body)
	}

	rec, _ = doRequest(t, srv.router, http.MethodPut, "/api/notifications/preferences/user-1", `{"preferences":{"gameStart":false}}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("preferences without subscription: expected 404, got %d", rec.Code)
	}

	rec, body = doRequest(t, srv.router, http.MethodPost, "/api/notifications/subscribe/user-1",
		`{"subscription":{"endpoint":"https://push.example.com/1","keys":{"p256dh":"k","auth":"a"}}}`)
	if rec.Code != http.StatusOK || body["message"] != "Subscription saved successfully" {
		t.Fatalf("subscribe: %d %v", rec.Code, body)
	}

	rec, body = doRequest(t, srv.router, http.MethodPut, "/api/notifications/preferences/user-1", `{"preferences":{"gameStart":false}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update preferences: %d %v", rec.Code, body)
	}
	prefs, _ := body["preferences"].(map[string]any)
	if prefs["gameStart"] != false || prefs["scoreUpdate"] != true || prefs["news"] != false {
		t.Fatalf("unexpected merged preferences: %v", prefs)
	}

	rec, _ = doRequest(t, srv.router, http.MethodPost, "/api/notifications/send/user-1", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("send while disabled: expected 503, got %d", rec.Code)
	}

	srv.sender.enabled = true
	rec, body = doRequest(t, srv.router, http.MethodGet, "/api/notifications/vapid-public-key", "")
	if rec.Code != http.StatusOK || body["publicKey"] != "BTestPublicKey" {
		t.Fatalf("vapid key: %d %v", rec.Code, body)
	}

	rec, body = doRequest(t, srv.router, http.MethodPost, "/api/notifications/send/user-1", `{"title":"Hello"}`)
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("send: %d %v", rec.Code, body)
	}

	srv.sender.err = &usecase.PushDeliveryError{StatusCode: http.StatusGone}
	rec, body = doRequest(t, srv.router, http.MethodPost, "/api/notifications/send/user-1", "")
	if rec.Code != http.StatusGone {
		t.Fatalf("expired subscription: expected 410, got %d %v", rec.Code, body)
	}

	rec, _ = doRequest(t, srv.router, http.MethodPut, "/api/notifications/preferences/user-1", `{"preferences":{"news":true}}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expired subscription must be deleted, got %d", rec.Code)
	}

	rec, body = doRequest(t, srv.router, http.MethodDelete, "/api/notifications/unsubscribe/user-1", "")
	if rec.Code != http.StatusOK || body["message"] != "Unsubscribed successfully" {
		t.Fatalf("unsubscribe: %d %v", rec.Code, body)
	}
}

func TestRouter_JobsStatusListsJobs(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, cache.NewMemoryStore())
	rec, body := doRequest(t, srv.router, http.MethodGet, "/api/jobs/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	jobs, _ := body["jobs"].([]any)
	if len(jobs) != 5 {
		t.Fatalf("expected five jobs, got %v", body["jobs"])
	}
}

func TestRecoverPanic_WritesInternalError(t *testing.T) {
	t.Parallel()

	handler := recoverPanic(logging.NewNop(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/status", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errorMessage(body) != internalErrorMessage {
		t.Fatalf("unexpected message %q", errorMessage(body))
	}
}

func TestHandlerFail_HidesInternalErrorsUnlessExposed(t *testing.T) {
	t.Parallel()

	hidden := NewHandler(HandlerDeps{Logger: logging.NewNop()})
	rec := httptest.NewRecorder()
	hidden.fail(context.Background(), rec, errors.New("redis exploded"), "boom")
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "redis exploded") {
		t.Fatalf("internal error text leaked: %d %s", rec.Code, rec.Body.String())
	}

	exposed := NewHandler(HandlerDeps{Logger: logging.NewNop(), ExposeInternalErrors: true})
	rec = httptest.NewRecorder()
	exposed.fail(context.Background(), rec, errors.New("redis exploded"), "boom")
	if !strings.Contains(rec.Body.String(), "redis exploded") {
		t.Fatalf("expected error text in development mode, got %s", rec.Body.String())
	}
}
