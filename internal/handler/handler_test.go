package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/zolffix/internal/service"
	"github.com/zolffix/internal/storage/memory"
)

// 2024-03-15 20:00 UTC，东京已是 3 月 16 日
var handlerNow = time.Date(2024, time.March, 15, 20, 0, 0, 0, time.UTC)

type testServer struct {
	engine *gin.Engine
	app    *service.App
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app := service.NewApp(service.AppOptions{
		Store:     memory.NewStore(),
		Clock:     func() time.Time { return handlerNow },
		JWTSecret: "test-jwt-secret",
	})
	t.Cleanup(func() { _ = app.Close() })

	api := NewAPI(app)
	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-session-secret"))))

	group := r.Group("/api")
	group.Use(TimezoneMiddleware())
	group.POST("/auth/signup", api.Signup)
	group.POST("/auth/login", api.Login)
	group.POST("/auth/logout", api.Logout)

	protected := group.Group("")
	protected.Use(api.AuthRequired())
	protected.GET("/habits", api.ListHabits)
	protected.POST("/habits", api.CreateHabit)
	protected.GET("/habits/calendar", api.GetHabitCalendar)
	protected.GET("/habits/:id", api.GetHabit)
	protected.PUT("/habits/:id", api.UpdateHabit)
	protected.DELETE("/habits/:id", api.DeleteHabit)
	protected.POST("/habits/:id/toggle", api.ToggleHabit)
	protected.GET("/journal", api.ListJournal)
	protected.POST("/journal", api.AddJournalEntry)
	protected.GET("/journal/moods", api.ListMoods)
	protected.GET("/quotes", api.GetQuoteFeed)
	protected.POST("/quotes/saved", api.ToggleSavedQuote)
	protected.GET("/quotes/saved", api.ListSavedQuotes)
	protected.GET("/profile", api.GetProfile)
	protected.GET("/profile/stats", api.GetProfileStats)
	protected.GET("/profile/avatar.png", api.GetAvatar)
	protected.DELETE("/profile", api.ResetProfile)

	return &testServer{engine: r, app: app}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rr := httptest.NewRecorder()
	s.engine.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) signup(t *testing.T, email string) map[string]string {
	t.Helper()

	rr := s.do(t, http.MethodPost, "/api/auth/signup", gin.H{
		"name": "Ava Stone", "email": email, "password": "password123",
	}, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp authResponse
	decodeBody(t, rr, &resp)
	if resp.Token == "" || resp.Account.ID == "" {
		t.Fatalf("expected token and account, got %+v", resp)
	}
	return map[string]string{"Authorization": "Bearer " + resp.Token}
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func TestSignupAndLogin(t *testing.T) {
	s := setupTestServer(t)
	s.signup(t, "ava@example.com")

	rr := s.do(t, http.MethodPost, "/api/auth/signup", gin.H{
		"name": "Other", "email": "AVA@example.com", "password": "password123",
	}, nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate signup expected 409, got %d", rr.Code)
	}

	rr = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "ava@example.com", "password": "wrong-password"}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password expected 401, got %d", rr.Code)
	}

	rr = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "ava@example.com", "password": "password123"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "passwordHash") {
		t.Fatalf("password hash must not be exposed: %s", rr.Body.String())
	}

	sessionCookie := rr.Header().Get("Set-Cookie")
	if sessionCookie == "" {
		t.Fatalf("expected session cookie")
	}
	rr = s.do(t, http.MethodGet, "/api/habits", nil, map[string]string{"Cookie": strings.Split(sessionCookie, ";")[0]})
	if rr.Code != http.StatusOK {
		t.Fatalf("session auth expected 200, got %d", rr.Code)
	}
}

func TestSignupValidation(t *testing.T) {
	s := setupTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/auth/signup", gin.H{"name": "Ava", "email": "not-an-email", "password": "password123"}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	rr = s.do(t, http.MethodPost, "/api/auth/signup", gin.H{"name": "Ava", "email": "ava@example.com", "password": "short"}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", rr.Code)
	}
}

func TestAuthRequiredRejectsBadToken(t *testing.T) {
	s := setupTestServer(t)

	rr := s.do(t, http.MethodGet, "/api/habits", nil, map[string]string{"Authorization": "Bearer not-a-token"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	rr = s.do(t, http.MethodGet, "/api/habits", nil, map[string]string{"Authorization": "Basic abc"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for basic auth, got %d", rr.Code)
	}
}

func TestHabitToggleFlow(t *testing.T) {
	s := setupTestServer(t)
	auth := s.signup(t, "ava@example.com")

	rr := s.do(t, http.MethodPost, "/api/habits", gin.H{"name": "Read"}, auth)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created struct {
		Habit habitPayload `json:"habit"`
	}
	decodeBody(t, rr, &created)
	if created.Habit.Icon != service.DefaultHabitIcon || created.Habit.Streak != 0 {
		t.Fatalf("unexpected habit %+v", created.Habit)
	}

	id := created.Habit.ID
	for _, date := range []string{"2024-03-14", "2024-03-13", "2024-03-12"} {
		rr = s.do(t, http.MethodPost, "/api/habits/"+id+"/toggle", gin.H{"date": date}, auth)
		if rr.Code != http.StatusOK {
			t.Fatalf("toggle %s expected 200, got %d", date, rr.Code)
		}
	}

	rr = s.do(t, http.MethodPost, "/api/habits/"+id+"/toggle", nil, auth)
	if rr.Code != http.StatusOK {
		t.Fatalf("toggle today expected 200, got %d", rr.Code)
	}
	var toggled struct {
		Habit habitPayload `json:"habit"`
	}
	decodeBody(t, rr, &toggled)
	if toggled.Habit.Streak != 4 || !toggled.Habit.CompletedToday {
		t.Fatalf("expected streak 4 completed today, got %+v", toggled.Habit)
	}

	rr = s.do(t, http.MethodPost, "/api/habits/"+id+"/toggle", nil, auth)
	decodeBody(t, rr, &toggled)
	if toggled.Habit.Streak != 3 || toggled.Habit.CompletedToday {
		t.Fatalf("expected streak back to 3, got %+v", toggled.Habit)
	}
}

func TestUpdateHabitReplacesDates(t *testing.T) {
	s := setupTestServer(t)
	auth := s.signup(t, "ava@example.com")

	rr := s.do(t, http.MethodPost, "/api/habits", gin.H{"name": "Read"}, auth)
	var created struct {
		Habit habitPayload `json:"habit"`
	}
	decodeBody(t, rr, &created)
	id := created.Habit.ID

	rr = s.do(t, http.MethodPut, "/api/habits/"+id, gin.H{"name": "Read more", "icon": "📖"}, auth)
	var updated struct {
		Habit habitPayload `json:"habit"`
	}
	decodeBody(t, rr, &updated)
	if updated.Habit.Name != "Read more" || updated.Habit.Streak != 0 {
		t.Fatalf("unexpected edit result %+v", updated.Habit)
	}

	rr = s.do(t, http.MethodPut, "/api/habits/"+id, gin.H{
		"name":           "Read more",
		"completedDates": []string{"2024-03-13", "2024-03-14", "2024-03-14"},
	}, auth)
	if rr.Code != http.StatusOK {
		t.Fatalf("bulk update expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	decodeBody(t, rr, &updated)
	if updated.Habit.Streak != 2 || len(updated.Habit.CompletedDates) != 2 {
		t.Fatalf("expected recomputed streak 2, got %+v", updated.Habit)
	}

	rr = s.do(t, http.MethodPut, "/api/habits/missing", gin.H{"name": "Ghost", "completedDates": []string{}}, auth)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown habit expected 404, got %d", rr.Code)
	}
}

func TestToggleHabitChunkedBody(t *testing.T) {
	s := setupTestServer(t)
	auth := s.signup(t, "ava@example.com")

	rr := s.do(t, http.MethodPost, "/api/habits", gin.H{"name": "Read"}, auth)
	var created struct {
		Habit habitPayload `json:"habit"`
	}
	decodeBody(t, rr, &created)

	// 非 bytes/strings 类型的 body 没有长度，按分块传输处理
	body := io.NopCloser(strings.NewReader(`{"date":"2024-03-14"}`))
	req := httptest.NewRequest(http.MethodPost, "/api/habits/"+created.Habit.ID+"/toggle", body)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range auth {
		req.Header.Set(key, value)
	}
	if req.ContentLength != -1 {
		t.Fatalf("expected unknown content length, got %d", req.ContentLength)
	}

	rr = httptest.NewRecorder()
	s.engine.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("toggle expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var toggled struct {
		Habit habitPayload `json:"habit"`
	}
	decodeBody(t, rr, &toggled)
	if toggled.Habit.CompletedToday || len(toggled.Habit.CompletedDates) != 1 || toggled.Habit.Streak != 1 {
		t.Fatalf("expected only 2024-03-14 completed, got %+v", toggled.Habit)
	}
}

func TestHabitErrors(t *testing.T) {
	s := setupTestServer(t)
	auth := s.signup(t, "ava@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"empty name", http.MethodPost, "/api/habits", gin.H{"name": "  "}, http.StatusBadRequest},
		{"bad reminder", http.MethodPost, "/api/habits", gin.H{"name": "Run", "reminderTime": "25:00"}, http.StatusBadRequest},
		{"unknown get", http.MethodGet, "/api/habits/missing", nil, http.StatusNotFound},
		{"unknown toggle", http.MethodPost, "/api/habits/missing/toggle", nil, http.StatusNotFound},
		{"bad date", http.MethodPost, "/api/habits/missing/toggle", gin.H{"date": "15/03/2024"}, http.StatusBadRequest},
		{"future date", http.MethodPost, "/api/habits/missing/toggle", gin.H{"date": "2024-03-17"}, http.StatusBadRequest},
		{"unknown delete", http.MethodDelete, "/api/habits/missing", nil, http.StatusNoContent},
		{"bad month", http.MethodGet, "/api/habits/calendar?month=2024-13", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(t, tt.method, tt.path, tt.body, auth)
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestTimezoneHeader(t *testing.T) {
	s := setupTestServer(t)
	auth := s.signup(t, "ava@example.com")

	rr := s.do(t, http.MethodGet, "/api/habits", nil, auth)
	var list struct {
		Today string `json:"today"`
	}
	decodeBody(t, rr, &list)
	if list.Today != "2024-03-15" {
		t.Fatalf("expected UTC today, got %q", list.Today)
	}

	tokyo := map[string]string{"Authorization": auth["Authorization"], "X-Timezone": "Asia/Tokyo"}
	rr = s.do(t, http.MethodGet, "/api/habits", nil, tokyo)
	decodeBody(t, rr, &list)
	if list.Today != "2024-03-16" {
		t.Fatalf("expected Tokyo today, got %q", list.Today)
	}
	if !strings.Contains(rr.Header().Get("Vary"), "X-Timezone") {
		t.Fatalf("expected Vary header, got %q", rr.Header().Get("Vary"))
	}

	rr = s.do(t, http.MethodGet, "/api/habits", nil, map[string]string{"Authorization": auth["Authorization"], "X-Timezone": "Mars/Olympus"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown zone, got %d", rr.Code)
	}
}

func TestJournalEndpoints(t *testing.T) {
	s := setupTestServer(t)
	auth := s.signup(t, "ava@example.com")

	rr := s.do(t, http.MethodPost, "/api/journal", gin.H{"content": "hi", "mood": "Bored"}, auth)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown mood expected 400, got %d", rr.Code)
	}

	rr = s.do(t, http.MethodPost, "/api/journal", gin.H{"content": "**great** day", "mood": "happy"}, auth)
	if rr.Code != http.StatusCreated {
		t.Fatalf("add expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var added struct {
		Entry service.JournalView `json:"entry"`
	}
	decodeBody(t, rr, &added)
	if added.Entry.Mood.Emoji != "😊" || !strings.Contains(added.Entry.ContentHTML, "<strong>great</strong>") {
		t.Fatalf("unexpected entry %+v", added.Entry)
	}

	rr = s.do(t, http.MethodGet, "/api/journal/moods", nil, auth)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Anxious") {
		t.Fatalf("unexpected moods response %d %s", rr.Code, rr.Body.String())
	}
}

func TestQuoteFeedFallsBackWithoutSource(t *testing.T) {
	s := setupTestServer(t)
	auth := s.signup(t, "ava@example.com")

	rr := s.do(t, http.MethodGet, "/api/quotes?category=love&count=3", nil, auth)
	if rr.Code != http.StatusOK {
		t.Fatalf("feed expected 200, got %d", rr.Code)
	}
	var feed struct {
		Quotes []service.QuoteFeedItem `json:"quotes"`
	}
	decodeBody(t, rr, &feed)
	if len(feed.Quotes) != 3 || !feed.Quotes[0].Fallback || feed.Quotes[0].Category != "Love" {
		t.Fatalf("unexpected feed %+v", feed.Quotes)
	}

	rr = s.do(t, http.MethodGet, "/api/quotes?count=abc", nil, auth)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad count expected 400, got %d", rr.Code)
	}
	rr = s.do(t, http.MethodGet, "/api/quotes?category=Cooking", nil, auth)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown category expected 400, got %d", rr.Code)
	}

	quote := feed.Quotes[0].Quote
	rr = s.do(t, http.MethodPost, "/api/quotes/saved", quote, auth)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"saved":true`) {
		t.Fatalf("save expected saved=true, got %d %s", rr.Code, rr.Body.String())
	}
	rr = s.do(t, http.MethodGet, "/api/quotes/saved", nil, auth)
	if !strings.Contains(rr.Body.String(), quote.ID) {
		t.Fatalf("saved list should contain quote, got %s", rr.Body.String())
	}
	rr = s.do(t, http.MethodPost, "/api/quotes/saved", quote, auth)
	if !strings.Contains(rr.Body.String(), `"saved":false`) {
		t.Fatalf("second toggle should unsave, got %s", rr.Body.String())
	}
}

func TestProfileEndpoints(t *testing.T) {
	s := setupTestServer(t)
	auth := s.signup(t, "ava@example.com")

	s.do(t, http.MethodPost, "/api/habits", gin.H{"name": "Read"}, auth)

	rr := s.do(t, http.MethodGet, "/api/profile/stats", nil, auth)
	var stats service.ProfileStats
	decodeBody(t, rr, &stats)
	if stats.HabitCount != 1 {
		t.Fatalf("expected 1 habit, got %+v", stats)
	}

	rr = s.do(t, http.MethodGet, "/api/profile/avatar.png", nil, auth)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected avatar response %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}

	rr = s.do(t, http.MethodDelete, "/api/profile", nil, auth)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("reset expected 204, got %d", rr.Code)
	}

	rr = s.do(t, http.MethodGet, "/api/profile/stats", nil, auth)
	decodeBody(t, rr, &stats)
	if stats.HabitCount != 0 {
		t.Fatalf("expected empty stats after reset, got %+v", stats)
	}

	rr = s.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "ava@example.com", "password": "password123"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("account should survive reset, got %d", rr.Code)
	}
}

func TestSignupUsesAcceptLanguage(t *testing.T) {
	s := setupTestServer(t)

	rr := s.do(t, http.MethodPost, "/api/auth/signup", gin.H{
		"name": "Sara", "email": "sara@example.com", "password": "password123",
	}, map[string]string{"Accept-Language": "ur-PK,ur;q=0.9"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup expected 201, got %d", rr.Code)
	}
	var resp authResponse
	decodeBody(t, rr, &resp)

	rr = s.do(t, http.MethodGet, "/api/profile", nil, map[string]string{"Authorization": "Bearer " + resp.Token})
	if !strings.Contains(rr.Body.String(), `"language":"ur"`) || !strings.Contains(rr.Body.String(), `"dir":"rtl"`) {
		t.Fatalf("expected urdu rtl profile, got %s", rr.Body.String())
	}
}
