package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/taskforge/taskforge/internal/httpapi"
	"github.com/taskforge/taskforge/internal/testutil"
	"github.com/taskforge/taskforge/pkg/auth"
	"github.com/taskforge/taskforge/pkg/authz"
	"github.com/taskforge/taskforge/pkg/cache"
	"github.com/taskforge/taskforge/pkg/task"
)

var testSecret = []byte(strings.Repeat("s", 32))

type testServer struct {
	echo   *echo.Echo
	tokens *auth.Manager
	tasks  *testutil.TaskStore
	users  *testutil.UserStore
}

func newTestServer(t *testing.T, cfg ...func(*httpapi.Config)) *testServer {
	t.Helper()

	tokens, err := auth.NewManager(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	users := testutil.NewUserStore()
	authSvc, err := auth.NewService(users, tokens)
	if err != nil {
		t.Fatalf("auth.NewService: %v", err)
	}

	store := testutil.NewTaskStore()
	dir := testutil.NewUserDirectory("u1", "u2", "admin")
	taskSvc, err := task.New(task.Config{Store: store, Users: dir, Cache: cache.NewMemory()})
	if err != nil {
		t.Fatalf("task.New: %v", err)
	}

	c := httpapi.Config{Auth: authSvc, Tasks: taskSvc, Tokens: tokens}
	for _, f := range cfg {
		f(&c)
	}
	_, e, err := httpapi.New(c)
	if err != nil {
		t.Fatalf("httpapi.New: %v", err)
	}
	return &testServer{echo: e, tokens: tokens, tasks: store, users: users}
}

func (ts *testServer) token(t *testing.T, userID string, role authz.Role) string {
	t.Helper()
	tok, err := ts.tokens.Issue(userID, role)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return tok
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = strings.NewReader(string(b))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	return rec
}

func seedHTTPTask(ts *testServer, id, createdBy, assignedTo string) task.Task {
	now := time.Now()
	t := task.Task{
		ID:           id,
		Title:        "task " + id,
		CreatedByID:  createdBy,
		AssignedToID: assignedTo,
		Status:       task.StatusTodo,
		Priority:     task.PriorityMedium,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	ts.tasks.Seed(t)
	return t
}

func TestTasksRequireToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/tasks", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: got %d, want 401", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/tasks", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: got %d, want 401", rec.Code)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	reg := map[string]string{
		"email":     "Alice@Example.com",
		"password":  "correct-horse",
		"firstName": "Alice",
		"lastName":  "A",
	}
	rec := ts.do(t, http.MethodPost, "/api/auth/register", "", reg)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: got %d, want 201: %s", rec.Code, rec.Body)
	}
	var created auth.User
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if created.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized lowercase", created.Email)
	}
	if strings.Contains(rec.Body.String(), "correct-horse") {
		t.Error("register response leaks the password")
	}

	rec = ts.do(t, http.MethodPost, "/api/auth/register", "", reg)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register: got %d, want 409", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": "no-at-sign", "password": "correct-horse",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad email: got %d, want 400", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "correct-horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got %d, want 200: %s", rec.Code, rec.Body)
	}
	var login struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if login.AccessToken == "" {
		t.Fatal("login returned no access token")
	}

	rec = ts.do(t, http.MethodGet, "/api/auth/profile", login.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile: got %d, want 200", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: got %d, want 401", rec.Code)
	}
}

func TestCreateTask(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, "u1", authz.RoleUser)

	rec := ts.do(t, http.MethodPost, "/api/tasks", tok, map[string]string{
		"title":        "write report",
		"assignedToId": "u2",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: got %d, want 201: %s", rec.Code, rec.Body)
	}
	var created task.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.CreatedByID != "u1" {
		t.Errorf("createdById = %q, want the caller", created.CreatedByID)
	}
	if created.Status != task.StatusTodo || created.Priority != task.PriorityMedium {
		t.Errorf("defaults = %s/%s, want TODO/MEDIUM", created.Status, created.Priority)
	}

	rec = ts.do(t, http.MethodPost, "/api/tasks", tok, map[string]string{
		"title": "", "assignedToId": "u2",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty title: got %d, want 400", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/tasks", tok, map[string]string{
		"title": "orphan", "assignedToId": "ghost",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown assignee: got %d, want 404", rec.Code)
	}
}

func TestListTasksScoping(t *testing.T) {
	ts := newTestServer(t)
	seedHTTPTask(ts, "t1", "u1", "u2")
	seedHTTPTask(ts, "t2", "u2", "u2")

	var page task.Page

	rec := ts.do(t, http.MethodGet, "/api/tasks", ts.token(t, "u1", authz.RoleUser), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list as u1: got %d, want 200", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].ID != "t1" {
		t.Errorf("u1 sees %d tasks (total %d), want only t1", len(page.Items), page.Total)
	}

	rec = ts.do(t, http.MethodGet, "/api/tasks", ts.token(t, "admin", authz.RoleAdmin), nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode admin list: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("admin total = %d, want 2", page.Total)
	}

	rec = ts.do(t, http.MethodGet, "/api/tasks?status=NOPE", ts.token(t, "u1", authz.RoleUser), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid status filter: got %d, want 400", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/tasks?page=abc", ts.token(t, "u1", authz.RoleUser), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid page: got %d, want 400", rec.Code)
	}
}

func TestGetTaskErrors(t *testing.T) {
	ts := newTestServer(t)
	seedHTTPTask(ts, "t1", "u1", "u1")

	rec := ts.do(t, http.MethodGet, "/api/tasks/absent", ts.token(t, "u1", authz.RoleUser), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("absent task: got %d, want 404", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/tasks/t1", ts.token(t, "u2", authz.RoleUser), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("unrelated caller: got %d, want 403", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/tasks/t1", ts.token(t, "admin", authz.RoleAdmin), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("admin: got %d, want 200", rec.Code)
	}
}

func TestUpdateTaskCompletion(t *testing.T) {
	ts := newTestServer(t)
	seedHTTPTask(ts, "t1", "u1", "u2")

	rec := ts.do(t, http.MethodPatch, "/api/tasks/t1", ts.token(t, "u2", authz.RoleUser), map[string]string{
		"status": "COMPLETED",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete: got %d, want 200: %s", rec.Code, rec.Body)
	}
	var updated task.Task
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode update response: %v", err)
	}
	if updated.Status != task.StatusCompleted || updated.CompletedAt == nil {
		t.Errorf("status=%s completedAt=%v, want COMPLETED with timestamp", updated.Status, updated.CompletedAt)
	}

	rec = ts.do(t, http.MethodPatch, "/api/tasks/t1", ts.token(t, "u1", authz.RoleUser), map[string]string{
		"status": "SHIPPED",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad status: got %d, want 400", rec.Code)
	}
}

func TestDeleteTaskPermissions(t *testing.T) {
	ts := newTestServer(t)
	seedHTTPTask(ts, "t1", "u1", "u2")

	rec := ts.do(t, http.MethodDelete, "/api/tasks/t1", ts.token(t, "u2", authz.RoleUser), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("assignee delete: got %d, want 403", rec.Code)
	}

	rec = ts.do(t, http.MethodDelete, "/api/tasks/t1", ts.token(t, "u1", authz.RoleUser), nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("creator delete: got %d, want 204", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/tasks/t1", ts.token(t, "u1", authz.RoleUser), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted task: got %d, want 404", rec.Code)
	}
}

func TestUpstreamFailureStaysOpaque(t *testing.T) {
	ts := newTestServer(t)
	ts.tasks.FailWith = errors.New("pq: connection refused")

	rec := ts.do(t, http.MethodGet, "/api/tasks", ts.token(t, "u1", authz.RoleUser), nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Error("response leaks the upstream error")
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("got %d, want 200", rec.Code)
	}

	down := newTestServer(t, func(c *httpapi.Config) {
		c.Ready = func(ctx context.Context) error { return errors.New("db down") }
	})
	rec = down.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("got %d, want 503", rec.Code)
	}

	// A dead cache reports degraded but stays healthy.
	degraded := newTestServer(t, func(c *httpapi.Config) {
		c.CachePing = func(ctx context.Context) error { return errors.New("redis down") }
	})
	rec = degraded.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("degraded cache: got %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "degraded") {
		t.Errorf("degraded cache: body = %s, want cache state reported", rec.Body)
	}
}

func TestAuthRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	ts := newTestServer(t, func(c *httpapi.Config) {
		c.Limiter = httpapi.NewLimiter(client, 3, time.Minute)
	})

	body := map[string]string{"email": "x@example.com", "password": "whatever0"}
	for i := 0; i < 3; i++ {
		rec := ts.do(t, http.MethodPost, "/api/auth/login", "", body)
		if rec.Code == http.StatusTooManyRequests {
			t.Fatalf("attempt %d limited too early", i+1)
		}
	}
	rec := ts.do(t, http.MethodPost, "/api/auth/login", "", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("attempt 4: got %d, want 429", rec.Code)
	}

	// A dead backend must not lock clients out.
	mr.Close()
	rec = ts.do(t, http.MethodPost, "/api/auth/login", "", body)
	if rec.Code == http.StatusTooManyRequests {
		t.Fatal("limiter must fail open when redis is down")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodGet, "/healthz", "", nil)

	rec := ts.do(t, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "taskforge_http_requests_total") {
		t.Error("metrics output missing taskforge_http_requests_total")
	}
}

func seedHTTPUser(ts *testServer, id, email string, role authz.Role) auth.User {
	now := time.Now()
	u := auth.User{
		ID:        id,
		Email:     email,
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ts.users.SeedUser(u)
	return u
}

func TestLogout(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: got %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "logout successful") {
		t.Errorf("logout body = %s", rec.Body.String())
	}
}

func TestListUsersIsAdminOnly(t *testing.T) {
	ts := newTestServer(t)
	seedHTTPUser(ts, "u1", "u1@example.com", authz.RoleUser)
	seedHTTPUser(ts, "admin", "admin@example.com", authz.RoleAdmin)

	rec := ts.do(t, http.MethodGet, "/api/users", ts.token(t, "u1", authz.RoleUser), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin list: got %d, want 403", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/users?page=1&limit=10", ts.token(t, "admin", authz.RoleAdmin), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin list: got %d, want 200", rec.Code)
	}

	var page struct {
		Data  []auth.User `json:"data"`
		Total int         `json:"total"`
		Page  int         `json:"page"`
		Limit int         `json:"limit"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if page.Total != 2 || len(page.Data) != 2 {
		t.Errorf("total = %d, items = %d, want 2 and 2", page.Total, len(page.Data))
	}
	if page.Page != 1 || page.Limit != 10 {
		t.Errorf("page/limit echoed as %d/%d, want 1/10", page.Page, page.Limit)
	}
}

func TestGetUserSelfOrAdmin(t *testing.T) {
	ts := newTestServer(t)
	seedHTTPUser(ts, "u1", "u1@example.com", authz.RoleUser)
	seedHTTPUser(ts, "u2", "u2@example.com", authz.RoleUser)

	rec := ts.do(t, http.MethodGet, "/api/users/u1", ts.token(t, "u1", authz.RoleUser), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("self lookup: got %d, want 200", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/users/u2", ts.token(t, "u1", authz.RoleUser), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("other user lookup: got %d, want 403", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/users/u2", ts.token(t, "admin", authz.RoleAdmin), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin lookup: got %d, want 200", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/users/missing", ts.token(t, "admin", authz.RoleAdmin), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown user: got %d, want 404", rec.Code)
	}
}

func TestCreateUserIsAdminOnly(t *testing.T) {
	ts := newTestServer(t)

	body := map[string]string{
		"email":     "new@example.com",
		"password":  "Password123",
		"firstName": "New",
		"lastName":  "User",
		"role":      "ADMIN",
	}

	rec := ts.do(t, http.MethodPost, "/api/users", ts.token(t, "u1", authz.RoleUser), body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin create: got %d, want 403", rec.Code)
	}

	adminToken := ts.token(t, "admin", authz.RoleAdmin)
	rec = ts.do(t, http.MethodPost, "/api/users", adminToken, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create: got %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var created auth.User
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if created.Role != authz.RoleAdmin {
		t.Errorf("created role = %s, want ADMIN", created.Role)
	}
	if strings.Contains(rec.Body.String(), "passwordHash") {
		t.Error("password hash leaked in response")
	}

	// Duplicate email surfaces as a conflict.
	rec = ts.do(t, http.MethodPost, "/api/users", adminToken, body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate email: got %d, want 409", rec.Code)
	}

	body["role"] = "SUPERUSER"
	body["email"] = "other@example.com"
	rec = ts.do(t, http.MethodPost, "/api/users", adminToken, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown role: got %d, want 400", rec.Code)
	}
}
