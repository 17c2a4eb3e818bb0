package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"smartfin/internal/api"
	"smartfin/internal/log"
	"smartfin/internal/services"
	"smartfin/internal/session"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

const loginResponse = `{"message":"ok","token":"tok-1","user":{"_id":"u1","username":"asha","email":"asha@example.in","createdAt":"2024-01-05T00:00:00.000Z"}}`

// fakeAPI stands in for the SmartFin REST API. responses maps "METHOD /path"
// to a status and JSON body; unmatched calls answer 404.
type fakeAPI struct {
	mu        sync.Mutex
	calls     []string
	bodies    map[string]string
	responses map[string]fakeResponse
}

type fakeResponse struct {
	status int
	body   string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		bodies: make(map[string]string),
		responses: map[string]fakeResponse{
			"GET /":                      {http.StatusOK, `{"status":"ok"}`},
			"POST /api/auth/login":       {http.StatusOK, loginResponse},
			"POST /api/auth/register":    {http.StatusCreated, `{"message":"User registered successfully"}`},
			"GET /api/transactions":      {http.StatusOK, `[]`},
			"GET /api/goals":             {http.StatusOK, `[]`},
			"GET /api/budget":            {http.StatusOK, `null`},
			"GET /api/analytics/predict": {http.StatusOK, `{"nextMonthPrediction":0}`},
			"POST /api/transactions":     {http.StatusCreated, `{"_id":"t-new"}`},
			"POST /api/goals":            {http.StatusCreated, `{"_id":"g-new"}`},
			"POST /api/budget":           {http.StatusOK, `{"_id":"b1"}`},
			"PUT /api/transactions/t1":   {http.StatusOK, `{"_id":"t1"}`},
			"PUT /api/goals/g1":          {http.StatusOK, `{"_id":"g1"}`},
		},
	}
}

func (f *fakeAPI) set(key string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[key] = fakeResponse{status, body}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	raw, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.bodies[key] = string(raw)
	resp, ok := f.responses[key]
	f.mu.Unlock()

	if !ok {
		resp = fakeResponse{http.StatusNotFound, `{"message":"Route not found"}`}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = io.WriteString(w, resp.body)
}

func (f *fakeAPI) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == key {
			n++
		}
	}
	return n
}

func (f *fakeAPI) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeAPI) body(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[key]
}

type testEnv struct {
	fake   *fakeAPI
	client *api.Client
	store  *session.MemoryStore
	logger *log.Logger
	srv    *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	fake := newFakeAPI()
	apiSrv := httptest.NewServer(fake)
	t.Cleanup(apiSrv.Close)

	env := &testEnv{
		fake:   fake,
		client: api.New(apiSrv.URL),
		store:  session.NewMemoryStore(100, time.Hour),
		logger: log.New(log.Config{Level: slog.LevelError, Output: io.Discard}),
	}
	env.srv = env.newServer(nil)
	return env
}

// newServer builds a server with its own session Manager over the shared
// store, as after a restart.
func (e *testEnv) newServer(templates fstest.MapFS) *Server {
	deps := Deps{
		Sessions: session.NewManager(e.store, session.Options{Secret: testSecret, MaxAge: time.Hour}, e.logger),
		Auth:     services.NewAuthService(e.client),
		Ledger:   services.NewLedgerService(e.client, nil, e.logger),
		API:      e.client,
		Logger:   e.logger,
	}
	if templates != nil {
		deps.Templates = templates
	}
	return NewServer(":0", deps)
}

func do(srv *Server, method, target string, form url.Values, cookie *http.Cookie, htmx bool) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", session.CookieName)
	return nil
}

func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	rr := do(e.srv, http.MethodPost, "/login", url.Values{"email": {"asha@example.in"}, "password": {"secret1"}}, nil, false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/dashboard" {
		t.Fatalf("login = %d %q, want 303 /dashboard; body: %s", rr.Code, rr.Header().Get("Location"), rr.Body.String())
	}
	return sessionCookie(t, rr)
}

func TestHomeAndOperationalEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rr := do(env.srv, http.MethodGet, "/", nil, nil, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("home status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Expense Tracking", "Smart Budgeting", `href="/login"`, `href="/register"`} {
		if !strings.Contains(body, want) {
			t.Errorf("home body missing %q", want)
		}
	}
	if strings.Contains(body, `action="/logout"`) {
		t.Error("anonymous navbar shows logout")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(env.srv, http.MethodGet, path, nil, nil, false)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body.String())
		}
	}

	rr = do(env.srv, http.MethodGet, "/metrics", nil, nil, false)
	if !strings.Contains(rr.Body.String(), "http_requests_total") {
		t.Errorf("metrics missing http_requests_total: %s", rr.Body.String())
	}

	rr = do(env.srv, http.MethodGet, "/static/app.js", nil, nil, false)
	if rr.Code != http.StatusOK {
		t.Errorf("static status=%d", rr.Code)
	}
}

func TestUnknownPathRedirectsHome(t *testing.T) {
	env := newTestEnv(t)

	rr := do(env.srv, http.MethodGet, "/does/not/exist", nil, nil, false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("got %d %q, want 303 /", rr.Code, rr.Header().Get("Location"))
	}

	rr = do(env.srv, http.MethodGet, "/nowhere", nil, nil, true)
	if rr.Header().Get("HX-Redirect") != "/" {
		t.Fatalf("htmx HX-Redirect = %q, want /", rr.Header().Get("HX-Redirect"))
	}
}

func TestGatedPagesRedirectToLogin(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/dashboard"},
		{http.MethodGet, "/transactions"},
		{http.MethodPost, "/transactions"},
		{http.MethodPost, "/transactions/t1"},
		{http.MethodGet, "/budgets"},
		{http.MethodPost, "/budgets"},
		{http.MethodGet, "/goals"},
		{http.MethodPost, "/goals"},
		{http.MethodGet, "/analytics"},
		{http.MethodGet, "/profile"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var form url.Values
			if tt.method == http.MethodPost {
				form = url.Values{}
			}
			rr := do(env.srv, tt.method, tt.path, form, nil, false)
			if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
				t.Fatalf("got %d %q, want 303 /login", rr.Code, rr.Header().Get("Location"))
			}
		})
	}

	if n := env.fake.total() - env.fake.count("GET /"); n != 0 {
		t.Errorf("gated redirects made %d API calls", n)
	}

	rr := do(env.srv, http.MethodGet, "/dashboard", nil, nil, true)
	if rr.Header().Get("HX-Redirect") != "/login" {
		t.Errorf("htmx HX-Redirect = %q, want /login", rr.Header().Get("HX-Redirect"))
	}
}

func TestLoginPersistsSessionAcrossRestart(t *testing.T) {
	env := newTestEnv(t)
	env.fake.set("GET /api/transactions", http.StatusOK,
		`[{"_id":"t1","title":"Salary","amount":50000,"type":"income","category":"Job","date":"2024-03-01T00:00:00.000Z"},
		  {"_id":"t2","title":"Rent","amount":12000.5,"type":"expense","category":"Home","date":"2024-03-02T00:00:00.000Z"}]`)
	env.fake.set("GET /api/analytics/predict", http.StatusOK, `{"nextMonthPrediction":13000}`)

	cookie := env.login(t)

	rr := do(env.srv, http.MethodGet, "/dashboard", nil, cookie, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Welcome back, asha!", "₹50,000.00", "₹12,000.50", "₹37,999.50", "₹13,000.00", `action="/logout"`} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}

	restarted := env.newServer(nil)
	rr = do(restarted, http.MethodGet, "/profile", nil, cookie, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("profile after restart status=%d, want 200", rr.Code)
	}
	for _, want := range []string{"asha@example.in", "05 Jan 2024", ">A<"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Errorf("profile missing %q", want)
		}
	}
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)

	rr := do(env.srv, http.MethodPost, "/login", url.Values{"email": {"asha@example.in"}}, nil, false)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing password status=%d, want 422", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Email and password are required.") {
		t.Error("missing credentials message not shown")
	}
	if env.fake.count("POST /api/auth/login") != 0 {
		t.Error("incomplete credentials reached the API")
	}

	env.fake.set("POST /api/auth/login", http.StatusBadRequest, `{"message":"Invalid credentials"}`)
	rr = do(env.srv, http.MethodPost, "/login", url.Values{"email": {"asha@example.in"}, "password": {"wrong"}}, nil, false)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("rejected login status=%d, want 422", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Invalid credentials") {
		t.Error("API message not shown")
	}
	if !strings.Contains(body, `value="asha@example.in"`) {
		t.Error("email not kept in the form")
	}
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			t.Error("failed login set a session cookie")
		}
	}
}

func TestRegisterRedirectsToLoginWithNotice(t *testing.T) {
	env := newTestEnv(t)

	rr := do(env.srv, http.MethodPost, "/register", url.Values{"username": {"asha"}, "email": {"asha@example.in"}, "password": {"123"}}, nil, false)
	if rr.Code != http.StatusUnprocessableEntity || !strings.Contains(rr.Body.String(), "at least 6 characters") {
		t.Fatalf("short password: status=%d", rr.Code)
	}
	if env.fake.count("POST /api/auth/register") != 0 {
		t.Fatal("short password reached the API")
	}

	rr = do(env.srv, http.MethodPost, "/register", url.Values{"username": {"asha"}, "email": {"asha@example.in"}, "password": {"secret1"}}, nil, false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login?registered=1" {
		t.Fatalf("register = %d %q", rr.Code, rr.Header().Get("Location"))
	}
	var sent map[string]string
	if err := json.Unmarshal([]byte(env.fake.body("POST /api/auth/register")), &sent); err != nil {
		t.Fatalf("register body: %v", err)
	}
	if sent["name"] != "asha" || sent["email"] != "asha@example.in" {
		t.Errorf("register payload = %v", sent)
	}

	rr = do(env.srv, http.MethodGet, "/login?registered=1", nil, nil, false)
	if !strings.Contains(rr.Body.String(), "Registration successful! Please log in.") {
		t.Error("login page missing registration notice")
	}
}

func TestLogoutClearsSession(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	rr := do(env.srv, http.MethodPost, "/logout", url.Values{}, cookie, false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("logout = %d %q, want 303 /", rr.Code, rr.Header().Get("Location"))
	}

	cleared := false
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("logout did not expire the cookie")
	}

	// The old cookie no longer maps to a stored session.
	rr = do(env.srv, http.MethodGet, "/dashboard", nil, cookie, false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("dashboard after logout = %d %q, want 303 /login", rr.Code, rr.Header().Get("Location"))
	}
}

func TestCreateTransactionRejectsNonPositiveAmount(t *testing.T) {
	for _, amount := range []string{"0", "-5", "0.00", "abc", ""} {
		t.Run("amount="+amount, func(t *testing.T) {
			env := newTestEnv(t)
			cookie := env.login(t)
			before := env.fake.total()

			form := url.Values{
				"title":    {"Groceries"},
				"amount":   {amount},
				"type":     {"expense"},
				"category": {"Food"},
				"date":     {"2024-03-02"},
			}

			rr := do(env.srv, http.MethodPost, "/transactions", form, cookie, true)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("htmx status=%d, want 422", rr.Code)
			}
			body := rr.Body.String()
			if !strings.Contains(body, "Please enter a valid, positive amount.") {
				t.Errorf("fragment missing validation message: %s", body)
			}
			if !strings.Contains(body, `id="transaction-form"`) || strings.Contains(body, "<nav") {
				t.Error("htmx response should be the form fragment only")
			}
			if !strings.Contains(body, `value="Groceries"`) {
				t.Error("submitted title not kept")
			}
			if env.fake.total() != before {
				t.Errorf("htmx rejection made %d API calls", env.fake.total()-before)
			}

			rr = do(env.srv, http.MethodPost, "/transactions", form, cookie, false)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("plain status=%d, want 422", rr.Code)
			}
			if !strings.Contains(rr.Body.String(), "Please enter a valid, positive amount.") {
				t.Error("full page missing validation message")
			}
			if n := env.fake.count("POST /api/transactions"); n != 0 {
				t.Errorf("rejected transaction was sent %d times", n)
			}
		})
	}
}

func TestCreateTransactionSuccess(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	form := url.Values{
		"title":    {"Groceries"},
		"amount":   {"12,50"},
		"type":     {"Expense"},
		"category": {"Food"},
		"date":     {"2024-03-02"},
	}
	rr := do(env.srv, http.MethodPost, "/transactions", form, cookie, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("HX-Redirect") != "/transactions" {
		t.Errorf("HX-Redirect = %q", rr.Header().Get("HX-Redirect"))
	}
	if trigger := rr.Header().Get("HX-Trigger"); !strings.Contains(trigger, "transaction:saved") || !strings.Contains(trigger, "t-new") {
		t.Errorf("HX-Trigger = %s", trigger)
	}

	var sent map[string]any
	if err := json.Unmarshal([]byte(env.fake.body("POST /api/transactions")), &sent); err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if sent["amount"] != 12.5 || sent["type"] != "expense" || sent["date"] != "2024-03-02" {
		t.Errorf("sent payload = %v", sent)
	}

	rr = do(env.srv, http.MethodPost, "/transactions/t1", form, cookie, false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/transactions" {
		t.Fatalf("update = %d %q", rr.Code, rr.Header().Get("Location"))
	}
	if env.fake.count("PUT /api/transactions/t1") != 1 {
		t.Error("update did not PUT")
	}
}

func TestTransactionsListFilterAndEdit(t *testing.T) {
	env := newTestEnv(t)
	env.fake.set("GET /api/transactions", http.StatusOK,
		`[{"_id":"t1","title":"Groceries","amount":250,"type":"expense","category":"Food","date":"2024-03-02T00:00:00.000Z"},
		  {"_id":"t2","title":"Salary","amount":90000,"type":"income","category":"Job","date":"2024-03-05T00:00:00.000Z"}]`)
	cookie := env.login(t)

	rr := do(env.srv, http.MethodGet, "/transactions", nil, cookie, false)
	body := rr.Body.String()
	if strings.Index(body, "Salary") > strings.Index(body, "Groceries") {
		t.Error("transactions not sorted newest first")
	}

	rr = do(env.srv, http.MethodGet, "/transactions?type=income", nil, cookie, false)
	if strings.Contains(rr.Body.String(), "Groceries") {
		t.Error("income filter shows an expense")
	}

	rr = do(env.srv, http.MethodGet, "/transactions?edit=t1", nil, cookie, false)
	body = rr.Body.String()
	for _, want := range []string{`action="/transactions/t1"`, `value="Groceries"`, `value="250"`, `value="2024-03-02"`, "Update Transaction"} {
		if !strings.Contains(body, want) {
			t.Errorf("edit form missing %q", want)
		}
	}
}

func TestGoalSavedAboveTargetRejected(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	before := env.fake.total()

	form := url.Values{
		"title":        {"New bike"},
		"targetAmount": {"1000"},
		"savedAmount":  {"1500"},
		"deadline":     {"2025-06-30"},
	}
	rr := do(env.srv, http.MethodPost, "/goals", form, cookie, true)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want 422", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Saved amount cannot be greater than the target amount.") {
		t.Errorf("missing message: %s", rr.Body.String())
	}
	if env.fake.total() != before {
		t.Error("rejected goal reached the API")
	}

	form.Set("savedAmount", "1000")
	rr = do(env.srv, http.MethodPost, "/goals", form, cookie, true)
	if rr.Header().Get("HX-Redirect") != "/goals" {
		t.Fatalf("saved == target should be accepted, got %d", rr.Code)
	}
	if env.fake.count("POST /api/goals") != 1 {
		t.Error("goal not created")
	}
}

func TestGoalCards(t *testing.T) {
	env := newTestEnv(t)
	env.fake.set("GET /api/goals", http.StatusOK,
		`[{"_id":"g1","title":"Laptop","targetAmount":80000,"savedAmount":80000,"deadline":"2024-12-31T00:00:00.000Z","status":"Completed"},
		  {"_id":"g2","title":"Trip","targetAmount":30000,"savedAmount":10000,"deadline":"2025-05-01T00:00:00.000Z","status":"In Progress"}]`)
	cookie := env.login(t)

	rr := do(env.srv, http.MethodGet, "/goals", nil, cookie, false)
	body := rr.Body.String()
	for _, want := range []string{"Completed", "100.0% complete", "33.3% complete", "₹80,000.00", `href="/goals?edit=g2"`} {
		if !strings.Contains(body, want) {
			t.Errorf("goals page missing %q", want)
		}
	}

	env.fake.set("GET /api/goals", http.StatusOK, `[]`)
	rr = do(env.srv, http.MethodGet, "/goals", nil, cookie, false)
	if !strings.Contains(rr.Body.String(), "No Goals Yet") {
		t.Error("empty goals page missing placeholder")
	}
}

func TestBudgetProgressClampedWithExceededMessage(t *testing.T) {
	env := newTestEnv(t)
	env.fake.set("GET /api/budget", http.StatusOK, `{"_id":"b1","month":"2024-05","amount":1000,"spent":1500}`)
	cookie := env.login(t)

	rr := do(env.srv, http.MethodGet, "/budgets?month=2024-05", nil, cookie, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"May 2024", "width: 100.00%", "150.0% of budget used", "You&#39;ve exceeded your budget!", ">Update<"} {
		if !strings.Contains(body, want) && !strings.Contains(body, strings.ReplaceAll(want, "&#39;", "'")) {
			t.Errorf("budget page missing %q", want)
		}
	}
	if strings.Contains(body, "width: 150") {
		t.Error("bar width not clamped")
	}
}

func TestBudgetMissingAndSet(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	rr := do(env.srv, http.MethodGet, "/budgets?month=2024-05", nil, cookie, false)
	body := rr.Body.String()
	if !strings.Contains(body, "No budget set for this month.") || !strings.Contains(body, ">Set<") {
		t.Errorf("missing-budget page wrong: %s", body)
	}

	rr = do(env.srv, http.MethodPost, "/budgets", url.Values{"month": {"2024-05"}, "amount": {"0"}}, cookie, true)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("zero budget status=%d, want 422", rr.Code)
	}
	if env.fake.count("POST /api/budget") != 0 {
		t.Error("invalid budget reached the API")
	}

	rr = do(env.srv, http.MethodPost, "/budgets", url.Values{"month": {"2024-05"}, "amount": {"25000"}}, cookie, false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/budgets?month=2024-05" {
		t.Fatalf("set budget = %d %q", rr.Code, rr.Header().Get("Location"))
	}
	var sent map[string]any
	if err := json.Unmarshal([]byte(env.fake.body("POST /api/budget")), &sent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sent["month"] != "2024-05" || sent["amount"] != 25000.0 {
		t.Errorf("sent = %v", sent)
	}
}

func TestUnauthorizedAPIEndsSession(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	env.fake.set("GET /api/transactions", http.StatusUnauthorized, `{"message":"Token is not valid"}`)

	rr := do(env.srv, http.MethodGet, "/transactions", nil, cookie, false)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Fatalf("got %d %q, want 303 /login", rr.Code, rr.Header().Get("Location"))
	}

	env.fake.set("GET /api/transactions", http.StatusOK, `[]`)
	rr = do(env.srv, http.MethodGet, "/transactions", nil, cookie, false)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("session survived a 401: status=%d", rr.Code)
	}
}

func TestAPIFailureRendersInlineError(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	env.fake.set("GET /api/analytics/predict", http.StatusInternalServerError, `{"message":"Prediction service down"}`)
	rr := do(env.srv, http.MethodGet, "/dashboard", nil, cookie, false)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Prediction service down") {
		t.Error("inline API message missing")
	}
	if !strings.Contains(body, `href="/transactions"`) {
		t.Error("navbar not rendered alongside the error")
	}

	env.fake.set("POST /api/transactions", http.StatusInternalServerError, "oops")
	form := url.Values{"title": {"Tea"}, "amount": {"20"}, "type": {"expense"}, "category": {"Food"}, "date": {"2024-03-02"}}
	rr = do(env.srv, http.MethodPost, "/transactions", form, cookie, true)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("API failure status=%d, want 502", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "An unknown error occurred") {
		t.Errorf("body: %s", rr.Body.String())
	}
}

func TestAnalyticsPage(t *testing.T) {
	env := newTestEnv(t)
	env.fake.set("GET /api/transactions", http.StatusOK,
		`[{"_id":"t1","title":"Rent","amount":300,"type":"expense","category":"Home","date":"2024-02-02T00:00:00.000Z"},
		  {"_id":"t2","title":"Food","amount":100,"type":"expense","category":"","date":"2024-03-05T00:00:00.000Z"}]`)
	env.fake.set("GET /api/analytics/predict", http.StatusOK, `{"nextMonthPrediction":420}`)
	cookie := env.login(t)

	rr := do(env.srv, http.MethodGet, "/analytics", nil, cookie, false)
	body := rr.Body.String()
	for _, want := range []string{"₹420.00", "Home", "Uncategorized", "(75%)", "(25%)", "width: 100.00%", "width: 33.33%"} {
		if !strings.Contains(body, want) {
			t.Errorf("analytics missing %q", want)
		}
	}
}

func TestMissingTemplatesFailClosed(t *testing.T) {
	env := newTestEnv(t)
	srv := env.newServer(fstest.MapFS{})

	rr := do(srv, http.MethodGet, "/", nil, nil, false)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for missing templates, got %d", rr.Code)
	}

	rr = do(srv, http.MethodGet, "/readyz", nil, nil, false)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with missing templates = %d, want 503", rr.Code)
	}
}

func TestSecurityHeadersOnPages(t *testing.T) {
	env := newTestEnv(t)
	rr := do(env.srv, http.MethodGet, "/login", nil, nil, false)
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff")
	}
	if !strings.Contains(rr.Header().Get("Cache-Control"), "no-store") {
		t.Errorf("Cache-Control = %q, want no-store", rr.Header().Get("Cache-Control"))
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}
