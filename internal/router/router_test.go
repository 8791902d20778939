package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/communitycontent/internal/content"
	"github.com/communitycontent/internal/github"
	"github.com/communitycontent/internal/handler"
	"github.com/communitycontent/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const moderatorKey = "moderator-secret"

type fakeGitHub struct {
	mu      sync.Mutex
	next    int
	issues  map[int]*github.Issue
	created []github.NewIssue
	closed  []int
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{next: 41, issues: map[int]*github.Issue{}}
}

func (f *fakeGitHub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /repos/owner/repo/issues", func(w http.ResponseWriter, r *http.Request) {
		var in github.NewIssue
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, `{"message":"Problems parsing JSON"}`, http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.next++
		issue := &github.Issue{Number: f.next, Title: in.Title, Body: in.Body, State: github.StateOpen, HTMLURL: fmt.Sprintf("https://github.com/owner/repo/issues/%d", f.next)}
		f.issues[issue.Number] = issue
		f.created = append(f.created, in)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, issue)
	})
	mux.HandleFunc("GET /repos/owner/repo/issues/{number}", func(w http.ResponseWriter, r *http.Request) {
		issue, ok := f.issue(r)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		writeJSON(w, http.StatusOK, issue)
	})
	mux.HandleFunc("PATCH /repos/owner/repo/issues/{number}", func(w http.ResponseWriter, r *http.Request) {
		issue, ok := f.issue(r)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
			return
		}
		var update map[string]any
		_ = json.NewDecoder(r.Body).Decode(&update)
		f.mu.Lock()
		if state, _ := update["state"].(string); state != "" {
			issue.State = state
			f.closed = append(f.closed, issue.Number)
		}
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, issue)
	})
	return mux
}

func (f *fakeGitHub) issue(r *http.Request) (*github.Issue, bool) {
	n, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	issue, ok := f.issues[n]
	return issue, ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type testEnv struct {
	router *gin.Engine
	github *fakeGitHub
	store  *content.FileStore
}

func setupTestRouter(t *testing.T, directDeploy bool, entries ...content.Entry) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gh := newFakeGitHub()
	server := httptest.NewServer(gh.handler())
	t.Cleanup(server.Close)

	client := github.NewClient("test-token", "owner", "repo")
	client.SetBaseURL(server.URL)

	store := content.NewFileStore(filepath.Join(t.TempDir(), "community-content.json"))
	if len(entries) > 0 {
		doc := content.NewDocument(time.Now())
		doc.Entries = entries
		if err := store.Save(context.Background(), doc, "", "seed"); err != nil {
			t.Fatalf("failed to seed store: %v", err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(moderatorKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash key: %v", err)
	}

	logger := zap.NewNop().Sugar()
	api := handler.NewAPI(handler.Options{
		Contributions: service.NewContributionService(client, service.ContributionOptions{
			Store:        store,
			MaxEntries:   50,
			DirectDeploy: directDeploy,
			Logger:       logger,
		}),
		Moderation:       service.NewModerationService(client, store, nil, logger),
		Likes:            service.NewLikeService(store, logger),
		DirectDelete:     directDeploy,
		ModeratorKeyHash: string(hash),
		Logger:           logger,
	})

	r := SetupRouter(Settings{SessionSecret: "test-secret", AllowedOrigin: "*"}, api, logger)
	return &testEnv{router: r, github: gh, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, header http.Header) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)

	var decoded map[string]any
	if rr.Body.Len() > 0 {
		_ = json.Unmarshal(rr.Body.Bytes(), &decoded)
	}
	return rr, decoded
}

func routerEntry(id string) content.Entry {
	return content.Entry{
		ID:          id,
		Type:        content.TypeTestimonial,
		DisplayName: "Eve",
		Content:     "Bonjour",
		Timestamp:   "2024-06-01T10:00:00.000Z",
		LikedBy:     []string{},
		Moderation:  content.Moderation{Status: content.StatusApproved},
	}
}

func TestPreflightReturnsNoContent(t *testing.T) {
	env := setupTestRouter(t, false)
	for _, path := range []string{"/create-contribution", "/anything"} {
		rr, _ := env.do(t, http.MethodOptions, path, nil, nil)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("%s: expected 204, got %d", path, rr.Code)
		}
		if rr.Body.Len() != 0 {
			t.Fatalf("%s: expected empty body, got %q", path, rr.Body.String())
		}
		if rr.Header().Get("Access-Control-Allow-Origin") != "*" || rr.Header().Get("Access-Control-Max-Age") != "86400" {
			t.Fatalf("%s: missing CORS headers %v", path, rr.Header())
		}
		if rr.Header().Get("Access-Control-Allow-Methods") == "" || rr.Header().Get("Access-Control-Allow-Headers") == "" {
			t.Fatalf("%s: missing CORS headers %v", path, rr.Header())
		}
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	env := setupTestRouter(t, false)

	rr, body := env.do(t, http.MethodGet, "/create-contribution", nil, nil)
	if rr.Code != http.StatusMethodNotAllowed || body["success"] != false {
		t.Fatalf("expected 405 envelope, got %d %v", rr.Code, body)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected CORS headers on errors")
	}

	rr, body = env.do(t, http.MethodPost, "/unknown", map[string]any{}, nil)
	if rr.Code != http.StatusNotFound || body["success"] != false {
		t.Fatalf("expected 404 envelope, got %d %v", rr.Code, body)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestHealth(t *testing.T) {
	env := setupTestRouter(t, true)
	rr, body := env.do(t, http.MethodGet, "/health", nil, nil)
	if rr.Code != http.StatusOK || body["status"] != "ok" || body["directDeploy"] != true {
		t.Fatalf("unexpected health response %d %v", rr.Code, body)
	}
}

func TestCreateContributionValidation(t *testing.T) {
	env := setupTestRouter(t, false)

	cases := []struct {
		body    any
		message string
	}{
		{map[string]any{"entry": map[string]any{"displayName": "Alice"}}, "Données invalides: entry et sessionId requis"},
		{map[string]any{"sessionId": "s1"}, "Données invalides: entry et sessionId requis"},
		{map[string]any{"entry": map[string]any{"displayName": "   "}, "sessionId": "s1"}, "Données invalides: displayName requis et ne peut pas être vide"},
		{"not json", "Données invalides: entry et sessionId requis"},
	}
	for _, tc := range cases {
		rr, body := env.do(t, http.MethodPost, "/create-contribution", tc.body, nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %v, got %d", tc.body, rr.Code)
		}
		if body["success"] != false || body["error"] != tc.message {
			t.Fatalf("unexpected envelope %v", body)
		}
	}
	if len(env.github.created) != 0 {
		t.Fatalf("validation errors must not create issues")
	}
}

func TestCreateContributionCreatesIssue(t *testing.T) {
	env := setupTestRouter(t, false)

	rr, body := env.do(t, http.MethodPost, "/create-contribution", map[string]any{
		"entry": map[string]any{
			"id":          "contrib-1717245000000-abc123def",
			"type":        "photo",
			"displayName": "Alice",
			"content":     "Belle vue",
			"imageUrl":    "https://res.cloudinary.com/demo/a.jpg",
			"timestamp":   1717245000000,
			"moderation":  map[string]any{"status": "pending"},
		},
		"sessionId": "s1",
	}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if body["success"] != true || body["message"] != "Contribution créée avec succès" {
		t.Fatalf("unexpected envelope %v", body)
	}
	if body["issueNumber"] != float64(42) || body["deployMethod"] != service.MethodWorkflow {
		t.Fatalf("unexpected result %v", body)
	}

	created := env.github.created[0]
	if created.Title != "photo: Alice" {
		t.Fatalf("unexpected title %q", created.Title)
	}
	if len(created.Labels) != 3 || created.Labels[2] != "moderation-pending" {
		t.Fatalf("unexpected labels %v", created.Labels)
	}
	if !bytes.Contains([]byte(created.Body), []byte("**Timestamp:** 2024-06-01T12:30:00.000Z")) {
		t.Fatalf("expected normalised timestamp in body %q", created.Body)
	}
}

func TestCreateContributionDirectDeploy(t *testing.T) {
	env := setupTestRouter(t, true)

	rr, body := env.do(t, http.MethodPost, "/create-contribution", map[string]any{
		"entry":     map[string]any{"type": "testimonial", "displayName": "Bob", "content": "Merci"},
		"sessionId": "s1",
	}, nil)
	if rr.Code != http.StatusOK || body["deployMethod"] != service.MethodDirect {
		t.Fatalf("expected direct deploy, got %d %v", rr.Code, body)
	}

	doc, _, err := env.store.Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load document: %v", err)
	}
	if len(doc.Entries) != 1 || doc.Entries[0].ID != "issue-42" || doc.Entries[0].Content != "Merci" {
		t.Fatalf("unexpected published entries %+v", doc.Entries)
	}
}

func TestDeleteIssue(t *testing.T) {
	env := setupTestRouter(t, true, routerEntry("issue-42"))
	env.github.issues[42] = &github.Issue{Number: 42, State: github.StateOpen}

	rr, body := env.do(t, http.MethodPost, "/delete-issue", map[string]any{"issueNumber": "42"}, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if body["message"] != "Issue #42 fermée avec succès" || body["deleteMethod"] != service.MethodDirect {
		t.Fatalf("unexpected envelope %v", body)
	}
	if len(env.github.closed) != 1 || env.github.closed[0] != 42 {
		t.Fatalf("expected issue to be closed, got %v", env.github.closed)
	}

	doc, _, _ := env.store.Load(context.Background())
	if doc.Entries[0].Moderation.Status != content.StatusRejected {
		t.Fatalf("expected entry to be rejected, got %+v", doc.Entries[0].Moderation)
	}
}

func TestDeleteIssueErrors(t *testing.T) {
	env := setupTestRouter(t, false)

	rr, body := env.do(t, http.MethodPost, "/delete-issue", map[string]any{}, nil)
	if rr.Code != http.StatusBadRequest || body["error"] != "Données invalides: numéro d'issue requis" {
		t.Fatalf("expected 400, got %d %v", rr.Code, body)
	}

	rr, body = env.do(t, http.MethodPost, "/delete-issue", map[string]any{"issueNumber": 7}, nil)
	if rr.Code != http.StatusNotFound || body["success"] != false {
		t.Fatalf("expected upstream 404, got %d %v", rr.Code, body)
	}
	if body["error"] != "Erreur lors de la fermeture de l'issue: 404" || body["details"] != "Not Found" {
		t.Fatalf("expected upstream status and message in the envelope, got %v", body)
	}
}

func TestLikeIssueUsesSessionCookie(t *testing.T) {
	env := setupTestRouter(t, false, routerEntry("issue-5"))

	rr, body := env.do(t, http.MethodPost, "/like-issue", map[string]any{"issueNumber": 5, "action": "add"}, nil)
	if rr.Code != http.StatusOK || body["likes"] != float64(1) || body["liked"] != true {
		t.Fatalf("unexpected like response %d %v", rr.Code, body)
	}

	header := http.Header{}
	for _, cookie := range rr.Result().Cookies() {
		header.Add("Cookie", cookie.String())
	}
	rr, body = env.do(t, http.MethodPost, "/like-issue", map[string]any{"entryId": "issue-5", "action": "like"}, header)
	if rr.Code != http.StatusOK || body["likes"] != float64(1) || body["changed"] != false {
		t.Fatalf("expected repeated like from the same visitor to be a no-op, got %d %v", rr.Code, body)
	}

	rr, _ = env.do(t, http.MethodPost, "/like-issue", map[string]any{"entryId": "issue-404", "sessionId": "s", "action": "add"}, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown entry, got %d", rr.Code)
	}
	rr, _ = env.do(t, http.MethodPost, "/like-issue", map[string]any{"entryId": "issue-5", "sessionId": "s", "action": "toggle"}, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown action, got %d", rr.Code)
	}
}

func TestModerateEntry(t *testing.T) {
	env := setupTestRouter(t, false, routerEntry("contrib-1717245000000-abc"))
	payload := map[string]any{"entryId": "contrib-1717245000000-abc", "reason": "spam"}

	rr, _ := env.do(t, http.MethodPost, "/moderate-entry", payload, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rr.Code)
	}
	rr, _ = env.do(t, http.MethodPost, "/moderate-entry", payload, http.Header{"Authorization": {"Bearer wrong"}})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", rr.Code)
	}

	rr, body := env.do(t, http.MethodPost, "/moderate-entry", payload, http.Header{"Authorization": {"Bearer " + moderatorKey}})
	if rr.Code != http.StatusOK || body["deleteMethod"] != service.MethodDirect {
		t.Fatalf("expected direct moderation, got %d %v", rr.Code, body)
	}

	doc, _, _ := env.store.Load(context.Background())
	if doc.Entries[0].Moderation.Status != content.StatusRejected || doc.Entries[0].Moderation.Reason != "spam" {
		t.Fatalf("expected rejected entry, got %+v", doc.Entries[0].Moderation)
	}
}
