package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/socialfeed/feed-api/internal/core/service"
	"github.com/socialfeed/feed-api/internal/infrastructure/queue"
	"github.com/socialfeed/feed-api/internal/infrastructure/realtime"
	"github.com/socialfeed/feed-api/internal/infrastructure/storage"
)

type testServer struct {
	*httptest.Server
	hub      *realtime.Hub
	imageDir string
	store    *memStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	log := zerolog.Nop()
	mem := newMemStore()
	users, posts := memUsers{mem}, memPosts{mem}

	images, err := storage.NewLocalStore(filepath.Join(t.TempDir(), "images"))
	if err != nil {
		t.Fatalf("local store: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	cleaner := queue.NewCleaner(1, images, log)
	cleaner.Start(ctx)

	hub := realtime.NewHub(log)
	tokens := service.NewTokenIssuer("test-secret", time.Hour)

	e, err := NewRouter(Deps{
		Log:            log,
		Auth:           service.NewAuthService(users, service.NewBcryptHasher(4), tokens, log),
		Tokens:         tokens,
		Posts:          service.NewPostService(posts, users, images, cleaner, hub, log),
		Status:         service.NewStatusService(users, log),
		Listeners:      hub.Handle,
		ImageDir:       images.Dir(),
		MaxUploadBytes: 1 << 20,
		Registerer:     prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("router: %v", err)
	}

	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return &testServer{Server: srv, hub: hub, imageDir: images.Dir(), store: mem}
}

func (s *testServer) do(t *testing.T, method, path, token, contentType string, body io.Reader) (int, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, s.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("%s %s: invalid json: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func (s *testServer) json(t *testing.T, method, path, token, body string) (int, map[string]any) {
	t.Helper()
	return s.do(t, method, path, token, "application/json", strings.NewReader(body))
}

func postForm(t *testing.T, title, content string, imageType string) (string, io.Reader) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("title", title)
	_ = w.WriteField("content", content)
	if imageType != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="cat.png"`)
		h.Set("Content-Type", imageType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = part.Write([]byte("\x89PNG fake"))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	return w.FormDataContentType(), &body
}

func signupAndLogin(t *testing.T, s *testServer, email, name string) (token, userID string) {
	t.Helper()

	code, resp := s.json(t, http.MethodPut, "/auth/signup", "",
		`{"email":"`+email+`","password":"secret1","name":"`+name+`"}`)
	if code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d (%v)", code, resp)
	}
	if resp["userId"] == "" || resp["message"] != "User created!" {
		t.Fatalf("signup: unexpected payload %v", resp)
	}

	code, resp = s.json(t, http.MethodPost, "/auth/login", "", `{"email":"`+email+`","password":"secret1"}`)
	if code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%v)", code, resp)
	}
	token, _ = resp["token"].(string)
	userID, _ = resp["userId"].(string)
	if token == "" || userID == "" {
		t.Fatalf("login: unexpected payload %v", resp)
	}
	return token, userID
}

func TestAPI_PostLifecycle(t *testing.T) {
	s := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
	listener, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer listener.Close()
	waitUntil(t, func() bool { return s.hub.Len() == 1 })

	token, userID := signupAndLogin(t, s, "a@x.com", "A")

	// create
	ct, body := postForm(t, "Hello", "World", "image/png")
	code, resp := s.do(t, http.MethodPost, "/feed/post", token, ct, body)
	if code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%v)", code, resp)
	}
	post := resp["post"].(map[string]any)
	creator := post["creator"].(map[string]any)
	if creator["name"] != "A" || creator["_id"] != userID {
		t.Fatalf("create: unexpected creator %v", creator)
	}
	postID := post["_id"].(string)
	imageURL := post["imageUrl"].(string)

	if _, err := os.Stat(filepath.Join(s.imageDir, strings.TrimPrefix(imageURL, "images/"))); err != nil {
		t.Fatalf("uploaded image not on disk: %v", err)
	}

	// the image is served statically
	imgResp, err := http.Get(s.URL + "/" + imageURL)
	if err != nil {
		t.Fatalf("get image: %v", err)
	}
	imgResp.Body.Close()
	if imgResp.StatusCode != http.StatusOK {
		t.Fatalf("get image: expected 200, got %d", imgResp.StatusCode)
	}

	// the listener is told about the new post
	_ = listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := listener.ReadMessage()
	if err != nil {
		t.Fatalf("read ws frame: %v", err)
	}
	var event map[string]any
	if err := json.Unmarshal(frame, &event); err != nil {
		t.Fatalf("invalid frame: %v", err)
	}
	if event["channel"] != "posts" || event["action"] != "create" {
		t.Fatalf("unexpected event %v", event)
	}

	// list
	code, resp = s.json(t, http.MethodGet, "/feed/posts?page=1", token, "")
	if code != http.StatusOK || resp["totalItems"] != float64(1) {
		t.Fatalf("list: unexpected %d %v", code, resp)
	}

	// another user may not delete it
	other, _ := signupAndLogin(t, s, "b@x.com", "B")
	code, _ = s.json(t, http.MethodDelete, "/feed/post/"+postID, other, "")
	if code != http.StatusForbidden {
		t.Fatalf("foreign delete: expected 403, got %d", code)
	}

	// delete
	code, resp = s.json(t, http.MethodDelete, "/feed/post/"+postID, token, "")
	if code != http.StatusOK || resp["message"] != "Post deleted!" {
		t.Fatalf("delete: unexpected %d %v", code, resp)
	}

	code, resp = s.json(t, http.MethodGet, "/feed/post/"+postID, token, "")
	if code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d (%v)", code, resp)
	}
	if resp["message"] != "Post not found!" {
		t.Fatalf("get after delete: unexpected message %v", resp["message"])
	}

	s.store.mu.Lock()
	linked := s.store.users[userID].Posts
	s.store.mu.Unlock()
	if len(linked) != 0 {
		t.Fatalf("deleted post still linked to creator: %v", linked)
	}

	// the image is removed in the background
	waitUntil(t, func() bool {
		_, err := os.Stat(filepath.Join(s.imageDir, strings.TrimPrefix(imageURL, "images/")))
		return os.IsNotExist(err)
	})
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAPI_AuthErrors(t *testing.T) {
	s := newTestServer(t)

	code, resp := s.json(t, http.MethodGet, "/feed/posts", "", "")
	if code != http.StatusUnauthorized || resp["message"] != "Not authenticated." {
		t.Fatalf("missing token: unexpected %d %v", code, resp)
	}

	code, _ = s.json(t, http.MethodGet, "/feed/posts", "garbage", "")
	if code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", code)
	}

	signupAndLogin(t, s, "a@x.com", "A")

	code, resp = s.json(t, http.MethodPost, "/auth/signup", "", `{"email":"a@x.com","password":"secret1","name":"A"}`)
	if code != http.StatusConflict {
		t.Fatalf("duplicate signup: expected 409, got %d (%v)", code, resp)
	}

	code, resp = s.json(t, http.MethodPut, "/auth/signup", "", `{"email":"nope","password":"123","name":""}`)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid signup: expected 422, got %d", code)
	}
	if data, _ := resp["data"].([]any); len(data) != 3 {
		t.Fatalf("invalid signup: expected 3 field errors, got %v", resp["data"])
	}

	code, resp = s.json(t, http.MethodPost, "/auth/login", "", `{"email":"a@x.com","password":"wrong-pw"}`)
	if code != http.StatusUnauthorized || resp["message"] != "User not found." {
		t.Fatalf("wrong password: unexpected %d %v", code, resp)
	}
}

func TestAPI_CreateWithoutImage(t *testing.T) {
	s := newTestServer(t)
	token, _ := signupAndLogin(t, s, "a@x.com", "A")

	ct, body := postForm(t, "Hello", "World", "")
	code, resp := s.do(t, http.MethodPost, "/feed/post", token, ct, body)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (%v)", code, resp)
	}

	// unsupported file types count as no image
	ct, body = postForm(t, "Hello", "World", "application/pdf")
	code, _ = s.do(t, http.MethodPost, "/feed/post", token, ct, body)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("pdf upload: expected 422, got %d", code)
	}
}

func TestAPI_UpdateRejectsUndefinedImage(t *testing.T) {
	s := newTestServer(t)
	token, _ := signupAndLogin(t, s, "a@x.com", "A")

	ct, body := postForm(t, "Hello", "World", "image/png")
	_, resp := s.do(t, http.MethodPost, "/feed/post", token, ct, body)
	postID := resp["post"].(map[string]any)["_id"].(string)

	code, _ := s.json(t, http.MethodPut, "/feed/post/"+postID, token,
		`{"title":"New","content":"Body","image":"undefined"}`)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
}

func TestAPI_Status(t *testing.T) {
	s := newTestServer(t)
	token, _ := signupAndLogin(t, s, "a@x.com", "A")

	code, resp := s.json(t, http.MethodGet, "/feed/status", token, "")
	if code != http.StatusOK || resp["status"] != "I am new!" {
		t.Fatalf("get status: unexpected %d %v", code, resp)
	}

	code, resp = s.json(t, http.MethodPut, "/feed/status", token, `{"status":"busy"}`)
	if code != http.StatusOK || resp["status"] != "busy" {
		t.Fatalf("update status: unexpected %d %v", code, resp)
	}

	code, _ = s.json(t, http.MethodPut, "/feed/status", token, `{"status":"  "}`)
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("blank status: expected 422, got %d", code)
	}
}

func TestAPI_GraphQLCreateUser(t *testing.T) {
	s := newTestServer(t)

	q := `{"query":"mutation { createUser(userInput:{email:\"g@x.com\",name:\"G\",password:\"secret1\"}){ _id email } }"}`
	code, resp := s.json(t, http.MethodPost, "/graphql", "", q)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	user := resp["data"].(map[string]any)["createUser"].(map[string]any)
	if user["email"] != "g@x.com" {
		t.Fatalf("unexpected user %v", user)
	}

	_, resp = s.json(t, http.MethodPost, "/graphql", "", q)
	errs := resp["errors"].([]any)
	if first := errs[0].(map[string]any); first["code"] != float64(409) {
		t.Fatalf("duplicate: unexpected error %v", first)
	}
}

func TestAPI_CORSAndHealth(t *testing.T) {
	s := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, s.URL+"/auth/login", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin = %q, want *", got)
	}

	code, body := s.json(t, http.MethodGet, "/health", "", "")
	if code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health: unexpected %d %v", code, body)
	}
}
