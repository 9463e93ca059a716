package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/feedbackd/internal/common"
	"github.com/dmitrijs2005/feedbackd/internal/logging"
	"github.com/dmitrijs2005/feedbackd/internal/server/auth"
	"github.com/dmitrijs2005/feedbackd/internal/server/intake"
	"github.com/dmitrijs2005/feedbackd/internal/server/models"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Mock Implementations
// =============================================================================

type mockUserService struct {
	registerFunc func(ctx context.Context, username, email, password string) (*models.UserSummary, error)
	loginFunc    func(ctx context.Context, email, password string) (string, *models.UserSummary, error)
}

func (m *mockUserService) Register(ctx context.Context, username, email, password string) (*models.UserSummary, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, username, email, password)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUserService) Login(ctx context.Context, email, password string) (string, *models.UserSummary, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, email, password)
	}
	return "", nil, errors.New("not implemented")
}

type mockFeedbackService struct {
	addFunc    func(ctx context.Context, ownerID string, fields models.FeedbackFields) (*models.FeedbackView, error)
	listFunc   func(ctx context.Context, ownerID string) ([]*models.FeedbackView, error)
	getFunc    func(ctx context.Context, ownerID, id string) (*models.FeedbackView, error)
	updateFunc func(ctx context.Context, ownerID, id string, fields models.FeedbackFields) (*models.FeedbackView, error)
	deleteFunc func(ctx context.Context, ownerID, id string) (*models.Feedback, error)
}

func (m *mockFeedbackService) Add(ctx context.Context, ownerID string, fields models.FeedbackFields) (*models.FeedbackView, error) {
	if m.addFunc != nil {
		return m.addFunc(ctx, ownerID, fields)
	}
	return nil, errors.New("not implemented")
}

func (m *mockFeedbackService) List(ctx context.Context, ownerID string) ([]*models.FeedbackView, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, ownerID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockFeedbackService) Get(ctx context.Context, ownerID, id string) (*models.FeedbackView, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, ownerID, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockFeedbackService) Update(ctx context.Context, ownerID, id string, fields models.FeedbackFields) (*models.FeedbackView, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, ownerID, id, fields)
	}
	return nil, errors.New("not implemented")
}

func (m *mockFeedbackService) Delete(ctx context.Context, ownerID, id string) (*models.Feedback, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, ownerID, id)
	}
	return nil, errors.New("not implemented")
}

type memStore struct {
	files   map[string][]byte
	removed []string
}

func newMemStore() *memStore { return &memStore{files: map[string][]byte{}} }

func (m *memStore) Save(_ context.Context, original string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	ref := "uploads/1-" + original
	m.files[ref] = b
	return ref, nil
}

func (m *memStore) Exists(_ context.Context, ref string) (bool, error) {
	_, ok := m.files[ref]
	return ok, nil
}

func (m *memStore) Remove(_ context.Context, ref string) error {
	delete(m.files, ref)
	m.removed = append(m.removed, ref)
	return nil
}

func (m *memStore) URL(_ context.Context, ref string) (string, error) {
	return "http://localhost:3005/" + ref, nil
}

type mockLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (m *mockLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.keys = append(m.keys, key)
	return m.allow, m.err
}

type mockPinger struct{ err error }

func (m mockPinger) PingContext(context.Context) error { return m.err }

// =============================================================================
// Test Helpers
// =============================================================================

type testEnv struct {
	srv      *HTTPServer
	handler  http.Handler
	users    *mockUserService
	feedback *mockFeedbackService
	store    *memStore
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	if opts.SecretKey == "" {
		opts.SecretKey = testSecret
	}
	env := &testEnv{
		users:    &mockUserService{},
		feedback: &mockFeedbackService{},
		store:    newMemStore(),
	}
	env.srv = NewHTTPServer(opts, logging.Nop(), env.users, env.feedback, intake.New(env.store, logging.Nop()), nil, mockPinger{})
	env.handler = env.srv.Handler()
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func validToken(t *testing.T, userID string) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return tok
}

func jsonRequest(method, url, body string) *http.Request {
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func authed(req *http.Request, token string) *http.Request {
	req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	return req
}

// multipartRequest builds a form with the given values and files (part name
// to "filename:content").
func multipartRequest(t *testing.T, method, url string, values map[string]string, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range values {
		require.NoError(t, w.WriteField(k, v))
	}
	for part, desc := range files {
		name, content, _ := strings.Cut(desc, ":")
		fw, err := w.CreateFormFile(part, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body messageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Message
}

func strPtr(s string) *string { return &s }

// =============================================================================
// Auth gate
// =============================================================================

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.feedback.listFunc = func(_ context.Context, ownerID string) ([]*models.FeedbackView, error) {
		return []*models.FeedbackView{}, nil
	}

	expired, err := auth.GenerateToken("u1", []byte(testSecret), -time.Minute)
	require.NoError(t, err)
	foreign, err := auth.GenerateToken("u1", []byte("other"), time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{"missing header", "", http.StatusUnauthorized, "Access Denied: No token provided"},
		{"scheme only", "Bearer", http.StatusBadRequest, "Bearer token missing"},
		{"wrong scheme", "Basic abc", http.StatusBadRequest, "Bearer token missing"},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized, "Invalid token"},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized, "Invalid token"},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, "Token expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/feedback", nil)
			if tt.header != "" {
				req.Header.Set(common.AuthorizationHeaderName, tt.header)
			}
			w := env.do(req)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, decodeMessage(t, w))
		})
	}
}

func TestAuthMiddleware_PassesUserID(t *testing.T) {
	env := newTestEnv(t, Options{})

	var gotOwner string
	env.feedback.listFunc = func(ctx context.Context, ownerID string) ([]*models.FeedbackView, error) {
		gotOwner = ownerID
		id, ok := UserIDFromContext(ctx)
		assert.True(t, ok)
		assert.Equal(t, ownerID, id)
		return []*models.FeedbackView{}, nil
	}

	w := env.do(authed(httptest.NewRequest(http.MethodGet, "/feedback", nil), validToken(t, "u42")))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u42", gotOwner)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestBearerToken(t *testing.T) {
	tok, err := bearerToken("Bearer   abc  ")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	tok, err = bearerToken("bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = bearerToken("")
	assert.ErrorIs(t, err, common.ErrUnauthenticated)

	_, err = bearerToken("Bearer ")
	assert.ErrorIs(t, err, common.ErrMalformedCredential)
}

// =============================================================================
// Register / Login
// =============================================================================

func TestRegister(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.users.registerFunc = func(_ context.Context, username, email, password string) (*models.UserSummary, error) {
		if email == "taken@x.com" {
			return nil, common.ErrAlreadyExists
		}
		if email == "boom@x.com" {
			return nil, errors.New("pq: connection reset")
		}
		return &models.UserSummary{ID: "u1", Username: username, Email: email}, nil
	}

	w := env.do(jsonRequest(http.MethodPost, "/register", `{"username":"alice","email":"a@x.com","password":"pw1"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"message":"User registered successfully","user":{"id":"u1","username":"alice","email":"a@x.com"}}`, w.Body.String())

	w = env.do(jsonRequest(http.MethodPost, "/api/users/register", `{"username":"alice","email":"a@x.com","password":"pw1"}`))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.do(jsonRequest(http.MethodPost, "/register", `{"username":"alice","email":"taken@x.com","password":"pw1"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User already exists", decodeMessage(t, w))

	w = env.do(jsonRequest(http.MethodPost, "/register", `{"username":"alice","email":"boom@x.com","password":"pw1"}`))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")

	for _, body := range []string{`{"email":"a@x.com","password":"pw1"}`, `{"username":"a","email":"nope","password":"pw1"}`, `not json`} {
		w = env.do(jsonRequest(http.MethodPost, "/register", body))
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "Invalid request body", decodeMessage(t, w))
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.users.loginFunc = func(_ context.Context, email, password string) (string, *models.UserSummary, error) {
		if password != "pw1" {
			return "", nil, common.ErrInvalidCredentials
		}
		return "tok", &models.UserSummary{ID: "u1", Username: "alice", Email: email}, nil
	}

	w := env.do(jsonRequest(http.MethodPost, "/login", `{"email":"a@x.com","password":"pw1"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Login successful","token":"tok","user":{"id":"u1","username":"alice","email":"a@x.com"}}`, w.Body.String())

	w = env.do(jsonRequest(http.MethodPost, "/api/users/login", `{"email":"a@x.com","password":"bad"}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decodeMessage(t, w))

	w = env.do(jsonRequest(http.MethodPost, "/login", `{"email":"a@x.com"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.users.loginFunc = func(context.Context, string, string) (string, *models.UserSummary, error) {
		return "tok", &models.UserSummary{ID: "u1"}, nil
	}

	lim := &mockLimiter{allow: false}
	env.srv.limiter = lim
	h := env.srv.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, jsonRequest(http.MethodPost, "/login", `{"email":"a@x.com","password":"pw1"}`))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests", decodeMessage(t, w))
	require.Len(t, lim.keys, 1)
	assert.True(t, strings.HasPrefix(lim.keys[0], "auth:"))

	// limiter failures let requests through
	lim.err = errors.New("redis down")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, jsonRequest(http.MethodPost, "/login", `{"email":"a@x.com","password":"pw1"}`))
	assert.Equal(t, http.StatusOK, w.Code)

	// feedback routes are not limited
	env.feedback.listFunc = func(context.Context, string) ([]*models.FeedbackView, error) { return nil, nil }
	lim.err, lim.keys = nil, nil
	w = httptest.NewRecorder()
	h.ServeHTTP(w, authed(httptest.NewRequest(http.MethodGet, "/feedback", nil), validToken(t, "u1")))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, lim.keys)
}

// =============================================================================
// Feedback
// =============================================================================

func TestUploadFeedback(t *testing.T) {
	env := newTestEnv(t, Options{MaxUploadBytes: 1 << 20})

	var got models.FeedbackFields
	env.feedback.addFunc = func(_ context.Context, ownerID string, fields models.FeedbackFields) (*models.FeedbackView, error) {
		got = fields
		return &models.FeedbackView{ID: "f1", UserID: ownerID, Rating: fields.Rating, Comment: fields.Comment}, nil
	}

	req := multipartRequest(t, http.MethodPost, "/feedback/upload",
		map[string]string{"rating": "4.5", "feedback": "great"},
		map[string]string{"video": "clip.mp4:vvv"})
	w := env.do(authed(req, validToken(t, "u1")))

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4.5, *got.Rating)
	assert.Equal(t, "great", *got.Comment)
	assert.Equal(t, "uploads/1-clip.mp4", *got.Video)
	assert.Nil(t, got.Audio)
	assert.Equal(t, []byte("vvv"), env.store.files["uploads/1-clip.mp4"])

	var body feedbackResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Feedback added successfully", body.Message)
	assert.Equal(t, "f1", body.Feedback.ID)
	assert.Equal(t, "u1", body.Feedback.UserID)
}

func TestUploadFeedback_NoMediaNullFields(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.feedback.addFunc = func(_ context.Context, ownerID string, fields models.FeedbackFields) (*models.FeedbackView, error) {
		assert.Nil(t, fields.Video)
		assert.Nil(t, fields.Audio)
		return &models.FeedbackView{ID: "f1", UserID: ownerID, Rating: fields.Rating, Comment: fields.Comment}, nil
	}

	req := multipartRequest(t, http.MethodPost, "/feedback/upload", map[string]string{"rating": "5", "feedback": "great"}, nil)
	w := env.do(authed(req, validToken(t, "u1")))
	require.Equal(t, http.StatusCreated, w.Code)

	var raw map[string]map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Nil(t, raw["feedback"]["video"])
	assert.Nil(t, raw["feedback"]["audio"])
	assert.EqualValues(t, 5, raw["feedback"]["rating"])
}

func TestUploadFeedback_BadRating(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.feedback.addFunc = func(context.Context, string, models.FeedbackFields) (*models.FeedbackView, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}

	for _, rating := range []string{"five", "NaN"} {
		req := multipartRequest(t, http.MethodPost, "/feedback/upload",
			map[string]string{"rating": rating}, map[string]string{"video": "clip.mp4:vvv"})
		w := env.do(authed(req, validToken(t, "u1")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Rating must be a number", decodeMessage(t, w))
	}
	assert.Empty(t, env.store.files)
}

func TestUploadFeedback_ServiceFailureDiscardsMedia(t *testing.T) {
	env := newTestEnv(t, Options{})
	env.feedback.addFunc = func(context.Context, string, models.FeedbackFields) (*models.FeedbackView, error) {
		return nil, errors.New("db down")
	}

	req := multipartRequest(t, http.MethodPost, "/feedback/upload", nil,
		map[string]string{"video": "clip.mp4:vvv", "audio": "voice.mp3:aaa"})
	w := env.do(authed(req, validToken(t, "u1")))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decodeMessage(t, w))
	assert.Empty(t, env.store.files)
	assert.ElementsMatch(t, []string{"uploads/1-clip.mp4", "uploads/1-voice.mp3"}, env.store.removed)
}

func TestUploadFeedback_TooLarge(t *testing.T) {
	env := newTestEnv(t, Options{MaxUploadBytes: 512})

	req := multipartRequest(t, http.MethodPost, "/feedback/upload", nil,
		map[string]string{"video": "clip.mp4:" + strings.Repeat("v", 4096)})
	w := env.do(authed(req, validToken(t, "u1")))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, env.store.files)
}

func TestUpdateFeedback(t *testing.T) {
	env := newTestEnv(t, Options{})

	env.feedback.getFunc = func(_ context.Context, ownerID, id string) (*models.FeedbackView, error) {
		switch id {
		case "missing":
			return nil, common.ErrNotFound
		case "bad":
			return nil, common.ErrInvalidIdentifier
		}
		return &models.FeedbackView{ID: id, UserID: ownerID}, nil
	}
	env.feedback.updateFunc = func(_ context.Context, ownerID, id string, fields models.FeedbackFields) (*models.FeedbackView, error) {
		switch id {
		case "novideo":
			return nil, common.ErrVideoNotFound
		case "noaudio":
			return nil, common.ErrAudioNotFound
		}
		return &models.FeedbackView{ID: id, UserID: ownerID, Comment: fields.Comment, Audio: fields.Audio}, nil
	}
	tok := validToken(t, "u1")

	req := multipartRequest(t, http.MethodPatch, "/feedback/f1",
		map[string]string{"feedback": "better"}, map[string]string{"audio": "voice.mp3:aaa"})
	w := env.do(authed(req, tok))
	require.Equal(t, http.StatusOK, w.Code)

	var body feedbackResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Feedback updated successfully", body.Message)
	assert.Equal(t, "better", *body.Feedback.Comment)
	assert.Equal(t, "uploads/1-voice.mp3", *body.Feedback.Audio)

	tests := []struct {
		id      string
		status  int
		message string
		removed []string
	}{
		{"missing", http.StatusNotFound, "Feedback not found", nil},
		{"bad", http.StatusBadRequest, "Invalid feedback id", nil},
		{"novideo", http.StatusBadRequest, "Video file not found", []string{"uploads/1-clip.mp4"}},
		{"noaudio", http.StatusBadRequest, "Audio file not found", []string{"uploads/1-clip.mp4"}},
	}
	for _, tt := range tests {
		env.store.removed = nil
		env.store.files = map[string][]byte{}
		req := multipartRequest(t, http.MethodPatch, "/feedback/"+tt.id, nil, map[string]string{"video": "clip.mp4:vvv"})
		w := env.do(authed(req, tok))
		assert.Equal(t, tt.status, w.Code, tt.id)
		assert.Equal(t, tt.message, decodeMessage(t, w))
		assert.Equal(t, tt.removed, env.store.removed, tt.id)
		assert.Empty(t, env.store.files, tt.id)
	}
}

func TestUpdateFeedback_RejectedIDStoresNothing(t *testing.T) {
	env := newTestEnv(t, Options{})

	env.feedback.getFunc = func(context.Context, string, string) (*models.FeedbackView, error) {
		return nil, common.ErrNotFound
	}
	updated := false
	env.feedback.updateFunc = func(context.Context, string, string, models.FeedbackFields) (*models.FeedbackView, error) {
		updated = true
		return nil, nil
	}

	req := multipartRequest(t, http.MethodPatch, "/feedback/someone-elses", nil, map[string]string{"video": "clip.mp4:vvv"})
	w := env.do(authed(req, validToken(t, "u1")))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, updated)
	assert.Empty(t, env.store.files)
	assert.Empty(t, env.store.removed)
}

func TestUpdateFeedback_URLEncoded(t *testing.T) {
	env := newTestEnv(t, Options{})

	env.feedback.getFunc = func(_ context.Context, _, id string) (*models.FeedbackView, error) {
		return &models.FeedbackView{ID: id}, nil
	}
	env.feedback.updateFunc = func(_ context.Context, _, id string, fields models.FeedbackFields) (*models.FeedbackView, error) {
		require.NotNil(t, fields.Rating)
		assert.Equal(t, 2.0, *fields.Rating)
		assert.Nil(t, fields.Comment)
		return &models.FeedbackView{ID: id, Rating: fields.Rating}, nil
	}

	req := httptest.NewRequest(http.MethodPatch, "/feedback/f1", strings.NewReader("rating=2"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := env.do(authed(req, validToken(t, "u1")))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateFeedback_ZeroRatingIsPassedOn(t *testing.T) {
	env := newTestEnv(t, Options{})

	env.feedback.getFunc = func(_ context.Context, _, id string) (*models.FeedbackView, error) {
		return &models.FeedbackView{ID: id}, nil
	}
	env.feedback.updateFunc = func(_ context.Context, _, id string, fields models.FeedbackFields) (*models.FeedbackView, error) {
		require.NotNil(t, fields.Rating)
		assert.Equal(t, 0.0, *fields.Rating)
		return &models.FeedbackView{ID: id, Rating: fields.Rating}, nil
	}

	req := multipartRequest(t, http.MethodPatch, "/feedback/f1", map[string]string{"rating": "0"}, nil)
	w := env.do(authed(req, validToken(t, "u1")))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadFeedback_LargePartLeavesNoTempFiles(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	env := newTestEnv(t, Options{})
	env.feedback.addFunc = func(_ context.Context, ownerID string, fields models.FeedbackFields) (*models.FeedbackView, error) {
		return &models.FeedbackView{ID: "f1", UserID: ownerID, Video: fields.Video}, nil
	}

	req := multipartRequest(t, http.MethodPost, "/feedback/upload", nil,
		map[string]string{"video": "clip.mp4:" + strings.Repeat("v", multipartMemory+(1<<20))})
	w := env.do(authed(req, validToken(t, "u1")))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, env.store.files["uploads/1-clip.mp4"], multipartMemory+(1<<20))

	leftovers, err := filepath.Glob(filepath.Join(tmp, "multipart-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestGetAndDeleteFeedback(t *testing.T) {
	env := newTestEnv(t, Options{})
	deleted := map[string]bool{}

	env.feedback.getFunc = func(_ context.Context, ownerID, id string) (*models.FeedbackView, error) {
		if id == "not-a-uuid" {
			return nil, common.ErrInvalidIdentifier
		}
		if deleted[id] || ownerID != "u1" {
			return nil, common.ErrNotFound
		}
		return &models.FeedbackView{ID: id, UserID: ownerID, Video: strPtr("http://localhost:3005/uploads/1-a.mp4")}, nil
	}
	env.feedback.deleteFunc = func(_ context.Context, ownerID, id string) (*models.Feedback, error) {
		if deleted[id] {
			return nil, common.ErrNotFound
		}
		deleted[id] = true
		return &models.Feedback{ID: id, UserID: ownerID}, nil
	}
	tok := validToken(t, "u1")

	w := env.do(authed(httptest.NewRequest(http.MethodGet, "/feedback/f1", nil), tok))
	require.Equal(t, http.StatusOK, w.Code)
	var view models.FeedbackView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "f1", view.ID)
	assert.Equal(t, "http://localhost:3005/uploads/1-a.mp4", *view.Video)

	w = env.do(authed(httptest.NewRequest(http.MethodGet, "/feedback/f1", nil), validToken(t, "u2")))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(authed(httptest.NewRequest(http.MethodGet, "/feedback/not-a-uuid", nil), tok))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(authed(httptest.NewRequest(http.MethodDelete, "/feedback/f1", nil), tok))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Feedback deleted successfully", decodeMessage(t, w))

	w = env.do(authed(httptest.NewRequest(http.MethodDelete, "/feedback/f1", nil), tok))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(authed(httptest.NewRequest(http.MethodGet, "/feedback/f1", nil), tok))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// =============================================================================
// Misc
// =============================================================================

func TestHealth(t *testing.T) {
	env := newTestEnv(t, Options{})

	w := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	env.srv.db = mockPinger{err: errors.New("down")}
	w = httptest.NewRecorder()
	env.srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStaticUploads(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1-clip.mp4"), []byte("vvv"), 0o600))

	env := newTestEnv(t, Options{StaticDir: dir})

	w := env.do(httptest.NewRequest(http.MethodGet, "/uploads/1-clip.mp4", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "vvv", w.Body.String())

	w = env.do(httptest.NewRequest(http.MethodGet, "/uploads/missing.mp4", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	noStatic := newTestEnv(t, Options{})
	w = noStatic.do(httptest.NewRequest(http.MethodGet, "/uploads/1-clip.mp4", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRun_StopsOnCancel(t *testing.T) {
	env := newTestEnv(t, Options{Address: "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRun_ListenError(t *testing.T) {
	env := newTestEnv(t, Options{Address: "256.0.0.1:bad"})

	err := env.srv.Run(context.Background())
	assert.Error(t, err)
	assert.False(t, strings.Contains(fmt.Sprint(err), "Server closed"))
}
