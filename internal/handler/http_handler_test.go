package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClarkHamofares/chat-app/internal/domain"
	"github.com/ClarkHamofares/chat-app/pkg/storage"
)

func newTestStorage(t *testing.T) storage.Storage {
	t.Helper()
	store, err := storage.NewLocalStorage(storage.LocalConfig{
		BasePath: t.TempDir(),
		URLBase:  "/media",
	})
	require.NoError(t, err)
	return store
}

type apiEnvelope struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doJSON(t *testing.T, env *testEnv, method, path, token string, body interface{}) (int, apiEnvelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, env.srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out apiEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestRegisterLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	status, out := doJSON(t, env, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":        "alice@example.com",
		"display_name": "Alice",
		"password":     "correct horse",
	})
	require.Equal(t, http.StatusCreated, status)
	require.True(t, out.Success)
	user := out.Data["user"].(map[string]interface{})
	assert.NotEmpty(t, user["id"])
	assert.Equal(t, "alice@example.com", user["email"])

	// Same email again conflicts.
	status, out = doJSON(t, env, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":        "alice@example.com",
		"display_name": "Alice",
		"password":     "correct horse",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, out.Success)

	status, out = doJSON(t, env, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "correct horse",
	})
	require.Equal(t, http.StatusOK, status)
	token := out.Data["token"].(string)
	require.NotEmpty(t, token)

	// The issued token opens the websocket.
	conn := env.dial(t, token)
	var presence domain.PresenceEvent
	readEvent(t, conn, &presence)
	assert.Equal(t, domain.EventPresence, presence.Type)
}

func TestRegisterValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing fields", map[string]string{"email": "a@b.c"}},
		{"short password", map[string]string{"email": "a@b.c", "display_name": "A", "password": "short"}},
		{"bad email", map[string]string{"email": "nope", "display_name": "A", "password": "long enough"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := doJSON(t, env, http.MethodPost, "/api/v1/auth/register", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.False(t, out.Success)
		})
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)

	doJSON(t, env, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":        "alice@example.com",
		"display_name": "Alice",
		"password":     "correct horse",
	})

	status, _ := doJSON(t, env, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong horse",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, env, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "correct horse",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/v1/messages?with=bob", "/api/v1/presence"} {
		status, out := doJSON(t, env, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.False(t, out.Success)
	}

	status, _ := doJSON(t, env, http.MethodGet, "/api/v1/presence", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestMessagesEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.issueToken(t, "alice", "Alice")

	for i := 0; i < 3; i++ {
		require.NoError(t, env.msgRepo.Append(context.Background(), &domain.Message{
			From: "alice", To: "bob", Text: fmt.Sprintf("msg %d", i), CreatedAt: time.Now().UTC(),
		}))
	}
	// Unrelated conversation stays invisible.
	require.NoError(t, env.msgRepo.Append(context.Background(), &domain.Message{
		From: "carol", To: "dave", Text: "secret", CreatedAt: time.Now().UTC(),
	}))

	status, out := doJSON(t, env, http.MethodGet, "/api/v1/messages?with=bob", token, nil)
	require.Equal(t, http.StatusOK, status)
	messages := out.Data["messages"].([]interface{})
	require.Len(t, messages, 3)
	// Oldest first.
	assert.Equal(t, "msg 0", messages[0].(map[string]interface{})["text"])
	assert.Equal(t, "msg 2", messages[2].(map[string]interface{})["text"])

	// The limit keeps the latest messages, still oldest first.
	status, out = doJSON(t, env, http.MethodGet, "/api/v1/messages?with=bob&limit=2", token, nil)
	require.Equal(t, http.StatusOK, status)
	limited := out.Data["messages"].([]interface{})
	require.Len(t, limited, 2)
	assert.Equal(t, "msg 1", limited[0].(map[string]interface{})["text"])
	assert.Equal(t, "msg 2", limited[1].(map[string]interface{})["text"])

	status, _ = doJSON(t, env, http.MethodGet, "/api/v1/messages", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, env, http.MethodGet, "/api/v1/messages?with=bob&limit=-1", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestPresenceEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.issueToken(t, "alice", "Alice")

	status, out := doJSON(t, env, http.MethodGet, "/api/v1/presence", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, out.Data["online"])

	conn := env.dial(t, env.issueToken(t, "bob", "Bob"))
	var presence domain.PresenceEvent
	readEvent(t, conn, &presence)

	status, out = doJSON(t, env, http.MethodGet, "/api/v1/presence", token, nil)
	require.Equal(t, http.StatusOK, status)
	online := out.Data["online"].([]interface{})
	assert.Equal(t, []interface{}{"bob"}, online)
}

func TestMediaUpload(t *testing.T) {
	env := newTestEnv(t)
	token := env.issueToken(t, "alice", "Alice")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "cat.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("not really a png"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/v1/media", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out apiEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.True(t, out.Success)
	assert.NotEmpty(t, out.Data["media_url"])
	assert.Contains(t, out.Data["key"], "media/alice/")

	// Upload without a token is rejected.
	req2, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/v1/media", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	resp2, err := http.DefaultClient.Do(req2)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
