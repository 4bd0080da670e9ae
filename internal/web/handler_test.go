package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vovarama1992/link-chat/internal/chat"
	"github.com/Vovarama1992/link-chat/internal/identity"
	"github.com/Vovarama1992/link-chat/internal/identity/identitytest"
	"github.com/Vovarama1992/link-chat/internal/link"
	"github.com/Vovarama1992/link-chat/internal/session"
)

const (
	testEmail    = "ada@example.com"
	testPassword = "correct horse"
)

// fakeBackend stands in for the Link backend: /generate and the connection
// endpoints.
type fakeBackend struct {
	mu        sync.Mutex
	prompts   []string
	resets    int
	exchanges []string
	auth      []string
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.auth = append(b.auth, r.Header.Get("Authorization"))

	switch r.URL.Path {
	case "/generate":
		var body struct {
			Prompt string `json:"prompt"`
			Reset  bool   `json:"reset"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Reset {
			b.resets++
			_, _ = w.Write([]byte(`{"status":"ok"}`))
			return
		}
		b.prompts = append(b.prompts, body.Prompt)
		if body.Prompt == "fail-auth" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Missing or invalid Authorization header"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"completion": "```\necho: " + body.Prompt + "\n```"})
	case "/api/user/get_connections":
		_, _ = w.Write([]byte(`["spotify"]`))
	case "/api/callback/spotify":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.exchanges = append(b.exchanges, body["code"])
		w.WriteHeader(http.StatusOK)
	default:
		http.NotFound(w, r)
	}
}

func (b *fakeBackend) snapshot() (prompts []string, resets int, exchanges []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.prompts...), b.resets, append([]string(nil), b.exchanges...)
}

type harness struct {
	app      *httptest.Server
	client   *http.Client
	backend  *fakeBackend
	provider *identitytest.Provider
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	backend := &fakeBackend{}
	backendSrv := httptest.NewServer(backend)
	t.Cleanup(backendSrv.Close)

	provider := identitytest.NewProvider(testEmail, testPassword)
	guard := session.NewGuard(provider, session.NewMemoryStore())
	chats := chat.NewRegistry(chat.NewRemoteGenerator(backendSrv.URL, backendSrv.Client()))
	guard.OnSignOut(chats.Drop)

	connections := link.NewBackendClient(backendSrv.URL, backendSrv.Client())
	flow := link.NewFlow(connections, "spotify-client", "http://localhost:3000/callback/spotify")

	h, err := NewHandler(guard, chats, flow, link.NewCallbackHandler(connections), false)
	require.NoError(t, err)

	app := httptest.NewServer(NewRouter(h, guard, []string{"*"}))
	t.Cleanup(app.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &harness{app: app, client: client, backend: backend, provider: provider}
}

func (h *harness) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.Get(h.app.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (h *harness) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.PostForm(h.app.URL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (h *harness) postJSON(t *testing.T, path, body string) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.Post(h.app.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (h *harness) signIn(t *testing.T) {
	t.Helper()
	resp, _ := h.postForm(t, "/login", url.Values{"email": {testEmail}, "password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestPing(t *testing.T) {
	h := newHarness(t)
	resp, body := h.get(t, "/ping")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", body)
}

func TestHomeShowsSignInWhenSignedOut(t *testing.T) {
	h := newHarness(t)

	resp, body := h.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `action="/login"`)

	_, body = h.get(t, "/?mode=signup")
	assert.Contains(t, body, `action="/signup"`)
}

func TestSignInShowsChatAndResetsOnce(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	resp, body := h.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Let me know which of your favorite movie or tv characters")
	assert.Contains(t, body, "Connected")

	h.get(t, "/")
	_, resets, _ := h.backend.snapshot()
	assert.Equal(t, 1, resets)
}

func TestSignInErrorsStayOnForm(t *testing.T) {
	h := newHarness(t)

	resp, body := h.postForm(t, "/login", url.Values{"email": {testEmail}, "password": {"nope"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body, "Incorrect username or password.")
	assert.Contains(t, body, `action="/login"`)

	resp, body = h.postForm(t, "/login", url.Values{"email": {""}, "password": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "email and password are required")
}

func TestSignInUnconfirmedShowsConfirmForm(t *testing.T) {
	h := newHarness(t)
	h.provider.SignInErr = &identity.AuthError{Code: "UserNotConfirmedException", Message: "User is not confirmed."}

	resp, body := h.postForm(t, "/login", url.Values{"email": {" " + testEmail}, "password": {testPassword}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `action="/confirm"`)
	assert.Contains(t, body, testEmail)
	assert.Contains(t, body, "not confirmed yet")
	appURL, err := url.Parse(h.app.URL)
	require.NoError(t, err)
	assert.Empty(t, h.client.Jar.Cookies(appURL))
}

func TestSignUpThenConfirm(t *testing.T) {
	h := newHarness(t)

	resp, body := h.postForm(t, "/signup", url.Values{"email": {"new@example.com"}, "password": {"pw"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `action="/confirm"`)
	assert.Contains(t, body, "new@example.com")

	resp, body = h.postForm(t, "/confirm", url.Values{"email": {"new@example.com"}, "code": {"123456"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Account confirmed")
	assert.Contains(t, body, `action="/login"`)

	assert.Equal(t, []string{"new@example.com"}, h.provider.SignUps)
	assert.Equal(t, []string{"new@example.com:123456"}, h.provider.Confirms)
}

func TestChatAPI(t *testing.T) {
	h := newHarness(t)

	resp, _ := h.get(t, "/api/chat/messages")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	h.signIn(t)

	resp, body := h.postJSON(t, "/api/chat/messages", `{"text":"hello"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		State     chat.State     `json:"state"`
		Connected bool           `json:"connected"`
		Sent      bool           `json:"sent"`
		Messages  []chat.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.True(t, got.Sent)
	assert.True(t, got.Connected)
	assert.Equal(t, chat.StateIdle, got.State)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "hello", got.Messages[1].Text)
	assert.Equal(t, "echo: hello", got.Messages[2].Text)
	assert.True(t, got.Messages[2].FromAgent)

	prompts, _, _ := h.backend.snapshot()
	assert.Equal(t, []string{"hello"}, prompts)

	resp, body = h.postJSON(t, "/api/chat/messages", `{"text":"   "}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.False(t, got.Sent)
	assert.Len(t, got.Messages, 3)
}

func TestChatAPIShowsAuthIssue(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	_, body := h.postJSON(t, "/api/chat/messages", `{"text":"fail-auth"}`)

	var got struct {
		Connected bool           `json:"connected"`
		Messages  []chat.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "fail-auth", got.Messages[1].Text)
	assert.Equal(t, "Message couldn't be sent due to an authentication issue", got.Messages[2].Text)
	assert.True(t, got.Messages[2].IsError)
	assert.False(t, got.Connected)
}

func TestChatFormSend(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	resp, _ := h.postForm(t, "/chat", url.Values{"message": {"**bold** move"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := h.get(t, "/")
	assert.Contains(t, body, "<strong>bold</strong>")
}

func TestIntegrationsView(t *testing.T) {
	h := newHarness(t)

	resp, _ := h.get(t, "/connect-apps")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	h.signIn(t)
	resp, body := h.get(t, "/connect-apps")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `action="/connect-apps/Spotify/disconnect"`)
	assert.Contains(t, body, `action="/connect-apps/Slack/connect"`)

	_, body = h.get(t, "/connect-apps?q=spot")
	assert.Contains(t, body, "Spotify")
	assert.NotContains(t, body, "Slack")

	_, body = h.get(t, "/connect-apps?error=callback_failed")
	assert.Contains(t, body, "couldn&#39;t finish linking")
}

func TestConnect(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	resp, _ := h.postForm(t, "/connect-apps/Spotify/connect", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.spotify.com", loc.Host)
	assert.Equal(t, "spotify-client", loc.Query().Get("client_id"))

	resp, _ = h.postForm(t, "/connect-apps/Slack/connect", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/connect-apps", resp.Header.Get("Location"))

	resp, _ = h.postForm(t, "/connect-apps/Slack/disconnect", nil)
	assert.Equal(t, "/connect-apps", resp.Header.Get("Location"))

	resp, _ = h.postForm(t, "/connect-apps/myspace/connect", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCallback(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	resp, _ := h.get(t, "/callback/spotify?code=abc")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/connect-apps", resp.Header.Get("Location"))

	resp, _ = h.get(t, "/callback/spotify?code=abc")
	assert.Equal(t, "/connect-apps", resp.Header.Get("Location"))

	_, _, exchanges := h.backend.snapshot()
	assert.Equal(t, []string{"abc"}, exchanges)

	resp, _ = h.get(t, "/callback/spotify?error=access_denied")
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestCallbackWithoutSessionFails(t *testing.T) {
	h := newHarness(t)

	resp, _ := h.get(t, "/callback/spotify?code=abc")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/connect-apps?error=callback_failed", resp.Header.Get("Location"))

	_, _, exchanges := h.backend.snapshot()
	assert.Empty(t, exchanges)
}

func TestSignOutDropsSession(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	h.postJSON(t, "/api/chat/messages", `{"text":"hello"}`)

	resp, _ := h.postForm(t, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, []string{"access-" + testEmail}, h.provider.SignOuts)

	resp, _ = h.get(t, "/api/chat/messages")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	h.signIn(t)
	_, body := h.get(t, "/api/chat/messages")
	var got struct {
		Messages []chat.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Len(t, got.Messages, 1)
}

func TestRenderMarkdownDropsRawHTML(t *testing.T) {
	out := string(renderMarkdown("**hi** <script>alert(1)</script>"))
	assert.Contains(t, out, "<strong>hi</strong>")
	assert.NotContains(t, out, "<script>")
}
