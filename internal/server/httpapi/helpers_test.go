package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophid/internal/filex"
	"github.com/dmitrijs2005/gophid/internal/logging"
	"github.com/dmitrijs2005/gophid/internal/ratelimit"
	"github.com/dmitrijs2005/gophid/internal/server/avatars"
	"github.com/dmitrijs2005/gophid/internal/server/config"
	"github.com/dmitrijs2005/gophid/internal/server/mail"
	"github.com/dmitrijs2005/gophid/internal/server/metrics"
	"github.com/dmitrijs2005/gophid/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophid/internal/server/services"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
}

func (f *fakeMailer) Send(ctx context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

var linkRe = regexp.MustCompile(`/users/verify/([^"]+)"`)

// lastToken returns the verification token from the newest message to.
func (f *fakeMailer) lastToken(t *testing.T, to string) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].To == to {
			m := linkRe.FindStringSubmatch(f.sent[i].HTML)
			require.Len(t, m, 2)
			return m[1]
		}
	}
	t.Fatalf("no message sent to %s", to)
	return ""
}

type testServer struct {
	srv       *Server
	rm        *repomanager.MemoryRepositoryManager
	mailer    *fakeMailer
	metrics   *metrics.Metrics
	avatarDir string
}

func newTestServer(t *testing.T, limiter *ratelimit.KeyLimiter) *testServer {
	t.Helper()

	root := t.TempDir()
	cfg := &config.Config{
		SecretKey:     "test-secret",
		SessionTTL:    time.Hour,
		BaseURL:       "http://localhost:8080",
		PublicOrigin:  "http://localhost:8080",
		TempDir:       filepath.Join(root, "tmp"),
		AvatarTimeout: 10 * time.Second,
	}

	storage, err := avatars.NewDiskStorage(filepath.Join(root, "avatars"))
	require.NoError(t, err)
	require.NoError(t, ensureDir(cfg.TempDir))

	ts := &testServer{
		rm:        repomanager.NewMemoryRepositoryManager(),
		mailer:    &fakeMailer{},
		metrics:   metrics.New(),
		avatarDir: storage.Dir(),
	}

	identity := services.NewIdentityService(ts.rm, ts.mailer, services.UUIDTokenIssuer{}, cfg, logging.Nop(), ts.metrics)
	pipeline := services.NewAvatarPipeline(ts.rm, storage, cfg, logging.Nop(), ts.metrics)

	ts.srv = NewServer(Options{
		Identity:       identity,
		Avatars:        pipeline,
		Logger:         logging.Nop(),
		Metrics:        ts.metrics,
		Limiter:        limiter,
		RequestTimeout: 30 * time.Second,
		TempDir:        cfg.TempDir,
		PublicOrigin:   cfg.PublicOrigin,
		AvatarDir:      storage.Dir(),
	})
	return ts
}

type response struct {
	Status int
	Body   map[string]any
	Raw    []byte
}

func (ts *testServer) do(t *testing.T, req *http.Request) response {
	t.Helper()
	resp, err := ts.srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := response{Status: resp.StatusCode, Raw: raw}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out.Body))
	}
	return out
}

func (ts *testServer) json(t *testing.T, method, path, token string, body any) response {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return ts.do(t, req)
}

func (ts *testServer) upload(t *testing.T, token, filename string, content []byte) response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := w.CreateFormFile("avatar", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPatch, "/users/avatars", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return ts.do(t, req)
}

// signupAndLogin registers, verifies and logs in email, returning the token.
func (ts *testServer) signupAndLogin(t *testing.T, email, password string) string {
	t.Helper()
	r := ts.json(t, http.MethodPost, "/users/signup", "", map[string]any{"email": email, "password": password})
	require.Equal(t, http.StatusCreated, r.Status, string(r.Raw))

	r = ts.json(t, http.MethodGet, "/users/verify/"+ts.mailer.lastToken(t, email), "", nil)
	require.Equal(t, http.StatusOK, r.Status, string(r.Raw))

	r = ts.json(t, http.MethodPost, "/users/login", "", map[string]any{"email": email, "password": password})
	require.Equal(t, http.StatusOK, r.Status, string(r.Raw))
	return r.Body["token"].(string)
}

func (ts *testServer) avatarURL(t *testing.T, email string) string {
	t.Helper()
	a, err := ts.rm.Accounts().GetByEmail(context.Background(), email)
	require.NoError(t, err)
	return a.AvatarURL
}

func ensureDir(dir string) error {
	_, err := filex.EnsureSubdDir(dir)
	return err
}
