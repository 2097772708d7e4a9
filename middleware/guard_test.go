package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	mvauth "github.com/mvplatform/mvauth"
)

type stubDirectory struct{}

func (stubDirectory) FindUserByEmail(_ context.Context, email string) (*mvauth.User, error) {
	if email != "alice@example.com" {
		return nil, mvauth.ErrUserNotFound
	}
	return &mvauth.User{ID: "user-1", Email: email, Status: mvauth.StatusActive, Role: "admin"}, nil
}

func (stubDirectory) GetUserByID(_ context.Context, userID string) (*mvauth.User, error) {
	if userID != "user-1" {
		return nil, mvauth.ErrUserNotFound
	}
	return &mvauth.User{ID: userID, Email: "alice@example.com", Status: mvauth.StatusActive, Role: "admin"}, nil
}

func (stubDirectory) UpdateStatus(context.Context, string, mvauth.UserStatus) error { return nil }

func (stubDirectory) UpdateLastAccess(context.Context, string, time.Time) error { return nil }

type stubSettings struct{}

func (stubSettings) LoginAttemptLimit(context.Context) (int, error) { return 3, nil }

type codeMailer struct {
	mu   sync.Mutex
	code string
}

func (m *codeMailer) Send(_ context.Context, msg mvauth.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.code, _ = msg.Data["otp"].(string)
	return nil
}

func (m *codeMailer) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.code
}

func newTestEngine(t *testing.T, sink mvauth.AuditSink) (*mvauth.Engine, *codeMailer) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := mvauth.DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Login.StallTime = 0
	if sink != nil {
		cfg.Audit.Enabled = true
	}

	mailer := &codeMailer{}
	b := mvauth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithDirectory(stubDirectory{}).
		WithSettings(stubSettings{}).
		WithMailer(mailer)
	if sink != nil {
		b = b.WithAuditSink(sink)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mailer
}

func obtainAccessToken(t *testing.T, engine *mvauth.Engine, mailer *codeMailer) string {
	t.Helper()

	ctx := mvauth.WithClientIP(context.Background(), "10.0.0.1")
	if err := engine.RequestChallenge(ctx, mvauth.DefaultProvider, mvauth.Payload{"email": "alice@example.com"}); err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}

	code := mailer.last()
	if code == "" {
		t.Fatal("no challenge code captured")
	}

	result, err := engine.Login(ctx, mvauth.DefaultProvider, mvauth.Payload{"email": "alice@example.com", "otp": code})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return result.AccessToken
}

func TestGuardAllowsValidToken(t *testing.T) {
	engine, mailer := newTestEngine(t, nil)
	token := obtainAccessToken(t, engine, mailer)

	var gotClaims mvauth.Payload
	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Fatal("claims missing from context")
		}
		gotClaims = claims
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotClaims["id"] != "user-1" || gotClaims["role"] != "admin" {
		t.Fatalf("unexpected claims: %+v", gotClaims)
	}
}

func TestGuardRejections(t *testing.T) {
	engine, _ := newTestEngine(t, nil)

	handler := Guard(engine)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"empty bearer", "Bearer "},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestGuardNilEngine(t *testing.T) {
	handler := Guard(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAccountabilityFeedsAuditRecords(t *testing.T) {
	sink := mvauth.NewChannelSink(16)
	engine, _ := newTestEngine(t, sink)

	handler := Accountability(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := engine.RequestChallenge(r.Context(), mvauth.DefaultProvider, mvauth.Payload{"email": "alice@example.com"})
		if err != nil {
			t.Fatalf("RequestChallenge failed: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/request", nil)
	req.RemoteAddr = "10.1.2.3:40000"
	req.Header.Set("User-Agent", "test-agent/1.0")
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	select {
	case event := <-sink.Events():
		if event.IP != "10.1.2.3" {
			t.Fatalf("expected IP from RemoteAddr, got %q", event.IP)
		}
		if event.UserAgent != "test-agent/1.0" {
			t.Fatalf("expected user agent, got %q", event.UserAgent)
		}
		if event.Origin != "https://app.example.com" {
			t.Fatalf("expected origin, got %q", event.Origin)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no audit event emitted")
	}
}
