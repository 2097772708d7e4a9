package mvauth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	clock "github.com/filecoin-project/go-clock"
	"github.com/redis/go-redis/v9"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

// memDirectory is an in-memory IdentityDirectory for engine tests.
type memDirectory struct {
	mu         sync.RWMutex
	byID       map[string]User
	byEmail    map[string]string
	lastAccess map[string]time.Time
	statusErr  error
}

func newMemDirectory() *memDirectory {
	return &memDirectory{
		byID:       make(map[string]User),
		byEmail:    make(map[string]string),
		lastAccess: make(map[string]time.Time),
	}
}

func (d *memDirectory) put(u User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID[u.ID] = u
	d.byEmail[u.Email] = u.ID
}

func (d *memDirectory) status(userID string) UserStatus {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.byID[userID].Status
}

func (d *memDirectory) FindUserByEmail(_ context.Context, email string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := d.byID[id]
	return &u, nil
}

func (d *memDirectory) GetUserByID(_ context.Context, userID string) (*User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.byID[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (d *memDirectory) UpdateStatus(_ context.Context, userID string, status UserStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.statusErr != nil {
		return d.statusErr
	}

	u, ok := d.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.Status = status
	d.byID[userID] = u
	return nil
}

func (d *memDirectory) UpdateLastAccess(_ context.Context, userID string, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastAccess[userID] = at
	return nil
}

// memSettings supplies a mutable attempt limit.
type memSettings struct {
	mu    sync.Mutex
	limit int
	err   error
}

func (s *memSettings) LoginAttemptLimit(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limit, s.err
}

func (s *memSettings) setLimit(n int) {
	s.mu.Lock()
	s.limit = n
	s.mu.Unlock()
}

// captureMailer records outbound mail instead of sending it.
type captureMailer struct {
	mu       sync.Mutex
	messages []MailMessage
	fail     error
}

func (m *captureMailer) Send(_ context.Context, msg MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *captureMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		t.Fatal("no mail captured")
	}
	code, _ := m.messages[len(m.messages)-1].Data["otp"].(string)
	if code == "" {
		t.Fatal("captured mail carries no code")
	}
	return code
}

type testEnv struct {
	engine   *Engine
	dir      *memDirectory
	settings *memSettings
	mailer   *captureMailer
	clk      *clock.Mock
	mr       *miniredis.Miniredis
}

// newTestEnv builds an engine over miniredis with a mock clock and the stall
// disabled. Tests that exercise the stall use newStallEnv instead.
func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clk := clock.NewMock()
	clk.Set(time.Now())

	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = testSigningKey
	cfg.Login.StallTime = 0
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	if mutate != nil {
		mutate(&cfg)
	}

	dir := newMemDirectory()
	dir.put(User{ID: "user-1", Email: "alice@example.com", Status: StatusActive, Role: "admin", AppAccess: true})

	settings := &memSettings{limit: 3}
	mailer := &captureMailer{}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithDirectory(dir).
		WithSettings(settings).
		WithMailer(mailer).
		WithClock(clk).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{
		engine:   engine,
		dir:      dir,
		settings: settings,
		mailer:   mailer,
		clk:      clk,
		mr:       mr,
	}
}

// newStallEnv builds an engine on the wall clock with a real stall floor.
func newStallEnv(t *testing.T, stall time.Duration) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = testSigningKey
	cfg.Login.StallTime = stall

	dir := newMemDirectory()
	dir.put(User{ID: "user-1", Email: "alice@example.com", Status: StatusActive})

	settings := &memSettings{limit: 3}
	mailer := &captureMailer{}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithDirectory(dir).
		WithSettings(settings).
		WithMailer(mailer).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{
		engine:   engine,
		dir:      dir,
		settings: settings,
		mailer:   mailer,
		mr:       mr,
	}
}

func (env *testEnv) ctx() context.Context {
	return WithClientIP(context.Background(), "10.0.0.1")
}

// requestCode issues a challenge for email and returns the mailed code.
func (env *testEnv) requestCode(t *testing.T, email string) string {
	t.Helper()
	if err := env.engine.RequestChallenge(env.ctx(), DefaultProvider, Payload{"email": email}); err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}
	return env.mailer.lastCode(t)
}

// login submits an email/code pair through the default provider.
func (env *testEnv) login(email, code string) (*LoginResult, error) {
	return env.engine.Login(env.ctx(), DefaultProvider, Payload{"email": email, "otp": code})
}
