package gate

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fdg312/stay-hub/internal/session"
)

func TestDecide_LoadingAlwaysBlocks(t *testing.T) {
	states := []session.State{
		{Loading: true},
		{Loading: true, Authenticated: true, Role: session.RoleAE},
		{Loading: true, HasStoredToken: true},
		{Loading: true, LogoutInProgress: true},
	}

	for _, st := range states {
		d := Decide(st, nil, "/login", "/forbidden")
		if d.State != StateChecking || !d.Blocking {
			t.Fatalf("loading state must block: input=%+v decision=%+v", st, d)
		}
		if d.RedirectTo != "" {
			t.Fatalf("no redirect while checking: %+v", d)
		}
	}
}

func TestDecide_CheckingMessages(t *testing.T) {
	tests := []struct {
		name string
		st   session.State
		want string
	}{
		{"fresh start", session.State{Loading: true}, MsgLoading},
		{"stored token", session.State{Loading: true, HasStoredToken: true}, MsgCheckingSession},
		{"logout in flight", session.State{Loading: true, LogoutInProgress: true, HasStoredToken: true}, MsgLoggingOut},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.st, nil, "/login", "/forbidden")
			if d.Message != tt.want {
				t.Fatalf("expected message %q, got %q", tt.want, d.Message)
			}
		})
	}
}

func TestDecide_Unauthenticated(t *testing.T) {
	d := Decide(session.State{}, nil, "/login", "/forbidden")
	if d.State != StateUnauthenticated || !d.Blocking {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if d.RedirectTo != "/login" {
		t.Fatalf("expected redirect to /login, got %q", d.RedirectTo)
	}
}

func TestDecide_ForbiddenNeverLoginPath(t *testing.T) {
	st := session.State{Authenticated: true, Role: session.RoleAE}
	d := Decide(st, []session.Role{session.RoleDOT, session.RoleProvince}, "/login", "/forbidden")

	if d.State != StateForbidden || !d.Blocking {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if d.RedirectTo != "/forbidden" {
		t.Fatalf("forbidden must redirect to forbidden path, got %q", d.RedirectTo)
	}
}

func TestDecide_Allowed(t *testing.T) {
	st := session.State{Authenticated: true, Role: session.RoleDOT}

	d := Decide(st, []session.Role{session.RoleDOT}, "/login", "/forbidden")
	if d.State != StateAllowed || d.Blocking || d.RedirectTo != "" {
		t.Fatalf("unexpected decision: %+v", d)
	}

	// No role restriction: any authenticated role passes.
	d = Decide(session.State{Authenticated: true, Role: session.RoleAE}, nil, "/login", "/forbidden")
	if d.State != StateAllowed {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

type countingRedirector struct {
	mu    sync.Mutex
	calls []string
}

func (c *countingRedirector) Redirect(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, path)
}

func (c *countingRedirector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func TestWatcher_ExactlyOneRedirectPerTransition(t *testing.T) {
	red := &countingRedirector{}
	w := NewWatcher(nil, "/login", "/forbidden", 0, red)

	unauth := session.State{}
	w.Observe(unauth)
	w.Observe(unauth)
	w.Observe(unauth)

	if red.count() != 1 {
		t.Fatalf("expected exactly one redirect, got %d (%v)", red.count(), red.calls)
	}

	// Leaving and re-entering the state fires again.
	w.Observe(session.State{Authenticated: true, Role: session.RoleAE})
	w.Observe(unauth)
	if red.count() != 2 {
		t.Fatalf("expected redirect on re-entry, got %d (%v)", red.count(), red.calls)
	}
}

func TestWatcher_DebounceDelaysVisibilityOnly(t *testing.T) {
	red := &countingRedirector{}
	w := NewWatcher(nil, "/login", "/forbidden", 300*time.Millisecond, red)

	base := time.Now()
	w.mountedAt = base
	w.now = func() time.Time { return base.Add(100 * time.Millisecond) }

	d := w.Observe(session.State{})
	if !d.Blocking {
		t.Fatal("decision itself must block")
	}
	if w.VisibleBlocking() {
		t.Fatal("overlay must stay hidden inside the debounce window")
	}
	if red.count() != 1 {
		t.Fatal("redirect must fire regardless of debounce")
	}

	w.now = func() time.Time { return base.Add(400 * time.Millisecond) }
	if !w.VisibleBlocking() {
		t.Fatal("overlay must show after the debounce elapses")
	}
}

func TestWatcher_RunConsumesSubscription(t *testing.T) {
	red := &countingRedirector{}
	w := NewWatcher([]session.Role{session.RoleDOT}, "/login", "/forbidden", 0, red)

	states := make(chan session.State, 3)
	states <- session.State{Loading: true}
	states <- session.State{Authenticated: true, Role: session.RoleAE}
	close(states)

	w.Run(states)

	d := w.Decision()
	if d.State != StateForbidden || d.RedirectTo != "/forbidden" {
		t.Fatalf("unexpected final decision: %+v", d)
	}
	if red.count() != 1 {
		t.Fatalf("expected one redirect, got %d", red.count())
	}
}

type staticVerifier struct {
	sub  string
	role session.Role
	err  error
}

func (v *staticVerifier) VerifyJWT(string) (string, session.Role, error) {
	return v.sub, v.role, v.err
}

func TestMiddleware_RequireRoles(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("missing token", func(t *testing.T) {
		m := NewMiddleware(&staticVerifier{err: session.ErrInvalidToken}, "/login", "/forbidden")
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/reports", nil)

		m.RequireRoles(session.RoleAE)(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("wrong role", func(t *testing.T) {
		m := NewMiddleware(&staticVerifier{sub: "u", role: session.RoleAE}, "/login", "/forbidden")
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/reports", nil)
		req.Header.Set("Authorization", "Bearer tok")

		m.RequireRoles(session.RoleDOT)(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("allowed", func(t *testing.T) {
		m := NewMiddleware(&staticVerifier{sub: "u", role: session.RoleDOT}, "/login", "/forbidden")
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/reports", nil)
		req.Header.Set("Authorization", "Bearer tok")

		m.RequireRoles(session.RoleDOT, session.RoleProvince)(next).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}
