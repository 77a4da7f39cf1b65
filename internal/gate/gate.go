package gate

import (
	"sync"
	"time"

	"github.com/fdg312/stay-hub/internal/session"
)

// GateState is the phase of the session gate.
type GateState string

const (
	StateChecking        GateState = "CHECKING"
	StateUnauthenticated GateState = "UNAUTHENTICATED"
	StateForbidden       GateState = "FORBIDDEN"
	StateAllowed         GateState = "ALLOWED"
)

// Blocking-phase messages shown instead of protected content.
const (
	MsgCheckingSession  = "Checking session…"
	MsgLoading          = "Loading…"
	MsgLoggingOut       = "Logging out…"
	MsgRedirectingLogin = "Redirecting to login…"
	MsgRedirecting      = "Redirecting…"
)

// Decision is the gate's verdict for one session snapshot. RedirectTo is
// empty when no redirect is called for.
type Decision struct {
	State      GateState `json:"state"`
	Blocking   bool      `json:"blocking"`
	Message    string    `json:"message,omitempty"`
	RedirectTo string    `json:"redirect_to,omitempty"`
}

// Decide computes the gate verdict from a session snapshot. It is a pure
// function; redirect dispatch and debounce live in Watcher.
func Decide(st session.State, allowRoles []session.Role, loginPath, forbiddenPath string) Decision {
	if st.Loading {
		msg := MsgLoading
		switch {
		case st.LogoutInProgress:
			msg = MsgLoggingOut
		case st.HasStoredToken:
			msg = MsgCheckingSession
		}
		return Decision{State: StateChecking, Blocking: true, Message: msg}
	}

	if !st.Authenticated {
		msg := MsgRedirectingLogin
		if st.LogoutInProgress {
			msg = MsgLoggingOut
		}
		return Decision{
			State:      StateUnauthenticated,
			Blocking:   true,
			Message:    msg,
			RedirectTo: loginPath,
		}
	}

	if len(allowRoles) > 0 && !roleAllowed(st.Role, allowRoles) {
		return Decision{
			State:      StateForbidden,
			Blocking:   true,
			Message:    MsgRedirecting,
			RedirectTo: forbiddenPath,
		}
	}

	return Decision{State: StateAllowed}
}

func roleAllowed(role session.Role, allowRoles []session.Role) bool {
	for _, allowed := range allowRoles {
		if role == allowed {
			return true
		}
	}
	return false
}

// Redirector receives the gate's redirect side effect. Implementations must
// tolerate repeated calls with the same path.
type Redirector interface {
	Redirect(path string)
}

// RedirectorFunc adapts a function to the Redirector interface.
type RedirectorFunc func(path string)

func (f RedirectorFunc) Redirect(path string) { f(path) }

// Watcher evaluates session snapshots as they arrive, dispatches at most one
// redirect per state transition, and delays the visible blocking flag by the
// configured debounce so fast-resolving sessions do not flicker.
type Watcher struct {
	allowRoles    []session.Role
	loginPath     string
	forbiddenPath string
	debounce      time.Duration
	redirector    Redirector
	now           func() time.Time

	mu           sync.Mutex
	mountedAt    time.Time
	decision     Decision
	lastRedirect string
	lastState    GateState
}

func NewWatcher(allowRoles []session.Role, loginPath, forbiddenPath string, debounce time.Duration, redirector Redirector) *Watcher {
	w := &Watcher{
		allowRoles:    allowRoles,
		loginPath:     loginPath,
		forbiddenPath: forbiddenPath,
		debounce:      debounce,
		redirector:    redirector,
		now:           time.Now,
	}
	w.mountedAt = w.now()
	w.decision = Decision{State: StateChecking, Blocking: true, Message: MsgLoading}
	return w
}

// Observe evaluates one snapshot. The redirect fires only on a transition
// into a redirecting state or when the target path changes; re-observing the
// same state is a no-op on the side-effect level.
func (w *Watcher) Observe(st session.State) Decision {
	d := Decide(st, w.allowRoles, w.loginPath, w.forbiddenPath)

	w.mu.Lock()
	fire := d.RedirectTo != "" && (d.State != w.lastState || d.RedirectTo != w.lastRedirect)
	if d.RedirectTo == "" {
		w.lastRedirect = ""
	} else if fire {
		w.lastRedirect = d.RedirectTo
	}
	w.lastState = d.State
	w.decision = d
	w.mu.Unlock()

	if fire && w.redirector != nil {
		w.redirector.Redirect(d.RedirectTo)
	}
	return d
}

// Decision returns the latest verdict.
func (w *Watcher) Decision() Decision {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.decision
}

// VisibleBlocking reports whether the blocking overlay should actually be
// shown. The debounce delays visibility only; Decision and redirects are
// unaffected.
func (w *Watcher) VisibleBlocking() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.decision.Blocking {
		return false
	}
	if w.debounce <= 0 {
		return true
	}
	return w.now().Sub(w.mountedAt) >= w.debounce
}

// Run consumes session snapshots until the channel closes. Each snapshot is
// evaluated through Observe.
func (w *Watcher) Run(states <-chan session.State) {
	for st := range states {
		w.Observe(st)
	}
}
