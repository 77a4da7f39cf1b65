package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fdg312/stay-hub/internal/config"
	"github.com/fdg312/stay-hub/internal/storage"
	"github.com/fdg312/stay-hub/internal/upstream"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Authenticator is the upstream login dependency.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*upstream.LoginResponse, error)
}

// Service owns the session lifecycle: resolving a stored token on startup,
// login against the upstream backend, logout, and state change notification.
type Service struct {
	config   *config.Config
	upstream Authenticator
	states   storage.DeviceStateStorage

	mu            sync.RWMutex
	state         State
	upstreamToken string
	subs          map[int]chan State
	nextSub       int
}

func NewService(cfg *config.Config, auth Authenticator, states storage.DeviceStateStorage) *Service {
	return &Service{
		config:   cfg,
		upstream: auth,
		states:   states,
		state:    State{Loading: true},
		subs:     make(map[int]chan State),
	}
}

// Current returns the latest session snapshot.
func (s *Service) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// AccessToken returns the upstream token for proxied requests. Empty when
// not authenticated.
func (s *Service) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.upstreamToken
}

// Subscribe registers a listener for state changes. The returned cancel
// function must be called to release the channel.
func (s *Service) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan State, 8)
	s.subs[id] = ch

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Resolve restores the session from the persisted token, if any. It is
// called once per device on startup; until it finishes the state reports
// Loading so callers block instead of bouncing to login.
func (s *Service) Resolve(ctx context.Context, deviceID string) (State, error) {
	s.setState(func(st *State) { st.Loading = true })

	// A crash mid-logout leaves the flag set; finish the cleanup here.
	if flag, err := s.states.Get(ctx, deviceID, storage.KeyLogoutInProgress); err == nil && len(flag) > 0 {
		_ = s.states.Delete(ctx, deviceID, storage.KeyAccessToken)
		_ = s.states.Delete(ctx, deviceID, storage.KeyLogoutInProgress)
		return s.setState(func(st *State) { *st = State{} }), nil
	}

	raw, err := s.states.Get(ctx, deviceID, storage.KeyAccessToken)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return s.setState(func(st *State) { *st = State{} }), nil
	}
	if err != nil {
		s.setState(func(st *State) { st.Loading = false })
		return s.Current(), fmt.Errorf("read stored token: %w", err)
	}

	var stored storedSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		_ = s.states.Delete(ctx, deviceID, storage.KeyAccessToken)
		return s.setState(func(st *State) { *st = State{HasStoredToken: true} }), nil
	}

	_, role, err := s.VerifyJWT(stored.Token)
	if err != nil {
		// Stale or tampered token. Keep HasStoredToken so the caller knows
		// a session existed, but do not trust it.
		_ = s.states.Delete(ctx, deviceID, storage.KeyAccessToken)
		return s.setState(func(st *State) { *st = State{HasStoredToken: true} }), nil
	}

	s.mu.Lock()
	s.upstreamToken = stored.Upstream
	s.mu.Unlock()

	return s.setState(func(st *State) {
		*st = State{Authenticated: true, Role: role, HasStoredToken: true}
	}), nil
}

// Login authenticates against the upstream backend, mints a session JWT
// carrying the role, and persists both tokens for the device.
func (s *Service) Login(ctx context.Context, deviceID string, req *LoginRequest) (*LoginResponse, error) {
	resp, err := s.upstream.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, upstream.ErrUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("upstream login: %w", err)
	}

	role := ParseRole(resp.Role)
	ttl := time.Duration(s.config.JWTTTLMinutes) * time.Minute

	token, err := s.generateJWT(req.Username, role, ttl)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	stored, err := json.Marshal(storedSession{Upstream: resp.Access, Token: token})
	if err != nil {
		return nil, err
	}
	if err := s.states.Set(ctx, deviceID, storage.KeyAccessToken, stored); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	s.upstreamToken = resp.Access
	s.mu.Unlock()

	s.setState(func(st *State) {
		*st = State{Authenticated: true, Role: role, HasStoredToken: true}
	})

	return &LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
		Role:        role,
	}, nil
}

// Logout clears the stored session. The logout flag is persisted first so
// an interrupted logout completes on the next Resolve.
func (s *Service) Logout(ctx context.Context, deviceID string) error {
	s.setState(func(st *State) { st.LogoutInProgress = true })

	if err := s.states.Set(ctx, deviceID, storage.KeyLogoutInProgress, []byte(`true`)); err != nil {
		s.setState(func(st *State) { st.LogoutInProgress = false })
		return fmt.Errorf("persist logout flag: %w", err)
	}

	if err := s.states.Delete(ctx, deviceID, storage.KeyAccessToken); err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return fmt.Errorf("clear stored token: %w", err)
	}
	_ = s.states.Delete(ctx, deviceID, storage.KeyLogoutInProgress)

	s.mu.Lock()
	s.upstreamToken = ""
	s.mu.Unlock()

	s.setState(func(st *State) { *st = State{} })
	return nil
}

// VerifyJWT validates a session token and returns its subject and role.
func (s *Service) VerifyJWT(tokenString string) (string, Role, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})

	if err != nil {
		return "", RoleUnknown, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", RoleUnknown, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return "", RoleUnknown, ErrInvalidToken
	}
	roleClaim, _ := claims["role"].(string)
	return sub, ParseRole(roleClaim), nil
}

func (s *Service) generateJWT(subject string, role Role, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := jwt.MapClaims{
		"sub":  subject,
		"role": string(role),
		"iss":  s.config.JWTIssuer,
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// setState applies a mutation under the lock and fans the result out to
// subscribers. Slow subscribers are skipped, never blocked on.
func (s *Service) setState(mutate func(*State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	mutate(&s.state)
	next := s.state
	for _, ch := range s.subs {
		select {
		case ch <- next:
		default:
		}
	}
	return next
}
