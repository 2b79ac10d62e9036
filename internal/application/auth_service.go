package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/scanwatch-service/internal/domain"
	"github.com/wms-platform/scanwatch-service/pkg/errors"
	"github.com/wms-platform/scanwatch-service/pkg/events"
	"github.com/wms-platform/scanwatch-service/pkg/kafka"
	"github.com/wms-platform/scanwatch-service/pkg/logging"
)

// Credentials holds the configured default upstream account. The staff
// identity logs in with a well-known local password and is mapped to this
// account before the upstream ever sees it.
type Credentials struct {
	Username string
	Password string
}

// StaffLocalPassword is the local password accepted for the staff identity.
const StaffLocalPassword = "123456"

// AuthService handles session lifecycle: login, token resolution with
// upstream-token refresh, and logout.
type AuthService struct {
	store        SessionStore
	upstream     UpstreamGateway
	defaults     Credentials
	producer     EventPublisher
	eventFactory *events.EventFactory
	logger       *logging.Logger
	now          func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(
	store SessionStore,
	upstream UpstreamGateway,
	defaults Credentials,
	producer EventPublisher,
	eventFactory *events.EventFactory,
	logger *logging.Logger,
) *AuthService {
	return &AuthService{
		store:        store,
		upstream:     upstream,
		defaults:     defaults,
		producer:     producer,
		eventFactory: eventFactory,
		logger:       logger,
		now:          time.Now,
	}
}

// Login proxies credentials to the upstream and issues a local bearer token.
// The staff identity with the well-known local password is swapped for the
// configured default account.
func (s *AuthService) Login(ctx context.Context, cmd LoginCommand) (*SessionDTO, error) {
	identity := cmd.Username

	username, password := cmd.Username, cmd.Password
	if cmd.Username == domain.StaffIdentity && cmd.Password == StaffLocalPassword {
		username, password = s.defaults.Username, s.defaults.Password
	}

	upstreamToken, err := s.upstream.Login(ctx, username, password)
	if err != nil {
		return nil, s.mapLoginError(ctx, identity, err)
	}

	return s.openSession(ctx, identity, upstreamToken, username, password), nil
}

// LocalLogin authenticates against the configured default account without
// exposing upstream credential handling to the client. On success the session
// behaves exactly like a proxied login.
func (s *AuthService) LocalLogin(ctx context.Context, cmd LoginCommand) (*SessionDTO, error) {
	if cmd.Username != s.defaults.Username || cmd.Password != s.defaults.Password {
		return nil, errors.ErrUnauthorized("invalid username or password")
	}

	upstreamToken, err := s.upstream.Login(ctx, s.defaults.Username, s.defaults.Password)
	if err != nil {
		return nil, s.mapLoginError(ctx, cmd.Username, err)
	}

	return s.openSession(ctx, cmd.Username, upstreamToken, s.defaults.Username, s.defaults.Password), nil
}

func (s *AuthService) openSession(ctx context.Context, identity, upstreamToken, username, password string) *SessionDTO {
	token := uuid.New().String()

	s.store.Set(token, SessionEntry{
		Identity:      identity,
		UpstreamToken: upstreamToken,
		Username:      username,
		Password:      password,
		IssuedAt:      s.now(),
	})

	s.logger.WithContext(ctx).Info("Session opened", "identity", identity)

	if s.producer != nil && s.eventFactory != nil {
		event := s.eventFactory.CreateSessionOpenedEvent(ctx, identity)
		if err := s.producer.PublishEvent(context.WithoutCancel(ctx), kafka.Topics.SessionEvents, event); err != nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Failed to publish session event", "identity", identity)
		}
	}

	return &SessionDTO{
		AccessToken: token,
		TokenType:   "bearer",
		Identity:    identity,
	}
}

// Resolve validates a bearer token and returns the session bound to it,
// refreshing the upstream token once when it has outlived its TTL. A failed
// refresh clears the entry so the client has to log in again.
func (s *AuthService) Resolve(ctx context.Context, token string) (domain.Session, error) {
	if token == "" {
		return domain.Session{}, errors.ErrUnauthorized("missing bearer token")
	}

	entry, ok := s.store.Get(token)
	if !ok {
		return domain.Session{}, errors.ErrUnauthorized("invalid or expired session")
	}

	session := domain.Session{
		Token:         token,
		Identity:      entry.Identity,
		UpstreamToken: entry.UpstreamToken,
		IssuedAt:      entry.IssuedAt,
	}

	if !session.UpstreamExpired(s.now()) {
		return session, nil
	}

	if entry.Username == "" {
		s.store.Clear(token)
		return domain.Session{}, errors.ErrUnauthorized("session expired, please log in again")
	}

	upstreamToken, err := s.upstream.Login(ctx, entry.Username, entry.Password)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Upstream token refresh failed", "identity", entry.Identity)
		s.store.Clear(token)
		return domain.Session{}, errors.ErrUnauthorized("session expired, please log in again")
	}

	entry.UpstreamToken = upstreamToken
	entry.IssuedAt = s.now()
	s.store.Set(token, entry)

	s.logger.WithContext(ctx).Info("Upstream token refreshed", "identity", entry.Identity)

	session.UpstreamToken = upstreamToken
	session.IssuedAt = entry.IssuedAt
	return session, nil
}

// Me returns the authenticated identity and its warehouse scope.
func (s *AuthService) Me(ctx context.Context, token string) (*IdentityDTO, error) {
	session, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	return &IdentityDTO{
		Identity:   session.Identity,
		Warehouses: domain.VisibleWarehouses(session.Identity),
	}, nil
}

// Logout clears the session entry unconditionally.
func (s *AuthService) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	s.store.Clear(token)
	s.logger.WithContext(ctx).Info("Session closed")
}

func (s *AuthService) mapLoginError(ctx context.Context, identity string, err error) error {
	s.logger.WithContext(ctx).WithError(err).Warn("Upstream login failed", "identity", identity)

	if te, ok := domain.AsTransient(err); ok {
		if te.Unreachable {
			return errors.ErrServiceUnavailable("scan-record API")
		}
		if te.StatusCode == 401 || te.StatusCode == 403 {
			return errors.ErrUnauthorized("invalid username or password")
		}
		return errors.ErrUpstream(te.StatusCode, te.Message)
	}

	return errors.ErrInternal("").Wrap(err)
}
