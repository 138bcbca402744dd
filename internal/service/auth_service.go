package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/nexura/internal/apperr"
	"github.com/iliyamo/nexura/internal/logging"
	"github.com/iliyamo/nexura/internal/model"
	"github.com/iliyamo/nexura/internal/queue"
	"github.com/iliyamo/nexura/internal/repository"
	"github.com/iliyamo/nexura/internal/utils"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgUnauthorized       = "Unauthorized"

	// maxHandleAttempts bounds the retries when a concurrent signup takes
	// the handle we computed.
	maxHandleAttempts = 5
	publishTimeout    = 2 * time.Second
)

// EventPublisher ships auth events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.AuthEvent) error
}

// AuthMetrics counts auth outcomes.
type AuthMetrics interface {
	AuthOutcome(op, outcome string)
}

// ClientInfo describes the device a session is opened from.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// SignupInput is a validated signup request.
type SignupInput struct {
	Name       string
	Email      string
	Password   string
	Age        int
	Onboarding model.Onboarding
}

// AuthResult is returned by Signup and Login. The refresh token is for the
// cookie only and never rendered in a body.
type AuthResult struct {
	User    model.PublicUser
	Access  utils.SignedToken
	Refresh utils.SignedToken
}

// TokenPair is returned by Refresh.
type TokenPair struct {
	Access  utils.SignedToken
	Refresh utils.SignedToken
}

// AuthOptions holds the optional collaborators of AuthService.
type AuthOptions struct {
	Events  EventPublisher
	Metrics AuthMetrics
	Clock   Clock
}

// AuthService implements signup, login, refresh-token rotation and logout
// over the users and auth_sessions tables.
type AuthService struct {
	db         *sql.DB
	users      *repository.UserRepo
	sessions   *repository.SessionRepo
	tokens     *utils.TokenIssuer
	bcryptCost int
	events     EventPublisher
	metrics    AuthMetrics
	clock      Clock
}

func NewAuthService(db *sql.DB, tokens *utils.TokenIssuer, bcryptCost int, opts AuthOptions) *AuthService {
	return &AuthService{
		db:         db,
		users:      repository.NewUserRepo(db),
		sessions:   repository.NewSessionRepo(db),
		tokens:     tokens,
		bcryptCost: bcryptCost,
		events:     opts.Events,
		metrics:    opts.Metrics,
		clock:      opts.Clock,
	}
}

// Signup creates the account with its settings and onboarding rows, then
// opens the first session. Everything is written in one transaction.
func (s *AuthService) Signup(ctx context.Context, in SignupInput, client ClientInfo) (AuthResult, error) {
	email := repository.NormalizeEmail(in.Email)
	taken, err := s.users.EmailTaken(ctx, email)
	if err != nil {
		return AuthResult{}, apperr.Internal("signup failed", fmt.Errorf("check email: %w", err))
	}
	if taken {
		s.outcome("signup", "conflict")
		return AuthResult{}, apperr.Conflict("Email already registered")
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		fe := apperr.FieldErrors{}
		fe.Add("password", "must be at most 72 bytes")
		return AuthResult{}, apperr.Validation(fe)
	}
	if err != nil {
		return AuthResult{}, apperr.Internal("signup failed", fmt.Errorf("hash password: %w", err))
	}

	prefix := handlePrefix(in.Name)
	for attempt := 1; ; attempt++ {
		latest, err := s.users.LatestHandleWithPrefix(ctx, prefix)
		if err != nil {
			return AuthResult{}, apperr.Internal("signup failed", fmt.Errorf("read handles: %w", err))
		}
		now := s.clock.now()
		u := model.User{
			ID:           uuid.NewString(),
			Email:        email,
			PasswordHash: hash,
			Name:         in.Name,
			Age:          in.Age,
			Handle:       nextHandle(prefix, latest),
			Timezone:     "UTC",
			Currency:     "USD",
			DateFormat:   "MM/DD/YYYY",
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		var pair TokenPair
		var sessionID string
		err = repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
			o := in.Onboarding
			o.UserID = u.ID
			if err := repository.NewUserRepo(tx).CreateWithProfile(ctx, &u, model.DefaultSettings(u.ID), o); err != nil {
				return err
			}
			var err error
			pair, sessionID, err = s.openSession(ctx, repository.NewSessionRepo(tx), u.ID, client, now)
			return err
		})

		var dup *repository.DuplicateError
		switch {
		case err == nil:
			s.outcome("signup", "success")
			s.publish(ctx, queue.EventSignedUp, u, sessionID, client)
			return AuthResult{User: u.Public(), Access: pair.Access, Refresh: pair.Refresh}, nil
		case errors.As(err, &dup) && dup.Key == "handle" && attempt < maxHandleAttempts:
			logging.FromContext(ctx).Info("handle taken, retrying",
				zap.String("handle", u.Handle), zap.Int("attempt", attempt))
			continue
		case errors.As(err, &dup) && dup.Key == "email":
			s.outcome("signup", "conflict")
			return AuthResult{}, apperr.Conflict("Email already registered")
		default:
			return AuthResult{}, apperr.Internal("signup failed", fmt.Errorf("create user: %w", err))
		}
	}
}

// Login verifies the credentials and opens a new session. Unknown emails,
// wrong passwords and disabled accounts all fail with the same error.
func (s *AuthService) Login(ctx context.Context, email, password string, client ClientInfo) (AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		utils.BurnPasswordCheck(password, s.bcryptCost)
		s.outcome("login", "invalid_credentials")
		return AuthResult{}, apperr.Unauthorized(msgInvalidCredentials)
	}
	if err != nil {
		return AuthResult{}, apperr.Internal("login failed", fmt.Errorf("load user: %w", err))
	}
	if ok := utils.VerifyPassword(u.PasswordHash, password); !ok || !u.CanAuthenticate() {
		s.outcome("login", "invalid_credentials")
		return AuthResult{}, apperr.Unauthorized(msgInvalidCredentials)
	}

	now := s.clock.now()
	if err := s.users.TouchLastLogin(ctx, u.ID, now); err != nil {
		return AuthResult{}, apperr.Internal("login failed", fmt.Errorf("touch last login: %w", err))
	}
	pair, sessionID, err := s.openSession(ctx, s.sessions, u.ID, client, now)
	if err != nil {
		return AuthResult{}, apperr.Internal("login failed", err)
	}
	s.outcome("login", "success")
	s.publish(ctx, queue.EventLoggedIn, u, sessionID, client)
	return AuthResult{User: u.Public(), Access: pair.Access, Refresh: pair.Refresh}, nil
}

// ValidateRefresh resolves a raw refresh token to its session. It fails
// with a generic 401 when the signature or expiry is bad, when no live
// session row holds the token, or when the account can no longer
// authenticate.
func (s *AuthService) ValidateRefresh(ctx context.Context, raw string) (model.RefreshPrincipal, error) {
	claims, err := s.tokens.VerifyRefreshToken(raw)
	if err != nil {
		s.outcome("refresh", "invalid_token")
		return model.RefreshPrincipal{}, apperr.Unauthorized(msgUnauthorized)
	}

	hash := utils.HashToken(raw)
	now := s.clock.now()
	sess, err := s.sessions.FindValid(ctx, claims.Subject, hash, now)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !sess.ValidAt(now)) {
		s.outcome("refresh", "no_session")
		return model.RefreshPrincipal{}, apperr.Unauthorized(msgUnauthorized)
	}
	if err != nil {
		return model.RefreshPrincipal{}, apperr.Internal("refresh failed", fmt.Errorf("find session: %w", err))
	}

	u, err := s.users.GetByID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !u.CanAuthenticate()) {
		s.outcome("refresh", "inactive_user")
		return model.RefreshPrincipal{}, apperr.Unauthorized(msgUnauthorized)
	}
	if err != nil {
		return model.RefreshPrincipal{}, apperr.Internal("refresh failed", fmt.Errorf("load user: %w", err))
	}

	return model.RefreshPrincipal{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Handle:    u.Handle,
		SessionID: sess.ID,
		TokenHash: hash,
	}, nil
}

// Refresh issues a new token pair and rotates the refresh token into the
// same session row. The update only matches while the row still holds the
// presented token, so of two concurrent refreshes with one token exactly
// one succeeds.
func (s *AuthService) Refresh(ctx context.Context, rp model.RefreshPrincipal, client ClientInfo) (TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(rp.ID)
	if err != nil {
		return TokenPair{}, apperr.Internal("refresh failed", fmt.Errorf("issue access token: %w", err))
	}
	refresh, err := s.tokens.IssueRefreshToken(rp.ID)
	if err != nil {
		return TokenPair{}, apperr.Internal("refresh failed", fmt.Errorf("issue refresh token: %w", err))
	}

	now := s.clock.now()
	err = s.sessions.Rotate(ctx, rp.SessionID, rp.TokenHash, utils.HashToken(refresh.Token),
		refresh.ExpiresAt.UTC().Truncate(time.Second), now)
	if errors.Is(err, repository.ErrStaleSession) {
		s.outcome("refresh", "stale_session")
		s.logStale(ctx, rp.SessionID)
		return TokenPair{}, apperr.Unauthorized(msgUnauthorized)
	}
	if err != nil {
		return TokenPair{}, apperr.Internal("refresh failed", fmt.Errorf("rotate session: %w", err))
	}

	s.outcome("refresh", "success")
	s.publish(ctx, queue.EventSessionRotated, model.User{ID: rp.ID, Handle: rp.Handle}, rp.SessionID, client)
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// logStale records why a rotation lost. A live row means another request
// already rotated the presented token, which is either a client race or a
// replayed token.
func (s *AuthService) logStale(ctx context.Context, sessionID string) {
	log := logging.FromContext(ctx).With(zap.String("session_id", sessionID))
	sess, err := s.sessions.GetByID(ctx, sessionID)
	switch {
	case err != nil:
		log.Warn("stale refresh on unreadable session", zap.Error(err))
	case sess.IsRevoked:
		log.Info("refresh on revoked session")
	default:
		log.Warn("refresh token already rotated", zap.String("user_id", sess.UserID))
	}
}

// Logout revokes every live session of the user, not only the caller's.
func (s *AuthService) Logout(ctx context.Context, userID string, client ClientInfo) error {
	n, err := s.sessions.RevokeAllForUser(ctx, userID)
	if err != nil {
		return apperr.Internal("logout failed", fmt.Errorf("revoke sessions: %w", err))
	}
	logging.FromContext(ctx).Info("sessions revoked", zap.String("user_id", userID), zap.Int64("count", n))
	s.outcome("logout", "success")
	s.publish(ctx, queue.EventLoggedOut, model.User{ID: userID}, "", client)
	return nil
}

// CurrentUser returns the profile view of the access token's subject.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (model.CurrentUser, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && u.IsDeleted) {
		return model.CurrentUser{}, apperr.Unauthorized(msgUnauthorized)
	}
	if err != nil {
		return model.CurrentUser{}, apperr.Internal("load user failed", err)
	}
	return u.Current(), nil
}

// openSession mints a token pair and stores the hash of the refresh token
// in a new session row.
func (s *AuthService) openSession(ctx context.Context, sessions *repository.SessionRepo, userID string,
	client ClientInfo, now time.Time) (TokenPair, string, error) {
	access, err := s.tokens.IssueAccessToken(userID)
	if err != nil {
		return TokenPair{}, "", fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(userID)
	if err != nil {
		return TokenPair{}, "", fmt.Errorf("issue refresh token: %w", err)
	}
	sess := model.AuthSession{
		ID:               uuid.NewString(),
		UserID:           userID,
		RefreshTokenHash: utils.HashToken(refresh.Token),
		ExpiresAt:        refresh.ExpiresAt.UTC().Truncate(time.Second),
		UserAgent:        client.UserAgent,
		IP:               client.IP,
		CreatedAt:        now,
	}
	if err := sessions.Create(ctx, &sess); err != nil {
		return TokenPair{}, "", fmt.Errorf("create session: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, sess.ID, nil
}

func (s *AuthService) outcome(op, outcome string) {
	if s.metrics != nil {
		s.metrics.AuthOutcome(op, outcome)
	}
}

// publish sends an auth event without failing the request; a broker
// outage only costs audit lines.
func (s *AuthService) publish(ctx context.Context, typ string, u model.User, sessionID string, client ClientInfo) {
	if s.events == nil {
		return
	}
	ev := queue.NewAuthEvent(typ, u.ID, s.clock.now())
	ev.Handle, ev.SessionID = u.Handle, sessionID
	ev.IP, ev.UserAgent = client.IP, client.UserAgent

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(pctx, ev); err != nil {
		logging.FromContext(ctx).Warn("auth event not published", zap.String("type", typ), zap.Error(err))
	}
}
