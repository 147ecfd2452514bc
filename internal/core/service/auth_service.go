package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/rbac-system/internal/core/domain"
	"github.com/99minutos/rbac-system/internal/core/ports"
)

// AuthService implements registration, login and session lifecycle.
type AuthService struct {
	users     ports.UserRepository
	roles     ports.RoleRepository
	sessions  ports.SessionStore
	sink      ports.AuditSink
	jwtSecret string
	tokenTTL  time.Duration
	log       zerolog.Logger
}

func NewAuthService(
	repos ports.Repositories,
	sessions ports.SessionStore,
	sink ports.AuditSink,
	jwtSecret string,
	tokenTTL time.Duration,
	log zerolog.Logger,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		users:     repos.Users,
		roles:     repos.Roles,
		sessions:  sessions,
		sink:      sink,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		log:       log,
	}
}

// Register creates an active user holding every default role.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, domain.Invalid("username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: string(hash),
		Status:       domain.UserActive,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	defaults, err := s.roles.FindDefaults(ctx)
	if err != nil {
		return nil, fmt.Errorf("register: default roles: %w", err)
	}
	assignments := make([]domain.UserRole, 0, len(defaults))
	for _, r := range defaults {
		assignments = append(assignments, domain.UserRole{UserID: user.ID, RoleID: r.ID, CreatedAt: now})
	}
	if err := s.users.Create(ctx, user, assignments); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	actor := in.Actor
	if actor.ID == "" {
		actor.ID, actor.Name = user.ID, user.Username
	}
	auditLog := domain.NewAuditLog(actor, domain.ActionUserCreated, domain.ResourceUser, user.ID)
	auditLog.After = user.Snapshot()
	record(s.sink, auditLog, nil)

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.LoginResult, error) {
	if in.Username == "" || in.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.loginFailed(in, "", domain.ErrInvalidCredentials)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)) != nil {
		s.loginFailed(in, user.ID, domain.ErrInvalidCredentials)
		return nil, domain.ErrInvalidCredentials
	}
	if !user.CanAct() {
		s.loginFailed(in, user.ID, domain.ErrUserInactive)
		return nil, domain.ErrUserInactive
	}

	result, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	actor := in.Actor
	actor.ID, actor.Name = user.ID, user.Username
	record(s.sink, domain.NewAuditLog(actor, domain.ActionLogin, domain.ResourceSession, result.Session.ID), nil)

	return result, nil
}

func (s *AuthService) loginFailed(in ports.LoginInput, userID string, cause error) {
	actor := in.Actor
	actor.ID, actor.Name = userID, in.Username
	record(s.sink, domain.NewAuditLog(actor, domain.ActionLoginFailed, domain.ResourceSession, ""), cause)
}

func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	claims := jwt.MapClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil || !tkn.Valid {
		return nil, domain.ErrInvalidToken
	}

	jti, _ := claims["jti"].(string)
	sub, _ := claims["sub"].(string)
	if jti == "" || sub == "" {
		return nil, domain.ErrInvalidToken
	}

	session, err := s.sessions.Find(ctx, jti)
	if err != nil {
		return nil, err
	}
	if session.UserID != sub {
		return nil, domain.ErrInvalidToken
	}
	return session, nil
}

func (s *AuthService) Refresh(ctx context.Context, sessionID string) (*ports.LoginResult, error) {
	old, err := s.sessions.Find(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, old.UserID)
	if err != nil {
		return nil, err
	}
	if !user.CanAct() {
		return nil, domain.ErrUserInactive
	}

	result, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Delete(ctx, old.ID); err != nil {
		s.log.Warn().Err(err).Str("session_id", old.ID).Msg("failed to revoke rotated session")
	}
	return result, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string, actor domain.Actor) error {
	err := s.sessions.Delete(ctx, sessionID)
	record(s.sink, domain.NewAuditLog(actor, domain.ActionLogout, domain.ResourceSession, sessionID), err)
	return err
}

func (s *AuthService) RevokeUser(ctx context.Context, userID string) error {
	return s.sessions.DeleteUser(ctx, userID)
}

// issue creates a session and the token that points at it.
func (s *AuthService) issue(ctx context.Context, user *domain.User) (*ports.LoginResult, error) {
	now := time.Now().UTC()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.tokenTTL),
	}

	token, err := s.generateToken(session)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, session, s.tokenTTL); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	return &ports.LoginResult{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		Session:   session,
		User:      user,
	}, nil
}

func (s *AuthService) generateToken(session *domain.Session) (string, error) {
	claims := jwt.MapClaims{
		"sub":      session.UserID,
		"username": session.Username,
		"jti":      session.ID,
		"iat":      session.IssuedAt.Unix(),
		"exp":      session.ExpiresAt.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}
