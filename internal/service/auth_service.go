package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/student-hub-api/internal/dto"
	"github.com/noah-isme/student-hub-api/internal/models"
	"github.com/noah-isme/student-hub-api/internal/repository"
	appErrors "github.com/noah-isme/student-hub-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	Secret            string
	Algorithm         string
	AccessTokenExpiry time.Duration
}

// AuthService registers principals, issues access tokens and resolves them back to principals.
type AuthService struct {
	repo      authUserRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	method    jwt.SigningMethod
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance. Unknown algorithms fall back to HS256.
// cache may be nil; when set, writes that change student counts or departments drop the
// cached analytics summary.
func NewAuthService(repo authUserRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 30 * time.Minute
	}
	method := signingMethod(config.Algorithm)
	if method == nil {
		logger.Warn("unsupported token algorithm, using HS256", zap.String("algorithm", config.Algorithm))
		method = jwt.SigningMethodHS256
	}
	return &AuthService{repo: repo, cache: cache, validator: validate, logger: logger, config: config, method: method, now: time.Now}
}

func signingMethod(alg string) jwt.SigningMethod {
	switch strings.ToUpper(alg) {
	case "", "HS256":
		return jwt.SigningMethodHS256
	case "HS384":
		return jwt.SigningMethodHS384
	case "HS512":
		return jwt.SigningMethodHS512
	}
	return nil
}

// Register creates an active principal. Duplicate emails fail with CONFLICT.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Department:   optionalString(req.Department),
		Year:         optionalString(req.Year),
		Active:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	invalidateAnalytics(ctx, s.cache)
	s.audit(ctx, user.ID, models.AuditActionRegister, map[string]interface{}{"role": user.Role})
	s.logger.Info("principal registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Authenticate verifies credentials and issues a bearer token.
func (s *AuthService) Authenticate(ctx context.Context, req dto.TokenRequest) (*models.TokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	ok, legacy := VerifyPassword(user.PasswordHash, req.Password)
	if !ok {
		return nil, appErrors.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "inactive account")
	}
	if legacy {
		s.upgradeHash(ctx, user, req.Password)
	}

	token, _, err := s.IssueToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}

	return &models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
	}, nil
}

// IssueToken signs a token whose subject is the principal's email.
func (s *AuthService) IssueToken(user *models.User) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken verifies signature and expiry and returns the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.Secret), nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, appErrors.ErrUnauthorized.Message)
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, appErrors.ErrUnauthorized
	}
	return claims, nil
}

// Resolve maps a bearer token to a live, active principal.
func (s *AuthService) Resolve(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnauthorized
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load principal")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "inactive account")
	}
	return user, nil
}

// RequireRole resolves the token and demands an exact role match.
func (s *AuthService) RequireRole(ctx context.Context, tokenString string, role models.UserRole) (*models.User, error) {
	user, err := s.Resolve(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	if err := CheckRole(user, role); err != nil {
		return nil, err
	}
	return user, nil
}

// CheckRole fails with FORBIDDEN unless principal holds exactly role.
func CheckRole(principal *models.User, role models.UserRole) error {
	if principal == nil {
		return appErrors.ErrUnauthorized
	}
	if principal.Role != role {
		return appErrors.ErrForbidden
	}
	return nil
}

// UpdateProfile applies the allow-listed fields present in req.
func (s *AuthService) UpdateProfile(ctx context.Context, principal *models.User, req dto.UpdateProfileRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	update := models.ProfileUpdate{Department: trimmed(req.Department), Year: trimmed(req.Year)}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "full_name must not be blank")
		}
		update.FullName = &name
	}
	if update.FullName == nil && update.Department == nil && update.Year == nil {
		return principal, nil
	}

	user, err := s.repo.UpdateProfile(ctx, principal.ID, update)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile")
	}

	if update.Department != nil {
		invalidateAnalytics(ctx, s.cache)
	}
	s.audit(ctx, user.ID, models.AuditActionProfileUpdate, map[string]interface{}{
		"full_name":  user.FullName,
		"department": user.Department,
		"year":       user.Year,
	})
	return user, nil
}

// ChangePassword replaces the principal's password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, principal *models.User, req dto.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid change password payload")
	}

	if ok, _ := VerifyPassword(principal.PasswordHash, req.OldPassword); !ok {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "old password does not match")
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, principal.ID, hash, s.now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	s.audit(ctx, principal.ID, models.AuditActionPasswordChange, map[string]interface{}{"status": "changed"})
	return nil
}

func (s *AuthService) upgradeHash(ctx context.Context, user *models.User, plain string) {
	hash, err := HashPassword(plain)
	if err != nil {
		s.logger.Warn("failed to rehash legacy password", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash, s.now().UTC()); err != nil {
		s.logger.Warn("failed to store upgraded password hash", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	user.PasswordHash = hash
}

func (s *AuthService) audit(ctx context.Context, userID, action string, values map[string]interface{}) {
	body, err := json.Marshal(values)
	if err != nil {
		body = []byte("{}")
	}
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "auth",
		ResourceID: &userID,
		NewValues:  string(body),
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

// trimmed keeps an explicit empty string so callers can clear a field.
func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func optionalString(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
