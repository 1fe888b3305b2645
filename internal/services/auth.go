package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/matvulcan/vulcan-backend/internal/logger"
	pkgerrors "github.com/matvulcan/vulcan-backend/internal/pkg/errors"
	"github.com/matvulcan/vulcan-backend/internal/repos"
	"github.com/matvulcan/vulcan-backend/internal/requestdata"
	"github.com/matvulcan/vulcan-backend/internal/types"
	"github.com/matvulcan/vulcan-backend/internal/utils"
)

const (
	tokenTypeAccess    = "access"
	tokenTypeChallenge = "2fa"

	challengeTTL = 5 * time.Minute
)

type JWTClaims struct {
	Role      string `json:"role,omitempty"`
	TokenType string `json:"typ,omitempty"`
	jwt.RegisteredClaims
}

// LoginResult either carries real tokens or a short-lived challenge token
// that the two-factor verify operation exchanges for real ones.
type LoginResult struct {
	AccessToken       string   `json:"access_token,omitempty"`
	RefreshToken      string   `json:"refresh_token,omitempty"`
	TwoFactorRequired bool     `json:"two_factor_required"`
	ChallengeToken    string   `json:"challenge_token,omitempty"`
	Methods           []string `json:"methods,omitempty"`
}

type AuthService interface {
	RegisterUser(ctx context.Context, user *types.User) error
	LoginUser(ctx context.Context, email, password string) (*LoginResult, *types.User, error)
	// IssueTokens mints an access/refresh pair, replacing any stored refresh
	// token for the user. The two-factor verify path calls it after the code
	// checks out.
	IssueTokens(ctx context.Context, user *types.User) (string, string, error)
	RefreshUser(ctx context.Context) (string, string, error)
	LogoutUser(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	// ParseChallengeToken validates a pending two-factor challenge token and
	// returns the user it belongs to.
	ParseChallengeToken(tokenString string) (uuid.UUID, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	avatarService AvatarService
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	avatarService AvatarService,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	serviceLog := log.With("service", "AuthService")
	return &authService{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		avatarService: avatarService,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (as *authService) RegisterUser(ctx context.Context, user *types.User) error {
	user.Email = utils.NormalizeEmail(user.Email)
	if err := utils.ValidateEmail(user.Email); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), pkgerrors.ErrInvalidArgument)
	}
	if err := utils.ValidatePassword(user.Password); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), pkgerrors.ErrInvalidArgument)
	}
	if user.FirstName == "" || user.LastName == "" {
		return fmt.Errorf("first and last name required: %w", pkgerrors.ErrInvalidArgument)
	}
	if user.Phone != "" {
		user.Phone = utils.NormalizePhone(user.Phone)
	}

	exists, err := as.userRepo.EmailExists(ctx, nil, user.Email)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return fmt.Errorf("email already registered: %w", pkgerrors.ErrConflict)
	}

	hashed, err := utils.HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.Password = hashed

	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user.ID = uuid.New()
		if err := as.avatarService.CreateUserAvatar(ctx, tx, user); err != nil {
			return fmt.Errorf("failed to create user avatar: %w", err)
		}
		if _, err := as.userRepo.Create(ctx, tx, []*types.User{user}); err != nil {
			if repos.IsUniqueViolation(err) {
				return fmt.Errorf("email already registered: %w", pkgerrors.ErrConflict)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (*LoginResult, *types.User, error) {
	email = utils.NormalizeEmail(email)
	user, err := as.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		if repos.IsNotFound(err) {
			return nil, nil, fmt.Errorf("invalid email or password: %w", pkgerrors.ErrUnauthorized)
		}
		return nil, nil, fmt.Errorf("error retrieving user by email: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil, fmt.Errorf("invalid email or password: %w", pkgerrors.ErrUnauthorized)
	}
	if user.Status == types.UserStatusSuspended {
		return nil, nil, fmt.Errorf("account is suspended: %w", pkgerrors.ErrForbidden)
	}

	if user.TotpEnabled || user.SMSTwoFactor {
		challenge, cErr := as.generateChallengeToken(user)
		if cErr != nil {
			return nil, nil, cErr
		}
		methods := []string{}
		if user.TotpEnabled {
			methods = append(methods, "totp")
		}
		if user.SMSTwoFactor {
			methods = append(methods, "sms")
		}
		return &LoginResult{
			TwoFactorRequired: true,
			ChallengeToken:    challenge,
			Methods:           methods,
		}, user, nil
	}

	access, refresh, err := as.IssueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return &LoginResult{AccessToken: access, RefreshToken: refresh}, user, nil
}

func (as *authService) IssueTokens(ctx context.Context, user *types.User) (string, string, error) {
	var accessToken string
	var refreshToken string
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := as.userTokenRepo.DeleteByUserID(ctx, tx, user.ID); err != nil {
			return fmt.Errorf("failed to clear prior tokens: %w", err)
		}
		tok, genErr := as.generateAccessToken(user)
		if genErr != nil {
			return fmt.Errorf("generate access token error: %w", genErr)
		}
		accessToken = tok
		refreshToken = uuid.New().String()
		userToken := types.UserToken{
			ID:           uuid.New(),
			UserID:       user.ID,
			RefreshToken: refreshToken,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}
		if _, err := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{&userToken}); err != nil {
			return fmt.Errorf("create user token error: %w", err)
		}
		now := time.Now()
		return as.userRepo.UpdateFields(ctx, tx, user.ID, map[string]any{
			"last_sign_in_at": now,
			"updated_at":      now,
		})
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func (as *authService) RefreshUser(ctx context.Context) (string, string, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		return "", "", fmt.Errorf("no request data found in context: %w", pkgerrors.ErrUnauthorized)
	}
	if rd.RefreshToken == "" {
		return "", "", fmt.Errorf("refresh token not provided: %w", pkgerrors.ErrUnauthorized)
	}

	var accessToken string
	var newRefreshToken string
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, ftErr := as.userTokenRepo.GetByRefreshToken(ctx, tx, rd.RefreshToken)
		if ftErr != nil {
			if repos.IsNotFound(ftErr) {
				return fmt.Errorf("unknown refresh token: %w", pkgerrors.ErrUnauthorized)
			}
			return fmt.Errorf("error fetching refresh token: %w", ftErr)
		}
		if existing.ExpiresAt.Before(time.Now()) {
			if dErr := as.userTokenRepo.DeleteByUserID(ctx, tx, existing.UserID); dErr != nil {
				return fmt.Errorf("refresh token expired, error deleting: %w", dErr)
			}
			return fmt.Errorf("refresh token expired: %w", pkgerrors.ErrUnauthorized)
		}
		user, uErr := as.userRepo.GetByID(ctx, tx, existing.UserID)
		if uErr != nil {
			return fmt.Errorf("failed to load user for refresh: %w", uErr)
		}
		if user.Status == types.UserStatusSuspended {
			return fmt.Errorf("account is suspended: %w", pkgerrors.ErrForbidden)
		}
		tok, genErr := as.generateAccessToken(user)
		if genErr != nil {
			return fmt.Errorf("failed to generate new access token: %w", genErr)
		}
		accessToken = tok
		newRefreshToken = uuid.New().String()
		newUserToken := types.UserToken{
			ID:           uuid.New(),
			UserID:       user.ID,
			RefreshToken: newRefreshToken,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}
		if dErr := as.userTokenRepo.DeleteByUserID(ctx, tx, user.ID); dErr != nil {
			return fmt.Errorf("failed to remove old refresh token: %w", dErr)
		}
		if _, cErr := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{&newUserToken}); cErr != nil {
			return fmt.Errorf("failed to create new user token: %w", cErr)
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, newRefreshToken, nil
}

func (as *authService) LogoutUser(ctx context.Context) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return fmt.Errorf("no request data found in context: %w", pkgerrors.ErrUnauthorized)
	}
	return as.userTokenRepo.DeleteByUserID(ctx, nil, rd.UserID)
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	claims := JWTClaims{
		Role:      user.Role,
		TokenType: tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) generateChallengeToken(user *types.User) (string, error) {
	claims := JWTClaims{
		TokenType: tokenTypeChallenge,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(challengeTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) parseToken(tokenString string) (*JWTClaims, error) {
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", pkgerrors.ErrUnauthorized)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return nil, fmt.Errorf("invalid or expired token: %w", pkgerrors.ErrUnauthorized)
	}
	return claims, nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	claims, err := as.parseToken(tokenString)
	if err != nil {
		return ctx, err
	}
	if claims.TokenType != tokenTypeAccess {
		return ctx, fmt.Errorf("token is not an access token: %w", pkgerrors.ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid user id in token: %w", pkgerrors.ErrUnauthorized)
	}
	rd := &requestdata.RequestData{
		TokenString: tokenString,
		UserID:      userID,
		Role:        claims.Role,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) ParseChallengeToken(tokenString string) (uuid.UUID, error) {
	claims, err := as.parseToken(tokenString)
	if err != nil {
		return uuid.Nil, err
	}
	if claims.TokenType != tokenTypeChallenge {
		return uuid.Nil, fmt.Errorf("token is not a challenge token: %w", pkgerrors.ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id in token: %w", pkgerrors.ErrUnauthorized)
	}
	return userID, nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
