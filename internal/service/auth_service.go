package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medwatch-server/internal/domain"
	"medwatch-server/internal/repository"
	"medwatch-server/internal/thingsboard"
	"medwatch-server/internal/tokenstore"
	"medwatch-server/pkg/hash"
	"medwatch-server/pkg/jwt"

	"go.uber.org/zap"
)

type AuthService struct {
	userRepo          repository.UserRepository
	tokens            *tokenstore.Store
	platform          Platform
	jwtSecret         string
	jwtExpiration     time.Duration
	refreshExpiration time.Duration
	logger            *zap.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	tokens *tokenstore.Store,
	platform Platform,
	jwtSecret string,
	jwtExp, refreshExp time.Duration,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:          userRepo,
		tokens:            tokens,
		platform:          platform,
		jwtSecret:         jwtSecret,
		jwtExpiration:     jwtExp,
		refreshExpiration: refreshExp,
		logger:            logger,
	}
}

// profileForRole resolves the platform credential profile once at login time.
func profileForRole(role string) thingsboard.CredentialProfile {
	if role == domain.RoleAdmin {
		return thingsboard.ProfileAdmin
	}
	return thingsboard.ProfileTenant
}

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	s.tokens.ClearExpired()

	username := strings.ToLower(strings.TrimSpace(req.Username))

	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := hash.Compare(user.Password, req.Password); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}

	accessToken, err := jwt.GenerateToken(user.ID, user.Role, s.jwtExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, tokenID, err := jwt.GenerateRefreshToken(user.ID, user.Role, s.refreshExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	refreshExpiresAt := time.Now().Add(s.refreshExpiration)
	s.tokens.SaveRefreshToken(tokenID, user.ID, refreshExpiresAt)

	// Derive a delegated platform token. A platform outage degrades telemetry
	// features but must not block portal login.
	if platformToken, err := s.platform.Login(ctx, profileForRole(user.Role)); err != nil {
		s.logger.Warn("thingsboard login failed", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		s.tokens.SavePlatformToken(user.ID, platformToken, refreshExpiresAt)
		s.logger.Info("thingsboard login successful", zap.String("user_id", user.ID))
	}

	s.logger.Info("login successful", zap.String("user_id", user.ID))

	return &domain.LoginResponse{
		User: &domain.UserResponse{
			ID:       user.ID,
			Username: user.Username,
			Role:     user.Role,
		},
		AccessToken:           accessToken,
		AccessTokenExpiresIn:  int64(s.jwtExpiration.Seconds()),
		RefreshToken:          refreshToken,
		RefreshTokenExpiresIn: int64(s.refreshExpiration.Seconds()),
	}, nil
}

func (s *AuthService) Refresh(ctx context.Context, req *domain.RefreshTokenRequest) (*domain.LoginResponse, error) {
	s.tokens.ClearExpired()

	claims, err := jwt.ValidateToken(req.RefreshToken, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", ErrUnauthorized)
	}

	if _, ok := s.tokens.FindRefreshToken(claims.TokenID); !ok {
		return nil, fmt.Errorf("refresh token is revoked or expired: %w", ErrUnauthorized)
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		s.tokens.DeleteRefreshToken(claims.TokenID)
		return nil, fmt.Errorf("account is no longer available: %w", ErrUnauthorized)
	}

	// Rotate: the presented refresh token is single-use.
	s.tokens.DeleteRefreshToken(claims.TokenID)

	accessToken, err := jwt.GenerateToken(user.ID, user.Role, s.jwtExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, tokenID, err := jwt.GenerateRefreshToken(user.ID, user.Role, s.refreshExpiration, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	s.tokens.SaveRefreshToken(tokenID, user.ID, time.Now().Add(s.refreshExpiration))

	s.logger.Info("token refreshed", zap.String("user_id", user.ID))

	return &domain.LoginResponse{
		User: &domain.UserResponse{
			ID:       user.ID,
			Username: user.Username,
			Role:     user.Role,
		},
		AccessToken:           accessToken,
		AccessTokenExpiresIn:  int64(s.jwtExpiration.Seconds()),
		RefreshToken:          refreshToken,
		RefreshTokenExpiresIn: int64(s.refreshExpiration.Seconds()),
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, userID, refreshToken string) {
	s.tokens.ClearExpired()

	if refreshToken != "" {
		if claims, err := jwt.ValidateToken(refreshToken, s.jwtSecret); err == nil {
			s.tokens.DeleteRefreshToken(claims.TokenID)
		} else {
			s.logger.Warn("failed to decode refresh token during logout", zap.Error(err))
		}
	}

	if userID != "" {
		s.tokens.RevokeUserTokens(userID)
		s.tokens.DeletePlatformToken(userID)
	}

	s.logger.Info("logged out", zap.String("user_id", userID))
}

func (s *AuthService) ChangePassword(ctx context.Context, req *domain.ChangePasswordRequest) error {
	username := strings.ToLower(strings.TrimSpace(req.Username))

	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if err := hash.Compare(user.Password, req.OldPassword); err != nil {
		return fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}

	hashed, err := hash.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(user.ID, hashed); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	// New password invalidates every outstanding session.
	s.tokens.RevokeUserTokens(user.ID)
	s.tokens.DeletePlatformToken(user.ID)

	s.logger.Info("password changed", zap.String("user_id", user.ID))
	return nil
}
