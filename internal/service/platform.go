package service

import (
	"context"
	"fmt"
	"time"

	"medwatch-server/internal/thingsboard"
	"medwatch-server/internal/tokenstore"

	"go.uber.org/zap"
)

// Platform is the slice of the ThingsBoard client the services depend on.
type Platform interface {
	Login(ctx context.Context, profile thingsboard.CredentialProfile) (string, error)
	ListDevices(ctx context.Context, token string) ([]thingsboard.Device, error)
	GetAttributes(ctx context.Context, deviceID, token string, keys []string) ([]thingsboard.Attribute, error)
	GetTimeseries(ctx context.Context, deviceID, token string, keys []string) (map[string][]thingsboard.TimeseriesValue, error)
	DeleteDevice(ctx context.Context, deviceID, token string) error
}

// platformTokenTTL bounds a cached tenant token obtained outside the login
// flow.
const platformTokenTTL = 7 * 24 * time.Hour

// platformToken returns the acting user's cached platform token, falling back
// to a fresh tenant login.
func platformToken(ctx context.Context, tokens *tokenstore.Store, platform Platform, logger *zap.Logger, userID string) (string, error) {
	if token, ok := tokens.FindPlatformToken(userID); ok {
		return token, nil
	}

	logger.Info("no cached platform token, attempting tenant login", zap.String("user_id", userID))

	token, err := platform.Login(ctx, thingsboard.ProfileTenant)
	if err != nil {
		return "", fmt.Errorf("platform connection not available: %w: %w", ErrServiceUnavailable, err)
	}

	tokens.SavePlatformToken(userID, token, time.Now().Add(platformTokenTTL))
	return token, nil
}
