package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	iauth "github.com/cloudconnect/cloudconnect/internal/auth"
	testutil "github.com/cloudconnect/cloudconnect/internal/database/testutil"
	"github.com/cloudconnect/cloudconnect/internal/models"
)

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "secret"})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{
		RefreshTokenTTL: time.Hour,
		Clock:           func() time.Time { return now },
	})
	require.NoError(t, err)

	user := &models.User{Username: "frank", Email: "frank@example.com", Password: "hash", IsActive: true}
	require.NoError(t, db.Create(user).Error)

	_, _, err = sessions.CreateSession(user.ID, iauth.SessionMetadata{})
	require.NoError(t, err)

	// Advance past the refresh TTL, then create a still-live session.
	now = now.Add(2 * time.Hour)
	_, _, err = sessions.CreateSession(user.ID, iauth.SessionMetadata{})
	require.NoError(t, err)

	cleaner := NewCleaner(sessions, WithNow(func() time.Time { return now }))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.Session{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestCleanerWithoutSessionsIsNoop(t *testing.T) {
	cleaner := NewCleaner(nil)
	require.NoError(t, cleaner.Start())
	require.NoError(t, cleaner.RunOnce(context.Background()))
	cleaner.Stop()
}

func TestCleanerStartRejectsBadSchedule(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "secret"})
	require.NoError(t, err)
	sessions, err := iauth.NewSessionService(db, jwtSvc, iauth.SessionConfig{})
	require.NoError(t, err)

	cleaner := NewCleaner(sessions, WithSessionSchedule("not-a-spec"))
	require.Error(t, cleaner.Start())
}
