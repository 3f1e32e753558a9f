package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/skillcert/skillcert-api/internal/auth"
	"github.com/skillcert/skillcert-api/internal/models"
	"github.com/skillcert/skillcert-api/internal/repository"
)

func setupSeedService(t *testing.T, enabled bool, token string) (SeedService, *gorm.DB) {
	t.Helper()

	db := testDB(t)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	svc := NewSeedService(repository.NewUserRepository(db), enabled, token, zerolog.Nop())
	return svc, db
}

func TestSeedUsersCreatesVerifiedDemoAccounts(t *testing.T) {
	svc, db := setupSeedService(t, true, "seed-token")

	created, err := svc.SeedUsers(context.Background(), "seed-token")
	require.NoError(t, err)
	require.Equal(t, 3, created)

	var users []models.User
	require.NoError(t, db.Order("email").Find(&users).Error)
	require.Len(t, users, 3)

	byEmail := make(map[string]models.User, len(users))
	for _, user := range users {
		require.True(t, user.IsVerified)
		byEmail[user.Email] = user
	}

	admin := byEmail["admin@testschool.com"]
	require.Equal(t, models.RoleAdmin, admin.Role)
	require.True(t, auth.CheckPassword("admin123", admin.PasswordHash))

	student := byEmail["student@testschool.com"]
	require.Equal(t, models.RoleStudent, student.Role)

	supervisor := byEmail["supervisor@testschool.com"]
	require.Equal(t, models.RoleSupervisor, supervisor.Role)
}

func TestSeedUsersIsIdempotent(t *testing.T) {
	svc, db := setupSeedService(t, true, "seed-token")
	ctx := context.Background()

	_, err := svc.SeedUsers(ctx, "seed-token")
	require.NoError(t, err)

	created, err := svc.SeedUsers(ctx, "seed-token")
	require.NoError(t, err)
	require.Zero(t, created)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	require.EqualValues(t, 3, count)
}

func TestSeedUsersGuards(t *testing.T) {
	svc, _ := setupSeedService(t, false, "seed-token")
	_, err := svc.SeedUsers(context.Background(), "seed-token")
	require.ErrorIs(t, err, ErrSeedDisabled)

	svc, _ = setupSeedService(t, true, "seed-token")
	_, err = svc.SeedUsers(context.Background(), "wrong-token")
	require.ErrorIs(t, err, ErrSeedUnauthorized)
}
