package service

import (
	"context"
	"testing"
	"time"

	"h2ala_backend/internal/config"
	"h2ala_backend/internal/model"
	"h2ala_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuth(f *fixture) *AuthService {
	return NewAuthService(f.state, &config.Config{JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}})
}

func TestRegisterStudentThenLogin(t *testing.T) {
	f := newFixture(t)
	auth := newAuth(f)
	ctx := context.Background()

	st, err := auth.RegisterStudent(ctx, "Priya", "priya@example.com", "s3cret!")
	require.NoError(t, err)
	assert.Empty(t, st.Password)
	require.Len(t, st.Modules, 2)
	assert.Equal(t, "m1", st.Modules[0].ID)
	assert.Equal(t, model.ModuleInProgress, st.Modules[0].Status)
	assert.Equal(t, model.ModuleLocked, st.Modules[1].Status)
	assert.Equal(t, model.VoiceKore, st.PreferredVoice)

	res, err := auth.Login(ctx, "PRIYA@example.com", "s3cret!", model.RoleStudent)
	require.NoError(t, err)
	claims, err := util.ParseJWT(res.Token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, st.ID, claims.UserID)
	assert.Equal(t, model.RoleStudent, claims.Role)

	_, err = auth.Login(ctx, "priya@example.com", "wrong", model.RoleStudent)
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	_, err = auth.Login(ctx, "priya@example.com", "s3cret!", model.RoleTeacher)
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	_, err := newAuth(f).RegisterStudent(context.Background(), "Alice 2", "alice@example.com", "password")
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	students, _ := f.identity.Students()
	assert.Len(t, students, 4)
}

func TestRegisterTeacherIsClosed(t *testing.T) {
	f := newFixture(t)
	_, err := newAuth(f).RegisterTeacher(context.Background(), "T", "t@example.com", "password", "Math")
	assert.ErrorIs(t, err, util.ErrTeacherRegistrationClosed)
}

func TestSeedAccountsCanLogIn(t *testing.T) {
	f := newFixture(t)
	auth := newAuth(f)
	ctx := context.Background()

	res, err := auth.Login(ctx, "teacher@school.edu", model.SeedPassword, model.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, model.RoleTeacher, res.Role)

	_, err = auth.Login(ctx, "marcus@example.com", model.SeedPassword, model.RoleStudent)
	require.NoError(t, err)
}
