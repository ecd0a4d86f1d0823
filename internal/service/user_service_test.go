package service

import (
	"context"
	"testing"

	"backend/internal/apperror"
	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeTokenRepo struct {
	tokens map[string]*model.RefreshToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: map[string]*model.RefreshToken{}}
}

func (r *fakeTokenRepo) Create(_ context.Context, token *model.RefreshToken) error {
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	r.tokens[token.Token] = token
	return nil
}

func (r *fakeTokenRepo) GetValid(_ context.Context, token string) (*model.RefreshToken, error) {
	stored, ok := r.tokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return stored, nil
}

func (r *fakeTokenRepo) Revoke(_ context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

func (r *fakeTokenRepo) RevokeAllForUser(_ context.Context, userID uuid.UUID) error {
	for t, stored := range r.tokens {
		if stored.UserID == userID {
			delete(r.tokens, t)
		}
	}
	return nil
}

type userFixture struct {
	svc    UserService
	users  *fakeUserRepo
	tokens *fakeTokenRepo
	leaves *fakeLeaveRepo
	audit  *fakeAuditRepo
}

func newUserFixture() *userFixture {
	f := &userFixture{
		users:  newFakeUserRepo(),
		tokens: newFakeTokenRepo(),
		leaves: newFakeLeaveRepo(),
		audit:  &fakeAuditRepo{},
	}
	f.svc = NewUserService(f.users, f.tokens, f.leaves, f.audit, fakeTxManager{}, []byte("test-secret"), zap.NewNop())
	return f
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture()

	user, err := f.svc.Register(ctx, RegisterRequest{
		Name:       "Asha",
		Email:      "asha@example.com",
		Password:   "correct horse battery",
		Department: "Engineering",
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.RoleEmployee), user.Role)
	assert.Equal(t, "12.00", user.BalanceSL)

	t.Run("login with right password issues tokens", func(t *testing.T) {
		auth, err := f.svc.Login(ctx, LoginRequest{Email: "asha@example.com", Password: "correct horse battery"})
		require.NoError(t, err)
		assert.NotEmpty(t, auth.AccessToken)
		assert.NotEmpty(t, auth.RefreshToken)
		assert.Equal(t, user.ID, auth.User.ID)
	})

	t.Run("wrong password fails", func(t *testing.T) {
		_, err := f.svc.Login(ctx, LoginRequest{Email: "asha@example.com", Password: "nope"})
		require.Error(t, err)
	})

	t.Run("refresh rotates the token", func(t *testing.T) {
		auth, err := f.svc.Login(ctx, LoginRequest{Email: "asha@example.com", Password: "correct horse battery"})
		require.NoError(t, err)

		rotated, err := f.svc.Refresh(ctx, RefreshRequest{RefreshToken: auth.RefreshToken})
		require.NoError(t, err)
		assert.NotEqual(t, auth.RefreshToken, rotated.RefreshToken)

		_, err = f.svc.Refresh(ctx, RefreshRequest{RefreshToken: auth.RefreshToken})
		require.Error(t, err, "a used refresh token is burned")
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		_, err := f.svc.Register(ctx, RegisterRequest{Name: "X", Email: "x@example.com", Password: "longenough", Role: "superuser"})
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})
}

func TestAdminUserManagement(t *testing.T) {
	ctx := context.Background()
	f := newUserFixture()

	admin := &model.User{Name: "Root", Email: "root@example.com", Role: model.RoleAdmin, IsActive: true}
	target := &model.User{Name: "Asha", Email: "asha@example.com", Role: model.RoleEmployee, Department: "Engineering", IsActive: true}
	f.users.add(admin)
	f.users.add(target)
	adminActor := Actor{ID: admin.ID, Role: model.RoleAdmin}

	t.Run("fetches a user by id", func(t *testing.T) {
		got, err := f.svc.Get(ctx, adminActor, target.ID.String())
		require.NoError(t, err)
		assert.Equal(t, "asha@example.com", got.Email)

		_, err = f.svc.Get(ctx, adminActor, uuid.NewString())
		assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))

		_, err = f.svc.Get(ctx, Actor{ID: target.ID, Role: model.RoleEmployee}, admin.ID.String())
		assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))
	})

	t.Run("promotes a user to manager", func(t *testing.T) {
		role := "manager"
		updated, err := f.svc.AdminUpdate(ctx, adminActor, target.ID.String(), UpdateUserRequest{Role: &role})
		require.NoError(t, err)
		assert.Equal(t, "manager", updated.Role)
		assert.Len(t, f.audit.byAction(model.ActionUpdateUser), 1)
	})

	t.Run("self-demotion and self-deletion are blocked", func(t *testing.T) {
		role := "employee"
		_, err := f.svc.AdminUpdate(ctx, adminActor, admin.ID.String(), UpdateUserRequest{Role: &role})
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

		err = f.svc.Delete(ctx, adminActor, admin.ID.String())
		assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	})

	t.Run("delete cascades leaves and sessions", func(t *testing.T) {
		require.NoError(t, f.leaves.Create(ctx, &model.LeaveRequest{EmployeeID: target.ID, Status: model.LeaveStatusPending}))
		require.NoError(t, f.tokens.Create(ctx, &model.RefreshToken{UserID: target.ID, Token: "tok"}))

		require.NoError(t, f.svc.Delete(ctx, adminActor, target.ID.String()))

		remaining, err := f.leaves.ListByEmployee(ctx, target.ID)
		require.NoError(t, err)
		assert.Empty(t, remaining)
		assert.Empty(t, f.tokens.tokens)
		assert.Len(t, f.audit.byAction(model.ActionDeleteUser), 1)
	})

	t.Run("non-admin is refused", func(t *testing.T) {
		_, _, err := f.svc.List(ctx, Actor{ID: uuid.New(), Role: model.RoleManager}, 1, 20)
		assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))
	})
}
