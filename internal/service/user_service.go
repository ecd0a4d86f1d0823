package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"backend/internal/apperror"
	"backend/internal/auth"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

// --- DTOs ---

type RegisterRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	Department string `json:"department"`
	Role       string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type UpdateUserRequest struct {
	Name       *string `json:"name"`
	Department *string `json:"department"`
	Role       *string `json:"role"`
	IsActive   *bool   `json:"is_active"`
}

type UserResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Department  string `json:"department"`
	IsActive    bool   `json:"is_active"`
	JoiningDate string `json:"joining_date"`

	BalanceSL string `json:"balance_sl"`
	BalanceCL string `json:"balance_cl"`
	BalanceEL string `json:"balance_el"`
	BalanceML string `json:"balance_ml"`
	BalancePL string `json:"balance_pl"`
}

type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
}

// --- Interface ---

// UserService covers registration, session management and the admin-side
// user directory.
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (AuthResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (AuthResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, actor Actor) (UserResponse, error)
	List(ctx context.Context, actor Actor, page, limit int) ([]UserResponse, int64, error)
	Get(ctx context.Context, actor Actor, id string) (UserResponse, error)
	AdminUpdate(ctx context.Context, actor Actor, id string, req UpdateUserRequest) (UserResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
}

type userService struct {
	users     repository.UserRepository
	tokens    repository.TokenRepository
	leaves    repository.LeaveRepository
	audit     repository.AuditRepository
	txMgr     repository.TransactionManager
	jwtSecret []byte
	logger    *zap.Logger
}

func NewUserService(
	users repository.UserRepository,
	tokens repository.TokenRepository,
	leaves repository.LeaveRepository,
	audit repository.AuditRepository,
	txMgr repository.TransactionManager,
	jwtSecret []byte,
	logger *zap.Logger,
) UserService {
	return &userService{
		users:     users,
		tokens:    tokens,
		leaves:    leaves,
		audit:     audit,
		txMgr:     txMgr,
		jwtSecret: jwtSecret,
		logger:    logger.Named("user.service"),
	}
}

// --- Auth ---

func (s *userService) Register(ctx context.Context, req RegisterRequest) (UserResponse, error) {
	role := model.RoleEmployee
	if req.Role != "" {
		parsed, err := model.ParseRole(req.Role)
		if err != nil {
			return UserResponse{}, apperror.Validationf("unknown role %q", req.Role)
		}
		role = parsed
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return UserResponse{}, apperror.Internal(err)
	}

	department := req.Department
	if department == "" {
		department = "General"
	}

	user := &model.User{
		Name:        req.Name,
		Email:       req.Email,
		Password:    string(hash),
		Role:        role,
		Department:  department,
		IsActive:    true,
		JoiningDate: time.Now(),
		BalanceSL:   decimal.NewFromInt(12),
		BalanceCL:   decimal.NewFromInt(12),
		BalanceEL:   decimal.NewFromInt(15),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return UserResponse{}, apperror.Conflict("email is already registered")
		}
		return UserResponse{}, apperror.Internal(err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)
	return toUserResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AuthResponse{}, apperror.New(apperror.CodeForbidden, "invalid email or password", http.StatusUnauthorized)
		}
		return AuthResponse{}, apperror.Internal(err)
	}
	if !user.IsActive {
		return AuthResponse{}, apperror.Forbidden("account is deactivated")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return AuthResponse{}, apperror.New(apperror.CodeForbidden, "invalid email or password", http.StatusUnauthorized)
	}
	return s.issueTokens(ctx, user)
}

func (s *userService) Refresh(ctx context.Context, req RefreshRequest) (AuthResponse, error) {
	stored, err := s.tokens.GetValid(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return AuthResponse{}, apperror.New(apperror.CodeForbidden, "invalid or expired refresh token", http.StatusUnauthorized)
		}
		return AuthResponse{}, apperror.Internal(err)
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		return AuthResponse{}, apperror.Internal(err)
	}
	if !user.IsActive {
		return AuthResponse{}, apperror.Forbidden("account is deactivated")
	}

	// Rotate: the presented token is burned whether or not issuing succeeds.
	if err := s.tokens.Revoke(ctx, req.RefreshToken); err != nil {
		return AuthResponse{}, apperror.Internal(err)
	}
	return s.issueTokens(ctx, user)
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		return apperror.Internal(err)
	}
	return nil
}

func (s *userService) issueTokens(ctx context.Context, user *model.User) (AuthResponse, error) {
	access, err := auth.GenerateAccessToken(user, s.jwtSecret, accessTokenTTL)
	if err != nil {
		return AuthResponse{}, apperror.Internal(err)
	}

	refresh := &model.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	}
	if err := s.tokens.Create(ctx, refresh); err != nil {
		return AuthResponse{}, apperror.Internal(err)
	}

	return AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		User:         toUserResponse(user),
	}, nil
}

// --- Directory ---

func (s *userService) Me(ctx context.Context, actor Actor) (UserResponse, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserResponse{}, apperror.NotFound("user not found")
		}
		return UserResponse{}, apperror.Internal(err)
	}
	return toUserResponse(user), nil
}

func (s *userService) List(ctx context.Context, actor Actor, page, limit int) ([]UserResponse, int64, error) {
	if actor.Role != model.RoleAdmin {
		return nil, 0, apperror.Forbidden("only admins may list users")
	}
	users, total, err := s.users.List(ctx, page, limit)
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	return out, total, nil
}

func (s *userService) Get(ctx context.Context, actor Actor, id string) (UserResponse, error) {
	if actor.Role != model.RoleAdmin {
		return UserResponse{}, apperror.Forbidden("only admins may view other users")
	}
	userID, err := uuid.Parse(id)
	if err != nil {
		return UserResponse{}, apperror.Validation("invalid user id")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return UserResponse{}, apperror.NotFound("user not found")
		}
		return UserResponse{}, apperror.Internal(err)
	}
	return toUserResponse(user), nil
}

func (s *userService) AdminUpdate(ctx context.Context, actor Actor, id string, req UpdateUserRequest) (UserResponse, error) {
	if actor.Role != model.RoleAdmin {
		return UserResponse{}, apperror.Forbidden("only admins may update users")
	}
	userID, err := uuid.Parse(id)
	if err != nil {
		return UserResponse{}, apperror.Validation("invalid user id")
	}

	var user *model.User
	err = s.txMgr.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		user, err = s.users.GetByID(txCtx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("user not found")
			}
			return err
		}

		if req.Name != nil {
			user.Name = *req.Name
		}
		if req.Department != nil {
			user.Department = *req.Department
		}
		if req.Role != nil {
			parsed, err := model.ParseRole(*req.Role)
			if err != nil {
				return apperror.Validationf("unknown role %q", *req.Role)
			}
			if userID == actor.ID && parsed != model.RoleAdmin {
				return apperror.Validation("admins cannot demote themselves")
			}
			user.Role = parsed
		}
		if req.IsActive != nil {
			if userID == actor.ID && !*req.IsActive {
				return apperror.Validation("admins cannot deactivate themselves")
			}
			user.IsActive = *req.IsActive
		}

		if err := s.users.Update(txCtx, user); err != nil {
			return err
		}
		return s.audit.Record(txCtx, &model.AuditLog{
			ActorID:    &actor.ID,
			Action:     model.ActionUpdateUser,
			TargetID:   user.ID.String(),
			TargetType: model.TargetUser,
			Details: auditDetails(map[string]interface{}{
				"role":       user.Role,
				"department": user.Department,
				"is_active":  user.IsActive,
			}),
		})
	})
	if err != nil {
		return UserResponse{}, apperror.From(err)
	}
	return toUserResponse(user), nil
}

// Delete removes a user along with their leave requests and sessions.
// Audit entries referencing the user are kept.
func (s *userService) Delete(ctx context.Context, actor Actor, id string) error {
	if actor.Role != model.RoleAdmin {
		return apperror.Forbidden("only admins may delete users")
	}
	userID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("invalid user id")
	}
	if userID == actor.ID {
		return apperror.Validation("admins cannot delete themselves")
	}

	err = s.txMgr.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.users.GetByID(txCtx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("user not found")
			}
			return err
		}
		if err := s.leaves.DeleteByEmployee(txCtx, userID); err != nil {
			return err
		}
		if err := s.tokens.RevokeAllForUser(txCtx, userID); err != nil {
			return err
		}
		if err := s.users.Delete(txCtx, userID); err != nil {
			return err
		}
		return s.audit.Record(txCtx, &model.AuditLog{
			ActorID:    &actor.ID,
			Action:     model.ActionDeleteUser,
			TargetID:   userID.String(),
			TargetType: model.TargetUser,
		})
	})
	if err != nil {
		return apperror.From(err)
	}

	s.logger.Info("user deleted",
		zap.String("user_id", userID.String()),
		zap.String("actor_id", actor.ID.String()),
	)
	return nil
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:          u.ID.String(),
		Name:        u.Name,
		Email:       u.Email,
		Role:        string(u.Role),
		Department:  u.Department,
		IsActive:    u.IsActive,
		JoiningDate: u.JoiningDate.Format(dateLayout),
		BalanceSL:   u.BalanceSL.StringFixed(2),
		BalanceCL:   u.BalanceCL.StringFixed(2),
		BalanceEL:   u.BalanceEL.StringFixed(2),
		BalanceML:   u.BalanceML.StringFixed(2),
		BalancePL:   u.BalancePL.StringFixed(2),
	}
}
