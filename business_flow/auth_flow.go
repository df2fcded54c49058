package businessflow

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/smm-panel/app/dto"
	"github.com/amirphl/smm-panel/app/services"
	"github.com/amirphl/smm-panel/models"
	"github.com/amirphl/smm-panel/repository"
	"github.com/amirphl/smm-panel/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthFlow verifies user and admin credentials and issues token pairs
type AuthFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	AdminLogin(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, accessToken string, req *dto.LogoutRequest) error
}

type AuthFlowImpl struct {
	userRepo     repository.UserRepository
	adminRepo    repository.AdminRepository
	auditRepo    repository.AuditLogRepository
	tokenService services.TokenService
	accessTTL    time.Duration
	logger       *zap.Logger
}

func NewAuthFlow(
	userRepo repository.UserRepository,
	adminRepo repository.AdminRepository,
	auditRepo repository.AuditLogRepository,
	tokenService services.TokenService,
	accessTTL time.Duration,
	logger *zap.Logger,
) AuthFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	if accessTTL <= 0 {
		accessTTL = utils.AccessTokenTTL
	}
	return &AuthFlowImpl{
		userRepo:     userRepo,
		adminRepo:    adminRepo,
		auditRepo:    auditRepo,
		tokenService: tokenService,
		accessTTL:    accessTTL,
		logger:       logger,
	}
}

func (af *AuthFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := af.userRepo.ByEmail(ctx, email)
	if err != nil {
		return nil, NewBusinessError("USER_LOOKUP_FAILED", "Failed to lookup user", err)
	}
	if user == nil {
		af.auditFailure(ctx, models.AuditEntityUser, email, metadata)
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		af.auditFailure(ctx, models.AuditEntityUser, email, metadata)
		return nil, ErrInvalidCredentials
	}
	if !user.CanTransact() {
		return nil, ErrAccountInactive
	}

	access, refresh, err := af.tokenService.GenerateTokens(user.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}
	if err := af.userRepo.UpdateLastLogin(ctx, user.ID, utils.UTCNow()); err != nil {
		af.logger.Warn("update last login failed", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	userID := user.ID
	audit := newAuditLog(models.AuditActionLoginSuccess, models.AuditEntityUser, strconv.FormatUint(uint64(user.ID), 10),
		"user login", metadata, nil)
	audit.UserID = &userID
	af.saveAudit(ctx, audit)

	return &dto.LoginResponse{
		Subject: user.ID,
		Kind:    services.SubjectUser,
		Session: af.session(access, refresh),
	}, nil
}

func (af *AuthFlowImpl) AdminLogin(ctx context.Context, req *dto.AdminLoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	admin, err := af.adminRepo.ByUsername(ctx, req.Username)
	if err != nil {
		return nil, NewBusinessError("ADMIN_LOOKUP_FAILED", "Failed to lookup admin", err)
	}
	if admin == nil {
		af.auditFailure(ctx, models.AuditEntityAdmin, req.Username, metadata)
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		af.auditFailure(ctx, models.AuditEntityAdmin, req.Username, metadata)
		return nil, ErrInvalidCredentials
	}
	if !utils.IsTrue(admin.IsActive) {
		return nil, ErrAccountInactive
	}

	access, refresh, err := af.tokenService.GenerateAdminTokens(admin.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}
	if err := af.adminRepo.UpdateLastLogin(ctx, admin.ID, utils.UTCNow()); err != nil {
		af.logger.Warn("update admin last login failed", zap.Uint("admin_id", admin.ID), zap.Error(err))
	}

	adminID := admin.ID
	audit := newAuditLog(models.AuditActionLoginSuccess, models.AuditEntityAdmin, strconv.FormatUint(uint64(admin.ID), 10),
		"admin login", metadata, nil)
	audit.AdminID = &adminID
	af.saveAudit(ctx, audit)

	return &dto.LoginResponse{
		Subject: admin.ID,
		Kind:    services.SubjectAdmin,
		Session: af.session(access, refresh),
	}, nil
}

func (af *AuthFlowImpl) Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	access, refresh, err := af.tokenService.RefreshToken(req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("INVALID_REFRESH_TOKEN", "Refresh token is invalid or expired", ErrInvalidCredentials)
	}
	session := af.session(access, refresh)
	return &session, nil
}

// Logout revokes the access token and the refresh token when one is given
func (af *AuthFlowImpl) Logout(ctx context.Context, accessToken string, req *dto.LogoutRequest) error {
	if err := af.tokenService.RevokeToken(accessToken); err != nil {
		return ErrInvalidCredentials
	}
	if req == nil || req.RefreshToken == "" {
		return nil
	}
	if err := af.tokenService.RevokeToken(req.RefreshToken); err != nil {
		af.logger.Warn("refresh token not revoked on logout", zap.Error(err))
	}
	return nil
}

func (af *AuthFlowImpl) session(access, refresh string) dto.TokenResponse {
	return dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(af.accessTTL.Seconds()),
	}
}

func (af *AuthFlowImpl) auditFailure(ctx context.Context, entity, subject string, metadata *ClientMetadata) {
	if len(subject) > 64 {
		subject = subject[:64]
	}
	audit := newAuditLog(models.AuditActionLoginFailed, entity, subject, "login failed", metadata, nil)
	audit.Success = utils.ToPtr(false)
	af.saveAudit(ctx, audit)
}

// saveAudit never fails a login
func (af *AuthFlowImpl) saveAudit(ctx context.Context, audit *models.AuditLog) {
	if err := af.auditRepo.Save(ctx, audit); err != nil {
		af.logger.Warn("audit log write failed", zap.String("action", audit.Action), zap.Error(err))
	}
}
