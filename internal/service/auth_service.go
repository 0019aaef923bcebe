package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vundelavamsi/finance-tracker-backend/internal/dto"
	"github.com/vundelavamsi/finance-tracker-backend/internal/models"
	"github.com/vundelavamsi/finance-tracker-backend/internal/repository"
	"github.com/vundelavamsi/finance-tracker-backend/pkg/auth"
)

var (
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Sender delivers the login code over the chat transport.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// AuthService implements the passwordless login flow: the user asks for a
// code via their Telegram ID, receives a one-time code and magic-link token
// in chat, and exchanges either for a JWT pair.
type AuthService struct {
	tenantRepo *repository.TenantRepository
	tokenRepo  *repository.LoginTokenRepository
	sender     Sender
	jwtManager *auth.JWTManager
	codeTTL    time.Duration
	logger     *zap.Logger
}

func NewAuthService(
	tenantRepo *repository.TenantRepository,
	tokenRepo *repository.LoginTokenRepository,
	sender Sender,
	jwtManager *auth.JWTManager,
	codeTTL time.Duration,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		tenantRepo: tenantRepo,
		tokenRepo:  tokenRepo,
		sender:     sender,
		jwtManager: jwtManager,
		codeTTL:    codeTTL,
		logger:     logger,
	}
}

// RequestLogin creates a one-time code for the tenant behind the Telegram ID
// and delivers it in chat. Only users who have already messaged the bot can
// log in; unknown IDs are rejected.
func (s *AuthService) RequestLogin(ctx context.Context, req *dto.LoginRequest) (*dto.LoginRequestedResponse, error) {
	tenant, err := s.tenantRepo.GetByExternalID(ctx, req.TelegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}

	code, err := auth.NewLoginCode()
	if err != nil {
		return nil, err
	}
	tokenValue, err := auth.NewLoginToken()
	if err != nil {
		return nil, err
	}
	codeHash, err := auth.HashCode(code)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	token := &models.LoginToken{
		ID:        uuid.New(),
		TenantID:  tenant.ID,
		Token:     tokenValue,
		CodeHash:  codeHash,
		ExpiresAt: now.Add(s.codeTTL),
		CreatedAt: now,
	}
	if err := s.tokenRepo.Create(ctx, token); err != nil {
		return nil, err
	}

	chatID, err := parseChatID(req.TelegramID)
	if err != nil {
		return nil, err
	}
	text := fmt.Sprintf("Your login code is %s. It expires in %d minutes.\nLogin token: %s",
		code, int(s.codeTTL.Minutes()), tokenValue)
	if err := s.sender.SendMessage(ctx, chatID, text); err != nil {
		s.logger.Warn("login code delivery failed",
			zap.String("tenant_id", tenant.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	return &dto.LoginRequestedResponse{
		Message:   "login code sent over Telegram",
		ExpiresIn: int64(s.codeTTL.Seconds()),
	}, nil
}

// VerifyLogin exchanges a magic-link token, or a Telegram ID plus code, for a
// JWT pair. Both paths consume the login token; a code can be used once.
func (s *AuthService) VerifyLogin(ctx context.Context, req *dto.VerifyLoginRequest) (*dto.AuthResponse, error) {
	now := time.Now().UTC()

	var tenantID uuid.UUID
	switch {
	case req.Token != "":
		token, err := s.tokenRepo.ConsumeByToken(ctx, req.Token, now)
		if err != nil {
			return nil, ErrInvalidCredentials
		}
		tenantID = token.TenantID

	case req.TelegramID != "" && req.Code != "":
		tenant, err := s.tenantRepo.GetByExternalID(ctx, req.TelegramID)
		if err != nil {
			return nil, ErrInvalidCredentials
		}
		tokens, err := s.tokenRepo.ActiveByTenant(ctx, tenant.ID, now)
		if err != nil {
			return nil, ErrInvalidCredentials
		}
		matched := false
		for _, candidate := range tokens {
			if auth.CompareCode(candidate.CodeHash, req.Code) {
				if err := s.tokenRepo.Consume(ctx, candidate.ID, now); err != nil {
					return nil, err
				}
				matched = true
				break
			}
		}
		if !matched {
			return nil, ErrInvalidCredentials
		}
		tenantID = tenant.ID

	default:
		return nil, ErrInvalidCredentials
	}

	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, ErrTenantNotFound
	}

	return s.issueTokens(tenant)
}

// Refresh exchanges a valid refresh token for a new JWT pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	subject, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	tenantID, err := uuid.Parse(subject)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	tenant, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, ErrTenantNotFound
	}

	return s.issueTokens(tenant)
}

func (s *AuthService) issueTokens(tenant *models.Tenant) (*dto.AuthResponse, error) {
	accessToken, err := s.jwtManager.GenerateToken(tenant.ID.String(), tenant.ExternalID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(tenant.ID.String())
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.jwtManager.GetTokenDuration().Seconds()),
	}, nil
}

func parseChatID(telegramID string) (int64, error) {
	var chatID int64
	if _, err := fmt.Sscanf(telegramID, "%d", &chatID); err != nil {
		return 0, fmt.Errorf("telegram id is not numeric: %w", err)
	}
	return chatID, nil
}
