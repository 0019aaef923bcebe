package dto

type LoginRequest struct {
	TelegramID string `json:"telegram_id"`
}

type LoginRequestedResponse struct {
	Message   string `json:"message"`
	ExpiresIn int64  `json:"expires_in"`
}

type VerifyLoginRequest struct {
	// Token is the magic-link value; alternatively TelegramID plus Code.
	Token      string `json:"token"`
	TelegramID string `json:"telegram_id"`
	Code       string `json:"code"`
}

type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
