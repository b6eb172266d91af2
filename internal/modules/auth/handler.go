package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"librarium/internal/pkg/response"
)

// Handler manages all HTTP interactions for authentication
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
		authGroup.POST("/password-reset/request", h.RequestPasswordReset)
		authGroup.POST("/password-reset/confirm", h.ConfirmPasswordReset)
		authGroup.POST("/verify-email/request", h.RequestEmailVerification)
		authGroup.POST("/verify-email/confirm", h.ConfirmEmailVerification)
	}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	authGroup := protected.Group("/auth")
	{
		authGroup.POST("/logout", h.Logout)
		authGroup.POST("/password", h.ChangePassword)
	}
	userGroup := protected.Group("/users")
	{
		userGroup.GET("/me", h.GetMe)
	}
}

func clientMeta(c *gin.Context) ClientMeta {
	return ClientMeta{
		IP:          c.ClientIP(),
		UserAgent:   c.GetHeader("User-Agent"),
		DeviceClass: c.GetHeader("X-Device-Class"),
	}
}

// Register creates a member account and triggers email verification.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			response.Error(c, http.StatusConflict, "USER_EXISTS", "Username or email is already registered")
			return
		}
		response.Error(c, http.StatusInternalServerError, "REGISTRATION_FAILED", "Failed to register user")
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"user": UserPublic{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
			Name:     user.Name,
			Role:     string(user.Role),
		},
	})
}

// Login authenticates and returns an access/refresh token pair.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	result, err := h.service.Login(c.Request.Context(), req, clientMeta(c))
	if err != nil {
		var locked *AccountLockedError
		if errors.As(err, &locked) {
			response.ErrorWithDetails(c, http.StatusTooManyRequests, "ACCOUNT_LOCKED",
				"Too many failed attempts, try again later",
				gin.H{"unlock_at": locked.Until.UTC().Format(time.RFC3339)})
			return
		}
		var remaining *RemainingAttemptsError
		if errors.As(err, &remaining) {
			response.ErrorWithDetails(c, http.StatusUnauthorized, "INVALID_CREDENTIALS",
				"Username or password is incorrect",
				gin.H{"remaining_attempts": remaining.Remaining})
			return
		}
		if errors.Is(err, ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Username or password is incorrect")
			return
		}
		response.Error(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to log in")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user": UserPublic{
			ID:       result.User.ID,
			Username: result.User.Username,
			Email:    result.User.Email,
			Name:     result.User.Name,
			Role:     string(result.User.Role),
		},
		"tokens": TokenPairResponse{
			AccessToken:      result.Access.Value,
			RefreshToken:     result.Refresh.Value,
			AccessExpiresAt:  result.Access.ExpiresAt.Unix(),
			RefreshExpiresAt: result.Refresh.ExpiresAt.Unix(),
		},
	})
}

// Refresh exchanges a refresh token for a fresh access token.
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	result, err := h.service.Refresh(c.Request.Context(), req.RefreshToken, clientMeta(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenReused):
			response.Error(c, http.StatusUnauthorized, "TOKEN_REUSED", "Refresh token has already been used")
		case errors.Is(err, ErrTokenExpired):
			response.Error(c, http.StatusUnauthorized, "TOKEN_EXPIRED", "Refresh token has expired")
		case errors.Is(err, ErrTokenRevoked), errors.Is(err, ErrTokenNotFound), errors.Is(err, ErrTokenMalformed):
			response.Error(c, http.StatusUnauthorized, "INVALID_TOKEN", "Refresh token is not valid")
		default:
			response.Error(c, http.StatusInternalServerError, "REFRESH_FAILED", "Failed to refresh session")
		}
		return
	}

	response.Success(c, http.StatusOK, TokenPairResponse{
		AccessToken:      result.Access.Value,
		RefreshToken:     result.Refresh.Value,
		AccessExpiresAt:  result.Access.ExpiresAt.Unix(),
		RefreshExpiresAt: result.Refresh.ExpiresAt.Unix(),
	})
}

// Logout revokes the presented tokens and kills the user's other sessions.
func (h *Handler) Logout(c *gin.Context) {
	var req LogoutRequest
	_ = c.ShouldBindJSON(&req) // refresh token is optional

	accessValue := bearerToken(c)
	if accessValue == "" {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token")
		return
	}

	if err := h.service.Logout(c.Request.Context(), accessValue, req.RefreshToken); err != nil {
		response.Error(c, http.StatusInternalServerError, "LOGOUT_FAILED", "Failed to log out")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "logged out"})
}

// ChangePassword swaps the password for the authenticated user.
func (h *Handler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	userID := c.GetInt64("user_id")
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	err := h.service.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Current password is incorrect")
			return
		}
		response.Error(c, http.StatusInternalServerError, "PASSWORD_CHANGE_FAILED", "Failed to change password")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "password changed"})
}

func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if err := h.service.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		response.Error(c, http.StatusInternalServerError, "RESET_FAILED", "Failed to process reset request")
		return
	}
	// Always accepted: the response must not reveal whether the email exists.
	response.Success(c, http.StatusAccepted, gin.H{"status": "accepted"})
}

func (h *Handler) ConfirmPasswordReset(c *gin.Context) {
	var req PasswordResetConfirm
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if err := h.service.ConfirmPasswordReset(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondSingleUseError(c, err, "RESET_FAILED", "Failed to reset password")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "password reset"})
}

func (h *Handler) RequestEmailVerification(c *gin.Context) {
	var req EmailVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if err := h.service.RequestEmailVerification(c.Request.Context(), req.Email); err != nil {
		response.Error(c, http.StatusInternalServerError, "VERIFY_FAILED", "Failed to process verification request")
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{"status": "accepted"})
}

func (h *Handler) ConfirmEmailVerification(c *gin.Context) {
	var req EmailVerifyConfirm
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if err := h.service.ConfirmEmailVerification(c.Request.Context(), req.Token); err != nil {
		respondSingleUseError(c, err, "VERIFY_FAILED", "Failed to verify email")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "email verified"})
}

// GetMe returns the authenticated user's profile.
func (h *Handler) GetMe(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	user, err := h.service.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "User not found")
		return
	}
	response.Success(c, http.StatusOK, user)
}

func respondSingleUseError(c *gin.Context, err error, fallbackCode, fallbackMsg string) {
	switch {
	case errors.Is(err, ErrTokenExpired):
		response.Error(c, http.StatusGone, "TOKEN_EXPIRED", "Token has expired")
	case errors.Is(err, ErrTokenReused):
		response.Error(c, http.StatusConflict, "TOKEN_USED", "Token has already been used")
	case errors.Is(err, ErrTokenRevoked):
		response.Error(c, http.StatusGone, "TOKEN_REVOKED", "Token has been revoked")
	case errors.Is(err, ErrTokenNotFound):
		response.Error(c, http.StatusNotFound, "TOKEN_NOT_FOUND", "Token is not valid")
	default:
		response.Error(c, http.StatusInternalServerError, fallbackCode, fallbackMsg)
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}
