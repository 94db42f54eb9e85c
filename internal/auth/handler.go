package auth

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/givehub/backend/internal/models"
	"github.com/givehub/backend/pkg/response"
	"github.com/givehub/backend/pkg/storage"
	"github.com/givehub/backend/pkg/utils"
)

// CheckEmailRequest is the body for POST /api/auth/check-email.
type CheckEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// SendOTPRequest is the body for POST /api/auth/send-otp.
type SendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// VerifyOTPRequest is the body for POST /api/auth/verify-otp.
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// RegisterRequest is the body for POST /api/auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role"` // optional, defaults to donor
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// GoogleSignInRequest is the body for POST /auth/google.
type GoogleSignInRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

// ForgotPasswordRequest is the body for POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest is the body for POST /auth/reset-password.
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// OnboardingRequest is the body for PATCH /users/me/onboarding.
type OnboardingRequest struct {
	Interests              []string `json:"interests"`
	PreferredCommunication string   `json:"preferred_communication"`
	HowHeard               string   `json:"how_heard"`
	DonationFrequency      string   `json:"donation_frequency"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth and user HTTP endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	otp    *OTPService
	google *GoogleVerifier
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates an auth handler. google and s3 may be nil when the
// corresponding feature is not configured.
func NewHandler(repo *Repository, jwt *JWTService, otp *OTPService, google *GoogleVerifier, s3 *storage.S3, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, otp: otp, google: google, s3: s3, logger: logger}
}

// CheckEmail handles POST /api/auth/check-email.
func (h *Handler) CheckEmail(c *gin.Context) {
	var req CheckEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	email := normalizeEmail(req.Email)
	_, err := h.repo.GetByEmail(c.Request.Context(), email)
	if err == nil {
		response.OK(c, gin.H{"available": false})
		return
	}
	if !errors.Is(err, ErrUserNotFound) {
		response.Internal(c, "failed to check email")
		return
	}
	response.OK(c, gin.H{"available": true})
}

// SendOTP handles POST /api/auth/send-otp. Issues a registration code.
func (h *Handler) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	email := normalizeEmail(req.Email)
	if _, err := h.repo.GetByEmail(c.Request.Context(), email); err == nil {
		response.BadRequest(c, "email already registered")
		return
	}
	if err := h.otp.Issue(c.Request.Context(), PurposeRegister, email); err != nil {
		h.logger.Error("issue otp failed", zap.Error(err), zap.String("email", email))
		response.Internal(c, "failed to send verification code")
		return
	}
	response.OK(c, gin.H{"sent": true})
}

// VerifyOTP handles POST /api/auth/verify-otp.
func (h *Handler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	email := normalizeEmail(req.Email)
	err := h.otp.Verify(c.Request.Context(), PurposeRegister, email, req.Code)
	switch {
	case errors.Is(err, ErrTooManyAttempts):
		response.TooManyRequests(c, "too many attempts, request a new code")
	case errors.Is(err, ErrCodeInvalid):
		response.BadRequest(c, "invalid or expired code")
	case err != nil:
		h.logger.Error("verify otp failed", zap.Error(err), zap.String("email", email))
		response.Internal(c, "failed to verify code")
	default:
		response.OK(c, gin.H{"verified": true})
	}
}

// Register handles POST /api/auth/register. Requires a previously verified
// email (OTP handshake).
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	email := normalizeEmail(req.Email)

	role := models.RoleDonor
	switch req.Role {
	case "", "donor":
	case "volunteer":
		role = models.RoleVolunteer
	default:
		response.BadRequest(c, "invalid role")
		return
	}

	verified, err := h.otp.Consume(c.Request.Context(), PurposeRegister, email)
	if err != nil {
		response.Internal(c, "failed to verify email")
		return
	}
	if !verified {
		response.Forbidden(c, "email not verified")
		return
	}

	if _, err := h.repo.GetByEmail(c.Request.Context(), email); err == nil {
		response.BadRequest(c, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	user := &models.User{
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := h.repo.Create(c.Request.Context(), user); err != nil {
		h.logger.Error("create user failed", zap.Error(err), zap.String("email", email))
		response.Internal(c, "failed to create account")
		return
	}

	token, err := h.jwt.Generate(user.ID.Hex(), user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	user, err := h.repo.GetByEmail(c.Request.Context(), normalizeEmail(req.Email))
	if err != nil {
		response.Unauthorized(c, "wrong email or password")
		return
	}
	if user.PasswordHash == "" || !utils.CheckPassword(req.Password, user.PasswordHash) {
		response.Unauthorized(c, "wrong email or password")
		return
	}
	token, err := h.jwt.Generate(user.ID.Hex(), user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// GoogleSignIn handles POST /auth/google. Verifies the Google ID token and
// finds or creates the matching account.
func (h *Handler) GoogleSignIn(c *gin.Context) {
	if h.google == nil {
		response.BadRequest(c, "google sign-in is not configured")
		return
	}
	var req GoogleSignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	identity, err := h.google.VerifyIDToken(c.Request.Context(), req.IDToken)
	if err != nil {
		response.Unauthorized(c, "invalid google token")
		return
	}
	email := normalizeEmail(identity.Email)
	user, err := h.repo.GetByEmail(c.Request.Context(), email)
	if errors.Is(err, ErrUserNotFound) {
		user = &models.User{
			Name:   identity.Name,
			Email:  email,
			Role:   models.RoleDonor,
			Avatar: identity.Picture,
		}
		if err := h.repo.Create(c.Request.Context(), user); err != nil {
			h.logger.Error("create federated user failed", zap.Error(err), zap.String("email", email))
			response.Internal(c, "failed to create account")
			return
		}
	} else if err != nil {
		response.Internal(c, "failed to sign in")
		return
	}
	token, err := h.jwt.Generate(user.ID.Hex(), user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// ForgotPassword handles POST /auth/forgot-password. Always responds as sent
// so the endpoint does not reveal which emails are registered.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	email := normalizeEmail(req.Email)
	if _, err := h.repo.GetByEmail(c.Request.Context(), email); err == nil {
		if err := h.otp.Issue(c.Request.Context(), PurposeReset, email); err != nil {
			h.logger.Error("issue reset code failed", zap.Error(err), zap.String("email", email))
		}
	}
	response.OK(c, gin.H{"sent": true})
}

// ResetPassword handles POST /auth/reset-password.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	email := normalizeEmail(req.Email)
	err := h.otp.Verify(c.Request.Context(), PurposeReset, email, req.Code)
	switch {
	case errors.Is(err, ErrTooManyAttempts):
		response.TooManyRequests(c, "too many attempts, request a new code")
		return
	case errors.Is(err, ErrCodeInvalid):
		response.BadRequest(c, "invalid or expired code")
		return
	case err != nil:
		response.Internal(c, "failed to verify code")
		return
	}
	if _, err := h.otp.Consume(c.Request.Context(), PurposeReset, email); err != nil {
		response.Internal(c, "failed to verify code")
		return
	}
	user, err := h.repo.GetByEmail(c.Request.Context(), email)
	if err != nil {
		response.NotFound(c, "account not found")
		return
	}
	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}
	if err := h.repo.UpdatePassword(c.Request.Context(), user.ID, hash); err != nil {
		response.Internal(c, "failed to reset password")
		return
	}
	response.OK(c, gin.H{"reset": true})
}

// Me handles GET /users/me.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, "account not found")
		return
	}
	response.OK(c, user.ToPublic())
}

// UpdateOnboarding handles PATCH /users/me/onboarding.
func (h *Handler) UpdateOnboarding(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	var req OnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	survey := models.OnboardingSurvey{
		Interests:              req.Interests,
		PreferredCommunication: req.PreferredCommunication,
		HowHeard:               req.HowHeard,
		DonationFrequency:      req.DonationFrequency,
	}
	if err := h.repo.UpdateOnboarding(c.Request.Context(), userID, survey); err != nil {
		response.Internal(c, "failed to save onboarding")
		return
	}
	response.OK(c, gin.H{"onboarding_completed": true})
}

// List handles GET /users (admin only).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}

// UploadAvatar handles POST /users/me/avatar (multipart image upload to S3).
func (h *Handler) UploadAvatar(c *gin.Context) {
	if h.s3 == nil {
		response.BadRequest(c, "uploads are not configured")
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	defer file.Close()
	if header.Size > storage.MaxImageFileSize {
		response.BadRequest(c, "file too large")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !storage.ValidateImageFileType(contentType, header.Filename) {
		response.BadRequest(c, "unsupported file type")
		return
	}
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(header.Filename)
	}
	key := storage.AvatarKey(userID.Hex(), uuid.New().String()+strings.ToLower(header.Filename))
	url, err := h.s3.Upload(c.Request.Context(), key, contentType, file, header.Size)
	if err != nil {
		h.logger.Error("avatar upload failed", zap.Error(err), zap.String("user_id", userID.Hex()))
		response.Internal(c, "failed to upload avatar")
		return
	}
	if err := h.repo.UpdateAvatar(c.Request.Context(), userID, url); err != nil {
		response.Internal(c, "failed to save avatar")
		return
	}
	response.OK(c, gin.H{"avatar": url})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// currentUserID reads the authenticated user's ObjectID from gin context.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	val, ok := c.Get("user_id")
	if !ok {
		return primitive.NilObjectID, false
	}
	idStr, _ := val.(string)
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}
