package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"auth_service/internal/domain/models"
	jwtlib "auth_service/internal/lib/jwt"
	"auth_service/internal/lib/logger/sl"
	"auth_service/internal/services/auth"
	"auth_service/internal/services/avatar"
	tokens "auth_service/internal/services/token_service"
	"auth_service/internal/transport/http/dto"
	"auth_service/internal/transport/http/dto/request"
	"auth_service/internal/transport/http/dto/response"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ContextKeyUser is where the access-token middleware stores the parsed claims.
const ContextKeyUser = "user"

type AuthService interface {
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	Signup(ctx context.Context, input dto.SignupInput) (uuid.UUID, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	Profile(ctx context.Context, userID uuid.UUID) (models.User, error)
}

type AvatarResolver interface {
	URL(key string) string
}

type Routers struct {
	log         *slog.Logger
	AuthService AuthService
	avatars     AvatarResolver
	cookie      CookieOptions
}

func NewRouter(log *slog.Logger, authService AuthService, avatars AvatarResolver, cookie CookieOptions) *Routers {
	return &Routers{
		log:         log,
		AuthService: authService,
		avatars:     avatars,
		cookie:      cookie.withDefaults(),
	}
}

// Login godoc
// @Summary User login
// @Description Checks email and password. Returns an access token and sets the refresh cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body request.LoginRequest true "Credentials"
// @Success 200 {object} response.Token "Logged in, refresh token in the jwt cookie"
// @Failure 400 {object} response.Message "Invalid request format"
// @Failure 401 {object} response.Message "Invalid email or password"
// @Failure 500 {object} response.Message "Internal server error"
// @Router /auth/login [post]
func (r *Routers) Login(c echo.Context) error {
	const op = "http.routers.Login"

	log := r.log.With(
		slog.String("op", op),
	)

	var req request.LoginRequest

	if err := c.Bind(&req); err != nil {
		log.Warn("failed to bind request", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequest)
	}

	if err := c.Validate(req); err != nil {
		log.Warn("invalid format request", slog.String("email", req.Email), sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequest)
	}

	pair, err := r.AuthService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, response.ErrInvalidLogin)
		}

		log.Error("login failed", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	r.setRefreshCookie(c, pair.RefreshToken)

	return c.JSON(http.StatusOK, response.Token{
		AccessToken: pair.AccessToken,
		Message:     response.MsgLoggedIn,
	})
}

// Signup godoc
// @Summary User registration
// @Description Creates a user with an avatar. Does not log the user in.
// @Tags auth
// @Accept multipart/form-data
// @Produce json
// @Param username formData string true "Username"
// @Param email formData string true "Email"
// @Param password formData string true "Password (8-72 characters)"
// @Param avatar formData file true "Avatar image"
// @Success 201 {object} response.Message "User successfully created"
// @Failure 400 {object} response.Message "Invalid form, avatar or user data"
// @Failure 409 {object} response.Message "User already exist with received data"
// @Failure 500 {object} response.Message "Internal server error"
// @Router /auth/signup [post]
func (r *Routers) Signup(c echo.Context) error {
	const op = "http.routers.Signup"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.SignupInput

	if err := c.Bind(&req); err != nil {
		log.Warn("failed to bind request", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequest)
	}

	if file, err := c.FormFile("avatar"); err == nil {
		req.Avatar = file
	}

	if err := c.Validate(req); err != nil {
		log.Warn("validation failed", slog.String("email", req.Email), sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequest)
	}

	userID, err := r.AuthService.Signup(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExist):
			return c.JSON(http.StatusConflict, response.ErrUserExists)
		case errors.Is(err, avatar.ErrFileTooLarge):
			return c.JSON(http.StatusBadRequest, response.ErrAvatarTooLarge)
		case errors.Is(err, auth.ErrInvalidAvatar):
			return c.JSON(http.StatusBadRequest, response.ErrInvalidAvatar)
		case errors.Is(err, auth.ErrInvalidUserData):
			return c.JSON(http.StatusBadRequest, response.ErrInvalidUserData)
		}

		log.Error("registration failed", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	log.Info("user registered successfully", slog.String("user_id", userID.String()))

	return c.JSON(http.StatusCreated, response.NewMessage(response.MsgUserCreated))
}

// Refresh godoc
// @Summary Refresh access token
// @Description Mints a new access token from the refresh cookie. The cookie itself is left untouched.
// @Tags auth
// @Produce json
// @Success 200 {object} response.Token "Access token successfully refreshed"
// @Failure 401 {object} response.Message "Unauthorized"
// @Failure 500 {object} response.Message "Internal server error"
// @Router /auth/refresh [post]
func (r *Routers) Refresh(c echo.Context) error {
	const op = "http.routers.Refresh"

	log := r.log.With(
		slog.String("op", op),
	)

	refreshToken := r.refreshToken(c)
	if refreshToken == "" {
		return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
	}

	accessToken, err := r.AuthService.Refresh(c.Request().Context(), refreshToken)
	if err != nil {
		if isTokenError(err) {
			log.Info("refresh rejected", sl.Err(err))
			return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
		}

		log.Error("error refresh tokens", sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	return c.JSON(http.StatusOK, response.Token{
		AccessToken: accessToken,
		Message:     response.MsgTokenRefreshed,
	})
}

// Logout godoc
// @Summary User logout
// @Description Ends the session and clears the refresh cookie. Returns 204 when no cookie is sent.
// @Tags auth
// @Produce json
// @Success 200 {object} response.Message "Cookie cleared"
// @Success 204 "No cookie"
// @Router /auth/logout [post]
func (r *Routers) Logout(c echo.Context) error {
	const op = "http.routers.Logout"

	refreshToken := r.refreshToken(c)
	if refreshToken == "" {
		return c.NoContent(http.StatusNoContent)
	}

	if err := r.AuthService.Logout(c.Request().Context(), refreshToken); err != nil {
		r.log.Warn("failed to end session", slog.String("op", op), sl.Err(err))
	}

	r.clearRefreshCookie(c)

	return c.JSON(http.StatusOK, response.NewMessage(response.MsgCookieCleared))
}

// Me godoc
// @Summary Current user
// @Description Returns the profile of the user named by the bearer access token.
// @Tags users
// @Produce json
// @Success 200 {object} dto.UserProfile
// @Failure 401 {object} response.Message "Unauthorized"
// @Failure 500 {object} response.Message "Internal server error"
// @Security ApiKeyAuth
// @Router /users/me [get]
func (r *Routers) Me(c echo.Context) error {
	const op = "http.routers.Me"

	claims, ok := c.Get(ContextKeyUser).(*jwtlib.Claims)
	if !ok {
		return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
	}

	userID := claims.UserUUID()
	if userID == uuid.Nil {
		return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
	}

	user, err := r.AuthService.Profile(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
		}

		r.log.Error("error get user", slog.String("op", op), sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	return c.JSON(http.StatusOK, dto.UserProfile{
		ID:        user.ID.String(),
		Username:  user.Username,
		Email:     user.Email,
		Avatar:    user.Avatar,
		AvatarURL: r.avatarURL(user.Avatar),
	})
}

// Health godoc
// @Summary Liveness check
// @Tags service
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (r *Routers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Routers) avatarURL(key string) string {
	if r.avatars == nil {
		return ""
	}

	return r.avatars.URL(key)
}

func isTokenError(err error) bool {
	return errors.Is(err, tokens.ErrInvalidToken) ||
		errors.Is(err, tokens.ErrTokenExpired) ||
		errors.Is(err, tokens.ErrSessionRevoked)
}
