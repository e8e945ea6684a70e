package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/harmonix/backend/internal/config"
	"github.com/harmonix/backend/internal/middleware"
	"github.com/harmonix/backend/internal/models"
	"github.com/harmonix/backend/internal/services"
	"github.com/harmonix/backend/pkg/response"
	"gorm.io/gorm"
)

const loginPath = "/accounts/login"

type AccountsHandler struct {
	authService *services.AuthService
	sessionCfg  *config.SessionConfig
}

func NewAccountsHandler(db *gorm.DB, cfg *config.Config) *AccountsHandler {
	return &AccountsHandler{
		authService: services.NewAuthService(db, &cfg.Session),
		sessionCfg:  &cfg.Session,
	}
}

// RegisterForm returns the choices the sign-up form offers.
// GET /accounts/register
func (h *AccountsHandler) RegisterForm(c *gin.Context) {
	roles := make([]models.Choice, 0, 2)
	for _, r := range []models.Role{models.RoleMusician, models.RoleBand} {
		if r.SelfRegistrable() {
			roles = append(roles, models.Choice{Key: string(r), Label: r.Label()})
		}
	}
	response.Success(c, gin.H{
		"role_choices":       roles,
		"instrument_choices": models.Instruments.Choices(),
		"genre_choices":      models.Genres.Choices(),
	})
}

// Register creates an account. The user signs in afterwards.
// POST /accounts/register
func (h *AccountsHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if !bind(c, &req) {
		return
	}

	user, err := h.authService.Register(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Success:  true,
		Message:  "Registration successful! Please login.",
		Data:     user,
		Redirect: loginPath,
	})
}

// LoginForm echoes the sanitized next parameter for the sign-in form.
// GET /accounts/login
func (h *AccountsHandler) LoginForm(c *gin.Context) {
	response.Success(c, gin.H{"next": services.SafeNext(c.Query("next"))})
}

// Login signs the user in and sets the session cookie.
// POST /accounts/login
func (h *AccountsHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !bind(c, &req) {
		return
	}
	if req.Next == "" {
		req.Next = c.Query("next")
	}

	result, err := h.authService.Login(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.sessionCfg.CookieName, result.Token, h.sessionCfg.ExpireHour*3600, "/", "", h.sessionCfg.CookieSecure, true)

	c.JSON(http.StatusOK, response.Response{
		Success:  true,
		Message:  fmt.Sprintf("Welcome back, %s!", result.User.Username),
		Data:     result,
		Redirect: result.Redirect,
	})
}

// Logout clears the session cookie.
// GET|POST /accounts/logout
func (h *AccountsHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.sessionCfg.CookieName, "", -1, "/", "", h.sessionCfg.CookieSecure, true)
	response.Redirect(c, "You have been logged out.", loginPath)
}

// Me returns the signed-in user.
// GET /accounts/me
func (h *AccountsHandler) Me(c *gin.Context) {
	user, err := h.authService.GetUserByID(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, user)
}

// ProfileForm returns the caller's editable profile with its list fields
// mapped to catalog keys.
// GET /accounts/musician_profile, GET /accounts/band_profile
func (h *AccountsHandler) ProfileForm(c *gin.Context) {
	user, err := h.authService.GetUserByID(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"user":                 user,
		"selected_instruments": models.Instruments.Keys(user.Instruments),
		"selected_genres":      models.Genres.Keys(user.Genres),
		"instrument_choices":   models.Instruments.Choices(),
		"genre_choices":        models.Genres.Choices(),
	})
}

// UpdateProfile saves the caller's profile.
// POST /accounts/musician_profile, POST /accounts/band_profile
func (h *AccountsHandler) UpdateProfile(c *gin.Context) {
	var req services.ProfileUpdateRequest
	if !bind(c, &req) {
		return
	}

	role := middleware.GetRole(c)
	user, err := h.authService.UpdateProfile(middleware.GetUserID(c), role, &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Success:  true,
		Message:  "Profile updated successfully!",
		Data:     user,
		Redirect: role.ProfilePath(),
	})
}

// Profile shows a public profile.
// GET /accounts/profile/:username
func (h *AccountsHandler) Profile(c *gin.Context) {
	view, err := h.authService.GetProfile(middleware.GetUserID(c), c.Param("username"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

func (h *AccountsHandler) CreateAdminIfNotExists(cfg *config.AdminConfig) error {
	return h.authService.CreateAdminIfNotExists(cfg)
}
