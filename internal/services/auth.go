package services

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/harmonix/backend/internal/config"
	"github.com/harmonix/backend/internal/models"
	"github.com/harmonix/backend/internal/utils"
	"github.com/harmonix/backend/pkg/logger"
	"github.com/harmonix/backend/pkg/response"
	"gorm.io/gorm"
)

const invalidCredentials = "Invalid username or password!"

type AuthService struct {
	db         *gorm.DB
	sessionCfg *config.SessionConfig
}

func NewAuthService(db *gorm.DB, sessionCfg *config.SessionConfig) *AuthService {
	return &AuthService{db: db, sessionCfg: sessionCfg}
}

type RegisterRequest struct {
	Username    string   `json:"username" form:"username"`
	Email       string   `json:"email" form:"email"`
	Password1   string   `json:"password1" form:"password1"`
	Password2   string   `json:"password2" form:"password2"`
	Role        string   `json:"role" form:"role"`
	Instruments []string `json:"instruments" form:"instruments"`
	Genres      []string `json:"genres" form:"genres"`
}

type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	Next     string `json:"next" form:"next"`
}

type LoginResult struct {
	Token    string       `json:"-"`
	ExpireAt time.Time    `json:"expire_at"`
	User     *models.User `json:"user"`
	Redirect string       `json:"redirect"`
}

// ProfileUpdateRequest carries the editable profile fields. Instruments and
// Genres may arrive as a single comma-joined entry.
type ProfileUpdateRequest struct {
	Username    string   `json:"username" form:"username"`
	Location    string   `json:"location" form:"location"`
	Bio         string   `json:"bio" form:"bio"`
	Instruments []string `json:"instruments" form:"instruments"`
	Genres      []string `json:"genres" form:"genres"`
}

type ProfileView struct {
	User         *models.User `json:"user"`
	RoleLabel    string       `json:"role_label"`
	Instruments  []string     `json:"instrument_labels"`
	Genres       []string     `json:"genre_labels"`
	IsOwnProfile bool         `json:"is_own_profile"`
}

// Register validates every field, reports all failures together and creates
// the account. The caller signs in separately.
func (s *AuthService) Register(req *RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	instruments := models.Instruments.Normalize(req.Instruments)
	genres := models.Genres.Normalize(req.Genres)

	fields := FieldErrors{}
	if msg := validateUsername(username); msg != "" {
		fields.Add("username", msg)
	} else if taken, err := s.usernameTaken(username, 0); err != nil {
		return nil, err
	} else if taken {
		fields.Add("username", "This username is already taken.")
	}

	if msg := validateEmail(email); msg != "" {
		fields.Add("email", msg)
	} else if taken, err := s.emailTaken(email); err != nil {
		return nil, err
	} else if taken {
		fields.Add("email", "An account with this email already exists.")
	}

	if msg := validatePassword(req.Password1); msg != "" {
		fields.Add("password1", msg)
	}
	if req.Password1 != req.Password2 {
		fields.Add("password2", "Passwords do not match.")
	}

	role, err := models.ParseRole(req.Role)
	switch {
	case req.Role == "":
		fields.Add("role", "Please select a role (Musician or Band).")
	case err != nil || !role.SelfRegistrable():
		fields.Add("role", "Please select a valid role.")
	}

	switch role {
	case models.RoleMusician:
		if len(instruments) == 0 {
			fields.Add("instruments", "Musicians must select at least one instrument.")
		}
		if len(genres) == 0 {
			fields.Add("genres", "Musicians must select at least one musical genre.")
		}
	case models.RoleBand:
		if len(genres) == 0 {
			fields.Add("genres", "Bands must select at least one musical genre.")
		}
	case models.RoleAdmin:
	}

	if !fields.Empty() {
		return nil, response.NewValidation(fields)
	}

	hash, err := utils.HashPassword(req.Password1)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:    username,
		Email:       email,
		Password:    hash,
		Role:        role,
		Instruments: instruments,
		Genres:      genres,
		IsActive:    true,
	}
	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.NewConflict("An account with this username or email already exists.")
		}
		return nil, err
	}

	logger.Info().Uint("user_id", user.ID).Str("role", string(role)).Msg("[Auth] user registered")
	return user, nil
}

// Login checks credentials and issues a session token. Every failure yields
// the same message so accounts cannot be probed.
func (s *AuthService) Login(req *LoginRequest) (*LoginResult, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, response.NewUnauthorized(invalidCredentials)
	}

	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized(invalidCredentials)
		}
		return nil, err
	}
	if !user.IsActive || !utils.CheckPassword(req.Password, user.Password) {
		return nil, response.NewUnauthorized(invalidCredentials)
	}

	token, err := utils.GenerateToken(user.ID, user.Username, string(user.Role), s.sessionCfg.ExpireHour)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.db.Model(&user).UpdateColumn("last_login", now).Error; err != nil {
		return nil, err
	}
	user.LastLogin = &now

	redirect := user.Role.LandingPath()
	if next := SafeNext(req.Next); next != "" {
		redirect = next
	}

	return &LoginResult{
		Token:    token,
		ExpireAt: now.Add(time.Duration(s.sessionCfg.ExpireHour) * time.Hour),
		User:     &user,
		Redirect: redirect,
	}, nil
}

// SafeNext returns next when it is a same-site relative path, else "".
func SafeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return next
}

func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("User not found.")
		}
		return nil, err
	}
	return &user, nil
}

// GetProfile loads a public profile by username.
func (s *AuthService) GetProfile(viewerID uint, username string) (*ProfileView, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("User not found.")
		}
		return nil, err
	}
	return &ProfileView{
		User:         &user,
		RoleLabel:    user.Role.Label(),
		Instruments:  user.InstrumentLabels(),
		Genres:       user.GenreLabels(),
		IsOwnProfile: user.ID == viewerID,
	}, nil
}

// UpdateProfile edits the caller's own profile. Musicians may change
// instruments and bio; bands only username, location and genres. The role
// itself never changes here.
func (s *AuthService) UpdateProfile(userID uint, role models.Role, req *ProfileUpdateRequest) (*models.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user.Role != role {
		return nil, response.NewForbidden("This profile page is not available for your account type.")
	}

	username := strings.TrimSpace(req.Username)
	location := strings.TrimSpace(req.Location)

	fields := FieldErrors{}
	if username != user.Username {
		if msg := validateUsername(username); msg != "" {
			fields.Add("username", msg)
		} else if taken, err := s.usernameTaken(username, user.ID); err != nil {
			return nil, err
		} else if taken {
			fields.Add("username", "This username is already taken.")
		}
	}
	if len([]rune(location)) > 100 {
		fields.Add("location", "Location cannot exceed 100 characters.")
	}
	if !fields.Empty() {
		return nil, response.NewValidation(fields)
	}

	updates := map[string]interface{}{
		"username": username,
		"location": location,
		"genres":   models.Genres.Normalize(req.Genres),
	}
	switch role {
	case models.RoleMusician:
		updates["instruments"] = models.Instruments.Normalize(req.Instruments)
		updates["bio"] = strings.TrimSpace(req.Bio)
	case models.RoleBand:
	case models.RoleAdmin:
		return nil, response.NewForbidden("This profile page is not available for your account type.")
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.NewValidation(FieldErrors{"username": "This username is already taken."})
		}
		return nil, err
	}
	return s.GetUserByID(userID)
}

// CreateAdminIfNotExists bootstraps an administrator when none exists and a
// password is configured.
func (s *AuthService) CreateAdminIfNotExists(cfg *config.AdminConfig) error {
	if cfg == nil || cfg.Password == "" {
		return nil
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword(cfg.Password)
	if err != nil {
		return err
	}
	admin := models.User{
		Username: cfg.Username,
		Email:    strings.ToLower(strings.TrimSpace(cfg.Email)),
		Password: hash,
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := s.db.Create(&admin).Error; err != nil {
		return err
	}
	logger.Infof("[Auth] Administrator %q created", admin.Username)
	return nil
}

func (s *AuthService) usernameTaken(username string, exceptID uint) (bool, error) {
	var count int64
	q := s.db.Model(&models.User{}).Where("username = ?", username)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *AuthService) emailTaken(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
