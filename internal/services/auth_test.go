package services

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/harmonix/backend/internal/config"
	"github.com/harmonix/backend/internal/models"
	"github.com/harmonix/backend/internal/utils"
	"github.com/harmonix/backend/pkg/response"
)

func newAuthService(t *testing.T) (*AuthService, *config.SessionConfig) {
	db := newTestDB(t)
	cfg := &config.SessionConfig{Secret: "services-test-secret", ExpireHour: 24, CookieName: "harmonix_session"}
	return NewAuthService(db, cfg), cfg
}

func registerRequest(username, email string) *RegisterRequest {
	return &RegisterRequest{
		Username:    username,
		Email:       email,
		Password1:   testPassword,
		Password2:   testPassword,
		Role:        "musician",
		Instruments: []string{"guitar", "Vocals"},
		Genres:      []string{"rock"},
	}
}

func TestRegister_Success(t *testing.T) {
	svc, _ := newAuthService(t)

	user, err := svc.Register(registerRequest("riffmaster", "Riff@Example.com"))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Email != "riff@example.com" {
		t.Errorf("Email = %q, want lower-cased", user.Email)
	}
	if user.Role != models.RoleMusician {
		t.Errorf("Role = %q, want musician", user.Role)
	}
	if user.Password == testPassword || !utils.CheckPassword(testPassword, user.Password) {
		t.Error("password should be stored as a bcrypt hash")
	}
	if got := user.Instruments.Joined(); got != "Guitar, Vocals" {
		t.Errorf("Instruments = %q, want %q", got, "Guitar, Vocals")
	}
}

func TestRegister_DuplicateUsernameAndEmail(t *testing.T) {
	svc, _ := newAuthService(t)
	if _, err := svc.Register(registerRequest("riffmaster", "riff@example.com")); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	_, err := svc.Register(registerRequest("riffmaster", "RIFF@example.com"))
	appErr := appError(t, err, http.StatusBadRequest)
	if appErr.Fields["username"] != "This username is already taken." {
		t.Errorf("username error = %q", appErr.Fields["username"])
	}
	if appErr.Fields["email"] == "" {
		t.Error("expected an email error")
	}

	var count int64
	svc.db.Model(&models.User{}).Count(&count)
	if count != 1 {
		t.Errorf("user count = %d, want 1", count)
	}
}

func TestRegister_UniquenessCheckFailure(t *testing.T) {
	svc, _ := newAuthService(t)
	if err := svc.db.Migrator().DropTable(&models.User{}); err != nil {
		t.Fatalf("drop users: %v", err)
	}

	_, err := svc.Register(registerRequest("riffmaster", "riff@example.com"))
	if err == nil {
		t.Fatal("Register() should fail when the users table is unreadable")
	}
	var appErr *response.AppError
	if errors.As(err, &appErr) {
		t.Errorf("got %d %q, want the storage error", appErr.HTTPStatus, appErr.Message)
	}
	if response.StatusOf(err) != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", response.StatusOf(err))
	}
}

func TestRegister_DeletedAccountFreesUsername(t *testing.T) {
	svc, _ := newAuthService(t)
	user, err := svc.Register(registerRequest("riffmaster", "riff@example.com"))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := svc.db.Delete(&models.User{}, user.ID).Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}

	if _, err := svc.Register(registerRequest("riffmaster", "riff@example.com")); err != nil {
		t.Errorf("Register() after delete error = %v", err)
	}
}

func TestRegister_ReportsEveryField(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.Register(&RegisterRequest{
		Username:  "a!",
		Email:     "not-an-email",
		Password1: "short",
		Password2: "different",
		Role:      "admin",
	})
	appErr := appError(t, err, http.StatusBadRequest)
	for _, field := range []string{"username", "email", "password1", "password2", "role"} {
		if appErr.Fields[field] == "" {
			t.Errorf("expected an error for %s, got %v", field, appErr.Fields)
		}
	}
}

func TestRegister_RoleRequirements(t *testing.T) {
	svc, _ := newAuthService(t)

	musician := registerRequest("drummer1", "drummer1@example.com")
	musician.Instruments = nil
	_, err := svc.Register(musician)
	if appError(t, err, http.StatusBadRequest).Fields["instruments"] == "" {
		t.Error("musicians need at least one instrument")
	}

	band := registerRequest("bandlead", "band@example.com")
	band.Role = "band"
	band.Instruments = nil
	band.Genres = nil
	_, err = svc.Register(band)
	fields := appError(t, err, http.StatusBadRequest).Fields
	if fields["genres"] == "" {
		t.Error("bands need at least one genre")
	}
	if _, ok := fields["instruments"]; ok {
		t.Error("bands do not pick instruments")
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		want     string
	}{
		{testPassword, ""},
		{"", "Password is required."},
		{"Ab1!", "Password must be at least 8 characters long."},
		{"Password", "This password is too common. Please choose a stronger password."},
		{"alllowercase", "Password must contain at least one: uppercase letter, number, special character."},
		{"NoSpecial123", "Password must contain at least one special character."},
	}
	for _, tt := range tests {
		if got := validatePassword(tt.password); got != tt.want {
			t.Errorf("validatePassword(%q) = %q, want %q", tt.password, got, tt.want)
		}
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newAuthService(t)
	createUser(t, svc.db, "riffmaster", models.RoleMusician)

	for _, req := range []*LoginRequest{
		{Username: "riffmaster", Password: "wrong"},
		{Username: "nobody", Password: testPassword},
		{Username: "", Password: ""},
	} {
		_, err := svc.Login(req)
		if appError(t, err, http.StatusUnauthorized).Message != "Invalid username or password!" {
			t.Errorf("Login(%q) should fail with the generic message", req.Username)
		}
	}

	result, err := svc.Login(&LoginRequest{Username: "riffmaster", Password: testPassword})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Token == "" {
		t.Error("expected a session token")
	}
	if result.Redirect != "/listings/" {
		t.Errorf("Redirect = %q, want /listings/", result.Redirect)
	}

	stored, _ := svc.GetUserByID(result.User.ID)
	if stored.LastLogin == nil {
		t.Error("last_login should be recorded")
	}

	claims, err := utils.ParseToken(result.Token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Role != "musician" || claims.UserID != result.User.ID {
		t.Errorf("claims = %+v", claims)
	}
}

func TestLogin_InactiveAccount(t *testing.T) {
	svc, _ := newAuthService(t)
	user := createUser(t, svc.db, "retired", models.RoleMusician)
	svc.db.Model(user).Update("is_active", false)

	_, err := svc.Login(&LoginRequest{Username: "retired", Password: testPassword})
	appError(t, err, http.StatusUnauthorized)
}

func TestLogin_Next(t *testing.T) {
	svc, _ := newAuthService(t)
	createUser(t, svc.db, "bandlead", models.RoleBand)

	result, err := svc.Login(&LoginRequest{Username: "bandlead", Password: testPassword, Next: "/invitations/sent"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if result.Redirect != "/invitations/sent" {
		t.Errorf("Redirect = %q, want the next path", result.Redirect)
	}

	result, _ = svc.Login(&LoginRequest{Username: "bandlead", Password: testPassword, Next: "https://evil.example/"})
	if result.Redirect != "/listings/" {
		t.Errorf("Redirect = %q, external next must be ignored", result.Redirect)
	}
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                          "",
		"/listings/3":               "/listings/3",
		"//evil.example":            "",
		"https://evil.example/":     "",
		"listings":                  "",
		`/\evil.example`:            "",
		"/listings/?genre=rock&p=2": "/listings/?genre=rock&p=2",
	}
	for in, want := range tests {
		if got := SafeNext(in); got != want {
			t.Errorf("SafeNext(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newAuthService(t)
	musician := createUser(t, svc.db, "riffmaster", models.RoleMusician)
	createUser(t, svc.db, "taken_name", models.RoleMusician)

	_, err := svc.UpdateProfile(musician.ID, models.RoleMusician, &ProfileUpdateRequest{Username: "taken_name"})
	if appError(t, err, http.StatusBadRequest).Fields["username"] != "This username is already taken." {
		t.Error("expected a username conflict")
	}

	updated, err := svc.UpdateProfile(musician.ID, models.RoleMusician, &ProfileUpdateRequest{
		Username:    "riffmaster",
		Location:    "Cebu, Philippines",
		Bio:         "  Session guitarist.  ",
		Instruments: []string{"bass, drums"},
		Genres:      []string{"jazz"},
	})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated.Bio != "Session guitarist." {
		t.Errorf("Bio = %q", updated.Bio)
	}
	if got := strings.Join(updated.Instruments, "|"); got != "Bass|Drums" {
		t.Errorf("Instruments = %q, want Bass|Drums", got)
	}
	if updated.Role != models.RoleMusician {
		t.Error("role must not change")
	}

	_, err = svc.UpdateProfile(musician.ID, models.RoleBand, &ProfileUpdateRequest{Username: "riffmaster"})
	appError(t, err, http.StatusForbidden)
}

func TestCreateAdminIfNotExists(t *testing.T) {
	svc, _ := newAuthService(t)

	if err := svc.CreateAdminIfNotExists(&config.AdminConfig{Username: "admin", Email: "admin@example.com"}); err != nil {
		t.Fatalf("CreateAdminIfNotExists() error = %v", err)
	}
	var count int64
	svc.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	if count != 0 {
		t.Fatal("no admin should be created without a password")
	}

	cfg := &config.AdminConfig{Username: "admin", Email: "admin@example.com", Password: testPassword}
	for i := 0; i < 2; i++ {
		if err := svc.CreateAdminIfNotExists(cfg); err != nil {
			t.Fatalf("CreateAdminIfNotExists() error = %v", err)
		}
	}
	svc.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count)
	if count != 1 {
		t.Errorf("admin count = %d, want 1", count)
	}
}
