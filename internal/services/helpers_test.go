package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/harmonix/backend/internal/config"
	"github.com/harmonix/backend/internal/models"
	"github.com/harmonix/backend/internal/utils"
	"github.com/harmonix/backend/pkg/response"
	"gorm.io/gorm"
)

const testPassword = "Str0ng!Pass"

func init() {
	utils.SetJWTSecret("services-test-secret")
}

// newTestDB returns a migrated in-memory sqlite database private to t.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + name + "?mode=memory&cache=shared",
	}, "error")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// one connection keeps the pragma and the shared cache consistent
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.MigrateDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		Username:    username,
		Email:       username + "@example.com",
		Password:    hash,
		Role:        role,
		IsActive:    true,
		Instruments: models.StringList{"Guitar"},
		Genres:      models.StringList{"Rock"},
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func validListingRequest(title string) *ListingRequest {
	return &ListingRequest{
		Title:             title,
		BandName:          "The Night Owls",
		Description:       "We are an indie rock band looking for committed players for weekly rehearsals and gigs.",
		InstrumentsNeeded: []string{"Guitar", "Vocals"},
		Genres:            []string{"Rock"},
		Location:          "Manila, Philippines",
	}
}

func createListing(t *testing.T, db *gorm.DB, owner *models.User, title string) *models.Listing {
	t.Helper()
	svc := NewListingService(db, &config.ListingsConfig{PageSize: 4})
	listing, err := svc.Create(owner.ID, owner.Role, validListingRequest(title))
	if err != nil {
		t.Fatalf("create listing %q: %v", title, err)
	}
	return listing
}

// appError asserts err is an *AppError with the given status.
func appError(t *testing.T, err error, status int) *response.AppError {
	t.Helper()
	var appErr *response.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError with status %d, got %v", status, err)
	}
	if appErr.HTTPStatus != status {
		t.Fatalf("status = %d, want %d (%s)", appErr.HTTPStatus, status, appErr.Message)
	}
	return appErr
}
