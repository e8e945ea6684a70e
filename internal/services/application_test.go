package services

import (
	"net/http"
	"testing"

	"github.com/harmonix/backend/internal/models"
	"gorm.io/gorm"
)

type applicationFixture struct {
	db       *gorm.DB
	svc      *ApplicationService
	band     *models.User
	musician *models.User
	listing  *models.Listing
}

func newApplicationFixture(t *testing.T) *applicationFixture {
	db := newTestDB(t)
	band := createUser(t, db, "bandlead", models.RoleBand)
	return &applicationFixture{
		db:       db,
		svc:      NewApplicationService(db),
		band:     band,
		musician: createUser(t, db, "riffmaster", models.RoleMusician),
		listing:  createListing(t, db, band, "Lead Guitarist Wanted"),
	}
}

func (f *applicationFixture) count(t *testing.T) int64 {
	t.Helper()
	var n int64
	f.db.Model(&models.Application{}).Where("musician_id = ? AND listing_id = ?", f.musician.ID, f.listing.ID).Count(&n)
	return n
}

func TestApply_AcceptThenReapply(t *testing.T) {
	f := newApplicationFixture(t)

	result, err := f.svc.Apply(f.listing.ID, f.musician.ID, models.RoleMusician, &ApplyRequest{Message: "I play lead."})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if result.Application.Status != models.ApplicationPending {
		t.Fatalf("status = %q, want pending", result.Application.Status)
	}
	if result.Message != "Your application to 'Lead Guitarist Wanted' has been submitted!" {
		t.Errorf("message = %q", result.Message)
	}

	_, err = f.svc.Apply(f.listing.ID, f.musician.ID, models.RoleMusician, &ApplyRequest{Message: "Again"})
	if appError(t, err, http.StatusConflict).Message != "You have already applied to this listing." {
		t.Error("second submit should conflict")
	}

	accepted, err := f.svc.UpdateStatus(result.Application.ID, f.band.ID, &StatusRequest{Status: "accepted"})
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if accepted.Status != models.ApplicationAccepted {
		t.Errorf("status = %q, want accepted", accepted.Status)
	}

	_, err = f.svc.Apply(f.listing.ID, f.musician.ID, models.RoleMusician, &ApplyRequest{Draft: true})
	appError(t, err, http.StatusConflict)

	if n := f.count(t); n != 1 {
		t.Errorf("application rows = %d, want 1", n)
	}
}

func TestApply_DraftThenSubmit(t *testing.T) {
	f := newApplicationFixture(t)

	draft, err := f.svc.Apply(f.listing.ID, f.musician.ID, models.RoleMusician, &ApplyRequest{Message: "first", Draft: true})
	if err != nil {
		t.Fatalf("Apply(draft) error = %v", err)
	}
	if draft.Application.Status != models.ApplicationDraft {
		t.Fatalf("status = %q, want draft", draft.Application.Status)
	}

	if _, err := f.svc.Apply(f.listing.ID, f.musician.ID, models.RoleMusician, &ApplyRequest{Message: "second", Draft: true}); err != nil {
		t.Fatalf("Apply(draft again) error = %v", err)
	}

	submitted, err := f.svc.Apply(f.listing.ID, f.musician.ID, models.RoleMusician, &ApplyRequest{Message: "final"})
	if err != nil {
		t.Fatalf("Apply(submit) error = %v", err)
	}
	if submitted.Application.ID != draft.Application.ID {
		t.Error("submit should promote the existing draft")
	}

	var stored models.Application
	f.db.First(&stored, draft.Application.ID)
	if stored.Status != models.ApplicationPending || stored.Message != "final" {
		t.Errorf("stored = %q/%q, want pending/final", stored.Status, stored.Message)
	}
	if n := f.count(t); n != 1 {
		t.Errorf("application rows = %d, want 1", n)
	}
}

func TestApply_Guards(t *testing.T) {
	f := newApplicationFixture(t)

	_, err := f.svc.Apply(f.listing.ID, f.band.ID, models.RoleBand, &ApplyRequest{})
	appError(t, err, http.StatusForbidden)

	_, err = f.svc.Apply(9999, f.musician.ID, models.RoleMusician, &ApplyRequest{})
	appError(t, err, http.StatusNotFound)

	f.db.Model(f.listing).Update("is_active", false)
	_, err = f.svc.Apply(f.listing.ID, f.musician.ID, models.RoleMusician, &ApplyRequest{})
	appError(t, err, http.StatusNotFound)
}

func TestUpdateStatus_Rules(t *testing.T) {
	f := newApplicationFixture(t)
	other := createUser(t, f.db, "otherband", models.RoleBand)

	result, err := f.svc.Apply(f.listing.ID, f.musician.ID, models.RoleMusician, &ApplyRequest{})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	id := result.Application.ID

	_, err = f.svc.UpdateStatus(id, other.ID, &StatusRequest{Status: "accepted"})
	appError(t, err, http.StatusForbidden)

	_, err = f.svc.UpdateStatus(id, f.band.ID, &StatusRequest{Status: "draft"})
	if appError(t, err, http.StatusBadRequest).Message != "Invalid status provided." {
		t.Error("only accepted/rejected are valid targets")
	}

	var stored models.Application
	f.db.First(&stored, id)
	if stored.Status != models.ApplicationPending {
		t.Fatalf("status = %q, want unchanged pending", stored.Status)
	}

	if _, err := f.svc.UpdateStatus(id, f.band.ID, &StatusRequest{Status: "rejected"}); err != nil {
		t.Fatalf("UpdateStatus(rejected) error = %v", err)
	}
	_, err = f.svc.UpdateStatus(id, f.band.ID, &StatusRequest{Status: "accepted"})
	appError(t, err, http.StatusBadRequest)
}

func TestWithdraw_Rules(t *testing.T) {
	f := newApplicationFixture(t)
	intruder := createUser(t, f.db, "intruder", models.RoleMusician)

	result, err := f.svc.Apply(f.listing.ID, f.musician.ID, models.RoleMusician, &ApplyRequest{})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	id := result.Application.ID

	_, err = f.svc.Withdraw(id, intruder.ID)
	appError(t, err, http.StatusForbidden)

	title, err := f.svc.Withdraw(id, f.musician.ID)
	if err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}
	if title != "Lead Guitarist Wanted" {
		t.Errorf("title = %q", title)
	}
	if n := f.count(t); n != 0 {
		t.Errorf("application rows = %d, want 0", n)
	}

	// a reviewed application stays
	result, _ = f.svc.Apply(f.listing.ID, f.musician.ID, models.RoleMusician, &ApplyRequest{})
	if _, err := f.svc.UpdateStatus(result.Application.ID, f.band.ID, &StatusRequest{Status: "accepted"}); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	_, err = f.svc.Withdraw(result.Application.ID, f.musician.ID)
	appError(t, err, http.StatusBadRequest)
	if n := f.count(t); n != 1 {
		t.Errorf("application rows = %d, want 1", n)
	}
}

func TestMyApplications(t *testing.T) {
	f := newApplicationFixture(t)
	admin := createUser(t, f.db, "admin", models.RoleAdmin)
	second := createListing(t, f.db, f.band, "Drummer for Weekend Gigs")

	if _, err := f.svc.Apply(f.listing.ID, f.musician.ID, models.RoleMusician, &ApplyRequest{}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if _, err := f.svc.Apply(second.ID, f.musician.ID, models.RoleMusician, &ApplyRequest{Draft: true}); err != nil {
		t.Fatalf("Apply(draft) error = %v", err)
	}

	tests := []struct {
		name     string
		userID   uint
		role     models.Role
		want     int
		received bool
	}{
		{"musician sees drafts", f.musician.ID, models.RoleMusician, 2, false},
		{"band sees submitted", f.band.ID, models.RoleBand, 1, true},
		{"admin sees submitted", admin.ID, models.RoleAdmin, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.svc.MyApplications(tt.userID, tt.role)
			if err != nil {
				t.Fatalf("MyApplications() error = %v", err)
			}
			if len(resp.Applications) != tt.want {
				t.Errorf("got %d applications, want %d", len(resp.Applications), tt.want)
			}
			if resp.Received != tt.received {
				t.Errorf("Received = %v, want %v", resp.Received, tt.received)
			}
		})
	}

	other := createUser(t, f.db, "otherband", models.RoleBand)
	resp, _ := f.svc.MyApplications(other.ID, models.RoleBand)
	if len(resp.Applications) != 0 {
		t.Errorf("another band should see nothing, got %d", len(resp.Applications))
	}
}
