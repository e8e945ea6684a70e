package services

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/harmonix/backend/internal/models"
)

func TestSystemLog_WriteAndList(t *testing.T) {
	db := newTestDB(t)
	InitSystemLogger(db)
	t.Cleanup(func() { InitSystemLogger(nil) })

	uid := uint(7)
	LogInfo("accounts", "login", "User riffmaster logged in", &uid, "10.0.0.1", "curl/8.0", nil)
	LogWarning("listings", "update", "Listing edited", &uid, "", "", nil)
	LogError("email", "delivery_failed", "Email failed after 3 attempts", nil, "", "", map[string]interface{}{"delivery_id": 3})

	svc := NewSystemLogService(db)
	resp, err := svc.List(&SystemLogListRequest{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if resp.Total != 3 || resp.Page != 1 || resp.PageSize != 20 {
		t.Errorf("total=%d page=%d page_size=%d", resp.Total, resp.Page, resp.PageSize)
	}
	if resp.Items[0].Module != "email" {
		t.Errorf("newest first, got %q", resp.Items[0].Module)
	}

	var extra map[string]interface{}
	if err := json.Unmarshal([]byte(resp.Items[0].Extra), &extra); err != nil || extra["delivery_id"] != float64(3) {
		t.Errorf("extra = %q", resp.Items[0].Extra)
	}

	tests := []struct {
		name string
		req  SystemLogListRequest
		want int64
	}{
		{"level", SystemLogListRequest{Level: models.LogLevelError}, 1},
		{"module", SystemLogListRequest{Module: "accounts"}, 1},
		{"action", SystemLogListRequest{Action: "deliv"}, 1},
		{"search", SystemLogListRequest{Search: "riffmaster"}, 1},
		{"today", SystemLogListRequest{StartDate: time.Now().Format("2006-01-02")}, 3},
		{"before today", SystemLogListRequest{EndDate: time.Now().AddDate(0, 0, -1).Format("2006-01-02")}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			resp, err := svc.List(&req)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if resp.Total != tt.want {
				t.Errorf("total = %d, want %d", resp.Total, tt.want)
			}
		})
	}

	modules, err := svc.GetModules()
	if err != nil {
		t.Fatalf("GetModules() error = %v", err)
	}
	if want := []string{"accounts", "email", "listings"}; !reflect.DeepEqual(modules, want) {
		t.Errorf("modules = %v, want %v", modules, want)
	}
}

func TestSystemLog_NoopWithoutDB(t *testing.T) {
	InitSystemLogger(nil)
	// must not panic
	LogInfo("accounts", "login", "ignored", nil, "", "", nil)
}

func TestCleanupOldLogs(t *testing.T) {
	db := newTestDB(t)
	svc := NewSystemLogService(db)

	db.Create(&models.SystemLog{Level: models.LogLevelInfo, Module: "accounts", Message: "old", CreatedAt: time.Now().AddDate(0, 0, -40)})
	db.Create(&models.SystemLog{Level: models.LogLevelInfo, Module: "accounts", Message: "recent", CreatedAt: time.Now().AddDate(0, 0, -2)})

	if n, _ := svc.CleanupOldLogs(0); n != 0 {
		t.Errorf("disabled cleanup removed %d rows", n)
	}

	n, err := svc.CleanupOldLogs(30)
	if err != nil {
		t.Fatalf("CleanupOldLogs() error = %v", err)
	}
	if n != 1 {
		t.Errorf("removed %d rows, want 1", n)
	}

	var left []models.SystemLog
	db.Find(&left)
	if len(left) != 1 || left[0].Message != "recent" {
		t.Errorf("remaining = %+v", left)
	}
}
