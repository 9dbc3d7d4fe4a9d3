package flash

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestRecorder_CollectsNotices tests notice ordering and last-wins navigation
func TestRecorder_CollectsNotices(t *testing.T) {
	rec := NewRecorder()
	Success(rec, "Welcome back!")
	Error(rec, "second")
	rec.Navigate("/doctor")
	rec.Navigate("/patient")

	notices := rec.Notices()
	if len(notices) != 2 {
		t.Fatalf("Expected 2 notices, got %d", len(notices))
	}
	if notices[0].Kind != KindSuccess || notices[0].Message != "Welcome back!" {
		t.Errorf("Unexpected first notice: %+v", notices[0])
	}
	if rec.Redirect() != "/patient" {
		t.Errorf("Expected last redirect '/patient', got %q", rec.Redirect())
	}
}

// TestWrite_FailureStatus tests the envelope written for failed operations
func TestWrite_FailureStatus(t *testing.T) {
	rec := NewRecorder()
	Error(rec, "User profile not found")

	w := httptest.NewRecorder()
	Write(w, rec, false, nil)

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", w.Code)
	}
	var res Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("Failed to decode: %v", err)
	}
	if res.Success {
		t.Error("Expected success false")
	}
	if len(res.Notifications) != 1 || res.Notifications[0].Kind != KindError {
		t.Errorf("Unexpected notifications: %+v", res.Notifications)
	}
}
