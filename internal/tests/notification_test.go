package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"carpool/internal/domain"
	"carpool/internal/service"
)

func TestNotifySeatBooked_LogsData(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	notifications := service.NewNotificationService(slog.New(slog.NewJSONHandler(&buf, nil)))
	ride := &domain.Ride{ID: "r1", Captain: "bob", Passengers: []string{"alice"}, Route: "A-B", TotalSeats: 3, Fare: 200}

	notifications.NotifySeatBooked(context.Background(), ride, "alice")

	var entry struct {
		Type      string         `json:"type"`
		Recipient string         `json:"recipient"`
		Data      map[string]any `json:"data"`
		CreatedAt string         `json:"created_at"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry.Type != string(service.NotificationSeatBooked) || entry.Recipient != "bob" {
		t.Errorf("expected SEAT_BOOKED for bob, got %+v", entry)
	}
	if entry.Data["ride_id"] != "r1" || entry.Data["passenger"] != "alice" || entry.Data["fare"] != 200.0 {
		t.Errorf("expected ride data in log line, got %v", entry.Data)
	}
	if entry.CreatedAt == "" {
		t.Error("expected created_at in log line")
	}
}
