package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"carpool/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationSeatBooked    NotificationType = "SEAT_BOOKED"
	NotificationRideCancelled NotificationType = "RIDE_CANCELLED"
	NotificationRideCompleted NotificationType = "RIDE_COMPLETED"
	NotificationRated         NotificationType = "RATED"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string
	Title       string
	Message     string
	Data        map[string]any
	CreatedAt   time.Time
}

// NotificationService delivers notifications to the other party of an
// operation. Delivery is a structured log line; the UI collaborator polls
// state rather than receiving pushes.
type NotificationService struct {
	logger *slog.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{logger: logger}
}

// NotifySeatBooked tells the captain a passenger took a seat.
func (s *NotificationService) NotifySeatBooked(ctx context.Context, ride *domain.Ride, passenger string) {
	s.send(ctx, Notification{
		Type:        NotificationSeatBooked,
		RecipientID: ride.Captain,
		Title:       "Seat Booked",
		Message: fmt.Sprintf("%s booked a seat on %s. Seats: %d/%d",
			passenger, ride.Route, ride.OccupiedSeats(), ride.TotalSeats),
		Data: map[string]any{
			"ride_id":   ride.ID,
			"passenger": passenger,
			"fare":      ride.Fare,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyRideCancelled tells each recipient that cancelledBy cancelled.
func (s *NotificationService) NotifyRideCancelled(ctx context.Context, ride *domain.Ride, cancelledBy string, recipients []string) {
	for _, recipient := range recipients {
		s.send(ctx, Notification{
			Type:        NotificationRideCancelled,
			RecipientID: recipient,
			Title:       "Ride Cancelled",
			Message:     fmt.Sprintf("%s cancelled the ride on %s", cancelledBy, ride.Route),
			Data: map[string]any{
				"ride_id":      ride.ID,
				"cancelled_by": cancelledBy,
			},
			CreatedAt: time.Now(),
		})
	}
}

// NotifyRideCompleted tells every passenger the ride can now be rated.
func (s *NotificationService) NotifyRideCompleted(ctx context.Context, ride *domain.Ride) {
	for _, passenger := range ride.Passengers {
		s.send(ctx, Notification{
			Type:        NotificationRideCompleted,
			RecipientID: passenger,
			Title:       "Ride Completed",
			Message:     fmt.Sprintf("Your ride with %s is complete. You can now rate your captain.", ride.Captain),
			Data:        map[string]any{"ride_id": ride.ID},
			CreatedAt:   time.Now(),
		})
	}
}

// NotifyRated tells the rated user about a new rating.
func (s *NotificationService) NotifyRated(ctx context.Context, rated *domain.Account, by string, stars int) {
	s.send(ctx, Notification{
		Type:        NotificationRated,
		RecipientID: rated.Username,
		Title:       "New Rating",
		Message:     fmt.Sprintf("%s rated you %d stars", by, stars),
		Data: map[string]any{
			"stars":   stars,
			"average": rated.AverageRating(),
		},
		CreatedAt: time.Now(),
	})
}

func (s *NotificationService) send(ctx context.Context, n Notification) {
	s.logger.InfoContext(ctx, "notification",
		"type", n.Type,
		"recipient", n.RecipientID,
		"title", n.Title,
		"message", n.Message,
		slog.Any("data", n.Data),
		"created_at", n.CreatedAt,
	)
}
