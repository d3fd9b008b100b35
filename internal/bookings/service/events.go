package service

import (
	"context"
	"time"

	"carhive/pkg/config"
	"carhive/pkg/kafka"
	kafka_config "carhive/pkg/kafka/config"
	"carhive/pkg/logger"
	"carhive/pkg/model"
)

const (
	EventBookingCreated    = "booking.created"
	EventBookingUpdated    = "booking.updated"
	EventBookingCancelled  = "booking.cancelled"
	EventBookingExpired    = "booking.expired"
	EventPaymentReconciled = "payment.reconciled"

	EventsTopic    = "carhive.bookings"
	EventsDLQTopic = "carhive.bookings.dlq"

	eventSchemaVersion = "1"
	publishTimeout     = 5 * time.Second
)

// BookingEvent is the payload published on every booking lifecycle change.
type BookingEvent struct {
	BookingID     string    `json:"booking_id"`
	UserID        string    `json:"user_id,omitempty"`
	VehicleID     string    `json:"vehicle_id"`
	VehicleName   string    `json:"vehicle_name,omitempty"`
	PickupDate    time.Time `json:"pickup_date"`
	ReturnDate    time.Time `json:"return_date"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
}

// EventPublisher emits booking lifecycle events. Publishing is best-effort
// and happens after the transaction commits; a broker outage never fails a
// booking operation.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, booking *model.Booking)
	Close() error
}

type kafkaEventPublisher struct {
	producer *kafka.Producer
	source   string
	log      *logger.Logger
}

// NewEventPublisher returns a Kafka-backed publisher, or a no-op one when
// events are disabled in configuration.
func NewEventPublisher(cfg *config.Config, source string) (EventPublisher, error) {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Booking events disabled, using no-op publisher")
		return noopPublisher{}, nil
	}

	kafkaCfg := kafka_config.Load()
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, EventsTopic, EventsDLQTopic)
	if err != nil {
		return nil, err
	}

	return &kafkaEventPublisher{
		producer: producer,
		source:   source,
		log:      cfg.Log,
	}, nil
}

func (p *kafkaEventPublisher) Publish(ctx context.Context, eventType string, booking *model.Booking) {
	event := BookingEvent{
		BookingID:     booking.ID,
		UserID:        booking.UserID,
		VehicleID:     booking.Vehicle.ID,
		VehicleName:   booking.Vehicle.DisplayName(),
		PickupDate:    booking.PickupDate,
		ReturnDate:    booking.ReturnDate,
		Amount:        booking.Amount,
		Status:        booking.Status,
		PaymentStatus: booking.PaymentStatus,
	}

	msg := kafka.NewMessage().
		WithKey(booking.ID).
		WithEventType(eventType).
		WithSchemaVersion(eventSchemaVersion).
		WithSource(p.source).
		WithValue(event).
		Build()

	// Detached from the request context so an almost-expired request still
	// gets its event out.
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.producer.Publish(publishCtx, msg); err != nil {
		p.log.Warn("Failed to publish booking event",
			"event_type", eventType,
			"booking_id", booking.ID,
			"error", err,
		)
		return
	}

	p.log.Debug("Published booking event",
		"event_type", eventType,
		"booking_id", booking.ID,
	)
}

func (p *kafkaEventPublisher) Close() error {
	return p.producer.Close()
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, *model.Booking) {}

func (noopPublisher) Close() error { return nil }
