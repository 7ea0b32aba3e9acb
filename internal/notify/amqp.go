package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/metinatakli/cinex-booking/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

const DefaultQueue = "booking.confirmed"

type BookingConfirmedEvent struct {
	BookingNumber string               `json:"bookingNumber"`
	ScreeningID   int                  `json:"screeningId"`
	Title         string               `json:"title"`
	StartsAt      time.Time            `json:"startsAt"`
	Status        domain.BookingStatus `json:"status"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	TotalAmount   string               `json:"totalAmount"`
	Seats         []seatLine           `json:"seats"`
	ConfirmedAt   time.Time            `json:"confirmedAt"`
}

// AMQPPublisher publishes a BookingConfirmedEvent for every CONFIRMED booking to a
// durable queue on the default exchange. Bookings still awaiting payment are skipped.
type AMQPPublisher struct {
	url     string
	queue   string
	catalog domain.CatalogRepository
}

func NewAMQPPublisher(url, queue string, catalog domain.CatalogRepository) *AMQPPublisher {
	if queue == "" {
		queue = DefaultQueue
	}

	return &AMQPPublisher{
		url:     url,
		queue:   queue,
		catalog: catalog,
	}
}

func (p *AMQPPublisher) BookingCommitted(ctx context.Context, booking domain.Booking) error {
	if booking.Status != domain.BookingStatusConfirmed {
		return nil
	}

	body, err := p.eventBody(ctx, booking)
	if err != nil {
		return err
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq: dial failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: channel open failed: %w", err)
	}
	defer func() { _ = ch.Close() }()

	_, err = ch.QueueDeclare(p.queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq: queue declare failed: %w", err)
	}

	err = ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    booking.Number,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq: publish failed: %w", err)
	}

	return nil
}

func (p *AMQPPublisher) eventBody(ctx context.Context, booking domain.Booking) ([]byte, error) {
	details, err := describe(ctx, p.catalog, booking)
	if err != nil {
		return nil, err
	}

	event := BookingConfirmedEvent{
		BookingNumber: booking.Number,
		ScreeningID:   booking.ScreeningID,
		Title:         details.Title,
		StartsAt:      details.StartsAt,
		Status:        booking.Status,
		PaymentMethod: booking.PaymentMethod,
		TotalAmount:   details.Total,
		Seats:         details.Seats,
		ConfirmedAt:   booking.CreatedAt.UTC(),
	}

	return json.Marshal(event)
}
