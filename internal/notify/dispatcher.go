package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/i474232898/weather-monitor/internal/metrics"
	"github.com/i474232898/weather-monitor/internal/weather"
)

const defaultSendTimeout = 30 * time.Second

// SendError reports a failed alert notification.
type SendError struct {
	City string
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("alert for %s: %v", e.City, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Dispatcher turns alert events into notifications. Events are queued by
// Publish and delivered by the Run loop, so notification latency never
// holds up persistence. Delivery is best effort: failures are logged, not retried.
type Dispatcher struct {
	sender      Sender
	recipient   string
	queue       chan weather.Alert
	sendTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewDispatcher creates a Dispatcher with a bounded event queue. m may be nil.
func NewDispatcher(sender Sender, recipient string, queueSize int, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		sender:      sender,
		recipient:   recipient,
		queue:       make(chan weather.Alert, queueSize),
		sendTimeout: defaultSendTimeout,
		logger:      logger,
		metrics:     m,
	}
}

// Publish queues an alert without blocking. When the queue is full the alert
// is dropped and counted.
func (d *Dispatcher) Publish(_ context.Context, alert weather.Alert) {
	select {
	case d.queue <- alert:
		d.metrics.ObserveAlert("queued")
	default:
		d.metrics.ObserveAlert("dropped")
		d.logger.Error("alert dropped, queue full",
			"city", alert.City,
			"temperature", alert.Temperature.StringFixed(2),
			"queue_size", cap(d.queue),
		)
	}
}

// Run delivers queued alerts until ctx is cancelled, then flushes whatever is
// still buffered.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case a := <-d.queue:
			d.deliver(a)
		case <-ctx.Done():
			d.flush()
			return
		}
	}
}

func (d *Dispatcher) flush() {
	for {
		select {
		case a := <-d.queue:
			d.deliver(a)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(a weather.Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()
	d.Dispatch(ctx, a.City, a.Temperature)
}

// Dispatch sends the alert notification for city synchronously. Errors are
// logged and swallowed.
func (d *Dispatcher) Dispatch(ctx context.Context, city string, temperature decimal.Decimal) {
	msg := AlertMessage(d.recipient, city, temperature)
	if err := d.sender.Send(ctx, msg); err != nil {
		d.metrics.ObserveAlert("failed")
		d.logger.Error("error sending alert email",
			"city", city,
			"error", &SendError{City: city, Err: err},
		)
		return
	}
	d.metrics.ObserveAlert("sent")
	d.logger.Info("alert email sent", "city", city, "temperature", temperature.StringFixed(2))
}

// AlertMessage renders the fixed alert template.
func AlertMessage(to, city string, temperature decimal.Decimal) Message {
	return Message{
		To:      to,
		Subject: fmt.Sprintf("Weather Alert for %s", city),
		Body:    fmt.Sprintf("The temperature in %s has exceeded the threshold: %s°C", city, temperature.StringFixed(2)),
	}
}
