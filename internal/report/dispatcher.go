package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/amqp"
	"spendwise/internal/core"
	"spendwise/internal/storage"
)

// RequestPublisher is the slice of the AMQP client the dispatcher needs.
type RequestPublisher interface {
	PublishReportRequest(ctx context.Context, queueName string, msg *amqp.ReportRequestMessage) error
}

// Dispatcher finds users whose report period has not been sent yet and
// enqueues one request per user. The worker consuming the queue does
// the heavy lifting; dispatching is cheap and runs on a timer.
type Dispatcher struct {
	storage   *storage.SQLiteRepository
	publisher RequestPublisher
	queue     string
}

func NewDispatcher(storage *storage.SQLiteRepository, publisher RequestPublisher, queue string) *Dispatcher {
	return &Dispatcher{
		storage:   storage,
		publisher: publisher,
		queue:     queue,
	}
}

// DispatchDue enqueues report requests for every user whose cadence
// matches an unsent period. Duplicate suppression happens twice: here
// via ReportAlreadySent, and again in the worker before sending.
func (d *Dispatcher) DispatchDue(ctx context.Context, now time.Time) (int, error) {
	total := 0
	for _, cadence := range []core.ThresholdType{core.ThresholdMonthly, core.ThresholdWeekly} {
		n, err := d.dispatchCadence(ctx, cadence, now)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (d *Dispatcher) dispatchCadence(ctx context.Context, cadence core.ThresholdType, now time.Time) (int, error) {
	period := PeriodFor(cadence, now)
	if period == "" {
		return 0, nil
	}

	users, err := d.storage.ListReportRecipients(ctx, cadence)
	if err != nil {
		return 0, fmt.Errorf("list %s report recipients: %w", cadence, err)
	}
	if len(users) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	dispatched := make(chan int64, len(users))
	for _, user := range users {
		user := user
		g.Go(func() error {
			sent, err := d.storage.ReportAlreadySent(gctx, user.ID, period)
			if err != nil {
				return fmt.Errorf("check report history for user %d: %w", user.ID, err)
			}
			if sent {
				return nil
			}

			msg := amqp.NewReportRequestMessage(user.ID, period, string(cadence))
			if err := d.publisher.PublishReportRequest(gctx, d.queue, msg); err != nil {
				return fmt.Errorf("publish report request for user %d: %w", user.ID, err)
			}
			dispatched <- user.ID
			return nil
		})
	}

	err = g.Wait()
	close(dispatched)
	count := len(dispatched)

	slog.InfoContext(ctx, "Report dispatch pass complete",
		"cadence", cadence,
		"period", period,
		"recipients", len(users),
		"dispatched", count)

	return count, err
}
