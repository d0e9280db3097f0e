package notify

import (
	"context"
	"errors"
	"fmt"

	"flight-sniper/models"
	"flight-sniper/utils"
)

// Notifier delivers one alert.
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}

// LogNotifier writes alerts to the application log.
type LogNotifier struct {
	logger *utils.Logger
}

func NewLogNotifier(logger *utils.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "notify")}
}

func (n *LogNotifier) Notify(_ context.Context, a models.Alert) error {
	n.logger.Info("[alert] %s %s %s: R$ %s %s %s (target R$ %s, baseline %s) %s",
		a.Status.Label(), a.Route, a.Date, a.Price.StringFixed(2), a.Carrier, a.DepartureTime,
		a.Target.StringFixed(2), a.Baseline, a.Link)
	return nil
}

// Multi fans an alert out to every notifier. All are tried; errors are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, alert models.Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", n, err))
		}
	}
	return errors.Join(errs...)
}
