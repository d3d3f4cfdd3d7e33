package workers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fediscus/fediscus/internal/activitypub"
	"github.com/fediscus/fediscus/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var deliveriesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fediscus_deliveries_total",
	Help: "Number of outbound deliveries by result",
}, []string{"result"})

// DeliveryProcessor posts queued activities to remote inboxes.
type DeliveryProcessor struct {
	db     *gorm.DB
	logger *slog.Logger

	// Interval is the pause between passes over the queue.
	Interval time.Duration
	// Transport is used for outbound requests, http.DefaultTransport if nil.
	Transport http.RoundTripper
}

func NewDeliveryProcessor(db *gorm.DB, logger *slog.Logger) *DeliveryProcessor {
	return &DeliveryProcessor{
		db:       db,
		logger:   logger,
		Interval: 5 * time.Second,
	}
}

// Run drains the queue until ctx is canceled.
func (p *DeliveryProcessor) Run(ctx context.Context) error {
	p.logger.Info("delivery processor started")
	defer p.logger.Info("delivery processor stopped")

	for {
		if err := p.Pass(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.Interval):
			// continue
		}
	}
}

// Pass attempts every delivery that has not yet been attempted. Each
// delivery is attempted once; failures stay in the queue with their error.
func (p *DeliveryProcessor) Pass(ctx context.Context) error {
	clients := make(map[models.AccountID]*activitypub.Client)
	handled, failed, err := process(p.db.WithContext(ctx), deliveryScope, func(d *models.Delivery) error {
		err := p.deliver(ctx, clients, d)
		if err != nil {
			p.logger.Warn("delivery failed", "inbox", d.Inbox, "type", d.Activity["type"], "err", err)
			deliveriesProcessed.WithLabelValues("failed").Inc()
			return err
		}
		p.logger.Debug("delivered", "inbox", d.Inbox, "type", d.Activity["type"])
		deliveriesProcessed.WithLabelValues("delivered").Inc()
		return nil
	})
	if handled > 0 {
		p.logger.Info("delivery pass", "handled", handled, "failed", failed)
	}
	return err
}

func deliveryScope(db *gorm.DB) *gorm.DB {
	return db.Preload("Account").Where("attempts = 0")
}

func (p *DeliveryProcessor) deliver(ctx context.Context, clients map[models.AccountID]*activitypub.Client, d *models.Delivery) error {
	client, ok := clients[d.AccountID]
	if !ok {
		if d.Account == nil {
			return fmt.Errorf("delivery %d: sender %d not found", d.ID, d.AccountID)
		}
		var err error
		client, err = activitypub.NewClient(d.Account.PublicKeyID(), []byte(d.Account.PrivateKey))
		if err != nil {
			return err
		}
		client.Transport = p.Transport
		clients[d.AccountID] = client
	}
	return client.Post(ctx, d.Inbox, d.Activity)
}
