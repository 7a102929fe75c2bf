package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/iliyamo/show-directory/internal/metrics"
	"github.com/iliyamo/show-directory/internal/model"
)

// Message is one notification email.
type Message struct {
	BatchID   string
	RequestID uint64
	To        string
	Subject   string
	Body      string
}

// Transport delivers messages.  Available is checked once before a batch.
type Transport interface {
	Send(ctx context.Context, msg Message) error
	Available(ctx context.Context) error
}

// Ledger records who was already told about a request.  Claim returns false
// when the recipient was notified before.
type Ledger interface {
	Claim(ctx context.Context, requestID uint64, email string) (bool, error)
	Release(ctx context.Context, requestID uint64, email string) error
}

// Composer renders the subject and body sent to a recipient.
type Composer func(req model.AnimationRequest, r Recipient) (subject, body string)

// Report summarises a dispatch.
type Report struct {
	BatchID    string `json:"batch_id"`
	Recipients int    `json:"recipients"`
	Attempted  int    `json:"attempted"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
}

// DispatcherConfig bounds a dispatch.
type DispatcherConfig struct {
	Workers     int
	SendTimeout time.Duration
}

// Dispatcher sends a plan through a transport with a bounded worker pool.
type Dispatcher struct {
	transport Transport
	ledger    Ledger
	compose   Composer
	cfg       DispatcherConfig
	log       *zap.Logger
}

// NewDispatcher builds a dispatcher.  ledger may be nil, in which case
// every dispatch re-sends to every recipient.
func NewDispatcher(t Transport, ledger Ledger, cfg DispatcherConfig, log *zap.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{transport: t, ledger: ledger, compose: DefaultComposer, cfg: cfg, log: log}
}

// WithComposer replaces the message template.
func (d *Dispatcher) WithComposer(c Composer) *Dispatcher {
	cp := *d
	if c != nil {
		cp.compose = c
	}
	return &cp
}

// Dispatch sends the plan.  It fails as a whole only when the transport is
// unavailable; individual send failures are logged and counted.  Cancelling
// ctx stops recipients that have not started yet; they are not counted as
// attempted.
func (d *Dispatcher) Dispatch(ctx context.Context, requestID uint64, plan Plan) (Report, error) {
	rep := Report{BatchID: uuid.NewString(), Recipients: len(plan.Recipients)}
	if rep.Recipients == 0 {
		return rep, nil
	}
	if d.transport == nil {
		return rep, ErrTransportUnavailable
	}
	if err := d.transport.Available(ctx); err != nil {
		d.log.Error("mail transport unavailable", zap.Uint64("request_id", requestID), zap.Error(err))
		return rep, fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}

	batchID := rep.BatchID
	log := d.log.With(zap.Uint64("request_id", requestID), zap.String("batch_id", batchID))
	sem := semaphore.NewWeighted(int64(d.cfg.Workers))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(fn func(r *Report)) {
		mu.Lock()
		fn(&rep)
		mu.Unlock()
	}

	for _, r := range plan.Recipients {
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn("dispatch cancelled", zap.Error(err))
			break
		}
		wg.Add(1)
		go func(r Recipient) {
			defer wg.Done()
			defer sem.Release(1)

			if d.ledger != nil {
				fresh, err := d.ledger.Claim(ctx, requestID, r.Email)
				if err != nil {
					log.Warn("notification ledger unavailable, sending anyway", zap.String("to", r.Email), zap.Error(err))
				} else if !fresh {
					record(func(rep *Report) { rep.Skipped++ })
					metrics.NotificationsSent.WithLabelValues("skipped").Inc()
					return
				}
			}

			subject, body := d.compose(plan.Request, r)
			msg := Message{BatchID: batchID, RequestID: requestID, To: r.Email, Subject: subject, Body: body}

			sctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
			err := d.transport.Send(sctx, msg)
			cancel()

			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					err = fmt.Errorf("send timed out after %s: %w", d.cfg.SendTimeout, err)
				}
				log.Warn("notification send failed", zap.String("to", r.Email), zap.Error(err))
				if d.ledger != nil {
					if rerr := d.ledger.Release(context.WithoutCancel(ctx), requestID, r.Email); rerr != nil {
						log.Warn("notification ledger release failed", zap.String("to", r.Email), zap.Error(rerr))
					}
				}
				record(func(rep *Report) { rep.Attempted++; rep.Failed++ })
				metrics.NotificationsSent.WithLabelValues("failed").Inc()
				return
			}
			record(func(rep *Report) { rep.Attempted++; rep.Succeeded++ })
			metrics.NotificationsSent.WithLabelValues("sent").Inc()
		}(r)
	}
	wg.Wait()

	log.Info("notification batch finished",
		zap.Int("recipients", rep.Recipients),
		zap.Int("attempted", rep.Attempted),
		zap.Int("succeeded", rep.Succeeded),
		zap.Int("failed", rep.Failed),
		zap.Int("skipped", rep.Skipped))
	return rep, nil
}

// DefaultComposer writes the French notification sent to companies.
func DefaultComposer(req model.AnimationRequest, _ Recipient) (string, string) {
	title := req.Title
	if title == "" {
		title = req.WantedCategory
	}
	subject := fmt.Sprintf("Nouvelle demande d'animation : %s", title)
	body := fmt.Sprintf(`Bonjour,

Une nouvelle demande d'animation correspond à vos spectacles.

Structure : %s
Lieu : %s %s
Dates : %s
Genre recherché : %s
Âge du public : %s
Jauge : %s
Budget : %s

Contraintes : %s

Contact : %s
`,
		req.Organisation, req.PostalCode, req.City, req.Dates, req.WantedCategory,
		req.AgeRange, req.Audience, req.Budget, req.Constraints, req.ContactEmail)
	return subject, body
}
