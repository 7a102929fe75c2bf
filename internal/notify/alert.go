package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/show-directory/internal/model"
)

// Alerter tells the administrator about new submissions.  Alerts are best
// effort: a missing transport or address disables them and a failed send
// is only logged.
type Alerter struct {
	transport Transport
	to        string
	timeout   time.Duration
	log       *zap.Logger
}

// NewAlerter returns nil when there is nothing to send through or to.  A
// nil *Alerter is valid and drops every alert.
func NewAlerter(t Transport, to string, timeout time.Duration, log *zap.Logger) *Alerter {
	to = strings.TrimSpace(to)
	if t == nil || to == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Alerter{transport: t, to: to, timeout: timeout, log: log}
}

// Alert sends one message to the administrator.  It outlives a cancelled
// request context but never waits longer than the send timeout.
func (a *Alerter) Alert(ctx context.Context, subject, body string) {
	if a == nil {
		return
	}
	msg := Message{BatchID: uuid.NewString(), To: a.to, Subject: subject, Body: body}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()
	if err := a.transport.Send(sctx, msg); err != nil {
		a.log.Warn("admin alert failed", zap.String("subject", subject), zap.Error(err))
		return
	}
	a.log.Debug("admin alert sent", zap.String("subject", subject))
}

// ShowAlert announces a show waiting for approval.
func ShowAlert(s model.Show) (string, string) {
	subject := fmt.Sprintf("Nouveau spectacle à valider : %s", s.Title)
	body := fmt.Sprintf(`Bonjour,

La compagnie %s a proposé un nouveau spectacle.

Titre : %s
Genre : %s
Lieu : %s
Région : %s

Il reste masqué tant qu'il n'est pas validé (n° %d).
`, s.CompanyName, s.Title, s.Category, s.Location, s.Region, s.ID)
	return subject, body
}

// RequestAlert announces a new animation request.
func RequestAlert(r model.AnimationRequest) (string, string) {
	subject := fmt.Sprintf("Nouvelle demande d'animation : %s", r.Organisation)
	body := fmt.Sprintf(`Bonjour,

Une demande d'animation vient d'être déposée (n° %d).

Structure : %s
Lieu : %s %s
Dates : %s
Genre recherché : %s

Contact : %s
`, r.ID, r.Organisation, r.PostalCode, r.City, r.Dates, r.WantedCategory, r.ContactEmail)
	return subject, body
}

// AccountAlert announces a new company account.
func AccountAlert(u model.User) (string, string) {
	name := u.CompanyName
	if name == "" {
		name = u.Username
	}
	subject := fmt.Sprintf("Nouvelle compagnie inscrite : %s", name)
	body := fmt.Sprintf(`Bonjour,

Un compte compagnie vient d'être créé.

Identifiant : %s
Compagnie : %s
Région : %s
Email : %s
`, u.Username, name, u.Region, u.Email())
	return subject, body
}
