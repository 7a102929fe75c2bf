package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/show-directory/internal/model"
)

// Directory is the storage the matcher reads from.
type Directory interface {
	// ListApprovedByCategories returns approved shows whose category contains
	// any of the labels.
	ListApprovedByCategories(ctx context.Context, categories []string) ([]model.Show, error)
	AccountsByIDs(ctx context.Context, ids []uint64) (map[uint64]model.User, error)
	// AccountsWithRegion returns accounts having both a region and a contact email.
	AccountsWithRegion(ctx context.Context) ([]model.User, error)
}

// Target is an animation request and the labels an administrator picked.
type Target struct {
	Request    model.AnimationRequest
	Categories []string
	Regions    []string
}

// Source tells which path produced a recipient.
type Source string

const (
	SourceShow    Source = "show"
	SourceOwner   Source = "owner"
	SourceAccount Source = "account"
)

// Recipient is one de-duplicated address.
type Recipient struct {
	Email     string  `json:"email"`
	Source    Source  `json:"source"`
	ShowID    *uint64 `json:"show_id,omitempty"`
	AccountID *uint64 `json:"account_id,omitempty"`
}

// Plan lists who should be told about a request.
type Plan struct {
	Request         model.AnimationRequest `json:"-"`
	Recipients      []Recipient            `json:"recipients"`
	MatchedShows    int                    `json:"matched_shows"`
	MatchedAccounts int                    `json:"matched_accounts"`
}

// Emails returns the recipient addresses in plan order.
func (p Plan) Emails() []string {
	out := make([]string, len(p.Recipients))
	for i, r := range p.Recipients {
		out[i] = r.Email
	}
	return out
}

// Matcher finds the companies to notify for an animation request.
type Matcher struct {
	dir        Directory
	categories CategoryMatcher
	regions    RegionMatcher
	log        *zap.Logger
}

// NewMatcher builds a matcher using substring label matching.
func NewMatcher(dir Directory, log *zap.Logger) *Matcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Matcher{dir: dir, categories: SubstringMatcher{}, regions: SubstringMatcher{}, log: log}
}

// WithMatchers replaces the label matchers.
func (m *Matcher) WithMatchers(c CategoryMatcher, r RegionMatcher) *Matcher {
	cp := *m
	if c != nil {
		cp.categories = c
	}
	if r != nil {
		cp.regions = r
	}
	return &cp
}

// Match builds the recipient plan.  Recipients appear once each, in the
// order they were first found: shows first, then region accounts.
func (m *Matcher) Match(ctx context.Context, t Target) (Plan, error) {
	categories := cleanLabels(t.Categories)
	if len(categories) == 0 {
		return Plan{}, ErrNoCategories
	}
	regions := cleanLabels(t.Regions)

	shows, err := m.dir.ListApprovedByCategories(ctx, categories)
	if err != nil {
		return Plan{}, fmt.Errorf("list shows by category: %w", err)
	}
	kept := shows[:0:0]
	for _, s := range shows {
		if s.Approved && m.categories.MatchCategory(s.Category, categories) {
			kept = append(kept, s)
		}
	}

	owners, err := m.owners(ctx, kept)
	if err != nil {
		return Plan{}, err
	}

	if len(regions) > 0 {
		inRegion := kept[:0:0]
		for _, s := range kept {
			if m.regions.MatchRegion(s.Region, regions) {
				inRegion = append(inRegion, s)
				continue
			}
			if s.OwnerID != nil {
				if o, ok := owners[*s.OwnerID]; ok && m.regions.MatchRegion(o.Region, regions) {
					inRegion = append(inRegion, s)
				}
			}
		}
		kept = inRegion
	}

	plan := Plan{Request: t.Request, MatchedShows: len(kept)}
	seen := map[string]bool{}
	add := func(r Recipient) {
		r.Email = normalizeEmail(r.Email)
		if r.Email == "" || seen[r.Email] {
			return
		}
		seen[r.Email] = true
		plan.Recipients = append(plan.Recipients, r)
	}

	for _, s := range kept {
		id := s.ID
		if e := s.Email(); e != "" {
			add(Recipient{Email: e, Source: SourceShow, ShowID: &id})
			continue
		}
		if s.OwnerID == nil {
			continue
		}
		if o, ok := owners[*s.OwnerID]; ok {
			oid := o.ID
			add(Recipient{Email: accountEmail(o), Source: SourceOwner, ShowID: &id, AccountID: &oid})
		}
	}

	if len(regions) > 0 {
		accounts, err := m.dir.AccountsWithRegion(ctx)
		if err != nil {
			return Plan{}, fmt.Errorf("list accounts with region: %w", err)
		}
		for _, a := range accounts {
			if a.Email() == "" || !m.regions.MatchRegion(a.Region, regions) {
				continue
			}
			plan.MatchedAccounts++
			aid := a.ID
			add(Recipient{Email: a.Email(), Source: SourceAccount, AccountID: &aid})
		}
	}

	m.log.Info("notification plan built",
		zap.Uint64("request_id", t.Request.ID),
		zap.Strings("categories", categories),
		zap.Strings("regions", regions),
		zap.Int("shows", plan.MatchedShows),
		zap.Int("accounts", plan.MatchedAccounts),
		zap.Int("recipients", len(plan.Recipients)))
	return plan, nil
}

func (m *Matcher) owners(ctx context.Context, shows []model.Show) (map[uint64]model.User, error) {
	var ids []uint64
	seen := map[uint64]bool{}
	for _, s := range shows {
		if s.OwnerID != nil && !seen[*s.OwnerID] {
			seen[*s.OwnerID] = true
			ids = append(ids, *s.OwnerID)
		}
	}
	if len(ids) == 0 {
		return map[uint64]model.User{}, nil
	}
	owners, err := m.dir.AccountsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load show owners: %w", err)
	}
	return owners, nil
}

// accountEmail prefers the contact email and falls back to a login that is
// itself an address.
func accountEmail(u model.User) string {
	if e := u.Email(); e != "" {
		return e
	}
	if strings.Contains(u.Username, "@") {
		return u.Username
	}
	return ""
}
