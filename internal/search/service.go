package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/show-directory/internal/metrics"
	"github.com/iliyamo/show-directory/internal/model"
)

// Catalog is the storage collaborator evaluating predicates.
type Catalog interface {
	Find(ctx context.Context, where Predicate, order Ordering, page, pageSize int) ([]model.Show, int64, error)
}

// FailedNotice is shown to the visitor when storage could not be queried.
const FailedNotice = "Une erreur est survenue lors de la recherche."

// Page is one page of a listing.  Notice is set when the listing degraded
// to an empty result.
type Page struct {
	Items    []model.Show `json:"items"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Pages    int          `json:"pages"`
	Notice   string       `json:"notice,omitempty"`
}

// Service runs searches against the catalog.
type Service struct {
	catalog Catalog
	log     *zap.Logger
}

// NewService builds a search service.  A nil logger disables logging.
func NewService(catalog Catalog, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{catalog: catalog, log: log}
}

// Search runs the visitor search.  Storage failures are logged and turned
// into an empty page carrying FailedNotice; Search itself never fails.
func (s *Service) Search(ctx context.Context, c Criteria) Page {
	view := PublicView
	if c.Admin {
		view = AdminView
	}
	order := view.Ordering(c.Admin)
	if d, ok := ParseDirection(c.Sort); ok {
		order.Created = d
	}
	return s.run(ctx, view, BuildFilter(c), order, c.Page)
}

// Collection lists one themed collection with the public view.
func (s *Service) Collection(ctx context.Context, slug string, page int) (Page, error) {
	col, ok := LookupCollection(slug)
	if !ok {
		return Page{}, fmt.Errorf("%w: %q", ErrUnknownCollection, slug)
	}
	return s.run(ctx, PublicView, col.Where, PublicView.Ordering(false), page), nil
}

func (s *Service) run(ctx context.Context, view View, where Predicate, order Ordering, page int) Page {
	page = NormalizePage(page)
	items, total, err := s.catalog.Find(ctx, where, order, page, view.PageSize)
	if err != nil {
		s.log.Error("search: catalog query failed",
			zap.String("view", view.Name), zap.Int("page", page), zap.Error(err))
		metrics.SearchRequests.WithLabelValues(view.Name, "error").Inc()
		return Page{Items: []model.Show{}, Page: page, PageSize: view.PageSize, Notice: FailedNotice}
	}
	metrics.SearchRequests.WithLabelValues(view.Name, "ok").Inc()
	if items == nil {
		items = []model.Show{}
	}
	return Page{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: view.PageSize,
		Pages:    PageCount(total, view.PageSize),
	}
}
