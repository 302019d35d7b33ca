// Package service holds the page lookup, administration and account logic
// that sits between the HTTP layer and the repositories.
package service

import (
	"context"
	"net/url"
	"strings"

	"flatpages/internal/middleware"
	"flatpages/internal/models"
	"flatpages/internal/observability"
	"flatpages/internal/query"
	"flatpages/internal/repository"
)

// Lookup outcomes reported to the metrics collector.
const (
	OutcomeFound         = "found"
	OutcomeRedirect      = "redirect"
	OutcomeNotFound      = "not_found"
	OutcomeHiddenDraft   = "hidden_draft"
	OutcomeLoginRequired = "login_required"
)

// TrailBuilder produces the breadcrumb trail for a page URL.
type TrailBuilder interface {
	Build(ctx context.Context, siteID uint, url string) []models.Breadcrumb
}

// PageSettings are the site-wide knobs the lookup flow depends on.
type PageSettings struct {
	SiteID             uint
	AppendSlash        bool
	LoginURL           string
	LoginRedirectField string
}

type PageService struct {
	pages    repository.PageRepository
	trail    TrailBuilder
	settings PageSettings
}

// LookupInput is a request for the page served at Path.
type LookupInput struct {
	SiteID uint
	Path   string
	Viewer models.Viewer
}

// PageView is the outcome of a lookup. When RedirectTo is set nothing else
// is populated and the caller should redirect permanently.
type PageView struct {
	Page        *models.Page
	Breadcrumbs []models.Breadcrumb
	RedirectTo  string
	Counted     bool
}

func NewPageService(pages repository.PageRepository, trail TrailBuilder, settings PageSettings) *PageService {
	if settings.LoginRedirectField == "" {
		settings.LoginRedirectField = "next"
	}
	return &PageService{pages: pages, trail: trail, settings: settings}
}

// Lookup resolves a request path to a visible page, counting the view when
// the viewer is not the page's owner.
func (s *PageService) Lookup(ctx context.Context, in LookupInput) (*PageView, error) {
	// A single leading slash keeps the redirect on this host; browsers read
	// "//" and "/\" as the start of a protocol-relative URL.
	path := "/" + strings.TrimLeft(in.Path, `/\`)
	if s.settings.AppendSlash && !strings.HasSuffix(path, "/") {
		observability.RecordLookup(OutcomeRedirect)
		return &PageView{RedirectTo: path + "/"}, nil
	}

	siteID := in.SiteID
	if siteID == 0 {
		siteID = s.settings.SiteID
	}

	page, err := s.pages.GetByURL(ctx, siteID, path)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			observability.RecordLookup(OutcomeNotFound)
		}
		return nil, err
	}

	if !page.IsPublished() && !in.Viewer.CanPreview(page) {
		observability.RecordLookup(OutcomeHiddenDraft)
		return nil, models.NewNotFoundError("Page", path)
	}

	if page.RegistrationRequired && !in.Viewer.Authenticated {
		observability.RecordLookup(OutcomeLoginRequired)
		return nil, models.NewAuthRequiredError(s.LoginRedirect(path))
	}

	view := &PageView{Page: page}
	if !in.Viewer.Owns(page) {
		if err := s.pages.IncrementViews(ctx, page.ID); err != nil {
			return nil, err
		}
		page.Views++
		view.Counted = true
		observability.RecordView(siteID)
	}

	if s.trail != nil {
		view.Breadcrumbs = s.trail.Build(ctx, siteID, page.URL)
	}

	observability.RecordLookup(OutcomeFound)
	middleware.Logger.DebugContext(ctx, "page served",
		"url", page.URL, "page_id", page.ID, "counted", view.Counted)
	return view, nil
}

// LoginRedirect builds the login URL that returns the visitor to next.
func (s *PageService) LoginRedirect(next string) string {
	u, err := url.Parse(s.settings.LoginURL)
	if err != nil {
		return s.settings.LoginURL
	}
	q := u.Query()
	q.Set(s.settings.LoginRedirectField, next)
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch runs a composed query, scoped to the configured site unless opts
// names another.
func (s *PageService) Fetch(ctx context.Context, opts query.Options) ([]models.Page, error) {
	if opts.SiteID == 0 {
		opts.SiteID = s.settings.SiteID
	}
	return s.pages.Query(ctx, opts)
}
