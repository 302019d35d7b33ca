package service

import (
	"context"
	"sort"
	"strings"

	"flatpages/internal/cache"
	"flatpages/internal/export"
	"flatpages/internal/models"
	"flatpages/internal/query"
	"flatpages/internal/repository"
	"flatpages/internal/validation"
)

// AdminSettings are the defaults applied to pages saved without them.
type AdminSettings struct {
	SiteID         uint
	DefaultOwnerID uint
	AppendSlash    bool
}

type AdminService struct {
	pages    repository.PageRepository
	tags     repository.TagRepository
	sites    repository.SiteRepository
	users    repository.UserRepository
	settings AdminSettings
}

// PageInput is the editable part of a page. Tags is a comma separated list.
// Views is intentionally absent: the counter is only ever changed by visits.
type PageInput struct {
	URL                  string `json:"url"`
	Title                string `json:"title"`
	Name                 string `json:"name"`
	OwnerID              uint   `json:"owner_id"`
	Status               string `json:"status"`
	Content              string `json:"content"`
	Tags                 string `json:"tags"`
	SiteIDs              []uint `json:"sites"`
	EnableComments       bool   `json:"enable_comments"`
	RegistrationRequired bool   `json:"registration_required"`
	TemplateName         string `json:"template_name"`
}

// ListPagesInput filters the administrative listing.
type ListPagesInput = repository.AdminFilter

// PageList is one page of the administrative listing.
type PageList struct {
	Pages []models.Page `json:"pages"`
	Total int64         `json:"total"`
}

func NewAdminService(
	pages repository.PageRepository,
	tags repository.TagRepository,
	sites repository.SiteRepository,
	users repository.UserRepository,
	settings AdminSettings,
) *AdminService {
	return &AdminService{
		pages:    pages,
		tags:     tags,
		sites:    sites,
		users:    users,
		settings: settings,
	}
}

// ParseTagList splits a comma separated tag field, dropping blanks and
// case-insensitive duplicates.
func ParseTagList(s string) []string {
	seen := map[string]bool{}
	var out []string
	for _, raw := range strings.Split(s, ",") {
		name := strings.Join(strings.Fields(raw), " ")
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		out = append(out, name)
	}
	return out
}

func (s *AdminService) CreatePage(ctx context.Context, in PageInput) (*models.Page, error) {
	page := &models.Page{}
	if err := s.apply(ctx, page, in); err != nil {
		return nil, err
	}
	if err := s.ensureURLFree(ctx, page, 0); err != nil {
		return nil, err
	}
	if err := s.pages.Create(ctx, page); err != nil {
		return nil, err
	}
	s.invalidate(ctx, page.Sites)
	return s.pages.GetByID(ctx, page.ID)
}

func (s *AdminService) UpdatePage(ctx context.Context, id uint, in PageInput) (*models.Page, error) {
	existing, err := s.pages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previousSites := existing.Sites

	page := *existing
	page.Owner = nil
	if err := s.apply(ctx, &page, in); err != nil {
		return nil, err
	}
	if err := s.ensureURLFree(ctx, &page, id); err != nil {
		return nil, err
	}
	if err := s.pages.Update(ctx, &page); err != nil {
		return nil, err
	}
	s.invalidate(ctx, append(previousSites, page.Sites...))
	return s.pages.GetByID(ctx, id)
}

func (s *AdminService) DeletePage(ctx context.Context, id uint) error {
	existing, err := s.pages.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.pages.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, existing.Sites)
	return nil
}

func (s *AdminService) GetPage(ctx context.Context, id uint) (*models.Page, error) {
	return s.pages.GetByID(ctx, id)
}

func (s *AdminService) ListPages(ctx context.Context, in ListPagesInput) (*PageList, error) {
	pages, total, err := s.pages.List(ctx, in)
	if err != nil {
		return nil, err
	}
	if pages == nil {
		pages = []models.Page{}
	}
	return &PageList{Pages: pages, Total: total}, nil
}

// ExportPage renders a page as a Markdown document with front matter and
// returns it with its suggested file name.
func (s *AdminService) ExportPage(ctx context.Context, id uint) (string, []byte, error) {
	page, err := s.pages.GetByID(ctx, id)
	if err != nil {
		return "", nil, err
	}
	doc, err := export.Markdown(page)
	if err != nil {
		return "", nil, models.NewInternalError(err)
	}
	return export.Filename(page.URL), doc, nil
}

// ExportTree writes every page matching opts under dir, one Markdown file
// per page, and returns how many were written.
func (s *AdminService) ExportTree(ctx context.Context, dir string, opts query.Options) (int, error) {
	if opts.SiteID == 0 {
		opts.SiteID = s.settings.SiteID
	}
	found, err := s.pages.Query(ctx, opts)
	if err != nil {
		return 0, err
	}

	full := make([]models.Page, 0, len(found))
	for _, p := range found {
		page, err := s.pages.GetByID(ctx, p.ID)
		if err != nil {
			return 0, err
		}
		full = append(full, *page)
	}
	return export.WriteTree(dir, full)
}

// apply validates in and copies it onto page, resolving owner, sites and tags.
func (s *AdminService) apply(ctx context.Context, page *models.Page, in PageInput) error {
	url := validation.NormalizePageURL(in.URL, s.settings.AppendSlash)
	if strings.TrimSpace(in.URL) == "" {
		return models.NewValidationError("url is required")
	}
	if err := validation.ValidatePageURL(url, s.settings.AppendSlash); err != nil {
		return models.NewValidationError(err.Error())
	}
	title := strings.TrimSpace(in.Title)
	if err := validation.ValidateTitle(title); err != nil {
		return models.NewValidationError(err.Error())
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = models.DefaultPageName
	}
	if err := validation.ValidatePageName(name); err != nil {
		return models.NewValidationError(err.Error())
	}
	templateName := strings.TrimSpace(in.TemplateName)
	if err := validation.ValidateTemplateName(templateName); err != nil {
		return models.NewValidationError(err.Error())
	}
	status, err := models.ParseStatus(in.Status)
	if err != nil {
		return models.NewValidationError(err.Error())
	}

	ownerID := in.OwnerID
	if ownerID == 0 {
		ownerID = s.settings.DefaultOwnerID
	}
	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.NewValidationError("owner does not exist")
		}
		return err
	}

	siteIDs := uniqueIDs(in.SiteIDs)
	if len(siteIDs) == 0 {
		siteIDs = []uint{s.settings.SiteID}
	}
	sites, err := s.sites.GetByIDs(ctx, siteIDs)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return models.NewValidationError("unknown site in sites")
		}
		return err
	}

	tags := []models.Tag{}
	if names := ParseTagList(in.Tags); len(names) > 0 {
		if tags, err = s.tags.GetOrCreate(ctx, names); err != nil {
			return err
		}
	}

	page.URL = url
	page.Title = title
	page.Name = name
	page.Content = in.Content
	page.OwnerID = ownerID
	page.Status = status
	page.Tags = tags
	page.Sites = sites
	page.EnableComments = in.EnableComments
	page.RegistrationRequired = in.RegistrationRequired
	page.TemplateName = templateName
	return nil
}

func (s *AdminService) ensureURLFree(ctx context.Context, page *models.Page, excludeID uint) error {
	ids := make([]uint, 0, len(page.Sites))
	for _, site := range page.Sites {
		ids = append(ids, site.ID)
	}
	taken, err := s.pages.URLTaken(ctx, page.URL, ids, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return models.NewConflictError("a page with url "+page.URL+" already exists on one of its sites", nil)
	}
	return nil
}

// invalidate retires cached breadcrumbs on every touched site.
func (s *AdminService) invalidate(ctx context.Context, sites []models.Site) {
	done := map[uint]bool{}
	for _, site := range sites {
		if done[site.ID] {
			continue
		}
		done[site.ID] = true
		cache.BumpGeneration(ctx, site.ID)
	}
}

func uniqueIDs(ids []uint) []uint {
	seen := map[uint]bool{}
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Fieldset groups the fields of the page edit form.
type Fieldset struct {
	Name      string   `json:"name"`
	Fields    []string `json:"fields"`
	Collapsed bool     `json:"collapsed"`
}

// AdminMeta describes how the administrative UI presents pages.
type AdminMeta struct {
	Fieldsets    []Fieldset `json:"fieldsets"`
	ListDisplay  []string   `json:"list_display"`
	ListFilter   []string   `json:"list_filter"`
	SearchFields []string   `json:"search_fields"`
	ReadOnly     []string   `json:"read_only"`
}

// Meta returns the page admin layout.
func (s *AdminService) Meta() AdminMeta {
	return AdminMeta{
		Fieldsets: []Fieldset{
			{Fields: []string{"url", "title", "name", "owner", "status", "content", "tags"}},
			{
				Name:      "Advanced options",
				Fields:    []string{"sites", "enable_comments", "registration_required", "template_name", "views"},
				Collapsed: true,
			},
		},
		ListDisplay:  []string{"url", "title", "name", "status", "owner", "views", "modified", "created"},
		ListFilter:   []string{"status", "sites", "enable_comments", "registration_required"},
		SearchFields: []string{"url", "title", "name", "owner"},
		ReadOnly:     []string{"views"},
	}
}
