package server

import (
	"time"

	"flatpages/internal/export"
	"flatpages/internal/middleware"
	"flatpages/internal/models"
	"flatpages/internal/query"

	"github.com/gofiber/fiber/v2"
)

const excerptLength = 160

// PageSummary is the public listing shape of a page.
type PageSummary struct {
	ID       uint      `json:"id"`
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Name     string    `json:"name"`
	Excerpt  string    `json:"excerpt"`
	Tags     []string  `json:"tags"`
	Views    int64     `json:"views"`
	Status   string    `json:"status"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

func summarize(p models.Page) PageSummary {
	return PageSummary{
		ID:       p.ID,
		URL:      p.AbsoluteURL(),
		Title:    p.Title,
		Name:     p.Name,
		Excerpt:  export.Excerpt(p.Content, excerptLength),
		Tags:     p.TagNames(),
		Views:    p.Views,
		Status:   p.Status.Label(),
		Created:  p.CreatedAt,
		Modified: p.UpdatedAt,
	}
}

// QueryPages handles GET /api/pages. Query parameters are composer options
// (sort, tags, not_tags, starts_with, owners, limit, remove). Drafts are only
// listed for staff and login-only pages only for signed-in viewers.
// @Summary Query pages
// @Tags pages
// @Produce json
// @Param sort query string false "Sort order (url, created, -created, modified, -modified, views, -views, random)"
// @Param tags query string false "Comma separated tags a page must have"
// @Param not_tags query string false "Comma separated tags a page must not have"
// @Param starts_with query string false "URL prefix"
// @Param owners query string false "Comma separated owner IDs"
// @Param limit query int false "Maximum number of pages"
// @Param remove query string false "Comma separated page IDs to leave out"
// @Success 200 {object} object{pages=[]PageSummary,count=int,sort=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Router /api/pages [get]
func (s *Server) QueryPages(c *fiber.Ctx) error {
	args := map[string]any{}
	for key, value := range c.Queries() {
		args[key] = value
	}

	opts, err := query.ParseOptions(args)
	if err != nil {
		return respondError(c, err)
	}
	opts.SiteID = s.config.SiteID
	viewer := middleware.ViewerFrom(c)
	opts.PublishedOnly = !viewer.IsStaff
	opts.PublicOnly = !viewer.Authenticated

	pages, err := s.pageService.Fetch(c.UserContext(), opts)
	if err != nil {
		return respondError(c, err)
	}

	out := make([]PageSummary, 0, len(pages))
	for _, p := range pages {
		out = append(out, summarize(p))
	}
	return c.JSON(fiber.Map{
		"pages": out,
		"count": len(out),
		"sort":  opts.Sort.String(),
	})
}
