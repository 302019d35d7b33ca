package server

import (
	"bytes"
	"errors"
	"strconv"

	"flatpages/internal/middleware"
	"flatpages/internal/models"
	"flatpages/internal/pagetag"
	"flatpages/internal/render"
	"flatpages/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Object headers let front caches and staff tooling identify rendered pages.
const (
	HeaderObjectType = "X-Object-Type"
	HeaderObjectID   = "X-Object-Id"
	objectType       = "flatpages.page"
)

// ServePage handles GET /* by looking the request path up as a page.
// @Summary Render page
// @Description Renders the page at the request path with its template
// @Tags pages
// @Produce html
// @Param path path string true "Page URL"
// @Success 200 {string} string "Rendered page"
// @Success 301 {string} string "Trailing slash redirect"
// @Success 302 {string} string "Login redirect"
// @Failure 404 {string} string "Not found page"
// @Router /{path} [get]
func (s *Server) ServePage(c *fiber.Ctx) error {
	viewer := middleware.ViewerFrom(c)
	ctx := c.UserContext()

	view, err := s.pageService.Lookup(ctx, service.LookupInput{
		SiteID: s.config.SiteID,
		Path:   c.Path(),
		Viewer: viewer,
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			switch appErr.Code {
			case models.CodeNotFound:
				return s.renderNotFound(c)
			case models.CodeAuthRequired:
				return c.Redirect(appErr.Message, fiber.StatusFound)
			}
		}
		return err
	}

	if view.RedirectTo != "" {
		target := view.RedirectTo
		if qs := string(c.Request().URI().QueryString()); qs != "" {
			target += "?" + qs
		}
		return c.Redirect(target, fiber.StatusMovedPermanently)
	}

	data := render.NewPageData(view.Page, view.Breadcrumbs, viewer, pagetag.Context{
		Ctx:           ctx,
		SiteID:        s.config.SiteID,
		PublishedOnly: !viewer.IsStaff,
		PublicOnly:    !viewer.Authenticated,
		Fetch:         s.pageService.Fetch,
	})

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, s.renderer.Candidates(view.Page), data); err != nil {
		return err
	}

	s.populateObjectHeaders(c, view.Page, viewer)
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(fiber.StatusOK).Send(buf.Bytes())
}

// populateObjectHeaders tags the response with the page identity for
// internal clients and staff.
func (s *Server) populateObjectHeaders(c *fiber.Ctx, page *models.Page, viewer models.Viewer) {
	if !viewer.IsStaff && !s.config.IsInternalIP(c.IP()) {
		return
	}
	c.Set(HeaderObjectType, objectType)
	c.Set(HeaderObjectID, strconv.FormatUint(uint64(page.ID), 10))
}

func (s *Server) renderNotFound(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, []string{render.NotFoundTemplate}, fiber.Map{"Path": c.Path()}); err != nil {
		return c.Status(fiber.StatusNotFound).SendString("Not Found")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(fiber.StatusNotFound).Send(buf.Bytes())
}
