package server

import (
	"fmt"
	"path/filepath"

	"flatpages/internal/models"
	"flatpages/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetAdminMeta handles GET /admin/api/pages/meta
// @Summary Page admin layout
// @Description Fieldsets, list columns, filters and search fields for the page admin
// @Tags admin
// @Produce json
// @Success 200 {object} service.AdminMeta
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/api/pages/meta [get]
func (s *Server) GetAdminMeta(c *fiber.Ctx) error {
	return c.JSON(s.adminService.Meta())
}

// ListAdminPages handles GET /admin/api/pages with search (q), filters
// (status, site, enable_comments, registration_required) and paging.
// @Summary List pages
// @Tags admin
// @Produce json
// @Param q query string false "Search url, title and content"
// @Param status query string false "Filter by status (d or p)"
// @Param site query int false "Filter by site ID"
// @Param enable_comments query bool false "Filter by comments flag"
// @Param registration_required query bool false "Filter by login requirement"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} service.PageList
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/api/pages [get]
func (s *Server) ListAdminPages(c *fiber.Ctx) error {
	p := parsePagination(c, 50)
	filter := service.ListPagesInput{
		Search: c.Query("q"),
		Limit:  p.Limit,
		Offset: p.Offset,
	}

	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			return respondError(c, models.NewInvalidArgumentError("status", err))
		}
		filter.Status = status
	}
	if site := c.QueryInt("site", 0); site > 0 {
		filter.SiteID = uint(site)
	}

	var err error
	if filter.EnableComments, err = optionalBool(c, "enable_comments"); err != nil {
		return respondError(c, err)
	}
	if filter.RegistrationRequired, err = optionalBool(c, "registration_required"); err != nil {
		return respondError(c, err)
	}

	list, err := s.adminService.ListPages(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// CreatePage handles POST /admin/api/pages
// @Summary Create page
// @Tags admin
// @Accept json
// @Produce json
// @Param request body service.PageInput true "Page fields"
// @Success 201 {object} models.Page
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/api/pages [post]
func (s *Server) CreatePage(c *fiber.Ctx) error {
	var in service.PageInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	page, err := s.adminService.CreatePage(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(page)
}

// GetPage handles GET /admin/api/pages/:id
// @Summary Get page
// @Tags admin
// @Produce json
// @Param id path int true "Page ID"
// @Success 200 {object} models.Page
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/api/pages/{id} [get]
func (s *Server) GetPage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	page, err := s.adminService.GetPage(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// UpdatePage handles PUT /admin/api/pages/:id
// @Summary Update page
// @Tags admin
// @Accept json
// @Produce json
// @Param id path int true "Page ID"
// @Param request body service.PageInput true "Page fields"
// @Success 200 {object} models.Page
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/api/pages/{id} [put]
func (s *Server) UpdatePage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var in service.PageInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	page, err := s.adminService.UpdatePage(c.UserContext(), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// DeletePage handles DELETE /admin/api/pages/:id
// @Summary Delete page
// @Tags admin
// @Param id path int true "Page ID"
// @Success 204
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/api/pages/{id} [delete]
func (s *Server) DeletePage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.adminService.DeletePage(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ExportPage handles GET /admin/api/pages/:id/markdown
// @Summary Export page as Markdown
// @Description Markdown document with YAML front matter
// @Tags admin
// @Produce plain
// @Param id path int true "Page ID"
// @Success 200 {string} string "Markdown document"
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/api/pages/{id}/markdown [get]
func (s *Server) ExportPage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	name, doc, err := s.adminService.ExportPage(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", filepath.Base(name)))
	return c.Send(doc)
}
