// Package models contains data structures for the application's domain models.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Status is the publication state of a page.
type Status string

const (
	StatusDraft     Status = "d"
	StatusPublished Status = "p"
)

// ParseStatus accepts the stored codes as well as their labels.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "d", "draft":
		return StatusDraft, nil
	case "p", "published":
		return StatusPublished, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Label returns the human readable status name.
func (s Status) Label() string {
	switch s {
	case StatusPublished:
		return "published"
	default:
		return "draft"
	}
}

// DefaultPageName is used when a page is saved without a link name.
const DefaultPageName = "unnamed"

// Page is a static page served at URL on one or more sites.
type Page struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	URL                  string    `gorm:"size:150;not null;index" json:"url"`
	Title                string    `gorm:"size:200;not null" json:"title"`
	Name                 string    `gorm:"size:80;not null;default:unnamed" json:"name"`
	Content              string    `gorm:"type:text" json:"content"`
	OwnerID              uint      `gorm:"not null;default:1;index" json:"owner_id"`
	Owner                *User     `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Views                int64     `gorm:"not null;default:0" json:"views"`
	Status               Status    `gorm:"size:1;not null;default:d;index" json:"status"`
	Tags                 []Tag     `gorm:"many2many:page_tags;" json:"tags"`
	EnableComments       bool      `gorm:"not null;default:false" json:"enable_comments"`
	TemplateName         string    `gorm:"size:70" json:"template_name"`
	RegistrationRequired bool      `gorm:"not null;default:false" json:"registration_required"`
	Sites                []Site    `gorm:"many2many:page_sites;" json:"sites"`
	CreatedAt            time.Time `json:"created"`
	UpdatedAt            time.Time `json:"modified"`
}

func (p Page) String() string {
	return fmt.Sprintf("%s -- %s", p.URL, p.Title)
}

// AbsoluteURL returns the path the page is served at.
func (p *Page) AbsoluteURL() string {
	return p.URL
}

func (p *Page) IsPublished() bool {
	return p.Status == StatusPublished
}

// TemplateOrDefault returns the page's own template name, or def when unset.
func (p *Page) TemplateOrDefault(def string) string {
	if name := strings.TrimSpace(p.TemplateName); name != "" {
		return name
	}
	return def
}

// TagNames returns the names of the page's tags in stored order.
func (p *Page) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		names = append(names, t.Name)
	}
	return names
}

// HasSite reports whether the page is attached to the given site.
func (p *Page) HasSite(siteID uint) bool {
	for _, s := range p.Sites {
		if s.ID == siteID {
			return true
		}
	}
	return false
}

// Tag is a free-form label relating pages to each other.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Slug string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
}

// Site is a tenant a page can be published on.
type Site struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Domain string `gorm:"size:100;uniqueIndex;not null" json:"domain"`
	Name   string `gorm:"size:50;not null" json:"name"`
}

// Breadcrumb is one step of the navigation trail. URL is nil when no page
// exists at that prefix.
type Breadcrumb struct {
	Name string  `json:"name"`
	URL  *string `json:"url"`
}

// Linked reports whether the crumb points at an existing page.
func (b Breadcrumb) Linked() bool {
	return b.URL != nil
}
