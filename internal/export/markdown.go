// Package export turns pages into portable Markdown documents.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"flatpages/internal/models"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"gopkg.in/yaml.v3"
)

// FrontMatter is the YAML header written above every exported page body.
type FrontMatter struct {
	URL                  string    `yaml:"url"`
	Title                string    `yaml:"title"`
	Name                 string    `yaml:"name,omitempty"`
	Status               string    `yaml:"status"`
	Owner                string    `yaml:"owner,omitempty"`
	OwnerID              uint      `yaml:"owner_id"`
	Tags                 []string  `yaml:"tags,omitempty"`
	Sites                []uint    `yaml:"sites,omitempty"`
	Views                int64     `yaml:"views"`
	Template             string    `yaml:"template,omitempty"`
	EnableComments       bool      `yaml:"enable_comments"`
	RegistrationRequired bool      `yaml:"registration_required"`
	Created              time.Time `yaml:"created"`
	Modified             time.Time `yaml:"modified"`
}

const fence = "---\n"

// NewFrontMatter collects the metadata of page.
func NewFrontMatter(page *models.Page) FrontMatter {
	fm := FrontMatter{
		URL:                  page.URL,
		Title:                page.Title,
		Name:                 page.Name,
		Status:               page.Status.Label(),
		OwnerID:              page.OwnerID,
		Tags:                 page.TagNames(),
		Views:                page.Views,
		Template:             page.TemplateName,
		EnableComments:       page.EnableComments,
		RegistrationRequired: page.RegistrationRequired,
		Created:              page.CreatedAt.UTC(),
		Modified:             page.UpdatedAt.UTC(),
	}
	if page.Owner != nil {
		fm.Owner = page.Owner.Username
	}
	for _, s := range page.Sites {
		fm.Sites = append(fm.Sites, s.ID)
	}
	return fm
}

// Markdown renders page as a front matter block followed by its content
// converted from HTML.
func Markdown(page *models.Page) ([]byte, error) {
	header, err := yaml.Marshal(NewFrontMatter(page))
	if err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}

	body, err := htmltomarkdown.ConvertString(page.Content)
	if err != nil {
		return nil, fmt.Errorf("convert %s to markdown: %w", page.URL, err)
	}

	var buf bytes.Buffer
	buf.WriteString(fence)
	buf.Write(header)
	buf.WriteString(fence)
	buf.WriteString("\n")
	buf.WriteString(strings.TrimSpace(body))
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// SplitFrontMatter separates an exported document into its metadata and body.
func SplitFrontMatter(doc []byte) (FrontMatter, string, error) {
	var fm FrontMatter
	text := string(doc)
	if !strings.HasPrefix(text, fence) {
		return fm, text, fmt.Errorf("document has no front matter")
	}
	rest := text[len(fence):]
	end := strings.Index(rest, fence)
	if end < 0 {
		return fm, text, fmt.Errorf("front matter is not terminated")
	}
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return fm, text, fmt.Errorf("decode front matter: %w", err)
	}
	return fm, strings.TrimSpace(rest[end+len(fence):]), nil
}

// Filename maps a page URL to a relative .md path: "/" becomes index.md and
// "/about/team/" becomes about/team.md.
func Filename(url string) string {
	trimmed := strings.Trim(url, "/")
	if trimmed == "" {
		return "index.md"
	}
	return filepath.FromSlash(trimmed) + ".md"
}

// WriteTree exports every page below dir and returns the number of files written.
func WriteTree(dir string, pages []models.Page) (int, error) {
	written := 0
	for i := range pages {
		doc, err := Markdown(&pages[i])
		if err != nil {
			return written, err
		}
		target := filepath.Join(dir, Filename(pages[i].URL))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil { //nolint:gosec // export output is meant to be readable
			return written, fmt.Errorf("create %s: %w", filepath.Dir(target), err)
		}
		if err := os.WriteFile(target, doc, 0o644); err != nil { //nolint:gosec // export output is meant to be readable
			return written, fmt.Errorf("write %s: %w", target, err)
		}
		written++
	}
	return written, nil
}
