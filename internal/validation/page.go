package validation

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Column limits of the pages table.
const (
	MaxURLLength          = 150
	MaxTitleLength        = 200
	MaxNameLength         = 80
	MaxTemplateNameLength = 70
)

var (
	pageURLPattern  = regexp.MustCompile(`^[-\w/.~]+$`)
	templatePattern = regexp.MustCompile(`^[-\w/.]+$`)
)

// NormalizePageURL adds the leading slash and, when appendSlash is set, the
// trailing one.
func NormalizePageURL(url string, appendSlash bool) string {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "/") {
		url = "/" + url
	}
	if appendSlash && !strings.HasSuffix(url, "/") {
		url += "/"
	}
	return url
}

// ValidatePageURL checks a normalized page URL.
func ValidatePageURL(url string, appendSlash bool) error {
	if url == "" {
		return fmt.Errorf("url is required")
	}
	if utf8.RuneCountInString(url) > MaxURLLength {
		return fmt.Errorf("url must not exceed %d characters", MaxURLLength)
	}
	if !pageURLPattern.MatchString(url) {
		return fmt.Errorf("url may only contain letters, numbers, dots, underscores, dashes, slashes or tildes")
	}
	if !strings.HasPrefix(url, "/") {
		return fmt.Errorf("url is missing a leading slash")
	}
	if appendSlash && !strings.HasSuffix(url, "/") {
		return fmt.Errorf("url is missing a trailing slash")
	}
	if strings.Contains(url, "//") {
		return fmt.Errorf("url must not contain empty segments")
	}
	return nil
}

// ValidateTitle checks a page title.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("title must not exceed %d characters", MaxTitleLength)
	}
	return nil
}

// ValidatePageName checks a page's link name.
func ValidatePageName(name string) error {
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("name must not exceed %d characters", MaxNameLength)
	}
	return nil
}

// ValidateTemplateName checks a template override. Empty means "use the default".
func ValidateTemplateName(name string) error {
	if name == "" {
		return nil
	}
	if len(name) > MaxTemplateNameLength {
		return fmt.Errorf("template name must not exceed %d characters", MaxTemplateNameLength)
	}
	if !templatePattern.MatchString(name) {
		return fmt.Errorf("template name may only contain letters, numbers, dots, underscores, dashes or slashes")
	}
	if strings.HasPrefix(name, "/") || path.Clean(name) != name || strings.HasPrefix(name, "..") {
		return fmt.Errorf("template name must be a clean relative path")
	}
	if !strings.HasSuffix(name, ".html") {
		return fmt.Errorf("template name must end in .html")
	}
	return nil
}
