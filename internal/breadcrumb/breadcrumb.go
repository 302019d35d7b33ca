// Package breadcrumb derives navigation trails from page URLs.
package breadcrumb

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"flatpages/internal/cache"
	"flatpages/internal/middleware"
	"flatpages/internal/models"
)

var (
	parentPattern = regexp.MustCompile(`^(.*/)[-\w.]+/?$`)
	labelPattern  = regexp.MustCompile(`^.*/([-\w.]+)/?$`)
)

// Parent strips the last segment from url. ok is false when url has no
// strippable segment.
func Parent(url string) (string, bool) {
	m := parentPattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Ancestors returns url followed by each successively shorter prefix,
// leaf first: "/a/b/" yields "/a/b/", "/a/", "/".
func Ancestors(url string) []string {
	chain := []string{url}
	for {
		parent, ok := Parent(url)
		if !ok || len(parent) >= len(url) {
			return chain
		}
		chain = append(chain, parent)
		url = parent
	}
}

// Trail is Ancestors in root-to-leaf order.
func Trail(url string) []string {
	chain := Ancestors(url)
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Label names a prefix that has no page: its last segment, capitalized.
// When no segment can be found the whole url is used.
func Label(url string) string {
	if m := labelPattern.FindStringSubmatch(url); m != nil {
		return capitalize(m[1])
	}
	return capitalize(url)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// Resolver finds the pages published at any of urls on a site.
type Resolver interface {
	FindByURLs(ctx context.Context, siteID uint, urls []string) ([]models.Page, error)
}

// Builder turns a page URL into breadcrumbs, linking every prefix that has a
// published page.
type Builder struct {
	resolver Resolver
	ttl      time.Duration
}

// NewBuilder returns a Builder. A positive ttl caches trails in Redis under
// the site's content generation.
func NewBuilder(resolver Resolver, ttl time.Duration) *Builder {
	return &Builder{resolver: resolver, ttl: ttl}
}

// Build returns the trail for url in root-to-leaf order. It never fails:
// lookup errors degrade every entry to a plain label.
func (b *Builder) Build(ctx context.Context, siteID uint, url string) []models.Breadcrumb {
	if b.ttl <= 0 {
		crumbs, _ := b.build(ctx, siteID, url)
		return crumbs
	}

	var crumbs []models.Breadcrumb
	key := cache.BreadcrumbKey(siteID, cache.Generation(ctx, siteID), url)
	// A failed lookup still fills crumbs; Aside just skips caching it.
	_ = cache.Aside(ctx, "breadcrumbs", key, &crumbs, b.ttl, func() error {
		var err error
		crumbs, err = b.build(ctx, siteID, url)
		return err
	})
	return crumbs
}

func (b *Builder) build(ctx context.Context, siteID uint, url string) ([]models.Breadcrumb, error) {
	trail := Trail(url)

	found := map[string]models.Page{}
	pages, err := b.resolver.FindByURLs(ctx, siteID, trail)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "breadcrumb lookup failed, using labels",
			"url", url, "error", err.Error())
	}
	for _, p := range pages {
		if _, dup := found[p.URL]; !dup && p.IsPublished() {
			found[p.URL] = p
		}
	}

	crumbs := make([]models.Breadcrumb, 0, len(trail))
	for i, u := range trail {
		if p, ok := found[u]; ok {
			link := p.URL
			name := p.Name
			if name == "" {
				name = p.Title
			}
			crumbs = append(crumbs, models.Breadcrumb{Name: name, URL: &link})
			continue
		}
		// The bare root has no segment to label; show it only when a page lives there.
		if u == "/" && i == 0 && len(trail) > 1 {
			continue
		}
		crumbs = append(crumbs, models.Breadcrumb{Name: Label(u)})
	}
	return crumbs, err
}
