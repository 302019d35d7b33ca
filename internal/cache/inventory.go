package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	GenerationKeyPrefix = "flatpages:site:%d:gen"
	BreadcrumbKeyPrefix = "flatpages:site:%d:gen:%d:crumbs:%s"
)

const (
	BreadcrumbTTL = 10 * time.Minute
)

// GenerationKey holds the content generation counter for a site.
func GenerationKey(siteID uint) string {
	return fmt.Sprintf(GenerationKeyPrefix, siteID)
}

// BreadcrumbKey addresses the cached trail for url under a content generation.
// The url is hashed to keep keys bounded.
func BreadcrumbKey(siteID uint, gen int64, url string) string {
	sum := sha1.Sum([]byte(url))
	return fmt.Sprintf(BreadcrumbKeyPrefix, siteID, gen, hex.EncodeToString(sum[:]))
}

// Generation returns the site's current content generation. Keys built from
// an older generation are never read again and expire on their own.
func Generation(ctx context.Context, siteID uint) int64 {
	if client == nil {
		return 0
	}
	gen, err := client.Get(ctx, GenerationKey(siteID)).Int64()
	if err != nil {
		return 0
	}
	return gen
}

// BumpGeneration invalidates every cached entry derived from the site's pages.
func BumpGeneration(ctx context.Context, siteID uint) {
	if client != nil {
		client.Incr(ctx, GenerationKey(siteID))
	}
}
