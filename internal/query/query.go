// Package query composes page listings from named filter, sort and limit
// options. The same option set backs the fetch-pages template directive, the
// public listing API and the pages CLI.
package query

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"flatpages/internal/models"

	"gorm.io/gorm"
)

// Sort selects the ordering of a composed listing.
type Sort int

const (
	// SortDefault orders by url, the collection's natural order.
	SortDefault Sort = iota
	SortCreated
	SortCreatedDesc
	SortModified
	SortModifiedDesc
	// SortViews puts the most viewed pages first.
	SortViews
	// SortViewsDesc puts the least viewed pages first.
	SortViewsDesc
	SortRandom
)

var sortNames = map[Sort]string{
	SortDefault:      "url",
	SortCreated:      "created",
	SortCreatedDesc:  "-created",
	SortModified:     "modified",
	SortModifiedDesc: "-modified",
	SortViews:        "views",
	SortViewsDesc:    "-views",
	SortRandom:       "random",
}

func (s Sort) String() string {
	if name, ok := sortNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Sort(%d)", int(s))
}

// ParseSort maps a sort keyword to a Sort. The empty string selects the
// default order; unknown keywords are rejected.
func ParseSort(s string) (Sort, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return SortDefault, nil
	}
	for candidate, name := range sortNames {
		if name == s {
			return candidate, nil
		}
	}
	return SortDefault, models.NewInvalidArgumentError("sort",
		fmt.Errorf("unknown sort %q (expected one of %s)", s, strings.Join(SortNames(), ", ")))
}

// SortNames lists the accepted sort keywords.
func SortNames() []string {
	names := make([]string, 0, len(sortNames))
	for _, name := range sortNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Option keys accepted by ParseOptions.
const (
	KeySort       = "sort"
	KeyTags       = "tags"
	KeyNotTags    = "not_tags"
	KeyStartsWith = "starts_with"
	KeyOwners     = "owners"
	KeyLimit      = "limit"
	KeyRemove     = "remove"
)

// Keys lists every option key in application order.
var Keys = []string{KeySort, KeyTags, KeyNotTags, KeyStartsWith, KeyOwners, KeyLimit, KeyRemove}

// IsKey reports whether k names a composer option.
func IsKey(k string) bool {
	for _, key := range Keys {
		if key == k {
			return true
		}
	}
	return false
}

// Options is the full set of composer criteria. Zero values mean "no filter".
type Options struct {
	SiteID     uint
	Sort       Sort
	Tags       []string
	NotTags    []string
	StartsWith string
	Owners     []uint
	Limit      int
	Remove     []uint

	// PublishedOnly hides drafts and PublicOnly hides pages that require a
	// login. Neither has a keyword form; callers set them from the viewer.
	PublishedOnly bool
	PublicOnly    bool
}

// Validate rejects option values that can't be applied.
func (o Options) Validate() error {
	if o.Limit < 0 {
		return models.NewInvalidArgumentError(KeyLimit, fmt.Errorf("must not be negative, got %d", o.Limit))
	}
	if _, ok := sortNames[o.Sort]; !ok {
		return models.NewInvalidArgumentError(KeySort, fmt.Errorf("unknown sort %d", int(o.Sort)))
	}
	return nil
}

// ParseOptions builds Options from keyword arguments. Values may be strings
// (lists comma separated), integers or slices of either.
func ParseOptions(args map[string]any) (Options, error) {
	var opts Options
	for key, value := range args {
		if value == nil {
			continue
		}
		var err error
		switch key {
		case KeySort:
			var s string
			if s, err = toString(key, value); err == nil {
				opts.Sort, err = ParseSort(s)
			}
		case KeyTags:
			opts.Tags, err = toStrings(key, value)
		case KeyNotTags:
			opts.NotTags, err = toStrings(key, value)
		case KeyStartsWith:
			opts.StartsWith, err = toString(key, value)
		case KeyOwners:
			opts.Owners, err = toIDs(key, value)
		case KeyRemove:
			opts.Remove, err = toIDs(key, value)
		case KeyLimit:
			opts.Limit, err = toLimit(value)
		default:
			err = models.NewInvalidArgumentError(key, fmt.Errorf("unknown option (expected one of %s)", strings.Join(Keys, ", ")))
		}
		if err != nil {
			return Options{}, err
		}
	}
	return opts, opts.Validate()
}

func toString(key string, v any) (string, error) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), nil
	case fmt.Stringer:
		return strings.TrimSpace(t.String()), nil
	}
	return "", models.NewInvalidArgumentError(key, fmt.Errorf("expected a string, got %T", v))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func toStrings(key string, v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		return splitList(t), nil
	case []string:
		var out []string
		for _, s := range t {
			out = append(out, splitList(s)...)
		}
		return out, nil
	case []any:
		var out []string
		for _, item := range t {
			s, err := toString(key, item)
			if err != nil {
				return nil, err
			}
			out = append(out, splitList(s)...)
		}
		return out, nil
	}
	return nil, models.NewInvalidArgumentError(key, fmt.Errorf("expected a string list, got %T", v))
}

func toID(key string, v any) (uint, error) {
	var n uint64
	switch t := v.(type) {
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(t), 10, 32)
		if err != nil {
			return 0, models.NewInvalidArgumentError(key, err)
		}
		n = parsed
	case int, int8, int16, int32, int64:
		i, _ := toInt64(t)
		if i < 0 {
			return 0, models.NewInvalidArgumentError(key, fmt.Errorf("negative id %d", i))
		}
		n = uint64(i)
	case uint:
		n = uint64(t)
	case uint8:
		n = uint64(t)
	case uint16:
		n = uint64(t)
	case uint32:
		n = uint64(t)
	case uint64:
		n = t
	case float64:
		if t < 0 || t != math.Trunc(t) {
			return 0, models.NewInvalidArgumentError(key, fmt.Errorf("invalid id %v", t))
		}
		n = uint64(t)
	default:
		return 0, models.NewInvalidArgumentError(key, fmt.Errorf("expected an id, got %T", v))
	}
	if n > math.MaxUint32 {
		return 0, models.NewInvalidArgumentError(key, fmt.Errorf("id %d out of range", n))
	}
	return uint(n), nil
}

func toInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	}
	return 0, false
}

func toIDs(key string, v any) ([]uint, error) {
	var items []any
	switch t := v.(type) {
	case string:
		for _, part := range splitList(t) {
			items = append(items, part)
		}
	case []string:
		for _, s := range t {
			for _, part := range splitList(s) {
				items = append(items, part)
			}
		}
	case []uint:
		return append([]uint(nil), t...), nil
	case []int:
		for _, i := range t {
			items = append(items, i)
		}
	case []any:
		items = t
	default:
		items = []any{v}
	}

	ids := make([]uint, 0, len(items))
	for _, item := range items {
		id, err := toID(key, item)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func toLimit(v any) (int, error) {
	var n int64
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return 0, models.NewInvalidArgumentError(KeyLimit, err)
		}
		n = parsed
	case float64:
		if t != math.Trunc(t) {
			return 0, models.NewInvalidArgumentError(KeyLimit, fmt.Errorf("not an integer: %v", t))
		}
		n = int64(t)
	case uint:
		n = int64(t)
	case uint32:
		n = int64(t)
	default:
		i, ok := toInt64(v)
		if !ok {
			return 0, models.NewInvalidArgumentError(KeyLimit, fmt.Errorf("expected an integer, got %T", v))
		}
		n = i
	}
	if n < 0 || n > math.MaxInt32 {
		return 0, models.NewInvalidArgumentError(KeyLimit, fmt.Errorf("out of range: %d", n))
	}
	return int(n), nil
}

// taggedWith selects ids of pages carrying any of names.
func taggedWith(db *gorm.DB, names []string) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Table("page_tags").
		Select("page_tags.page_id").
		Joins("JOIN tags ON tags.id = page_tags.tag_id").
		Where("tags.name IN ?", names)
}

func order(q *gorm.DB, s Sort) *gorm.DB {
	switch s {
	case SortCreated:
		return q.Order("pages.created_at ASC").Order("pages.id ASC")
	case SortCreatedDesc:
		return q.Order("pages.created_at DESC").Order("pages.id DESC")
	case SortModified:
		return q.Order("pages.updated_at ASC").Order("pages.id ASC")
	case SortModifiedDesc:
		return q.Order("pages.updated_at DESC").Order("pages.id DESC")
	case SortViews:
		return q.Order("pages.views DESC").Order("pages.url ASC")
	case SortViewsDesc:
		return q.Order("pages.views ASC").Order("pages.url ASC")
	case SortRandom:
		return q.Order("RANDOM()")
	default:
		return q.Order("pages.url ASC").Order("pages.id ASC")
	}
}

// Apply scopes db to the pages matching opts. Criteria are applied in a fixed
// sequence: site, sort, tags, not_tags, starts_with, owners, remove, limit.
func Apply(db *gorm.DB, opts Options) *gorm.DB {
	q := db.Model(&models.Page{})

	if opts.SiteID != 0 {
		q = q.Where("pages.id IN (?)", db.Session(&gorm.Session{NewDB: true}).
			Table("page_sites").
			Select("page_id").
			Where("site_id = ?", opts.SiteID))
	}

	if opts.PublishedOnly {
		q = q.Where("pages.status = ?", models.StatusPublished)
	}
	if opts.PublicOnly {
		q = q.Where("pages.registration_required = ?", false)
	}

	q = order(q, opts.Sort)

	// Subqueries keep each page at most once, whatever tags matched.
	if len(opts.Tags) > 0 {
		q = q.Where("pages.id IN (?)", taggedWith(db, opts.Tags))
	}
	if len(opts.NotTags) > 0 {
		q = q.Where("pages.id NOT IN (?)", taggedWith(db, opts.NotTags))
	}

	if opts.StartsWith != "" {
		// SUBSTR compares case-sensitively on every supported dialect, unlike LIKE on SQLite.
		n := utf8.RuneCountInString(opts.StartsWith)
		q = q.Where(fmt.Sprintf("SUBSTR(pages.url, 1, %d) = ?", n), opts.StartsWith)
	}

	if len(opts.Owners) > 0 {
		q = q.Where("pages.owner_id IN ?", opts.Owners)
	}
	if len(opts.Remove) > 0 {
		q = q.Where("pages.id NOT IN ?", opts.Remove)
	}

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	return q
}
