package seed

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory generates plausible page trees. The same seed yields the same tree.
type Factory struct {
	faker *gofakeit.Faker
}

// NewFactory creates a Factory. A zero seed picks a random one.
func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed)}
}

// Tree returns n fixtures arranged as sections with nested children, so
// breadcrumbs and starts_with queries have something to work on.
func (f *Factory) Tree(n int) []Fixture {
	if n <= 0 {
		return nil
	}

	tagPool := make([]string, 8)
	for i := range tagPool {
		tagPool[i] = f.slug()
	}

	fixtures := make([]Fixture, 0, n)
	var sections []string
	for i := 0; len(fixtures) < n; i++ {
		var url string
		if len(sections) == 0 || f.faker.Number(1, 4) == 1 {
			url = fmt.Sprintf("/%s-%d/", f.slug(), i)
			sections = append(sections, url)
		} else {
			parent := sections[f.faker.Number(0, len(sections)-1)]
			url = fmt.Sprintf("%s%s-%d/", parent, f.slug(), i)
		}
		fixtures = append(fixtures, f.page(url, tagPool))
	}
	return fixtures
}

func (f *Factory) page(url string, tagPool []string) Fixture {
	title := strings.TrimSuffix(f.faker.Sentence(f.faker.Number(2, 5)), ".")
	name := title
	if words := strings.Fields(title); len(words) > 2 {
		name = strings.Join(words[:2], " ")
	}

	status := "published"
	if f.faker.Number(1, 10) <= 2 {
		status = "draft"
	}

	var tags []string
	seen := map[string]bool{}
	for i := f.faker.Number(0, 3); i > 0; i-- {
		tag := tagPool[f.faker.Number(0, len(tagPool)-1)]
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	paragraphs := make([]string, f.faker.Number(1, 4))
	for i := range paragraphs {
		paragraphs[i] = "<p>" + f.faker.Paragraph(1, f.faker.Number(2, 5), 12, " ") + "</p>"
	}

	return Fixture{
		URL:            url,
		Title:          title,
		Name:           name,
		Status:         status,
		Tags:           tags,
		Views:          int64(f.faker.Number(0, 500)),
		EnableComments: f.faker.Bool(),
		Content:        strings.Join(paragraphs, "\n"),
	}
}

// slug returns a lowercase word reduced to URL-safe letters and digits.
func (f *Factory) slug() string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-':
			return '-'
		}
		return -1
	}, strings.ToLower(f.faker.Word()))
	if s == "" {
		return "page"
	}
	return s
}
