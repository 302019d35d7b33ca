package pagetag

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"testing"

	"flatpages/internal/models"
	"flatpages/internal/query"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want Directive
	}{
		{
			name: "Bare",
			src:  "{% fetch-pages %}",
			want: Directive{Var: "pages"},
		},
		{
			name: "Options And Variable",
			src:  `{% fetch-pages sort='views' limit=10 tags="foo,bar" as popular %}`,
			want: Directive{Var: "popular", Args: []Arg{
				{Key: "sort", Value: `"views"`},
				{Key: "limit", Value: "10"},
				{Key: "tags", Value: `"foo,bar"`},
			}},
		},
		{
			name: "Template Expressions",
			src:  "fetch-pages remove=.Page.ID owners=$owner sort='random' as related",
			want: Directive{Var: "related", Args: []Arg{
				{Key: "remove", Value: ".Page.ID"},
				{Key: "owners", Value: "$owner"},
				{Key: "sort", Value: `"random"`},
			}},
		},
		{
			name: "Quoted Spaces",
			src:  "{% fetch-pages starts_with='/about us/' %}",
			want: Directive{Var: "pages", Args: []Arg{{Key: "starts_with", Value: `"/about us/"`}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want.Var, got.Var)
			assert.Equal(t, tt.want.Args, got.Args)
			assert.Equal(t, tt.src, got.Source)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"Unknown Option", "{% fetch-pages colour='red' %}"},
		{"Duplicate Option", "{% fetch-pages limit=1 limit=2 %}"},
		{"Missing Value", "{% fetch-pages limit= %}"},
		{"Not Key Value", "{% fetch-pages limit %}"},
		{"Bad Value", "{% fetch-pages limit=(1) %}"},
		{"As Without Name", "{% fetch-pages as %}"},
		{"As Not Last", "{% fetch-pages as pages limit=1 %}"},
		{"Bad Variable", "{% fetch-pages as 9lives %}"},
		{"Unterminated Quote", "{% fetch-pages sort='views %}"},
		{"Unknown Sort", "{% fetch-pages sort='bogus' %}"},
		{"Quoted Limit Not A Number", "{% fetch-pages limit='x' %}"},
		{"Negative Limit", "{% fetch-pages limit=-1 %}"},
		{"Integer Tags", "{% fetch-pages tags=5 %}"},
		{"Owners Not Ids", "{% fetch-pages owners='alice' %}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
			var syn *SyntaxError
			assert.True(t, errors.As(err, &syn))
			assert.Contains(t, err.Error(), tt.src)
		})
	}
}

func TestExpand(t *testing.T) {
	src := "<ul>{% fetch-pages sort='views' limit=2 as popular %}{{ range $popular }}<li>{{ .Title }}</li>{{ end }}</ul>\n" +
		"{%- fetch-pages\n  tags='news' -%}"

	out, err := Expand(src)
	require.NoError(t, err)
	assert.Equal(t,
		`<ul>{{ $popular := $.FetchPages "sort" "views" "limit" 2 }}{{ range $popular }}<li>{{ .Title }}</li>{{ end }}</ul>`+"\n"+
			`{{- $pages := $.FetchPages "tags" "news" -}}`,
		out)

	_, err = Expand("{% fetch-pages bogus=1 %}")
	assert.Error(t, err)

	plain := "<p>{% other-tag %}</p>"
	out, err = Expand(plain)
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

type renderData struct {
	Context
	Page *models.Page
}

func TestContext_FetchPagesInTemplate(t *testing.T) {
	var got query.Options
	fetch := func(_ context.Context, opts query.Options) ([]models.Page, error) {
		got = opts
		return []models.Page{{Title: "One"}, {Title: "Two"}}, nil
	}

	src, err := Expand(`{% fetch-pages sort='-created' remove=.Page.ID limit=2 as recent %}{{ range $recent }}[{{ .Title }}]{{ end }}`)
	require.NoError(t, err)
	tmpl, err := template.New("t").Parse(src)
	require.NoError(t, err)

	var buf bytes.Buffer
	data := renderData{
		Context: Context{Ctx: context.Background(), SiteID: 3, Fetch: fetch},
		Page:    &models.Page{ID: 11},
	}
	require.NoError(t, tmpl.Execute(&buf, data))

	assert.Equal(t, "[One][Two]", buf.String())
	assert.Equal(t, query.Options{SiteID: 3, Sort: query.SortCreatedDesc, Remove: []uint{11}, Limit: 2}, got)
}

func TestContext_FetchPagesCarriesViewerScope(t *testing.T) {
	var got query.Options
	c := Context{
		SiteID:        2,
		PublishedOnly: true,
		PublicOnly:    true,
		Fetch: func(_ context.Context, opts query.Options) ([]models.Page, error) {
			got = opts
			return nil, nil
		},
	}

	_, err := c.FetchPages("sort", "views")
	require.NoError(t, err)
	assert.Equal(t, query.Options{SiteID: 2, Sort: query.SortViews, PublishedOnly: true, PublicOnly: true}, got)
}

func TestContext_FetchPagesErrors(t *testing.T) {
	var c Context
	_, err := c.FetchPages("limit", 1)
	assert.Error(t, err)

	c.Fetch = func(context.Context, query.Options) ([]models.Page, error) { return nil, nil }
	_, err = c.FetchPages("limit")
	assert.True(t, models.IsCode(err, models.CodeInvalidArgument))

	_, err = c.FetchPages(1, 2)
	assert.True(t, models.IsCode(err, models.CodeInvalidArgument))

	_, err = c.FetchPages("limit", "many")
	assert.True(t, models.IsCode(err, models.CodeInvalidArgument))
}
