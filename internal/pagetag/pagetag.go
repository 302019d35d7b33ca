// Package pagetag implements the fetch-pages template directive.
//
// Templates may contain
//
//	{% fetch-pages sort='views' limit=5 as popular %}
//
// which Expand rewrites into a plain html/template action before parsing:
//
//	{{ $popular := $.FetchPages "sort" "views" "limit" 5 }}
//
// The render data supplies FetchPages (see Context), so results are passed
// into the template explicitly rather than stashed in shared state.
package pagetag

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"flatpages/internal/models"
	"flatpages/internal/query"
)

// Name is the directive keyword.
const Name = "fetch-pages"

// DefaultVar is bound when a directive has no "as" clause.
const DefaultVar = "pages"

var (
	directivePattern = regexp.MustCompile(`(?s)\{%-?\s*fetch-pages\b(.*?)%\}`)
	identPattern     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	intPattern       = regexp.MustCompile(`^-?[0-9]+$`)
	fieldPattern     = regexp.MustCompile(`^(\$[A-Za-z0-9_]*|\.[A-Za-z_][A-Za-z0-9_]*)(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
)

// Arg is one key=value pair. Value is already a template operand.
type Arg struct {
	Key   string
	Value string
}

// Directive is a parsed fetch-pages tag.
type Directive struct {
	Args   []Arg
	Var    string
	Source string
}

// SyntaxError reports a malformed directive.
type SyntaxError struct {
	Source string
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s in %q", Name, e.Reason, e.Source)
}

func syntaxErr(src, format string, args ...any) error {
	return &SyntaxError{Source: src, Reason: fmt.Sprintf(format, args...)}
}

// tokenize splits on whitespace outside quotes.
func tokenize(s string) ([]string, error) {
	var (
		tokens []string
		cur    strings.Builder
		quote  rune
		inTok  bool
	)
	for _, r := range s {
		switch {
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
			inTok = true
			cur.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inTok {
				tokens = append(tokens, cur.String())
				cur.Reset()
				inTok = false
			}
		default:
			inTok = true
			cur.WriteRune(r)
		}
	}
	if quote != 0 {
		return nil, errors.New("unterminated quote")
	}
	if inTok {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

// operand converts a directive value into a template operand.
func operand(v string) (string, bool) {
	if len(v) >= 2 && (v[0] == '\'' || v[0] == '"') && v[len(v)-1] == v[0] {
		inner := v[1 : len(v)-1]
		if strings.ContainsRune(inner, rune(v[0])) {
			return "", false
		}
		return strconv.Quote(inner), true
	}
	if intPattern.MatchString(v) || fieldPattern.MatchString(v) {
		return v, true
	}
	return "", false
}

// literal returns the value a quoted or integer operand evaluates to. Field
// references are only known at render time.
func literal(v string) (any, bool) {
	if v[0] == '\'' || v[0] == '"' {
		return v[1 : len(v)-1], true
	}
	if intPattern.MatchString(v) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return v, true
		}
		return n, true
	}
	return nil, false
}

// Parse parses the body of a directive, with or without the surrounding
// {% %} delimiters and the leading keyword.
func Parse(src string) (Directive, error) {
	body := strings.TrimSpace(src)
	body = strings.TrimPrefix(body, "{%")
	body = strings.TrimPrefix(body, "-")
	body = strings.TrimSuffix(body, "%}")
	body = strings.TrimSuffix(body, "-")
	body = strings.TrimSpace(body)
	body = strings.TrimSpace(strings.TrimPrefix(body, Name))

	tokens, err := tokenize(body)
	if err != nil {
		return Directive{}, syntaxErr(src, "%v", err)
	}

	d := Directive{Var: DefaultVar, Source: src}
	seen := map[string]bool{}
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok == "as" {
			if i != len(tokens)-2 {
				return Directive{}, syntaxErr(src, `"as" must be followed by exactly one variable name`)
			}
			name := tokens[i+1]
			if !identPattern.MatchString(name) {
				return Directive{}, syntaxErr(src, "invalid variable name %q", name)
			}
			d.Var = name
			break
		}

		key, value, ok := strings.Cut(tok, "=")
		if !ok || key == "" || value == "" {
			return Directive{}, syntaxErr(src, "expected key=value, got %q", tok)
		}
		if !query.IsKey(key) {
			return Directive{}, syntaxErr(src, "unknown option %q (expected one of %s)", key, strings.Join(query.Keys, ", "))
		}
		if seen[key] {
			return Directive{}, syntaxErr(src, "option %q given twice", key)
		}
		seen[key] = true

		op, ok := operand(value)
		if !ok {
			return Directive{}, syntaxErr(src, "invalid value %q for %s", value, key)
		}
		if lit, ok := literal(value); ok {
			if _, err := query.ParseOptions(map[string]any{key: lit}); err != nil {
				return Directive{}, syntaxErr(src, "invalid value %s for %s: %v", value, key, err)
			}
		}
		d.Args = append(d.Args, Arg{Key: key, Value: op})
	}
	return d, nil
}

// Action renders the directive as an html/template action. Trim markers
// on the original delimiters carry over.
func (d Directive) Action() string {
	var b strings.Builder
	b.WriteString("{{")
	if strings.HasPrefix(strings.TrimSpace(d.Source), "{%-") {
		b.WriteString("-")
	}
	fmt.Fprintf(&b, " $%s := $.FetchPages", d.Var)
	for _, a := range d.Args {
		fmt.Fprintf(&b, " %q %s", a.Key, a.Value)
	}
	b.WriteString(" ")
	if strings.HasSuffix(strings.TrimSpace(d.Source), "-%}") {
		b.WriteString("-")
	}
	b.WriteString("}}")
	return b.String()
}

// Expand rewrites every directive in src into its template action.
func Expand(src string) (string, error) {
	var firstErr error
	out := directivePattern.ReplaceAllStringFunc(src, func(m string) string {
		if firstErr != nil {
			return m
		}
		d, err := Parse(m)
		if err != nil {
			firstErr = err
			return m
		}
		return d.Action()
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// Fetcher runs a composed page query.
type Fetcher func(ctx context.Context, opts query.Options) ([]models.Page, error)

// Context carries what a template needs to run fetch-pages during a render.
type Context struct {
	Ctx           context.Context
	SiteID        uint
	PublishedOnly bool
	PublicOnly    bool
	Fetch         Fetcher
}

// FetchPages takes alternating option keys and values, as emitted by Expand,
// and returns the matching pages on the render's site.
func (c Context) FetchPages(args ...any) ([]models.Page, error) {
	if c.Fetch == nil {
		return nil, errors.New("fetch-pages is not available in this template")
	}
	if len(args)%2 != 0 {
		return nil, models.NewInvalidArgumentError(Name, fmt.Errorf("odd number of arguments: %d", len(args)))
	}
	kwargs := make(map[string]any, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			return nil, models.NewInvalidArgumentError(Name, fmt.Errorf("option name must be a string, got %T", args[i]))
		}
		kwargs[key] = args[i+1]
	}

	opts, err := query.ParseOptions(kwargs)
	if err != nil {
		return nil, err
	}
	opts.SiteID = c.SiteID
	opts.PublishedOnly = c.PublishedOnly
	opts.PublicOnly = c.PublicOnly

	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return c.Fetch(ctx, opts)
}
