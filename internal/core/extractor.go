package core

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/rafabd1/Loginprobe/internal/config"
)

// TokenExtractor pulls the CSRF token out of a login page body.
// Only the first matching input element counts.
type TokenExtractor interface {
	Extract(body string) (string, bool)
}

// NewTokenExtractor returns the extractor for parser ("regex" or "html")
// looking for an input element named field.
func NewTokenExtractor(parser, field string) (TokenExtractor, error) {
	switch parser {
	case config.TokenParserRegex, "":
		return newPatternExtractor(field), nil
	case config.TokenParserHTML:
		return &htmlExtractor{field: field}, nil
	default:
		return nil, fmt.Errorf("unknown token parser %q", parser)
	}
}

// patternExtractor scans raw text, case-insensitively, for
// <input ... name=FIELD ... value="TOKEN">. It does not parse HTML.
type patternExtractor struct {
	pattern *regexp.Regexp
}

func newPatternExtractor(field string) *patternExtractor {
	expr := `(?i)<input[^>]*name=['"]?` + regexp.QuoteMeta(field) + `['"]?[^>]*value=['"]([^'"]+)['"]`
	return &patternExtractor{pattern: regexp.MustCompile(expr)}
}

func (e *patternExtractor) Extract(body string) (string, bool) {
	m := e.pattern.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// htmlExtractor walks the token stream, so attribute order and quoting do not matter.
type htmlExtractor struct {
	field string
}

func (e *htmlExtractor) Extract(body string) (string, bool) {
	z := html.NewTokenizer(strings.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a tokenizer error; either way no token was found.
			return "", false
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "input" {
				continue
			}
			var name, value string
			for _, attr := range tok.Attr {
				switch attr.Key {
				case "name":
					name = attr.Val
				case "value":
					value = attr.Val
				}
			}
			if strings.EqualFold(name, e.field) && value != "" {
				return value, true
			}
		}
	}
}
