package fetch

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ResponseURLSelector is the reserved pseudo-selector resolving to the
// page's final URL instead of querying the document.
const ResponseURLSelector = "response.url"

// Selector suffixes choosing what to read from each matched element.
const (
	textSuffix = "::text"
	attrPrefix = "::attr("
)

// GoqueryEvaluator evaluates CSS selectors against page HTML. Selectors may
// carry a "::text" suffix for the element's text content or an
// "::attr(name)" suffix for an attribute value; without a suffix the
// element's outer HTML is returned.
type GoqueryEvaluator struct{}

// NewGoqueryEvaluator creates a new evaluator.
func NewGoqueryEvaluator() *GoqueryEvaluator {
	return &GoqueryEvaluator{}
}

// Evaluate returns every match of selector on the page, in document order.
func (e *GoqueryEvaluator) Evaluate(page *Page, selector string) ([]string, error) {
	if selector == ResponseURLSelector {
		return []string{page.URL}, nil
	}

	base, mode, attrName, err := splitSelector(selector)
	if err != nil {
		return nil, err
	}

	doc, parseErr := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if parseErr != nil {
		return nil, fmt.Errorf("parse html: %w", parseErr)
	}

	var matches []string

	doc.Find(base).Each(func(_ int, sel *goquery.Selection) {
		switch mode {
		case modeText:
			matches = append(matches, sel.Text())
		case modeAttr:
			if val, ok := sel.Attr(attrName); ok {
				matches = append(matches, val)
			}
		default:
			if html, htmlErr := goquery.OuterHtml(sel); htmlErr == nil {
				matches = append(matches, html)
			}
		}
	})

	return matches, nil
}

type selectorMode int

const (
	modeHTML selectorMode = iota
	modeText
	modeAttr
)

// splitSelector separates a selector into its CSS part and extraction mode.
func splitSelector(selector string) (base string, mode selectorMode, attrName string, err error) {
	if strings.HasSuffix(selector, textSuffix) {
		return strings.TrimSuffix(selector, textSuffix), modeText, "", nil
	}

	if idx := strings.Index(selector, attrPrefix); idx >= 0 {
		rest := selector[idx+len(attrPrefix):]
		if !strings.HasSuffix(rest, ")") || len(rest) < 2 {
			return "", modeHTML, "", fmt.Errorf("malformed attribute selector %q", selector)
		}
		return selector[:idx], modeAttr, strings.TrimSuffix(rest, ")"), nil
	}

	return selector, modeHTML, "", nil
}
