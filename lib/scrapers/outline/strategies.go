package outline

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/titanous/json5"
	"watsearch-backend/lib/htmlutil"
)

// The outline portal has drifted through several markup generations
// and some deployments ship a client-rendered shell. Every identity
// field is therefore extracted through an ordered list of strategies,
// tried in priority order until one yields a non-empty value.
type fieldStrategy func(p *page) string

type page struct {
	doc *goquery.Document
	raw string
	// lazily parsed embedded state, nil until first requested
	state      map[string]any
	stateIsSet bool
}

var courseCodeRegex = regexp.MustCompile(`([A-Z]{2,4}\s*\d{3})`)

// the last-resort sweep over raw markup also accepts lowercased codes
var courseCodeLooseRegex = regexp.MustCompile(`(?i)([A-Z]{2,4}\s*\d{3})`)

var termRegex = regexp.MustCompile(`(?i)(Fall|Winter|Spring)\s+\d{4}`)

func selectorText(selector string) fieldStrategy {
	return func(p *page) string {
		return htmlutil.Text(p.doc.Find(selector).First())
	}
}

func regexOverSelector(selector string, re *regexp.Regexp) fieldStrategy {
	return func(p *page) string {
		text := p.doc.Find(selector).First().Text()
		return strings.TrimSpace(re.FindString(text))
	}
}

func regexOverRaw(re *regexp.Regexp) fieldStrategy {
	return func(p *page) string {
		return strings.TrimSpace(re.FindString(p.raw))
	}
}

var codeStrategies = []fieldStrategy{
	selectorText(".outline-courses"),
	selectorText(`[class*="course-code"]`),
	regexOverSelector("h1", courseCodeRegex),
	regexOverSelector("title", courseCodeRegex),
	embeddedStateField("code"),
	regexOverRaw(courseCodeLooseRegex),
}

var termStrategies = []fieldStrategy{
	selectorText(".outline-term"),
	selectorText(`[class*="term"]`),
	embeddedStateField("term"),
	regexOverRaw(termRegex),
}

var titleStrategies = []fieldStrategy{
	selectorText(".outline-title-full"),
	selectorText(".outline-title"),
	selectorText("h1"),
	selectorText("h2"),
	selectorText(`[class*="title"]`),
	embeddedStateField("title"),
}

func extractField(p *page, strategies []fieldStrategy) string {
	for _, s := range strategies {
		if v := s(p); v != "" {
			return v
		}
	}
	return ""
}

var spaMarkers = []string{
	"data-v-app",
	"vue",
	"react",
	`id="app"`,
}

// looksLikeSpa reports whether the page is a client-rendered shell:
// either it carries a framework marker, or it has an app mount
// element whose rendered text is implausibly short.
func looksLikeSpa(p *page) bool {
	for _, m := range spaMarkers {
		if strings.Contains(p.raw, m) {
			return true
		}
	}
	app := p.doc.Find("#app")
	return app.Length() > 0 && len(strings.TrimSpace(app.Text())) < 100
}

var stateBlobRegexes = []*regexp.Regexp{
	regexp.MustCompile(`window\.__INITIAL_STATE__\s*=\s*(\{[\s\S]*?\});`),
	regexp.MustCompile(`window\.__PRELOADED_STATE__\s*=\s*(\{[\s\S]*?\});`),
	regexp.MustCompile(`<script[^>]*type=["']application/json["'][^>]*>([\s\S]*?)</script>`),
}

// embeddedState digs the first parseable JSON state blob out of a
// SPA shell. The blobs are untrusted input, anything unparsable is
// simply treated as absent.
func (p *page) embeddedState() map[string]any {
	if p.stateIsSet {
		return p.state
	}
	p.stateIsSet = true

	if !looksLikeSpa(p) {
		return nil
	}
	for _, re := range stateBlobRegexes {
		groups := re.FindStringSubmatch(p.raw)
		if len(groups) < 2 {
			continue
		}
		var state map[string]any
		err := json5.Unmarshal([]byte(groups[1]), &state)
		if err != nil {
			continue
		}
		p.state = state
		return p.state
	}
	return nil
}

// embeddedStateField reads course.<field> out of the embedded state,
// tolerating any shape mismatch along the way. "title" also accepts
// a "name" key since both appear in the wild.
func embeddedStateField(field string) fieldStrategy {
	return func(p *page) string {
		state := p.embeddedState()
		if state == nil {
			return ""
		}
		course, ok := state["course"].(map[string]any)
		if !ok {
			return ""
		}
		if v, ok := course[field].(string); ok && v != "" {
			return strings.TrimSpace(v)
		}
		if field == "title" {
			if v, ok := course["name"].(string); ok {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}
}
