package outline

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"watsearch-backend/lib/htmlutil"
)

// BaseUrl is the outline portal root, relative view links are
// resolved against it.
const BaseUrl = "https://outline.uwaterloo.ca"

var viewLinkRegex = regexp.MustCompile(`/viewer/view/([^/]+)`)

func absoluteViewUrl(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return BaseUrl + href
}

// ParseListings extracts every course row from a listings page,
// grouped into term panels in document order. It never fails:
// rows without a code or a view link are skipped, and a page with
// no recognizable term panels falls back to a flat, term-less scan
// for view links.
func ParseListings(html string) []CourseListing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return []CourseListing{}
	}

	listings := []CourseListing{}
	foundPanels := false

	doc.Find("div.border").Each(func(_ int, panel *goquery.Selection) {
		termHeader := panel.Find("h3.text-xl")
		if termHeader.Length() == 0 {
			return
		}
		foundPanels = true
		term := htmlutil.Text(termHeader.First())

		panel.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 4 {
				return
			}

			code := htmlutil.Text(cells.Eq(0).Find("span"))
			title := htmlutil.Text(cells.Eq(1))
			sections := splitSections(htmlutil.Text(cells.Eq(2)))
			href, ok := cells.Eq(3).Find(`a[href*="/viewer/view/"]`).Attr("href")
			if code == "" || !ok {
				return
			}

			outlineId := ""
			if groups := viewLinkRegex.FindStringSubmatch(href); len(groups) > 1 {
				outlineId = groups[1]
			}

			listings = append(listings, CourseListing{
				Code:      code,
				Title:     title,
				Term:      term,
				Sections:  sections,
				ViewUrl:   absoluteViewUrl(href),
				OutlineId: outlineId,
			})
		})
	})

	if foundPanels {
		return listings
	}

	// no term panels at all, return whatever view links exist as a
	// flat term-less list
	seen := map[string]bool{}
	doc.Find(`a[href*="/viewer/view/"]`).Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		full := absoluteViewUrl(href)
		if seen[full] {
			return
		}
		seen[full] = true

		outlineId := ""
		if groups := viewLinkRegex.FindStringSubmatch(href); len(groups) > 1 {
			outlineId = groups[1]
		}
		listings = append(listings, CourseListing{
			Code:      htmlutil.Text(link),
			ViewUrl:   full,
			OutlineId: outlineId,
		})
	})

	return listings
}

func splitSections(text string) []string {
	if text == "" {
		return []string{}
	}
	parts := strings.Split(text, ",")
	sections := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			sections = append(sections, p)
		}
	}
	return sections
}

// GroupByTerm partitions listings by their term label, keeping
// encounter order of both terms and rows.
func GroupByTerm(listings []CourseListing) (terms []string, byTerm map[string][]CourseListing) {
	byTerm = map[string][]CourseListing{}
	for _, l := range listings {
		if _, ok := byTerm[l.Term]; !ok {
			terms = append(terms, l.Term)
		}
		byTerm[l.Term] = append(byTerm[l.Term], l)
	}
	return terms, byTerm
}
