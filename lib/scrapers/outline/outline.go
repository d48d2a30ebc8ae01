package outline

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"watsearch-backend/lib/htmlutil"
	"watsearch-backend/lib/textutil"
	"watsearch-backend/lib/timezone"
)

// ParseError reports why an outline page could not be reduced to a
// Course, with enough diagnostics to tell markup drift apart from a
// client-rendered shell.
type ParseError struct {
	HtmlLength int
	CodeFound  bool
	TitleFound bool
	TermFound  bool
	HasAppDiv  bool
	Reason     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf(
		"parse outline: %s (html_length=%d code=%v title=%v term=%v app_div=%v)",
		e.Reason, e.HtmlLength, e.CodeFound, e.TitleFound, e.TermFound, e.HasAppDiv,
	)
}

// ParseOutline reduces one outline detail page to a Course. It never
// panics and never returns a half-populated record: if no strategy
// can recover a course code and a title the whole parse fails.
// sourceUrl is only used for diagnostics and may be empty.
func ParseOutline(html string, sourceUrl string) (course Course, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("outline parser panicked", "url", sourceUrl, "panic", r)
			course = Course{}
			err = &ParseError{
				HtmlLength: len(html),
				Reason:     fmt.Sprintf("internal panic: %v", r),
			}
		}
	}()

	doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(html))
	if docErr != nil {
		return Course{}, &ParseError{
			HtmlLength: len(html),
			Reason:     "unreadable document: " + docErr.Error(),
		}
	}
	p := &page{doc: doc, raw: html}

	code := extractField(p, codeStrategies)
	term := extractField(p, termStrategies)
	title := extractField(p, titleStrategies)

	if code == "" || title == "" {
		perr := &ParseError{
			HtmlLength: len(html),
			CodeFound:  code != "",
			TitleFound: title != "",
			TermFound:  term != "",
			HasAppDiv:  doc.Find("#app").Length() > 0,
			Reason:     "no recognizable course code or title",
		}
		slog.Debug(
			"failed to parse outline",
			"url", sourceUrl,
			"html_length", perr.HtmlLength,
			"code", code,
			"title", title,
			"term", term,
		)
		return Course{}, perr
	}

	course = Course{
		Id:               DeriveId(code, term),
		Code:             code,
		Name:             title,
		Term:             term,
		Sections:         extractSections(doc),
		Instructor:       extractInstructor(doc),
		Schedule:         extractSchedule(doc),
		Description:      extractDescription(doc),
		LearningOutcomes: extractLearningOutcomes(doc),
		Assessments:      extractAssessments(doc, code),
		Materials:        extractMaterials(doc, code),
		Policies:         extractPolicies(doc),
	}
	return course, nil
}

func extractSections(doc *goquery.Document) []string {
	sections := []string{}
	doc.Find(".section").Each(func(_ int, el *goquery.Selection) {
		if text := htmlutil.Text(el); text != "" {
			sections = append(sections, text)
		}
	})
	return sections
}

func lineAfterLabel(text, label string) string {
	_, rest, found := strings.Cut(text, label)
	if !found {
		return ""
	}
	line, _, _ := strings.Cut(rest, "\n")
	return strings.TrimSpace(line)
}

func extractInstructor(doc *goquery.Document) Instructor {
	block := doc.Find(".instructor-info")
	email, _ := block.Find("small a").First().Attr("href")
	blockText := block.Text()
	return Instructor{
		Name:        htmlutil.Text(block.Find("span").First()),
		Email:       strings.TrimPrefix(email, "mailto:"),
		Office:      lineAfterLabel(blockText, "Office:"),
		OfficeHours: lineAfterLabel(blockText, "Office Hours:"),
	}
}

func extractSchedule(doc *goquery.Document) Schedule {
	days := []string{}
	doc.Find(".days-visual span.present").Each(func(_ int, el *goquery.Selection) {
		day := strings.ReplaceAll(htmlutil.Text(el), ",", "")
		if day != "" {
			days = append(days, day)
		}
	})

	timeText := ""
	location := ""
	doc.Find("td").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := el.Text()
		if timeText == "" && (strings.Contains(text, "AM") || strings.Contains(text, "PM")) {
			timeText = htmlutil.Text(el)
		}
		if location == "" &&
			(strings.Contains(text, "MC") || strings.Contains(text, "DC") || strings.Contains(text, "EV")) {
			location = htmlutil.Text(el)
		}
		return timeText == "" || location == ""
	})

	return Schedule{
		Days:     days,
		Time:     timeText,
		Location: location,
	}
}

func extractDescription(doc *goquery.Document) string {
	return htmlutil.Text(
		doc.Find("#course_description").
			NextAll().
			Filter(".dynamic-component, .html-block").
			First(),
	)
}

func extractLearningOutcomes(doc *goquery.Document) []string {
	outcomes := []string{}
	doc.Find("#learning_outcomes + .multitable-container .multitable tbody tr td").
		Each(func(_ int, el *goquery.Selection) {
			if text := htmlutil.Text(el); text != "" {
				outcomes = append(outcomes, text)
			}
		})
	return outcomes
}

func extractAssessments(doc *goquery.Document, code string) []Assessment {
	assessments := []Assessment{}
	doc.Find("#assessments_amp_activities + .multitable-container .multitable tbody tr").
		Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 4 {
				return
			}

			name := htmlutil.Text(cells.Eq(0))
			dueText := htmlutil.Text(cells.Eq(1))
			location := htmlutil.Text(cells.Eq(2))
			weightText := strings.ReplaceAll(htmlutil.Text(cells.Eq(3)), "%", "")

			weight, err := strconv.ParseFloat(strings.TrimSpace(weightText), 64)
			if name == "" || err != nil {
				return
			}

			assessments = append(assessments, Assessment{
				Id:          code + "-" + textutil.Slugify(name),
				Name:        name,
				Type:        classifyAssessment(name),
				Weight:      weight,
				DueDate:     parseDueDate(dueText),
				Description: location,
			})
		})
	return assessments
}

var dueDateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"01/02/2006",
	"2006-01-02 15:04",
	time.RFC3339,
}

// parseDueDate returns nil for anything it can't make sense of, an
// invalid date never propagates into a Course.
func parseDueDate(text string) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	for _, layout := range dueDateLayouts {
		t, err := time.ParseInLocation(layout, text, timezone.Location)
		if err == nil {
			return &t
		}
	}
	return nil
}

func extractMaterials(doc *goquery.Document, code string) []Material {
	materials := []Material{}
	doc.Find("#readings + .multitable-container .multitable tbody tr").
		Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 3 {
				return
			}

			title := htmlutil.Text(cells.Eq(0))
			if title == "" {
				return
			}
			notes := htmlutil.Text(cells.Eq(1))
			required := strings.EqualFold(htmlutil.Text(cells.Eq(2)), "yes")

			materials = append(materials, Material{
				Id:       code + "-" + textutil.Slugify(title),
				Title:    title,
				Type:     "textbook",
				Required: required,
				Notes:    notes,
			})
		})
	return materials
}

func extractPolicies(doc *goquery.Document) []string {
	policies := []string{}
	doc.Find("#late_missed_content + .html-block p").Each(func(_ int, el *goquery.Selection) {
		if text := htmlutil.Text(el); text != "" {
			policies = append(policies, text)
		}
	})
	return policies
}
