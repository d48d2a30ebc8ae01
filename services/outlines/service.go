package outlines

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"watsearch-backend/lib/scrapers/outline"
	"watsearch-backend/lib/timezone"
)

var tracer = otel.Tracer("services/outlines")

type ServiceOptions struct {
	// defaults to a fetcher with standard retry behavior
	Fetcher *outline.Fetcher
	// pause between batch items, defaults to 500ms
	BatchDelay time.Duration
}

// Service ingests uploaded outline HTML into the per-owner course
// store. It accepts both single outline pages and "my outlines"
// listings pages and figures out which one it was given.
type Service struct {
	store   Store
	fetcher *outline.Fetcher
	delay   time.Duration
}

func NewService(database *sql.DB, opts ServiceOptions) Service {
	if opts.Fetcher == nil {
		opts.Fetcher = outline.NewFetcher(outline.FetcherOptions{})
	}
	return Service{
		store:   NewStore(database),
		fetcher: opts.Fetcher,
		delay:   opts.BatchDelay,
	}
}

func (s Service) Store() Store {
	return s.store
}

type UploadOptions struct {
	// skip fetching and storing, just report what the listings contain
	ParseOnly bool
	// when non-empty only listings of these terms are processed
	Terms []string
	// pre-downloaded outline HTML keyed by (code, term)
	Cached map[CourseKey]string
	// optional batch progress callback
	OnEvent func(Event)
}

type UploadResult struct {
	Success bool   `json:"success"`
	Kind    string `json:"kind"`
	Message string `json:"message"`

	// outline uploads
	Course *outline.Course `json:"course,omitempty"`

	// listings uploads
	Terms        []string                `json:"terms,omitempty"`
	Listings     []outline.CourseListing `json:"listings,omitempty"`
	SuccessCount int                     `json:"successCount,omitempty"`
	FailedCount  int                     `json:"failedCount,omitempty"`
	Errors       []ItemFailure           `json:"errors,omitempty"`

	Added   int `json:"added"`
	Updated int `json:"updated"`
}

const (
	UploadKindOutline  = "outline"
	UploadKindListings = "listings"
)

// IsListingsDocument reports whether an uploaded page is a "my
// outlines" listings page rather than a single outline. Saved pages
// keep the portal hostname in their filename, rendered listings carry
// one of the portal's navigation headings.
func IsListingsDocument(filename string, html string) bool {
	if strings.Contains(filename, "Outline.uwaterloo.ca") {
		return true
	}
	return strings.Contains(html, "Browse Outlines") ||
		strings.Contains(html, "My Enrolled Courses")
}

// ProcessUpload ingests one uploaded HTML document for the owner.
// The returned result reports business outcomes; the error is
// reserved for storage failures.
func (s Service) ProcessUpload(ctx context.Context, owner string, filename string, html string, opts UploadOptions) (UploadResult, error) {
	ctx, span := tracer.Start(ctx, "ProcessUpload")
	defer span.End()
	span.SetAttributes(
		attribute.String("owner", owner),
		attribute.String("filename", filename),
		attribute.Int("html_length", len(html)),
	)

	if IsListingsDocument(filename, html) {
		return s.ProcessListings(ctx, owner, html, opts)
	}
	return s.processOutline(ctx, owner, filename, html)
}

func (s Service) processOutline(ctx context.Context, owner string, filename string, html string) (UploadResult, error) {
	course, err := outline.ParseOutline(html, filename)
	if err != nil {
		slog.InfoContext(
			ctx, "uploaded outline could not be parsed",
			"owner", owner,
			"filename", filename,
			"err", err,
		)
		return UploadResult{
			Success: false,
			Kind:    UploadKindOutline,
			Message: err.Error(),
		}, nil
	}

	added, updated, err := s.store.Save(ctx, owner, []outline.Course{course})
	if err != nil {
		return UploadResult{}, err
	}
	return UploadResult{
		Success: true,
		Kind:    UploadKindOutline,
		Message: fmt.Sprintf("parsed outline for %s (%s)", course.Code, course.Term),
		Course:  &course,
		Added:   added,
		Updated: updated,
	}, nil
}

// ProcessListings runs the listings half of ProcessUpload directly,
// for callers that already know what kind of document they hold.
func (s Service) ProcessListings(ctx context.Context, owner string, html string, opts UploadOptions) (UploadResult, error) {
	ctx, span := tracer.Start(ctx, "ProcessListings")
	defer span.End()
	return s.processListings(ctx, owner, html, opts)
}

func (s Service) processListings(ctx context.Context, owner string, html string, opts UploadOptions) (UploadResult, error) {
	listings := outline.ParseListings(html)
	listings = filterByTerm(listings, opts.Terms)
	terms, _ := outline.GroupByTerm(listings)

	if len(listings) == 0 {
		return UploadResult{
			Success: false,
			Kind:    UploadKindListings,
			Message: "no course listings recognized",
		}, nil
	}

	if opts.ParseOnly {
		return UploadResult{
			Success:  true,
			Kind:     UploadKindListings,
			Message:  fmt.Sprintf("found %d listings across %d terms", len(listings), len(terms)),
			Terms:    terms,
			Listings: listings,
		}, nil
	}

	runner := NewRunner(RunnerOptions{
		Fetcher: s.fetcher,
		Delay:   s.delay,
		OnEvent: opts.OnEvent,
	})
	batch := runner.Run(ctx, listings, opts.Cached)
	if batch.State == BatchFailed {
		span := trace.SpanFromContext(ctx)
		span.RecordError(batch.Err)
		span.SetStatus(codes.Error, "batch run failed")
		return UploadResult{
			Success: false,
			Kind:    UploadKindListings,
			Message: batch.Err.Error(),
		}, nil
	}

	// parsed records go in first so the stubs can never displace them
	incoming := make([]outline.Course, 0, len(batch.Courses)+len(listings))
	incoming = append(incoming, batch.Courses...)
	for _, l := range listings {
		incoming = append(incoming, placeholderCourse(l))
	}

	// a cancelled run still saves what it accumulated, so the save
	// must outlive the cancelled request context
	saveCtx := ctx
	if batch.State == BatchCancelled {
		saveCtx = context.WithoutCancel(ctx)
	}
	added, updated, err := s.store.Save(saveCtx, owner, incoming)
	if err != nil {
		return UploadResult{}, err
	}

	message := fmt.Sprintf("processed %d of %d listings", len(batch.Courses), len(listings))
	if batch.State == BatchCancelled {
		message += " (cancelled before finishing)"
	}
	return UploadResult{
		Success:      true,
		Kind:         UploadKindListings,
		Message:      message,
		Terms:        terms,
		SuccessCount: len(batch.Courses),
		FailedCount:  len(batch.Failures),
		Errors:       batch.Failures,
		Added:        added,
		Updated:      updated,
	}, nil
}

func filterByTerm(listings []outline.CourseListing, terms []string) []outline.CourseListing {
	if len(terms) == 0 {
		return listings
	}
	keep := map[string]bool{}
	for _, t := range terms {
		keep[t] = true
	}
	filtered := []outline.CourseListing{}
	for _, l := range listings {
		if keep[l.Term] {
			filtered = append(filtered, l)
		}
	}
	return filtered
}

// placeholderCourse synthesizes a stub record from a listings row so
// the owner sees every enrolled course even before its outline has
// been fetched and parsed.
func placeholderCourse(l outline.CourseListing) outline.Course {
	sections := make([]string, 0, len(l.Sections))
	for _, s := range l.Sections {
		sections = append(sections, s+" [LEC]")
	}
	// rows from the flat listings layout carry no term panel
	term := l.Term
	if term == "" {
		term = outline.TermForDate(timezone.Now())
	}
	return outline.Course{
		Id:               outline.DeriveId(l.Code, term),
		Code:             l.Code,
		Name:             l.Title,
		Term:             term,
		Sections:         sections,
		Schedule:         outline.Schedule{Days: []string{}},
		Description:      PlaceholderMarker + " once the course outline is published.",
		LearningOutcomes: []string{},
		Assessments:      []outline.Assessment{},
		Materials:        []outline.Material{},
		Policies:         []string{},
	}
}
