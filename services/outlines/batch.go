package outlines

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"watsearch-backend/lib/scrapers/outline"
)

// CourseKey identifies one listings row for HTML cache lookups.
type CourseKey struct {
	Code string
	Term string
}

type BatchState int32

const (
	BatchIdle BatchState = iota
	BatchRunning
	BatchCompleted
	BatchCancelled
	BatchFailed
)

func (s BatchState) String() string {
	switch s {
	case BatchRunning:
		return "running"
	case BatchCompleted:
		return "completed"
	case BatchCancelled:
		return "cancelled"
	case BatchFailed:
		return "failed"
	default:
		return "idle"
	}
}

type Progress struct {
	Current      int    `json:"current"`
	Total        int    `json:"total"`
	SuccessCount int    `json:"successCount"`
	FailCount    int    `json:"failCount"`
	CurrentUrl   string `json:"currentUrl,omitempty"`
}

type EventKind int

const (
	EventProgress EventKind = iota
	EventCompleted
	EventCancelled
)

type Event struct {
	Kind     EventKind
	Progress Progress
}

// ItemFailure records why one listings row produced no course. These
// are expected outcomes of a run, not batch-level errors.
type ItemFailure struct {
	Listing outline.CourseListing `json:"listing"`
	Reason  string                `json:"reason"`
}

// ItemOutcome is the per-row result of a run, one per listing in
// input order.
type ItemOutcome struct {
	Listing outline.CourseListing `json:"listing"`
	Success bool                  `json:"success"`
	Course  outline.Course        `json:"course,omitempty"`
	Reason  string                `json:"reason,omitempty"`
}

type BatchResult struct {
	State BatchState
	// every processed listing in input order
	Outcomes []ItemOutcome
	Courses  []outline.Course
	Failures []ItemFailure
	// set only when the batch itself broke, never for item failures
	Err error
}

const minContentLength = 1000
const errorPageMaxLength = 5000

type RunnerOptions struct {
	// defaults to a fetcher with standard retry behavior
	Fetcher *outline.Fetcher
	// pause between items, defaults to 500ms
	Delay   time.Duration
	OnEvent func(Event)
}

// Runner walks a set of listings strictly one at a time, fetching and
// parsing each outline. It is polite to the portal: items are spaced
// out by a fixed delay and cancellation is honored between every
// suspension point.
type Runner struct {
	fetcher *outline.Fetcher
	delay   time.Duration
	onEvent func(Event)
	state   atomic.Int32
}

func NewRunner(opts RunnerOptions) *Runner {
	if opts.Fetcher == nil {
		opts.Fetcher = outline.NewFetcher(outline.FetcherOptions{})
	}
	if opts.Delay == 0 {
		opts.Delay = time.Millisecond * 500
	}
	if opts.OnEvent == nil {
		opts.OnEvent = func(Event) {}
	}
	return &Runner{
		fetcher: opts.Fetcher,
		delay:   opts.Delay,
		onEvent: opts.OnEvent,
	}
}

func (r *Runner) State() BatchState {
	return BatchState(r.state.Load())
}

// Run processes every listing in order. HTML found in `cached` under
// the listing's (code, term) is used instead of fetching. The result
// always carries every outcome accumulated so far, even when the run
// is cancelled midway.
func (r *Runner) Run(ctx context.Context, listings []outline.CourseListing, cached map[CourseKey]string) (result BatchResult) {
	ctx, span := tracer.Start(ctx, "batch.Run")
	defer span.End()
	span.SetAttributes(attribute.Int("listings", len(listings)))

	r.state.Store(int32(BatchRunning))
	result.Outcomes = []ItemOutcome{}
	result.Courses = []outline.Course{}
	result.Failures = []ItemFailure{}

	defer func() {
		if rec := recover(); rec != nil {
			slog.ErrorContext(ctx, "batch run panicked", "panic", rec)
			span.SetStatus(codes.Error, fmt.Sprintf("panic: %v", rec))
			result.State = BatchFailed
			result.Err = fmt.Errorf("batch run panicked: %v", rec)
			r.state.Store(int32(BatchFailed))
		}
	}()

	total := len(listings)
	for i, listing := range listings {
		if ctx.Err() != nil {
			return r.cancel(result, total)
		}

		course, reason := r.processItem(ctx, listing, cached)
		if ctx.Err() != nil {
			return r.cancel(result, total)
		}

		result.Outcomes = append(result.Outcomes, ItemOutcome{
			Listing: listing,
			Success: reason == "",
			Course:  course,
			Reason:  reason,
		})
		if reason == "" {
			result.Courses = append(result.Courses, course)
		} else {
			slog.DebugContext(
				ctx, "listing produced no course",
				"code", listing.Code,
				"term", listing.Term,
				"reason", reason,
			)
			result.Failures = append(result.Failures, ItemFailure{
				Listing: listing,
				Reason:  reason,
			})
		}
		r.onEvent(Event{
			Kind:     EventProgress,
			Progress: r.progress(i+1, total, result, listing.ViewUrl),
		})

		if i == total-1 {
			break
		}
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return r.cancel(result, total)
		}
	}

	result.State = BatchCompleted
	r.state.Store(int32(BatchCompleted))
	r.onEvent(Event{
		Kind:     EventCompleted,
		Progress: r.progress(total, total, result, ""),
	})
	return result
}

func (r *Runner) cancel(result BatchResult, total int) BatchResult {
	result.State = BatchCancelled
	r.state.Store(int32(BatchCancelled))
	done := len(result.Courses) + len(result.Failures)
	r.onEvent(Event{
		Kind:     EventCancelled,
		Progress: r.progress(done, total, result, ""),
	})
	return result
}

func (r *Runner) progress(current, total int, result BatchResult, url string) Progress {
	return Progress{
		Current:      current,
		Total:        total,
		SuccessCount: len(result.Courses),
		FailCount:    len(result.Failures),
		CurrentUrl:   url,
	}
}

func (r *Runner) processItem(ctx context.Context, listing outline.CourseListing, cached map[CourseKey]string) (outline.Course, string) {
	html, ok := cached[CourseKey{Code: listing.Code, Term: listing.Term}]
	if !ok {
		fetched, err := r.fetcher.FetchText(ctx, listing.ViewUrl)
		if err != nil {
			return outline.Course{}, "could not obtain content: " + err.Error()
		}
		html = fetched
	}

	if len(html) < minContentLength {
		return outline.Course{}, "content too short to be an outline"
	}
	if len(html) < errorPageMaxLength && strings.Contains(strings.ToLower(html), "error") {
		return outline.Course{}, "received an error page"
	}

	course, err := outline.ParseOutline(html, listing.ViewUrl)
	if err != nil {
		return outline.Course{}, "failed to parse, possibly requires script rendering"
	}
	return course, ""
}
