package outline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"watsearch-backend/lib/telemetry"
)

var tracer = otel.Tracer("scrapers/outline")

type FailureKind int

const (
	FailureNetwork FailureKind = iota
	FailureTimeout
	FailureHttp
)

func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureHttp:
		return "http"
	default:
		return "network"
	}
}

// FetchError classifies why a page could not be retrieved. Callers
// use it to distinguish "could not obtain content" from "fetched
// but unparsable".
type FetchError struct {
	Kind   FailureKind
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Kind == FailureHttp {
		return fmt.Sprintf("fetch failed: http %d", e.Status)
	}
	return fmt.Sprintf("fetch failed (%s): %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type FetcherOptions struct {
	// additional attempts after the first, defaults to 2
	MaxRetries int
	// per-attempt deadline, defaults to 30s
	AttemptTimeout time.Duration
}

// Fetcher retrieves raw outline HTML with bounded retries and a
// browser-like identity, so the portal doesn't serve us its reduced
// bot response.
type Fetcher struct {
	http           *resty.Client
	maxRetries     int
	attemptTimeout time.Duration
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 2
	}
	if opts.AttemptTimeout == 0 {
		opts.AttemptTimeout = time.Second * 30
	}

	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.SetHeader("Accept-Language", "en-US,en;q=0.5")

	telemetry.InstrumentResty(client, "scrapers/outline/http")

	return &Fetcher{
		http:           client,
		maxRetries:     opts.MaxRetries,
		attemptTimeout: opts.AttemptTimeout,
	}
}

// FetchText retrieves the full document text of `url`. It retries
// on any failure with linear backoff (1s, 2s, ...) and returns the
// last classified error once the retry budget is spent.
func (f *Fetcher) FetchText(ctx context.Context, url string) (string, error) {
	ctx, span := tracer.Start(ctx, "FetchText")
	defer span.End()

	var lastErr *FetchError
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		body, ferr := f.fetchOnce(ctx, url)
		if ferr == nil {
			return body, nil
		}
		lastErr = ferr

		slog.DebugContext(
			ctx, "fetch attempt failed",
			"url", url,
			"attempt", attempt,
			"kind", ferr.Kind.String(),
		)
		if attempt == f.maxRetries {
			break
		}

		select {
		case <-time.After(time.Second * time.Duration(attempt+1)):
		case <-ctx.Done():
			span.SetStatus(codes.Error, "cancelled while backing off")
			return "", &FetchError{Kind: FailureNetwork, Err: ctx.Err()}
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "retries exhausted")
	slog.WarnContext(
		ctx, "failed to fetch outline",
		"url", url,
		"attempts", f.maxRetries+1,
		"err", lastErr,
	)
	return "", lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (string, *FetchError) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.attemptTimeout)
	defer cancel()

	res, err := f.http.R().
		SetContext(attemptCtx).
		Get(url)
	if err != nil {
		kind := FailureNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			kind = FailureTimeout
		}
		return "", &FetchError{Kind: kind, Err: err}
	}
	if res.StatusCode() < 200 || res.StatusCode() > 299 {
		return "", &FetchError{Kind: FailureHttp, Status: res.StatusCode()}
	}
	return res.String(), nil
}
