package main

import (
	"context"
	"log/slog"
	"os"
	"watsearch-backend/lib/serviceutil"
	"watsearch-backend/lib/telemetry"
)

func InitTelemetry(ctx context.Context, verbose bool) {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	err := telemetry.SetupFromEnv(ctx, "watsearch-server")
	if os.IsNotExist(err) {
		slog.WarnContext(ctx, "no telemetry.json5 found, exporting disabled")
	} else if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	} else {
		go func() {
			<-ctx.Done()
			telemetry.Shutdown(context.Background())
		}()
	}
	telemetry.InstrumentPerfStats(ctx)
}
