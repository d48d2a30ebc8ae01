package main

import (
	"flag"
	"os"
	"watsearch-backend/lib/configutil"
	"watsearch-backend/lib/serviceutil"
	"watsearch-backend/lib/sqliteutil"
	"watsearch-backend/services/outlines"
	"watsearch-backend/services/outlines/db"
	"watsearch-backend/services/outlines/server"

	"github.com/gin-gonic/gin"
)

type OutlinesConfig struct {
	Database string `json:"database"`
}

type Config struct {
	Port     int            `json:"port"`
	Outlines OutlinesConfig `json:"outlines"`
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	InitTelemetry(ctx, *verbose)

	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("read config", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.Outlines.Database == "" {
		cfg.Outlines.Database = "data/outlines.db"
	}

	database, err := sqliteutil.OpenDB(db.Schema, cfg.Outlines.Database)
	if err != nil {
		serviceutil.Fatal("init outlines db", err)
	}

	if !*verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	service := outlines.NewService(database, outlines.ServiceOptions{})
	server.New(service).Register(router)

	go serviceutil.StartHttpServer(cfg.Port, router)
	<-ctx.Done()
}
