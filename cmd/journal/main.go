package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/totegamma/concrnt-journal/internal/config"
	"github.com/totegamma/concrnt-journal/internal/infrastructure/providers"
	"github.com/totegamma/concrnt-journal/internal/present/rest"
	authmw "github.com/totegamma/concrnt-journal/internal/present/rest/middleware"
	"github.com/totegamma/concrnt-journal/internal/service"
	"github.com/totegamma/concrnt-journal/internal/usecase"
)

const serviceName = "concrnt-journal"

func setupTraceProvider(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(
		ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	conf, err := config.Load(config.Path())
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()), slog.String("module", "main"))
		os.Exit(1)
	}
	domainConf, err := conf.Domain()
	if err != nil {
		slog.Error("invalid config", slog.String("error", err.Error()), slog.String("module", "main"))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.Server.EnableTrace {
		shutdown, err := setupTraceProvider(ctx, conf.Server.TraceEndpoint)
		if err != nil {
			panic(err)
		}
		defer func() {
			_ = shutdown(context.Background())
		}()
	}

	db, err := providers.NewDatabase(conf.Server)
	if err != nil {
		panic("failed to connect database")
	}

	err = providers.MigrateDatabase(db)
	if err != nil {
		panic("failed to migrate database")
	}

	mc := providers.NewMemcache(conf.Server.MemcachedAddr)
	docCache := providers.NewDocumentCache(mc, domainConf.CacheTTL)
	repo := providers.NewDocumentRepository(db, docCache)
	transfer := providers.NewTransferGateway(db, docCache)

	catalog, err := providers.NewCatalog(domainConf.LocalePath)
	if err != nil {
		panic(err)
	}

	var signalService *service.SignalService
	var publisher usecase.Publisher
	if rdb := providers.NewRedis(conf.Server); rdb != nil {
		signalService = service.NewSignalService(rdb)
		publisher = signalService
	}

	relationshipUC := usecase.NewRelationshipUsecase(publisher)
	offeringUC := usecase.NewOfferingUsecase(transfer, publisher)
	dropUC := usecase.NewDropUsecase(relationshipUC, offeringUC)

	authService := service.NewAuthService(domainConf)
	handler := rest.NewHandler(domainConf, repo, catalog, relationshipUC, offeringUC, dropUC, signalService)

	e := echo.New()
	e.HideBanner = true
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware(serviceName))
	}
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	handler.RegisterRoutes(e, authmw.NewAuthMiddleware(authService))

	go func() {
		if err := e.Start(conf.Server.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", slog.String("error", err.Error()), slog.String("module", "main"))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Fatal(err)
	}
}
