package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cfdi-verificador/internal/application/ports"
	"github.com/jhoicas/cfdi-verificador/internal/application/verification"
	"github.com/jhoicas/cfdi-verificador/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-verificador/internal/infrastructure/cache"
	"github.com/jhoicas/cfdi-verificador/internal/infrastructure/metrics"
	"github.com/jhoicas/cfdi-verificador/internal/infrastructure/ocr"
	infrapdf "github.com/jhoicas/cfdi-verificador/internal/infrastructure/pdf"
	"github.com/jhoicas/cfdi-verificador/internal/infrastructure/postgres"
	infrasat "github.com/jhoicas/cfdi-verificador/internal/infrastructure/sat"
	httpRouter "github.com/jhoicas/cfdi-verificador/internal/interfaces/http"
	"github.com/jhoicas/cfdi-verificador/pkg/config"
	"github.com/jhoicas/cfdi-verificador/pkg/logger"
	"github.com/jhoicas/cfdi-verificador/pkg/sat"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	recorder := metrics.NewRecorder()

	// Caché de estados: Redis si está configurado, si no en memoria.
	var statusCache ports.StatusCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisStatusCache(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.SAT.CacheTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rc.Close()
		statusCache = rc
		log.Info().Str("addr", cfg.Redis.Addr).Msg("caché de estados en Redis")
	} else {
		statusCache = cache.NewMemoryStatusCache(cfg.SAT.CacheTTL)
	}

	authorityOpts := []verification.AuthorityOption{
		verification.WithMetrics(recorder),
		verification.WithLogger(log),
	}
	// Bitácora de consultas: solo con base de datos configurada.
	if cfg.DB.Enabled() {
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		repo := postgres.NewConsultaRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("esquema de bitácora")
		}
		authorityOpts = append(authorityOpts, verification.WithAuditor(repo))
	}

	satClient := infrasat.NewSOAPClient(cfg.SAT.URL, nil)
	authority := verification.NewAuthorityValidator(satClient, statusCache, verification.AuthorityConfig{
		Timeout: cfg.SAT.Timeout,
		MaxRPS:  cfg.SAT.MaxRPS,
	}, authorityOpts...)

	ocrSource := ocr.NewTesseractSource(ocr.Config{
		Tesseract: cfg.OCR.Tesseract,
		Pdftoppm:  cfg.OCR.Pdftoppm,
		Lang:      cfg.OCR.Lang,
		DPI:       cfg.OCR.DPI,
		MaxPages:  cfg.OCR.MaxPages,
		Workers:   cfg.OCR.Workers,
	}, ocr.NewExecRunner(log), log)
	extractor := verification.NewTextExtractor(ocr.NewPDFTextSource(), ocrSource, cfg.OCR.MinTextLength, log, recorder)

	parserCfg := cfdi.DefaultParserConfig()
	parserCfg.Certifiers = sat.DefaultCertifierRFCs().With(cfg.SAT.CertifierRFCs...)
	orchestrator := verification.NewOrchestrator(extractor, cfdi.NewParser(parserCfg), authority, log)

	maxUpload := int64(cfg.HTTP.MaxUploadMB) << 20
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    int(maxUpload) + 1<<20,
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 60,
		IdleTimeout:  time.Second * 60,
	})

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(cfg.HTTP.SwaggerPath); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.HTTP.SwaggerPath,
			Path:     "docs",
			Title:    "Verificador CFDI API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		Service:      cfg.App.Name,
		Orchestrator: orchestrator,
		Acuse:        infrapdf.NewAcusePDFGenerator(),
		Metrics:      recorder.Handler(),
		JWTSecret:    cfg.JWT.Secret,
		JWTIssuer:    cfg.JWT.Issuer,
		MaxUpload:    maxUpload,
		Log:          log,
	})
	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET vacío: /api/cfdi sin autenticación")
	}

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
