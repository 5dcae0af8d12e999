package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/cfdi-verificador/internal/application/ports"
	"github.com/jhoicas/cfdi-verificador/internal/application/verification"
	"github.com/jhoicas/cfdi-verificador/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Service      string
	Orchestrator *verification.Orchestrator
	Acuse        ports.AcusePDFGenerator
	Metrics      http.Handler // nil = sin /metrics
	JWTSecret    string
	JWTIssuer    string
	MaxUpload    int64
	Log          *logger.Logger
}

// Router registra middlewares y rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Use(recover.New())
	app.Use(RequestLogger(deps.Log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.Service})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	h := NewCFDIHandler(deps.Orchestrator, deps.Acuse, deps.MaxUpload, deps.Log)

	// Rutas protegidas (Bearer Token cuando JWT_SECRET está definido)
	api := app.Group("/api/cfdi", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	api.Post("/validar-sat", h.ValidarSAT)
	api.Post("/ocr", h.ValidarOCR)
	api.Post("/qr", h.CruzarQR)
	api.Post("/autopilot", h.Autopilot)
	api.Post("/acuse", h.Acuse)
	api.Delete("/cache", h.LimpiarCache)
}
