package http

import (
	"errors"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cfdi-verificador/internal/application/dto"
	"github.com/jhoicas/cfdi-verificador/internal/application/ports"
	"github.com/jhoicas/cfdi-verificador/internal/application/verification"
	"github.com/jhoicas/cfdi-verificador/internal/domain"
	"github.com/jhoicas/cfdi-verificador/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-verificador/pkg/logger"
)

// DefaultMaxUpload tamaño máximo de archivo aceptado (15 MB).
const DefaultMaxUpload = 15 << 20

// CFDIHandler expone los flujos de validación de CFDI.
type CFDIHandler struct {
	orq       *verification.Orchestrator
	acuse     ports.AcusePDFGenerator
	maxUpload int64
	log       *logger.Logger
}

// NewCFDIHandler construye el handler. maxUpload <= 0 usa DefaultMaxUpload.
func NewCFDIHandler(orq *verification.Orchestrator, acuse ports.AcusePDFGenerator, maxUpload int64, log *logger.Logger) *CFDIHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &CFDIHandler{orq: orq, acuse: acuse, maxUpload: maxUpload, log: log.Component("cfdi")}
}

// ValidarSAT godoc
// @Summary      Validar CFDI ante el SAT
// @Description  Consulta el estado del CFDI con la tupla UUID, RFC emisor, RFC receptor y total. Un SAT caído o lento devuelve "Sin Verificar" con permitirGuardar=true.
// @Tags         cfdi
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ValidarSATRequest  true  "Tupla fiscal"
// @Success      200   {object}  dto.ValidacionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /api/cfdi/validar-sat [post]
func (h *CFDIHandler) ValidarSAT(c *fiber.Ctx) error {
	var req dto.ValidarSATRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	tuple, err := tuplaSAT(req)
	if err != nil {
		return invalidInput(c, err)
	}
	res, err := h.orq.ValidarSAT(c.UserContext(), tuple)
	if err != nil {
		return invalidInput(c, err)
	}
	return c.JSON(dto.NewValidacionResponse(res))
}

// ValidarOCR godoc
// @Summary      Validar documento escaneado (OCR)
// @Description  Extrae la tupla fiscal de un PDF o imagen. Si se envían campos del registro se concilian en modo tolerante y prevalecen para la consulta al SAT.
// @Tags         cfdi
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        archivo      formData  file    true   "PDF o imagen del comprobante"
// @Param        uuid         formData  string  false  "UUID del registro"
// @Param        rfcEmisor    formData  string  false  "RFC emisor del registro"
// @Param        rfcReceptor  formData  string  false  "RFC receptor del registro"
// @Param        total        formData  string  false  "Total del registro"
// @Success      200   {object}  dto.ValidacionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      413   {object}  dto.ErrorResponse
// @Router       /api/cfdi/ocr [post]
func (h *CFDIHandler) ValidarOCR(c *fiber.Ctx) error {
	doc, ok, err := h.archivo(c)
	if !ok {
		return err
	}
	reg := dto.RegistroRequest{
		UUID:        c.FormValue("uuid"),
		RFCEmisor:   c.FormValue("rfcEmisor"),
		RFCReceptor: c.FormValue("rfcReceptor"),
		Total:       dto.Monto(c.FormValue("total")),
	}
	if err := dto.Validate(reg); err != nil {
		return validationFailed(c, err)
	}
	var registro *cfdi.FiscalTuple
	if !reg.IsEmpty() {
		t, err := reg.Tuple()
		if err != nil {
			return invalidInput(c, err)
		}
		registro = &t
	}
	res := h.orq.ValidarDocumentoOCR(c.UserContext(), doc, registro)
	return c.JSON(dto.NewValidacionResponse(res))
}

// CruzarQR godoc
// @Summary      Cruzar QR contra el registro
// @Description  Concilia en modo estricto los datos del QR del CFDI con el registro. No consulta al SAT.
// @Tags         cfdi
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.QRRequest  true  "Contenido del QR y registro"
// @Success      200   {object}  dto.ValidacionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/cfdi/qr [post]
func (h *CFDIHandler) CruzarQR(c *fiber.Ctx) error {
	var req dto.QRRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	registro, err := req.Registro.Tuple()
	if err != nil {
		return invalidInput(c, err)
	}
	return c.JSON(dto.NewValidacionResponse(h.orq.CruzarQR(req.QR, registro)))
}

// Autopilot godoc
// @Summary      Autopilot de PDF
// @Description  Extrae, analiza y consulta al SAT un PDF sin registro de referencia.
// @Tags         cfdi
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        archivo  formData  file  true  "PDF del comprobante"
// @Success      200   {object}  dto.ValidacionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      413   {object}  dto.ErrorResponse
// @Router       /api/cfdi/autopilot [post]
func (h *CFDIHandler) Autopilot(c *fiber.Ctx) error {
	doc, ok, err := h.archivo(c)
	if !ok {
		return err
	}
	if !ports.IsPDF(doc) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "NOT_PDF", Message: "el archivo debe ser un PDF"})
	}
	return c.JSON(dto.NewValidacionResponse(h.orq.AutopilotPDF(c.UserContext(), doc)))
}

// Acuse godoc
// @Summary      Acuse de verificación en PDF
// @Description  Consulta al SAT y genera el acuse con la tupla, el estado y el QR de verificación.
// @Tags         cfdi
// @Security     Bearer
// @Accept       json
// @Produce      application/pdf
// @Param        body  body  dto.ValidarSATRequest  true  "Tupla fiscal"
// @Success      200   {file}    binary
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /api/cfdi/acuse [post]
func (h *CFDIHandler) Acuse(c *fiber.Ctx) error {
	var req dto.ValidarSATRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}
	tuple, err := tuplaSAT(req)
	if err != nil {
		return invalidInput(c, err)
	}
	consulta, err := cfdi.ConsultaFromTuple(tuple)
	if err != nil {
		return invalidInput(c, err)
	}
	res, err := h.orq.ValidarSAT(c.UserContext(), tuple)
	if err != nil {
		return invalidInput(c, err)
	}
	pdf, err := h.acuse.Generate(c.UserContext(), ports.AcuseData{Consulta: consulta, Status: *res.Decision})
	if err != nil {
		h.log.Error().Err(err).Str("uuid", consulta.UUID).Msg("generar acuse")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "PDF_ERROR", Message: "no se pudo generar el acuse"})
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="acuse-%s.pdf"`, consulta.UUID))
	return c.Send(pdf)
}

// LimpiarCache godoc
// @Summary      Limpiar caché de estados del SAT
// @Tags         cfdi
// @Security     Bearer
// @Produce      json
// @Success      200   {object}  dto.CacheClearedResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/cfdi/cache [delete]
func (h *CFDIHandler) LimpiarCache(c *fiber.Ctx) error {
	n, err := h.orq.LimpiarCache(c.UserContext())
	if err != nil {
		h.log.Error().Err(err).Msg("limpiar caché")
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "CACHE_ERROR", Message: "no se pudo limpiar la caché"})
	}
	return c.JSON(dto.CacheClearedResponse{
		Success:    true,
		Eliminadas: n,
		Mensaje:    fmt.Sprintf("Caché limpiada: %d entrada(s) eliminada(s)", n),
	})
}

// ── helpers ───────────────────────────────────────────────────────────────────

// bind parsea y valida el body. Con ok=false la respuesta de error ya fue escrita.
func (h *CFDIHandler) bind(c *fiber.Ctx, out any) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo de la petición inválido"})
	}
	if err := dto.Validate(out); err != nil {
		return false, validationFailed(c, err)
	}
	return true, nil
}

// archivo lee el campo multipart "archivo" con límite de tamaño. Con ok=false la
// respuesta de error ya fue escrita.
func (h *CFDIHandler) archivo(c *fiber.Ctx) ([]byte, bool, error) {
	fh, err := c.FormFile("archivo")
	if err != nil {
		return nil, false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_FILE", Message: "campo 'archivo' requerido"})
	}
	if fh.Size > h.maxUpload {
		return nil, false, c.Status(fiber.StatusRequestEntityTooLarge).JSON(dto.ErrorResponse{
			Code: "FILE_TOO_LARGE", Message: fmt.Sprintf("el archivo excede %d MB", h.maxUpload>>20),
		})
	}
	f, err := fh.Open()
	if err != nil {
		return nil, false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_FILE", Message: "no se pudo leer el archivo"})
	}
	defer f.Close()
	doc, err := io.ReadAll(io.LimitReader(f, h.maxUpload))
	if err != nil || len(doc) == 0 {
		return nil, false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_FILE", Message: "archivo vacío o ilegible"})
	}
	return doc, true, nil
}

func tuplaSAT(req dto.ValidarSATRequest) (cfdi.FiscalTuple, error) {
	return dto.RegistroRequest{
		UUID: req.UUID, RFCEmisor: req.RFCEmisor, RFCReceptor: req.RFCReceptor, Total: req.Total,
	}.Tuple()
}

func validationFailed(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Code:    "VALIDATION",
		Message: "datos inválidos",
		Details: dto.ValidationDetails(err),
	})
}

// invalidInput responde 400 con un detalle por cada FieldError de err.
func invalidInput(c *fiber.Ctx, err error) error {
	if !errors.Is(err, domain.ErrInvalidInput) {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	var details []dto.ValidationDetail
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		var fe *domain.FieldError
		if errors.As(e, &fe) {
			details = append(details, dto.ValidationDetail{Field: fe.Field, Message: fe.Reason})
		}
	}
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos fiscales inválidos", Details: details})
}
