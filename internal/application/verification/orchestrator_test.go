package verification_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-verificador/internal/application/verification"
	"github.com/jhoicas/cfdi-verificador/internal/domain"
	"github.com/jhoicas/cfdi-verificador/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-verificador/pkg/logger"
)

const textoFactura = `FACTURA
FOLIO FISCAL: 6f8a2d3e-1b4c-4d5e-9f60-718293a4b5c6
RFC EMISOR: AAA010101AAA
RFC RECEPTOR: BBB020202BB2
SUBTOTAL: $1,064.28
TOTAL COMPROBANTE: $1,234.56`

type orquestadorFixture struct {
	orq    *verification.Orchestrator
	sat    *fakeSAT
	direct *fakeSource
	ocr    *fakeSource
}

func newOrquestador(direct, ocr string) orquestadorFixture {
	f := orquestadorFixture{
		sat:    &fakeSAT{resp: respuestaVigente},
		direct: &fakeSource{text: direct, pages: 1},
		ocr:    &fakeSource{text: ocr, pages: 1},
	}
	extractor := verification.NewTextExtractor(f.direct, f.ocr, 50, logger.Nop(), nil)
	authority := newValidator(f.sat, newFakeCache())
	parser := cfdi.NewParser(cfdi.DefaultParserConfig())
	f.orq = verification.NewOrchestrator(extractor, parser, authority, logger.Nop())
	return f
}

func TestAutopilotPDF_FlujoCompleto(t *testing.T) {
	f := newOrquestador(textoFactura, "")

	res := f.orq.AutopilotPDF(context.Background(), pdfDoc)

	assert.Equal(t, verification.EtapaTerminado, res.Etapa)
	assert.True(t, res.Completo)
	assert.Equal(t, verification.MetodoFlujoAutopilot, res.Metodo)
	require.NotNil(t, res.Decision)
	assert.Equal(t, cfdi.EstadoVigente, res.Decision.Estado)
	assert.Nil(t, res.Reconciliacion)
	require.NotNil(t, res.Extraccion)
	assert.Equal(t, verification.MetodoPDFTexto, res.Extraccion.Metodo)
	assert.Equal(t, 1, f.sat.Calls())
}

func TestAutopilotPDF_SinTexto(t *testing.T) {
	f := newOrquestador("", "")

	res := f.orq.AutopilotPDF(context.Background(), pdfDoc)

	assert.Equal(t, verification.EtapaExtrayendo, res.Etapa)
	assert.False(t, res.Completo)
	assert.Len(t, res.CamposFaltantes, 4)
	assert.Equal(t, 0, f.sat.Calls())
}

func TestValidarDocumentoOCR_TuplaIncompleta(t *testing.T) {
	f := newOrquestador("", "FOLIO FISCAL: 6f8a2d3e-1b4c-4d5e-9f60-718293a4b5c6 emisor AAA010101AAA")

	res := f.orq.ValidarDocumentoOCR(context.Background(), []byte("imagen"), nil)

	assert.Equal(t, verification.EtapaAnalizando, res.Etapa)
	assert.False(t, res.Completo)
	assert.Equal(t, []string{cfdi.FieldRFCReceptor, cfdi.FieldTotal}, res.CamposFaltantes)
	assert.Nil(t, res.Decision)
	assert.Equal(t, 0, f.sat.Calls())
}

func TestValidarDocumentoOCR_RegistroPrevalece(t *testing.T) {
	f := newOrquestador("", textoFactura)
	total := decimal.RequireFromString("1234.56")
	registro := cfdi.NewFiscalTuple(testUUID, testRFCEmisor, "CCC030303CC3", &total)

	res := f.orq.ValidarDocumentoOCR(context.Background(), []byte("imagen"), &registro)

	assert.Equal(t, verification.EtapaTerminado, res.Etapa)
	require.NotNil(t, res.Reconciliacion)
	assert.True(t, res.Reconciliacion.Coinciden, "en modo tolerante el RFC distinto es advertencia")
	require.Len(t, res.Reconciliacion.Diferencias, 1)
	assert.Equal(t, cfdi.FieldRFCReceptor, res.Reconciliacion.Diferencias[0].Campo)

	assert.Equal(t, "CCC030303CC3", res.Datos.RFCReceptor)
	require.Len(t, f.sat.expresiones, 1)
	assert.Contains(t, f.sat.expresiones[0], "rr=CCC030303CC3")
}

func TestValidarDocumentoOCR_CompletaConRegistroParcial(t *testing.T) {
	f := newOrquestador("", "FOLIO FISCAL: 6f8a2d3e-1b4c-4d5e-9f60-718293a4b5c6 emisor AAA010101AAA")
	total := decimal.NewFromInt(500)
	registro := cfdi.NewFiscalTuple("", "", testRFCOtro, &total)

	res := f.orq.ValidarDocumentoOCR(context.Background(), []byte("imagen"), &registro)

	assert.True(t, res.Completo)
	assert.Equal(t, testUUID, res.Datos.UUID)
	assert.Equal(t, testRFCEmisor, res.Datos.RFCEmisor)
	assert.Equal(t, testRFCOtro, res.Datos.RFCReceptor)
}

func TestCruzarQR(t *testing.T) {
	f := newOrquestador("", "")
	qr := "https://verificacfdi.facturaelectronica.sat.gob.mx/default.aspx?id=" + testUUID +
		"&re=AAA010101AAA&rr=XAXX010101000&tt=500.00&fe=abc"
	total := decimal.RequireFromString("500.01")
	registro := cfdi.NewFiscalTuple(testUUID, testRFCEmisor, "XAXX010101000", &total)

	res := f.orq.CruzarQR(qr, registro)

	assert.Equal(t, verification.EtapaTerminado, res.Etapa)
	assert.True(t, res.Completo)
	require.NotNil(t, res.Reconciliacion)
	assert.True(t, res.Reconciliacion.Coinciden)
	assert.Nil(t, res.Decision)
	assert.Equal(t, 0, f.sat.Calls(), "el cruce QR no consulta al SAT")

	otro := cfdi.NewFiscalTuple("11111111-2222-4333-8444-555555555555", testRFCEmisor, "XAXX010101000", &total)
	res = f.orq.CruzarQR(qr, otro)
	assert.False(t, res.Reconciliacion.Coinciden)
}

func TestCruzarQR_QRIlegible(t *testing.T) {
	f := newOrquestador("", "")

	res := f.orq.CruzarQR("hola mundo", cfdi.FiscalTuple{})

	assert.Equal(t, verification.EtapaAnalizando, res.Etapa)
	assert.False(t, res.Completo)
	assert.Nil(t, res.Reconciliacion)
}

func TestValidarSAT(t *testing.T) {
	f := newOrquestador("", "")
	total := decimal.NewFromInt(10)

	res, err := f.orq.ValidarSAT(context.Background(), cfdi.NewFiscalTuple(testUUID, testRFCEmisor, testRFCOtro, &total))
	require.NoError(t, err)
	assert.True(t, res.Completo)
	require.NotNil(t, res.Decision)
	assert.Equal(t, cfdi.EstadoVigente, res.Decision.Estado)

	_, err = f.orq.ValidarSAT(context.Background(), cfdi.NewFiscalTuple("x", testRFCEmisor, testRFCOtro, nil))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	n, err := f.orq.LimpiarCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
