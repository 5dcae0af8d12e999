// Package sat contiene catálogos, formatos y reglas del SAT (México) usados para
// verificar CFDI: forma de RFC y UUID, RFCs genéricos, RFCs de PAC y la expresión
// impresa que recibe el servicio de consulta.
package sat

// =============================================================================
// RFCs genéricos (Anexo 20, guía de llenado)
// Nunca son emisores: representan al receptor "público en general" o a un extranjero.
// =============================================================================

const (
	RFCPublicoGeneral = "XAXX010101000" // Público en general
	RFCExtranjero     = "XEXX010101000" // Residente en el extranjero
)

// DefaultGenericRFCs conjunto de RFCs genéricos.
func DefaultGenericRFCs() RFCSet {
	return NewRFCSet(RFCPublicoGeneral, RFCExtranjero)
}

// =============================================================================
// RFCs de certificación (SAT y PAC)
// Aparecen en el timbre fiscal (RfcProvCertif) de cada CFDI pero no son emisor ni receptor.
// La lista se puede ampliar por configuración (SAT_CERTIFIER_RFCS).
// =============================================================================

const RFCSAT = "SAT970701NN3"

// DefaultCertifierRFCs conjunto de RFCs de certificación que se excluyen de emisor/receptor.
func DefaultCertifierRFCs() RFCSet {
	return NewRFCSet(
		RFCSAT,
		"SPR190613I52",
		"LSO1306189R5",
		"MAS0810247C0",
		"EME000602QR9",
	)
}

// =============================================================================
// Servicio de consulta de CFDI (ConsultaCFDIService)
// =============================================================================

const (
	// Valores del campo Estado.
	EstadoVigente      = "Vigente"
	EstadoCancelado    = "Cancelado"
	EstadoNoEncontrado = "No Encontrado"

	// Códigos dentro de CodigoEstatus ("N - 602: Comprobante no encontrado.").
	CodigoExpresionInvalida = "601"
	CodigoNoEncontrado      = "602"

	// Prefijo de CodigoEstatus cuando la consulta fue satisfactoria.
	CodigoSatisfactorio = "S"
)

// MaxTotalAdmisible cota superior para totales extraídos por OCR; valores mayores se
// consideran artefactos de lectura.
const MaxTotalAdmisible = 10_000_000
