package cfdi

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/cfdi-verificador/pkg/sat"
)

// Nombres de reglas; aparecen en logs y pruebas.
const (
	RuleFolioFiscal      = "folio-fiscal"
	RuleUUIDEtiqueta     = "uuid-etiqueta"
	RuleParametroID      = "parametro-id"
	RuleUUIDSuelto       = "uuid-suelto"
	RuleTotalComprobante = "total-comprobante"
	RuleTotalEtiqueta    = "total-etiqueta"
	RuleImporteMoneda    = "importe-moneda"
)

const (
	hexUUID = `[0-9A-F]{8}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{4}-[0-9A-F]{12}`
	// importe con separador de miles opcional y hasta 2 decimales.
	amount = `([0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]{1,2})?|[0-9]+(?:\.[0-9]{1,2})?)`
)

var (
	reFolioFiscal  = regexp.MustCompile(`FOLIO\s*FISCAL\s*:?\s*(` + hexUUID + `)`)
	reUUIDEtiqueta = regexp.MustCompile(`UUID\s*:?\s*(` + hexUUID + `)`)
	reParametroID  = regexp.MustCompile(`[?&]ID=(` + hexUUID + `)`)
	reUUIDSuelto   = regexp.MustCompile(`(?:^|[^0-9A-F])(` + hexUUID + `)(?:$|[^0-9A-F])`)

	reTotalComprobante = regexp.MustCompile(`TOTAL\s*(?:DEL\s*)?COMPROBANTE\s*:?\s*(?:MXN\s*)?\$?\s*` + amount)
	reTotalEtiqueta    = regexp.MustCompile(`(?:^|[^A-Z])TOTAL\s*:?\s*(?:MXN\s*)?\$?\s*` + amount)
	reImporteMoneda    = regexp.MustCompile(`\$\s*` + amount)

	// reAuthorityQuery localiza la expresión de la URL de verificación dentro del texto,
	// incluida la forma oficial "default.aspx?&id=...".
	reAuthorityQuery = regexp.MustCompile(`\?(?:&(?:AMP;)?)?(?:ID|RE|RR|TT)=[^\s]+`)

	rfcTokenSplit = regexp.MustCompile(`[^A-ZÑ&0-9]+`)
)

// ParserConfig conjuntos de RFCs inyectados al parser.
type ParserConfig struct {
	// Certifiers RFCs de proveedores de certificación (PAC) que aparecen impresos pero
	// nunca son emisor ni receptor.
	Certifiers sat.RFCSet
	// Generics RFCs genéricos (público en general, extranjero); solo pueden ser receptor.
	Generics sat.RFCSet
	// MaxTotal límite superior admisible para totales leídos de texto.
	MaxTotal decimal.Decimal
}

// DefaultParserConfig configuración con los catálogos del SAT.
func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		Certifiers: sat.DefaultCertifierRFCs(),
		Generics:   sat.DefaultGenericRFCs(),
		MaxTotal:   decimal.NewFromInt(sat.MaxTotalAdmisible),
	}
}

// Parser extrae la tupla fiscal de texto libre (OCR o capa de texto de un PDF).
// Es seguro para uso concurrente: no tiene estado mutable.
type Parser struct {
	cfg        ParserConfig
	uuidRules  []Rule[string]
	totalRules []Rule[decimal.Decimal]
}

// NewParser crea un parser con la configuración dada. Un MaxTotal no positivo usa el
// límite por defecto.
func NewParser(cfg ParserConfig) *Parser {
	if !cfg.MaxTotal.IsPositive() {
		cfg.MaxTotal = decimal.NewFromInt(sat.MaxTotalAdmisible)
	}
	p := &Parser{cfg: cfg}
	p.uuidRules = []Rule[string]{
		{Name: RuleFolioFiscal, Extract: firstSubmatch(reFolioFiscal)},
		{Name: RuleUUIDEtiqueta, Extract: firstSubmatch(reUUIDEtiqueta)},
		{Name: RuleParametroID, Extract: firstSubmatch(reParametroID)},
		{Name: RuleUUIDSuelto, Extract: firstSubmatch(reUUIDSuelto)},
	}
	p.totalRules = []Rule[decimal.Decimal]{
		{Name: RuleTotalComprobante, Extract: p.largestAmount(reTotalComprobante, nil)},
		{Name: RuleTotalEtiqueta, Extract: p.largestAmount(reTotalEtiqueta, standaloneTotal)},
		{Name: RuleImporteMoneda, Extract: p.largestAmount(reImporteMoneda, nil)},
	}
	return p
}

// UUIDRules reglas de UUID en orden de prioridad (copia).
func (p *Parser) UUIDRules() []Rule[string] {
	return append([]Rule[string](nil), p.uuidRules...)
}

// TotalRules familias de reglas de total en orden de prioridad (copia).
func (p *Parser) TotalRules() []Rule[decimal.Decimal] {
	return append([]Rule[decimal.Decimal](nil), p.totalRules...)
}

// NormalizeText NFC, espacios colapsados y mayúsculas. Todas las reglas operan sobre
// texto normalizado.
func NormalizeText(text string) string {
	return strings.ToUpper(strings.Join(strings.Fields(norm.NFC.String(text)), " "))
}

// Parse extrae la tupla del texto. Nunca falla: los campos no encontrados quedan vacíos.
func (p *Parser) Parse(text string) FiscalTuple {
	return p.parse(NormalizeText(text))
}

func (p *Parser) parse(text string) FiscalTuple {
	var t FiscalTuple
	if text == "" {
		return t
	}

	// ── URL de verificación del SAT ──
	if q := reAuthorityQuery.FindString(text); q != "" {
		t = parseQRQuery(q).tuple()
		// una URL con un RFC de certificador no es la del comprobante
		if p.cfg.Certifiers.Contains(t.RFCEmisor) {
			t.RFCEmisor = ""
		}
		if p.cfg.Certifiers.Contains(t.RFCReceptor) {
			t.RFCReceptor = ""
		}
		if t.Total.Valid && !p.admissible(t.Total.Decimal) {
			t.Total = decimal.NullDecimal{}
		}
		t.RFCsEncontrados = nil
		for _, r := range []string{t.RFCEmisor, t.RFCReceptor} {
			t.RFCsEncontrados = appendUnique(t.RFCsEncontrados, r)
		}
	}

	// ── UUID ──
	if t.UUID == "" {
		if v, _, ok := FirstMatch(p.uuidRules, text); ok {
			t.UUID = v
		}
	}

	// ── RFCs ──
	found := p.enumerateRFCs(text)
	t.RFCsEncontrados = appendUnique(t.RFCsEncontrados, found...)
	p.assignRFCs(&t, found)

	// ── Total ──
	if !t.Total.Valid {
		if v, _, ok := FirstMatch(p.totalRules, text); ok {
			t.Total = decimal.NewNullDecimal(v)
		}
	}

	if t.RFCEmisor != "" && p.cfg.Generics.Contains(t.RFCEmisor) {
		t.RFCEmisor, t.RFCReceptor = t.RFCReceptor, t.RFCEmisor
	}
	return t
}

// enumerateRFCs RFCs con forma válida en orden de aparición, sin duplicados ni certificadores.
func (p *Parser) enumerateRFCs(text string) []string {
	var out []string
	add := func(tok string) {
		if sat.IsRFC(tok) && !p.cfg.Certifiers.Contains(tok) {
			out = appendUnique(out, tok)
		}
	}
	for _, tok := range rfcTokenSplit.Split(text, -1) {
		if tok == "" {
			continue
		}
		if sat.IsRFC(tok) {
			add(tok)
			continue
		}
		// tokens como "AAA010101AAA&RR" dentro de una URL
		if strings.Contains(tok, "&") {
			for _, part := range strings.Split(tok, "&") {
				add(part)
			}
		}
	}
	return out
}

// assignRFCs: genérico → receptor; primer no genérico → emisor; siguiente distinto → receptor.
func (p *Parser) assignRFCs(t *FiscalTuple, found []string) {
	var generics, others []string
	for _, r := range found {
		if p.cfg.Generics.Contains(r) {
			generics = append(generics, r)
		} else {
			others = append(others, r)
		}
	}
	if t.RFCReceptor == "" && len(generics) > 0 {
		t.RFCReceptor = generics[0]
	}
	for _, r := range others {
		if r == t.RFCEmisor || r == t.RFCReceptor {
			continue
		}
		if t.RFCEmisor == "" {
			t.RFCEmisor = r
			continue
		}
		if t.RFCReceptor == "" {
			t.RFCReceptor = r
		}
		break
	}
}

func (p *Parser) admissible(v decimal.Decimal) bool {
	return v.IsPositive() && v.LessThanOrEqual(p.cfg.MaxTotal)
}

// largestAmount regla de familia: el mayor importe admisible entre todas las coincidencias.
// keep, si no es nil, filtra coincidencias por su contexto.
func (p *Parser) largestAmount(re *regexp.Regexp, keep func(text string, m []int) bool) func(string) (decimal.Decimal, bool) {
	return func(text string) (decimal.Decimal, bool) {
		var best decimal.Decimal
		found := false
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			if keep != nil && !keep(text, m) {
				continue
			}
			v, err := parseAmount(text[m[2]:m[3]])
			if err != nil || !p.admissible(v) {
				continue
			}
			if !found || v.GreaterThan(best) {
				best, found = v, true
			}
		}
		return best, found
	}
}

// standaloneTotal descarta "SUB TOTAL", "SUB-TOTAL", "IVA TOTAL" y los importes que
// continúan en otra palabra o cifra. Un '.' o ',' final sin cifra después es puntuación.
func standaloneTotal(text string, m []int) bool {
	if end := m[3]; end < len(text) {
		switch c := text[end]; {
		case isDigit(c), c >= 'A' && c <= 'Z':
			return false
		case c == '.', c == ',':
			if end+1 < len(text) && isDigit(text[end+1]) {
				return false
			}
		}
	}
	i := strings.Index(text[m[0]:], "TOTAL")
	if i < 0 {
		return false
	}
	before := strings.TrimRight(text[:m[0]+i], " -:")
	return !strings.HasSuffix(before, "SUB") && !strings.HasSuffix(before, "IVA")
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func parseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
}

func firstSubmatch(re *regexp.Regexp) func(string) (string, bool) {
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			return "", false
		}
		return m[1], true
	}
}
