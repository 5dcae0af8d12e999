package cfdi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/cfdi-verificador/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-verificador/pkg/sat"
)

func TestParseQR_URLCompleta(t *testing.T) {
	qr := "https://verificacfdi.facturaelectronica.sat.gob.mx/default.aspx?id=" + testUUID +
		"&re=AAA010101AAA&rr=XAXX010101000&tt=500.00&fe=Xyz123=="

	tuple := cfdi.ParseQR(qr)

	assert.Equal(t, testUUID, tuple.UUID)
	assert.Equal(t, testRFCEmisor, tuple.RFCEmisor)
	assert.Equal(t, sat.RFCPublicoGeneral, tuple.RFCReceptor)
	requireTotal(t, "500.00", tuple.Total)
	assert.Equal(t, []string{testRFCEmisor, sat.RFCPublicoGeneral}, tuple.RFCsEncontrados)
}

func TestParseQR_Variantes(t *testing.T) {
	cases := map[string]string{
		"solo expresion":      "?re=AAA010101AAA&rr=XAXX010101000&tt=0000000500.000000&id=" + testUUID,
		"sin signo":           "re=AAA010101AAA&rr=XAXX010101000&tt=500&id=" + testUUID,
		"claves en mayuscula": "?TT=500.00&ID=" + testUUID + "&RR=xaxx010101000&RE=aaa010101aaa",
		"amp escapado":        "?re=AAA010101AAA&amp;rr=XAXX010101000&amp;tt=500.00&amp;id=" + testUUID,
	}
	for name, qr := range cases {
		t.Run(name, func(t *testing.T) {
			tuple := cfdi.ParseQR(qr)
			assert.Equal(t, testUUID, tuple.UUID)
			assert.Equal(t, testRFCEmisor, tuple.RFCEmisor)
			assert.Equal(t, sat.RFCPublicoGeneral, tuple.RFCReceptor)
			requireTotal(t, "500", tuple.Total)
		})
	}
}

func TestParseQR_RFCConAmpersand(t *testing.T) {
	tuple := cfdi.ParseQR("?re=A&amp;B010101AB1&rr=XAXX010101000&tt=1.00&id=" + testUUID)
	assert.Equal(t, "A&B010101AB1", tuple.RFCEmisor)

	tuple = cfdi.ParseQR("?re=A&B010101AB1&rr=XAXX010101000&tt=1.00&id=" + testUUID)
	assert.Equal(t, "A&B010101AB1", tuple.RFCEmisor)
}

func TestParseQR_ValoresInvalidosSeDescartan(t *testing.T) {
	tuple := cfdi.ParseQR("?re=NOESRFC&rr=XAXX010101000&tt=abc&id=1234")

	assert.Empty(t, tuple.UUID)
	assert.Empty(t, tuple.RFCEmisor)
	assert.Equal(t, sat.RFCPublicoGeneral, tuple.RFCReceptor)
	assert.False(t, tuple.Total.Valid)
}

func TestParseQR_Vacio(t *testing.T) {
	tuple := cfdi.ParseQR("")
	assert.Len(t, tuple.MissingFields(), 4)
}
