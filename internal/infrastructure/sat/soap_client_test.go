package sat_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-verificador/internal/domain"
	"github.com/jhoicas/cfdi-verificador/internal/infrastructure/sat"
)

const expresion = "?re=A&amp;B010101AB1&rr=XAXX010101000&tt=1234.50&id=6F8A2D3E-1B4C-4D5E-9F60-718293A4B5C6"

const respuestaVigente = `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
  <s:Body>
    <ConsultaResponse xmlns="http://tempuri.org/">
      <ConsultaResult xmlns:a="http://schemas.datacontract.org/2004/07/Sat.Cfdi.Negocio.ConsultaCfdi.Servicio" xmlns:i="http://www.w3.org/2001/XMLSchema-instance">
        <a:CodigoEstatus>S - Comprobante obtenido satisfactoriamente.</a:CodigoEstatus>
        <a:EsCancelable>Cancelable sin aceptación</a:EsCancelable>
        <a:Estado>Vigente</a:Estado>
        <a:EstatusCancelacion/>
        <a:ValidacionEFOS>200</a:ValidacionEFOS>
      </ConsultaResult>
    </ConsultaResponse>
  </s:Body>
</s:Envelope>`

const respuestaFault = `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/">
  <s:Body>
    <s:Fault>
      <faultcode xmlns:a="http://schemas.microsoft.com/ws/2005/05/addressing/none">a:ActionNotSupported</faultcode>
      <faultstring xml:lang="es-MX">La acción no es compatible</faultstring>
    </s:Fault>
  </s:Body>
</s:Envelope>`

func TestConsultar_Vigente(t *testing.T) {
	var gotBody, gotAction, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		gotAction = r.Header.Get("SOAPAction")
		gotType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		_, _ = io.WriteString(w, respuestaVigente)
	}))
	defer srv.Close()

	resp, err := sat.NewSOAPClient(srv.URL, srv.Client()).Consultar(context.Background(), expresion)
	require.NoError(t, err)

	assert.Equal(t, "Vigente", resp.Estado)
	assert.Equal(t, "S - Comprobante obtenido satisfactoriamente.", resp.CodigoEstatus)
	assert.Equal(t, "Cancelable sin aceptación", resp.EsCancelable)
	assert.Equal(t, "", resp.EstatusCancelacion)
	assert.Equal(t, "200", resp.ValidacionEFOS)

	assert.Equal(t, "http://tempuri.org/IConsultaCFDIService/Consulta", gotAction)
	assert.Contains(t, gotType, "text/xml")
	assert.Contains(t, gotBody, `xmlns:tem="http://tempuri.org/"`)
	assert.Contains(t, gotBody, "<tem:expresionImpresa><![CDATA["+expresion+"]]></tem:expresionImpresa>")
}

func TestConsultar_FaultEsErrorDeProtocolo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, respuestaFault)
	}))
	defer srv.Close()

	_, err := sat.NewSOAPClient(srv.URL, srv.Client()).Consultar(context.Background(), expresion)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAuthorityProtocol))
	assert.Contains(t, err.Error(), "ActionNotSupported")
}

func TestConsultar_RespuestasMalFormadas(t *testing.T) {
	cases := map[string]string{
		"no es xml":          "<html>mantenimiento",
		"sin ConsultaResult": `<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body/></s:Envelope>`,
		"resultado vacio":    `<Envelope><Body><ConsultaResponse><ConsultaResult/></ConsultaResponse></Body></Envelope>`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, body)
			}))
			defer srv.Close()

			_, err := sat.NewSOAPClient(srv.URL, srv.Client()).Consultar(context.Background(), expresion)
			assert.ErrorIs(t, err, domain.ErrAuthorityProtocol)
		})
	}
}

func TestConsultar_GatewayEsNoDisponible(t *testing.T) {
	for _, code := range []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(code)
		}))

		_, err := sat.NewSOAPClient(srv.URL, srv.Client()).Consultar(context.Background(), expresion)
		assert.ErrorIs(t, err, domain.ErrAuthorityUnavailable, "HTTP %d", code)
		srv.Close()
	}
}

func TestConsultar_PaginaDeErrorEsNoDisponible(t *testing.T) {
	cases := map[string]struct {
		code int
		body string
	}{
		"500 html":          {http.StatusInternalServerError, "<html><body>Error en el servidor</body></html>"},
		"404 texto":         {http.StatusNotFound, "Not Found"},
		"500 xml sin fault": {http.StatusInternalServerError, `<error><mensaje>mantenimiento</mensaje></error>`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.code)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := sat.NewSOAPClient(srv.URL, srv.Client()).Consultar(context.Background(), expresion)
			assert.ErrorIs(t, err, domain.ErrAuthorityUnavailable)
			assert.NotErrorIs(t, err, domain.ErrAuthorityProtocol)
		})
	}
}

func TestConsultar_TimeoutDelContexto(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := sat.NewSOAPClient(srv.URL, srv.Client()).Consultar(ctx, expresion)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthorityUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConsultar_ServidorInalcanzable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := sat.NewSOAPClient(url, nil).Consultar(context.Background(), expresion)
	assert.ErrorIs(t, err, domain.ErrAuthorityUnavailable)
}
