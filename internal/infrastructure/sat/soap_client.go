package sat

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/jhoicas/cfdi-verificador/internal/application/ports"
	"github.com/jhoicas/cfdi-verificador/internal/domain"
	"github.com/jhoicas/cfdi-verificador/internal/domain/cfdi"
)

// ── Constantes del servicio ────────────────────────────────────────────────────

const (
	// DefaultURL endpoint público del servicio de consulta de CFDI.
	DefaultURL = "https://consultaqr.facturaelectronica.sat.gob.mx/ConsultaCFDIService.svc"

	soapNS     = "http://schemas.xmlsoap.org/soap/envelope/"
	tempuriNS  = "http://tempuri.org/"
	soapAction = "http://tempuri.org/IConsultaCFDIService/Consulta"

	maxResponseBytes = 1 << 20 // 1 MB
)

// ── Implementación SOAP ────────────────────────────────────────────────────────

// SOAPClient implementa ports.SATConsulta contra el WS ConsultaCFDIService.
// El envelope se construye y se lee con etree; la lectura ignora prefijos de namespace.
type SOAPClient struct {
	url        string
	httpClient *http.Client
}

var _ ports.SATConsulta = (*SOAPClient)(nil)

// NewSOAPClient url vacía usa DefaultURL. httpClient nil usa un cliente con timeout de
// respaldo; el límite efectivo lo fija el contexto de cada consulta.
func NewSOAPClient(url string, httpClient *http.Client) *SOAPClient {
	if url == "" {
		url = DefaultURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &SOAPClient{url: url, httpClient: httpClient}
}

// Consultar envía la expresión impresa y devuelve los campos de ConsultaResult.
func (c *SOAPClient) Consultar(ctx context.Context, expresion string) (cfdi.RespuestaSAT, error) {
	payload, err := buildEnvelope(expresion)
	if err != nil {
		return cfdi.RespuestaSAT{}, fmt.Errorf("%w: serializar envelope: %w", domain.ErrAuthorityProtocol, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return cfdi.RespuestaSAT{}, fmt.Errorf("%w: crear request: %w", domain.ErrAuthorityProtocol, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", soapAction)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return cfdi.RespuestaSAT{}, fmt.Errorf("%w: timeout o cancelación: %w", domain.ErrAuthorityUnavailable, ctx.Err())
		}
		return cfdi.RespuestaSAT{}, fmt.Errorf("%w: llamada HTTP fallida: %w", domain.ErrAuthorityUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return cfdi.RespuestaSAT{}, fmt.Errorf("%w: leer respuesta: %w", domain.ErrAuthorityUnavailable, err)
	}

	// fuera de 2xx solo un SOAP Fault es respuesta del servicio; lo demás es la
	// página de error de un proxy o del servidor caído.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if !isSOAPFault(raw) {
			return cfdi.RespuestaSAT{}, fmt.Errorf("%w: HTTP %d", domain.ErrAuthorityUnavailable, resp.StatusCode)
		}
	}
	return parseResponse(resp.StatusCode, raw)
}

func isSOAPFault(raw []byte) bool {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return false
	}
	return doc.FindElement("//Fault") != nil
}

// buildEnvelope arma:
//
//	<soapenv:Envelope xmlns:soapenv=".." xmlns:tem="http://tempuri.org/">
//	  <soapenv:Header/>
//	  <soapenv:Body>
//	    <tem:Consulta><tem:expresionImpresa><![CDATA[?re=..]]></tem:expresionImpresa></tem:Consulta>
//	  </soapenv:Body>
//	</soapenv:Envelope>
func buildEnvelope(expresion string) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)

	env := doc.CreateElement("soapenv:Envelope")
	env.CreateAttr("xmlns:soapenv", soapNS)
	env.CreateAttr("xmlns:tem", tempuriNS)
	env.CreateElement("soapenv:Header")
	body := env.CreateElement("soapenv:Body")
	consulta := body.CreateElement("tem:Consulta")
	consulta.CreateElement("tem:expresionImpresa").CreateCData(expresion)

	return doc.WriteToBytes()
}

// parseResponse interpreta el envelope de respuesta. Un Fault, XML inválido o la
// ausencia de ConsultaResult son errores de protocolo.
func parseResponse(status int, raw []byte) (cfdi.RespuestaSAT, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return cfdi.RespuestaSAT{}, fmt.Errorf("%w: HTTP %d, XML inválido: %w", domain.ErrAuthorityProtocol, status, err)
	}

	if fault := doc.FindElement("//Fault"); fault != nil {
		return cfdi.RespuestaSAT{}, fmt.Errorf("%w: SOAP Fault [%s]: %s", domain.ErrAuthorityProtocol,
			childText(fault, "faultcode"), childText(fault, "faultstring"))
	}

	result := doc.FindElement("//ConsultaResult")
	if result == nil {
		return cfdi.RespuestaSAT{}, fmt.Errorf("%w: HTTP %d, respuesta sin ConsultaResult", domain.ErrAuthorityProtocol, status)
	}

	r := cfdi.RespuestaSAT{
		CodigoEstatus:      childText(result, "CodigoEstatus"),
		Estado:             childText(result, "Estado"),
		EsCancelable:       childText(result, "EsCancelable"),
		EstatusCancelacion: childText(result, "EstatusCancelacion"),
		ValidacionEFOS:     childText(result, "ValidacionEFOS"),
	}
	if r.CodigoEstatus == "" && r.Estado == "" {
		return cfdi.RespuestaSAT{}, fmt.Errorf("%w: ConsultaResult sin CodigoEstatus ni Estado", domain.ErrAuthorityProtocol)
	}
	return r, nil
}

func childText(el *etree.Element, tag string) string {
	if ch := el.SelectElement(tag); ch != nil {
		return strings.TrimSpace(ch.Text())
	}
	return ""
}
