package verification

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/jhoicas/cfdi-verificador/internal/application/ports"
	"github.com/jhoicas/cfdi-verificador/internal/domain"
	"github.com/jhoicas/cfdi-verificador/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-verificador/pkg/logger"
)

// DefaultSATTimeout límite duro de una consulta al SAT.
const DefaultSATTimeout = 10 * time.Second

const auditTimeout = 3 * time.Second

// AuthorityConfig configuración del cliente de validación.
type AuthorityConfig struct {
	Timeout time.Duration
	// MaxRPS consultas por segundo hacia el SAT; 0 = sin límite.
	MaxRPS float64
}

// AuthorityValidator consulta el estado de un CFDI ante el SAT con caché por TTL.
// Las fallas de red nunca bloquean (Sin Verificar); un negativo confirmado sí.
type AuthorityValidator struct {
	client  ports.SATConsulta
	cache   ports.StatusCache
	auditor ports.ConsultaAuditor
	metrics ports.MetricsRecorder
	limiter *rate.Limiter
	timeout time.Duration
	now     func() time.Time
	log     *logger.Logger
}

// AuthorityOption opción funcional del validador.
type AuthorityOption func(*AuthorityValidator)

// WithAuditor registra cada resultado remoto en la bitácora.
func WithAuditor(a ports.ConsultaAuditor) AuthorityOption {
	return func(v *AuthorityValidator) { v.auditor = a }
}

// WithMetrics inyecta el registro de métricas.
func WithMetrics(m ports.MetricsRecorder) AuthorityOption {
	return func(v *AuthorityValidator) {
		if m != nil {
			v.metrics = m
		}
	}
}

// WithClock reemplaza el reloj (pruebas).
func WithClock(now func() time.Time) AuthorityOption {
	return func(v *AuthorityValidator) { v.now = now }
}

// WithLogger inyecta el logger.
func WithLogger(l *logger.Logger) AuthorityOption {
	return func(v *AuthorityValidator) { v.log = l.Component("sat") }
}

// NewAuthorityValidator construye el validador. cache es obligatorio.
func NewAuthorityValidator(client ports.SATConsulta, cache ports.StatusCache, cfg AuthorityConfig, opts ...AuthorityOption) *AuthorityValidator {
	v := &AuthorityValidator{
		client:  client,
		cache:   cache,
		metrics: ports.NopMetrics{},
		timeout: cfg.Timeout,
		now:     time.Now,
		log:     logger.Nop(),
	}
	if v.timeout <= 0 {
		v.timeout = DefaultSATTimeout
	}
	if cfg.MaxRPS > 0 {
		burst := int(cfg.MaxRPS)
		if burst < 1 {
			burst = 1
		}
		v.limiter = rate.NewLimiter(rate.Limit(cfg.MaxRPS), burst)
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate valida la entrada y consulta el estado del CFDI. Solo devuelve error para
// entradas inválidas (envuelve domain.ErrInvalidInput); cualquier otro problema queda
// expresado en el estado devuelto.
func (v *AuthorityValidator) Validate(ctx context.Context, rfcEmisor, rfcReceptor, total, uuid string) (cfdi.AuthorityStatus, error) {
	c, err := cfdi.NewConsultaSAT(rfcEmisor, rfcReceptor, total, uuid)
	if err != nil {
		return cfdi.AuthorityStatus{}, err
	}
	return v.ValidateConsulta(ctx, c), nil
}

// ValidateConsulta consulta una entrada ya validada.
func (v *AuthorityValidator) ValidateConsulta(ctx context.Context, c cfdi.ConsultaSAT) cfdi.AuthorityStatus {
	key := c.CacheKey()

	if st, ok := v.fromCache(ctx, key); ok {
		v.metrics.ObserveSAT(string(st.Estado), true, 0)
		v.log.Debug().Str("uuid", c.UUID).Str("estado", string(st.Estado)).Msg("estado SAT desde caché")
		return st
	}

	start := v.now()
	st := v.consultar(ctx, c)
	dur := v.now().Sub(start)

	if st.Cacheable() {
		if err := v.cache.Set(ctx, key, st); err != nil {
			v.log.Warn().Err(err).Str("uuid", c.UUID).Msg("no se pudo guardar en caché el estado SAT")
		}
	}
	v.metrics.ObserveSAT(string(st.Estado), false, dur)
	v.audit(ctx, ports.RegistroConsulta{Consulta: c, Status: st, Duracion: dur})

	v.log.Info().
		Str("uuid", c.UUID).
		Str("estado", string(st.Estado)).
		Str("codigo", st.CodigoEstatus).
		Dur("duracion", dur).
		Msg("consulta SAT")
	return st
}

// ClearCache elimina todos los resultados en caché.
func (v *AuthorityValidator) ClearCache(ctx context.Context) (int, error) {
	n, err := v.cache.Clear(ctx)
	if err != nil {
		return 0, err
	}
	v.log.Info().Int("entradas", n).Msg("caché SAT limpiada")
	return n, nil
}

func (v *AuthorityValidator) fromCache(ctx context.Context, key string) (cfdi.AuthorityStatus, bool) {
	st, ok, err := v.cache.Get(ctx, key)
	if err != nil {
		v.log.Warn().Err(err).Msg("caché SAT no disponible; se consulta el servicio")
		ok = false
	}
	v.metrics.ObserveCache(ok)
	if !ok {
		return cfdi.AuthorityStatus{}, false
	}
	st.FromCache = true
	return st, true
}

func (v *AuthorityValidator) consultar(ctx context.Context, c cfdi.ConsultaSAT) cfdi.AuthorityStatus {
	// la espera del limitador cuenta dentro del límite duro de la consulta
	callCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	if v.limiter != nil {
		if err := v.limiter.Wait(callCtx); err != nil {
			v.log.Warn().Err(err).Str("uuid", c.UUID).Msg("límite de consultas SAT")
			return cfdi.NewSinVerificar("límite de consultas: "+err.Error(), v.now())
		}
	}

	resp, err := v.client.Consultar(callCtx, c.Expresion())
	switch {
	case err == nil:
		return cfdi.StatusFromRespuesta(resp, v.now())
	case errors.Is(err, domain.ErrAuthorityProtocol):
		v.log.Warn().Err(err).Str("uuid", c.UUID).Msg("respuesta SAT no interpretable")
		return cfdi.NewErrorStatus(err.Error(), v.now())
	case errors.Is(err, context.DeadlineExceeded):
		v.log.Warn().Err(err).Str("uuid", c.UUID).Msg("timeout consultando SAT")
		return cfdi.NewSinVerificar("tiempo de espera agotado", v.now())
	default:
		v.log.Warn().Err(err).Str("uuid", c.UUID).Msg("SAT no disponible")
		return cfdi.NewSinVerificar("servicio no disponible", v.now())
	}
}

func (v *AuthorityValidator) audit(ctx context.Context, r ports.RegistroConsulta) {
	if v.auditor == nil {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()
	if err := v.auditor.Record(actx, r); err != nil {
		v.log.Warn().Err(err).Str("uuid", r.Consulta.UUID).Msg("no se pudo registrar la consulta SAT")
	}
}
