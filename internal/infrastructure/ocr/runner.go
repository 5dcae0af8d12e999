package ocr

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/jhoicas/cfdi-verificador/pkg/logger"
)

// Runner ejecuta comandos externos; en pruebas se reemplaza por un stub.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner ejecuta con os/exec ligado al contexto: al vencer, el proceso se mata.
type ExecRunner struct {
	log *logger.Logger
}

// NewExecRunner log puede ser nil.
func NewExecRunner(log *logger.Logger) ExecRunner {
	return ExecRunner{log: log.Component("exec")}
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	log := r.log
	if log == nil {
		log = logger.Nop()
	}
	if err != nil {
		log.Warn().
			Str("cmd", name).
			Str("args", strings.Join(args, " ")).
			Dur("duracion", dur).
			Str("stderr", truncate(errb.String(), 8<<10)).
			Err(err).
			Msg("comando externo falló")
	} else {
		log.Debug().
			Str("cmd", name).
			Dur("duracion", dur).
			Int("stdout_bytes", out.Len()).
			Msg("comando externo ok")
	}
	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncado)"
}
