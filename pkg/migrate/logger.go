package migrate

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/angelmondragon/contactbook-backend/pkg/logger"
)

// gooseLogger routes goose progress output through the structured logger.
type gooseLogger struct {
	ctx  context.Context
	logg *logger.Logger
}

func newGooseLogger(ctx context.Context, logg *logger.Logger) *gooseLogger {
	return &gooseLogger{ctx: ctx, logg: logg}
}

func (g *gooseLogger) Printf(format string, v ...any) {
	g.logg.Info(g.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (g *gooseLogger) Fatalf(format string, v ...any) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	g.logg.Error(g.ctx, "goose fatal", fmt.Errorf("%s", msg))
	os.Exit(1)
}
