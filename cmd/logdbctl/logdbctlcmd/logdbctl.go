// Package logdbctlcmd implements the commands of logdbctl.
package logdbctlcmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mbp "go.logdb.dev/core/mainboilerplate"
)

var (
	// BaseCfg is the configuration shared by all commands.
	BaseCfg = new(struct {
		Client      mbp.ClientConfig      `group:"Client" env-namespace:"LOGDB"`
		Log         mbp.LogConfig         `group:"Logging" namespace:"log" env-namespace:"LOG"`
		Diagnostics mbp.DiagnosticsConfig `group:"Debug" namespace:"debug" env-namespace:"DEBUG"`
	})
	// CommandRegistry of logdbctl sub-commands, populated by init functions.
	CommandRegistry = mbp.NewCommandRegistry()
)

// startup initializes logging, and returns a Context which is cancelled
// on SIGINT or SIGTERM.
func startup() (context.Context, context.CancelFunc) {
	mbp.InitLog(BaseCfg.Log)
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
