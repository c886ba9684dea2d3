package main

import (
	"github.com/jessevdk/go-flags"

	"go.logdb.dev/core/cmd/logdbctl/logdbctlcmd"
	mbp "go.logdb.dev/core/mainboilerplate"
)

const iniFilename = "logdbctl.ini"

func main() {
	var parser = flags.NewParser(logdbctlcmd.BaseCfg, flags.Default)

	mbp.AddPrintConfigCmd(parser, iniFilename)

	parser.LongDescription = `logdbctl is a tool for inspecting LogDB clusters, and the way clients route to them.

	See --help pages of each sub-command for documentation and usage examples.
	Optionally configure logdbctl with a '` + iniFilename + `' file in the current working directory,
	or with '~/.config/logdb/` + iniFilename + `'. Use the 'print-config' sub-command to inspect
	the tool's current configuration.
	`

	// Add all registered commands to the root parser.Command.
	mbp.Must(logdbctlcmd.CommandRegistry.AddCommands("", parser.Command), "could not add subcommand")

	mbp.MustParseConfig(parser, iniFilename)
}
