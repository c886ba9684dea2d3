package logdbctlcmd

import (
	"context"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	mbp "go.logdb.dev/core/mainboilerplate"
)

type cmdDiscover struct {
	Timeout time.Duration `long:"timeout" default:"30s" description:"Timeout of discovery"`
}

func init() {
	CommandRegistry.AddCommand("", "discover", "Discover a cluster member", `
Run cluster discovery once, and print the endpoint of the member to which
calls would be routed under the configured --node-preference.

Examples:

Discover the leader through gossip seeds:
>  logdbctl discover --seeds node-1:2113,node-2:2113

Discover a read-only replica of members announced in Etcd:
>  logdbctl discover --etcd.endpoints http://localhost:2379 --node-preference readonlyreplica
`, &cmdDiscover{})
}

func (cmd *cmdDiscover) Execute([]string) error {
	defer mbp.InitDiagnosticsAndRecover(BaseCfg.Diagnostics)()
	var ctx, cancel = startup()
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, cmd.Timeout)
	defer cancelTimeout()

	var d, release, err = BaseCfg.Client.BuildDiscoverer(ctx)
	if err != nil {
		return err
	}
	defer release()

	var started = time.Now()
	ep, err := d.Discover(ctx)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"endpoint":   ep,
		"preference": BaseCfg.Client.NodePreference,
		"took":       time.Since(started),
	}).Info("discovered member")

	_, err = fmt.Fprintln(os.Stdout, ep)
	return err
}
