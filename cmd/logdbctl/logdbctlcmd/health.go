package logdbctlcmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	mbp "go.logdb.dev/core/mainboilerplate"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type cmdHealth struct {
	Service string        `long:"service" description:"Name of the service to check. If empty, overall member health is checked"`
	Watch   bool          `long:"watch" description:"Watch for changes of health status, until interrupted"`
	Timeout time.Duration `long:"timeout" default:"30s" description:"Timeout of a health check. Ignored with --watch"`
}

func init() {
	CommandRegistry.AddCommand("", "health", "Check the health of a cluster member", `
Check the gRPC health of the member selected under --node-preference.

The check is routed exactly as other calls are: members are discovered,
not-leader responses re-route to the reported leader, and failed channels
are re-dialed. With --watch, status changes are printed as they arrive.

Examples:

>  logdbctl health --seeds node-1:2113
>  logdbctl health --address node-1:2113 --watch
`, &cmdHealth{})
}

func (cmd *cmdHealth) Execute([]string) error {
	defer mbp.InitDiagnosticsAndRecover(BaseCfg.Diagnostics)()
	var ctx, cancel = startup()
	defer cancel()

	var conn = BaseCfg.Client.MustConn(ctx)
	var hc = grpc_health_v1.NewHealthClient(conn)
	var req = &grpc_health_v1.HealthCheckRequest{Service: cmd.Service}

	if cmd.Watch {
		return watchHealth(ctx, hc, req, os.Stdout)
	}

	var checkCtx, cancelCheck = context.WithTimeout(ctx, cmd.Timeout)
	defer cancelCheck()

	var resp, err = hc.Check(checkCtx, req)
	if err != nil {
		return err
	}
	var ep, _ = conn.Endpoint(ctx)
	fmt.Fprintf(os.Stdout, "%s: %s\n", ep, resp.Status)

	if resp.Status != grpc_health_v1.HealthCheckResponse_SERVING {
		return errors.Errorf("member %s is %s", ep, resp.Status)
	}
	return nil
}

// watchHealth writes health statuses of a Watch until |ctx| is done.
func watchHealth(ctx context.Context, hc grpc_health_v1.HealthClient, req *grpc_health_v1.HealthCheckRequest, w io.Writer) error {
	var stream, err = hc.Watch(ctx, req)
	if err != nil {
		return err
	}
	for {
		var resp, err = stream.Recv()
		if ctx.Err() != nil {
			return nil
		} else if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s %s\n", time.Now().Format(time.RFC3339), resp.Status)
	}
}
