package logdbctlcmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.logdb.dev/core/discovery"
	mbp "go.logdb.dev/core/mainboilerplate"
	pb "go.logdb.dev/core/protocol"
)

type cmdMembersAnnounce struct {
	InstanceID string        `long:"instance-id" required:"true" description:"Instance ID of the announced member"`
	State      string        `long:"state" default:"Leader" description:"VNodeState of the announced member (eg Leader, Follower, ReadOnlyReplica)"`
	Endpoint   pb.Endpoint   `long:"endpoint" required:"true" description:"Endpoint (host:port) of the announced member"`
	TTL        time.Duration `long:"ttl" default:"20s" description:"Time-to-live of the announcement lease"`
}

func init() {
	CommandRegistry.AddCommand("members", "announce", "Announce a member in Etcd", `
Announce a member under the configured --etcd.prefix, bound to a lease which
is kept alive until the command is interrupted. Clients discovering members
through Etcd will route to the announced member while it's alive.

This is useful for pointing Etcd-configured clients at members which don't
announce themselves, such as in development or test environments.

Examples:

>  logdbctl members announce --etcd.endpoints http://localhost:2379 \
     --instance-id dev-1 --endpoint localhost:2113
`, &cmdMembersAnnounce{})
}

func (cmd *cmdMembersAnnounce) Execute([]string) error {
	defer mbp.InitDiagnosticsAndRecover(BaseCfg.Diagnostics)()
	var ctx, cancel = startup()
	defer cancel()

	var member = pb.MemberInfo{
		InstanceID: cmd.InstanceID,
		IsAlive:    true,
		Endpoint:   cmd.Endpoint,
	}
	if err := member.State.UnmarshalText([]byte(cmd.State)); err != nil {
		return err
	} else if err = member.Validate(); err != nil {
		return err
	}

	var etcd, err = BaseCfg.Client.Etcd.Dial(ctx)
	if err != nil {
		return err
	}
	defer etcd.Close()

	lease, err := etcd.Grant(ctx, int64(cmd.TTL.Seconds()))
	if err != nil {
		return errors.Wrap(err, "granting lease")
	}
	var members = discovery.EtcdMembers{KV: etcd, Prefix: BaseCfg.Client.Etcd.Prefix}
	if err = members.Announce(ctx, member, lease.ID); err != nil {
		return err
	}
	keepAlive, err := etcd.KeepAlive(ctx, lease.ID)
	if err != nil {
		return errors.Wrap(err, "keeping lease alive")
	}
	fmt.Fprintf(os.Stdout, "announced %s at %s (lease %x)\n", member.InstanceID, member.Endpoint, lease.ID)

	for range keepAlive {
		// Drain responses. The channel closes when |ctx| is done or the lease is lost.
	}
	if ctx.Err() == nil {
		return errors.New("lease was lost")
	}
	log.WithField("instanceId", member.InstanceID).Info("withdrawing member")

	var revokeCtx, cancelRevoke = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelRevoke()

	if _, err = etcd.Revoke(revokeCtx, lease.ID); err != nil {
		return errors.Wrap(err, "revoking lease")
	}
	return nil
}
