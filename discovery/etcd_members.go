package discovery

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	pb "go.logdb.dev/core/protocol"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdMembers is a MemberSource which lists MemberInfo values announced
// as JSON under an Etcd key Prefix. Members are typically announced with a
// lease, so that failed members are removed from the listing.
type EtcdMembers struct {
	KV     clientv3.KV
	Prefix string
}

// Members implements MemberSource.
func (e EtcdMembers) Members(ctx context.Context) ([]pb.MemberInfo, error) {
	var resp, err = e.KV.Get(ctx, e.Prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, errors.WithMessagef(err, "listing members under %q", e.Prefix)
	}
	return decodeMembers(resp.Kvs)
}

// Announce puts the JSON encoding of |member| under the Prefix, keyed on its
// InstanceID and bound to |lease| (which may be clientv3.NoLease).
func (e EtcdMembers) Announce(ctx context.Context, member pb.MemberInfo, lease clientv3.LeaseID) error {
	if err := member.Validate(); err != nil {
		return err
	}
	var b, err = json.Marshal(member)
	if err != nil {
		return errors.Wrap(err, "encoding member")
	}
	_, err = e.KV.Put(ctx, e.Prefix+member.InstanceID, string(b), clientv3.WithLease(lease))
	return errors.WithMessagef(err, "announcing member %s", member.InstanceID)
}

func decodeMembers(kvs []*mvccpb.KeyValue) ([]pb.MemberInfo, error) {
	var out = make([]pb.MemberInfo, 0, len(kvs))

	for _, kv := range kvs {
		var m pb.MemberInfo

		if err := json.Unmarshal(kv.Value, &m); err != nil {
			return nil, errors.Wrapf(err, "decoding member %q", kv.Key)
		} else if err = m.Validate(); err != nil {
			return nil, errors.WithMessagef(err, "member %q", kv.Key)
		}
		out = append(out, m)
	}
	return out, nil
}
