package logdbctlcmd

import (
	"encoding/json"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"go.logdb.dev/core/discovery"
	mbp "go.logdb.dev/core/mainboilerplate"
	pb "go.logdb.dev/core/protocol"
	"gopkg.in/yaml.v2"
)

type cmdMembersList struct {
	Format   string `long:"format" short:"o" choice:"table" choice:"yaml" choice:"json" default:"table" description:"Output format"`
	Selected bool   `long:"selected" description:"Mark the member which would be selected under --node-preference"`
}

func init() {
	CommandRegistry.AddCommand("", "members", "Interact with cluster members", "", &struct{}{})
	CommandRegistry.AddCommand("members", "list", "List cluster members", `
List members of the cluster, as gossiped by the configured --seeds or as
announced under the configured --etcd.prefix.

Use --format to select an output format:

table: Prints members as a table
yaml:  Prints members in YAML form
json:  Prints members as a JSON array

Examples:

>  logdbctl members list --seeds node-1:2113 --selected
`, &cmdMembersList{})
}

func (cmd *cmdMembersList) Execute([]string) error {
	defer mbp.InitDiagnosticsAndRecover(BaseCfg.Diagnostics)()
	var ctx, cancel = startup()
	defer cancel()

	var src, release, err = BaseCfg.Client.BuildMemberSource(ctx)
	if err != nil {
		return err
	}
	defer release()

	members, err := src.Members(ctx)
	if err != nil {
		return errors.WithMessage(err, "listing members")
	}
	sortMembers(members)

	var selected = -1
	if cmd.Selected {
		if m, ok := discovery.SelectNode(members, BaseCfg.Client.NodePreference, nil); ok {
			selected = slices.Index(members, m)
		}
	}
	return writeMembers(os.Stdout, cmd.Format, members, selected)
}

// sortMembers orders members on InstanceID.
func sortMembers(members []pb.MemberInfo) {
	slices.SortFunc(members, func(a, b pb.MemberInfo) int {
		return strings.Compare(a.InstanceID, b.InstanceID)
	})
}

// writeMembers writes |members| to |w| in |format|. If |selected| is a
// valid index, that member is marked in table output.
func writeMembers(w io.Writer, format string, members []pb.MemberInfo, selected int) error {
	switch format {
	case "table":
		var table = tablewriter.NewWriter(w)
		table.SetHeader([]string{"Instance", "State", "Alive", "Endpoint", "Selected"})

		for i, m := range members {
			var mark string
			if i == selected {
				mark = "*"
			}
			table.Append([]string{
				m.InstanceID,
				m.State.String(),
				strconv.FormatBool(m.IsAlive),
				m.Endpoint.String(),
				mark,
			})
		}
		table.Render()
		return nil

	case "yaml":
		var b, err = yaml.Marshal(members)
		if err != nil {
			return errors.Wrap(err, "encoding yaml")
		}
		_, err = w.Write(b)
		return err

	case "json":
		var enc = json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(members)

	default:
		return errors.Errorf("unknown format %q", format)
	}
}
