package mainboilerplate

import "github.com/jessevdk/go-flags"

// AddCommandFunc adds a sub-command to its parent Command.
type AddCommandFunc func(*flags.Command) error

// CommandRegistry collects AddCommandFuncs by the dotted name of their
// parent command, so that commands defined across files may register
// themselves from init functions.
type CommandRegistry map[string][]AddCommandFunc

// NewCommandRegistry returns an empty CommandRegistry.
func NewCommandRegistry() CommandRegistry { return make(CommandRegistry) }

// AddCommand registers |command| under the parent of |parentName|, which is
// "" for the root, or a dotted path of command names (eg "members.list").
func (cr CommandRegistry) AddCommand(parentName, command, short, long string, data interface{}) {
	cr[parentName] = append(cr[parentName], func(parent *flags.Command) error {
		var _, err = parent.AddCommand(command, short, long, data)
		return err
	})
}

// AddCommands adds commands registered under |rootName| to |root|, and then
// walks the added commands to add their own sub-commands.
func (cr CommandRegistry) AddCommands(rootName string, root *flags.Command) error {
	for _, fn := range cr[rootName] {
		if err := fn(root); err != nil {
			return err
		}
	}
	for _, cmd := range root.Commands() {
		var name = cmd.Name
		if rootName != "" {
			name = rootName + "." + name
		}
		if _, ok := cr[name]; !ok {
			continue
		}
		if err := cr.AddCommands(name, cmd); err != nil {
			return err
		}
	}
	return nil
}
