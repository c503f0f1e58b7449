// Command volverse runs gesture-driven webcam effects: an invisibility
// cloak toggled with a thumbs up, and an air canvas drawn with the index
// finger.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// options are the flags shared by every effect.
type options struct {
	configPath string
	debug      bool
	listen     string
	db         string
	hooks      string
	headless   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "volverse",
		Short:         "Gesture-driven webcam effects",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	opts.register(root.PersistentFlags())

	root.AddCommand(
		newCloakCmd(opts),
		newCanvasCmd(opts),
		newVersionCmd(),
	)
	return root
}

func (o *options) register(fs *pflag.FlagSet) {
	fs.StringVarP(&o.configPath, "config", "c", "", "YAML config file")
	fs.BoolVarP(&o.debug, "debug", "d", false, "console logging at debug level")
	fs.StringVar(&o.listen, "listen", "", "serve preview, state and metrics on this address, e.g. :8080")
	fs.StringVar(&o.db, "db", "", "record sessions, events and artworks in this SQLite file")
	fs.StringVar(&o.hooks, "hooks", "", "run the hooks found in this directory on every event")
	fs.BoolVar(&o.headless, "headless", false, "run without a window; quit with Ctrl-C")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "volverse", version)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "volverse:", err)
		os.Exit(1)
	}
}
