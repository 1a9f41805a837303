package cmd

import (
	"fmt"
	"os"

	clientcmd "github.com/ValentinKolb/dAX/cmd/client"
	"github.com/ValentinKolb/dAX/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dax",
		Short: "distributed datastore access client",
		Long: fmt.Sprintf(`dAX (v%s)

The client-side connection coordinator of a distributed datastore,
maintaining one buffering, self-healing connection per shard while
backends move between replicas.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dAX",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dAX v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(clientcmd.ClientCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "info", util.WrapString("log level spec: a default level optionally followed by name=level overrides, e.g. 'warn,client=debug'"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
