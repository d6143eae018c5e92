// Liscain CLI - operator frontend for the provisioning controller
//
// Talks to the daemon's command socket. Tabular output on a terminal,
// JSON when piped or with --json.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/liscain-net/liscain/pkg/rpcserver"
	"github.com/liscain-net/liscain/pkg/version"
)

var (
	socketAddr string
	jsonOutput bool

	client *rpcserver.Client
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "liscain-cli",
	Short:         "Operator CLI for the liscain provisioning controller",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		var err error
		client, err = rpcserver.Dial(socketAddr)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if client != nil {
			client.Close()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Info())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&socketAddr, "socket", "s", "127.0.0.1:1337", "daemon command socket")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "force JSON output")
	rootCmd.AddCommand(versionCmd)
}

// wantJSON reports whether output should be machine readable: forced
// by flag, or stdout is not a terminal.
func wantJSON() bool {
	return jsonOutput || !term.IsTerminal(int(os.Stdout.Fd()))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
