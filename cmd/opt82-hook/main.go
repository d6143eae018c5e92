// Opt82-hook - DHCP relay helper
//
// Invoked by the DHCP server on every relayed lease; pushes the
// option-82 sighting to the liscain daemon as a single UDP datagram.
package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/liscain-net/liscain/pkg/ingest"
)

var (
	listenerAddr  string
	upstreamMAC   string
	upstreamPort  string
	downstreamMAC string
)

var rootCmd = &cobra.Command{
	Use:           "opt82-hook",
	Short:         "Push one DHCP option-82 sighting to the liscain daemon",
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := json.Marshal(ingest.Observation{
			UpstreamSwitchMAC:   upstreamMAC,
			UpstreamPortInfo:    upstreamPort,
			DownstreamSwitchMAC: downstreamMAC,
		})
		if err != nil {
			return err
		}
		conn, err := net.Dial("udp", listenerAddr)
		if err != nil {
			return err
		}
		defer conn.Close()
		_, err = conn.Write(payload)
		return err
	},
}

func init() {
	rootCmd.Flags().StringVarP(&listenerAddr, "listener", "z", "", "daemon option82 listener address")
	rootCmd.Flags().StringVarP(&upstreamMAC, "upstream-switch-mac", "M", "", "upstream switch mac")
	rootCmd.Flags().StringVarP(&upstreamPort, "upstream-port-info", "P", "", "upstream switch port")
	rootCmd.Flags().StringVarP(&downstreamMAC, "downstream-switch-mac", "m", "", "downstream switch mac")
	for _, flag := range []string{"listener", "upstream-switch-mac", "upstream-port-info", "downstream-switch-mac"} {
		rootCmd.MarkFlagRequired(flag)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
