package main

import (
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/liscain-net/liscain/pkg/device"
	"github.com/liscain-net/liscain/pkg/rpcserver"
)

var opt82Cmd = &cobra.Command{
	Use:   "opt82",
	Short: "Manage DHCP option-82 port associations",
}

func showAssociations(assocs []device.Option82Association) error {
	if wantJSON() {
		return printJSON(assocs)
	}
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"id", "upstream_switch_mac", "upstream_port_info", "downstream_switch_mac", "downstream_switch_name"})
	table.SetAutoFormatHeaders(false)
	for _, a := range assocs {
		table.Append([]string{
			strconv.FormatInt(a.ID, 10),
			a.UpstreamSwitchMAC,
			a.UpstreamPortInfo,
			deref(a.DownstreamSwitchMAC),
			deref(a.DownstreamSwitchName),
		})
	}
	table.Render()
	return nil
}

var opt82ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List port associations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var assocs []device.Option82Association
		if err := client.Do(rpcserver.Request{Cmd: "opt82-list"}, &assocs); err != nil {
			return err
		}
		return showAssociations(assocs)
	},
}

var opt82SetCmd = &cobra.Command{
	Use:   "set <upstream-mac> <upstream-port> <switch-name>",
	Short: "Bind a switch name to an upstream port",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var assoc device.Option82Association
		err := client.Do(rpcserver.Request{
			Cmd:                  "opt82-info",
			UpstreamSwitchMAC:    args[0],
			UpstreamPortInfo:     args[1],
			DownstreamSwitchName: args[2],
		}, &assoc)
		if err != nil {
			return err
		}
		return showAssociations([]device.Option82Association{assoc})
	},
}

var opt82DeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a port association",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return client.Do(rpcserver.Request{Cmd: "opt82-delete", ID: id}, nil)
	},
}

func init() {
	opt82Cmd.AddCommand(opt82ListCmd, opt82SetCmd, opt82DeleteCmd)
	rootCmd.AddCommand(opt82Cmd)
}
