package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/liscain-net/liscain/pkg/device"
	"github.com/liscain-net/liscain/pkg/rpcserver"
)

var deviceHeader = []string{"id", "identifier", "device_class", "device_type", "address", "mac_address", "version", "state", "cqueue"}

func deviceRow(e rpcserver.ListEntry) []string {
	return []string{
		strconv.FormatInt(e.ID, 10),
		e.Identifier,
		e.DeviceClass,
		e.DeviceType,
		e.Address,
		e.MACAddress,
		e.Version,
		e.State.String(),
		strconv.Itoa(e.CQueue),
	}
}

func showDevices(entries []rpcserver.ListEntry) error {
	if wantJSON() {
		return printJSON(entries)
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(deviceHeader)
	table.SetAutoFormatHeaders(false)
	for _, e := range entries {
		table.Append(deviceRow(e))
	}
	table.Render()
	return nil
}

func parseID(arg string) (*int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid device id %q", arg)
	}
	return &id, nil
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List known devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var entries []rpcserver.ListEntry
		if err := client.Do(rpcserver.Request{Cmd: "list"}, &entries); err != nil {
			return err
		}
		return showDevices(entries)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <id>",
	Short: "Show one device with its pending tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		var status rpcserver.StatusReply
		if err := client.Do(rpcserver.Request{Cmd: "status", ID: id}, &status); err != nil {
			return err
		}
		if wantJSON() {
			return printJSON(status)
		}
		if err := showDevices([]rpcserver.ListEntry{{Device: status.Device, CQueue: status.CQueue}}); err != nil {
			return err
		}
		for i, item := range status.CQueueItems {
			fmt.Printf("  queue[%d]: %s\n", i, item)
		}
		return nil
	},
}

var (
	adoptConfig string
	adoptNoWait bool
)

var adoptCmd = &cobra.Command{
	Use:   "adopt <id> <identity>",
	Short: "Adopt a device: rename it and push its target configuration",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		identity := args[1]
		configPath := adoptConfig
		if configPath == "" {
			configPath = fmt.Sprintf("config/%s.cfg", identity)
		}
		data, err := os.ReadFile(configPath)
		if err != nil {
			return err
		}
		err = client.Do(rpcserver.Request{
			Cmd:      "adopt",
			ID:       id,
			Identity: identity,
			Config:   string(data),
		}, nil)
		if err != nil {
			return err
		}
		if adoptNoWait {
			fmt.Println("adoption queued")
			return nil
		}

		fmt.Print("adopting")
		var status rpcserver.StatusReply
		for {
			fmt.Print(".")
			if err := client.Do(rpcserver.Request{Cmd: "status", ID: id}, &status); err != nil {
				fmt.Println()
				return err
			}
			if status.State != device.StateConfiguring && status.CQueue == 0 {
				break
			}
			time.Sleep(time.Second)
		}
		fmt.Println()
		return showDevices([]rpcserver.ListEntry{{Device: status.Device, CQueue: status.CQueue}})
	},
}

var reinitCmd = &cobra.Command{
	Use:   "reinit <id>",
	Short: "Queue a device initialization again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return client.Do(rpcserver.Request{Cmd: "reinit", ID: id}, nil)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a device row",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return client.Do(rpcserver.Request{Cmd: "delete", ID: id}, nil)
	},
}

var neighborCmd = &cobra.Command{
	Use:   "neighbor-info <id>",
	Short: "Show the device's discovered neighbors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		var reply rpcserver.InfoReply
		if err := client.Do(rpcserver.Request{Cmd: "neighbor-info", ID: id}, &reply); err != nil {
			return err
		}
		fmt.Println(reply.Info)
		return nil
	},
}

func init() {
	adoptCmd.Flags().StringVar(&adoptConfig, "config", "", "configuration file (default config/<identity>.cfg)")
	adoptCmd.Flags().BoolVar(&adoptNoWait, "no-wait", false, "do not wait for the adoption result")
	rootCmd.AddCommand(listCmd, statusCmd, adoptCmd, reinitCmd, deleteCmd, neighborCmd)
}
