// Liscain - zero-touch switch provisioning controller
//
// The daemon enrolls factory-default switches that fetch their
// bootstrap config over TFTP, initializes them over the management
// network and hands them their target identity and configuration,
// either automatically (DHCP option-82 or CDP reverse lookup) or on
// operator request through the command socket.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/liscain-net/liscain/pkg/adopter"
	"github.com/liscain-net/liscain/pkg/bootstrap"
	"github.com/liscain-net/liscain/pkg/commander"
	"github.com/liscain-net/liscain/pkg/config"
	"github.com/liscain-net/liscain/pkg/device"
	"github.com/liscain-net/liscain/pkg/driver"
	"github.com/liscain-net/liscain/pkg/driver/ciscoios"
	"github.com/liscain-net/liscain/pkg/ephemeral"
	"github.com/liscain-net/liscain/pkg/ingest"
	"github.com/liscain-net/liscain/pkg/rpcserver"
	"github.com/liscain-net/liscain/pkg/util"
	"github.com/liscain-net/liscain/pkg/version"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "liscain",
	Short:         "Zero-touch switch provisioning controller",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
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
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "liscain.conf", "configuration file")
	rootCmd.AddCommand(versionCmd)
}

func run() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := util.SetLogLevel(cfg.LogLevel); err != nil {
		return err
	}

	store, err := device.Open(cfg.Database)
	if err != nil {
		return err
	}

	blobs, err := openEphemeral(cfg)
	if err != nil {
		return err
	}

	drivers := driver.NewRegistry()
	drivers.Register(ciscoios.Class, ciscoios.New(cfg, store, blobs))

	cmdr := commander.New()
	defer cmdr.Stop()

	var adopt adopter.Adopter
	if cfg.AutoconfEnabled {
		switch cfg.AutoconfMode {
		case "opt82":
			adopt = adopter.NewOpt82(cfg, store, drivers, cmdr)
		case "cdp":
			adopt = adopter.NewCDP(cfg, store, drivers, cmdr)
		}
	}

	files := bootstrap.NewServer(cfg, store, drivers, cmdr, blobs, adopt)
	go func() {
		util.Fatalf("tftp server: %v", files.RunTFTP(cfg.TFTPListener))
	}()
	if cfg.ServeHTTP {
		go func() {
			util.Fatalf("http server: %v", files.RunHTTP(fmt.Sprintf(":%d", cfg.HTTPPort)))
		}()
	}

	if cfg.Opt82Listener != "" {
		go func() {
			util.Fatalf("option82 listener: %v", ingest.NewListener(store).Run(cfg.Opt82Listener))
		}()
	}

	return rpcserver.NewServer(cfg, store, drivers, cmdr, adopt).Run(cfg.CommandSocket)
}

// openEphemeral selects the adoption blob store backend.
func openEphemeral(cfg *config.Config) (ephemeral.Store, error) {
	switch cfg.EphemeralBackend {
	case "redis":
		return ephemeral.NewRedisStore(cfg.EphemeralRedis, cfg.EphemeralTTL)
	default:
		return ephemeral.NewMemoryStore(cfg.EphemeralTTL), nil
	}
}
