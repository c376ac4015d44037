package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayushshrivastv/Cosmic-Loop-sub001/config"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/core"
	"github.com/ayushshrivastv/Cosmic-Loop-sub001/logger"
)

// Set via -ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
)

const defaultHomeSubdir = ".bridged"

func InitRootCmd(rootCmd *cobra.Command) {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(startCmd())
	rootCmd.AddCommand(versionCmd())
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return defaultHomeSubdir
	}
	return filepath.Join(home, defaultHomeSubdir)
}

func initCmd() *cobra.Command {
	var homeDir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config to the home directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDefaultConfig()
			if err != nil {
				return err
			}
			cfg.NodeHome = homeDir
			if err := config.Save(cfg, homeDir); err != nil {
				return err
			}
			fmt.Printf("Wrote default config under %s\n", homeDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&homeDir, "home", defaultHome(), "daemon home directory")
	return cmd
}

func startCmd() *cobra.Command {
	var homeDir string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the cross-chain message tracker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(homeDir)
			if err != nil {
				// A missing config file is not fatal; run on defaults so a
				// fresh checkout starts against the public testnets.
				defaultCfg, defErr := config.LoadDefaultConfig()
				if defErr != nil {
					return err
				}
				cfg = *defaultCfg
			}
			if cfg.NodeHome == "" {
				cfg.NodeHome = homeDir
			}

			log := logger.New(cfg.LogLevel, cfg.LogFormat, cfg.LogSampler)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			client, err := core.NewBridgeClient(ctx, log, cfg)
			if err != nil {
				return err
			}
			return client.Start()
		},
	}

	cmd.Flags().StringVar(&homeDir, "home", defaultHome(), "daemon home directory")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print bridged version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Name:    bridged\n")
			fmt.Printf("Version: %s\n", Version)
			fmt.Printf("Commit:  %s\n", Commit)
		},
	}
}
