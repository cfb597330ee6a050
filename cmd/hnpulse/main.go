package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hnpulse/internal/bootstrap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "hnpulse",
		Short:         "Cache-aware paginated Hacker News feed service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := bootstrap.Init(configPath)
			if err != nil {
				return err
			}
			app.Logger.Info("服务启动", zap.String("address", app.Config.Server.Address))
			// Spin 阻塞直到收到退出信号，并执行 OnShutdown 钩子
			app.Server.Spin()
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "conf/config.yaml", "path to the YAML config file (empty: defaults and env only)")
	return cmd
}
