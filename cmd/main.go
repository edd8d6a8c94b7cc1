package main

import (
	"os"

	"github.com/ryanreadbooks/primon/cmd/configcmd"
	"github.com/ryanreadbooks/primon/cmd/gateway"
	"github.com/ryanreadbooks/primon/cmd/logout"
	"github.com/ryanreadbooks/primon/cmd/onboard"
	"github.com/ryanreadbooks/primon/pkg/process"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "primon",
	Short:        "A WhatsApp userbot.",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(gateway.StartCmd)
	rootCmd.AddCommand(onboard.OnboardCmd)
	rootCmd.AddCommand(logout.LogoutCmd)
	rootCmd.AddCommand(configcmd.ConfigCmd)
}

func main() {
	ctx, cancel, wait := process.GetRootContext()
	err := rootCmd.ExecuteContext(ctx)
	cancel()

	wait()
	if err != nil {
		os.Exit(1)
	}
}
