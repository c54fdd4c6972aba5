package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/anonchat/cmd/anonchat/internal"
	"github.com/tinyland-inc/anonchat/cmd/anonchat/internal/gateway"
	"github.com/tinyland-inc/anonchat/cmd/anonchat/internal/onboard"
	"github.com/tinyland-inc/anonchat/cmd/anonchat/internal/version"
)

func NewAnonchatCommand() *cobra.Command {
	short := fmt.Sprintf("%s anonchat - Anonymous Chat Relay v%s\n\n", internal.Logo, internal.GetVersion())

	cmd := &cobra.Command{
		Use:     "anonchat",
		Short:   short,
		Example: "anonchat gateway",
	}

	cmd.AddCommand(
		onboard.NewOnboardCommand(),
		gateway.NewGatewayCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewAnonchatCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
