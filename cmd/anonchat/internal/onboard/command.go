package onboard

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tinyland-inc/anonchat/cmd/anonchat/internal"
	"github.com/tinyland-inc/anonchat/pkg/config"
)

func NewOnboardCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Create the default configuration",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return onboardCmd(force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration")

	return cmd
}

func onboardCmd(force bool) error {
	path := internal.GetConfigPath()

	if _, err := os.Stat(path); err == nil && !force {
		fmt.Printf("Config already exists at %s (use --force to overwrite)\n", path)
		return nil
	}

	cfg := config.DefaultConfig()
	if err := config.SaveConfig(path, cfg); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}

	fmt.Printf("%s Config written to %s\n\n", internal.Logo, path)
	fmt.Println("Next steps:")
	fmt.Println("  1. Set telegram.token (or ANONCHAT_TELEGRAM_TOKEN)")
	fmt.Println("  2. Set an AI provider key for the AI chat mode (optional)")
	fmt.Println("  3. Run: anonchat gateway")
	return nil
}
