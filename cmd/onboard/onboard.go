package onboard

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ryanreadbooks/primon/config"
	"github.com/ryanreadbooks/primon/lang"
)

var (
	sudoFlag     string
	handlerFlag  string
	languageFlag string
	forceFlag    bool
)

var OnboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize primon configuration.",
	Long:  "Initialize primon configuration.",
	RunE: func(cmd *cobra.Command, args []string) error {
		err := runOnboard(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("failed to run onboard: %w", err)
		}

		return nil
	},
}

func init() {
	OnboardCmd.Flags().StringVar(&sudoFlag, "sudo", "", "comma separated phone numbers allowed to run commands")
	OnboardCmd.Flags().StringVar(&handlerFlag, "handler", "", "command prefix characters")
	OnboardCmd.Flags().StringVar(&languageFlag, "language", "", "reply language ("+strings.Join(lang.Languages(), ", ")+")")
	OnboardCmd.Flags().BoolVarP(&forceFlag, "force", "f", false, "overwrite an existing config without asking")
}

func bootstrapConfig() (config.Config, error) {
	cfg := config.BootstrapConfig()
	if sudoFlag != "" {
		cfg.Sudo = sudoFlag
	}
	if handlerFlag != "" {
		cfg.Handler = handlerFlag
	}
	if languageFlag != "" {
		cfg.Language = languageFlag
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if _, err := lang.Load(cfg.Language); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// writeConfig writes cfg to configPath. An existing file is only replaced
// when force is set or the user confirms on in.
func writeConfig(configPath string, cfg config.Config, force bool, in io.Reader, out io.Writer) (bool, error) {
	if _, err := os.Stat(configPath); err == nil && !force {
		fmt.Fprintf(out, "Config file already exists at %s, do you want to overwrite it? (y/n): ", configPath)
		answer, _ := bufio.NewReader(in).ReadString('\n')
		answer = strings.TrimSpace(answer)
		if answer != "y" && answer != "Y" {
			return false, nil
		}
	}

	output, err := yaml.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, output, 0o644); err != nil {
		return false, fmt.Errorf("failed to write config: %w", err)
	}
	return true, nil
}

func runOnboard(in io.Reader, out io.Writer) error {
	configPath, err := config.GetWorkspaceConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	cfg, err := bootstrapConfig()
	if err != nil {
		return err
	}

	written, err := writeConfig(configPath, cfg, forceFlag, in, out)
	if err != nil {
		return fmt.Errorf("failed to bootstrap config: %w", err)
	}
	if written {
		fmt.Fprintf(out, "Configuration written to %s\n", configPath)
	}
	if cfg.Sudo == "" {
		fmt.Fprintln(out, "No sudo numbers configured, only your own messages can run commands.")
	}

	return nil
}
