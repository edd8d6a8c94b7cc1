package logout

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ryanreadbooks/primon/channel"
	"github.com/ryanreadbooks/primon/channel/adapter/whatsapp"
	"github.com/ryanreadbooks/primon/config"
)

var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Unlink the paired device and erase the session.",
	Long:  "Unlink the paired device and erase the session. The next start shows a new pairing code.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger, err := cfg.Logging.Install(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}

		sess, err := whatsapp.New(cmd.Context(), whatsapp.Options{
			StorePath: cfg.Session.StorePath,
			Logger:    logger,
		})
		if err != nil {
			return err
		}
		defer sess.Close()

		err = sess.Logout(cmd.Context())
		if errors.Is(err, whatsapp.ErrNotPaired) {
			fmt.Println("No device is paired.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to log out: %w", err)
		}

		if err := channel.RemoveMatching(cfg.Session.EraseGlobs, logger); err != nil {
			return err
		}

		fmt.Println("Logged out.")
		return nil
	},
}
