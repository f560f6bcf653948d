package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newConfigCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect extguard configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file and print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, "Valid configuration")
			_, _ = fmt.Fprintf(out, "  Storage: %s\n", cfg.GetStorageType())
			_, _ = fmt.Fprintf(out, "  Lists dir: %s\n", cfg.Lists.Dir)
			_, _ = fmt.Fprintf(out, "  Default lists: %s\n", strings.Join(cfg.Lists.DefaultFolders, ", "))
			_, _ = fmt.Fprintf(out, "  Extension id: %s\n", cfg.ExtensionID.IDPattern())
			_, _ = fmt.Fprintf(out, "  Cache validity: %s\n", cfg.GetCacheValidity())
			_, err = fmt.Fprintf(out, "  Refresh interval: %s\n", cfg.GetRefreshInterval())
			return err
		},
	})
	return cmd
}
