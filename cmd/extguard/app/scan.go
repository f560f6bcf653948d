package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/extguard/internal/service"
)

func newScanCmd(v *viper.Viper) *cobra.Command {
	var failOnMatch bool
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Check installed extensions against every cached list",
		Long: `Enumerate installed extensions and report the ones whose id appears
in the cached records of any registered list. Disabling a list stops its
refresh but keeps its cached records in the match set; clear its cache to
drop them.

Installed extensions are read from --chromium-profile or --extensions-file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(v)
			if err != nil {
				return err
			}
			c, err := openComponents(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer c.Close()

			result, err := c.Service.Scan(cmd.Context())
			if errors.Is(err, service.ErrNoEnumerator) {
				return fmt.Errorf("%w: set --chromium-profile or --extensions-file", err)
			}
			if err != nil {
				return err
			}
			if err := writeScan(cmd.OutOrStdout(), format, result); err != nil {
				return err
			}
			if failOnMatch && result.Count() > 0 {
				return fmt.Errorf("%d installed extension(s) flagged", result.Count())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failOnMatch, "fail-on-match", false, "Exit non-zero when any installed extension is flagged")
	return cmd
}
