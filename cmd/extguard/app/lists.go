package app

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newBootstrapCmd(v *viper.Viper) *cobra.Command {
	var reload bool
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Load bundled list data into the cache",
		Long: `Load the data files shipped with each bundled list into the cache.

Without --reload, sources that already have cached records are left alone.`,
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

			result, err := c.Service.LoadInitialData(cmd.Context(), reload)
			if err != nil {
				return err
			}
			return writeBatch(cmd.OutOrStdout(), format, result)
		},
	}
	cmd.Flags().BoolVar(&reload, "reload", false, "Reload bundled data even when a cache exists")
	return cmd
}

func newRefreshCmd(v *viper.Viper) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh every enabled list from its URL",
		Long: `Fetch every enabled list that has a URL and replace its cached records.

Lists whose cache is still within the validity window are skipped unless
--force is given. A failed fetch keeps the previous cache.`,
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

			result, err := c.Service.UpdateAllLists(cmd.Context(), force)
			if err != nil {
				return err
			}
			return writeBatch(cmd.OutOrStdout(), format, result)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Refresh lists even when their cache is still valid")
	return cmd
}

func newRecordsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "records",
		Short: "Print the aggregated records of every enabled list",
		Args:  cobra.NoArgs,
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

			records, err := c.Service.LoadAllMaliciousData(cmd.Context())
			if err != nil {
				return err
			}
			return writeRecords(cmd.OutOrStdout(), format, records)
		},
	}
}
