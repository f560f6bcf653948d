package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/extguard/internal/lists"
	"github.com/stacklok/extguard/internal/service"
)

func newSourcesCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sources",
		Aliases: []string{"source"},
		Short:   "Manage registered malicious extension lists",
	}
	cmd.AddCommand(
		newSourcesListCmd(v),
		newSourcesAddCmd(v),
		newSourcesRemoveCmd(v),
		newSourcesSetEnabledCmd(v, true),
		newSourcesSetEnabledCmd(v, false),
		newSourcesRefreshCmd(v),
		newSourcesClearCacheCmd(v),
	)
	return cmd
}

// withService runs fn against a freshly built pipeline using the configured output format
func withService(cmd *cobra.Command, v *viper.Viper, fn func(svc service.ListService, format string) error) error {
	format, err := outputFormat(v)
	if err != nil {
		return err
	}
	c, err := openComponents(cmd.Context(), v)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c.Service, format)
}

func newSourcesListCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered sources with their cache state",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd, v, func(svc service.ListService, format string) error {
				infos, err := svc.Sources(cmd.Context())
				if err != nil {
					return err
				}
				return writeSources(cmd.OutOrStdout(), format, infos)
			})
		},
	}
}

func newSourcesAddCmd(v *viper.Viper) *cobra.Command {
	desc := &lists.Descriptor{}
	var disabled bool

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Register a new source and fetch it",
		Long: `Register a new malicious extension list.

A source with --url is fetched immediately; if the fetch fails the source is
not registered. A source without --url reads its records from --local-file
inside the source folder.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc.Name = args[0]
			desc.Enabled = !disabled
			return withService(cmd, v, func(svc service.ListService, format string) error {
				result, err := svc.AddSource(cmd.Context(), desc)
				if err != nil {
					return err
				}
				if format == outputJSON {
					return writeJSON(cmd.OutOrStdout(), result)
				}
				if result.Outcome != nil {
					if err := writeOutcome(cmd.OutOrStdout(), format, result.Outcome); err != nil {
						return err
					}
				}
				if result.Warning != "" {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", result.Warning)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added source %q\n", result.Descriptor.Name)
				return err
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&desc.DisplayName, "display-name", "", "Name shown as the record source (defaults to NAME)")
	flags.StringVar(&desc.Format, "format", "", "List format: csv, txt or json")
	flags.StringVar(&desc.URL, "url", "", "URL the list is fetched from")
	flags.BoolVar(&desc.HasHeaders, "has-headers", false, "CSV list has a header row")
	flags.StringVar(&desc.IDField, "id-field", "", "Field holding the extension id")
	flags.StringVar(&desc.NameField, "name-field", "", "Field holding the extension name")
	flags.StringVar(&desc.CategoryField, "category-field", "", "Field holding the category")
	flags.StringVar(&desc.TypeField, "type-field", "", "Field holding the type")
	flags.StringVar(&desc.LinkField, "link-field", "", "Field holding the reference link")
	flags.StringVar(&desc.CommentField, "comment-field", "", "Field holding the comment")
	flags.StringVar(&desc.LocalFile, "local-file", "", "Data file inside the source folder")
	flags.BoolVar(&disabled, "disabled", false, "Register the source without enabling background refresh")
	_ = cmd.MarkFlagRequired("format")
	return cmd
}

func newSourcesRemoveCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "remove NAME",
		Aliases: []string{"rm"},
		Short:   "Unregister a source and delete its cached records",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, v, func(svc service.ListService, _ string) error {
				if err := svc.RemoveSource(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Removed source %q\n", args[0])
				return err
			})
		},
	}
}

func newSourcesSetEnabledCmd(v *viper.Viper, enabled bool) *cobra.Command {
	use, short := "enable NAME", "Enable background refresh of a source"
	if !enabled {
		use, short = "disable NAME", "Disable background refresh of a source"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, v, func(svc service.ListService, format string) error {
				desc, err := svc.SetSourceEnabled(cmd.Context(), args[0], enabled)
				if err != nil {
					return err
				}
				if format == outputJSON {
					return writeJSON(cmd.OutOrStdout(), desc)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Source %q enabled: %t\n", desc.Name, desc.Enabled)
				return err
			})
		},
	}
}

func newSourcesRefreshCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh NAME",
		Short: "Fetch one source now, regardless of cache validity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, v, func(svc service.ListService, format string) error {
				outcome, err := svc.RefreshSource(cmd.Context(), args[0])
				if outcome != nil {
					if werr := writeOutcome(cmd.OutOrStdout(), format, outcome); werr != nil {
						return errors.Join(err, werr)
					}
				}
				return err
			})
		},
	}
}

func newSourcesClearCacheCmd(v *viper.Viper) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "clear-cache [NAME]",
		Short: "Delete the cached records of one source, or of every source with --all",
		Args: func(_ *cobra.Command, args []string) error {
			switch {
			case all && len(args) > 0:
				return errors.New("NAME cannot be combined with --all")
			case !all && len(args) != 1:
				return errors.New("exactly one NAME is required unless --all is set")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return withService(cmd, v, func(svc service.ListService, _ string) error {
				if err := svc.ClearCache(cmd.Context(), name); err != nil {
					return err
				}
				target := "every source"
				if name != "" {
					target = fmt.Sprintf("source %q", name)
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "Cleared cache of %s\n", target)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Clear the cache of every source")
	return cmd
}
