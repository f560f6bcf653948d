// Package app provides the command tree of the extguard CLI.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	internalapp "github.com/stacklok/extguard/internal/app"
	"github.com/stacklok/extguard/internal/config"
	"github.com/stacklok/extguard/internal/versions"
)

// Viper keys shared by every command
const (
	keyConfig          = "config"
	keyStorageType     = "storage.type"
	keyStoragePath     = "storage.path"
	keyListsDir        = "lists.dir"
	keyChromiumProfile = "inventory.chromium_profile"
	keyExtensionsFile  = "inventory.file"
	keyHostExtension   = "inventory.host_extension_id"
	keyOutput          = "output"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:               "extguard",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Detect installed browser extensions that appear on malicious-extension lists",
		Long: `extguard ingests published lists of malicious browser extension identifiers
(CSV, TXT and JSON), keeps a cached snapshot of each list, and reports which
installed extensions appear on any of them.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to configuration file (YAML)")
	flags.String("storage", "", "Storage backend: file, redis or memory")
	flags.String("storage-path", "", "Directory used by the file storage backend")
	flags.String("lists-dir", "", "Directory containing bundled list folders")
	flags.String("chromium-profile", "", "Chromium profile directory to scan")
	flags.String("extensions-file", "", "JSON export of installed extensions to scan")
	flags.String("host-extension-id", "", "Extension id excluded from scans")
	flags.StringP("output", "o", outputTable, "Output format: table or json")

	bindings := map[string]string{
		keyConfig:          "config",
		keyStorageType:     "storage",
		keyStoragePath:     "storage-path",
		keyListsDir:        "lists-dir",
		keyChromiumProfile: "chromium-profile",
		keyExtensionsFile:  "extensions-file",
		keyHostExtension:   "host-extension-id",
		keyOutput:          "output",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			slog.Error("Error binding flag", "flag", flag, "error", err)
		}
	}

	rootCmd.AddCommand(
		newBootstrapCmd(v),
		newRefreshCmd(v),
		newRecordsCmd(v),
		newScanCmd(v),
		newSourcesCmd(v),
		newServeCmd(v),
		newConfigCmd(v),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfig reads the configuration file if one is given and applies flag
// and EXTGUARD_* environment overrides on top
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg := config.Default()
	if path := v.GetString(keyConfig); path != "" {
		loaded, err := config.LoadConfig(config.WithConfigPath(path))
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
		slog.Debug("Loaded configuration", "path", path)
	}

	overrides := []struct {
		key    string
		target *string
	}{
		{keyStorageType, &cfg.Storage.Type},
		{keyStoragePath, &cfg.Storage.Path},
		{keyListsDir, &cfg.Lists.Dir},
		{keyChromiumProfile, &cfg.Inventory.ChromiumProfile},
		{keyExtensionsFile, &cfg.Inventory.File},
		{keyHostExtension, &cfg.Inventory.HostExtensionID},
	}
	for _, o := range overrides {
		if val := v.GetString(o.key); val != "" {
			*o.target = val
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openComponents loads configuration and builds the list pipeline.
// The caller must Close the result.
func openComponents(ctx context.Context, v *viper.Viper) (*internalapp.Components, error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, err
	}
	return internalapp.NewComponents(ctx, internalapp.WithConfig(cfg))
}

func outputFormat(v *viper.Viper) (string, error) {
	switch format := strings.ToLower(v.GetString(keyOutput)); format {
	case "", outputTable:
		return outputTable, nil
	case outputJSON:
		return outputJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", format)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("output")
			if err != nil {
				return err
			}
			if format == outputJSON {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("error formatting version info as JSON: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "extguard %s (commit %s, built %s, %s, %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
			return err
		},
	}
}
