package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/diligentia/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Diligentia configuration",
	Long: `Manage Diligentia configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (DILIGENTIA_*)
3. Config file (~/.diligentia/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration after merging defaults, the config file and the environment. Secrets are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(masked(cfg))
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Println(string(yamlData))

		fmt.Println("Configuration hierarchy (highest to lowest priority):")
		fmt.Println("  1. CLI flags")
		fmt.Println("  2. Environment variables (DILIGENTIA_*, OPENAI_API_KEY, ANTHROPIC_API_KEY)")
		fmt.Println("  3. Config file (~/.diligentia/config.yaml)")
		fmt.Println("  4. Defaults")
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.diligentia/config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}
		configPath := filepath.Join(home, ".diligentia", "config.yaml")
		if err := writeDefaultConfig(configPath); err != nil {
			return err
		}

		fmt.Printf("✓ Created default configuration: %s\n", configPath)
		fmt.Printf("\nTo view the configuration:\n  diligentia config show\n")
		return nil
	},
}

// writeDefaultConfig writes the commented default config, refusing to
// overwrite an existing file
func writeDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s\nUse 'diligentia config show' to view it, or delete it first to recreate", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	yamlData, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	header := "# Diligentia Configuration File\n" +
		"#\n" +
		"# Configuration hierarchy (highest to lowest priority):\n" +
		"#   1. CLI flags\n" +
		"#   2. Environment variables (DILIGENTIA_*)\n" +
		"#   3. This config file\n" +
		"#   4. Built-in defaults\n\n"
	footer := "\n# API keys are better kept in the environment:\n" +
		"#   export DILIGENTIA_SEARCH_API_KEY=...\n" +
		"#   export OPENAI_API_KEY=sk-...\n" +
		"#   export ANTHROPIC_API_KEY=sk-ant-...\n"

	if err := os.WriteFile(path, []byte(header+string(yamlData)+footer), 0o600); err != nil {
		return fmt.Errorf("error writing config: %w", err)
	}
	return nil
}

func masked(cfg *model.Config) *model.Config {
	out := *cfg
	if out.Search.APIKey != "" {
		out.Search.APIKey = "****"
	}
	if out.LLM.APIKey != "" {
		out.LLM.APIKey = "****"
	}
	return &out
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
