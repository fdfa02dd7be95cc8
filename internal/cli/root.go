package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/diligentia/internal/logging"
	"github.com/ppiankov/diligentia/internal/model"
)

// Version is set at build time
var Version = "0.1.0"

var (
	cfgFile  string
	verbose  bool
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "diligentia",
	Short: "Diligentia - tiered due diligence on companies, funds and founders",
	Long: `Diligentia investigates an entity before a funding or payment decision.

It picks a depth of investigation from the size of the decision and the
risk signals already known, runs independent research branches in
parallel, verifies every claim against gathered evidence, cross-checks
the branches against each other and produces a verdict.

Stop rules always win: a sanctions hit, a wire destination mismatch or a
contradicted identity claim forces a disengage recommendation, however
good the rest of the picture looks.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("diligentia v%s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.diligentia/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(filepath.Join(home, ".diligentia"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// DILIGENTIA_SEARCH_API_KEY overrides search.api_key, and so on
	viper.SetEnvPrefix("DILIGENTIA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// envOverrides are the config keys that may come from the environment
var envOverrides = []string{
	"search.endpoint", "search.api_key",
	"llm.provider", "llm.model", "llm.api_key", "llm.base_url",
	"store.driver", "store.path",
	"http.http_proxy", "http.https_proxy", "http.no_proxy",
	"log.level",
}

// loadConfig merges defaults, the config file and the environment. Flags are
// applied by each command on top.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if path := viper.ConfigFileUsed(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	for _, key := range envOverrides {
		if v := viper.GetString(key); v != "" {
			setString(cfg, key, v)
		}
	}
	if cfg.LLM.APIKey == "" {
		switch strings.ToLower(cfg.LLM.Provider) {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if cfg.LLM.BaseURL == "" && strings.EqualFold(cfg.LLM.Provider, "ollama") {
		cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
	}
	if viper.GetBool("verbose") {
		cfg.Output.Verbose = true
	}
	return cfg, nil
}

func setString(cfg *model.Config, key, v string) {
	switch key {
	case "search.endpoint":
		cfg.Search.Endpoint = v
	case "search.api_key":
		cfg.Search.APIKey = v
	case "llm.provider":
		cfg.LLM.Provider = v
	case "llm.model":
		cfg.LLM.Model = v
	case "llm.api_key":
		cfg.LLM.APIKey = v
	case "llm.base_url":
		cfg.LLM.BaseURL = v
	case "store.driver":
		cfg.Store.Driver = v
	case "store.path":
		cfg.Store.Path = v
	case "http.http_proxy":
		cfg.HTTP.HTTPProxy = v
	case "http.https_proxy":
		cfg.HTTP.HTTPSProxy = v
	case "http.no_proxy":
		cfg.HTTP.NoProxy = v
	case "log.level":
		cfg.Log.Level = v
	}
}

func newLogger(cfg *model.Config) zerolog.Logger {
	level := cfg.Log.Level
	if verbose && level == "info" {
		level = "debug"
	}
	return logging.New(level, cfg.Log.Pretty)
}
