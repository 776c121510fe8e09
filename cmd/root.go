package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var cfgFile string
var debug bool
var logLevel string

var rootCmd = &cobra.Command{
	Use:           "shield",
	Short:         "SHIELD security assessment client",
	Long:          "Configure and run AI-agent security assessments against organizations registered in a SHIELD backend.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
		} else {
			v.AddConfigPath("$HOME")
			v.SetConfigName(".shield-cli")
			v.SetConfigType("yaml")
		}
		bindEnv(v)

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if cfgFile != "" || !errors.As(err, &notFound) {
				return fmt.Errorf("failed to read config: %w", err)
			}
		}
		applyConfigDefaults(cmd, v)

		logger, err := newLogger(debug, logLevel)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		dataDir, err := resolveDataDir(cliConfig.Defaults.DataDir)
		if err != nil {
			return err
		}

		storeAppContext(cmd, &AppContext{
			Logger:   logger,
			Operator: cliConfig.Defaults.Operator,
			DataDir:  dataDir,
			Config:   cliConfig,
		})

		logger.Debug("cli initialized",
			zap.String("operator", cliConfig.Defaults.Operator),
			zap.String("data_dir", dataDir),
			zap.String("api_url", cliConfig.API.BaseURL),
			zap.String("config_file", v.ConfigFileUsed()),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appCtx := getAppContext(cmd); appCtx != nil && appCtx.Logger != nil {
			_ = appCtx.Logger.Sync()
		}
	},
}

// newLogger builds the production JSON logger at level, or a development
// logger when debug is set.
func newLogger(debug bool, level string) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.shield-cli.yaml)")
	flags.BoolVar(&debug, "debug", false, "enable development logging")
	flags.StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringVar(&cliConfig.API.BaseURL, "api-url", cliConfig.API.BaseURL, "SHIELD backend base URL (or set SHIELD_API_URL)")
	flags.StringVar(&cliConfig.API.Token, "token", "", "bearer token for this invocation (or set SHIELD_TOKEN)")
	flags.IntVar(&cliConfig.API.TimeoutSecs, "timeout", cliConfig.API.TimeoutSecs, "per-request timeout in seconds")
	flags.IntVar(&cliConfig.API.RateLimit, "rate-limit", cliConfig.API.RateLimit, "maximum backend requests per second (0 = unlimited)")
	flags.StringVarP(&cliConfig.Defaults.Operator, "operator", "u", cliConfig.Defaults.Operator, "operator name (or set via USER env)")

	rootCmd.AddCommand(versionCmd)
}
