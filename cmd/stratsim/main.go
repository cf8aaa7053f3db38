package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/strategy-sim/internal/config"
	"github.com/yourusername/strategy-sim/internal/logger"
	"github.com/yourusername/strategy-sim/internal/metrics"
	"github.com/yourusername/strategy-sim/internal/rules"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	logLevel   string
	appLogger  *logrus.Logger
	cfg        *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultConfigPath, "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	rootCmd.AddCommand(compileCmd, runCmd, serveCmd, versionCmd)
}

var rootCmd = &cobra.Command{
	Use:   "stratsim",
	Short: "Compile trading strategies and run them against the simulation engine",
	Long: `stratsim turns plain-text trading rules into structured rules and drives
simulations of them on the remote engine, streaming day-by-day results.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		setupDependencies()
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "stratsim %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.App.LogLevel = logLevel
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	return config.ValidateEnvironment(cfg)
}

func setupDependencies() {
	appLogger = logger.NewLogger(cfg.App.LogLevel)
	metrics.InitRegistry()
}

// readStrategy reads strategy text from a file, or stdin when path is "-"
func readStrategy(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read strategy file: %w", err)
	}
	return string(data), nil
}

// compileStrategy compiles text and reports the outcome through the rule logger and metrics
func compileStrategy(source, text string) rules.Result {
	result := rules.Compile(text)

	ruleLogger := logger.NewRuleLogger(appLogger)
	for _, d := range result.Diagnostics {
		ruleLogger.LogDiagnostic(source, d.Line, d.Text, d.Reason)
	}
	ruleLogger.LogCompiled(source, len(result.Rules), len(result.Diagnostics))
	metrics.RecordCompile(len(result.Rules), len(result.Diagnostics))

	return result
}
