package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal"
	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/config"
	"github.com/Qubut/IP-Claim/packages/cvm_extrato/internal/telemetry"
)

var (
	cfgFile  string
	cfg      config.Config
	logger   *zap.SugaredLogger
	tracer   trace.Tracer
	meter    metric.Meter
	shutdown telemetry.Shutdown
	services *internal.Services
	Version  = "dev" // Set at build time: go build -ldflags "-X github.com/Qubut/IP-Claim/packages/cvm_extrato/cmd.Version=v1.0.0"
)

var RootCmd = &cobra.Command{
	Use:   "cvm-extrato",
	Short: "Download and inspect the CVM investment fund extract",
	Long: `Downloads the CVM "Extrato" CSV of Brazilian investment funds, keeps it as the
only CSV file in the target directory, detects its delimiter and encoding,
loads it and prints the first rows.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		var logFile string
		if logDir := cfg.Log.LogDir; logDir != "" {
			if err := os.MkdirAll(logDir, 0o755); err != nil {
				return fmt.Errorf("create log directory: %w", err)
			}
			logFile = filepath.Join(logDir,
				fmt.Sprintf("cvm-extrato[%s].log", time.Now().Format("20060102-150405")))
		}

		teleCfg := telemetry.Config{
			Enabled:     cfg.Telemetry.Enabled,
			ServiceName: cfg.Telemetry.ServiceName,
			Exporter:    cfg.Telemetry.Exporter,
			Endpoint:    cfg.Telemetry.Endpoint,
			Protocol:    cfg.Telemetry.Protocol,
			Insecure:    cfg.Telemetry.Insecure,
			Headers:     cfg.Telemetry.Headers,
			LogFile:     logFile,
			LogLevel:    cfg.Log.LogLevel,
			Version:     Version,
		}
		tracer, meter, logger, shutdown, err = telemetry.InitOTEL(teleCfg)
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		services, err = internal.InitServices(cfg, afero.NewOsFs(), tracer, logger, meter)
		if err != nil {
			return fmt.Errorf("init services: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := services.Run(ctx, cmd.OutOrStdout(), cfg.Preview.Rows); err != nil {
			logger.Errorw("Run failed", "err", err)
			return err
		}
		logger.Info("All steps completed")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of cvm-extrato",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), Version)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config operations",
}

var printConfigCmd = &cobra.Command{
	Use:   "print",
	Short: "Print the current loaded configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

// Execute runs the CLI and flushes telemetry whether or not the command failed.
func Execute() error {
	err := RootCmd.Execute()
	if shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := shutdown(ctx); shutdownErr != nil && logger != nil {
			logger.Errorw("shutdown error", "err", shutdownErr)
		}
		shutdown = nil
	}
	return err
}

func init() {
	RootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "Path to config file (yaml/json/toml)")

	type flagDef struct {
		name, key, def, usage string
	}
	flags := []flagDef{
		{"log-level", "log.log_level", "info", "Log level (debug/info/warn/error)"},
		{"log-dir", "log.log_dir", "logs", "Directory for JSON log files (empty disables file logging)"},
		{"telemetry.enabled", "telemetry.enabled", "false", "Enable OpenTelemetry"},
		{"telemetry.exporter", "telemetry.exporter", "none", "Telemetry exporter (otlp|stdout|none)"},
		{"telemetry.endpoint", "telemetry.endpoint", "localhost:4317", "OTLP endpoint (host:port)"},
		{"telemetry.protocol", "telemetry.protocol", "grpc", "OTLP protocol (grpc|http)"},
		{"telemetry.insecure", "telemetry.insecure", "true", "Allow insecure OTLP connection"},
		{"telemetry.service-name", "telemetry.service_name", "cvm-extrato", "Service name for telemetry"},
		{"url", "source.url", config.DefaultSourceURL, "URL of the extract"},
		{"timeout", "source.timeout", "60s", "Request timeout (duration)"},
		{"progress", "source.progress", "true", "Show a download progress bar on stderr"},
		{"dir", "store.directory", ".", "Directory holding the local artifact"},
		{"filename", "store.filename", "extrato_fi.csv", "Name of the local artifact"},
		{"encodings", "sniff.encodings", "utf-8,latin1,iso-8859-1", "Candidate encodings in priority order"},
		{"sample-rows", "sniff.sample_rows", "2", "Data rows parsed per format probe"},
		{"min-columns", "sniff.min_columns", "1", "Columns a format probe must yield"},
		{"rows", "preview.rows", "5", "Rows shown in the preview"},
	}
	for _, f := range flags {
		RootCmd.PersistentFlags().String(f.name, f.def, f.usage)
		viper.BindPFlag(f.key, RootCmd.PersistentFlags().Lookup(f.name))
	}

	configCmd.AddCommand(printConfigCmd)

	RootCmd.AddCommand(fetchCmd)
	RootCmd.AddCommand(sniffCmd)
	RootCmd.AddCommand(previewCmd)
	RootCmd.AddCommand(versionCmd)
	RootCmd.AddCommand(configCmd)
}
