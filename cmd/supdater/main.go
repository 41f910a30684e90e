package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sershocode/supdater/internal/utils"
	"github.com/sershocode/supdater/internal/version"
)

var (
	home, _        = os.UserHomeDir()
	defaultLogFile = filepath.Join(home, ".supdater", "logs", "supdater.log")

	// fatal messages stay on screen this long before the process exits
	exitDelay = 5 * time.Second

	consoleLevel = new(slog.LevelVar)
)

var rootCmd = &cobra.Command{
	Use:           "supdater",
	Short:         "Mirror a remote FTP folder onto the current directory",
	Version:       version.Detailed(),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			consoleLevel.Set(slog.LevelDebug)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		return runSync(cmd, runOpts{dryRun: dryRun})
	},
}

func init() {
	addGlobalFlags(rootCmd)
	rootCmd.Flags().Bool("dry-run", false, "Report deletions without applying them")
}

// addGlobalFlags registers the flags shared by every subcommand.
func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().SortFlags = false
	cmd.PersistentFlags().StringP("config", "c", "", "Config file (default <dir>/SUpdaterOptions.json)")
	cmd.PersistentFlags().StringP("dir", "d", "", "Local sync root (default current directory)")
	cmd.PersistentFlags().Bool("silent", false, "Never ask questions, same as IsSilentMode")
	cmd.PersistentFlags().String("env-file", "", "Load environment overrides from this file")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Print debug logs to the console")
}

func main() {
	logFile := defaultLogFile
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log directory: %v\n", err)
		os.Exit(1)
	}

	// one log file per run
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	logInterceptor := utils.NewLogInterceptor(file)

	consoleLevel.Set(slog.LevelWarn)
	stderrHandler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      consoleLevel,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})
	fileHandler := slog.NewTextHandler(logInterceptor, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// time is added by the log interceptor
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})
	slog.SetDefault(slog.New(utils.NewMultiLogHandler(stderrHandler, fileHandler)))
	slog.Debug("start", "version", version.DetailedWithApp(), "args", os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err = rootCmd.ExecuteContext(ctx)
	stop()

	code := 0
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Debug("exit", "error", err)
		showFatal(err)
		code = 1
	}

	_ = logInterceptor.Close()
	_ = file.Close()
	os.Exit(code)
}

// showFatal prints the error and keeps it readable for a moment when a human is watching.
func showFatal(err error) {
	fmt.Fprintln(os.Stderr, red.Render("Error: "+describeError(err)))
	if isatty.IsTerminal(os.Stdout.Fd()) {
		time.Sleep(exitDelay)
	}
}
