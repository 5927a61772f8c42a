// Package main contains the cli implementation of the tool. It uses cobra
// package for cli tool implementation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openmpp/ompc/internal/build"
	"github.com/openmpp/ompc/internal/config"
	"github.com/openmpp/ompc/internal/diag"
	"github.com/openmpp/ompc/internal/obslog"
)

type buildFlags struct {
	sourceDir    string
	outputDir    string
	providers    []string
	languages    []string
	eventTrace   bool
	noIndexCheck bool
	tomlPath     string
	logLevel     string
	logDir       string
	messageIniIn string
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "ompc",
		Short: "openM++ model-language compiler",
	}

	rootCmd.AddCommand(buildCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(infoCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildCmd() *cobra.Command {
	flags := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "build <model-name>",
		Short: "Compile a model's .mpp sources into C++, SQL, and a translation catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runBuild(args[0], flags, false)
		},
	}
	addBuildFlags(cmd, flags)
	return cmd
}

func checkCmd() *cobra.Command {
	flags := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "check <model-name>",
		Short: "Run every compile phase into a temporary directory that is then removed, reporting diagnostics only",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runBuild(args[0], flags, true)
		},
	}
	addBuildFlags(cmd, flags)
	return cmd
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the compiler name and the supported SQL providers",
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Println("ompc: openM++ model-language compiler")
			fmt.Println("providers: mysql, sqlite")
			return nil
		},
	}
}

func addBuildFlags(cmd *cobra.Command, flags *buildFlags) {
	cmd.Flags().StringVarP(&flags.sourceDir, "source", "s", ".", "Directory containing the model's .mpp source files")
	cmd.Flags().StringVarP(&flags.outputDir, "output", "o", "./build", "Directory to write generated artifacts into")
	cmd.Flags().StringSliceVar(&flags.providers, "providers", nil, "SQL providers to generate for (mysql, sqlite)")
	cmd.Flags().StringSliceVar(&flags.languages, "languages", nil, "Model languages, e.g. EN,FR")
	cmd.Flags().BoolVar(&flags.eventTrace, "event-trace", false, "Emit event-trace cover functions in generated entity classes")
	cmd.Flags().BoolVar(&flags.noIndexCheck, "no-index-check", false, "Disable array-bounds-check injection")
	cmd.Flags().StringVar(&flags.tomlPath, "config", "", "Path to an ompc.toml override file")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "info", "Log level: info, warn, error")
	cmd.Flags().StringVar(&flags.logDir, "log-dir", "", "Directory for rotating log files (console-only if empty)")
	cmd.Flags().StringVar(&flags.messageIniIn, "message-ini", "", "Path to an existing .message.ini to merge translations from")
}

func runBuild(modelName string, flags *buildFlags, checkOnly bool) error {
	indexErrors := !flags.noIndexCheck
	opts, err := config.Load(config.Flags{
		ModelName:    modelName,
		SourceDir:    flags.sourceDir,
		OutputDir:    flags.outputDir,
		Providers:    flags.providers,
		Languages:    flags.languages,
		EventTrace:   &flags.eventTrace,
		IndexErrors:  &indexErrors,
		LogLevel:     flags.logLevel,
		LogDir:       flags.logDir,
		MessageIniIn: flags.messageIniIn,
		TOMLPath:     flags.tomlPath,
	})
	if err != nil {
		return err
	}

	logger, err := obslog.New(obslog.Config{Level: opts.LogLevel, LogDir: opts.LogDir, Trace: opts.EventTrace})
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Close() }()

	if checkOnly {
		opts.OutputDir = mustTempCheckDir()
		defer os.RemoveAll(opts.OutputDir)
	}

	driver := &build.Driver{Opts: opts, Log: logger}
	result, err := driver.Run()
	if err != nil {
		logger.Error("build failed", "error", err.Error())
		return err
	}

	for _, d := range result.Diagnostics.Items() {
		logDiagnostic(logger, d)
	}

	switch result.Diagnostics.WorstSeverity() {
	case diag.SeverityFatal, diag.SeverityError:
		os.Exit(1)
	}
	return nil
}

func logDiagnostic(logger *obslog.Logger, d diag.Diagnostic) {
	switch d.Severity {
	case diag.SeverityWarning:
		logger.Warn(d.Error())
	default:
		logger.Error(d.Error())
	}
}

func mustTempCheckDir() string {
	dir, err := os.MkdirTemp("", "ompc-check-*")
	if err != nil {
		return os.TempDir()
	}
	return dir
}
