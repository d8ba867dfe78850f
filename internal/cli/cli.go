package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/specialistvlad/adcanvas/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// lookupEnv supplies the PORT and GROK_API_KEY fallbacks and may be nil.
func Parse(args []string, output io.Writer, lookupEnv func(string) (string, bool)) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	flagSet := flag.NewFlagSet("adcanvas", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
adcanvas - A node-graph canvas for generating and previewing ad creatives.

Usage:
  adcanvas [options] [CONFIG_PATH]

Arguments:
  CONFIG_PATH
    Path to a single .hcl file or a directory containing .hcl files.
    Built-in defaults are used when omitted.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the configuration file or directory.")
	cFlag := flagSet.String("c", "", "Path to the configuration file or directory (shorthand).")
	portFlag := flagSet.Int("port", 0, "HTTP port. Falls back to $PORT, then to server.port.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	branchesFlag := flagSet.Int("branches", 0, "Override the number of creative branches per fan-out.")
	watchFlag := flagSet.Bool("watch", false, "Reload the configuration when its files change.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	var paths []string
	switch {
	case *configFlag != "":
		paths = append(paths, *configFlag)
	case *cFlag != "":
		paths = append(paths, *cFlag)
	case flagSet.NArg() > 0:
		paths = append(paths, flagSet.Args()...)
	}
	slog.Debug("Config paths determined.", "paths", paths)

	port := *portFlag
	if port == 0 {
		if raw, ok := lookupEnv("PORT"); ok && raw != "" {
			p, err := strconv.Atoi(raw)
			if err != nil {
				return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid PORT environment value %q", raw)}
			}
			port = p
		}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	slog.Debug("CLI parameter validation complete.")

	apiKey, _ := lookupEnv("GROK_API_KEY")

	config, err := app.NewConfig(app.Config{
		ConfigPaths: paths,
		LogFormat:   logFormat,
		LogLevel:    logLevel,
		Port:        port,
		Branches:    *branchesFlag,
		Watch:       *watchFlag,
		APIKey:      apiKey,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
