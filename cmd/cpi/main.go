// Package main provides the cpi command line client: catalog inspection,
// direct action execution and plugin directory auditing.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/stratovia/cpi/pkg/cmd"
	"github.com/stratovia/cpi/pkg/config"
	"github.com/stratovia/cpi/pkg/log"
	"github.com/stratovia/cpi/pkg/registry"
	"github.com/stratovia/cpi/pkg/services"
)

func main() {
	root := &cli.Command{
		Name:                  "cpi",
		Usage:                 "Inspect and invoke action providers",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing provider plugins",
				Value:   "./plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "settings-file",
				Usage:   "Path to the YAML file overriding provider settings",
				Sources: cli.EnvVars("SETTINGS_FILE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			NewProvidersCommand(),
			NewActionsCommand(),
			NewDescribeCommand(),
			NewExecCommand(),
			NewLintCommand(),
			NewTestCommand(),
			NewValidateCommand(),
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap configures logging and builds the provider catalog every
// subcommand works against: native extensions plus whatever the plugin
// directory holds.
func bootstrap(command *cli.Command) (*slog.Logger, *registry.Registry, error) {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("cli")

	reg, err := cmd.NewRegistry(logger, nil, command.String("plugins-path"))
	if err != nil {
		return nil, nil, err
	}

	return logger, reg, nil
}

// catalogService builds the lean provider service the CLI uses: no health
// checker, settings overlay only when the flag names one.
func catalogService(command *cli.Command) (*slog.Logger, *services.ProviderService, error) {
	logger, reg, err := bootstrap(command)
	if err != nil {
		return nil, nil, err
	}

	overlay, err := config.Load(command.String("settings-file"))
	if err != nil {
		return nil, nil, err
	}

	return logger, services.NewProviderService(reg, overlay, nil), nil
}
