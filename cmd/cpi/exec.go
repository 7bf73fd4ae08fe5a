package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/stratovia/cpi/pkg/models"
	"github.com/stratovia/cpi/pkg/response"
	"github.com/stratovia/cpi/pkg/runner"
	"github.com/stratovia/cpi/pkg/services"
)

var ErrArgsNotObject = errors.New("arguments must be a JSON object")

func argsFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "args",
		Aliases: []string{"a"},
		Usage:   "Action arguments as a JSON object",
		Value:   "{}",
	}
}

func parseArgs(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArgsNotObject, err)
	}

	return args, nil
}

func NewExecCommand() *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Usage:     "Execute one action and print its output",
		ArgsUsage: "<provider> <action>",
		Flags: []cli.Flag{
			argsFlag(),
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Give up on the call after this long (0 waits forever)",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			provider := command.Args().First()
			if provider == "" {
				return ErrProviderArgRequired
			}

			action := command.Args().Get(1)
			if action == "" {
				return ErrActionArgRequired
			}

			args, err := parseArgs(command.String("args"))
			if err != nil {
				return err
			}

			logger, reg, err := bootstrap(command)
			if err != nil {
				return err
			}

			// No bus, no store: a CLI invocation leaves no trail beyond
			// its output.
			run := runner.NewRunner(logger, reg)

			result := run.Execute(ctx, runner.Request{
				Provider: provider,
				Action:   action,
				Args:     args,
				Timeout:  command.Duration("timeout"),
			})

			if result.Status != models.InvocationSucceeded {
				if err := printJSON(response.Error(result.Err)); err != nil {
					return err
				}

				return cli.Exit("", 1)
			}

			return printJSON(result.Output)
		},
	}
}

func NewLintCommand() *cli.Command {
	return &cli.Command{
		Name:      "lint",
		Usage:     "Check argument values against an action's schema",
		ArgsUsage: "<provider> <action>",
		Flags:     []cli.Flag{argsFlag()},
		Action: func(ctx context.Context, command *cli.Command) error {
			provider := command.Args().First()
			if provider == "" {
				return ErrProviderArgRequired
			}

			action := command.Args().Get(1)
			if action == "" {
				return ErrActionArgRequired
			}

			args, err := parseArgs(command.String("args"))
			if err != nil {
				return err
			}

			_, svc, err := catalogService(command)
			if err != nil {
				return err
			}

			err = svc.LintArgs(ctx, provider, action, args)
			if err == nil {
				_, _ = fmt.Fprintf(os.Stdout, "%s/%s: arguments are valid\n", provider, action)

				return nil
			}

			if services.IsNotFoundError(err) {
				return err
			}

			return cli.Exit(err.Error(), 1)
		},
	}
}

func NewTestCommand() *cli.Command {
	return &cli.Command{
		Name:      "test",
		Usage:     "Run one provider's install test",
		ArgsUsage: "<provider>",
		Action: func(ctx context.Context, command *cli.Command) error {
			provider := command.Args().First()
			if provider == "" {
				return ErrProviderArgRequired
			}

			_, svc, err := catalogService(command)
			if err != nil {
				return err
			}

			result, err := svc.TestProvider(ctx, provider)
			if err != nil {
				if services.IsNotFoundError(err) {
					return err
				}

				// A failed install test is the command's finding, reported
				// on stdout like any other result.
				if printErr := printJSON(response.Error(err.Error())); printErr != nil {
					return printErr
				}

				return cli.Exit("", 1)
			}

			return printJSON(response.Success(result))
		},
	}
}
