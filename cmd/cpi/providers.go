package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	cli "github.com/urfave/cli/v3"
)

// Static error variables for linter compliance.
var (
	ErrProviderArgRequired = errors.New("provider name is required")
	ErrActionArgRequired   = errors.New("action name is required")
)

func NewProvidersCommand() *cli.Command {
	return &cli.Command{
		Name:    "providers",
		Aliases: []string{"ls"},
		Usage:   "List every registered provider",
		Action: func(ctx context.Context, command *cli.Command) error {
			_, svc, err := catalogService(command)
			if err != nil {
				return err
			}

			writer := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			_, _ = fmt.Fprintln(writer, "NAME\tTYPE\tVERSION\tSOURCE\tACTIONS")

			for _, detail := range svc.ListProviders(ctx) {
				_, _ = fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%d\n",
					detail.Name,
					detail.ProviderType,
					detail.Version,
					detail.Source,
					detail.ActionCount,
				)
			}

			return writer.Flush()
		},
	}
}

func NewActionsCommand() *cli.Command {
	return &cli.Command{
		Name:      "actions",
		Usage:     "List the actions of one provider",
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

			definitions, err := svc.ListActions(ctx, provider)
			if err != nil {
				return err
			}

			writer := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			_, _ = fmt.Fprintln(writer, "ACTION\tREQUIRED\tDESCRIPTION")

			for _, def := range definitions {
				required := strings.Join(def.RequiredParameters(), ",")
				if required == "" {
					required = "-"
				}

				_, _ = fmt.Fprintf(writer, "%s\t%s\t%s\n", def.Name, required, def.Description)
			}

			return writer.Flush()
		},
	}
}

func NewDescribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "describe",
		Usage:     "Show one action's definition",
		ArgsUsage: "<provider> <action>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json-schema",
				Usage: "Print the generated JSON Schema instead of the raw definition",
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

			_, svc, err := catalogService(command)
			if err != nil {
				return err
			}

			definition, jsonSchema, err := svc.ActionSchema(ctx, provider, action)
			if err != nil {
				return err
			}

			payload := any(definition)
			if command.Bool("json-schema") {
				payload = jsonSchema
			}

			return printJSON(payload)
		},
	}
}

func printJSON(payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}

	_, _ = fmt.Fprintln(os.Stdout, string(data))

	return nil
}
