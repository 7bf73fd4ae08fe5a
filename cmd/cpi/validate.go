package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	cli "github.com/urfave/cli/v3"

	"github.com/stratovia/cpi/pkg/log"
	"github.com/stratovia/cpi/pkg/registry"
)

// probeWorkers bounds how many shared libraries are opened at once.
const probeWorkers = 4

var ErrPluginsRefused = errors.New("plugins failed the audit")

type probeResult struct {
	path string
	name string
	err  error
}

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Audit every plugin in the plugins directory without registering anything",
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))
			logger := log.WithModule("cli")

			dir := command.String("plugins-path")

			paths, err := registry.PluginPaths(dir)
			if err != nil {
				return fmt.Errorf("failed to scan plugins directory: %w", err)
			}

			if len(paths) == 0 {
				_, _ = fmt.Fprintf(os.Stdout, "No plugins found under %s\n", dir)

				return nil
			}

			// Probe never touches the provider table, so one bare registry
			// serves all workers.
			reg := registry.NewRegistry(logger)

			results := make([]probeResult, len(paths))
			sem := make(chan struct{}, probeWorkers)

			var wg sync.WaitGroup

			for i, path := range paths {
				wg.Add(1)

				go func() {
					defer wg.Done()

					sem <- struct{}{}
					defer func() { <-sem }()

					result := probeResult{path: path}

					ext, probeErr := reg.Probe(path)
					if probeErr != nil {
						result.err = probeErr
					} else {
						result.name = ext.Name()
					}

					results[i] = result
				}()
			}

			wg.Wait()

			_, _ = fmt.Fprintln(os.Stdout, "Plugin Audit Results:")
			_, _ = fmt.Fprintln(os.Stdout, "=====================")

			loadable := 0
			refused := 0

			for _, result := range results {
				if result.err != nil {
					_, _ = fmt.Fprintf(os.Stdout, "  ❌ FAIL %s: %v\n", result.path, result.err)
					refused++

					continue
				}

				_, _ = fmt.Fprintf(os.Stdout, "  ✅ OK   %s (provider %q)\n", result.path, result.name)
				loadable++
			}

			_, _ = fmt.Fprintf(os.Stdout, "\nAudit Summary:\n")
			_, _ = fmt.Fprintf(os.Stdout, "  Plugins scanned: %d\n", len(results))
			_, _ = fmt.Fprintf(os.Stdout, "  Loadable: %d\n", loadable)
			_, _ = fmt.Fprintf(os.Stdout, "  Refused: %d\n", refused)

			if refused > 0 {
				return fmt.Errorf("%w: %d", ErrPluginsRefused, refused)
			}

			_, _ = fmt.Fprintln(os.Stdout, "All plugins are loadable! ✅")

			return nil
		},
	}
}
