package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/EdgeRel/EdgeRel/internal/compiler"
	"github.com/EdgeRel/EdgeRel/internal/config"
	"github.com/EdgeRel/EdgeRel/internal/pgast"
	"github.com/EdgeRel/EdgeRel/internal/pgparse"
	"github.com/EdgeRel/EdgeRel/internal/resolver"
	"github.com/EdgeRel/EdgeRel/internal/schema"
)

func newResolveCmd(cfg *config.Config) *cobra.Command {
	var expr string

	cmd := &cobra.Command{
		Use:   "resolve [file...]",
		Short: "Resolve SQL files (or -e expression, or stdin) against the schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			catalog, err := schema.LoadFile(cfg.SchemaPath)
			if err != nil {
				return fmt.Errorf("load schema: %w", err)
			}
			res := resolver.New(
				catalog,
				compiler.NewNaive(catalog, nil),
				resolver.Options{AllowUserSpecifiedID: cfg.AllowUserSpecifiedID},
			)

			if expr != "" {
				out, err := resolveSQL(res, expr)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}

			if len(args) == 0 {
				input, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				out, err := resolveSQL(res, string(input))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			}

			// files resolve independently, so do them concurrently and print
			// results in argument order
			var mu sync.Mutex
			results := map[string]string{}
			g := new(errgroup.Group)
			g.SetLimit(4)
			for _, path := range args {
				path := path
				g.Go(func() error {
					data, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					out, err := resolveSQL(res, string(data))
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					mu.Lock()
					results[path] = out
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			for _, path := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "-- %s\n%s\n", path, results[path])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&expr, "execute", "e", "", "Resolve the given SQL text instead of files")
	return cmd
}

// resolveSQL parses, resolves and formats every statement of the input.
func resolveSQL(res *resolver.Resolver, sql string) (string, error) {
	stmts, err := pgparse.Parse(sql)
	if err != nil {
		return "", err
	}
	var out string
	for i, stmt := range stmts {
		resolved, err := res.Resolve(stmt)
		if err != nil {
			return "", err
		}
		if i > 0 {
			out += "\n"
		}
		out += pgast.Format(resolved) + ";"
	}
	return out, nil
}
