package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EdgeRel/EdgeRel/internal/config"
	"github.com/EdgeRel/EdgeRel/internal/schema"
)

func newSchemaCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect the object schema",
	}
	cmd.AddCommand(newSchemaShowCmd(cfg))
	return cmd
}

func newSchemaShowCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "List object types and their pointers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			catalog, err := schema.LoadFile(cfg.SchemaPath)
			if err != nil {
				return fmt.Errorf("load schema: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, t := range catalog.Types() {
				fmt.Fprintf(out, "%s (%s)\n", t.Name(), t.ID())
				for _, ptr := range t.Pointers() {
					card := "single"
					if ptr.Cardinality() == schema.Many {
						card = "multi"
					}
					if link, ok := ptr.(*schema.Link); ok {
						fmt.Fprintf(out, "  link %s -> %s [%s]\n",
							link.Name(), link.Target().Name(), card)
						for _, prop := range link.Properties() {
							fmt.Fprintf(out, "    property %s: %s\n",
								prop.Name(), prop.ScalarType())
						}
						continue
					}
					prop := ptr.(*schema.Property)
					fmt.Fprintf(out, "  property %s: %s [%s]\n",
						prop.Name(), prop.ScalarType(), card)
				}
			}
			return nil
		},
	}
}
