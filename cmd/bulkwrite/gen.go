package main

import (
	"github.com/spf13/cobra"

	"github.com/syssam/bulkwrite/internal/cli"
	"github.com/syssam/bulkwrite/internal/gen"
)

var (
	genDir    string
	genOutput string
	genTag    string
)

var genCmd = &cobra.Command{
	Use:   "gen [packages]",
	Short: "Generate schema definitions from tagged structs",
	Long: `Generate schema definitions for the structs tagged as entities in the
given packages and register them on init. One file is written per package.`,
	Example: `  # Generate for every package of the module
  bulkwrite gen ./...

  # Read db tags and write schema_gen.go
  bulkwrite gen --tag db --output schema_gen.go ./models`,
	RunE: func(cmd *cobra.Command, args []string) error {
		written, err := gen.Run(cmd.Context(), gen.Config{
			Dir:      genDir,
			Patterns: args,
			Output:   resolveString(genOutput, cfg.Gen.Output),
			Tag:      resolveString(genTag, cfg.Gen.Tag),
		})
		if err != nil {
			return cli.GenerateError("generating definitions", err)
		}
		for _, path := range written {
			printf("Generated %s\n", path)
		}
		if len(written) == 0 {
			printf("No entities found.\n")
		}
		return nil
	},
}

func init() {
	f := genCmd.Flags()
	f.StringVar(&genDir, "dir", "", "directory to resolve packages in (default: cwd)")
	f.StringVar(&genOutput, "output", "", "generated file name (default: gen.output)")
	f.StringVar(&genTag, "tag", "", "struct tag key (default: gen.tag)")
}
