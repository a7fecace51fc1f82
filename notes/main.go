package notes

import (
	"context"
	"fmt"
	"os"

	"github.com/ridge/quarry/query"
	"github.com/ridge/quarry/run"
	"github.com/spf13/pflag"
	"golang.org/x/text/language"
)

const usage = `Usage: %s [flags] command [args]

Commands:
  add TITLE     add a note to --folder, unless it has one with the same title
  list          list notes
  count         count open and total notes
  done ID...    mark notes done
  rm ID...      remove notes
  watch [N]     print notes and then their changes, stop after N changes

Flags:
`

// Main handles the command line and runs the command
func Main(args []string) {
	var config Config
	var batchSize int
	var caseSensitive, diacriticSensitive bool
	var locale string
	pflag.StringVar(&config.DB, "db", "", "path of the notes database (in memory if empty)")
	pflag.StringVar(&config.Folder, "folder", "", "folder of the notes")
	pflag.IntVar(&config.Rank, "rank", 0, "rank of added notes")
	pflag.IntVar(&batchSize, "batch-size", query.DefaultBatchSize, "number of notes fetched at once")
	pflag.BoolVar(&caseSensitive, "case-sensitive", false, "compare and sort titles case-sensitively")
	pflag.BoolVar(&diacriticSensitive, "diacritic-sensitive", false, "compare and sort titles diacritic-sensitively")
	pflag.StringVar(&locale, "locale", "", "BCP 47 locale for sorting titles")
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, usage, args[0])
		pflag.PrintDefaults()
	}

	run.Tool(func(ctx context.Context) error {
		if err := pflag.CommandLine.Parse(args[1:]); err != nil {
			return usagef("%s", err)
		}

		opts := query.CaseInsensitive | query.DiacriticInsensitive
		if caseSensitive {
			opts &^= query.CaseInsensitive
		}
		if diacriticSensitive {
			opts &^= query.DiacriticInsensitive
		}
		query.DefaultComparisonOptions = opts
		query.DefaultBatchSize = batchSize
		if locale != "" {
			tag, err := language.Parse(locale)
			if err != nil {
				return usagef("invalid locale %q: %s", locale, err)
			}
			query.DefaultLocale = tag
		}

		return Run(ctx, config, pflag.Args(), os.Stdout)
	})
}
