// collate - Unicode collation CLI
//
// Usage:
//
//	collate compile [rules-file] -o table.uct    Compile tailoring rules into a table
//	collate inspect table.uct                    Print table metadata and entries
//	collate key [strings...]                     Print sort keys
//	collate compare a b                          Compare two strings
//	collate sort [file]                          Sort lines
//	collate search pattern [file]                Print lines containing pattern
//	collate version                              Print version info
//
// If no file is given, input is read from stdin.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const libVersion = "0.1.0"

var (
	logLevel   string
	configFile string
	tableFile  string
	rulesFile  string
	cliConfig  cliOptions

	rootCmd = &cobra.Command{
		Use:           "collate",
		Short:         "Unicode collation with tailoring rules",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	compileCmd = &cobra.Command{
		Use:     "compile [rules-file]",
		Short:   "Compile tailoring rules into a binary table",
		Example: "collate compile de.rules --locale de -o de.uct",
		Args:    cobra.MaximumNArgs(1),
		RunE:    runCompile,
	}

	inspectCmd = &cobra.Command{
		Use:   "inspect table-file",
		Short: "Print table metadata and entries",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}

	keyCmd = &cobra.Command{
		Use:   "key [strings...]",
		Short: "Print the sort key of each string (or each stdin line)",
		RunE:  runKey,
	}

	compareCmd = &cobra.Command{
		Use:   "compare a b",
		Short: "Compare two strings and print -1, 0 or 1",
		Args:  cobra.ExactArgs(2),
		RunE:  runCompare,
	}

	sortCmd = &cobra.Command{
		Use:   "sort [file]",
		Short: "Sort lines of a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSort,
	}

	searchCmd = &cobra.Command{
		Use:     "search pattern [file]",
		Short:   "Print lines of a file or stdin that contain pattern",
		Example: "collate search --strength 1 resume cv.txt",
		Args:    cobra.RangeArgs(1, 2),
		RunE:    runSearch,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "collate %s (table format v%d)\n", libVersion, tableFormatVersion())
		},
	}

	compileOut      string
	compileLocale   string
	compileCompress bool
	compileBase     string

	inspectEntries int
	inspectElems   string

	sortReverse bool
	sortJobs    int

	searchOnly bool
)

// cliOptions holds the collator flags; empty values are unset.
type cliOptions struct {
	strength  string
	alternate string
	backwards bool
	caseLevel string
	caseFirst string
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", log.WarnLevel.String(), "The logging level. This can also be specified through the COLLATE_LOG_LEVEL ENV var.")
	pf.StringVar(&configFile, "config", "", "YAML file with collator options and rules. This can also be specified through the COLLATE_CONFIG ENV var.")
	pf.StringVar(&tableFile, "table", "", "Compiled table to collate with. This can also be specified through the COLLATE_TABLE ENV var.")
	pf.StringVar(&rulesFile, "rules", "", "Tailoring rules to compile before collating.")
	pf.StringVar(&cliConfig.strength, "strength", "", "Comparison strength: 1-4, I, or primary..identical.")
	pf.StringVar(&cliConfig.alternate, "alternate", "", "Variable weighting: shifted or non-ignorable.")
	pf.BoolVar(&cliConfig.backwards, "backwards", false, "Compare secondary weights backwards.")
	pf.StringVar(&cliConfig.caseLevel, "case-level", "", "Separate case level: on or off.")
	pf.StringVar(&cliConfig.caseFirst, "case-first", "", "Case ordering: upper, lower or off.")

	compileCmd.Flags().StringVarP(&compileOut, "output", "o", "", "Output table file (required).")
	compileCmd.Flags().StringVar(&compileLocale, "locale", "", "BCP 47 tag recorded as the table's provenance.")
	compileCmd.Flags().BoolVar(&compileCompress, "compress", false, "Store the table zstd-compressed.")
	compileCmd.Flags().StringVar(&compileBase, "base", "", "Table to tailor instead of the root table.")
	_ = compileCmd.MarkFlagRequired("output")

	inspectCmd.Flags().IntVar(&inspectEntries, "entries", 0, "Print the first N entries in code point order.")
	inspectCmd.Flags().StringVar(&inspectElems, "elements", "", "Print the collation elements of this string.")

	sortCmd.Flags().BoolVarP(&sortReverse, "reverse", "r", false, "Sort in descending order.")
	sortCmd.Flags().IntVarP(&sortJobs, "jobs", "j", 0, "Parallel key workers (default: number of CPUs).")

	searchCmd.Flags().BoolVarP(&searchOnly, "only-matching", "o", false, "Print only the matched part of each line.")

	if err := initFlagsFromEnv(); err != nil {
		log.WithError(err).Fatalf("Failed to update flags from ENV vars: %v", err)
	}
}

func main() {
	rootCmd.AddCommand(compileCmd, inspectCmd, keyCmd, compareCmd, sortCmd, searchCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "collate: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger(logLevelStr string) (log.FieldLogger, error) {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "01-02-2006 15:04:05",
	})
	log.SetOutput(os.Stderr)

	logger := log.WithFields(log.Fields{
		"app": "collate",
	})
	level, err := log.ParseLevel(logLevelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", logLevelStr, err)
	}
	logger.Logger.Level = level
	logger.Debugf("Setting the log level to %s", level.String())
	return logger, nil
}

func initFlagsFromEnv() error {
	return mapEnvVarToFlag(map[string]string{
		"COLLATE_LOG_LEVEL": "log-level",
		"COLLATE_CONFIG":    "config",
		"COLLATE_TABLE":     "table",
	}, rootCmd.PersistentFlags())
}

// mapEnvVarToFlag sets each flag from its ENV var when the var is set.
func mapEnvVarToFlag(vars map[string]string, flagset *pflag.FlagSet) error {
	for env, flag := range vars {
		flagObj := flagset.Lookup(flag)
		if flagObj == nil {
			return fmt.Errorf("the %s flag doesn't exist", flag)
		}
		if val := os.Getenv(env); val != "" {
			if err := flagObj.Value.Set(val); err != nil {
				return fmt.Errorf("failed to set the %s flag: %v", flag, err)
			}
		}
	}
	return nil
}
