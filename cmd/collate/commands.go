package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
	"sigs.k8s.io/yaml"

	"github.com/Neumenon/collate/codec"
	"github.com/Neumenon/collate/collate"
)

func tableFormatVersion() uint8 { return codec.Version }

// loadConfig reads --config and applies the option flags on top.
func loadConfig() (collate.Config, error) {
	var cfg collate.Config
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %v", err)
		}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %v", configFile, err)
		}
	}
	if cliConfig.strength != "" {
		cfg.Strength = cliConfig.strength
	}
	if cliConfig.alternate != "" {
		cfg.Alternate = cliConfig.alternate
	}
	if cliConfig.backwards {
		cfg.Backwards = true
	}
	if cliConfig.caseLevel != "" {
		cfg.CaseLevel = cliConfig.caseLevel
	}
	if cliConfig.caseFirst != "" {
		cfg.CaseFirst = cliConfig.caseFirst
	}
	if rulesFile != "" {
		cfg.RulesFile = rulesFile
		cfg.Rules = ""
	}
	return cfg, nil
}

func parseLocale(s string) (language.Tag, error) {
	if s == "" {
		return language.Und, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, fmt.Errorf("invalid locale %q: %v", s, err)
	}
	return tag, nil
}

// compileRules compiles src against base, printing diagnostics to stderr.
func compileRules(logger log.FieldLogger, src, filename string, base *collate.Table, locale language.Tag) (*collate.Table, error) {
	printDiag := func(d collate.Diagnostic) {
		fmt.Fprintln(os.Stderr, d.String())
	}
	return collate.Compile(src, base,
		collate.WithLogger(logger),
		collate.WithFilename(filename),
		collate.WithLocale(locale),
		collate.WithErrorHandler(printDiag),
		collate.WithWarningHandler(printDiag),
	)
}

// loadTable returns the table selected by --table or the configured rules;
// nil selects the root table.
func loadTable(logger log.FieldLogger, cfg collate.Config) (*collate.Table, error) {
	if tableFile != "" {
		t, err := codec.ReadFile(tableFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read table %s: %w", tableFile, err)
		}
		return t, nil
	}
	src, name := cfg.Rules, "<config>"
	if cfg.RulesFile != "" {
		data, err := os.ReadFile(cfg.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read rules: %v", err)
		}
		src, name = string(data), cfg.RulesFile
	}
	if src == "" {
		return nil, nil
	}
	locale, err := parseLocale(cfg.Locale)
	if err != nil {
		return nil, err
	}
	return compileRules(logger, src, name, nil, locale)
}

func newCollator(logger log.FieldLogger) (*collate.Collator, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	t, err := loadTable(logger, cfg)
	if err != nil {
		return nil, err
	}
	c := collate.New(t, collate.WithOptions(opts))
	logger.WithFields(log.Fields{
		"table":   c.Table().Provenance(),
		"options": c.Options().String(),
	}).Debug("collator ready")
	return c, nil
}

func readInput(args []string) ([]byte, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		return data, "<stdin>", err
	}
	data, err := os.ReadFile(args[0])
	return data, args[0], err
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

func runCompile(cmd *cobra.Command, args []string) error {
	logger, err := setupLogger(logLevel)
	if err != nil {
		return err
	}
	src, name, err := readInput(args)
	if err != nil {
		return fmt.Errorf("failed to read rules: %v", err)
	}
	locale, err := parseLocale(compileLocale)
	if err != nil {
		return err
	}
	var base *collate.Table
	if compileBase != "" {
		if base, err = codec.ReadFile(compileBase); err != nil {
			return fmt.Errorf("failed to read base table: %w", err)
		}
	}
	t, err := compileRules(logger, string(src), name, base, locale)
	if err != nil {
		return fmt.Errorf("compilation of %s failed: %w", name, err)
	}

	var opts []codec.Option
	if compileCompress {
		opts = append(opts, codec.WithCompression())
	}
	if err := codec.WriteFile(compileOut, t, opts...); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	fp, err := codec.Fingerprint(t)
	if err != nil {
		return err
	}
	logger.WithFields(log.Fields{
		"output":      compileOut,
		"entries":     t.Len(),
		"fingerprint": fp,
	}).Info("Finished compiling table")
	return nil
}

var errStop = errors.New("stop")

func runInspect(cmd *cobra.Command, args []string) error {
	if _, err := setupLogger(logLevel); err != nil {
		return err
	}
	t, err := codec.ReadFile(args[0])
	if err != nil {
		return err
	}
	fp, err := codec.Fingerprint(t)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "provenance:     %s\n", t.Provenance())
	fmt.Fprintf(out, "fingerprint:    %s\n", fp)
	fmt.Fprintf(out, "entries:        %d\n", t.Len())
	fmt.Fprintf(out, "implicit:       %s\n", t.ImplicitPolicy().Name())
	fmt.Fprintf(out, "variable top:   %#08x\n", t.VariableTop())
	fmt.Fprintf(out, "case bits:      %t\n", t.RetainCaseBits())
	fmt.Fprintf(out, "normalization:  %t\n", t.Normalization())
	fmt.Fprintf(out, "settings:       %s\n", t.Settings())

	leads := t.LeadOrder()
	if leads.IsIdentity() {
		fmt.Fprintln(out, "lead order:     identity")
	} else {
		fmt.Fprintln(out, "lead order:")
		for b := 0; b < 256; b++ {
			lb := byte(b)
			if leads.Logical(lb) != lb || leads.Parent(lb) != lb {
				fmt.Fprintf(out, "  %#02x -> %#02x  %s\n", lb, leads.Logical(lb), t.GroupName(lb))
			}
		}
	}

	if inspectElems != "" {
		cps := []rune(norm.NFD.String(inspectElems))
		fmt.Fprintf(out, "elements of %q: %s\n", inspectElems, collate.FormatElems(t.Elements(cps)))
	}
	if inspectEntries > 0 {
		n := 0
		err := t.Walk(func(key []rune, elems []collate.Elem) error {
			if n == inspectEntries {
				return errStop
			}
			n++
			fmt.Fprintf(out, "%U\t%s\n", key, collate.FormatElems(elems))
			return nil
		})
		if err != nil && !errors.Is(err, errStop) {
			return err
		}
	}
	return nil
}

func runKey(cmd *cobra.Command, args []string) error {
	logger, err := setupLogger(logLevel)
	if err != nil {
		return err
	}
	c, err := newCollator(logger)
	if err != nil {
		return err
	}
	strs := args
	if len(strs) == 0 {
		if strs, err = readLines(os.Stdin); err != nil {
			return err
		}
	}
	out := cmd.OutOrStdout()
	for _, s := range strs {
		fmt.Fprintf(out, "%x\t%s\n", c.KeyString(s), s)
	}
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	logger, err := setupLogger(logLevel)
	if err != nil {
		return err
	}
	c, err := newCollator(logger)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), c.CompareString(args[0], args[1]))
	return nil
}

func runSort(cmd *cobra.Command, args []string) error {
	logger, err := setupLogger(logLevel)
	if err != nil {
		return err
	}
	c, err := newCollator(logger)
	if err != nil {
		return err
	}
	data, _, err := readInput(args)
	if err != nil {
		return err
	}
	lines, err := readLines(bytes.NewReader(data))
	if err != nil {
		return err
	}

	keys, err := parallelKeys(cmd, c, lines, sortJobs)
	if err != nil {
		return err
	}
	idx := make([]int, len(lines))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		cmp := bytes.Compare(keys[idx[i]], keys[idx[j]])
		if sortReverse {
			return cmp > 0
		}
		return cmp < 0
	})

	w := bufio.NewWriter(cmd.OutOrStdout())
	for _, i := range idx {
		fmt.Fprintln(w, lines[i])
	}
	return w.Flush()
}

func runSearch(cmd *cobra.Command, args []string) error {
	logger, err := setupLogger(logLevel)
	if err != nil {
		return err
	}
	c, err := newCollator(logger)
	if err != nil {
		return err
	}
	data, _, err := readInput(args[1:])
	if err != nil {
		return err
	}
	lines, err := readLines(bytes.NewReader(data))
	if err != nil {
		return err
	}

	w := bufio.NewWriter(cmd.OutOrStdout())
	var matched int
	for _, line := range lines {
		start, end := c.IndexString(line, args[0])
		if start < 0 {
			continue
		}
		matched++
		if searchOnly {
			fmt.Fprintln(w, line[start:end])
		} else {
			fmt.Fprintln(w, line)
		}
	}
	logger.WithField("matched", matched).Debug("search done")
	return w.Flush()
}

// parallelKeys computes the sort key of every line with a bounded number
// of workers.
func parallelKeys(cmd *cobra.Command, c *collate.Collator, lines []string, jobs int) ([][]byte, error) {
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	keys := make([][]byte, len(lines))
	const chunk = 1024

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(jobs)
	for lo := 0; lo < len(lines); lo += chunk {
		lo, hi := lo, min(lo+chunk, len(lines))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				keys[i] = c.KeyString(lines[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return keys, nil
}
