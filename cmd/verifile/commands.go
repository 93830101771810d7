package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/verifile/verifile/config"
	"github.com/verifile/verifile/digest"
	"github.com/verifile/verifile/ledger"
	"github.com/verifile/verifile/report"
	"github.com/verifile/verifile/walker"
)

// sliceFlag implements flag.Value for multi-value
// string flags (repeated -flag=val usage).
type sliceFlag []string

// String returns the flag value as a comma-separated
// string representation.
func (s *sliceFlag) String() string {
	if s == nil {
		return ""
	}

	return strings.Join(*s, ",")
}

// Set appends a value to the slice.
func (s *sliceFlag) Set(val string) error {
	*s = append(*s, val)

	return nil
}

// commonFlags holds the flags every command accepts.
type commonFlags struct {
	configPath string
	database   string
	algorithm  string
}

func newFlagSet(name string) (*flag.FlagSet, *commonFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	cf := &commonFlags{}
	fs.StringVar(&cf.configPath, "config", "",
		"Config file (default verifile.yaml when present)")
	fs.StringVar(&cf.configPath, "c", "", "Shorthand for -config")
	fs.StringVar(&cf.database, "database", "",
		"Ledger file location")
	fs.StringVar(&cf.database, "d", "", "Shorthand for -database")

	return fs, cf
}

// registerAlgorithm exposes the algorithm flag on the commands that
// compute new baselines.
func (cf *commonFlags) registerAlgorithm(fs *flag.FlagSet) {
	fs.StringVar(&cf.algorithm, "algorithm", "",
		"Digest algorithm: "+strings.Join(digest.Names(), ", "))
	fs.StringVar(&cf.algorithm, "a", "", "Shorthand for -algorithm")
}

// loadConfig resolves the effective configuration: the explicit -config
// file when given, else verifile.yaml in the working directory, else the
// built-in defaults. It also installs the logger, so every command path
// logs at the configured level from here on.
func (cf *commonFlags) loadConfig() (config.Config, error) {
	cfg, err := cf.readConfig()
	if err != nil {
		return config.Config{}, err
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})
	slog.SetDefault(slog.New(handler))

	return cfg, nil
}

func (cf *commonFlags) readConfig() (config.Config, error) {
	if cf.configPath != "" {
		return config.Load(cf.configPath)
	}

	if _, err := os.Stat(config.DefaultFile); err == nil {
		return config.Load(config.DefaultFile)
	}

	return config.Default(), nil
}

// openLedger applies flag-over-config precedence and opens the ledger.
func (cf *commonFlags) openLedger() (*ledger.Ledger, config.Config, error) {
	cfg, err := cf.loadConfig()
	if err != nil {
		return nil, config.Config{}, err
	}

	dbPath := cfg.Database
	if cf.database != "" {
		dbPath = cf.database
	}

	led, err := ledger.Open(dbPath)
	if err != nil {
		return nil, config.Config{}, err
	}

	slog.Debug(
		"ledger opened",
		"database", led.Path(),
		"entries", led.Len(),
	)

	return led, cfg, nil
}

// pickAlgorithm applies flag-over-config precedence for the digest
// algorithm.
func (cf *commonFlags) pickAlgorithm(
	cfg config.Config,
) (digest.Algorithm, error) {
	name := cfg.Algorithm
	if cf.algorithm != "" {
		name = cf.algorithm
	}

	return digest.Parse(name)
}

func cmdAdd(args []string) error {
	fs, cf := newFlagSet("add")
	cf.registerAlgorithm(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("add: exactly one file path required")
	}

	led, cfg, err := cf.openLedger()
	if err != nil {
		return err
	}

	al, err := cf.pickAlgorithm(cfg)
	if err != nil {
		return err
	}

	en, err := led.Add(fs.Arg(0), al)
	if err != nil {
		return err
	}

	fmt.Printf("tracking %s\n", en.Path)
	fmt.Printf(
		"  %s digest: %s\n",
		strings.ToUpper(string(en.Algorithm)),
		en.Digest,
	)

	return nil
}

func cmdAddDir(args []string) error {
	fs, cf := newFlagSet("add-dir")
	cf.registerAlgorithm(fs)

	var recursive bool
	fs.BoolVar(&recursive, "recursive", false,
		"Recurse into subdirectories")
	fs.BoolVar(&recursive, "r", false, "Shorthand for -recursive")

	var extensions sliceFlag
	fs.Var(&extensions, "extensions",
		"Extension to include (repeatable)")
	fs.Var(&extensions, "e", "Shorthand for -extensions")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("add-dir: exactly one directory path required")
	}

	led, cfg, err := cf.openLedger()
	if err != nil {
		return err
	}

	al, err := cf.pickAlgorithm(cfg)
	if err != nil {
		return err
	}

	exts := cfg.Extensions
	if len(extensions) > 0 {
		exts = extensions
	}

	candidates, err := walker.Collect(fs.Arg(0), recursive, exts)
	if err != nil {
		return err
	}

	res := led.AddBatch(candidates, al)

	for _, fail := range res.Failures {
		slog.Warn(
			"file not added",
			"path", fail.Path,
			"error", fail.Err,
		)
	}

	fmt.Printf(
		"added %d of %d candidates (%d skipped, %d failed)\n",
		res.Added,
		len(candidates),
		res.Skipped,
		res.Failed,
	)

	return nil
}

func cmdCheck(args []string) error {
	fs, cf := newFlagSet("check")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("check: exactly one file path required")
	}

	led, _, err := cf.openLedger()
	if err != nil {
		return err
	}

	res, err := led.Check(fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Println(report.RenderResult(res))

	return nil
}

func cmdCheckAll(args []string) error {
	fs, cf := newFlagSet("check-all")

	if err := fs.Parse(args); err != nil {
		return err
	}

	led, _, err := cf.openLedger()
	if err != nil {
		return err
	}

	results, sum, err := led.CheckAll()
	if err != nil {
		return err
	}

	for _, res := range results {
		fmt.Println(report.RenderResult(res))
	}

	fmt.Printf(
		"checked %d files: %d intact, %d modified, %d missing, %d errors\n",
		sum.Total(),
		sum.Intact,
		sum.Modified,
		sum.Missing,
		sum.Errors,
	)

	return nil
}

func cmdList(args []string) error {
	fs, cf := newFlagSet("list")

	if err := fs.Parse(args); err != nil {
		return err
	}

	led, _, err := cf.openLedger()
	if err != nil {
		return err
	}

	fmt.Print(report.RenderList(led.Entries()))

	return nil
}

func cmdReport(args []string) error {
	fs, cf := newFlagSet("report")

	var output string
	fs.StringVar(&output, "output", "", "Report output path")
	fs.StringVar(&output, "o", "", "Shorthand for -output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	led, cfg, err := cf.openLedger()
	if err != nil {
		return err
	}

	results, sum, err := led.CheckAll()
	if err != nil {
		return err
	}

	rp := report.New(results, sum)

	outPath := cfg.Report
	if output != "" {
		outPath = output
	}

	if err := rp.Write(outPath); err != nil {
		return err
	}

	slog.Info(
		"report written",
		"path", outPath,
		"run_id", rp.ID,
		"checked", sum.Total(),
	)

	fmt.Printf("report written to %s\n", outPath)

	return nil
}

func cmdRemove(args []string) error {
	fs, cf := newFlagSet("remove")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("remove: exactly one file path required")
	}

	led, _, err := cf.openLedger()
	if err != nil {
		return err
	}

	if err := led.Remove(fs.Arg(0)); err != nil {
		return err
	}

	fmt.Printf("untracked %s\n", fs.Arg(0))

	return nil
}
