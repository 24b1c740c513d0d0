// Package main provides scorecalc, a command line front end to the scoring
// engine for scripting: catalog listing, one-shot computation and history
// maintenance against the local SQLite store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clinical-scoring-engine/internal/config"
	"github.com/clinical-scoring-engine/internal/database"
	"github.com/clinical-scoring-engine/internal/domain"
	"github.com/clinical-scoring-engine/internal/history"
	"github.com/clinical-scoring-engine/internal/registry"
	"github.com/clinical-scoring-engine/internal/service"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// cli carries the streams and settings shared by every subcommand.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	lite   *config.LiteConfig
	logger *logrus.Logger
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	lite := config.LoadLiteConfig()
	logging := lite.Logging()
	if os.Getenv("SCORING_LOG_LEVEL") == "" {
		logging.Level = "warn"
	}
	logger := config.NewLogger(logging)
	logger.SetOutput(stderr)

	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr, lite: lite, logger: logger}
	ctx := context.Background()

	var err error
	switch args[0] {
	case "categories":
		err = c.categories(args[1:])
	case "list":
		err = c.list(args[1:])
	case "describe":
		err = c.describe(args[1:])
	case "compute":
		err = c.compute(ctx, args[1:])
	case "history":
		err = c.history(ctx, args[1:])
	case "trend":
		err = c.trend(ctx, args[1:])
	case "export":
		err = c.export(ctx, args[1:])
	case "import":
		err = c.importRecords(ctx, args[1:])
	case "migrate":
		err = c.migrate(ctx, args[1:])
	case "help", "-h", "-help", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Error: unknown command %q\n\n", args[0])
		printUsage(stderr)
		return 2
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "scorecalc - clinical scoring engine")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  scorecalc categories [-json]")
	fmt.Fprintln(w, "  scorecalc list [-category ID] [-json]")
	fmt.Fprintln(w, "  scorecalc describe [-json] CALCULATOR")
	fmt.Fprintln(w, "  scorecalc compute [-inputs JSON | -file PATH] [-persist] [-subject ID] [-author ID] [-json] CALCULATOR [field=value ...]")
	fmt.Fprintln(w, "  scorecalc history [-calculator ID] [-subject ID] [-limit N] [-offset N] [-json]")
	fmt.Fprintln(w, "  scorecalc trend -calculator ID [-subject ID]")
	fmt.Fprintln(w, "  scorecalc export [-calculator ID] [-subject ID] [-o PATH]")
	fmt.Fprintln(w, "  scorecalc import -file PATH")
	fmt.Fprintln(w, "  scorecalc migrate [-config PATH] up | down [-steps N] | status | force VERSION")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "History commands use the SQLite store under SCORING_DATA_DIR unless -db is given.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  scorecalc compute bmi weight=70 height=175")
	fmt.Fprintln(w, `  scorecalc compute -persist -subject bed-4 -inputs '{"sbp_low":true}' qsofa`)
	fmt.Fprintln(w, "  scorecalc export -o history.json")
}

func (c *cli) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func (c *cli) newService(store history.Store) (*service.ScoringService, error) {
	reg, err := registry.NewDefault()
	if err != nil {
		return nil, fmt.Errorf("building calculator registry: %w", err)
	}
	opts := service.Options{}
	if store != nil {
		opts.Store = store
	}
	return service.NewScoringService(reg, c.logger, opts), nil
}

func (c *cli) openStore(path string) (*history.SQLiteStore, error) {
	if path == "" {
		if err := c.lite.EnsureDataDir(); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		path = c.lite.HistoryDBPath()
	}
	store, err := history.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening history %s: %w", path, err)
	}
	return store, nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func (c *cli) categories(args []string) error {
	fs := c.flagSet("categories")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, err := c.newService(nil)
	if err != nil {
		return err
	}
	cats := svc.ListCategories()
	if *asJSON {
		return c.printJSON(cats)
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCALCULATORS")
	for _, cat := range cats {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", cat.ID, cat.DisplayName, cat.CalculatorCount)
	}
	return tw.Flush()
}

func (c *cli) list(args []string) error {
	fs := c.flagSet("list")
	category := fs.String("category", "", "only calculators of this category")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, err := c.newService(nil)
	if err != nil {
		return err
	}
	calcs, err := svc.ListCalculators(*category)
	if err != nil {
		return err
	}
	if *asJSON {
		return c.printJSON(calcs)
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSPECIALTY")
	for _, info := range calcs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", info.ID, info.Name, info.Specialty)
	}
	return tw.Flush()
}

func (c *cli) describe(args []string) error {
	fs := c.flagSet("describe")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("describe takes exactly one calculator id")
	}

	svc, err := c.newService(nil)
	if err != nil {
		return err
	}
	info, err := svc.GetCalculator(fs.Arg(0))
	if err != nil {
		return err
	}
	if *asJSON {
		return c.printJSON(info)
	}

	fmt.Fprintf(c.stdout, "%s (%s)\n%s\n", info.Name, info.ID, info.Description)
	if info.Disclaimer != "" {
		fmt.Fprintf(c.stdout, "Note: %s\n", info.Disclaimer)
	}
	fmt.Fprintln(c.stdout)
	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tKIND\tLABEL\tOPTIONS")
	for _, f := range info.Fields {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.Kind, f.Label, optionList(f))
	}
	return tw.Flush()
}

func optionList(f domain.FieldSchema) string {
	if len(f.Options) == 0 {
		return ""
	}
	values := make([]string, 0, len(f.Options))
	for _, o := range f.Options {
		v := o.Value
		if v == f.Default {
			v += "*"
		}
		values = append(values, v)
	}
	return strings.Join(values, " | ")
}

func (c *cli) compute(ctx context.Context, args []string) error {
	fs := c.flagSet("compute")
	inputsJSON := fs.String("inputs", "", "inputs as a JSON object")
	file := fs.String("file", "", "read the inputs JSON object from a file (- for stdin)")
	persist := fs.Bool("persist", false, "save the calculation to history")
	subject := fs.String("subject", "", "subject identifier recorded with the calculation")
	author := fs.String("author", "", "author identifier recorded with the calculation")
	dbPath := fs.String("db", "", "SQLite history file")
	asJSON := fs.Bool("json", false, "print the full response as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("compute needs a calculator id")
	}

	raw, err := c.readInputs(*inputsJSON, *file)
	if err != nil {
		return err
	}
	for _, pair := range fs.Args()[1:] {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return fmt.Errorf("malformed input %q, expected field=value", pair)
		}
		raw[key] = parseValue(value)
	}

	var store history.Store
	if *persist {
		sqlite, err := c.openStore(*dbPath)
		if err != nil {
			return err
		}
		defer sqlite.Close()
		store = sqlite
	}

	svc, err := c.newService(store)
	if err != nil {
		return err
	}
	resp, err := svc.Compute(ctx, service.ComputeRequest{
		CalculatorID: fs.Arg(0),
		Inputs:       domain.NewInputs(raw),
		SubjectID:    *subject,
		AuthorID:     *author,
		Persist:      *persist,
	})
	if err != nil {
		return err
	}
	if *asJSON {
		return c.printJSON(resp)
	}

	r := resp.Result
	line := fmt.Sprintf("%s %s", r.Value.String(), r.Unit)
	fmt.Fprintln(c.stdout, strings.TrimSpace(line))
	fmt.Fprintf(c.stdout, "%s (%s)\n", r.Interpretation, r.Severity)
	if r.NormalRange != "" {
		fmt.Fprintf(c.stdout, "normal: %s\n", r.NormalRange)
	}
	if resp.RecordID != "" {
		fmt.Fprintf(c.stdout, "record: %s\n", resp.RecordID)
	}
	if resp.Warning != "" {
		fmt.Fprintf(c.stderr, "warning: %s\n", resp.Warning)
	}
	return nil
}

func (c *cli) readInputs(inline, file string) (map[string]any, error) {
	raw := map[string]any{}
	var data []byte
	switch {
	case inline != "" && file != "":
		return nil, errors.New("use either -inputs or -file, not both")
	case inline != "":
		data = []byte(inline)
	case file == "-":
		b, err := io.ReadAll(c.stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		data = b
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("reading inputs: %w", err)
		}
		data = b
	default:
		return raw, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("inputs must be a JSON object: %w", err)
	}
	return raw, nil
}

// parseValue reads a command line value as a number, true or false, or text.
// A decimal comma is accepted.
func parseValue(s string) any {
	if n, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
		return n
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

func (c *cli) historyFlags(name string) (*flag.FlagSet, *string, *domain.HistoryFilter) {
	fs := c.flagSet(name)
	dbPath := fs.String("db", "", "SQLite history file")
	filter := &domain.HistoryFilter{}
	fs.StringVar(&filter.CalculatorID, "calculator", "", "calculator id")
	fs.StringVar(&filter.SubjectID, "subject", "", "subject id")
	fs.StringVar(&filter.AuthorID, "author", "", "author id")
	return fs, dbPath, filter
}

func (c *cli) history(ctx context.Context, args []string) error {
	fs, dbPath, filter := c.historyFlags("history")
	fs.IntVar(&filter.Limit, "limit", domain.DefaultHistoryLimit, "page size")
	fs.IntVar(&filter.Offset, "offset", 0, "records to skip")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := c.openStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := c.newService(store)
	if err != nil {
		return err
	}
	page, err := svc.History(ctx, *filter)
	if err != nil {
		return err
	}
	if *asJSON {
		return c.printJSON(page)
	}

	tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tCALCULATOR\tVALUE\tSEVERITY\tSUBJECT\tID")
	for _, rec := range page.Records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.CreatedAt.Local().Format(time.DateTime), rec.CalculatorID,
			rec.Result.Value.String(), rec.Result.Severity, rec.SubjectID, rec.ID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%d of %d records\n", len(page.Records), page.Total)
	return nil
}

func (c *cli) trend(ctx context.Context, args []string) error {
	fs, dbPath, filter := c.historyFlags("trend")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if filter.CalculatorID == "" {
		return errors.New("trend needs -calculator")
	}

	store, err := c.openStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	svc, err := c.newService(store)
	if err != nil {
		return err
	}
	trend, err := svc.Trend(ctx, filter.CalculatorID, filter.SubjectID)
	if err != nil {
		return err
	}
	return c.printJSON(trend)
}

func (c *cli) export(ctx context.Context, args []string) error {
	fs, dbPath, filter := c.historyFlags("export")
	out := fs.String("o", "", "output file (defaults to stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := c.openStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	w := c.stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := store.ExportJSON(ctx, w, *filter); err != nil {
		return fmt.Errorf("exporting history: %w", err)
	}
	if *out != "" {
		fmt.Fprintf(c.stderr, "exported history to %s\n", *out)
	}
	return nil
}

func (c *cli) importRecords(ctx context.Context, args []string) error {
	fs := c.flagSet("import")
	dbPath := fs.String("db", "", "SQLite history file")
	file := fs.String("file", "", "export file to import (- for stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("import needs -file")
	}

	r := c.stdin
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			return fmt.Errorf("opening import file: %w", err)
		}
		defer f.Close()
		r = f
	}

	store, err := c.openStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	imported, skipped, err := history.ImportJSON(ctx, store, r)
	if err != nil {
		return fmt.Errorf("importing history: %w", err)
	}
	fmt.Fprintf(c.stdout, "imported %d records, skipped %d duplicates\n", imported, skipped)
	return nil
}

func (c *cli) migrate(ctx context.Context, args []string) error {
	fs := c.flagSet("migrate")
	configFile := fs.String("config", "", "config file with the database section")
	steps := fs.Int("steps", 1, "migrations to roll back with down")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("migrate needs one of up, down, status, force")
	}

	var (
		manager *config.Manager
		err     error
	)
	if *configFile != "" {
		manager, err = config.NewManagerWithFile(*configFile)
	} else {
		manager, err = config.NewManager()
	}
	if err != nil {
		return err
	}
	dbCfg := manager.GetDatabaseConfig()

	runner, err := database.NewMigrationRunner(database.ConfigFrom(*dbCfg).URL(), dbCfg.MigrationsPath, c.logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	switch fs.Arg(0) {
	case "up":
		err = runner.Up(ctx)
	case "down":
		err = runner.Down(ctx, *steps)
	case "force":
		if fs.NArg() != 2 {
			return errors.New("force needs a version")
		}
		version, convErr := strconv.Atoi(fs.Arg(1))
		if convErr != nil {
			return fmt.Errorf("invalid version %q", fs.Arg(1))
		}
		err = runner.Force(version)
	case "status":
	default:
		return fmt.Errorf("unknown migrate action %q", fs.Arg(0))
	}
	if err != nil {
		return err
	}

	status, err := runner.Status()
	if err != nil {
		return err
	}
	return c.printJSON(status)
}
