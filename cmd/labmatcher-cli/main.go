package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/muesli/termenv"

	"yashubustudio/labmatcher/labmatcher"
)

type cliOptions struct {
	configPath  string
	dataPath    string
	lab         string
	l, a, b     string
	include     string
	exclude     string
	top         int
	profilePath string
	exportPath  string
	batchPath   string
	outputPath  string
	outputDir   string
	lang        string
	stdout      bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		log.Fatalf("labmatcher-cli: %v", err)
	}
	if err := run(opts); err != nil {
		var dataErr *labmatcher.DataError
		if errors.As(err, &dataErr) {
			log.Fatalf("labmatcher-cli: cannot use recipe data: %v", err)
		}
		log.Fatalf("labmatcher-cli: %v", err)
	}
}

func parseFlags() (cliOptions, error) {
	var opts cliOptions
	flag.StringVar(&opts.configPath, "config", "", "Path to config.json/.yaml/.toml (default: ./config.json)")
	flag.StringVar(&opts.dataPath, "data", "", "CSV/TSV recipe dataset (overrides config)")
	flag.StringVar(&opts.lab, "lab", "", `Target color as "L A B"`)
	flag.StringVar(&opts.l, "L", "", "Target L* value")
	flag.StringVar(&opts.a, "A", "", "Target a* value")
	flag.StringVar(&opts.b, "B", "", "Target b* value")
	flag.StringVar(&opts.include, "include", "", "Only keep recipes whose sand/powder text contains this word")
	flag.StringVar(&opts.exclude, "exclude", "", "Drop recipes whose sand/powder text contains this word")
	flag.IntVar(&opts.top, "top", 0, "Number of recipes to suggest (default from config)")
	flag.StringVar(&opts.profilePath, "profile", "", "ICC profile used for CMYK conversion")
	flag.StringVar(&opts.exportPath, "export", "", "Write the matched recipes to this CSV file")
	flag.StringVar(&opts.batchPath, "batch", "", "CSV/TSV file of target colors to match in bulk")
	flag.StringVar(&opts.outputPath, "output", "", "CSV file for batch results (default uses --output-dir/batch_*.csv)")
	flag.StringVar(&opts.outputDir, "output-dir", "csv", "Directory where batch CSVs are written when --output is omitted")
	flag.StringVar(&opts.lang, "lang", "", "Hint language: zh-TW or en (default from config)")
	flag.BoolVar(&opts.stdout, "stdout", false, "Print batch results to STDOUT")
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Usage: %s --lab \"L A B\" [options]\n", filepath.Base(os.Args[0]))
		fmt.Fprintf(out, "       %s --batch FILE [options]\n\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	opts.configPath = strings.TrimSpace(opts.configPath)
	opts.dataPath = strings.TrimSpace(opts.dataPath)
	opts.include = strings.TrimSpace(opts.include)
	opts.exclude = strings.TrimSpace(opts.exclude)
	opts.profilePath = strings.TrimSpace(opts.profilePath)
	opts.exportPath = strings.TrimSpace(opts.exportPath)
	opts.batchPath = strings.TrimSpace(opts.batchPath)
	opts.outputPath = strings.TrimSpace(opts.outputPath)
	opts.outputDir = strings.TrimSpace(opts.outputDir)

	if opts.batchPath == "" && opts.lab == "" && opts.l == "" && opts.a == "" && opts.b == "" {
		flag.Usage()
		return opts, errors.New("missing target color: use --lab or --L/--A/--B, or --batch")
	}
	return opts, nil
}

func run(opts cliOptions) error {
	cfg, err := labmatcher.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.dataPath != "" {
		cfg.DataPath = opts.dataPath
	}
	if opts.top > 0 {
		cfg.TopN = opts.top
	}
	if opts.lang != "" {
		cfg.Language = labmatcher.Language(opts.lang)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	service, err := labmatcher.Open(cfg, logger)
	if err != nil {
		return err
	}
	if opts.profilePath != "" {
		if err := service.SetProfilePath(opts.profilePath); err != nil {
			return fmt.Errorf("set profile: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.batchPath != "" {
		return runBatch(ctx, service, logger, opts)
	}
	return runSingle(ctx, service, opts)
}

func runSingle(ctx context.Context, service *labmatcher.Service, opts cliOptions) error {
	q, err := targetColor(opts)
	if err != nil {
		return err
	}
	res := service.Match(ctx, q, opts.include, opts.exclude)
	printResult(os.Stdout, res, service.Config().Language)

	if opts.exportPath != "" {
		if err := service.Export(opts.exportPath, res); err != nil {
			return err
		}
		fmt.Printf("Recipes exported to %s\n", opts.exportPath)
	}
	return nil
}

func targetColor(opts cliOptions) (labmatcher.Lab, error) {
	if opts.lab != "" {
		q, ok := labmatcher.ParseLabLine(opts.lab)
		if !ok {
			return q, fmt.Errorf("invalid --lab %q: want three numbers", opts.lab)
		}
		return q, nil
	}
	q, ok := labmatcher.ParseLab(opts.l, opts.a, opts.b)
	if !ok {
		return q, fmt.Errorf("invalid target color L=%q A=%q B=%q", opts.l, opts.a, opts.b)
	}
	return q, nil
}

func runBatch(ctx context.Context, service *labmatcher.Service, logger *log.Logger, opts cliOptions) error {
	queries, skipped, err := labmatcher.ReadBatchFile(opts.batchPath)
	if err != nil {
		return fmt.Errorf("read batch: %w", err)
	}
	for _, line := range skipped {
		logger.Printf("batch line %d skipped: missing or invalid L/A/B", line)
	}
	if len(queries) == 0 {
		return errors.New("batch file does not contain any usable colors")
	}

	results := service.MatchBatch(ctx, queries)

	outputPath, err := resolveOutputPath(opts.outputPath, opts.outputDir)
	if err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	defer f.Close()
	if err := labmatcher.WriteBatchCSV(f, results, service.Config().Language); err != nil {
		return err
	}
	fmt.Printf("Batch results saved to %s\n", outputPath)

	if opts.stdout {
		lang := service.Config().Language
		for _, br := range results {
			fmt.Printf("\n==== %s (line %d) ====\n", br.Query.ID, br.Query.Line)
			printResult(os.Stdout, br.Result, lang)
		}
	}
	return nil
}

func resolveOutputPath(path, dir string) (string, error) {
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolve output path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
		return absPath, nil
	}
	if dir == "" {
		dir = "csv"
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	filename := fmt.Sprintf("batch_%s.csv", time.Now().Format("20060102150405"))
	return filepath.Join(absDir, filename), nil
}

func printResult(w io.Writer, res labmatcher.Result, lang labmatcher.Language) {
	output := termenv.NewOutput(w)
	fmt.Fprintf(w, "Target %s  %s\n", res.Query, swatch(output, labmatcher.Hex(res.Query)))
	if len(res.Suggestions) == 0 {
		if lang == labmatcher.LangEN {
			fmt.Fprintln(w, "No suitable recipe found")
		} else {
			fmt.Fprintln(w, "查無合適配方")
		}
		return
	}
	cmyk := res.CMYKText()
	for _, s := range res.Suggestions {
		verdict := output.String(s.Reliability.Label(lang))
		if s.Reliability == labmatcher.Unreliable {
			verdict = verdict.Foreground(output.Color("1")).Bold()
		}
		fmt.Fprintf(w, "\n#%d Serial %s  %s\n", s.Rank, s.Record.Serial, swatch(output, s.Swatch))
		fmt.Fprintf(w, "    %s\n", s.Record.Lab)
		fmt.Fprintf(w, "    Delta E: %s (CIEDE2000 %s)  %s\n", formatDeltaE(s.DeltaE), formatDeltaE(s.DeltaE2000), verdict)
		for _, f := range s.Record.Fields {
			if f.Value.Text == "" {
				continue
			}
			fmt.Fprintf(w, "    %s: %s\n", f.Name, f.Value.Text)
		}
		fmt.Fprintf(w, "    %s\n", s.Description)
		fmt.Fprintf(w, "    %s\n", cmyk)
	}
}

func swatch(output *termenv.Output, hex string) string {
	if output.Profile == termenv.Ascii {
		return hex
	}
	return output.String("      ").Background(output.Color(hex)).String() + " " + hex
}

func formatDeltaE(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
