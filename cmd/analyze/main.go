// Command analyze runs the ingredient analyzer once and writes the table as CSV.
//
//	analyze -text "Water, Glycerin, Niacinamide" -o ingredient_analysis.csv
//	analyze -image label.jpg
//	cat ingredients.txt | analyze -v
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/skinlens/backend/config"
	"github.com/skinlens/backend/internal/app"
	"github.com/skinlens/backend/internal/domain"
	"github.com/skinlens/backend/internal/logging"
	"github.com/skinlens/backend/internal/usecase"
)

// options are the parsed command line flags
type options struct {
	text    string
	image   string
	output  string
	verbose bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := logging.SetupWriter(stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	var observer usecase.StateObserver
	if opts.verbose {
		observer = func(change domain.StateChange) {
			fmt.Fprintf(stderr, "[%d] %s: %s\n", change.Index, change.Ingredient, change.State)
		}
	}

	services, err := app.New(ctx, cfg, app.Options{Observer: observer, Debug: opts.verbose})
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer services.Close()

	ingredients, err := readIngredients(ctx, opts, services.Extractor, stdin)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	result, err := services.Analysis.Analyze(ctx, ingredients)
	return finish(opts.output, stdout, stderr, result, err)
}

// finish reports failures and writes the table. When every ingredient failed
// the header-only CSV is still written before exiting non-zero.
func finish(output string, stdout, stderr io.Writer, result *domain.AnalysisResult, err error) int {
	if result != nil {
		writeFailures(stderr, result.Failures)
	}
	emptyResult := result != nil && errors.Is(err, domain.ErrEmptyResult)
	if err != nil && !emptyResult {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if werr := writeOutput(output, stdout, result.Records); werr != nil {
		fmt.Fprintln(stderr, werr)
		return 1
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	log.Info().
		Int("records", len(result.Records)).
		Int("failures", len(result.Failures)).
		Str("output", outputName(output)).
		Msg("analysis complete")
	return 0
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.text, "text", "", "comma-separated ingredient list")
	fs.StringVar(&opts.image, "image", "", "path to a JPEG or PNG label photo")
	fs.StringVar(&opts.output, "o", "", "CSV output path (default stdout)")
	fs.BoolVar(&opts.verbose, "v", false, "print per-ingredient progress to stderr")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if opts.text != "" && opts.image != "" {
		return nil, errors.New("-text and -image are mutually exclusive")
	}
	return opts, nil
}

// readIngredients resolves the input source: -text, -image, or stdin
func readIngredients(ctx context.Context, opts *options, extractor *usecase.IngredientExtractor, stdin io.Reader) ([]string, error) {
	if opts.image != "" {
		if extractor == nil {
			return nil, fmt.Errorf("%w: tesseract is not installed", domain.ErrOCRExtraction)
		}
		data, err := os.ReadFile(opts.image)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrOCRExtraction, err)
		}
		extraction, err := extractor.Extract(ctx, data)
		if err != nil {
			return nil, err
		}
		return extraction.Ingredients, nil
	}

	text := opts.text
	if text == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: no ingredient text given", domain.ErrInvalidRequest)
	}
	return usecase.Normalize(text), nil
}

func writeFailures(w io.Writer, failures []domain.IngredientFailure) {
	for _, f := range failures {
		fmt.Fprintln(w, f.Error())
	}
}

func writeOutput(path string, stdout io.Writer, records []domain.IngredientRecord) error {
	if path == "" {
		return usecase.WriteCSV(stdout, records)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := usecase.WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func outputName(path string) string {
	if path == "" {
		return "stdout"
	}
	return path
}
