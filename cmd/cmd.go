package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rubiojr/capcheck/borrowck"
	"github.com/rubiojr/capcheck/capture"
	"github.com/rubiojr/capcheck/compiler"
	"github.com/rubiojr/capcheck/config"
	"github.com/rubiojr/capcheck/diag"
	"github.com/rubiojr/capcheck/doc"
	"github.com/rubiojr/capcheck/env"
	"github.com/rubiojr/capcheck/rats"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// Exit codes.
const (
	ExitDiagnostics = 1
	ExitInternal    = 2
)

// Execute runs the capcheck CLI with the given version string.
func Execute(version string) {
	cmd := New(version)
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		var ec cli.ExitCoder
		if errors.As(err, &ec) {
			if msg := ec.Error(); msg != "" {
				fmt.Fprintf(os.Stderr, "error: %s\n", msg)
			}
			os.Exit(ec.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// New builds the command tree. Errors, including exit codes, are returned
// from Run instead of terminating the process.
func New(version string) *cli.Command {
	return &cli.Command{
		Name:                   "capcheck",
		Usage:                  "Check that closures only mutate captured variables declared mut",
		Version:                version,
		UseShortOptionHandling: true,
		ExitErrHandler:         func(context.Context, *cli.Command, error) {},
		Commands: []*cli.Command{
			{
				Name:      "check",
				Usage:     "Check fixture files and report diagnostics",
				ArgsUsage: "<file.cap | directory>...",
				Flags:     commonFlags(),
				Action:    checkAction,
			},
			{
				Name:      "captures",
				Usage:     "Print the capture set of every closure",
				ArgsUsage: "<file.cap>",
				Flags:     commonFlags(),
				Action:    capturesAction,
			},
			{
				Name:      "rats",
				Usage:     "Run compile-fail fixtures against their //~ annotations",
				ArgsUsage: "[file.cap | directory]...",
				Flags:     commonFlags(),
				Action:    ratsAction,
			},
			{
				Name:      "explain",
				Usage:     "Explain a diagnostic code, or list method signatures",
				ArgsUsage: "[code]",
				Flags: append(commonFlags(),
					&cli.BoolFlag{
						Name:    "methods",
						Aliases: []string{"m"},
						Usage:   "List known method signatures (with externs of the given files)",
					},
				),
				Action: explainAction,
			},
		},
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Configuration file (default: nearest " + config.FileName + ")",
			Sources: cli.EnvVars("CAPCHECK_CONFIG"),
		},
		&cli.IntFlag{
			Name:    "jobs",
			Aliases: []string{"j"},
			Usage:   "Closures (and fixture files) checked in parallel",
			Sources: cli.EnvVars("CAPCHECK_JOBS"),
		},
		&cli.BoolFlag{
			Name:    "no-color",
			Aliases: []string{"C"},
			Usage:   "Disable ANSI color output",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Trace check steps to stderr",
		},
	}
}

// setup holds what every command derives from flags and configuration.
type setup struct {
	cfg   *config.Config
	comp  *compiler.Compiler
	jobs  int
	color bool
	out   io.Writer
	errw  io.Writer
}

func newSetup(cmd *cli.Command) (*setup, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := cmd.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.Find(".")
	}
	if err != nil {
		return nil, err
	}

	s := &setup{cfg: cfg, out: cmd.Root().Writer, errw: cmd.Root().ErrWriter}
	if s.out == nil {
		s.out = os.Stdout
	}
	if s.errw == nil {
		s.errw = os.Stderr
	}

	s.jobs = cfg.Jobs
	if cmd.IsSet("jobs") {
		s.jobs = cmd.Int("jobs")
	}
	if s.jobs < 1 {
		s.jobs = 1
	}

	s.color = useColor(cmd.Bool("no-color"), cfg.Color, s.errw)

	s.comp = &compiler.Compiler{Sigs: cfg.Methods(), Jobs: s.jobs}
	if cmd.Bool("verbose") {
		s.comp.Trace = s.errw
		if cfg.Path != "" {
			fmt.Fprintf(s.errw, "config: %s\n", cfg.Path)
		}
	}
	return s, nil
}

// useColor follows NO_COLOR and --no-color first, then the configured
// mode; auto enables colour only when w is a terminal.
func useColor(noColor bool, mode string, w io.Writer) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// exitFor maps a check error to an exit code.
func exitFor(err error) error {
	if errors.Is(err, borrowck.ErrInternal) {
		return cli.Exit(err.Error(), ExitInternal)
	}
	return cli.Exit(err.Error(), ExitDiagnostics)
}

func checkAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: capcheck check <file.cap | directory>...")
	}
	s, err := newSetup(cmd)
	if err != nil {
		return err
	}
	files, err := rats.Collect(cmd.Args().Slice())
	if err != nil {
		return err
	}

	total := 0
	for _, f := range files {
		if len(files) > 1 {
			fmt.Fprintf(s.errw, "=== %s ===\n", f)
		}
		res, err := s.comp.CheckFile(f)
		if err != nil {
			return exitFor(err)
		}
		if !res.OK() {
			if err := res.Renderer(s.color).Render(s.errw, res.Diagnostics); err != nil {
				return err
			}
		}
		total += len(res.Diagnostics)
	}
	if total > 0 {
		return cli.Exit("", ExitDiagnostics)
	}
	return nil
}

func capturesAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("usage: capcheck captures <file.cap>")
	}
	s, err := newSetup(cmd)
	if err != nil {
		return err
	}
	res, err := s.comp.CheckFile(cmd.Args().First())
	if err != nil {
		return exitFor(err)
	}
	r := res.Renderer(false)
	for _, set := range res.Captures {
		writeCaptures(s.out, r, res.Env, set)
	}
	return nil
}

func writeCaptures(w io.Writer, r *diag.Renderer, e *env.Env, set *capture.Set) {
	noun := "variables"
	if set.Len() == 1 {
		noun = "variable"
	}
	fmt.Fprintf(w, "%s: %s captures %d %s\n", r.Position(set.Closure.Pos()), set.Closure.Construct, set.Len(), noun)
	for _, rec := range set.Records() {
		b, _ := e.Binding(rec.Binding)
		var forwarded []string
		for _, u := range rec.Uses {
			if u.Forwarded {
				forwarded = append(forwarded, r.Position(u.Span.Start).String())
			}
		}
		fmt.Fprintf(w, "    %-12s #%-3d %-9s %-22s %-10s %s", rec.Name, rec.Binding, b.Mut, rec.Modes, rec.Modes.MostRestrictive(), rec.By)
		if len(forwarded) > 0 {
			fmt.Fprintf(w, "  (nested: %s)", strings.Join(forwarded, ", "))
		}
		fmt.Fprintln(w)
	}
}

func ratsAction(ctx context.Context, cmd *cli.Command) error {
	targets := cmd.Args().Slice()
	if len(targets) == 0 {
		targets = []string{"."}
	}
	s, err := newSetup(cmd)
	if err != nil {
		return err
	}
	files, err := rats.Collect(targets)
	if err != nil {
		return err
	}

	colorOK, colorFail, colorReset := "\033[32m", "\033[31m", "\033[0m"
	if !s.color {
		colorOK, colorFail, colorReset = "", "", ""
	}

	// Files run in parallel; closures inside a file are checked inline.
	comp := *s.comp
	comp.Jobs = 1
	runner := &rats.Runner{Compiler: &comp, Jobs: s.jobs}
	results := runner.Run(files, func(r *rats.Result) {
		switch {
		case r.Err != nil:
			fmt.Fprintf(s.errw, "%sFAIL%s %s: %v\n", colorFail, colorReset, r.File, r.Err)
		case !r.Passed():
			fmt.Fprintf(s.errw, "%sFAIL%s %s\n%s", colorFail, colorReset, r.File, indentLines(r.Detail))
		default:
			fmt.Fprintf(s.errw, "%sok%s   %s (%d expected)\n", colorOK, colorReset, r.File, r.Expected)
		}
	})

	passed, failed := rats.Summary(results)
	if failed > 0 {
		fmt.Fprintf(s.errw, "\n%d files, %d passed, %s%d failed%s\n", len(results), passed, colorFail, failed, colorReset)
		return cli.Exit("", ExitDiagnostics)
	}
	fmt.Fprintf(s.errw, "\n%d files, %s%d passed%s, 0 failed\n", len(results), colorOK, passed, colorReset)
	return nil
}

func indentLines(s string) string {
	if s == "" {
		return ""
	}
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return "    " + strings.Join(lines, "\n    ") + "\n"
}

func explainAction(ctx context.Context, cmd *cli.Command) error {
	s, err := newSetup(cmd)
	if err != nil {
		return err
	}
	if cmd.Bool("methods") {
		t := s.cfg.Methods()
		for _, path := range cmd.Args().Slice() {
			prog, err := s.comp.ParseFile(path)
			if err != nil {
				return err
			}
			t.AddExterns(prog)
			docs, err := doc.ExtractFile(path)
			if err != nil {
				return err
			}
			for _, d := range docs {
				t.SetDoc(d.Name, d.Doc)
			}
		}
		fmt.Fprint(s.out, doc.FormatMethods(t))
		return nil
	}
	if cmd.NArg() == 0 {
		fmt.Fprint(s.out, doc.FormatIndex(doc.All()))
		return nil
	}
	code := cmd.Args().First()
	e, ok := doc.Explain(code)
	if !ok {
		return fmt.Errorf("unknown diagnostic code %q", code)
	}
	fmt.Fprint(s.out, doc.FormatExplanation(e))
	return nil
}
