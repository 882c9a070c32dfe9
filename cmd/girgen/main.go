package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/gtkflux/gobject-runtime/gengo"
	"github.com/gtkflux/gobject-runtime/gir"
)

// girList collects repeated -gir flags.
type girList []string

func (g *girList) String() string { return strings.Join(*g, ",") }

func (g *girList) Set(v string) error {
	*g = append(*g, v)
	return nil
}

func main() {
	var girPaths girList
	flag.Var(&girPaths, "gir", "GIR file or glob pattern (repeatable)")
	var (
		configPath  = flag.String("config", "girgen.yaml", "Generator configuration file")
		outDir      = flag.String("out", "", "Output directory (overrides the config)")
		list        = flag.Bool("list", false, "List namespaces and types, then exit")
		interactive = flag.Bool("i", false, "Interactive introspection browser")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if len(girPaths) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: girgen -gir <file.gir> [-gir ...] [-config girgen.yaml] [-out dir]")
		fmt.Fprintln(os.Stderr, "       girgen -gir <file.gir> -list")
		fmt.Fprintln(os.Stderr, "       girgen -gir <file.gir> -i  (interactive browser)")
		os.Exit(1)
	}

	if *verbose {
		if log, err := zap.NewDevelopment(); err == nil {
			gengo.SetLogger(log)
		}
	}

	repos, err := loadRepos(girPaths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *list:
		listRepos(repos)
	case *interactive:
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(repos); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		if err := generate(*configPath, *outDir, repos); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

// loadRepos expands each -gir argument as a glob and decodes every
// matched file.
func loadRepos(patterns []string) ([]*gir.Repository, error) {
	var paths []string
	for _, pat := range patterns {
		matches, err := filepath.Glob(pat)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pat, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no GIR files match %q", pat)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	var repos []*gir.Repository
	for _, path := range paths {
		repo, err := gir.DecodeFile(path)
		if err != nil {
			return nil, err
		}
		repos = append(repos, repo)
	}
	return repos, nil
}

func listRepos(repos []*gir.Repository) {
	for _, repo := range repos {
		for i := range repo.Namespaces {
			ns := &repo.Namespaces[i]
			fmt.Printf("Namespace %s %s", ns.Name, ns.Version)
			if ns.SharedLibrary != "" {
				fmt.Printf(" (%s)", ns.SharedLibrary)
			}
			fmt.Println()

			listKind("classes", classNames(ns))
			listKind("interfaces", names(len(ns.Interfaces), func(i int) string { return ns.Interfaces[i].Name }))
			listKind("records", names(len(ns.Records), func(i int) string { return ns.Records[i].Name }))
			listKind("enums", names(len(ns.Enums), func(i int) string { return ns.Enums[i].Name }))
			listKind("bitfields", names(len(ns.Bitfields), func(i int) string { return ns.Bitfields[i].Name }))
			listKind("callbacks", names(len(ns.Callbacks), func(i int) string { return ns.Callbacks[i].Name }))
			listKind("functions", names(len(ns.Functions), func(i int) string { return ns.Functions[i].Name }))
		}
	}
}

func names(n int, at func(int) string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = at(i)
	}
	return out
}

func classNames(ns *gir.Namespace) []string {
	out := make([]string, len(ns.Classes))
	for i := range ns.Classes {
		out[i] = ns.Classes[i].Name
		if p := ns.Classes[i].Parent; p != "" {
			out[i] += " : " + p
		}
	}
	return out
}

func listKind(kind string, entries []string) {
	if len(entries) == 0 {
		return
	}
	sort.Strings(entries)
	fmt.Printf("  %s (%d):\n", kind, len(entries))
	for _, e := range entries {
		fmt.Printf("    %s\n", e)
	}
}

func generate(configPath, outDir string, repos []*gir.Repository) error {
	cfg, err := gengo.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if outDir != "" {
		cfg.Out = outDir
	}

	report, err := gengo.New(cfg).Run(repos)
	if err != nil {
		return err
	}

	for _, path := range report.Generated {
		fmt.Printf("generated %s\n", path)
	}
	if len(report.Unsupported) > 0 {
		fmt.Printf("\n%d types degraded to opaque handles:\n", len(report.Unsupported))
		for _, u := range report.Unsupported {
			fmt.Printf("  %s\n", u)
		}
	}
	if len(report.Skipped) > 0 {
		fmt.Printf("\n%d callables skipped:\n", len(report.Skipped))
		for _, s := range report.Skipped {
			owner := s.Owner
			if owner != "" {
				owner += "."
			}
			fmt.Printf("  %s%s: %s\n", owner, s.Method, s.Reason)
		}
	}
	return nil
}
