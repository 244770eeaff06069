/*
Exprcalc is an interactive calculator over the exprlang mini-language.

It evaluates a single expression given with -c and exits, or if none is
given, starts a REPL that reads one expression per line from stdin and
prints its result until "quit" or end of input. Variables can be bound
ahead of time with repeated -D name=value flags; ":vars" lists the names
currently bound.

Usage:

	exprcalc [flags]

The flags are:

	-v, --version
		Give the current version and exit.

	-f, --config FILE
		Load slab/parse limits and feature gates from the given TOML
		config file instead of the built-in defaults.

	-D, --var name=value
		Bind a variable for every expression evaluated this session. Can
		be given multiple times.

	-c, --command EXPR
		Evaluate EXPR immediately and print the result, skipping the REPL.

	-d, --direct
		Force reading expressions directly from stdin instead of via GNU
		readline, even when stdin is a terminal.
*/
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/pflag"

	"github.com/dekarrin/exprlang"
	"github.com/dekarrin/exprlang/internal/config"
	"github.com/dekarrin/exprlang/internal/util"
	"github.com/dekarrin/exprlang/internal/version"
)

const (
	ExitSuccess = iota
	ExitEvalError
	ExitInitError
)

var (
	returnCode  = ExitSuccess
	flagVersion = pflag.BoolP("version", "v", false, "Gives the version info")
	configFile  = pflag.StringP("config", "f", "", "TOML config file with slab/parse limits and feature gates")
	flagVars    = pflag.StringArrayP("var", "D", nil, "Bind a variable as name=value; can be repeated")
	flagCommand = pflag.StringP("command", "c", "", "Evaluate the given expression and exit")
	forceDirect = pflag.BoolP("direct", "d", false, "Force reading directly from stdin instead of GNU readline")
)

func main() {
	defer func() {
		if p := recover(); p != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", p))
		}
		os.Exit(returnCode)
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return
	}

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
			returnCode = ExitInitError
			return
		}
		cfg = loaded
	}

	vars, err := parseVarFlags(*flagVars)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitInitError
		return
	}
	ns := exprlang.MapNamespace(vars)
	opts := cfg.Options()

	if *flagCommand != "" {
		if !evalAndPrint(*flagCommand, opts, ns) {
			returnCode = ExitEvalError
		}
		return
	}

	if err := runREPL(opts, ns, *forceDirect); err != nil && err != io.EOF {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitEvalError
	}
}

func parseVarFlags(raw []string) (map[string]float64, error) {
	vars := make(map[string]float64, len(raw))
	for _, kv := range raw {
		name, valStr, found := strings.Cut(kv, "=")
		if !found {
			return nil, fmt.Errorf("malformed -D %q: want name=value", kv)
		}
		v, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed -D %q: %w", kv, err)
		}
		vars[strings.TrimSpace(name)] = v
	}
	return vars, nil
}

// boundVarsList renders the names bound in ns's MapNamespace, if any, as an
// Oxford-comma list for the REPL's ":vars" introspection command. ns is
// always a MapNamespace in this program (main constructs it from -D flags),
// but the type switch degrades gracefully if that ever changes.
func boundVarsList(ns exprlang.Namespace) string {
	m, ok := ns.(exprlang.MapNamespace)
	if !ok || len(m) == 0 {
		return "no bound variables"
	}

	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	return "bound variables: " + util.MakeTextList(names)
}

func evalAndPrint(expr string, opts exprlang.Options, ns exprlang.Namespace) bool {
	result, err := exprlang.Eval(expr, opts, ns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		return false
	}
	fmt.Printf("%v\n", result)
	return true
}

// replReader abstracts over the readline-backed and plain-stdin input
// sources a REPL can read lines from.
type replReader interface {
	ReadLine() (string, error)
	Close() error
}

type directReader struct{ r *bufio.Reader }

func (d directReader) ReadLine() (string, error) {
	line, err := d.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (d directReader) Close() error { return nil }

type interactiveReader struct{ rl *readline.Instance }

func (i interactiveReader) ReadLine() (string, error) {
	line, err := i.rl.Readline()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (i interactiveReader) Close() error { return i.rl.Close() }

func newReplReader(direct bool) (replReader, error) {
	if direct {
		return directReader{r: bufio.NewReader(os.Stdin)}, nil
	}

	rl, err := readline.NewEx(&readline.Config{Prompt: "expr> "})
	if err != nil {
		return nil, fmt.Errorf("create readline config: %w", err)
	}
	return interactiveReader{rl: rl}, nil
}

func runREPL(opts exprlang.Options, ns exprlang.Namespace, direct bool) error {
	reader, err := newReplReader(direct)
	if err != nil {
		return err
	}
	defer reader.Close()

	for {
		line, err := reader.ReadLine()
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			return nil
		case ":vars":
			fmt.Println(boundVarsList(ns))
			continue
		}

		evalAndPrint(line, opts, ns)
	}
}
