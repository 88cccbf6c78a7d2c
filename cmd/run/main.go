package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/napi-go/addon"
	"github.com/wippyai/napi-go/callback"
	"github.com/wippyai/napi-go/engine"
	"github.com/wippyai/napi-go/examples/helloworld"
)

// modules are the native modules compiled into the runner.
var modules = map[string]func() *addon.Module{
	helloworld.Name: helloworld.Module,
}

func main() {
	var (
		moduleName  = flag.String("module", helloworld.Name, "Native module to load")
		enginePath  = flag.String("engine", "", "Path to a wasm engine module (default: simulated host)")
		funcName    = flag.String("func", "", "Function to call; remaining arguments are passed to it")
		list        = flag.Bool("list", false, "List exported functions and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Log host and dispatch activity to stderr")
	)
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = logger.Sync() }()
		engine.SetLogger(logger.Named("engine"))
		callback.SetLogger(logger.Named("callback"))
		addon.SetLogger(logger.Named("addon"))
	}

	newModule, ok := modules[*moduleName]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown module %q (available: %s)\n", *moduleName, strings.Join(moduleNames(), ", "))
		os.Exit(1)
	}

	ctx := context.Background()
	s, err := openSession(ctx, newModule(), *enginePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer s.Close(ctx)

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(s); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(s, *funcName, flag.Args(), *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func moduleNames() []string {
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func run(s *session, funcName string, args []string, listOnly bool) error {
	fmt.Printf("Module: %s (%s)\n", s.module.Name(), s.hostName)

	fmt.Printf("\nExported functions:\n")
	for _, e := range s.module.Exports() {
		fmt.Printf("  %s\n", e.Function.Signature(e.Name))
	}

	if listOnly {
		return nil
	}

	if funcName == "" {
		exports := s.module.Exports()
		if len(exports) != 1 {
			fmt.Printf("\nUse -func to specify a function to call.\n")
			return nil
		}
		funcName = exports[0].Name
	}

	fmt.Printf("\nCalling %s(%s)...\n", funcName, strings.Join(args, ", "))
	result, err := s.Call(funcName, args)
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}
	fmt.Printf("Result: %s\n", result)
	return nil
}
