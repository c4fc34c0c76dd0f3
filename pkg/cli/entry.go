// Package cli wires the glimmer command-line interface: flag and
// subcommand parsing, REPL/file-mode dispatch, and exit-code mapping.
package cli

import (
	"bufio"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/glimmer-lang/glimmer/internal/config"
	"github.com/glimmer-lang/glimmer/internal/vm"
)

// Exit codes per the CLI's external interface: 0 success, 64 usage, 65
// compile error, 70 runtime error.
const (
	exitUsage        = 64
	exitCompileError = 65
	exitRuntimeError = 70
)

var (
	flagDebug     bool
	flagTraceExec bool
	flagStressGC  bool
	flagConfig    string
	flagOutput    string
)

// NewRootCommand builds the `glimmer` cobra command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "glimmer [script]",
		Short: "glimmer is a bytecode interpreter for the glimmer scripting language",
		Long: "glimmer compiles and runs glimmer source directly from bytecode.\n" +
			"Invoked with no arguments it starts a REPL; invoked with one argument\n" +
			"it compiles and runs that file.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			applyFlags(cfg)

			if len(args) == 0 {
				runREPL(cfg)
				return nil
			}
			return exitErr(runFile(cfg, args[0]))
		},
	}

	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "disassemble the compiled script chunk to stderr")
	root.PersistentFlags().BoolVar(&flagTraceExec, "trace-exec", false, "trace every executed instruction to stderr")
	root.PersistentFlags().BoolVar(&flagStressGC, "stress-gc", false, "run a full GC collection before every allocation")
	root.PersistentFlags().StringVar(&flagConfig, "config", config.DefaultConfigFile, "path to a .glimmer.yaml config file")

	root.AddCommand(newCompileCommand())
	root.AddCommand(newRunCompiledCommand())
	return root
}

// Execute runs the root command, mapping a returned exitCodeError to the
// corresponding os.Exit call.
func Execute() {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		if ec, ok := err.(exitCodeError); ok {
			os.Exit(ec.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
}

// exitCodeError carries a specific process exit code through cobra's
// error-returning RunE, so Execute can recover it instead of collapsing
// every non-nil error to exit 1.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func exitErr(code int) error {
	if code == 0 {
		return nil
	}
	return exitCodeError{code: code}
}

func loadConfig() (*config.Config, error) {
	if flagConfig == config.DefaultConfigFile {
		if _, err := os.Stat(flagConfig); err != nil {
			return config.Default(), nil
		}
	}
	return config.Load(flagConfig)
}

func applyFlags(cfg *config.Config) {
	if flagDebug {
		cfg.Debug = true
	}
	if flagTraceExec {
		cfg.TraceExec = true
	}
	if flagStressGC {
		cfg.StressGC = true
	}
}

// runFile implements file mode: read the script, interpret it once, map
// the result to an exit code.
func runFile(cfg *config.Config, path string) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	machine := vm.New()
	machine.SetConfig(cfg)
	return interpretAndReport(machine, string(source))
}

func interpretAndReport(machine *vm.VM, source string) int {
	switch machine.Interpret(source) {
	case nil:
		return 0
	case vm.ErrCompile:
		return exitCompileError
	default:
		return exitRuntimeError
	}
}

// runREPL implements REPL mode: read lines, interpret each against one
// persistent VM, never exit on error. When stdin is not a TTY the prompt
// and REPL spacing are suppressed so piped fixtures diff cleanly.
func runREPL(cfg *config.Config) {
	machine := vm.New()
	machine.SetConfig(cfg)

	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	session := uuid.New()

	in := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print("> ")
		}
		if !in.Scan() {
			if interactive {
				fmt.Println()
			}
			return
		}
		line := in.Text()

		if cfg.Debug {
			fmt.Fprintf(os.Stderr, "[sess %s] %s\n", session.String()[:8], line)
		}
		machine.Interpret(line)
	}
}

func newCompileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <script>",
		Short: "compile a script to a bytecode cache without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			applyFlags(cfg)

			out := flagOutput
			if out == "" {
				out = cfg.CachePath
			}
			return exitErr(handleCompile(cfg, args[0], out))
		},
	}
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output path for the bytecode cache")
	return cmd
}

func newRunCompiledCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run-compiled <cache>",
		Short: "run a previously compiled bytecode cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			applyFlags(cfg)
			return exitErr(handleRunCompiled(cfg, args[0]))
		},
	}
}

// handleCompile compiles (but does not run) a script and writes its
// bytecode cache to out.
func handleCompile(cfg *config.Config, path, out string) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	machine := vm.New()
	machine.SetConfig(cfg)
	function, ok := vm.Compile(machine, string(source))
	if !ok {
		return exitCompileError
	}
	if err := machine.SaveCache(function, out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	return 0
}

// handleRunCompiled loads a bytecode cache and runs it directly,
// skipping the scanner and compiler entirely.
func handleRunCompiled(cfg *config.Config, path string) int {
	machine := vm.New()
	machine.SetConfig(cfg)

	function, err := machine.LoadCache(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	if err := machine.Run(function); err != nil {
		return exitRuntimeError
	}
	return 0
}
