// Package main provides the anvil command, a one-shot dispatcher for
// workspace file and patch tools. It reads a single XML tool call from
// stdin (or -call), executes it against the workspace, and prints the
// tool's result to stdout.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/entrhq/anvil/pkg/agent/tools"
	appconfig "github.com/entrhq/anvil/pkg/config"
	"github.com/entrhq/anvil/pkg/logging"
	notestore "github.com/entrhq/anvil/pkg/notes"
	"github.com/entrhq/anvil/pkg/patch"
	"github.com/entrhq/anvil/pkg/security/workspace"
	"github.com/entrhq/anvil/pkg/tools/coding"
	notetools "github.com/entrhq/anvil/pkg/tools/notes"
)

const version = "0.1.0"

var errColor = color.New(color.FgRed, color.Bold)

// options holds the parsed command line flags.
type options struct {
	workspaceDir string
	configPath   string
	call         string
	listTools    bool
	showVersion  bool
}

func main() {
	opts := parseFlags()

	if opts.showVersion {
		fmt.Printf("anvil v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := run(ctx, opts); err != nil {
		errColor.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags.
func parseFlags() *options {
	opts := &options{}

	pflag.StringVarP(&opts.workspaceDir, "workspace", "w", ".", "workspace directory")
	pflag.StringVarP(&opts.configPath, "config", "c", "", "config file path (default: ~/.anvil/config.yaml)")
	pflag.StringVar(&opts.call, "call", "", "tool call XML (default: read from stdin)")
	pflag.BoolVar(&opts.listTools, "list-tools", false, "list available tools and exit")
	pflag.BoolVarP(&opts.showVersion, "version", "v", false, "show version and exit")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "anvil - workspace file and patch tools\n\n")
		fmt.Fprintf(os.Stderr, "Usage: anvil [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  anvil --list-tools\n")
		fmt.Fprintf(os.Stderr, "  anvil -w /path/to/project < call.xml\n")
		fmt.Fprintf(os.Stderr, "  anvil --call '<tool><tool_name>list_files</tool_name><arguments><path>.</path></arguments></tool>'\n")
	}

	pflag.Parse()
	return opts
}

func run(ctx context.Context, opts *options) error {
	configPath := opts.configPath
	if configPath == "" {
		var err error
		configPath, err = appconfig.DefaultPath()
		if err != nil {
			return fmt.Errorf("failed to locate config: %w", err)
		}
	}
	cfg, err := appconfig.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger("main")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Close()

	guard, err := newGuard(opts.workspaceDir, cfg)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(guard, cfg)
	if err != nil {
		return err
	}

	if opts.listTools {
		printTools(registry)
		return nil
	}

	callXML := opts.call
	if callXML == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read tool call from stdin: %w", err)
		}
		callXML = string(data)
	}

	call, _, err := tools.ParseToolCall(callXML)
	if err != nil {
		return fmt.Errorf("failed to parse tool call: %w", err)
	}

	tool, ok := registry.Get(call.ToolName)
	if !ok {
		return fmt.Errorf("unknown tool: %s", call.ToolName)
	}

	logger.Infof("executing tool %s in %s", call.ToolName, guard.WorkspaceDir())

	result, metadata, err := tool.Execute(ctx, call.GetArgumentsXML())
	if err != nil {
		logger.Errorf("tool %s failed: %v", call.ToolName, err)
		return fmt.Errorf("%s: %w", call.ToolName, err)
	}

	logger.Infof("tool %s completed", call.ToolName)
	fmt.Println(result)

	if len(metadata) > 0 {
		printMetadata(metadata)
	}
	return nil
}

// newGuard creates the workspace guard and applies the config's extra
// ignore patterns and whitelisted directories.
func newGuard(workspaceDir string, cfg *appconfig.Config) (*workspace.Guard, error) {
	guard, err := workspace.NewGuard(workspaceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize workspace: %w", err)
	}
	guard.AddIgnorePatterns(cfg.IgnorePatterns)
	for _, dir := range cfg.WhitelistDirs {
		if err := guard.AddWhitelist(dir); err != nil {
			return nil, fmt.Errorf("failed to whitelist %s: %w", dir, err)
		}
	}
	return guard, nil
}

// buildRegistry wires every tool against the workspace guard.
func buildRegistry(guard *workspace.Guard, cfg *appconfig.Config) (*tools.Registry, error) {
	store, err := notestore.NewStore(guard.WorkspaceDir())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize notes store: %w", err)
	}

	applyDiff := coding.NewApplyDiffTool(guard)
	if cfg.PatchBinary != "" {
		executor := patch.NewExecutorWithRunner(guard.WorkspaceDir(), cfg.PatchBinary, patch.ExecRunner{})
		applyDiff = coding.NewApplyDiffToolWithExecutor(guard, executor)
	}

	commandTimeout := time.Duration(cfg.CommandTimeoutSeconds) * time.Second

	registry := tools.NewRegistry()
	all := []tools.Tool{
		coding.NewReadFileTool(guard),
		coding.NewReadFilesTool(guard),
		coding.NewWriteFileTool(guard),
		coding.NewPatchFileTool(guard),
		applyDiff,
		coding.NewListFilesTool(guard),
		coding.NewListDirsTool(guard),
		coding.NewSearchFilesTool(guard),
		coding.NewSummarizeTool(guard),
		coding.NewExecuteCommandTool(guard, commandTimeout),
		coding.NewMkdirTool(guard),
		coding.NewRemoveTool(guard),
		coding.NewRemoveTreeTool(guard),
		coding.NewCopyTool(guard),
		coding.NewMoveTool(guard),
		notetools.NewAddNoteTool(store),
		notetools.NewGetAllNotesTool(store),
		notetools.NewRemoveNoteTool(store),
	}
	for _, tool := range all {
		if err := registry.Register(tool); err != nil {
			return nil, fmt.Errorf("failed to register tools: %w", err)
		}
	}
	return registry, nil
}

// printTools writes the registered tool names and descriptions to stdout.
func printTools(registry *tools.Registry) {
	nameColor := color.New(color.FgCyan, color.Bold)
	for _, tool := range registry.List() {
		nameColor.Printf("%s\n", tool.Name())
		fmt.Printf("  %s\n", tool.Description())
	}
}

func printMetadata(metadata map[string]interface{}) {
	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	dim := color.New(color.Faint)
	for _, key := range keys {
		dim.Fprintf(os.Stderr, "%s: %v\n", key, metadata[key])
	}
}
