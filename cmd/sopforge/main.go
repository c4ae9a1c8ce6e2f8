// cmd/sopforge/main.go
//
// This is the entry point for the sopforge CLI.
//
// Flow:
// 1. Parse flags and resolve the project directory
// 2. Initialize the .sopforge folder (config, logs, output)
// 3. Build the pipeline: collaborator client, stage adapters, graph, runner
// 4. Submit the run, interactively with the TUI or with plain progress lines
// 5. Write the finished document to the output directory

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sopforge/sopforge/internal/config"
	"github.com/sopforge/sopforge/internal/export"
	"github.com/sopforge/sopforge/internal/graph"
	"github.com/sopforge/sopforge/internal/llm"
	"github.com/sopforge/sopforge/internal/logging"
	"github.com/sopforge/sopforge/internal/runner"
	"github.com/sopforge/sopforge/internal/runstate"
	"github.com/sopforge/sopforge/internal/runstore"
	"github.com/sopforge/sopforge/internal/stage"
	"github.com/sopforge/sopforge/internal/stages"
	"github.com/sopforge/sopforge/internal/tui"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

func main() {
	var (
		topic        = flag.String("topic", "", "document topic (required)")
		industry     = flag.String("industry", "", "industry context (required)")
		audience     = flag.String("audience", "", "target audience")
		requirements = flag.String("requirements", "", "comma-separated special requirements")
		projectDir   = flag.String("dir", "", "project directory (defaults to the working directory)")
		useMock      = flag.Bool("mock", false, "use the offline mock collaborator")
		useTUI       = flag.Bool("tui", false, "show interactive progress")
		htmlOut      = flag.Bool("html", false, "also render the document as HTML")
	)
	flag.Parse()

	if *topic == "" || *industry == "" {
		fmt.Fprintln(os.Stderr, "Usage: sopforge -topic <topic> -industry <industry> [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	dir := *projectDir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
			os.Exit(1)
		}
		dir = cwd
	}

	if err := config.Init(dir); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing %s directory: %v\n", config.ProjectDirName, err)
		os.Exit(1)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogFile())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	client, err := buildClient(cfg, *useMock)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring collaborator: %v\n", err)
		os.Exit(1)
	}

	req := runner.Request{
		Topic:        *topic,
		Industry:     *industry,
		Audience:     *audience,
		Requirements: splitRequirements(*requirements),
	}

	var state *runstate.RunState
	if *useTUI {
		state, err = runInteractive(log, client, req)
	} else {
		state, err = runPlain(log, client, req)
	}
	if err != nil {
		log.Printf("main: run failed before producing state: %v", err)
		fmt.Fprintln(os.Stderr, errStyle.Render(fmt.Sprintf("Run failed: %v (see %s)", err, log.Path())))
		os.Exit(1)
	}
	if state == nil {
		// User quit the TUI before the run finished.
		fmt.Println(warnStyle.Render("Run abandoned"))
		os.Exit(1)
	}

	printSummary(state)
	if state.Failed() {
		os.Exit(1)
	}

	if err := writeOutputs(cfg, state, *htmlOut); err != nil {
		fmt.Fprintln(os.Stderr, errStyle.Render(fmt.Sprintf("Error writing output: %v", err)))
		os.Exit(1)
	}
}

// buildClient selects the collaborator. The mock runs the full pipeline
// offline and exists mostly for demos and smoke checks.
func buildClient(cfg *config.Config, mock bool) (llm.Client, error) {
	if mock {
		return llm.NewRetrying(llm.NewMock()), nil
	}
	base, err := llm.NewOpenAIClient(llm.Settings{
		Provider: cfg.File.Collaborator.Provider,
		Model:    cfg.File.Collaborator.Model,
		APIKey:   cfg.APIKey(),
		BaseURL:  cfg.File.Collaborator.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	return llm.NewRetrying(base, llm.WithAttemptTimeout(cfg.CallTimeout())), nil
}

// buildRunner wires the store, the five stage adapters, the graph, and the
// runner. The observer is optional and feeds progress displays.
func buildRunner(log *logging.Logger, client llm.Client, observer graph.Observer) (*runner.Runner, error) {
	store := runstore.NewMemoryStore()

	adapt := func(name string, fn stage.Func) (*stage.Adapter, error) {
		return stage.NewAdapter(name, store, fn, stage.WithLogger(log))
	}
	planning, err := adapt(graph.NodePlanning, stages.Planning(client))
	if err != nil {
		return nil, err
	}
	research, err := adapt(graph.NodeResearch, stages.Research(client))
	if err != nil {
		return nil, err
	}
	draft, err := adapt(graph.NodeDraft, stages.Draft(client))
	if err != nil {
		return nil, err
	}
	formatting, err := adapt(graph.NodeFormatting, stages.Formatting(nil))
	if err != nil {
		return nil, err
	}
	review, err := adapt(graph.NodeReview, stages.Review(client))
	if err != nil {
		return nil, err
	}

	opts := []graph.Option{graph.WithLogger(log)}
	if observer != nil {
		opts = append(opts, graph.WithObserver(observer))
	}
	g, err := graph.New(store, graph.Adapters{
		Planning:   planning,
		Research:   research,
		Draft:      draft,
		Formatting: formatting,
		Review:     review,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return runner.New(store, g, runner.WithLogger(log))
}

func runPlain(log *logging.Logger, client llm.Client, req runner.Request) (*runstate.RunState, error) {
	observer := func(node string, state *runstate.RunState) {
		if node == "revision" {
			if state.Status == runstate.StatusDrafted {
				fmt.Println(warnStyle.Render(fmt.Sprintf("  revision requested (pass %d/%d)", state.RetryCount, runstate.MaxRevisions)))
			}
			return
		}
		fmt.Printf("  %s %s\n", okStyle.Render("✓"), node)
	}
	r, err := buildRunner(log, client, observer)
	if err != nil {
		return nil, err
	}
	fmt.Println(headerStyle.Render(fmt.Sprintf("Generating %q for %s", req.Topic, req.Industry)))
	return r.Submit(context.Background(), req)
}

func runInteractive(log *logging.Logger, client llm.Client, req runner.Request) (*runstate.RunState, error) {
	model := tui.New(req.Topic, func(observer graph.Observer) (*runstate.RunState, error) {
		r, err := buildRunner(log, client, observer)
		if err != nil {
			return nil, err
		}
		return r.Submit(context.Background(), req)
	})
	p := tea.NewProgram(model)
	final, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("main: run TUI: %w", err)
	}
	return final.(tui.Model).Final()
}

func printSummary(state *runstate.RunState) {
	fmt.Println()
	switch {
	case state.Completed() && state.Review != nil && state.Review.Approved:
		fmt.Println(okStyle.Render(fmt.Sprintf("Approved: score %.1f/10", state.Review.OverallScore)))
	case state.Completed() && state.Review != nil:
		fmt.Println(warnStyle.Render(fmt.Sprintf("Completed unapproved after %d revisions: score %.1f/10",
			state.RetryCount, state.Review.OverallScore)))
	case state.Failed():
		fmt.Println(errStyle.Render("Run failed"))
	default:
		fmt.Println(warnStyle.Render(fmt.Sprintf("Run ended with status %s", state.Status)))
	}
	fmt.Printf("Run id: %s\n", state.ID)
	fmt.Printf("Usage units: %d\n", state.UsageUnits)
	for _, line := range state.ErrorStrings() {
		fmt.Println(warnStyle.Render("  " + line))
	}
}

func writeOutputs(cfg *config.Config, state *runstate.RunState, html bool) error {
	if state.FormattedDocument == "" {
		return nil
	}
	name := slug(state.Inputs.Topic)
	path, err := export.WriteMarkdown(cfg.OutputDir(), name, state.FormattedDocument)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	if html {
		path, err = export.WriteHTML(cfg.OutputDir(), name, state.FormattedDocument)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
	}
	return nil
}

func splitRequirements(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// slug turns a topic into a safe file name.
func slug(topic string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(topic) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			sb.WriteByte('-')
		}
	}
	out := strings.Trim(sb.String(), "-")
	if out == "" {
		return "document"
	}
	return out
}
