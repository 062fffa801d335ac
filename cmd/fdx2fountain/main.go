// Command fdx2fountain converts FinalDraft (.fdx) screenplays to Fountain.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/fdx2fountain/core/cas"
	"github.com/FocuswithJustin/fdx2fountain/core/errors"
	"github.com/FocuswithJustin/fdx2fountain/core/fdx"
	"github.com/FocuswithJustin/fdx2fountain/core/fountain"
	"github.com/FocuswithJustin/fdx2fountain/core/sqlite"
	"github.com/FocuswithJustin/fdx2fountain/core/xml"
	"github.com/FocuswithJustin/fdx2fountain/internal/batch"
	"github.com/FocuswithJustin/fdx2fountain/internal/config"
	"github.com/FocuswithJustin/fdx2fountain/internal/history"
	"github.com/FocuswithJustin/fdx2fountain/internal/input"
	"github.com/FocuswithJustin/fdx2fountain/internal/logging"
)

const version = "0.1.0"

// stdout receives command output; tests replace it.
var stdout io.Writer = os.Stdout

// CLI defines the command-line interface for fdx2fountain.
var CLI struct {
	Config    kong.ConfigFlag `name:"config" help:"Load flag defaults from a TOML file" type:"existingfile"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" default:"warn" env:"FDX2FOUNTAIN_LOG_LEVEL" enum:"debug,info,warn,error"`
	LogFormat string `name:"log-format" help:"Log format (text, json)" default:"text" env:"FDX2FOUNTAIN_LOG_FORMAT" enum:"text,json"`

	Convert ConvertCmd `cmd:"" help:"Convert one FDX file to Fountain"`
	Batch   BatchCmd   `cmd:"" help:"Convert every FDX file under a directory"`
	Check   CheckCmd   `cmd:"" help:"Check that a file is a well-formed FinalDraft document"`
	Stats   StatsCmd   `cmd:"" help:"Summarize the paragraphs of an FDX file"`
	History HistoryCmd `cmd:"" help:"List recorded conversions"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// ConvertCmd converts a single document.
type ConvertCmd struct {
	Path string `arg:"" help:"FDX file (.fdx, .fdx.gz, .fdx.xz), or - for stdin"`
	Out  string `name:"out" short:"o" help:"Write Fountain here instead of stdout" type:"path"`
}

// Run executes the convert command.
func (c *ConvertCmd) Run() error {
	ctx := logging.WithRunID(context.Background(), logging.NewRunID())
	start := time.Now()

	src, err := input.Read(c.Path)
	if err != nil {
		logging.ConversionFailed(ctx, c.Path, err)
		return err
	}
	logging.ConversionStarted(ctx, c.Path, src.Size, "type", string(src.Type))

	doc, err := fdx.Load(src.Data)
	if err != nil {
		logging.ConversionFailed(ctx, c.Path, err)
		return err
	}
	out, err := fountain.ConvertDocument(doc)
	if err != nil {
		logging.ConversionFailed(ctx, c.Path, err)
		return err
	}

	if c.Out == "" {
		_, err = io.WriteString(stdout, out)
	} else if err = os.WriteFile(c.Out, []byte(out), 0644); err != nil {
		err = errors.NewIO("write", c.Out, err)
	}
	if err != nil {
		logging.ConversionFailed(ctx, c.Path, err)
		return err
	}

	logging.ConversionFinished(ctx, c.Path, doc.Summarize().Paragraphs, len(out), time.Since(start))
	return nil
}

// BatchCmd converts a directory tree.
type BatchCmd struct {
	Dir     string `arg:"" help:"Directory to scan for .fdx, .fdx.gz and .fdx.xz files" type:"existingdir"`
	OutDir  string `name:"out-dir" short:"d" required:"" help:"Directory for .fountain output" type:"path"`
	Workers int    `name:"workers" short:"w" help:"Parallel conversions (0 = number of CPUs)" default:"0" env:"FDX2FOUNTAIN_WORKERS"`
	History string `name:"history" help:"SQLite database recording each conversion" type:"path" env:"FDX2FOUNTAIN_HISTORY"`
	JSON    bool   `name:"json" help:"Print results as JSON"`
}

type batchResultJSON struct {
	Source     string `json:"source"`
	Output     string `json:"output"`
	Status     string `json:"status"`
	Digest     string `json:"digest,omitempty"`
	Paragraphs int    `json:"paragraphs"`
	Error      string `json:"error,omitempty"`
}

// Run executes the batch command.
func (c *BatchCmd) Run() error {
	jobs, err := batch.Discover(c.Dir, c.OutDir)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		logging.Warn("no FDX files found", "dir", c.Dir)
	}

	opts := batch.Options{Workers: c.Workers}
	if c.History != "" {
		store, err := history.Open(c.History)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.History = store
	}

	results, sum, err := batch.NewRunner(opts).Run(context.Background(), jobs)
	if err != nil {
		return err
	}

	if c.JSON {
		out := struct {
			Summary batch.Summary     `json:"summary"`
			Results []batchResultJSON `json:"results"`
		}{Summary: sum, Results: make([]batchResultJSON, 0, len(results))}
		for _, r := range results {
			j := batchResultJSON{
				Source:     r.Source,
				Output:     r.Output,
				Status:     string(r.Status),
				Digest:     r.Digest,
				Paragraphs: r.Paragraphs,
			}
			if r.Err != nil {
				j.Error = r.Err.Error()
			}
			out.Results = append(out.Results, j)
		}
		if err := printJSON(out); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(stdout, "FAIL  %s: %v\n", r.Source, r.Err)
				continue
			}
			fmt.Fprintf(stdout, "%-6s %s -> %s\n", statusLabel(r.Status), r.Source, r.Output)
		}
		fmt.Fprintf(stdout, "\n%d files: %d converted, %d cached, %d failed (run %s)\n",
			sum.Total, sum.Converted, sum.Cached, sum.Failed, sum.RunID)
	}

	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", sum.Failed, sum.Total)
	}
	return nil
}

func statusLabel(s history.Status) string {
	switch s {
	case history.StatusConverted:
		return "OK"
	case history.StatusCached:
		return "CACHED"
	}
	return "FAIL"
}

// CheckCmd checks well-formedness and structure.
type CheckCmd struct {
	Path string `arg:"" help:"FDX file (.fdx, .fdx.gz, .fdx.xz), or - for stdin"`
}

// Run executes the check command.
func (c *CheckCmd) Run() error {
	src, err := input.Read(c.Path)
	if err != nil {
		return err
	}

	result := xml.Validate(src.Data)
	if !result.Valid {
		for _, e := range result.Errors {
			switch {
			case e.Line > 0 && e.Column > 0:
				fmt.Fprintf(stdout, "%s:%d:%d: %s\n", c.Path, e.Line, e.Column, e.Message)
			case e.Line > 0:
				fmt.Fprintf(stdout, "%s:%d: %s\n", c.Path, e.Line, e.Message)
			default:
				fmt.Fprintf(stdout, "%s: %s\n", c.Path, e.Message)
			}
		}
		return errors.NewSyntax(result.Errors[0].Line, result.Errors[0].Column, nil)
	}

	doc, err := fdx.Load(src.Data)
	if err != nil {
		fmt.Fprintf(stdout, "%s: %v\n", c.Path, err)
		return err
	}

	sum := doc.Summarize()
	fmt.Fprintf(stdout, "%s: OK (%d paragraphs, %d unrecognized, blake3 %s)\n",
		c.Path, sum.Paragraphs, sum.Unrecognized, cas.Blake3Hash(src.Data))
	return nil
}

// StatsCmd prints a paragraph summary.
type StatsCmd struct {
	Path string `arg:"" help:"FDX file (.fdx, .fdx.gz, .fdx.xz), or - for stdin"`
	JSON bool   `name:"json" help:"Print the summary as JSON"`
}

// Run executes the stats command.
func (c *StatsCmd) Run() error {
	src, err := input.Read(c.Path)
	if err != nil {
		return err
	}
	doc, err := fdx.Load(src.Data)
	if err != nil {
		return err
	}
	sum := doc.Summarize()

	if c.JSON {
		out := struct {
			Source string `json:"source"`
			cas.HashResult
			fdx.Summary
		}{Source: c.Path, HashResult: cas.Sum(src.Data), Summary: sum}
		return printJSON(out)
	}

	fmt.Fprintf(stdout, "Paragraphs: %d\n", sum.Paragraphs)
	fmt.Fprintf(stdout, "Text runs:  %d\n", sum.Runs)
	for _, tc := range sum.Types {
		name := tc.Type
		if name == "" {
			name = "(untyped)"
		}
		note := ""
		if !tc.Recognized {
			note = "  (dropped)"
		}
		fmt.Fprintf(stdout, "  %-16s %5d%s\n", name, tc.Count, note)
	}
	return nil
}

// HistoryCmd lists the conversion ledger.
type HistoryCmd struct {
	History string `name:"history" required:"" help:"SQLite history database" type:"path" env:"FDX2FOUNTAIN_HISTORY"`
	RunID   string `name:"run" help:"Only show entries of this run ID"`
	Limit   int    `name:"limit" short:"n" help:"Maximum entries to show (0 = all)" default:"20"`
	JSON    bool   `name:"json" help:"Print entries as JSON"`
}

// Run executes the history command.
func (c *HistoryCmd) Run() error {
	if _, err := os.Stat(c.History); err != nil {
		return errors.NewIO("open history database", c.History, err)
	}
	store, err := history.Open(c.History)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(context.Background(), history.Filter{RunID: c.RunID, Limit: c.Limit})
	if err != nil {
		return err
	}

	if c.JSON {
		if entries == nil {
			entries = []history.Entry{}
		}
		return printJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(stdout, "No conversions recorded.")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-9s %s", e.CreatedAt.Format(time.RFC3339), e.Status, e.Source)
		if e.Status == history.StatusFailed {
			line += ": " + e.Error
		} else {
			line += fmt.Sprintf(" (%d paragraphs, %d bytes)", e.Paragraphs, e.OutputBytes)
		}
		fmt.Fprintln(stdout, line)
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

// Run executes the version command.
func (c *VersionCmd) Run() error {
	info := sqlite.GetInfo(nil)
	fmt.Fprintf(stdout, "fdx2fountain version %s (history: %s)\n", version, info.Package)
	return nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(stdout, string(data))
	return err
}

// configureLogging applies the global log flags.
func configureLogging(level, format string) error {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return err
	}
	f, err := logging.ParseFormat(format)
	if err != nil {
		return err
	}
	logging.InitLogger(lvl, f)
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("fdx2fountain"),
		kong.Description("Convert FinalDraft screenplays to Fountain"),
		kong.UsageOnError(),
		kong.Configuration(config.Loader, config.DefaultPaths...),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	ctx.FatalIfErrorf(configureLogging(CLI.LogLevel, CLI.LogFormat))
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
