package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"

	"stylepick/internal/config"
	"stylepick/internal/css"
	"stylepick/internal/html"
	"stylepick/internal/state"
	"stylepick/pkg/stylepick"
)

type elementsOutput struct {
	File       string        `json:"file" yaml:"file"`
	Generation string        `json:"generation" yaml:"generation"`
	Elements   []html.Record `json:"elements" yaml:"elements"`
}

type rulesOutput struct {
	Element     html.Record `json:"element" yaml:"element"`
	Stylesheets []string    `json:"stylesheets" yaml:"stylesheets"`
	CSS         string      `json:"css" yaml:"css"`
	Error       string      `json:"error,omitempty" yaml:"error,omitempty"`
}

type applyOutput struct {
	File     string   `json:"file" yaml:"file"`
	Outcome  string   `json:"outcome" yaml:"outcome"`
	Replaced []string `json:"replaced,omitempty" yaml:"replaced,omitempty"`
	Appended []string `json:"appended,omitempty" yaml:"appended,omitempty"`
	Dropped  int      `json:"dropped,omitempty" yaml:"dropped,omitempty"`
	CSS      string   `json:"css,omitempty" yaml:"css,omitempty"`
}

// write prints v in the configured format, text is produced by the text
// function
func write(cmd *cli.Command, format string, v any, text func(io.Writer) error) error {
	out := cmd.Root().Writer
	switch format {
	case "", "text":
		return text(out)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func openPage(cmd *cli.Command, env *state.LocalEnv) (*stylepick.Page, error) {
	fname := cmd.Args().Get(0)
	if len(fname) == 0 {
		return nil, errors.New("no HTML file has been specified")
	}
	page, err := env.Editor.Open(fname)
	if err != nil {
		return nil, fmt.Errorf("unable to open '%s': %w", fname, err)
	}
	return page, nil
}

func listElements(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many arguments", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	page, err := openPage(cmd, env)
	if err != nil {
		return err
	}
	res := elementsOutput{
		File:       page.Path,
		Generation: page.Elements.Generation.String(),
		Elements:   page.Elements.Records(),
	}
	return write(cmd, env.Cfg.Output.Format, res, func(w io.Writer) error {
		if _, err := fmt.Fprintf(w, "# %s generation %s\n", res.File, res.Generation); err != nil {
			return err
		}
		for _, r := range res.Elements {
			if _, err := fmt.Fprintf(w, "%5d  %s\n", r.Index, describe(r)); err != nil {
				return err
			}
		}
		return nil
	})
}

// describe formats a record the way it would be written as a selector
func describe(r html.Record) string {
	var sb strings.Builder
	sb.WriteString(r.TagName)
	if r.ID != "" {
		sb.WriteString("#")
		sb.WriteString(r.ID)
	}
	for _, c := range strings.Fields(r.Class) {
		sb.WriteString(".")
		sb.WriteString(c)
	}
	return sb.String()
}

func parseRef(cmd *cli.Command) (html.Ref, error) {
	arg := cmd.Args().Get(1)
	if len(arg) == 0 {
		return html.Ref{}, errors.New("no element index has been specified")
	}
	index, err := strconv.Atoi(arg)
	if err != nil {
		return html.Ref{}, fmt.Errorf("bad element index '%s': %w", arg, err)
	}
	ref := html.Ref{Index: index}
	if g := cmd.String("generation"); len(g) > 0 {
		if ref.Generation, err = uuid.Parse(g); err != nil {
			return html.Ref{}, fmt.Errorf("bad generation '%s': %w", g, err)
		}
	}
	return ref, nil
}

func showRules(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 2 {
		env.Log.Warn("Malformed command line, too many arguments", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	page, err := openPage(cmd, env)
	if err != nil {
		return err
	}
	ref, err := parseRef(cmd)
	if err != nil {
		return err
	}

	var out rulesOutput
	res, err := env.Editor.Rules(ctx, page, ref, cmd.StringSlice("css"))
	var pe *css.ParseError
	switch {
	case errors.As(err, &pe):
		// element was resolved before stylesheets were parsed, ref is valid
		env.Log.Error("Unable to parse stylesheets", zap.Error(err))
		out = rulesOutput{Element: page.Elements.Records()[ref.Index], CSS: stylepick.Placeholder, Error: err.Error()}
	case err != nil:
		return fmt.Errorf("unable to select element: %w", err)
	default:
		out = rulesOutput{Element: res.Element, Stylesheets: res.Stylesheets, CSS: res.CSS}
	}

	env.Log.Debug("Rules selected", zap.String("element", describe(out.Element)), zap.Strings("stylesheets", out.Stylesheets))
	return write(cmd, env.Cfg.Output.Format, out, func(w io.Writer) error {
		_, err := io.WriteString(w, strings.TrimRight(out.CSS, "\n")+"\n")
		return err
	})
}

func readEdited(cmd *cli.Command) (string, error) {
	fname := cmd.Args().Get(1)
	if len(fname) == 0 {
		return "", errors.New("no edited rules have been specified")
	}
	var (
		data []byte
		err  error
	)
	if fname == "-" {
		in := cmd.Root().Reader
		if in == nil {
			in = os.Stdin
		}
		data, err = io.ReadAll(in)
	} else {
		data, err = os.ReadFile(fname)
	}
	if err != nil {
		return "", fmt.Errorf("unable to read edited rules: %w", err)
	}
	return string(data), nil
}

func applyRules(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 2 {
		env.Log.Warn("Malformed command line, too many arguments", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	page, err := openPage(cmd, env)
	if err != nil {
		return err
	}
	edited, err := readEdited(cmd)
	if err != nil {
		return err
	}

	dryRun := cmd.Bool("dry-run")
	results, applyErr := env.Editor.Apply(ctx, page, edited, cmd.StringSlice("css"), dryRun)
	if len(results) == 0 && applyErr != nil {
		return fmt.Errorf("unable to apply edited rules: %w", applyErr)
	}

	out := make([]applyOutput, 0, len(results))
	for _, r := range results {
		o := applyOutput{
			File:     r.Path,
			Outcome:  r.Outcome.String(),
			Replaced: r.Report.Replaced,
			Appended: r.Report.Appended,
			Dropped:  r.Report.Dropped,
		}
		if dryRun {
			o.CSS = r.Text
			if r.Changed {
				o.Outcome = "merged"
			}
		}
		out = append(out, o)
	}

	err = write(cmd, env.Cfg.Output.Format, out, func(w io.Writer) error {
		for _, o := range out {
			if dryRun {
				if o.CSS == "" {
					continue
				}
				if _, err := fmt.Fprintf(w, "/* %s */\n%s\n", o.File, o.CSS); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintf(w, "%-9s %s (replaced %d, appended %d)\n", o.Outcome, o.File, len(o.Replaced), len(o.Appended)); err != nil {
				return err
			}
		}
		return nil
	})
	if applyErr != nil {
		return fmt.Errorf("unable to apply edited rules: %w", applyErr)
	}
	return err
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := cmd.Root().Writer
	if len(fname) > 0 {
		f, err := os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer f.Close()
		out = f
	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Debug("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	if _, err = out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
