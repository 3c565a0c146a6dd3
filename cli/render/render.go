// Package render formats msival CLI output.
//
// Format selection:
//   - If stdout is a TTY, default to table
//   - Otherwise default to json
//   - --format always overrides the default
//
// Validation outputs are streamed as they are delivered: one JSON object per
// line, one YAML document per output, or one table line per output.
// --no-color affects table output only.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/justapithecus/msival/cli/tui"
	"github.com/justapithecus/msival/journal"
	"github.com/justapithecus/msival/types"
)

// Format is an output format.
type Format string

// Supported formats.
const (
	FormatJSON  Format = "json"
	FormatTable Format = "table"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a format string. The empty string is returned as-is so
// the caller can apply a default.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON, nil
	case "table":
		return FormatTable, nil
	case "yaml":
		return FormatYAML, nil
	case "":
		return "", nil
	default:
		return "", fmt.Errorf("invalid format: %q (must be json, table, or yaml)", s)
	}
}

// Renderer writes command output in one format.
type Renderer struct {
	format  Format
	noColor bool
	out     io.Writer
}

// NewRenderer creates a renderer from the --format and --no-color flags.
// fallback is used when --format is unset, before TTY detection.
func NewRenderer(c *cli.Context, fallback string) (*Renderer, error) {
	formatStr := c.String("format")
	if formatStr == "" {
		formatStr = fallback
	}
	format, err := ParseFormat(formatStr)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = DefaultFormat(os.Stdout)
	}
	return &Renderer{
		format:  format,
		noColor: c.Bool("no-color"),
		out:     os.Stdout,
	}, nil
}

// NewRendererWithWriter creates a renderer over out.
func NewRendererWithWriter(format Format, noColor bool, out io.Writer) *Renderer {
	return &Renderer{
		format:  format,
		noColor: noColor,
		out:     out,
	}
}

// DefaultFormat returns table for a terminal and json otherwise.
func DefaultFormat(f *os.File) Format {
	if isTTY(f) {
		return FormatTable
	}
	return FormatJSON
}

// Format returns the renderer's format.
func (r *Renderer) Format() Format {
	return r.format
}

// Render writes data in the configured format.
func (r *Renderer) Render(data any) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(r.out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable:
		return r.renderTable(data)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// RenderOutput writes one delivered output. JSON is compact so a stream of
// outputs is newline-delimited.
func (r *Renderer) RenderOutput(o *types.Output) error {
	switch r.format {
	case FormatJSON:
		return json.NewEncoder(r.out).Encode(o)
	case FormatYAML:
		data, err := yaml.Marshal(o)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(r.out, "---\n%s", data)
		return err
	case FormatTable:
		_, err := fmt.Fprintln(r.out, r.outputLine(o))
		return err
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// RenderSummary writes the run summary after a stream of outputs: a compact
// JSON line, a YAML document, or the item table.
func (r *Renderer) RenderSummary(s *types.RunSummary) error {
	switch r.format {
	case FormatJSON:
		return json.NewEncoder(r.out).Encode(s)
	case FormatYAML:
		data, err := yaml.Marshal(s)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(r.out, "---\n%s", data)
		return err
	case FormatTable:
		fmt.Fprintln(r.out)
		return r.renderSummary(s)
	default:
		return fmt.Errorf("unknown format: %s", r.format)
	}
}

// RenderTUI starts the TUI for viewType.
func (r *Renderer) RenderTUI(viewType string, data any) error {
	if !tui.IsTUISupported(viewType) {
		return fmt.Errorf("--tui is not supported for %s", viewType)
	}
	return tui.Run(viewType, data)
}

func (r *Renderer) outputLine(o *types.Output) string {
	if !r.noColor {
		return tui.OutputLine(o)
	}
	action := o.Action
	if action == "" {
		action = "-"
	}
	return fmt.Sprintf("%4d %-11s %-8s %s", o.Seq, tui.Severity(o), action, o.Text())
}

func (r *Renderer) renderTable(data any) error {
	switch v := data.(type) {
	case *types.RunSummary:
		return r.renderSummary(v)
	case *journal.Journal:
		for _, o := range v.Outputs {
			if _, err := fmt.Fprintln(r.out, r.outputLine(o)); err != nil {
				return err
			}
		}
		if v.Summary == nil {
			_, err := fmt.Fprintln(r.out, "(incomplete journal: no run summary)")
			return err
		}
		fmt.Fprintln(r.out)
		return r.renderSummary(v.Summary)
	}

	rv := reflect.ValueOf(data)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Slice {
		return r.renderRows(rv)
	}
	return r.renderFields(rv)
}

// renderSummary writes one row per item followed by the run outcome.
func (r *Renderer) renderSummary(s *types.RunSummary) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ITEM\tSTATUS\tACTIONS\tERRORS\tWARNINGS\tMESSAGES\tSUPPRESSED\tDURATION")
	for _, it := range s.Items {
		status := string(it.Status)
		if it.Error != "" {
			status += ": " + it.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d\t%d\t%d\t%d\t%dms\n",
			it.Path, status, it.ActionsRun, it.ActionsSelected,
			it.Errors, it.Warnings, it.Messages, it.Suppressed, it.DurationMs)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	outcome := string(s.Outcome)
	if !r.noColor {
		outcome = tui.OutcomeStyle(outcome).Render(outcome)
	}
	line := fmt.Sprintf("run %s: %s (%d outputs, %dms)", s.RunID, outcome, s.Outputs, s.DurationMs)
	if s.Message != "" {
		line += ": " + s.Message
	}
	_, err := fmt.Fprintln(r.out, line)
	return err
}

// renderRows writes a slice of structs as a table with a header row.
func (r *Renderer) renderRows(v reflect.Value) error {
	if v.Len() == 0 {
		_, err := fmt.Fprintln(r.out, "(no results)")
		return err
	}
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	var headers []string
	for i := 0; i < v.Len(); i++ {
		fields := structFields(v.Index(i))
		if i == 0 {
			for _, f := range fields {
				headers = append(headers, strings.ToUpper(f.name))
			}
			fmt.Fprintln(w, strings.Join(headers, "\t"))
		}
		cells := make([]string, len(fields))
		for j, f := range fields {
			cells[j] = f.value
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

// renderFields writes a struct or map as name/value pairs.
func (r *Renderer) renderFields(v reflect.Value) error {
	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	switch v.Kind() {
	case reflect.Struct:
		for _, f := range structFields(v) {
			fmt.Fprintf(w, "%s:\t%s\n", f.name, f.value)
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			fmt.Fprintf(w, "%v:\t%s\n", iter.Key().Interface(), cell(iter.Value()))
		}
	default:
		if v.IsValid() {
			fmt.Fprintf(w, "%v\n", v.Interface())
		}
	}
	return w.Flush()
}

type field struct {
	name  string
	value string
}

func structFields(v reflect.Value) []field {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return []field{{name: "value", value: cell(v)}}
	}
	t := v.Type()
	fields := make([]field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := strings.ToLower(sf.Name)
		if tag, _, _ := strings.Cut(sf.Tag.Get("json"), ","); tag == "-" {
			continue
		} else if tag != "" {
			name = tag
		}
		fields = append(fields, field{name: name, value: cell(v.Field(i))})
	}
	return fields
}

func cell(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	if v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return fmt.Sprintf("[%d items]", v.Len())
	case reflect.Map:
		return fmt.Sprintf("{%d keys}", v.Len())
	case reflect.Struct:
		return "{...}"
	default:
		return fmt.Sprintf("%v", v.Interface())
	}
}

func isTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
