package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Output prints either human text or JSON.
type Output struct {
	w        io.Writer
	errW     io.Writer
	jsonMode bool
}

func NewOutput(w, errW io.Writer, jsonMode bool) *Output {
	return &Output{w: w, errW: errW, jsonMode: jsonMode}
}

func (o *Output) Success(format string, args ...any) {
	if o.jsonMode {
		return
	}
	fmt.Fprintf(o.w, "ok: "+format+"\n", args...)
}

func (o *Output) Info(format string, args ...any) {
	if o.jsonMode {
		return
	}
	fmt.Fprintf(o.w, format+"\n", args...)
}

func (o *Output) Error(format string, args ...any) {
	if o.jsonMode {
		return
	}
	fmt.Fprintf(o.errW, "error: "+format+"\n", args...)
}

func (o *Output) KeyValue(key, value string) {
	if o.jsonMode {
		return
	}
	fmt.Fprintf(o.w, "  %-16s %s\n", key+":", value)
}

// Table prints aligned rows under a header.
func (o *Output) Table(header []string, rows [][]string) {
	if o.jsonMode {
		return
	}
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	tw.Flush()
}

// JSON prints data as indented JSON.
func (o *Output) JSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

// Result prints data as JSON in json mode and calls human otherwise.
func (o *Output) Result(data any, human func()) {
	if o.jsonMode {
		o.JSON(data)
		return
	}
	human()
}
