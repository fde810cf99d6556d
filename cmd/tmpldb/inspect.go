package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/pthm/tmpldb/lib/store"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var errRecordsNeedFile = errors.New("--records requires a FILE argument")

func newInspectCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [FILE]",
		Short: "List record files or dump the records of one file",
		Example: `  tmpldb inspect
  tmpldb inspect --dir ./app_data --output json
  tmpldb inspect app_data/tmpldb.example.PostMeta.rd --records`,
		Args: cobra.MaximumNArgs(1),
	}

	cmd.Flags().StringP("output", "o", formatTable, "output format: table, json or yaml")
	cmd.Flags().Bool("records", false, "dump the decoded records of FILE")
	_ = v.BindPFlag("output", cmd.Flags().Lookup("output"))
	_ = v.BindPFlag("records", cmd.Flags().Lookup("records"))

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(v.GetString("output"))
		switch format {
		case formatTable, formatJSON, formatYAML:
		default:
			return fmt.Errorf("unknown output format %q", format)
		}

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			if v.GetBool("records") {
				return inspectRecords(out, args[0], format)
			}
			return writeFiles(out, []store.FileInfo{store.Stat(args[0])}, format)
		}
		if v.GetBool("records") {
			return errRecordsNeedFile
		}

		files, err := store.New(v.GetString("dir")).List()
		if err != nil {
			return fmt.Errorf("list %s: %w", v.GetString("dir"), err)
		}
		return writeFiles(out, files, format)
	}
	return cmd
}

func writeFiles(w io.Writer, files []store.FileInfo, format string) error {
	switch format {
	case formatJSON:
		return writeJSON(w, files)
	case formatYAML:
		return yaml.NewEncoder(w).Encode(files)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFINGERPRINT\tRECORDS\tSIZE\tERROR")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", f.Name, f.Fingerprint, f.Records, f.Size, f.Err)
	}
	return tw.Flush()
}

type recordDump struct {
	File        string           `json:"file" yaml:"file"`
	Fingerprint int32            `json:"fingerprint" yaml:"fingerprint"`
	Records     []map[string]any `json:"records" yaml:"records"`
}

func inspectRecords(w io.Writer, path, format string) error {
	records, fp, err := store.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	dump := recordDump{File: path, Fingerprint: fp, Records: records}
	switch format {
	case formatJSON:
		return writeJSON(w, dump)
	case formatYAML:
		return yaml.NewEncoder(w).Encode(dump)
	}

	fmt.Fprintf(w, "%s (fingerprint %d, %d records)\n", path, fp, len(records))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tVIEW TYPE\tCONTENT\tFIELDS")
	for i, r := range records {
		fmt.Fprintf(tw, "%d\t%v\t%d bytes\t%s\n", i, r["ViewTypeName"], contentLen(r), fieldSummary(r))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func contentLen(r map[string]any) int {
	s, _ := r["RenderedContent"].(string)
	return len(s)
}

// fieldSummary renders the mapped fields of a record as sorted key=value
// pairs, truncating long values.
func fieldSummary(r map[string]any) string {
	keys := make([]string, 0, len(r))
	for k := range r {
		if k == "ViewTypeName" || k == "RenderedContent" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		val := fmt.Sprint(r[k])
		if len(val) > 40 {
			val = val[:37] + "..."
		}
		parts = append(parts, k+"="+val)
	}
	return strings.Join(parts, " ")
}
