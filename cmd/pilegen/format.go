package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/LeoAKALiu/BlenderProc/pkg/texture"
	"github.com/LeoAKALiu/BlenderProc/pkg/validation"
)

func printValidationReport(w io.Writer, r *validation.Report) {
	if len(r.Errors) > 0 {
		fmt.Fprintf(w, "ERRORS (%d):\n", len(r.Errors))
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  [%s] %s\n", e.Level, e.Message)
			if e.SpecPath != "" {
				fmt.Fprintf(w, "    -> %s = %v\n", e.SpecPath, e.ActualValue)
			}
			if e.Expected != "" {
				fmt.Fprintf(w, "    expected: %s\n", e.Expected)
			}
			if e.ConflictWith != "" {
				fmt.Fprintf(w, "    conflicts with: %s\n", e.ConflictWith)
			}
			for _, s := range e.Suggestions {
				fmt.Fprintf(w, "    * %s\n", s)
			}
		}
		fmt.Fprintln(w)
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(w, "WARNINGS (%d):\n", len(r.Warnings))
		for _, wr := range r.Warnings {
			fmt.Fprintf(w, "  [%s] %s\n", wr.Level, wr.Message)
			if wr.SpecPath != "" {
				fmt.Fprintf(w, "    -> %s = %v\n", wr.SpecPath, wr.ActualValue)
			}
			if wr.Expected != "" {
				fmt.Fprintf(w, "    expected: %s\n", wr.Expected)
			}
			for _, s := range wr.Suggestions {
				fmt.Fprintf(w, "    * %s\n", s)
			}
		}
		fmt.Fprintln(w)
	}

	if len(r.Info) > 0 {
		fmt.Fprintf(w, "INFO (%d):\n", len(r.Info))
		for _, i := range r.Info {
			fmt.Fprintf(w, "  [%s] %s\n", i.Level, i.Message)
		}
		fmt.Fprintln(w)
	}

	if r.Valid {
		fmt.Fprintf(w, "Result: VALID (%s)\n", r.Summary)
	} else {
		fmt.Fprintf(w, "Result: INVALID (%s)\n", r.Summary)
	}
}

func printTextureLibrary(w io.Writer, lib texture.Library) {
	fmt.Fprintf(w, "%-10s %-32s %s\n", "Kind", "Set", "Maps")
	fmt.Fprintf(w, "%-10s %-32s %s\n", "----------", "--------------------------------", "----")
	total := 0
	for _, k := range texture.TerrainKinds {
		sets := lib[k]
		if len(sets) == 0 {
			fmt.Fprintf(w, "%-10s %-32s\n", k, "(none)")
			continue
		}
		for _, s := range sets {
			fmt.Fprintf(w, "%-10s %-32s %s\n", k, s.Name, mapList(s))
			total++
		}
	}
	fmt.Fprintf(w, "\n%d texture sets\n", total)
}

func mapList(s texture.Set) string {
	out := ""
	for _, m := range []struct {
		label, path string
	}{
		{"color", s.Color},
		{"normal", s.Normal},
		{"rough", s.Roughness},
		{"disp", s.Displacement},
		{"ao", s.AO},
	} {
		if m.path == "" {
			continue
		}
		if out != "" {
			out += ","
		}
		out += m.label
	}
	if out == "" {
		return filepath.Base(s.Dir)
	}
	return out
}
