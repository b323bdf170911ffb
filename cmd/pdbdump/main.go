// pdbdump prints the info stream and CodeView type leaves of a PDB file as
// JSON.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/jtang613/gometa/pkg/diag"
	"github.com/jtang613/gometa/pkg/pdb"
)

// report is the JSON document written for a dump. Sections that were not
// requested are omitted.
type report struct {
	Info        *pdb.PDBInfo     `json:"info,omitempty"`
	Types       []pdb.TypeInfo   `json:"types,omitempty"`
	Methods     []pdb.TypeInfo   `json:"methods,omitempty"`
	Diagnostics []pdb.Diagnostic `json:"diagnostics,omitempty"`
}

func main() {
	showInfo := flag.Bool("info", false, "Show PDB file information")
	showTypes := flag.Bool("types", false, "List named classes, structures, unions and enums")
	showMethods := flag.Bool("methods", false, "List member function types")
	showAll := flag.Bool("all", false, "Show every section")
	strict := flag.Bool("strict", false, "Exit with status 2 if any record is malformed")
	pretty := flag.Bool("pretty", false, "Indent JSON output")
	typeIndex := flag.Uint("type", 0, "Describe a single type index")
	verbose := flag.Int("v", 0, "Log verbosity (0 = warnings only)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <pdb-file>\n\nOptions:\n", os.Args[0])
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		for _, example := range []string{"-info file.pdb", "-types -pretty file.pdb", "-all -strict file.pdb", "-type 0x1000 file.pdb"} {
			fmt.Fprintf(os.Stderr, "  %s %s\n", os.Args[0], example)
		}
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	commonlog.Configure(*verbose, nil)

	var collected diag.Diagnostics
	img, err := pdb.Open(flag.Arg(0), diag.Tee{diag.NewLogListener("pdbdump"), &collected})
	if err != nil {
		fail("Error opening PDB: %v", err)
	}
	defer img.Close()

	if *typeIndex > 0 {
		ti := img.ResolveType(uint32(*typeIndex))
		if ti == nil {
			fail("Type 0x%x not found", *typeIndex)
		}
		write(ti, *pretty)
		return
	}

	if !*showInfo && !*showTypes && !*showMethods {
		*showInfo = true
	}
	var r report
	if *showInfo || *showAll {
		r.Info = img.Info()
	}
	if *showTypes || *showAll {
		r.Types = img.Types()
	}
	if *showMethods || *showAll {
		for _, m := range img.MemberFunctions() {
			r.Methods = append(r.Methods, *img.ResolveType(uint32(m.TypeIndex())))
		}
	}
	for _, err := range collected.Errors() {
		r.Diagnostics = append(r.Diagnostics, pdb.Diagnostic{Message: err.Error()})
	}
	write(&r, *pretty)

	if *strict && collected.Len() > 0 {
		img.Close()
		os.Exit(2)
	}
}

func write(v any, pretty bool) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetEscapeHTML(false)
	if pretty {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(v); err != nil {
		fail("Error encoding JSON: %v", err)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
