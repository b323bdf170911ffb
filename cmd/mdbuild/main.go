// mdbuild is a CLI tool that builds an ECMA-335 metadata directory from a
// TOML module description.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/jtang613/gometa/pkg/dotnet"
	"github.com/jtang613/gometa/pkg/dotnet/metadata"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "Builder configuration (TOML)")
	output := flag.String("o", "", "Output path prefix (default: module description name)")
	base := flag.String("base", "", "Prefix of a previous build whose heaps may be preserved")
	printManifest := flag.Bool("manifest", false, "Print the build manifest as JSON")
	verbose := flag.Int("v", 0, "Log verbosity (0 = warnings only)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <module.toml>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Writes <prefix>.meta, <prefix>.il and <prefix>.manifest.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s sample.toml\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config preserve.toml -base out/sample -o out/sample2 sample.toml\n", os.Args[0])
	}

	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	commonlog.Configure(*verbose, nil)
	log := commonlog.GetLogger("mdbuild")

	params := dotnet.DefaultParameters()
	if *configPath != "" {
		var err error
		if params, err = dotnet.LoadParameters(*configPath); err != nil {
			fail("Error loading config: %v", err)
		}
	}

	description, err := dotnet.LoadModuleDescription(flag.Arg(0))
	if err != nil {
		fail("Error loading module description: %v", err)
	}
	module, err := description.Module()
	if err != nil {
		fail("Error in module description: %v", err)
	}

	if *base != "" {
		data, err := os.ReadFile(*base + ".meta")
		if err != nil {
			fail("Error reading base metadata: %v", err)
		}
		if module.Original, err = metadata.Read(data); err != nil {
			fail("Error parsing base metadata: %v", err)
		}
		log.Infof("preserving %s heaps of %s", params.Flags, *base)
	}

	dir, err := dotnet.NewBuilder(params).Build(module)
	if err != nil {
		fail("Error building module: %v", err)
	}

	prefix := *output
	if prefix == "" {
		prefix = strings.TrimSuffix(flag.Arg(0), filepath.Ext(flag.Arg(0)))
	}
	meta, err := dir.Metadata.Bytes()
	if err != nil {
		fail("Error serializing metadata: %v", err)
	}
	manifest, err := dotnet.MarshalManifest(dir.Manifest)
	if err != nil {
		fail("Error encoding manifest: %v", err)
	}
	for _, out := range []struct {
		ext  string
		data []byte
	}{
		{".meta", meta},
		{".il", dir.IL},
		{".manifest", manifest},
	} {
		if err := os.WriteFile(prefix+out.ext, out.data, 0o644); err != nil {
			fail("Error writing output: %v", err)
		}
		log.Infof("wrote %s%s (%d bytes)", prefix, out.ext, len(out.data))
	}

	if *printManifest {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(dir.Manifest); err != nil {
			fail("Error encoding JSON: %v", err)
		}
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
