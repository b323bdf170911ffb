package dotnet

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// MetadataBuilderFlags select which heaps of a module's original metadata
// are imported before new content is added. Each flag is independent.
type MetadataBuilderFlags uint32

const (
	PreserveBlobIndices MetadataBuilderFlags = 1 << iota
	PreserveGuidIndices
	PreserveStringIndices
	PreserveUserStringIndices

	PreserveNone MetadataBuilderFlags = 0
	PreserveAll                       = PreserveBlobIndices | PreserveGuidIndices | PreserveStringIndices | PreserveUserStringIndices
)

var flagNames = []struct {
	flag MetadataBuilderFlags
	name string
}{
	{PreserveBlobIndices, "blob"},
	{PreserveGuidIndices, "guid"},
	{PreserveStringIndices, "strings"},
	{PreserveUserStringIndices, "us"},
}

func (f MetadataBuilderFlags) String() string {
	var parts []string
	for _, n := range flagNames {
		if f&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// DefaultCodeRVA is where method bodies start when no RVA is configured,
// just past a typical CLI header.
const DefaultCodeRVA = 0x2050

// BuilderParameters configure a Builder.
type BuilderParameters struct {
	Flags MetadataBuilderFlags

	// Version is the runtime version string of the metadata root.
	Version string

	// CodeRVA is the RVA the first method body is placed at.
	CodeRVA uint32
}

// DefaultParameters preserves nothing and uses the default version and RVA.
func DefaultParameters() BuilderParameters {
	return BuilderParameters{CodeRVA: DefaultCodeRVA}
}

// Config is the TOML form of BuilderParameters.
type Config struct {
	Metadata MetadataConfig `toml:"metadata"`
}

// MetadataConfig is the [metadata] table.
type MetadataConfig struct {
	Version                   string `toml:"version"`
	CodeRVA                   uint32 `toml:"code-rva"`
	PreserveBlobIndices       bool   `toml:"preserve-blob-indices"`
	PreserveGuidIndices       bool   `toml:"preserve-guid-indices"`
	PreserveStringIndices     bool   `toml:"preserve-string-indices"`
	PreserveUserStringIndices bool   `toml:"preserve-user-string-indices"`
}

// Parameters converts the configuration, filling in defaults.
func (c *Config) Parameters() BuilderParameters {
	p := DefaultParameters()
	m := c.Metadata
	if m.Version != "" {
		p.Version = m.Version
	}
	if m.CodeRVA != 0 {
		p.CodeRVA = m.CodeRVA
	}
	set := func(on bool, f MetadataBuilderFlags) {
		if on {
			p.Flags |= f
		}
	}
	set(m.PreserveBlobIndices, PreserveBlobIndices)
	set(m.PreserveGuidIndices, PreserveGuidIndices)
	set(m.PreserveStringIndices, PreserveStringIndices)
	set(m.PreserveUserStringIndices, PreserveUserStringIndices)
	return p
}

// ParseParameters reads builder parameters from TOML. Unknown keys are
// rejected.
func ParseParameters(data []byte) (BuilderParameters, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return BuilderParameters{}, fmt.Errorf("failed to parse builder config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return BuilderParameters{}, fmt.Errorf("unknown builder config key %q", undecoded[0].String())
	}
	return c.Parameters(), nil
}

// LoadParameters reads builder parameters from a TOML file.
func LoadParameters(path string) (BuilderParameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BuilderParameters{}, fmt.Errorf("cannot read %s: %w", path, err)
	}
	p, err := ParseParameters(data)
	if err != nil {
		return BuilderParameters{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
