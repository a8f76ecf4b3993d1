package capability

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/ledstack/ledwifi/pkg/protocol"
)

//go:embed models.json
var modelsJSON []byte

//go:embed models.schema.json
var modelsSchemaJSON []byte

// entryDoc is the JSON shape of one table entry.
type entryDoc struct {
	Model                      int               `json:"model"`
	Name                       string            `json:"name"`
	Dialect                    string            `json:"dialect"`
	ColorModes                 []string          `json:"color_modes"`
	ModeToColorMode            map[string]string `json:"mode_to_color_mode,omitempty"`
	AlwaysWritesWhiteAndColors bool              `json:"always_writes_white_and_colors,omitempty"`
	ChannelRemap               map[string]string `json:"channel_remap,omitempty"`
	Addressable                bool              `json:"addressable,omitempty"`
	Microphone                 bool              `json:"microphone,omitempty"`
	SwitchOnly                 bool              `json:"switch_only,omitempty"`
	PushUpdates                bool              `json:"push_updates,omitempty"`
}

type tableDoc struct {
	Models []entryDoc `json:"models"`
}

// Table is the loaded, read-only capability lookup.
type Table struct {
	entries map[byte]Entry
}

// Load parses and schema-validates the embedded table.
func Load() (*Table, error) {
	return load(modelsJSON)
}

func load(raw []byte) (*Table, error) {
	schemaDoc, err := jsonschema.UnmarshalJSON(bytesReader(modelsSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("parse capability schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("models.schema.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("add capability schema: %w", err)
	}
	compiled, err := c.Compile("models.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile capability schema: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytesReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse capability table: %w", err)
	}
	if err := compiled.Validate(inst); err != nil {
		return nil, fmt.Errorf("capability table invalid: %w", err)
	}

	var doc tableDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode capability table: %w", err)
	}

	t := &Table{entries: make(map[byte]Entry, len(doc.Models))}
	for _, d := range doc.Models {
		e, err := d.toEntry()
		if err != nil {
			return nil, fmt.Errorf("model 0x%02X: %w", d.Model, err)
		}
		if _, dup := t.entries[e.Model]; dup {
			return nil, fmt.Errorf("duplicate model 0x%02X", e.Model)
		}
		t.entries[e.Model] = e
	}
	return t, nil
}

func (d entryDoc) toEntry() (Entry, error) {
	dialect, err := protocol.ParseDialect(d.Dialect)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{
		Model:                      byte(d.Model),
		Name:                       d.Name,
		Dialect:                    dialect,
		AlwaysWritesWhiteAndColors: d.AlwaysWritesWhiteAndColors,
		ChannelRemap:               d.ChannelRemap,
		Addressable:                d.Addressable,
		Microphone:                 d.Microphone,
		SwitchOnly:                 d.SwitchOnly,
		PushUpdates:                d.PushUpdates,
	}
	for _, m := range d.ColorModes {
		e.ColorModes = append(e.ColorModes, ColorMode(m))
	}
	if len(d.ModeToColorMode) > 0 {
		e.ModeToColorMode = make(map[byte]ColorMode, len(d.ModeToColorMode))
		for k, v := range d.ModeToColorMode {
			var mode byte
			if _, err := fmt.Sscanf(k, "0x%02X", &mode); err != nil {
				return Entry{}, fmt.Errorf("bad mode key %q: %w", k, err)
			}
			e.ModeToColorMode[mode] = ColorMode(v)
		}
	}
	return e, nil
}

// Lookup returns the entry for a reported model identifier.
func (t *Table) Lookup(model byte) (Entry, bool) {
	e, ok := t.entries[model]
	return e, ok
}

// LookupOrDefault falls back to a generic RGB entry in the dialect the
// device already answered in, so an unlisted model still works with basic
// features.
func (t *Table) LookupOrDefault(model byte, dialect protocol.Dialect) Entry {
	if e, ok := t.entries[model]; ok {
		return e
	}
	return Entry{
		Model:      model,
		Name:       fmt.Sprintf("Unknown model 0x%02X", model),
		Dialect:    dialect,
		ColorModes: []ColorMode{ColorModeRGB},
	}
}

// Len reports the number of loaded entries.
func (t *Table) Len() int { return len(t.entries) }

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }
