package device

import (
	"encoding/json"

	"github.com/ledstack/ledwifi/pkg/capability"
)

// StateSchemaFor builds the JSON Schema describing the settable state of
// a device with the given capabilities. SetDeviceState validates payloads
// against it before any I/O, so capability misuse is rejected with a
// useful message instead of a wire error.
func StateSchemaFor(e capability.Entry) json.RawMessage {
	channel := map[string]any{"type": "integer", "minimum": 0, "maximum": 255}

	props := map[string]any{
		"state": map[string]any{"type": "string", "enum": []string{"ON", "OFF"}},
	}
	if !e.SwitchOnly {
		colorCapable := e.Supports(capability.ColorModeRGB) ||
			e.Supports(capability.ColorModeRGBW) || e.Supports(capability.ColorModeRGBWW)
		whiteCapable := e.Supports(capability.ColorModeCCT) || e.Supports(capability.ColorModeDIM) ||
			e.Supports(capability.ColorModeRGBW) || e.Supports(capability.ColorModeRGBWW)
		coolCapable := e.Supports(capability.ColorModeCCT) || e.Supports(capability.ColorModeRGBWW)

		if colorCapable {
			props["color"] = map[string]any{
				"type": "object",
				"properties": map[string]any{
					"r": channel, "g": channel, "b": channel,
				},
				"required":             []string{"r", "g", "b"},
				"additionalProperties": false,
			}
		}
		if whiteCapable {
			props["warm_white"] = channel
		}
		if coolCapable {
			props["cool_white"] = channel
		}
		props["brightness"] = channel
		props["preset"] = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"code":  map[string]any{"type": "integer", "minimum": 0x25, "maximum": 0x38},
				"speed": channel,
			},
			"required":             []string{"code"},
			"additionalProperties": false,
		}
	}

	doc := map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
		"minProperties":        1,
	}
	b, err := json.Marshal(doc)
	if err != nil {
		// The document is built from literals; marshalling cannot fail.
		panic(err)
	}
	return b
}
