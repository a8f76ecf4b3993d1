package capability

import (
	"testing"

	"github.com/ledstack/ledwifi/pkg/protocol"
)

func TestLoadEmbeddedTable(t *testing.T) {
	table, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.Len() == 0 {
		t.Fatal("empty table")
	}

	e, ok := table.Lookup(0x45)
	if !ok {
		t.Fatal("model 0x45 missing")
	}
	if e.Dialect != protocol.DialectStandard8 || !e.Supports(ColorModeRGB) {
		t.Errorf("unexpected entry for 0x45: %+v", e)
	}

	e, ok = table.Lookup(0x01)
	if !ok || e.Dialect != protocol.DialectOriginal {
		t.Errorf("model 0x01 should be the original dialect, got %+v", e)
	}

	e, ok = table.Lookup(0xA3)
	if !ok || !e.Addressable || e.Dialect != protocol.DialectAddressableA3 {
		t.Errorf("model 0xA3 should be addressable A3, got %+v", e)
	}
}

func TestModeToColorMode(t *testing.T) {
	table, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	e, ok := table.Lookup(0x25)
	if !ok {
		t.Fatal("model 0x25 missing")
	}
	if got := e.ModeToColorMode[0x02]; got != ColorModeCCT {
		t.Errorf("mode 0x02 = %q, want CCT", got)
	}
	if got := e.ModeToColorMode[0x03]; got != ColorModeRGB {
		t.Errorf("mode 0x03 = %q, want RGB", got)
	}
}

func TestChannelRemap(t *testing.T) {
	table, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	e, ok := table.Lookup(0x41)
	if !ok {
		t.Fatal("model 0x41 missing")
	}
	if got := e.RemapField(protocol.FieldWarmWhite); got != protocol.FieldRed {
		t.Errorf("warm white remap = %q, want red", got)
	}
	if got := e.RemapField(protocol.FieldGreen); got != protocol.FieldGreen {
		t.Errorf("unremapped field changed: %q", got)
	}
}

func TestLookupOrDefault(t *testing.T) {
	table, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	e := table.LookupOrDefault(0xEE, protocol.DialectStandard8)
	if e.Model != 0xEE || e.Dialect != protocol.DialectStandard8 || !e.Supports(ColorModeRGB) {
		t.Errorf("default entry wrong: %+v", e)
	}
}

func TestLoadRejectsInvalidTable(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{`},
		{"missing models", `{}`},
		{"bad dialect", `{"models":[{"model":1,"name":"x","dialect":"nope","color_modes":["RGB"]}]}`},
		{"model out of range", `{"models":[{"model":300,"name":"x","dialect":"standard_8","color_modes":["RGB"]}]}`},
		{"bad color mode", `{"models":[{"model":1,"name":"x","dialect":"standard_8","color_modes":["HSL"]}]}`},
		{"duplicate model", `{"models":[
			{"model":1,"name":"a","dialect":"standard_8","color_modes":["RGB"]},
			{"model":1,"name":"b","dialect":"standard_8","color_modes":["RGB"]}]}`},
	}
	for _, tt := range tests {
		if _, err := load([]byte(tt.raw)); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}
