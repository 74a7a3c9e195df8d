package proc

import (
	"errors"
	"slices"
	"testing"
)

func TestEqualizerSettingsValidate(t *testing.T) {
	tests := []struct {
		name string
		s    EqualizerSettings
		ok   bool
	}{
		{"default", EqualizerSettings{Speed: 1}, true},
		{"limits", EqualizerSettings{Bass: -10, Treble: 10, Speed: 2}, true},
		{"bass high", EqualizerSettings{Bass: 11, Speed: 1}, false},
		{"treble low", EqualizerSettings{Treble: -11, Speed: 1}, false},
		{"too slow", EqualizerSettings{Speed: 0.4}, false},
		{"too fast", EqualizerSettings{Speed: 2.1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrEqualizerRange) {
				t.Fatalf("err = %v, want ErrEqualizerRange", err)
			}
		})
	}
}

func TestFilterString(t *testing.T) {
	tests := []struct {
		s    EqualizerSettings
		want string
	}{
		{EqualizerSettings{Speed: 1}, ""},
		{EqualizerSettings{}, ""},
		{EqualizerSettings{Bass: 3, Speed: 1}, "equalizer=f=60:width_type=h:width=2:g=3"},
		{EqualizerSettings{Treble: -2, Speed: 1}, "equalizer=f=10000:width_type=h:width=2:g=-2"},
		{EqualizerSettings{Bass: 1, Treble: 1, Speed: 1.25}, "equalizer=f=60:width_type=h:width=2:g=1,equalizer=f=10000:width_type=h:width=2:g=1,atempo=1.25"},
	}
	for _, tt := range tests {
		if got := tt.s.FilterString(); got != tt.want {
			t.Errorf("FilterString(%+v) = %q, want %q", tt.s, got, tt.want)
		}
		if tt.want == "" && !tt.s.IsDefault() {
			t.Errorf("%+v should be default", tt.s)
		}
	}
}

func TestEqualizer(t *testing.T) {
	eq := NewEqualizer()
	if eq.Filter() != "" {
		t.Fatalf("fresh equalizer filters: %q", eq.Filter())
	}

	p, err := eq.Apply(" Nightcore ")
	if err != nil {
		t.Fatal(err)
	}
	if p.Preset != "nightcore" || eq.Settings().Speed != 1.25 {
		t.Fatalf("Apply = %+v", p)
	}

	if _, err := eq.Apply("polka"); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("err = %v, want ErrUnknownPreset", err)
	}
	if eq.Settings().Preset != "nightcore" {
		t.Fatal("failed Apply changed settings")
	}

	if err := eq.Set(EqualizerSettings{Bass: 4}); err != nil {
		t.Fatal(err)
	}
	if s := eq.Settings(); s.Speed != 1.0 || s.Preset != "" || s.Bass != 4 {
		t.Fatalf("Set = %+v", s)
	}

	if err := eq.Set(EqualizerSettings{Bass: 40}); !errors.Is(err, ErrEqualizerRange) {
		t.Fatalf("err = %v", err)
	}
	if eq.Settings().Bass != 4 {
		t.Fatal("rejected Set changed settings")
	}

	eq.Reset()
	if !eq.Settings().IsDefault() {
		t.Fatalf("Reset = %+v", eq.Settings())
	}
}

func TestPresetNames(t *testing.T) {
	names := PresetNames()
	if len(names) != len(Presets) || !slices.IsSorted(names) {
		t.Fatalf("PresetNames = %v", names)
	}
	for _, n := range names {
		if err := Presets[n].Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", n, err)
		}
	}
}
