package proc

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

const (
	MinGain  = -10
	MaxGain  = 10
	MinSpeed = 0.5
	MaxSpeed = 2.0
)

// EqualizerSettings is one bass/treble/speed combination.
type EqualizerSettings struct {
	Bass   int     `json:"bass"`
	Treble int     `json:"treble"`
	Speed  float64 `json:"speed"`
	Preset string  `json:"preset,omitempty"`
}

// Presets are the named settings selectable by the equalizer command.
var Presets = map[string]EqualizerSettings{
	"rock":       {Bass: 3, Treble: 2, Speed: 1.0},
	"pop":        {Bass: 1, Treble: 3, Speed: 1.0},
	"jazz":       {Bass: -1, Treble: 1, Speed: 1.0},
	"classical":  {Bass: 0, Treble: 0, Speed: 1.0},
	"electronic": {Bass: 5, Treble: 4, Speed: 1.0},
	"bass_boost": {Bass: 8, Treble: -2, Speed: 1.0},
	"nightcore":  {Bass: -3, Treble: 2, Speed: 1.25},
	"slowdown":   {Bass: 2, Treble: -1, Speed: 0.8},
	"clear":      {Bass: 0, Treble: 0, Speed: 1.0},
}

// PresetNames lists preset keys alphabetically.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for k := range Presets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (s EqualizerSettings) Validate() error {
	if s.Bass < MinGain || s.Bass > MaxGain || s.Treble < MinGain || s.Treble > MaxGain {
		return ErrEqualizerRange
	}
	if s.Speed < MinSpeed || s.Speed > MaxSpeed {
		return ErrEqualizerRange
	}
	return nil
}

// IsDefault reports whether the settings leave the audio untouched.
func (s EqualizerSettings) IsDefault() bool {
	return s.Bass == 0 && s.Treble == 0 && (s.Speed == 0 || s.Speed == 1.0)
}

// FilterString renders the ffmpeg -af chain; empty means no filter is needed.
func (s EqualizerSettings) FilterString() string {
	var parts []string
	if s.Bass != 0 {
		parts = append(parts, "equalizer=f=60:width_type=h:width=2:g="+strconv.Itoa(s.Bass))
	}
	if s.Treble != 0 {
		parts = append(parts, "equalizer=f=10000:width_type=h:width=2:g="+strconv.Itoa(s.Treble))
	}
	if s.Speed != 0 && s.Speed != 1.0 {
		parts = append(parts, "atempo="+strconv.FormatFloat(s.Speed, 'f', -1, 64))
	}
	return strings.Join(parts, ",")
}

// Equalizer holds the live settings of one guild. Commands write, the driver reads.
type Equalizer struct {
	mu sync.RWMutex
	s  EqualizerSettings
}

func NewEqualizer() *Equalizer {
	return &Equalizer{s: EqualizerSettings{Speed: 1.0}}
}

func (e *Equalizer) Settings() EqualizerSettings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.s
}

// Set replaces the settings after validation and clears any preset name.
func (e *Equalizer) Set(s EqualizerSettings) error {
	if s.Speed == 0 {
		s.Speed = 1.0
	}
	if err := s.Validate(); err != nil {
		return err
	}
	s.Preset = ""
	e.mu.Lock()
	e.s = s
	e.mu.Unlock()
	return nil
}

// Apply loads a named preset.
func (e *Equalizer) Apply(name string) (EqualizerSettings, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	p, ok := Presets[key]
	if !ok {
		return EqualizerSettings{}, ErrUnknownPreset
	}
	p.Preset = key
	e.mu.Lock()
	e.s = p
	e.mu.Unlock()
	return p, nil
}

func (e *Equalizer) Reset() {
	e.mu.Lock()
	e.s = EqualizerSettings{Speed: 1.0}
	e.mu.Unlock()
}

// Filter returns the current filter chain, or "" when no filtering is active.
func (e *Equalizer) Filter() string {
	return e.Settings().FilterString()
}
