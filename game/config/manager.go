package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/connectn/game/engine"
	"github.com/wricardo/connectn/game/session"
	"gopkg.in/yaml.v3"
)

var (
	ErrPresetNotFound = errors.New("preset not found")
	ErrInvalidPreset  = errors.New("invalid preset")
)

const presetExt = ".yaml"

// Preset is a named set of room parameters.
type Preset struct {
	Name               string `yaml:"name" json:"name"`
	Description        string `yaml:"description" json:"description"`
	engine.BoardConfig `yaml:",inline"`
	Minutes            int `yaml:"minutes" json:"minutes"`
	Increment          int `yaml:"increment" json:"increment"` // seconds
}

// Params converts the preset to room creation parameters.
func (p *Preset) Params() session.RoomParams {
	return session.RoomParams{
		Board:     p.BoardConfig,
		BaseTime:  time.Duration(p.Minutes) * time.Minute,
		Increment: time.Duration(p.Increment) * time.Second,
	}
}

// ValidatePreset checks a preset for correctness.
func ValidatePreset(p *Preset, maxDimension int) error {
	if p.Name == "" {
		return fmt.Errorf("preset validation: name is required")
	}
	if err := engine.ValidateBoardConfig(p.BoardConfig, maxDimension); err != nil {
		return fmt.Errorf("preset validation: %w", err)
	}
	if p.Minutes < 1 {
		return fmt.Errorf("preset validation: minutes must be at least 1, got %d", p.Minutes)
	}
	if maxMinutes := int(session.MaxBaseTime / time.Minute); p.Minutes > maxMinutes {
		return fmt.Errorf("preset validation: minutes must not exceed %d, got %d", maxMinutes, p.Minutes)
	}
	if p.Increment < 0 {
		return fmt.Errorf("preset validation: increment must not be negative, got %d", p.Increment)
	}
	if maxIncrement := int(session.MaxIncrement / time.Second); p.Increment > maxIncrement {
		return fmt.Errorf("preset validation: increment must not exceed %d seconds, got %d", maxIncrement, p.Increment)
	}
	return nil
}

// ParsePreset decodes and validates a preset document.
func ParsePreset(data []byte, maxDimension int) (*Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse preset: %w", err)
	}
	if err := ValidatePreset(&p, maxDimension); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}
	return &p, nil
}

// Manager handles preset loading and caching. An empty directory serves
// only the built-in classic preset.
type Manager struct {
	presetDir     string
	maxDimension  int
	defaultPreset *Preset
	presets       map[string]*Preset
	mu            sync.RWMutex
}

// NewManager creates a preset manager for presetDir.
func NewManager(presetDir string, maxDimension int) (*Manager, error) {
	if presetDir != "" {
		if _, err := os.Stat(presetDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("preset directory does not exist: %s", presetDir)
		}
	}

	m := &Manager{
		presetDir:    presetDir,
		maxDimension: maxDimension,
		presets:      make(map[string]*Preset),
	}
	m.loadDefaultPreset()
	return m, nil
}

// LoadPreset loads a preset by name.
func (m *Manager) LoadPreset(name string) (*Preset, error) {
	name = strings.TrimSuffix(name, presetExt)

	m.mu.RLock()
	if p, exists := m.presets[name]; exists {
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	if m.presetDir == "" || strings.ContainsAny(name, `/\`) {
		return m.builtin(name)
	}

	data, err := os.ReadFile(filepath.Join(m.presetDir, name+presetExt))
	if err != nil {
		if os.IsNotExist(err) {
			return m.builtin(name)
		}
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}

	p, err := ParsePreset(data, m.maxDimension)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.presets[name] = p
	m.mu.Unlock()
	return p, nil
}

func (m *Manager) builtin(name string) (*Preset, error) {
	if name == classicPreset.Name {
		p := classicPreset
		return &p, nil
	}
	return nil, ErrPresetNotFound
}

// ListPresets returns every valid preset sorted by name.
func (m *Manager) ListPresets() ([]*Preset, error) {
	var names []string
	if m.presetDir != "" {
		entries, err := os.ReadDir(m.presetDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read preset directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), presetExt) {
				continue
			}
			names = append(names, strings.TrimSuffix(entry.Name(), presetExt))
		}
	}

	var presets []*Preset
	hasClassic := false
	for _, name := range names {
		p, err := m.LoadPreset(name)
		if err != nil {
			// Skip invalid presets
			continue
		}
		if name == classicPreset.Name {
			hasClassic = true
		}
		presets = append(presets, p)
	}
	if !hasClassic {
		p := classicPreset
		presets = append(presets, &p)
	}

	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })
	return presets, nil
}

// GetDefault returns the default preset.
func (m *Manager) GetDefault() *Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPreset
}

// SavePreset validates and writes a preset to disk.
func (m *Manager) SavePreset(p *Preset) error {
	if err := ValidatePreset(p, m.maxDimension); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPreset, err)
	}
	if m.presetDir == "" {
		return fmt.Errorf("no preset directory configured")
	}
	if strings.ContainsAny(p.Name, `/\.`) {
		return fmt.Errorf("%w: name must not contain path characters", ErrInvalidPreset)
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal preset: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.presetDir, p.Name+presetExt), data, 0644); err != nil {
		return fmt.Errorf("failed to write preset file: %w", err)
	}

	m.mu.Lock()
	m.presets[p.Name] = p
	m.mu.Unlock()
	return nil
}

// loadDefaultPreset prefers classic from disk and falls back to the
// built-in copy.
func (m *Manager) loadDefaultPreset() {
	p, err := m.LoadPreset(classicPreset.Name)
	if err != nil {
		builtin := classicPreset
		p = &builtin
	}
	m.defaultPreset = p
}

var classicPreset = Preset{
	Name:        "classic",
	Description: "Seven by six, four in a row, pieces fall",
	BoardConfig: engine.BoardConfig{Width: 7, Height: 6, Connect: 4, Gravity: true},
	Minutes:     5,
	Increment:   3,
}
