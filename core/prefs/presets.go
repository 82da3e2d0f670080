package prefs

import "fmt"

const (
	presetsKey      = "purpose_presets"
	activePresetKey = "active_preset"
	sidebarKey      = "sidebar_visible"
)

// Preset is a named set of session instructions selectable before connect.
type Preset struct {
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
}

// Presets returns all saved presets, in saved order.
func (s *Store) Presets() ([]Preset, error) {
	var presets []Preset
	if _, err := s.Get(presetsKey, &presets); err != nil {
		return nil, err
	}
	return presets, nil
}

// SavePreset adds or replaces the preset with the same name.
func (s *Store) SavePreset(preset Preset) error {
	if preset.Name == "" {
		return fmt.Errorf("preset name must not be empty")
	}

	presets, err := s.Presets()
	if err != nil {
		return err
	}
	replaced := false
	for i, existing := range presets {
		if existing.Name == preset.Name {
			presets[i] = preset
			replaced = true
			break
		}
	}
	if !replaced {
		presets = append(presets, preset)
	}
	return s.Set(presetsKey, presets)
}

// ActivePreset returns the preset selected for the next session, if any.
func (s *Store) ActivePreset() (Preset, bool, error) {
	var name string
	found, err := s.Get(activePresetKey, &name)
	if err != nil || !found {
		return Preset{}, false, err
	}

	presets, err := s.Presets()
	if err != nil {
		return Preset{}, false, err
	}
	for _, preset := range presets {
		if preset.Name == name {
			return preset, true, nil
		}
	}
	return Preset{}, false, nil
}

// SetActivePreset records which preset the next session should use.
func (s *Store) SetActivePreset(name string) error {
	return s.Set(activePresetKey, name)
}

// SidebarVisible returns the persisted sidebar toggle; visible by default.
func (s *Store) SidebarVisible() (bool, error) {
	visible := true
	if _, err := s.Get(sidebarKey, &visible); err != nil {
		return true, err
	}
	return visible, nil
}

func (s *Store) SetSidebarVisible(visible bool) error {
	return s.Set(sidebarKey, visible)
}
