package entity

import "sync"

// SettingEnabled is the time-tracking settings key holding the enabled flag.
const SettingEnabled = "enabled"

// Project holds project-scoped settings shared by every issue of the project.
type Project struct {
	mu       sync.RWMutex
	name     string
	id       *int
	settings map[string]any
}

func NewProject(name string) *Project {
	return &Project{name: name, settings: map[string]any{}}
}

// Name is the project's short key, e.g. "PROJ".
func (p *Project) Name() string { return p.name }

func (p *Project) ID() (int, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.id == nil {
		return 0, false
	}
	return *p.id, true
}

func (p *Project) SetID(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.id = &id
}

// Settings returns a copy of all settings.
func (p *Project) Settings() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]any, len(p.settings))
	for k, v := range p.settings {
		out[k] = v
	}
	return out
}

// SetSettings replaces the whole settings map.
func (p *Project) SetSettings(settings map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings = make(map[string]any, len(settings))
	for k, v := range settings {
		p.settings[k] = v
	}
}

func (p *Project) Setting(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.settings[key]
	return v, ok
}

func (p *Project) SetSetting(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings[key] = value
}

// TimeTrackingEnabled reports whether the "enabled" setting is truthy.
// Booleans, the strings "true"/"1" and non-zero numbers count as truthy.
func (p *Project) TimeTrackingEnabled() bool {
	v, ok := p.Setting(SettingEnabled)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "1"
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}
