package ai

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// PromptManager 提供只读的提示词配置，支持 YAML 文件覆盖内置模板。
type PromptManager struct {
	templates map[string]string
	overrides map[string]bool
}

type promptFile struct {
	Prompts map[string]string `yaml:"prompts"`
}

// NewPromptManager creates a manager holding the built-in templates.
func NewPromptManager() *PromptManager {
	manager := &PromptManager{
		templates: make(map[string]string, len(builtinPrompts)),
		overrides: make(map[string]bool),
	}
	for name, text := range builtinPrompts {
		manager.templates[name] = text
	}
	return manager
}

// LoadPromptManager applies overrides from path on top of the built-in templates.
// An empty path or a missing file keeps the defaults.
func LoadPromptManager(path string) (*PromptManager, error) {
	manager := NewPromptManager()
	if strings.TrimSpace(path) == "" {
		return manager, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("[prompts] override file %s not found, using built-in templates", path)
			return manager, nil
		}
		return nil, fmt.Errorf("read prompt file: %w", err)
	}

	var file promptFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse prompt file %s: %w", path, err)
	}

	for name, text := range file.Prompts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		manager.templates[name] = strings.TrimRight(text, "\n")
		manager.overrides[name] = true
	}
	log.Printf("[prompts] loaded %d override(s) from %s", len(manager.overrides), path)
	return manager, nil
}

// Get returns the raw template registered under name.
func (pm *PromptManager) Get(name string) (string, error) {
	text, ok := pm.templates[name]
	if !ok {
		return "", fmt.Errorf("prompt template not found: %s", name)
	}
	return text, nil
}

// Render fills {{key}} placeholders in the named template.
func (pm *PromptManager) Render(name string, vars map[string]string) (string, error) {
	text, err := pm.Get(name)
	if err != nil {
		return "", err
	}
	return Fill(text, vars), nil
}

// MustRender is Render for built-in names; unknown names render as empty text.
func (pm *PromptManager) MustRender(name string, vars map[string]string) string {
	text, err := pm.Render(name, vars)
	if err != nil {
		log.Printf("[prompts] %v", err)
		return ""
	}
	return text
}

// Overridden reports whether name came from the override file.
func (pm *PromptManager) Overridden(name string) bool {
	return pm.overrides[name]
}

// Names lists every registered template name.
func (pm *PromptManager) Names() []string {
	names := make([]string, 0, len(pm.templates))
	for name := range pm.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fill replaces {{key}} placeholders; unknown placeholders are left untouched.
func Fill(template string, vars map[string]string) string {
	if len(vars) == 0 {
		return template
	}
	pairs := make([]string, 0, len(vars)*2)
	for key, value := range vars {
		pairs = append(pairs, "{{"+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
