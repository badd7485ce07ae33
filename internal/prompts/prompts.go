// Package prompts holds the language model instructions, loaded from an
// embedded YAML catalog and rendered with text/template.
package prompts

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultCatalog []byte

// Prompt is a system/user template pair.
type Prompt struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`

	system *template.Template
	user   *template.Template
}

// Catalog lists every prompt the bot sends.
type Catalog struct {
	Intent   Prompt `yaml:"intent"`
	Research Prompt `yaml:"research"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes a YAML catalog and compiles its templates.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "could not parse prompt catalog")
	}

	for name, p := range map[string]*Prompt{"intent": &c.Intent, "research": &c.Research} {
		if strings.TrimSpace(p.System) == "" || strings.TrimSpace(p.User) == "" {
			return nil, errors.Errorf("prompt %q needs both system and user text", name)
		}
		var err error
		if p.system, err = template.New(name + ".system").Parse(p.System); err != nil {
			return nil, errors.Wrapf(err, "prompt %q system template", name)
		}
		if p.user, err = template.New(name + ".user").Parse(p.User); err != nil {
			return nil, errors.Wrapf(err, "prompt %q user template", name)
		}
	}
	return &c, nil
}

// Render executes both templates with data.
func (p Prompt) Render(data interface{}) (system, user string, err error) {
	if p.system == nil || p.user == nil {
		return "", "", errors.New("prompt not compiled")
	}

	var buf bytes.Buffer
	if err := p.system.Execute(&buf, data); err != nil {
		return "", "", errors.Wrap(err, "render system prompt")
	}
	system = strings.TrimSpace(buf.String())

	buf.Reset()
	if err := p.user.Execute(&buf, data); err != nil {
		return "", "", errors.Wrap(err, "render user prompt")
	}
	user = strings.TrimSpace(buf.String())
	return system, user, nil
}
