// Package prompt 는 embed 된 YAML 프롬프트 파일을 템플릿으로 로드한다.
//
// 디렉터리의 각 파일(name.yml)은 문자열 필드만 가진 매핑이고,
// 필드 값은 로드 시점에 Template 으로 파싱된다.
package prompt

import (
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bundle: 한 도메인의 프롬프트 템플릿 모음입니다.
type Bundle struct {
	label     string
	templates map[string]map[string]*Template
}

// LoadBundle: fsys 의 dir 아래 *.yml, *.yaml 파일을 모두 로드합니다.
func LoadBundle(fsys fs.FS, dir string, label string) (*Bundle, error) {
	var paths []string
	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matched, err := fs.Glob(fsys, path.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob %s prompts: %w", label, err)
		}
		paths = append(paths, matched...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no %s prompts found in %s", label, dir)
	}

	templates := make(map[string]map[string]*Template, len(paths))
	for _, filePath := range paths {
		name := strings.TrimSuffix(path.Base(filePath), path.Ext(filePath))
		if _, dup := templates[name]; dup {
			return nil, fmt.Errorf("duplicate %s prompt %q", label, name)
		}
		fields, err := loadFile(fsys, filePath)
		if err != nil {
			return nil, err
		}
		templates[name] = fields
	}
	return &Bundle{label: label, templates: templates}, nil
}

func loadFile(fsys fs.FS, filePath string) (map[string]*Template, error) {
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse prompt yaml %s: %w", filePath, err)
	}

	fields := make(map[string]*Template, len(raw))
	for key, value := range raw {
		tmpl, err := ParseTemplate(value)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", filePath, key, err)
		}
		fields[key] = tmpl
	}
	return fields, nil
}

// Require: 각 프롬프트에 필드가 있고, 그 필드가 지정된 값만 요구하는지 확인합니다.
// 기동 시 한 번 호출해 배포된 프롬프트와 코드가 어긋나지 않게 합니다.
func (b *Bundle) Require(fields map[string]map[string][]string) error {
	for name, byField := range fields {
		for field, allowed := range byField {
			tmpl, err := b.template(name, field)
			if err != nil {
				return err
			}
			for _, placeholder := range tmpl.Placeholders() {
				if !slices.Contains(allowed, placeholder) {
					return fmt.Errorf("%s prompt %s.%s uses unknown placeholder %q", b.label, name, field, placeholder)
				}
			}
		}
	}
	return nil
}

// Render: name 프롬프트의 field 템플릿을 값으로 채웁니다.
func (b *Bundle) Render(name string, field string, values map[string]string) (string, error) {
	tmpl, err := b.template(name, field)
	if err != nil {
		return "", err
	}
	out, err := tmpl.Render(values)
	if err != nil {
		return "", fmt.Errorf("render %s.%s: %w", name, field, err)
	}
	return out, nil
}

func (b *Bundle) template(name string, field string) (*Template, error) {
	if b == nil {
		return nil, fmt.Errorf("prompts not initialized")
	}
	fields, ok := b.templates[name]
	if !ok {
		return nil, fmt.Errorf("%s prompt not found: %s", b.label, name)
	}
	tmpl, ok := fields[field]
	if !ok {
		return nil, fmt.Errorf("%s prompt field missing: %s.%s", b.label, name, field)
	}
	return tmpl, nil
}
