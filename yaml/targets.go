// Package yaml reads and writes target profiles as YAML.
package yaml

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/fwojciec/crosspost"
	goyaml "github.com/goccy/go-yaml"
)

// MaxInputSize limits a targets file to 1MB.
const MaxInputSize = 1 << 20

//go:embed targets.yaml
var defaultTargets []byte

// file is the on-disk layout of a targets file.
type file struct {
	Targets []targetDoc `yaml:"targets"`
}

type targetDoc struct {
	Name         string                     `yaml:"name"`
	Capabilities crosspost.Capabilities     `yaml:"capabilities"`
	Options      crosspost.SerializeOptions `yaml:"options,omitempty"`
	Upload       *uploadDoc                 `yaml:"upload,omitempty"`
}

// uploadDoc is the union of every strategy's fields, discriminated by Mode.
type uploadDoc struct {
	Mode crosspost.UploadMode `yaml:"mode"`

	Endpoint           string               `yaml:"endpoint,omitempty"`
	AlternateEndpoints []string             `yaml:"alternateEndpoints,omitempty"`
	FieldName          string               `yaml:"fieldName,omitempty"`
	Method             string               `yaml:"method,omitempty"`
	Fields             map[string]string    `yaml:"fields,omitempty"`
	Headers            map[string]string    `yaml:"headers,omitempty"`
	CSRF               *crosspost.CSRFToken `yaml:"csrf,omitempty"`
	ResponsePath       string               `yaml:"responsePath,omitempty"`

	PageURL        string `yaml:"pageUrl,omitempty"`
	EditorSelector string `yaml:"editorSelector,omitempty"`
	ResultSelector string `yaml:"resultSelector,omitempty"`
	Timeout        string `yaml:"timeout,omitempty"`
}

// DefaultTargets returns the built-in target profiles.
func DefaultTargets() []*crosspost.Target {
	targets, err := ParseTargets(defaultTargets)
	if err != nil {
		panic(fmt.Sprintf("built-in targets: %s", err))
	}
	return targets
}

// LoadTargets reads target profiles from the file at path.
func LoadTargets(path string) ([]*crosspost.Target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, crosspost.Errorf(crosspost.ENOTFOUND, "targets file %q not found", path)
		}
		return nil, fmt.Errorf("read targets: %w", err)
	}
	return ParseTargets(data)
}

// ParseTargets decodes target profiles. Unknown fields, duplicate names and
// invalid strategies return EINVALID.
func ParseTargets(data []byte) ([]*crosspost.Target, error) {
	if len(data) == 0 {
		return nil, crosspost.Errorf(crosspost.EINVALID, "targets file is empty")
	}
	if len(data) > MaxInputSize {
		return nil, crosspost.Errorf(crosspost.EINVALID, "targets file exceeds %d bytes", MaxInputSize)
	}

	var f file
	if err := goyaml.UnmarshalWithOptions(data, &f, goyaml.Strict()); err != nil {
		return nil, crosspost.Errorf(crosspost.EINVALID, "invalid targets file: %s", err)
	}
	if len(f.Targets) == 0 {
		return nil, crosspost.Errorf(crosspost.EINVALID, "targets file declares no targets")
	}

	seen := make(map[string]bool, len(f.Targets))
	targets := make([]*crosspost.Target, 0, len(f.Targets))
	for _, doc := range f.Targets {
		if seen[doc.Name] {
			return nil, crosspost.Errorf(crosspost.EINVALID, "duplicate target %q", doc.Name)
		}
		seen[doc.Name] = true

		strategy, err := doc.Upload.strategy()
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", doc.Name, err)
		}
		t := &crosspost.Target{
			Name:         doc.Name,
			Capabilities: doc.Capabilities,
			Options:      doc.Options,
			Strategy:     strategy,
		}
		if err := t.Validate(); err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// MarshalTargets encodes targets in the layout ParseTargets reads.
// Strategy parsers set in code have no YAML form and are dropped.
func MarshalTargets(targets []*crosspost.Target) ([]byte, error) {
	f := file{Targets: make([]targetDoc, 0, len(targets))}
	for _, t := range targets {
		f.Targets = append(f.Targets, targetDoc{
			Name:         t.Name,
			Capabilities: t.Capabilities,
			Options:      t.Options,
			Upload:       uploadDocFor(t.UploadStrategy()),
		})
	}
	data, err := goyaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode targets: %w", err)
	}
	return data, nil
}

// strategy builds the declared strategy. A missing upload section or mode
// means the target hotlinks images.
func (d *uploadDoc) strategy() (crosspost.UploadStrategy, error) {
	if d == nil {
		return crosspost.ExternalURLOnly{}, nil
	}
	switch d.Mode {
	case "", crosspost.ModeExternalURLOnly:
		return crosspost.ExternalURLOnly{}, nil
	case crosspost.ModeBinaryUpload, crosspost.ModeFormUpload:
		return &crosspost.DirectUpload{
			Kind:               d.Mode,
			Endpoint:           d.Endpoint,
			AlternateEndpoints: d.AlternateEndpoints,
			FieldName:          d.FieldName,
			Method:             d.Method,
			Fields:             d.Fields,
			Headers:            d.Headers,
			PageURL:            d.PageURL,
			CSRF:               d.CSRF,
			ResponsePath:       d.ResponsePath,
		}, nil
	case crosspost.ModeDOMPasteUpload:
		var timeout time.Duration
		if d.Timeout != "" {
			var err error
			if timeout, err = time.ParseDuration(d.Timeout); err != nil {
				return nil, crosspost.Errorf(crosspost.EINVALID, "invalid paste timeout %q", d.Timeout)
			}
		}
		return &crosspost.DelegatedPaste{Config: crosspost.DOMPasteConfig{
			PageURL:        d.PageURL,
			EditorSelector: d.EditorSelector,
			ResultSelector: d.ResultSelector,
			Timeout:        timeout,
		}}, nil
	}
	return nil, crosspost.Errorf(crosspost.EINVALID, "unsupported upload mode %q", d.Mode)
}

func uploadDocFor(s crosspost.UploadStrategy) *uploadDoc {
	switch s := s.(type) {
	case *crosspost.DirectUpload:
		return &uploadDoc{
			Mode:               s.Mode(),
			Endpoint:           s.Endpoint,
			AlternateEndpoints: s.AlternateEndpoints,
			FieldName:          s.FieldName,
			Method:             s.Method,
			Fields:             s.Fields,
			Headers:            s.Headers,
			PageURL:            s.PageURL,
			CSRF:               s.CSRF,
			ResponsePath:       s.ResponsePath,
		}
	case *crosspost.DelegatedPaste:
		doc := &uploadDoc{
			Mode:           crosspost.ModeDOMPasteUpload,
			PageURL:        s.Config.PageURL,
			EditorSelector: s.Config.EditorSelector,
			ResultSelector: s.Config.ResultSelector,
		}
		if s.Config.Timeout > 0 {
			doc.Timeout = s.Config.Timeout.String()
		}
		return doc
	}
	return &uploadDoc{Mode: crosspost.ModeExternalURLOnly}
}
