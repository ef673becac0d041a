package crosspost

import "golang.org/x/time/rate"

// Capabilities describes what a target accepts.
type Capabilities struct {
	// Markdown and HTML say which content fields the target wants filled.
	Markdown bool `json:"markdown" yaml:"markdown"`
	HTML     bool `json:"html" yaml:"html"`

	// ExternalImages is true when the target renders hotlinked images.
	ExternalImages bool `json:"externalImages" yaml:"externalImages"`

	// UploadRate is the sustained uploads per second allowed against the
	// target. Zero means unlimited.
	UploadRate  float64 `json:"uploadRate,omitempty" yaml:"uploadRate,omitempty"`
	UploadBurst int     `json:"uploadBurst,omitempty" yaml:"uploadBurst,omitempty"`
}

// Limit returns the upload rate as a rate.Limit.
func (c Capabilities) Limit() rate.Limit {
	if c.UploadRate <= 0 {
		return rate.Inf
	}
	return rate.Limit(c.UploadRate)
}

// Burst returns UploadBurst, at least 1.
func (c Capabilities) Burst() int {
	if c.UploadBurst < 1 {
		return 1
	}
	return c.UploadBurst
}

// Target is a publishing destination: its name, what it accepts, how its
// content is serialized and how images reach it.
type Target struct {
	Name         string           `json:"name"`
	Capabilities Capabilities     `json:"capabilities"`
	Options      SerializeOptions `json:"options"`
	Strategy     UploadStrategy   `json:"-"`
}

// Validate returns an error if the target contains invalid fields.
func (t *Target) Validate() error {
	if t.Name == "" {
		return Errorf(EINVALID, "target name required")
	}
	if !t.Capabilities.Markdown && !t.Capabilities.HTML {
		return Errorf(EINVALID, "target %q accepts neither markdown nor html", t.Name)
	}
	if err := t.Options.Validate(); err != nil {
		return err
	}
	if t.Strategy != nil {
		if err := t.Strategy.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// UploadStrategy returns the target's strategy or ExternalURLOnly.
func (t *Target) UploadStrategy() UploadStrategy {
	if t.Strategy == nil {
		return ExternalURLOnly{}
	}
	return t.Strategy
}

// FindTarget returns the target named name or ENOTFOUND.
func FindTarget(targets []*Target, name string) (*Target, error) {
	for _, t := range targets {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, Errorf(ENOTFOUND, "target %q not found", name)
}
