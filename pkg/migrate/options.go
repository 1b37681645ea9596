package migrate

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/planbridge/planbridge/pkg/retry"
)

// ProjectSpec names one project to migrate and, optionally, the workspace
// to migrate it into.
type ProjectSpec struct {
	ID        string `yaml:"id" json:"id" validate:"required"`
	Workspace string `yaml:"workspace,omitempty" json:"workspace,omitempty"`
}

type Options struct {
	// Workspace is the fallback workspace name for specs that carry none.
	// Empty means each project gets a workspace named after itself.
	Workspace string

	// Concurrency bounds how many projects migrate in parallel. Levels
	// within a project are always sequential.
	Concurrency int

	Retry  retry.Options
	Logger logrus.FieldLogger

	// OnEvent, when set, receives progress events as the run advances.
	OnEvent func(Event)
}

func (o *Options) setDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.Logger = l
	}
}
