package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/planbridge/planbridge/pkg/migrate"
)

// planFile is the YAML migration plan: a list of projects, each optionally
// pinned to a workspace, plus a file-wide workspace fallback.
type planFile struct {
	Workspace string                `yaml:"workspace,omitempty"`
	Projects  []migrate.ProjectSpec `yaml:"projects"`
}

func readPlanFile(path string) (planFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return planFile{}, err
	}

	var pf planFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return planFile{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(pf.Projects) == 0 {
		return planFile{}, fmt.Errorf("%s lists no projects", path)
	}
	for i, p := range pf.Projects {
		if strings.TrimSpace(p.ID) == "" {
			return planFile{}, fmt.Errorf("%s: projects[%d] has no id", path, i)
		}
	}
	return pf, nil
}
