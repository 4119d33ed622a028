package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/jonathan/license-delivery/internal/types"
)

// artifactData is the template input for artifact locations.
type artifactData struct {
	Customer  string
	ParentKey string
	ChildKey  string
	DateRange string
}

// ArtifactNamer derives the deliverable's directory and file name.
type ArtifactNamer struct {
	dir  *template.Template
	name *template.Template
}

// NewArtifactNamer parses the directory and file name templates.
func NewArtifactNamer(dirTemplate, nameTemplate string) (*ArtifactNamer, error) {
	dir, err := template.New("dir").Option("missingkey=error").Parse(dirTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact dir template: %w", err)
	}
	name, err := template.New("name").Option("missingkey=error").Parse(nameTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact name template: %w", err)
	}
	return &ArtifactNamer{dir: dir, name: name}, nil
}

// Build renders the artifact for a parent/child pair.
func (n *ArtifactNamer) Build(customer, parentKey, childKey string, r types.DateRange) (types.Artifact, error) {
	data := artifactData{
		Customer:  customer,
		ParentKey: parentKey,
		ChildKey:  childKey,
		DateRange: r.String(),
	}

	var dir, name strings.Builder
	if err := n.dir.Execute(&dir, data); err != nil {
		return types.Artifact{}, fmt.Errorf("failed to render artifact dir: %w", err)
	}
	if err := n.name.Execute(&name, data); err != nil {
		return types.Artifact{}, fmt.Errorf("failed to render artifact name: %w", err)
	}

	fileName := strings.TrimSpace(name.String())
	if fileName == "" || strings.ContainsAny(fileName, `/\`) {
		return types.Artifact{}, fmt.Errorf("artifact name %q is not a plain file name", fileName)
	}

	return types.Artifact{Dir: filepath.Clean(dir.String()), FileName: fileName}, nil
}
