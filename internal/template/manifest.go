package template

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"courier/internal/config"
	"courier/internal/frames"
)

// Set holds the resolved delivery templates for a project.
type Set struct {
	DeliverySequence Template
	DeliveryFolder   Template
}

type manifest struct {
	Templates struct {
		DeliverySequence string `yaml:"delivery_sequence"`
		DeliveryFolder   string `yaml:"delivery_folder"`
	} `yaml:"templates"`
}

// LoadSet builds the template set from the YAML manifest, letting inline
// config values override individual entries. The delivery_sequence template
// must carry the frame token; delivery_folder must not.
func LoadSet(cfg *config.Config) (Set, error) {
	if cfg == nil {
		return Set{}, errors.New("config is nil")
	}

	sequencePattern := cfg.Templates.DeliverySequence
	folderPattern := cfg.Templates.DeliveryFolder

	if sequencePattern == "" || folderPattern == "" {
		m, err := readManifest(cfg.Templates.ManifestPath)
		if err != nil {
			return Set{}, err
		}
		if sequencePattern == "" {
			sequencePattern = m.Templates.DeliverySequence
		}
		if folderPattern == "" {
			folderPattern = m.Templates.DeliveryFolder
		}
	}

	sequence, err := Parse(sequencePattern)
	if err != nil {
		return Set{}, fmt.Errorf("delivery_sequence: %w", err)
	}
	if !frames.HasToken(sequence.String()) {
		return Set{}, fmt.Errorf("delivery_sequence %q must contain a frame token (e.g. %%04d)", sequence.String())
	}
	if err := checkDeliveryFields("delivery_sequence", sequence); err != nil {
		return Set{}, err
	}

	folder, err := Parse(folderPattern)
	if err != nil {
		return Set{}, fmt.Errorf("delivery_folder: %w", err)
	}
	if frames.HasToken(folder.String()) {
		return Set{}, fmt.Errorf("delivery_folder %q must not contain a frame token", folder.String())
	}
	if err := checkDeliveryFields("delivery_folder", folder); err != nil {
		return Set{}, err
	}

	return Set{DeliverySequence: sequence, DeliveryFolder: folder}, nil
}

// deliveryFields are the placeholders delivery templates may reference.
var deliveryFields = map[string]struct{}{
	"ProjectCode": {},
	"Sequence":    {},
	"Shot":        {},
	"Version":     {},
}

func checkDeliveryFields(name string, tmpl Template) error {
	var unknown []string
	for _, field := range tmpl.Fields() {
		if _, ok := deliveryFields[field]; !ok {
			unknown = append(unknown, field)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf(
			"%s %q references unknown fields %s (supported: ProjectCode, Sequence, Shot, Version)",
			name, tmpl.String(), strings.Join(unknown, ", "),
		)
	}
	return nil
}

func readManifest(path string) (manifest, error) {
	var m manifest
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return m, fmt.Errorf("template manifest %s not found; write one or set templates inline", path)
		}
		return m, fmt.Errorf("read template manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse template manifest: %w", err)
	}
	return m, nil
}
