package extension

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the YAML seed file shape: exact numbers/ranges plus optional
// seed values for the auto-detected routing-number and voicemail state that
// this configured set is unioned with runtime-detected routing numbers.
type Document struct {
	Ranges         []string `yaml:"ranges"`
	RoutingNumbers []string `yaml:"routingNumbers,omitempty"`
	VoicemailNumber string  `yaml:"voicemailNumber,omitempty"`
}

func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading extension document %s: %w", path, err)
	}
	return ParseDocument(data)
}

// ParseDocument decodes an already-read extension document, for callers
// that need to inspect or validate the raw bytes before parsing them.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing extension document: %w", err)
	}
	return &doc, nil
}
