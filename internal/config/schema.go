package config

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// endpointDocumentSchema is the structural contract for the SIP endpoint
// classifier document, checked before a reload replaces a working table.
const endpointDocumentSchema = `{
	"type": "object",
	"required": ["SipEndpoint"],
	"properties": {
		"SipEndpoint": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["Name", "IpFqdn"],
				"properties": {
					"Type":   {"type": "string"},
					"Name":   {"type": "string", "minLength": 1},
					"IpFqdn": {"type": "string", "minLength": 1}
				}
			}
		}
	}
}`

// extensionDocumentSchema is the structural contract for the YAML
// extension-range/seed-routing document.
const extensionDocumentSchema = `{
	"type": "object",
	"required": ["ranges"],
	"properties": {
		"ranges":          {"type": "array", "items": {"type": "string"}},
		"routingNumbers":  {"type": "array", "items": {"type": "string"}},
		"voicemailNumber": {"type": "string"}
	}
}`

// xmlEndpointDoc mirrors the shape gojsonschema needs to inspect an XML
// endpoint document as JSON; it is a validation-only shadow of
// internal/endpoint's own decoding type.
type xmlEndpointDoc struct {
	XMLName      xml.Name `xml:"SipEndpoints" json:"-"`
	SipEndpoint  []struct {
		Type   string `xml:"Type" json:"Type"`
		Name   string `xml:"Name" json:"Name"`
		IPFqdn string `xml:"IpFqdn" json:"IpFqdn"`
	} `xml:"SipEndpoint" json:"SipEndpoint"`
}

// ValidateEndpointDocument checks an XML endpoint document's structure
// against endpointDocumentSchema before the caller parses and loads it.
func ValidateEndpointDocument(data []byte) error {
	var doc xmlEndpointDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing endpoint document as XML: %w", err)
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("re-encoding endpoint document for validation: %w", err)
	}
	return validateAgainstSchema(endpointDocumentSchema, asJSON)
}

// ValidateExtensionDocument checks a YAML extension document's structure
// against extensionDocumentSchema before the caller parses and loads it.
func ValidateExtensionDocument(data []byte) error {
	var generic map[string]any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("parsing extension document as YAML: %w", err)
	}
	asJSON, err := json.Marshal(generic)
	if err != nil {
		return fmt.Errorf("re-encoding extension document for validation: %w", err)
	}
	return validateAgainstSchema(extensionDocumentSchema, asJSON)
}

func validateAgainstSchema(schema string, data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(schema)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("running schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var msgs []string
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("document failed schema validation: %s", strings.Join(msgs, "; "))
}
