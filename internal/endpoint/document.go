package endpoint

import (
	"encoding/xml"
	"fmt"
	"os"
)

// Entry mirrors one <SipEndpoint> element of the endpoint document.
type Entry struct {
	Type    string `xml:"Type"`
	Name    string `xml:"Name"`
	IPFqdn  string `xml:"IpFqdn"`
}

type document struct {
	XMLName   xml.Name `xml:"SipEndpoints"`
	Endpoints []Entry  `xml:"SipEndpoint"`
}

// LoadFile reads and parses the XML endpoint document at path, returning the
// decoded entries without mutating any Classifier — callers Load() the
// result so a bad reload never clobbers a working table.
func LoadFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading endpoint document %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) ([]Entry, error) {
	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing endpoint document: %w", err)
	}
	return doc.Endpoints, nil
}
