package config

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema of the configuration document.
func Schema() ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true}
	s := r.Reflect(&Config{})
	s.Title = "kormkit configuration"
	return json.MarshalIndent(s, "", "  ")
}
