package generator

import (
	"encoding/json"
	"strings"
)

// Manifest is the weaving engine configuration listing generated classes.
type Manifest struct {
	Required           bool      `json:"required"`
	MinVersion         string    `json:"minVersion"`
	Package            string    `json:"package"`
	CompatibilityLevel string    `json:"compatibilityLevel"`
	Injectors          Injectors `json:"injectors"`
	Client             []string  `json:"client"`
}

type Injectors struct {
	DefaultRequire int `json:"defaultRequire"`
}

// NewManifest builds the manifest for classes (simple names) generated into
// pkg (internal form).
func NewManifest(pkg string, classes []string) Manifest {
	client := make([]string, len(classes))
	copy(client, classes)
	return Manifest{
		Required:           true,
		MinVersion:         "0.8",
		Package:            strings.ReplaceAll(pkg, "/", "."),
		CompatibilityLevel: "JAVA_17",
		Injectors:          Injectors{DefaultRequire: 1},
		Client:             client,
	}
}

// MarshalIndent renders the manifest as it is written to disk.
func (m Manifest) MarshalIndent() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// ManifestName is the file name of the manifest for modID.
func ManifestName(modID string) string { return modID + ".mixins.json" }

// WidenerName is the file name of the access widener for modID.
func WidenerName(modID string) string { return modID + ".accesswidener" }
