package classifier

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Artifact is the serialized classifier bundle: the forest plus the ordered
// label list it was encoded against. Loaded once at process start and
// immutable afterwards.
type Artifact struct {
	FeatureNames []string `json:"feature_names"`
	LabelClasses []string `json:"label_classes"`
	Forest       *Forest  `json:"forest"`
}

// Meta is the human-readable training record written next to the artifact.
type Meta struct {
	TrainedAt   time.Time `yaml:"trained_at"`
	Samples     int       `yaml:"samples"`
	RuleVersion string    `yaml:"rule_version,omitempty"`
	Accuracy    float64   `yaml:"holdout_accuracy"`
}

// Save writes the artifact as JSON.
func Save(path string, a *Artifact) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return eris.Wrap(err, "artifact: marshal")
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return eris.Wrap(err, "artifact: write")
	}
	return nil
}

// SaveMeta writes the training record as a YAML sidecar at path+".meta.yaml".
func SaveMeta(path string, m Meta) error {
	raw, err := yaml.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "artifact: marshal meta")
	}
	if err := os.WriteFile(path+".meta.yaml", raw, 0o644); err != nil {
		return eris.Wrap(err, "artifact: write meta")
	}
	return nil
}

// Load reads and validates an artifact. Any failure here leaves the serving
// process without a model; callers decide whether that is fatal.
func Load(path string) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "artifact: read %s", path)
	}

	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, eris.Wrap(err, "artifact: parse")
	}

	if len(a.LabelClasses) == 0 {
		return nil, eris.New("artifact: no label classes")
	}
	if a.Forest == nil || len(a.Forest.Trees) == 0 {
		return nil, eris.New("artifact: no trained forest")
	}
	if a.Forest.NumClasses != len(a.LabelClasses) {
		return nil, eris.Errorf("artifact: forest has %d classes, label list has %d",
			a.Forest.NumClasses, len(a.LabelClasses))
	}
	return &a, nil
}
