package main

import (
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/CdubVentures/specdesk/internal/model"
)

// candidateSpec is one entry in a candidate import file.
type candidateSpec struct {
	Kind          string  `yaml:"kind"`
	Category      string  `yaml:"category"`
	Product       string  `yaml:"product"`
	Field         string  `yaml:"field"`
	Slot          string  `yaml:"slot"`
	ComponentType string  `yaml:"component_type"`
	Name          string  `yaml:"name"`
	Maker         string  `yaml:"maker"`
	Property      string  `yaml:"property"`
	EnumValue     string  `yaml:"enum_value"`
	Value         string  `yaml:"value"`
	Score         float64 `yaml:"score"`
	Source        string  `yaml:"source"`
	Evidence      struct {
		URL     string `yaml:"url"`
		Quote   string `yaml:"quote"`
		Snippet string `yaml:"snippet"`
	} `yaml:"evidence"`
}

func (s candidateSpec) target() (model.ReviewTarget, error) {
	switch s.Kind {
	case "", "grid":
		t := model.NewGridTarget(s.Category, s.Product, s.Field, s.Slot)
		return t, t.Validate()
	case "component":
		t := model.NewComponentTarget(s.Category, s.ComponentType, s.Name, s.Maker, s.Property)
		t.Component.ValueSlotID = s.Slot
		return t, t.Validate()
	case "enum":
		t := model.NewEnumTarget(s.Category, s.Field, s.EnumValue)
		t.Enum.ListValueID = s.Slot
		return t, t.Validate()
	default:
		return model.ReviewTarget{}, eris.Errorf("unknown target kind %q", s.Kind)
	}
}

// parseCandidateFile turns an import document into insertable candidates.
func parseCandidateFile(data []byte) ([]model.Candidate, error) {
	var specs []candidateSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, eris.Wrap(err, "parse candidate file")
	}

	candidates := make([]model.Candidate, 0, len(specs))
	for i, s := range specs {
		target, err := s.target()
		if err != nil {
			return nil, eris.Wrapf(err, "entry %d", i)
		}
		if !model.IsMeaningful(s.Value) {
			return nil, eris.Errorf("entry %d: candidate value is required", i)
		}
		source := model.CandidateSource(s.Source)
		if s.Source == "" {
			source = model.SourceReference
		}
		candidates = append(candidates, model.Candidate{
			ID:      uuid.New().String(),
			SlotKey: target.IdentityTuple(),
			Value:   model.NormValue(s.Value),
			Score:   s.Score,
			Source:  source,
			Evidence: model.Evidence{
				URL:     s.Evidence.URL,
				Quote:   s.Evidence.Quote,
				Snippet: s.Evidence.Snippet,
			},
		})
	}
	return candidates, nil
}

var importFile string

var reviewCandidateImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-insert candidates from a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(importFile)
		if err != nil {
			return eris.Wrap(err, "read import file")
		}
		candidates, err := parseCandidateFile(data)
		if err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		inserted := 0
		for _, c := range candidates {
			if err := env.store.InsertCandidate(cmd.Context(), c); err != nil {
				return eris.Wrapf(err, "insert candidate for %s", c.SlotKey)
			}
			inserted++
		}
		zap.L().Info("candidates imported",
			zap.String("file", importFile),
			zap.Int("count", inserted),
		)
		return printJSON(map[string]any{"imported": inserted})
	},
}

func init() {
	reviewCandidateImportCmd.Flags().StringVar(&importFile, "file", "", "YAML file of candidates (required)")
	reviewCandidateImportCmd.MarkFlagRequired("file") //nolint:errcheck
	reviewCandidateCmd.AddCommand(reviewCandidateImportCmd)
}
