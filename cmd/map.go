package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/migrate-cli/internal/mapping"
	"github.com/sells-group/migrate-cli/internal/model"
	"github.com/sells-group/migrate-cli/internal/source"
	sfpkg "github.com/sells-group/migrate-cli/pkg/salesforce"
)

var (
	mapSource     string
	mapFields     []string
	mapDestFields []string
	mapSObject    string
	mapObjectType string
	mapMinConf    float64
	mapOutput     string
)

// mappingReport is the output of a mapping run.
type mappingReport struct {
	ObjectType         string                    `json:"object_type"`
	Suggestions        []model.MappingSuggestion `json:"suggestions"`
	UnmappedSources    []string                  `json:"unmapped_source_fields"`
	UnmappedRequired   []string                  `json:"unmapped_required_fields,omitempty"`
	DestinationCount   int                       `json:"destination_fields"`
	SuggestionsDropped int                       `json:"below_min_confidence,omitempty"`
}

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Suggest destination fields for the columns of a source export",
	Long: `Proposes a destination field for every source field using exact
matches, the field lexicon and string similarity.

Source fields come from --fields or the header of --source. Destination
fields come from --dest-fields or a Salesforce describe of --sobject.

Examples:
  migrate-cli map --source contacts.csv --dest-fields FirstName,LastName,Email
  migrate-cli map --source accounts.xlsx --sobject Account --object accounts`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("map"); err != nil {
			return err
		}
		ctx := cmd.Context()

		sources := mapFields
		if len(sources) == 0 {
			if mapSource == "" {
				return eris.New("map: --source or --fields is required")
			}
			h, err := source.Headers(ctx, mapSource, source.Options{})
			if err != nil {
				return eris.Wrap(err, "map: read source fields")
			}
			sources = h
		}

		dests := mapDestFields
		var required []string
		if mapSObject != "" {
			sf, err := initSalesforce(cfg)
			if err != nil {
				return err
			}
			desc, err := sf.DescribeSObject(ctx, mapSObject)
			if err != nil {
				return eris.Wrap(err, "map: describe destination")
			}
			for _, f := range sfpkg.Writable(desc) {
				dests = append(dests, f.Name)
			}
			required = sfpkg.RequiredFieldNames(desc)
		}
		if len(dests) == 0 {
			return eris.New("map: --dest-fields or --sobject is required")
		}

		lex, err := loadLexicon(cfg)
		if err != nil {
			return err
		}

		objectType := mapObjectType
		if objectType == "" {
			objectType = cfg.Cleanse.ObjectType
		}

		report := buildMappingReport(mapping.NewResolver(lex), sources, dests, required, objectType, mapMinConf)
		zap.L().Info("map: suggestions ready",
			zap.String("object_type", objectType),
			zap.Int("source_fields", len(sources)),
			zap.Int("suggestions", len(report.Suggestions)),
			zap.Int("unmapped", len(report.UnmappedSources)),
		)
		return writeJSON(os.Stdout, mapOutput, report)
	},
}

func init() {
	mapCmd.Flags().StringVar(&mapSource, "source", "", "source export (csv, tsv, xlsx or json) to read field names from")
	mapCmd.Flags().StringSliceVar(&mapFields, "fields", nil, "source field names (overrides --source)")
	mapCmd.Flags().StringSliceVar(&mapDestFields, "dest-fields", nil, "destination field names")
	mapCmd.Flags().StringVar(&mapSObject, "sobject", "", "Salesforce SObject to describe for destination fields")
	mapCmd.Flags().StringVar(&mapObjectType, "object", "", "object type for lexicon lookups (default from config)")
	mapCmd.Flags().Float64Var(&mapMinConf, "min-confidence", 0, "drop suggestions below this confidence")
	mapCmd.Flags().StringVar(&mapOutput, "output", "", "write the report to file (default: stdout)")
	rootCmd.AddCommand(mapCmd)
}

// buildMappingReport resolves sources against dests and lists what stayed
// unmapped. required names destination fields that must receive a value.
func buildMappingReport(r *mapping.Resolver, sources, dests, required []string, objectType string, minConf float64) mappingReport {
	report := mappingReport{
		ObjectType:       objectType,
		Suggestions:      []model.MappingSuggestion{},
		UnmappedSources:  []string{},
		DestinationCount: len(dests),
	}

	mappedSrc := make(map[string]bool)
	mappedDest := make(map[string]bool)
	for _, s := range r.Resolve(sources, dests, objectType) {
		if s.Confidence < minConf {
			report.SuggestionsDropped++
			continue
		}
		report.Suggestions = append(report.Suggestions, s)
		mappedSrc[s.SourceField] = true
		mappedDest[strings.ToLower(s.DestinationField)] = true
	}

	for _, src := range sources {
		if strings.TrimSpace(src) != "" && !mappedSrc[src] {
			report.UnmappedSources = append(report.UnmappedSources, src)
		}
	}
	for _, f := range required {
		if !mappedDest[strings.ToLower(f)] {
			report.UnmappedRequired = append(report.UnmappedRequired, f)
		}
	}
	return report
}
