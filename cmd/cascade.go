package main

import (
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/CdubVentures/specdesk/internal/cascade"
	"github.com/CdubVentures/specdesk/internal/model"
)

var cascadeCmd = &cobra.Command{
	Use:   "cascade",
	Short: "Propagate canonical component and enum changes",
}

var (
	cascCategories []string
	cascCompType   string
	cascName       string
	cascMaker      string
	cascProperty   string
	cascNewValue   string
	cascPolicy     string
	cascPre        []string
	cascDryRun     bool
)

var cascadeComponentCmd = &cobra.Command{
	Use:   "component",
	Short: "Cascade a component property or identity change",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if len(cascCategories) == 0 {
			return eris.New("at least one --category is required")
		}

		mkInput := func(category string) cascade.Input {
			return cascade.Input{
				Category:       category,
				ComponentType:  cascCompType,
				Name:           cascName,
				Maker:          cascMaker,
				Property:       cascProperty,
				NewValue:       cascNewValue,
				Policy:         cascPolicy,
				PreAffectedIDs: cascPre,
			}
		}

		if cascDryRun {
			// Preview only: fan out across categories, no writes anywhere.
			reports := make(map[string]*cascade.Report, len(cascCategories))
			var mu sync.Mutex
			g, gctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(cfg.Cascade.PreviewWorkers)
			for _, category := range cascCategories {
				g.Go(func() error {
					rep, err := env.cascade.Preview(gctx, mkInput(category))
					if err != nil {
						return eris.Wrapf(err, "preview %s", category)
					}
					mu.Lock()
					reports[category] = rep
					mu.Unlock()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			return printJSON(reports)
		}

		if len(cascCategories) > 1 {
			return eris.New("live cascades run one category at a time")
		}
		rep, err := env.cascade.ComponentChange(cmd.Context(), mkInput(cascCategories[0]))
		if err != nil {
			return err
		}
		return printJSON(rep)
	},
}

var (
	enumField    string
	enumAction   string
	enumValue    string
	enumNewValue string
)

var cascadeEnumCmd = &cobra.Command{
	Use:   "enum",
	Short: "Cascade an enum value removal or rename",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(cascCategories) != 1 {
			return eris.New("exactly one --category is required")
		}

		// Same-value rename is a no-op; short-circuit before any store access
		// so the engine stays idempotent-safe.
		if enumAction == cascade.EnumRename && model.EqualFoldTrim(enumValue, enumNewValue) {
			zap.L().Info("enum rename is a no-op",
				zap.String("field", enumField),
				zap.String("value", enumValue),
			)
			return printJSON(map[string]any{"changed": false})
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		rep, err := env.cascade.EnumChange(cmd.Context(), cascade.EnumInput{
			Category:       cascCategories[0],
			Field:          enumField,
			Action:         enumAction,
			Value:          enumValue,
			NewValue:       enumNewValue,
			PreAffectedIDs: cascPre,
		})
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"changed": true, "report": rep})
	},
}

func init() {
	cascadeCmd.PersistentFlags().StringSliceVar(&cascCategories, "category", nil, "category (repeatable with --dry-run)")
	cascadeCmd.PersistentFlags().StringSliceVar(&cascPre, "pre-affected", nil, "dependent ids known affected before resolution")

	cascadeComponentCmd.Flags().StringVar(&cascCompType, "component-type", "", "component type (required)")
	cascadeComponentCmd.Flags().StringVar(&cascName, "name", "", "component name (required)")
	cascadeComponentCmd.Flags().StringVar(&cascMaker, "maker", "", "component maker")
	cascadeComponentCmd.Flags().StringVar(&cascProperty, "property", "", "changed property (required)")
	cascadeComponentCmd.Flags().StringVar(&cascNewValue, "new-value", "", "new canonical value (required)")
	cascadeComponentCmd.Flags().StringVar(&cascPolicy, "policy", "", "variance policy: override_allowed|authoritative|upper_bound|lower_bound|range")
	cascadeComponentCmd.Flags().BoolVar(&cascDryRun, "dry-run", false, "evaluate variance without writing anything")
	cascadeComponentCmd.MarkFlagRequired("component-type") //nolint:errcheck
	cascadeComponentCmd.MarkFlagRequired("name")           //nolint:errcheck
	cascadeComponentCmd.MarkFlagRequired("property")       //nolint:errcheck
	cascadeComponentCmd.MarkFlagRequired("new-value")      //nolint:errcheck

	cascadeEnumCmd.Flags().StringVar(&enumField, "field", "", "enum field (required)")
	cascadeEnumCmd.Flags().StringVar(&enumAction, "action", "", "remove|rename (required)")
	cascadeEnumCmd.Flags().StringVar(&enumValue, "value", "", "current enum value (required)")
	cascadeEnumCmd.Flags().StringVar(&enumNewValue, "new-value", "", "replacement value (rename)")
	cascadeEnumCmd.MarkFlagRequired("field")  //nolint:errcheck
	cascadeEnumCmd.MarkFlagRequired("action") //nolint:errcheck
	cascadeEnumCmd.MarkFlagRequired("value")  //nolint:errcheck

	cascadeCmd.AddCommand(cascadeComponentCmd, cascadeEnumCmd)
	rootCmd.AddCommand(cascadeCmd)
}
