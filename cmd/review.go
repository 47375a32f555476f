package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CdubVentures/specdesk/internal/ledger"
	"github.com/CdubVentures/specdesk/internal/model"
	"github.com/CdubVentures/specdesk/internal/resolver"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Lane transitions, pending resolution, and the candidate ledger",
}

// Target flags shared by the review subcommands.
var (
	reviewKind     string
	reviewCategory string
	reviewProduct  string
	reviewField    string
	reviewSlot     string
	reviewCompType string
	reviewCompName string
	reviewMaker    string
	reviewProperty string
	reviewValue    string
	reviewActor    string
)

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&reviewKind, "kind", "grid", "target kind: grid|component|enum")
	cmd.Flags().StringVar(&reviewCategory, "category", "", "product category (required)")
	cmd.Flags().StringVar(&reviewProduct, "product", "", "product id (grid targets)")
	cmd.Flags().StringVar(&reviewField, "field", "", "field name (grid/enum targets)")
	cmd.Flags().StringVar(&reviewSlot, "slot", "", "slot id, if assigned")
	cmd.Flags().StringVar(&reviewCompType, "component-type", "", "component type (component targets)")
	cmd.Flags().StringVar(&reviewCompName, "component-name", "", "component name (component targets)")
	cmd.Flags().StringVar(&reviewMaker, "maker", "", "component maker (component targets)")
	cmd.Flags().StringVar(&reviewProperty, "property", "", "component property (component targets)")
	cmd.Flags().StringVar(&reviewValue, "value", "", "enum value / selected value")
	cmd.Flags().StringVar(&reviewActor, "actor", "cli", "actor recorded in the audit log")
	cmd.MarkFlagRequired("category") //nolint:errcheck
}

func targetFromFlags() (model.ReviewTarget, error) {
	switch reviewKind {
	case "grid":
		t := model.NewGridTarget(reviewCategory, reviewProduct, reviewField, reviewSlot)
		return t, t.Validate()
	case "component":
		t := model.NewComponentTarget(reviewCategory, reviewCompType, reviewCompName, reviewMaker, reviewProperty)
		t.Component.ValueSlotID = reviewSlot
		return t, t.Validate()
	case "enum":
		t := model.NewEnumTarget(reviewCategory, reviewField, reviewValue)
		t.Enum.ListValueID = reviewSlot
		return t, t.Validate()
	default:
		return model.ReviewTarget{}, eris.Errorf("unknown target kind %q", reviewKind)
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "encode output")
	}
	fmt.Println(string(out))
	return nil
}

var (
	acceptCandidateID string
	acceptConfidence  float64
	acceptSuppress    bool
)

var reviewAcceptCmd = &cobra.Command{
	Use:   "accept",
	Short: "Record a user accept on the shared lane",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		target, err := targetFromFlags()
		if err != nil {
			return err
		}

		// Record the ledger decision first so the selection and the
		// resolution state move together.
		if acceptCandidateID != "" {
			ctxType, ctxID := resolver.ReviewContextFor(target)
			_, err := env.ledger.Upsert(cmd.Context(), acceptCandidateID, ctxType, ctxID, ledger.Decision{
				HumanAccepted: true,
				ExpectedValue: reviewValue,
			})
			if err != nil {
				return err
			}
		}

		var sel *model.Selection
		if acceptCandidateID != "" || reviewValue != "" {
			sel = &model.Selection{
				CandidateID: acceptCandidateID,
				Value:       reviewValue,
				Confidence:  acceptConfidence,
				Suppress:    acceptSuppress,
			}
		}

		row, err := env.review.ApplySharedLane(cmd.Context(), target, model.ActionAccept, sel, model.LaneNotRun, reviewActor)
		if err != nil {
			return err
		}
		return printJSON(row)
	},
}

var confirmStatus string

var reviewConfirmCmd = &cobra.Command{
	Use:   "confirm",
	Short: "Run the shared AI-confirm evaluation",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		target, err := targetFromFlags()
		if err != nil {
			return err
		}

		row, err := env.review.ApplySharedLane(cmd.Context(), target, model.ActionConfirm, nil, model.LaneStatus(confirmStatus), reviewActor)
		if err != nil {
			return err
		}
		return printJSON(row)
	},
}

var pendingScope string

var reviewPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List unresolved candidate ids for a target",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		target, err := targetFromFlags()
		if err != nil {
			return err
		}

		opts := resolver.SharedOptions()
		if pendingScope == "primary" {
			opts = resolver.PrimaryOptions()
		}
		ids, err := env.resolver.PendingCandidateIDs(cmd.Context(), target, opts)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"target": target.IdentityTuple(), "pending": ids})
	},
}

var (
	candSource string
	candScore  float64
	candURL    string
	candQuote  string
)

var reviewCandidateCmd = &cobra.Command{
	Use:   "candidate",
	Short: "Candidate ledger maintenance",
}

var reviewCandidateAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Insert a candidate for a target's slot",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		target, err := targetFromFlags()
		if err != nil {
			return err
		}
		if !model.IsMeaningful(reviewValue) {
			return eris.New("candidate value is required")
		}

		c := model.Candidate{
			ID:      uuid.New().String(),
			SlotKey: target.IdentityTuple(),
			Value:   model.NormValue(reviewValue),
			Score:   candScore,
			Source:  model.CandidateSource(candSource),
			Evidence: model.Evidence{
				URL:   candURL,
				Quote: candQuote,
			},
		}
		if err := env.store.InsertCandidate(cmd.Context(), c); err != nil {
			return err
		}
		zap.L().Info("candidate added",
			zap.String("id", c.ID),
			zap.String("slot", c.SlotKey),
		)
		return printJSON(c)
	},
}

var purgeCategory string

var reviewPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every review row for a category",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.review.PurgeCategory(cmd.Context(), purgeCategory)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"category": purgeCategory, "purged": n})
	},
}

func init() {
	addTargetFlags(reviewAcceptCmd)
	reviewAcceptCmd.Flags().StringVar(&acceptCandidateID, "candidate", "", "candidate id being accepted")
	reviewAcceptCmd.Flags().Float64Var(&acceptConfidence, "confidence", 0, "confidence score to record")
	reviewAcceptCmd.Flags().BoolVar(&acceptSuppress, "suppress", false, "run the transition without writing the selection")

	addTargetFlags(reviewConfirmCmd)
	reviewConfirmCmd.Flags().StringVar(&confirmStatus, "status", "", "override status: pending|confirmed (default: evaluate)")

	addTargetFlags(reviewPendingCmd)
	reviewPendingCmd.Flags().StringVar(&pendingScope, "scope", "shared", "resolution scope: shared|primary")

	addTargetFlags(reviewCandidateAddCmd)
	reviewCandidateAddCmd.Flags().StringVar(&candSource, "source", string(model.SourceUser), "candidate source")
	reviewCandidateAddCmd.Flags().Float64Var(&candScore, "score", 0, "extraction score")
	reviewCandidateAddCmd.Flags().StringVar(&candURL, "url", "", "evidence url")
	reviewCandidateAddCmd.Flags().StringVar(&candQuote, "quote", "", "evidence quote")
	reviewCandidateCmd.AddCommand(reviewCandidateAddCmd)

	reviewPurgeCmd.Flags().StringVar(&purgeCategory, "category", "", "category to purge (required)")
	reviewPurgeCmd.MarkFlagRequired("category") //nolint:errcheck

	reviewCmd.AddCommand(reviewAcceptCmd, reviewConfirmCmd, reviewPendingCmd, reviewCandidateCmd, reviewPurgeCmd)
	rootCmd.AddCommand(reviewCmd)
}
