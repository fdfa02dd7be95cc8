package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/diligentia/internal/orchestrator"
	"github.com/ppiankov/diligentia/internal/render"
)

var (
	quickFlags entityFlags
	quickJSON  bool
)

// quickCmd represents the quick command
var quickCmd = &cobra.Command{
	Use:   "quick <entity name>",
	Short: "Evaluate stop rules and escalation triggers without research",
	Long: `Quick checks the known risk signals against the stop rules and
escalation triggers. No search is made and no branch runs. Use it as a
gate before committing to a full run.

Examples:
  diligentia quick "Acme Robotics" --signal transaction_integrity:changed_wire:90:business_email_compromise_pattern
  diligentia quick "Acme Robotics" --amount 60000000 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runQuick,
}

func init() {
	rootCmd.AddCommand(quickCmd)
	addEntityFlags(quickCmd, &quickFlags)
	quickCmd.Flags().BoolVar(&quickJSON, "json", false, "print the result as JSON")
}

func runQuick(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	entity, err := quickFlags.entity(args[0])
	if err != nil {
		return err
	}
	signals, err := quickFlags.parsedSignals()
	if err != nil {
		return err
	}

	// Quick checks never search, so the offline defaults serve
	orch := orchestrator.New(cfg, orchestrator.Deps{}, logger)
	res, err := orch.RunQuickCheck(cmd.Context(), orchestrator.QuickRequest{
		Entity:  entity,
		Funding: quickFlags.funding(),
		Signals: signals,
	})
	if err != nil {
		return err
	}

	if quickJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	render.NewRenderer(cfg.Output.IncludeFooter).QuickSummary(os.Stdout, res)
	if !res.Pass {
		return fmt.Errorf("quick check failed for %s", entity.Name)
	}
	return nil
}
