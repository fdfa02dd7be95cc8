package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/diligentia/internal/llm"
	"github.com/ppiankov/diligentia/internal/model"
	"github.com/ppiankov/diligentia/internal/orchestrator"
	"github.com/ppiankov/diligentia/internal/render"
	"github.com/ppiankov/diligentia/internal/search"
)

var (
	runFlags       entityFlags
	requestFile    string
	claimTexts     []string
	fundingRequest bool
	quickVerify    bool
	patents        bool
	regulated      bool
	teamSize       int
	competitors    bool
	claimsRevenue  bool
	beneficiary    string
	contactEmail   string
	offshore       bool
	claimsLicense  bool
	outJSON        string
	outMD          string
	searchMode     string
	timeout        time.Duration
	noFooter       bool
	llmEnabled     bool
	llmProvider    string
	llmModel       string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <entity name>",
	Short: "Run tiered due diligence on one entity",
	Long: `Run selects a diligence tier from the funding size and known risk
signals, runs the research branches for that tier in parallel, verifies
claims, cross-checks the branches and prints a verdict.

Examples:
  diligentia run "Acme Robotics" --website https://acme.example --amount 2000000 --round seed
  diligentia run "Acme Robotics" --funding-request --wire --beneficiary "Acme Robotics GmbH"
  diligentia run --request acme.yaml --json acme.json --md acme.md`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiligence,
}

func init() {
	rootCmd.AddCommand(runCmd)
	f := runCmd.Flags()

	addEntityFlags(runCmd, &runFlags)
	f.StringVar(&requestFile, "request", "", "YAML request file (entity, signals, known claims)")
	f.StringSliceVar(&claimTexts, "claim", nil, "claim made by the entity to verify (repeatable)")
	f.BoolVar(&fundingRequest, "funding-request", false, "the decision is a funding request (enables investor playbook)")
	f.BoolVar(&quickVerify, "quick-verify", false, "at shallow tiers, run registry and domain checks only")

	f.BoolVar(&patents, "patents", false, "the entity claims patents")
	f.BoolVar(&regulated, "regulated", false, "the entity operates in a regulated sector")
	f.IntVar(&teamSize, "team-size", 0, "claimed team size")
	f.BoolVar(&competitors, "competitors", false, "the pitch names competitors")
	f.BoolVar(&claimsRevenue, "claims-revenue", false, "the pitch claims revenue or customers")

	f.StringVar(&beneficiary, "beneficiary", "", "wire beneficiary name")
	f.StringVar(&contactEmail, "contact-email", "", "email the funding request came from")
	f.BoolVar(&offshore, "offshore", false, "the structure involves offshore entities")
	f.BoolVar(&claimsLicense, "claims-license", false, "the entity claims a regulatory license")

	f.StringVar(&outJSON, "json", "", "output JSON path")
	f.StringVar(&outMD, "md", "", "output Markdown path")
	f.StringVar(&searchMode, "mode", "balanced", "search mode (fast, balanced, thorough)")
	f.DurationVar(&timeout, "timeout", 0, "job timeout (default from config)")
	f.BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	f.BoolVar(&llmEnabled, "llm", false, "enable LLM extraction and a separate narrative summary")
	f.StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	f.StringVar(&llmModel, "llm-model", "", "LLM model name")
}

func addEntityFlags(cmd *cobra.Command, ef *entityFlags) {
	f := cmd.Flags()
	f.StringVar(&ef.kind, "kind", "company", "entity kind (company, fund, person)")
	f.StringVar(&ef.website, "website", "", "entity website")
	f.StringVar(&ef.sector, "sector", "", "entity sector")
	f.StringVar(&ef.jurisdiction, "jurisdiction", "", "claimed jurisdiction of incorporation")
	f.Float64Var(&ef.amount, "amount", 0, "funding amount in USD")
	f.StringVar(&ef.round, "round", "", "funding round (pre-seed, seed, series-a ...)")
	f.BoolVar(&ef.wire, "wire", false, "wire instructions were provided")
	f.StringSliceVar(&ef.signals, "signal", nil, "known risk signal category:name:severity[:trigger] (repeatable)")
}

// applyCommandConfig layers command flags over the loaded config
func applyCommandConfig(cmd *cobra.Command, cfg *model.Config) {
	if cmd.Flags().Changed("timeout") && timeout > 0 {
		cfg.Concurrency.JobTimeout = timeout
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
	if llmEnabled {
		cfg.LLM.Provider = llmProvider
		if llmModel != "" {
			cfg.LLM.Model = llmModel
		}
		cfg.LLM.StrictEvidence = true // Always enforce
		cfg.LLM.Summarize = true
	}
}

func buildRequest(args []string) (orchestrator.Request, error) {
	var req orchestrator.Request
	if requestFile != "" {
		loaded, err := loadRequest(requestFile)
		if err != nil {
			return req, err
		}
		req = loaded
	}
	if len(args) == 1 {
		entity, err := runFlags.entity(args[0])
		if err != nil {
			return req, err
		}
		req.Entity = entity
	}
	if req.Entity.Name == "" {
		return req, fmt.Errorf("an entity name or --request file is required")
	}

	if runFlags.amount > 0 || runFlags.round != "" || runFlags.wire {
		req.Funding = runFlags.funding()
	}
	signals, err := runFlags.parsedSignals()
	if err != nil {
		return req, err
	}
	req.Signals = append(req.Signals, signals...)
	req.KnownClaims = append(req.KnownClaims, knownClaims(claimTexts)...)

	req.FundingRequest = req.FundingRequest || fundingRequest
	req.QuickVerification = req.QuickVerification || quickVerify

	c := &req.Complexity
	c.HasPatentMentions = c.HasPatentMentions || patents
	c.RegulatedSector = c.RegulatedSector || regulated
	c.HasCompetitorMentions = c.HasCompetitorMentions || competitors
	c.ClaimsRevenue = c.ClaimsRevenue || claimsRevenue
	if teamSize > 0 {
		c.TeamSize = teamSize
	}

	p := &req.Playbook
	p.WireInstructionsProvided = p.WireInstructionsProvided || req.Funding.WireInstructionsProvided
	p.RegulatedSector = p.RegulatedSector || c.RegulatedSector
	p.ClaimsRegulatoryStatus = p.ClaimsRegulatoryStatus || claimsLicense
	p.OffshoreStructure = p.OffshoreStructure || offshore
	if beneficiary != "" {
		p.WireBeneficiary = beneficiary
	}
	if contactEmail != "" {
		p.ContactEmail = contactEmail
	}
	return req, nil
}

func runDiligence(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyCommandConfig(cmd, cfg)
	logger := newLogger(cfg)

	req, err := buildRequest(args)
	if err != nil {
		return err
	}
	mode, err := search.ParseMode(searchMode)
	if err != nil {
		return err
	}

	orch, st, err := orchestrator.NewFromConfig(cfg, mode, logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	ctx, stop := signalContext(context.Background())
	defer stop()

	report, runErr := orch.RunDiligence(ctx, req)
	if errors.Is(runErr, orchestrator.ErrInvalidRequest) {
		return runErr
	}
	if report == nil {
		return fmt.Errorf("diligence failed: %w", runErr)
	}

	renderer := render.NewRenderer(cfg.Output.IncludeFooter)
	if err := writeReport(renderer, report, outJSON, outMD); err != nil {
		return err
	}
	renderer.Summary(os.Stdout, report)

	if runErr != nil {
		return fmt.Errorf("diligence job failed: %w", runErr)
	}
	return nil
}

// writeReport renders the requested outputs; the narrative goes to its own
// file next to the Markdown report
func writeReport(renderer *render.Renderer, report *model.Report, jsonPath, mdPath string) error {
	if jsonPath != "" {
		if err := renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}
	if mdPath != "" {
		if err := renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}
	if report.LLM != nil && report.LLM.Enabled && mdPath != "" {
		llmPath := render.LLMPath(filepath.Clean(mdPath))
		if err := renderer.RenderLLMMarkdown(llm.RenderSeparateMarkdown(report.LLM), llmPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to write LLM summary: %v\n", err)
		} else if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote LLM Summary: %s\n", llmPath)
		}
	}
	return nil
}
