package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lexscan/regtracker/config"
	"github.com/lexscan/regtracker/model"
)

// CycleResult summarizes one regulatory pass.
type CycleResult struct {
	Regulations  int              `json:"regulations"`
	Contracts    int              `json:"contracts"`
	Proposals    []model.Proposal `json:"proposals"`
	Applied      int              `json:"applied"`
	ApplyErrors  int              `json:"apply_errors"`
	ProposalsLog string           `json:"proposals_log,omitempty"`
}

// RiskEngine scores every (contract, regulation) pair, emits amendment
// proposals, and updates registry status fields.
type RiskEngine struct {
	catalog   *RegCatalog
	registry  *Registry
	extractor TextExtractor
	renderer  ReportRenderer
	applier   *Applier
	mirror    *ArtifactMirror
	cfg       *config.EngineConfig
	storeCfg  *config.StoreConfig
	now       func() time.Time
}

func NewRiskEngine(catalog *RegCatalog, registry *Registry, extractor TextExtractor, renderer ReportRenderer, applier *Applier, mirror *ArtifactMirror, cfg *config.EngineConfig, storeCfg *config.StoreConfig) *RiskEngine {
	return &RiskEngine{
		catalog:   catalog,
		registry:  registry,
		extractor: extractor,
		renderer:  renderer,
		applier:   applier,
		mirror:    mirror,
		cfg:       cfg,
		storeCfg:  storeCfg,
		now:       time.Now,
	}
}

// KeywordMatches returns the regulation keywords found in the contract text,
// case-insensitive substring containment.
func (e *RiskEngine) KeywordMatches(reg model.Regulation, text string) []string {
	matches := []string{}
	if text == "" {
		return matches
	}
	lower := strings.ToLower(text)
	for _, kw := range reg.Keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			matches = append(matches, kw)
		}
	}
	return matches
}

// ComputeRisk scores a contract's exposure to a regulation on a 0-100 scale:
// keyword containment ratio, a jurisdiction boost, and a small age penalty.
// Missing or malformed inputs degrade to a zero contribution, never an error.
func (e *RiskEngine) ComputeRisk(reg model.Regulation, rec *model.ContractRecord, text string) int {
	score := e.keywordScore(reg, text)
	score += jurisdictionBoost(reg.Jurisdiction, rec.Jurisdiction)
	score += e.agePenalty(rec)
	if score > 100 {
		return 100
	}
	return score
}

func (e *RiskEngine) keywordScore(reg model.Regulation, text string) int {
	if len(reg.Keywords) == 0 || text == "" {
		return 0
	}
	hits := len(e.KeywordMatches(reg, text))
	return int(math.Round(float64(hits) / float64(len(reg.Keywords)) * 100))
}

func jurisdictionBoost(regJur, contractJur string) int {
	if regJur == "" {
		return 0
	}
	r := strings.ToLower(regJur)
	if r == "global" {
		return 10
	}
	if r == strings.ToLower(contractJur) {
		return 30
	}
	return 0
}

// agePenalty adds up to 10 points for contracts whose recorded date is more
// than three years old. Unparseable dates contribute nothing.
func (e *RiskEngine) agePenalty(rec *model.ContractRecord) int {
	yr, ok := recordYear(rec)
	if !ok {
		return 0
	}
	age := e.now().Year() - yr
	if age < 0 {
		age = 0
	}
	if age <= 3 {
		return 0
	}
	penalty := (age - 3) * 2
	if penalty > 10 {
		return 10
	}
	return penalty
}

// recordYear parses the four-digit year prefix of last_updated, falling back
// to the extracted date.
func recordYear(rec *model.ContractRecord) (int, bool) {
	for _, s := range []string{rec.LastUpdated, rec.Date} {
		if len(s) >= 4 {
			if yr, err := strconv.Atoi(s[:4]); err == nil {
				return yr, true
			}
		}
	}
	return 0, false
}

// ageStatus buckets a contract's age for display: <=1, 1-3, 3-6, 6+ years,
// or Unknown when no date parses.
func (e *RiskEngine) ageStatus(rec *model.ContractRecord) string {
	yr, ok := recordYear(rec)
	if !ok {
		return model.AgeUnknown
	}
	age := e.now().Year() - yr
	if age < 0 {
		age = 0
	}
	switch {
	case age <= 1:
		return model.AgeUpTo1Year
	case age <= 3:
		return model.Age1To3Years
	case age <= 6:
		return model.Age3To6Years
	default:
		return model.Age6Plus
	}
}

// statusForRisk maps a risk score to a regulatory status label.
func statusForRisk(risk int) string {
	switch {
	case risk >= 75:
		return model.RegStatusHighRisk
	case risk >= 50:
		return model.RegStatusNeedsUpdate
	case risk >= 40:
		return model.RegStatusMonitor
	default:
		return model.RegStatusOK
	}
}

// GenerateAmendmentText drafts the suggested clause language for a proposal.
// Clause templates are selected by which keyword categories matched; a
// generic recommendation covers proposals that cleared the threshold on
// jurisdiction or age alone.
func (e *RiskEngine) GenerateAmendmentText(reg model.Regulation, matches []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Amendment suggestion for %s: %s\n", reg.ID, reg.Title)
	fmt.Fprintf(&b, "Jurisdiction: %s | Published: %s\n\n", reg.Jurisdiction, reg.DatePublished)
	b.WriteString("Summary:\n")
	b.WriteString(reg.Summary)
	b.WriteString("\n\nDetected matches:\n")
	if len(matches) == 0 {
		b.WriteString("None")
	} else {
		b.WriteString(strings.Join(matches, ", "))
	}
	b.WriteString("\n\nSuggested (draft) clause language:\n")

	if matchesAny(matches, "consent") {
		b.WriteString("- Consent recordkeeping: The parties shall obtain explicit consent and retain timestamp and purpose of consent for audit purposes.\n")
	}
	if matchesAny(matches, "localis", "local") {
		b.WriteString("- Data localisation: Certain personal data must be stored within the jurisdiction and transferred only under documented safeguards.\n")
	}
	if matchesAny(matches, "privacy", "notice") {
		b.WriteString("- Privacy notice: Update privacy notice to include profiling logic and legal basis for processing.\n")
	}
	if len(matches) == 0 {
		b.WriteString("- General recommendation: review contract for personal data handling and add explicit responsibilities.\n")
	}

	fmt.Fprintf(&b, "\nGenerated by RiskEngine at %s UTC\n", e.now().UTC().Format(time.RFC3339))
	return b.String()
}

func matchesAny(matches []string, substrings ...string) bool {
	for _, m := range matches {
		lower := strings.ToLower(m)
		for _, sub := range substrings {
			if strings.Contains(lower, sub) {
				return true
			}
		}
	}
	return false
}

// saveAmendment persists a draft as an artifact pair: the canonical text and
// a rendered copy for viewing.
func (e *RiskEngine) saveAmendment(ctx context.Context, contractID string, reg model.Regulation, text string) (string, string, error) {
	if err := os.MkdirAll(e.storeCfg.RegUpdatesDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create reg updates directory: %w", err)
	}

	ts := e.now().UTC().Format("20060102150405")
	base := fmt.Sprintf("%s__%s__%s", contractID, reg.ID, ts)
	txtPath := filepath.Join(e.storeCfg.RegUpdatesDir, base+".txt")
	if err := os.WriteFile(txtPath, []byte(text), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write amendment draft: %w", err)
	}

	docPath := RenderOrFallback(e.renderer, text, filepath.Join(e.storeCfg.RegUpdatesDir, base+"_view"))

	mirrorArtifact(ctx, e.mirror, txtPath)
	return txtPath, docPath, nil
}

// RunFullCycle scores every regulation against every non-archived contract,
// persists proposals into the registry, recomputes status fields, and
// auto-applies drafts where the contract opted in. One contract's failure
// never prevents processing of the rest; only the final whole-store persist
// is fatal.
func (e *RiskEngine) RunFullCycle(ctx context.Context) (*CycleResult, error) {
	regs := e.catalog.Regulations()
	ids := e.registry.IDs()

	result := &CycleResult{
		Regulations: len(regs),
		Contracts:   len(ids),
		Proposals:   []model.Proposal{},
	}
	visited := make(map[string]bool)

	for _, reg := range regs {
		for _, id := range ids {
			rec := e.registry.Get(id)
			if rec == nil || rec.Status == model.StatusArchived || rec.FilePath == "" {
				continue
			}
			e.scorePair(ctx, reg, id, visited, result)
		}
	}

	if logPath := e.writeProposalsLog(result.Proposals); logPath != "" {
		result.ProposalsLog = logPath
		mirrorArtifact(ctx, e.mirror, logPath)
	}

	if err := e.registry.Persist(); err != nil {
		return nil, err
	}

	slog.Info("regulatory pass complete",
		"regulations", result.Regulations,
		"contracts", result.Contracts,
		"proposals", len(result.Proposals),
		"applied", result.Applied,
		"apply_errors", result.ApplyErrors,
	)
	return result, nil
}

func (e *RiskEngine) scorePair(ctx context.Context, reg model.Regulation, id string, visited map[string]bool, result *CycleResult) {
	rec := e.registry.Get(id)
	text := e.extractor.ExtractText(rec.FilePath)
	matches := e.KeywordMatches(reg, text)
	risk := e.ComputeRisk(reg, rec, text)

	firstVisit := !visited[id]
	visited[id] = true

	if risk < e.cfg.ProposalThreshold {
		e.registry.Update(id, func(r *model.ContractRecord) {
			// Statuses are recomputed from scratch each pass; a low score
			// never downgrades what an earlier regulation already raised.
			if firstVisit || r.RegulatoryStatus == "" {
				r.RegulatoryStatus = model.RegStatusOK
			}
			r.AgeStatus = e.ageStatus(r)
		})
		return
	}

	amendment := e.GenerateAmendmentText(reg, matches)
	txtPath, docPath, err := e.saveAmendment(ctx, id, reg, amendment)
	if err != nil {
		slog.Warn("failed to save amendment draft", "contract_id", id, "reg_id", reg.ID, "error", err)
		return
	}

	prop := model.Proposal{
		ContractID:   id,
		RegID:        reg.ID,
		Risk:         risk,
		Matches:      matches,
		AmendmentTxt: txtPath,
		AmendmentDoc: docPath,
		Status:       model.ProposalSuggested,
		Timestamp:    e.now().UTC().Format(time.RFC3339),
	}
	result.Proposals = append(result.Proposals, prop)

	status := statusForRisk(risk)
	e.registry.Update(id, func(r *model.ContractRecord) {
		if firstVisit {
			r.RegulatoryStatus = model.RegStatusOK
		}
		if model.RegulatoryRank(status) > model.RegulatoryRank(r.RegulatoryStatus) {
			r.RegulatoryStatus = status
		}
		r.Proposals = append(r.Proposals, prop)
		r.AgeStatus = e.ageStatus(r)
	})

	if rec.AutoApply && risk >= e.cfg.AutoApplyThreshold {
		e.autoApply(id, reg, amendment, result)
	}
}

// autoApply applies a draft unattended. Failures are captured on the record
// and the batch continues.
func (e *RiskEngine) autoApply(id string, reg model.Regulation, amendment string, result *CycleResult) {
	rec := e.registry.Get(id)
	res, err := e.applier.Apply(rec.FilePath, amendment, rec.Version)
	if err != nil {
		result.ApplyErrors++
		slog.Warn("auto-apply failed", "contract_id", id, "reg_id", reg.ID, "error", err)
		e.registry.Update(id, func(r *model.ContractRecord) {
			r.ApplyErrors = append(r.ApplyErrors, err.Error())
		})
		return
	}

	result.Applied++
	if err := e.registry.RecordAmendment(id, reg.ID, res); err != nil {
		slog.Warn("failed to record auto-applied amendment", "contract_id", id, "error", err)
		return
	}
	e.registry.Update(id, func(r *model.ContractRecord) {
		if n := len(r.Proposals); n > 0 && r.Proposals[n-1].RegID == reg.ID {
			r.Proposals[n-1].Status = model.ProposalApplied
		}
	})
	slog.Info("amendment auto-applied", "contract_id", id, "reg_id", reg.ID, "new_file", res.NewFilePath, "version", res.NewVersion)
}

// writeProposalsLog persists a per-pass proposals log for visibility.
func (e *RiskEngine) writeProposalsLog(proposals []model.Proposal) string {
	if err := os.MkdirAll(e.storeCfg.RegUpdatesDir, 0o755); err != nil {
		slog.Warn("failed to create reg updates directory", "error", err)
		return ""
	}
	data, err := json.MarshalIndent(proposals, "", "  ")
	if err != nil {
		slog.Warn("failed to encode proposals log", "error", err)
		return ""
	}
	path := filepath.Join(e.storeCfg.RegUpdatesDir, fmt.Sprintf("proposals_%s.json", e.now().UTC().Format("20060102150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Warn("failed to write proposals log", "error", err)
		return ""
	}
	return path
}
