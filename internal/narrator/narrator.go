// Package narrator turns a portfolio summary into a short plain-language
// commentary.
package narrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/trading-analyzer/internal/config"
	"github.com/dvloznov/trading-analyzer/internal/domain"
)

// Narrator writes commentary for an analysis.
type Narrator interface {
	Narrate(ctx context.Context, summary domain.PortfolioSummary) (string, error)
}

// Noop never produces commentary.
type Noop struct{}

// Narrate implements Narrator.
func (Noop) Narrate(context.Context, domain.PortfolioSummary) (string, error) {
	return "", nil
}

// GeminiNarrator asks a Gemini model to comment on the summary.
type GeminiNarrator struct {
	client *genai.Client
	model  string
}

var (
	_ Narrator = (*GeminiNarrator)(nil)
	_ Narrator = Noop{}
)

// New returns a GeminiNarrator when narration is enabled, and Noop
// otherwise.
func New(ctx context.Context, cfg config.NarratorConfig) (Narrator, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("narrator.New: create genai client: %w", err)
	}
	return &GeminiNarrator{client: client, model: cfg.Model}, nil
}

// Narrate implements Narrator.
func (n *GeminiNarrator) Narrate(ctx context.Context, summary domain.PortfolioSummary) (string, error) {
	prompt, err := BuildPrompt(summary)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := n.client.Models.GenerateContent(ctx, n.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Narrate: generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("Narrate: empty response from model")
	}
	return text, nil
}

// BuildPrompt renders the instructions and the summary figures the model
// is allowed to use.
func BuildPrompt(summary domain.PortfolioSummary) (string, error) {
	facts := struct {
		OverallMetrics     domain.OverallMetrics     `json:"overall_metrics"`
		RiskMetrics        domain.RiskMetrics        `json:"risk_metrics"`
		InactivityPatterns domain.InactivityPatterns `json:"inactivity_patterns"`
		SmartAlerts        []string                  `json:"smart_alerts"`
		Recommendations    []string                  `json:"recommendations"`
	}{
		OverallMetrics:     summary.TradingPerformance.OverallMetrics,
		RiskMetrics:        summary.RiskMetrics,
		InactivityPatterns: summary.InactivityPatterns,
		SmartAlerts:        summary.SmartAlerts,
		Recommendations:    summary.PredictiveInsights.Recommendations,
	}
	data, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("BuildPrompt: marshal summary: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are reviewing a trader's exported account history.\n\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Write at most five short sentences of plain text.\n")
	b.WriteString("- Use only the figures in the JSON below. Do not invent numbers.\n")
	b.WriteString("- Mention the best and worst account by name.\n")
	b.WriteString("- Do not give investment advice beyond the listed recommendations.\n")
	b.WriteString("- Do NOT use Markdown.\n\n")
	b.WriteString("Portfolio summary:\n")
	b.Write(data)
	b.WriteString("\n")
	return b.String(), nil
}
