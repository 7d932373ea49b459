// Package report produces the incident summary text shown during the
// sensing phase. Generation is best-effort: every failure is converted
// to fallback text by the caller, never surfaced as a fault.
package report

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

// Generator produces a textual incident report. Implementations may take
// arbitrarily long; callers are expected to invoke Generate off the tick
// loop and write the result when it arrives.
type Generator interface {
	Generate(ctx context.Context, incidentType, incidentContext string) (string, error)
}

// Fallback returns the placeholder report used when generation fails.
func Fallback(incidentType string) string {
	return fmt.Sprintf(
		"INCIDENT REPORT (offline summary)\n"+
			"Type: %s\n"+
			"The swarm completed its sweep of the affected sector. Acoustic "+
			"telemetry was captured and archived locally. Automatic report "+
			"generation was unavailable; review the session log for details.",
		incidentType)
}

// GeminiGenerator asks Gemini for a short situation report.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// GeminiConfig holds configuration for the Gemini generator.
type GeminiConfig struct {
	APIKey string // If empty, uses GOOGLE_API_KEY env var
	Model  string // e.g., "gemini-3-pro"
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-3-pro"
	}

	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate produces a report from Gemini.
func (g *GeminiGenerator) Generate(ctx context.Context, incidentType, incidentContext string) (string, error) {
	prompt := fmt.Sprintf(
		"Write a terse four-sentence field incident report for a security "+
			"operations log. Incident type: %s. Context: %s. Reference ID: %s. "+
			"No markdown, no preamble.",
		incidentType, incidentContext, uuid.NewString()[:8])

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response from gemini")
	}

	var result string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			result += part.Text
		}
	}
	if result == "" {
		return "", fmt.Errorf("empty response from gemini")
	}

	return result, nil
}

// CannedGenerator produces a deterministic local report after a short
// delay. Used when no API key is configured, and in demos without
// network access.
type CannedGenerator struct {
	// Delay imitates a remote round trip so the in-flight state is visible.
	Delay time.Duration
}

// Generate returns canned report text once the delay elapses.
func (g *CannedGenerator) Generate(ctx context.Context, incidentType, incidentContext string) (string, error) {
	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return fmt.Sprintf(
		"INCIDENT REPORT %s\n"+
			"Type: %s\n"+
			"Context: %s\n"+
			"The swarm deployed, established a sensing orbit over the sector, "+
			"and detected no secondary acoustic events. All units recovered "+
			"nominally. No further action required.",
		time.Now().Format("2006-01-02 15:04:05"), incidentType, incidentContext), nil
}
