// Package advisor answers product questions by retrieving relevant
// passages from the tariff reference text and forwarding them with the
// question to an OpenAI-compatible chat completion API.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/reisewerk/tariffkit/internal/domain"
)

// APIKeyEnv is the environment variable holding the chat API key. The
// key never lives in config files.
const APIKeyEnv = "TARIFFKIT_OPENAI_KEY"

// maxPassages bounds how many reference excerpts go into the prompt.
const maxPassages = 4

// synonyms maps agent shorthand to the vocabulary of the reference
// text, so "SB" finds the Selbstbeteiligung passages.
var synonyms = map[string][]string{
	"sb":            {"selbstbeteiligung"},
	"storno":        {"rücktritt", "stornierung"},
	"stornierung":   {"rücktritt"},
	"rücktritt":     {"stornierung", "storno"},
	"krank":         {"kranken", "krankheit"},
	"jahresvertrag": {"jahres"},
	"einmalvertrag": {"einmal"},
	"rundumsorglos": {"rundum", "sorglos"},
	"auslandsreise": {"ausland"},
	"familie":       {"familien"},
	"paar":          {"paare"},
}

// Advisor retrieves reference passages and queries a chat model.
type Advisor struct {
	paragraphs []string
	model      string
	baseURL    string
	apiKey     string
	client     *http.Client
}

// New creates an advisor from configuration. A missing reference file
// or API key disables the advisor without failing startup.
func New(cfg domain.AdvisorConfig) *Advisor {
	a := &Advisor{
		model:   cfg.Model,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  os.Getenv(APIKeyEnv),
		client:  &http.Client{Timeout: 60 * time.Second},
	}

	if cfg.ReferencePath != "" {
		data, err := os.ReadFile(cfg.ReferencePath)
		if err != nil {
			slog.Warn("tariff reference text not available",
				"path", cfg.ReferencePath,
				"error", err,
			)
		} else {
			a.paragraphs = splitParagraphs(string(data))
		}
	}

	if a.apiKey == "" {
		slog.Info("advisor disabled", "reason", "no API key in "+APIKeyEnv)
	}

	return a
}

// Enabled reports whether the advisor can answer questions.
func (a *Advisor) Enabled() bool {
	return a.apiKey != "" && len(a.paragraphs) > 0
}

// Answer retrieves the most relevant reference passages for the
// question and asks the chat model to answer from them.
func (a *Advisor) Answer(ctx context.Context, question string) (string, error) {
	if question == "" {
		return "", fmt.Errorf("question is required")
	}
	if !a.Enabled() {
		return "", fmt.Errorf("advisor is not configured")
	}

	passages := a.Retrieve(question, maxPassages)

	prompt := buildPrompt(question, passages)
	return a.chat(ctx, prompt)
}

// Retrieve scores reference paragraphs against the question terms and
// returns the top n. Exported for inspection endpoints and tests.
func (a *Advisor) Retrieve(question string, n int) []string {
	terms := expandTerms(tokenize(question))
	if len(terms) == 0 {
		return nil
	}

	type scored struct {
		index int
		score int
	}
	var candidates []scored
	for i, p := range a.paragraphs {
		lower := strings.ToLower(p)
		score := 0
		for term := range terms {
			if strings.Contains(lower, term) {
				score++
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{index: i, score: score})
		}
	}

	// Stable by reference order among equal scores
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if len(candidates) > n {
		candidates = candidates[:n]
	}

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = a.paragraphs[c.index]
	}
	return out
}

// chat sends one chat-completion request.
func (a *Advisor) chat(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: "Du bist ein Berater für Reiseversicherungen. Antworte ausschließlich anhand der mitgelieferten Auszüge aus den Tarifbestimmungen. Wenn die Auszüge keine Antwort hergeben, sage das."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.2,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat API returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func buildPrompt(question string, passages []string) string {
	var b strings.Builder
	b.WriteString("Auszüge aus den Tarifbestimmungen:\n\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, p)
	}
	b.WriteString("Frage: ")
	b.WriteString(question)
	return b.String()
}

// splitParagraphs breaks the reference text on blank lines.
func splitParagraphs(text string) []string {
	blocks := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	var out []string
	for _, block := range blocks {
		p := strings.TrimSpace(block)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// tokenize lowercases and splits a question into word terms, dropping
// short stop-words.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !isWordRune(r)
	})
	var out []string
	for _, f := range fields {
		if len([]rune(f)) >= 3 || f == "sb" {
			out = append(out, f)
		}
	}
	return out
}

func isWordRune(r rune) bool {
	return r == 'ä' || r == 'ö' || r == 'ü' || r == 'ß' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// expandTerms adds the synonym forms of each term.
func expandTerms(terms []string) map[string]struct{} {
	out := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		out[t] = struct{}{}
		for _, syn := range synonyms[t] {
			out[syn] = struct{}{}
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
