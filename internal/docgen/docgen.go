// Package docgen fills the docx offer template with quote results.
package docgen

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lukasjarosch/go-docx"

	"github.com/reisewerk/tariffkit/internal/domain"
	"github.com/reisewerk/tariffkit/internal/format"
)

// Generator populates offer documents by placeholder substitution.
// The template carries one {Placeholder} per product premium plus the
// trip metadata keys.
type Generator struct {
	templatePath string
	outputDir    string
}

// NewGenerator creates a document generator.
func NewGenerator(cfg domain.DocumentConfig) *Generator {
	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = "."
	}
	return &Generator{
		templatePath: cfg.TemplatePath,
		outputDir:    outputDir,
	}
}

// Available reports whether the offer template exists on disk.
func (g *Generator) Available() bool {
	if g.templatePath == "" {
		return false
	}
	_, err := os.Stat(g.templatePath)
	return err == nil
}

// Generate writes a populated offer document for the quote and returns
// the output path. Premium values are reduced to bare amounts before
// substitution; tariff codes never appear in customer documents.
func (g *Generator) Generate(q *domain.Quote) (string, error) {
	if q == nil {
		return "", fmt.Errorf("quote is required")
	}
	if !g.Available() {
		return "", fmt.Errorf("offer template %s not found", g.templatePath)
	}

	data := format.CleanForExport(format.DocumentData(q))

	doc, err := docx.Open(g.templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to open offer template: %w", err)
	}

	placeholders := make(docx.PlaceholderMap, len(data))
	for key, value := range data {
		placeholders[key] = value
	}

	if err := doc.ReplaceAll(placeholders); err != nil {
		return "", fmt.Errorf("failed to substitute placeholders: %w", err)
	}

	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outPath := filepath.Join(g.outputDir, fmt.Sprintf("angebot-%s.docx", q.ID))
	if err := doc.WriteToFile(outPath); err != nil {
		return "", fmt.Errorf("failed to write offer document: %w", err)
	}

	slog.Info("offer document generated",
		"quote_id", q.ID,
		"path", outPath,
	)

	return outPath, nil
}
