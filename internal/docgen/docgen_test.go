package docgen

import (
	"testing"
	"time"

	"github.com/reisewerk/tariffkit/internal/domain"
)

func TestGeneratorAvailable(t *testing.T) {
	t.Run("MissingTemplate", func(t *testing.T) {
		g := NewGenerator(domain.DocumentConfig{TemplatePath: "/nonexistent/angebot.docx"})
		if g.Available() {
			t.Error("expected Available to be false for missing template")
		}
	})

	t.Run("EmptyPath", func(t *testing.T) {
		g := NewGenerator(domain.DocumentConfig{})
		if g.Available() {
			t.Error("expected Available to be false for empty path")
		}
	})
}

func TestGenerateErrors(t *testing.T) {
	g := NewGenerator(domain.DocumentConfig{TemplatePath: "/nonexistent/angebot.docx"})

	t.Run("NilQuote", func(t *testing.T) {
		if _, err := g.Generate(nil); err == nil {
			t.Error("expected error for nil quote")
		}
	})

	t.Run("MissingTemplate", func(t *testing.T) {
		q := &domain.Quote{
			ID:        "q-001",
			Trip:      domain.Trip{Start: time.Now(), End: time.Now(), Price: 100},
			Results:   map[domain.ProductKey]domain.PremiumResult{},
			CreatedAt: time.Now(),
		}
		if _, err := g.Generate(q); err == nil {
			t.Error("expected error for missing template")
		}
	})
}
