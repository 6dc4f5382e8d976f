package ai

import (
	"context"
	"errors"
	"testing"
)

func TestNoopProviderReportsUnavailable(t *testing.T) {
	provider := NewNoopProvider()
	defer provider.Close()

	if _, err := provider.Embedder().EmbedText(context.Background(), "text"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable from EmbedText, got %v", err)
	}
	if _, err := provider.Embedder().EmbedTexts(context.Background(), []string{"a"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable from EmbedTexts, got %v", err)
	}
	if _, err := provider.Analyzer().Analyze(context.Background(), "t", "https://example.com", "c"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable from Analyze, got %v", err)
	}
	if err := provider.Close(); err != nil {
		t.Fatalf("Expected nil from Close, got %v", err)
	}
}
