package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiOCR interage com o Gemini via SDK oficial para reconhecimento
// estruturado de documentos (foto de pedido -> texto). É a estratégia
// preferencial do pipeline de OCR; o fallback por regex roda sem ele.
type GeminiOCR struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

const ocrPrompt = "Transcreva todo o texto visível neste documento de pedido de venda, " +
	"linha por linha, na ordem de leitura. Preserve rótulos como Cliente, CPF, CNPJ, " +
	"Total e Data. Não resuma nem traduza; devolva apenas o texto transcrito."

// NewGeminiOCR creates a Gemini client for document transcription.
func NewGeminiOCR(ctx context.Context, apiKey, modelName string) (*GeminiOCR, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is empty")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	return &GeminiOCR{
		client: client,
		model:  client.GenerativeModel(modelName),
	}, nil
}

// Close closes the client connection.
func (c *GeminiOCR) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// ExtractText manda a imagem pro modelo e devolve a transcrição.
func (c *GeminiOCR) ExtractText(ctx context.Context, data []byte, mimeType string) (string, error) {
	format := "jpeg"
	if idx := strings.Index(mimeType, "/"); idx >= 0 {
		if f := strings.TrimSpace(mimeType[idx+1:]); f != "" {
			format = f
		}
	}

	resp, err := c.model.GenerateContent(ctx, genai.ImageData(format, data), genai.Text(ocrPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	var fullText string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			fullText += string(txt)
		}
	}

	if strings.TrimSpace(fullText) == "" {
		return "", fmt.Errorf("empty transcript from gemini")
	}
	return fullText, nil
}
