package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WhatsAppClient is a thin client for WhatsApp Cloud API calls that are tenant-specific.
// Credenciais vêm da Instance do tenant (nada de env global por tenant).
type WhatsAppClient struct {
	AccessToken   string
	ApiVersion    string // e.g. v24.0
	PhoneNumberID string
}

type WhatsAppAPIError struct {
	StatusCode int
	Body       string
}

func (e WhatsAppAPIError) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d body=%s", e.StatusCode, e.Body)
}

func (c WhatsAppClient) post(ctx context.Context, path string, body any) error {
	apiVersion := strings.TrimSpace(c.ApiVersion)
	if apiVersion == "" {
		apiVersion = "v24.0"
	}
	url := fmt.Sprintf("https://graph.facebook.com/%s/%s/%s", apiVersion, strings.TrimSpace(c.PhoneNumberID), path)

	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.AccessToken))
	req.Header.Set("Content-Type", "application/json")

	httpClient := &http.Client{Timeout: 30 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return WhatsAppAPIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return nil
}

// SendText sends a text message via WhatsApp Cloud API.
func (c WhatsAppClient) SendText(ctx context.Context, to string, text string) error {
	if strings.TrimSpace(c.AccessToken) == "" || strings.TrimSpace(c.PhoneNumberID) == "" {
		return fmt.Errorf("whatsapp credentials not configured")
	}
	return c.post(ctx, "messages", map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text": map[string]any{
			"body": text,
		},
	})
}

// DownloadMedia baixa o conteúdo de uma URL de mídia do provedor.
// Devolve os bytes e o content-type reportado.
func (c WhatsAppClient) DownloadMedia(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(c.AccessToken) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.AccessToken))
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, "", WhatsAppAPIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("Content-Type"), nil
}
