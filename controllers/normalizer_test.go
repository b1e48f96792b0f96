package controllers

import (
	"encoding/json"
	"testing"

	"venditto/models"
)

func payload(t *testing.T, raw string) map[string]any {
	t.Helper()
	var p map[string]any
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("payload inválido no teste: %v", err)
	}
	return p
}

func TestClassifyType(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"explicito chat", `{"messageType":"chat"}`, models.MESSAGE_TYPE_TEXT},
		{"explicito image", `{"type":"image"}`, models.MESSAGE_TYPE_IMAGE},
		{"explicito sticker", `{"messageType":"sticker"}`, models.MESSAGE_TYPE_IMAGE},
		{"explicito ptt", `{"messageType":"ptt"}`, models.MESSAGE_TYPE_AUDIO},
		{"mime image", `{"mimetype":"image/jpeg"}`, models.MESSAGE_TYPE_IMAGE},
		{"mime pdf", `{"mimetype":"application/pdf"}`, models.MESSAGE_TYPE_IMAGE},
		{"mime audio", `{"mimetype":"audio/ogg"}`, models.MESSAGE_TYPE_AUDIO},
		{"location", `{"location":{"latitude":-23.5,"longitude":-46.6}}`, models.MESSAGE_TYPE_LOCATION},
		{"default texto", `{"message":{"conversation":"oi"}}`, models.MESSAGE_TYPE_TEXT},
	}

	for _, c := range cases {
		if got := classifyType(payload(t, c.raw)); got != c.want {
			t.Fatalf("%s: classifyType = %q, esperado %q", c.name, got, c.want)
		}
	}
}

func TestIsGroupAddress(t *testing.T) {
	cases := []struct {
		addr string
		want bool
	}{
		{"5511988887777@s.whatsapp.net", false},
		{"123456789012345678@g.us", true},
		{"status@broadcast", true},
		{"algo@broadcast", true},
		{"123456789012345-1609459200", true}, // id numérico longo com sufixo
		{"5511988887777", false},
		{"", false},
	}

	for _, c := range cases {
		if got := IsGroupAddress(c.addr); got != c.want {
			t.Fatalf("IsGroupAddress(%q) = %v, esperado %v", c.addr, got, c.want)
		}
	}
}

func TestInferDirection(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		want   string
		strong bool
	}{
		{"fromMe true", `{"key":{"fromMe":true,"remoteJid":"5511988887777@s.whatsapp.net"}}`,
			models.MESSAGE_DIRECTION_OUTBOUND, true},
		{"fromMe false", `{"fromMe":false}`, models.MESSAGE_DIRECTION_INBOUND, true},
		{"keyword outbound", `{"event":"message-out"}`, models.MESSAGE_DIRECTION_OUTBOUND, false},
		{"keyword inbound", `{"event":"messages-received"}`, models.MESSAGE_DIRECTION_INBOUND, false},
		{"sem sinal", `{"message":{"conversation":"oi"}}`, models.MESSAGE_DIRECTION_INBOUND, false},
	}

	for _, c := range cases {
		ev := NormalizeEvent(payload(t, c.raw), "inst-1", "5511900001111", "")
		if ev.Direction != c.want || ev.DirectionStrong != c.strong {
			t.Fatalf("%s: direção (%q, strong=%v), esperado (%q, %v)",
				c.name, ev.Direction, ev.DirectionStrong, c.want, c.strong)
		}
	}
}

// fromMe=true vence qualquer keyword de inbound no payload.
func TestFromMeSempreOutbound(t *testing.T) {
	ev := NormalizeEvent(payload(t, `{"event":"messages-received","fromMe":true}`),
		"inst-1", "5511900001111", "")
	if ev.Direction != models.MESSAGE_DIRECTION_OUTBOUND || !ev.DirectionStrong {
		t.Fatalf("fromMe=true deveria ser outbound forte, veio (%q, %v)", ev.Direction, ev.DirectionStrong)
	}
}

func TestDirectionSelfNumber(t *testing.T) {
	// from == número da instância -> outbound forte
	ev := NormalizeEvent(payload(t, `{"from":"5511900001111@s.whatsapp.net"}`),
		"inst-1", "5511900001111", "")
	if ev.Direction != models.MESSAGE_DIRECTION_OUTBOUND || !ev.DirectionStrong {
		t.Fatalf("número próprio deveria ser outbound forte, veio (%q, %v)", ev.Direction, ev.DirectionStrong)
	}
}

func TestDirectionOverride(t *testing.T) {
	// Override concordando com sinal forte vence.
	ev := NormalizeEvent(payload(t, `{"fromMe":true}`), "inst-1", "5511900001111", "outbound")
	if ev.Direction != models.MESSAGE_DIRECTION_OUTBOUND {
		t.Fatalf("override concordante deveria manter outbound")
	}

	// Override discordante do sinal forte é ignorado.
	ev = NormalizeEvent(payload(t, `{"fromMe":true}`), "inst-1", "5511900001111", "inbound")
	if ev.Direction != models.MESSAGE_DIRECTION_OUTBOUND {
		t.Fatalf("override discordante deveria ser ignorado, veio %q", ev.Direction)
	}

	// Override sem nenhum sinal forte é ignorado (fica a inferência).
	ev = NormalizeEvent(payload(t, `{"message":{"conversation":"oi"}}`), "inst-1", "5511900001111", "outbound")
	if ev.Direction != models.MESSAGE_DIRECTION_INBOUND {
		t.Fatalf("override sem sinal forte deveria ser ignorado, veio %q", ev.Direction)
	}

	// Keyword fraca sombreando número próprio: override que concorda com o
	// sinal forte sombreado vence a keyword.
	ev = NormalizeEvent(payload(t, `{"event":"messages-received","from":"5511900001111"}`),
		"inst-1", "5511900001111", "outbound")
	if ev.Direction != models.MESSAGE_DIRECTION_OUTBOUND || !ev.DirectionStrong {
		t.Fatalf("override com sinal forte sombreado deveria vencer, veio (%q, %v)",
			ev.Direction, ev.DirectionStrong)
	}
}

func TestNormalizeEventCampos(t *testing.T) {
	ev := NormalizeEvent(payload(t, `{
		"key":{"remoteJid":"5511988887777@s.whatsapp.net","id":"ABC123"},
		"message":{"conversation":"2x cimento"},
		"mimetype":"image/jpeg",
		"mediaUrl":"https://cdn.example/img.jpg"
	}`), "inst-1", "5511900001111", "")

	if ev.From != "5511988887777@s.whatsapp.net" {
		t.Fatalf("From = %q", ev.From)
	}
	if ev.ExternalID != "ABC123" {
		t.Fatalf("ExternalID = %q", ev.ExternalID)
	}
	if ev.Text != "2x cimento" {
		t.Fatalf("Text = %q", ev.Text)
	}
	if ev.MediaURL != "https://cdn.example/img.jpg" {
		t.Fatalf("MediaURL = %q", ev.MediaURL)
	}
	if ev.Type != models.MESSAGE_TYPE_IMAGE {
		t.Fatalf("Type = %q", ev.Type)
	}
}
