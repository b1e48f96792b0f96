package controllers

import (
	"regexp"
	"strings"

	"venditto/models"
	"venditto/tools"
)

// NormalizedLocation é o par lat/lng de um evento de localização.
type NormalizedLocation struct {
	Lat float64
	Lng float64
}

// NormalizedEvent é o evento canônico produzido a partir do payload cru do
// provedor, seja qual for o formato que ele resolveu mandar hoje.
type NormalizedEvent struct {
	InstanceIdentifier string
	Type               string
	From               string
	To                 string
	Text               string
	MediaURL           string
	MimeType           string
	Location           *NormalizedLocation
	ExternalID         string

	Direction string
	// DirectionStrong indica sinal forte (flag explícita ou número próprio);
	// só sinal forte pode ser confirmado por override de query.
	DirectionStrong bool
}

// fieldExtractor é uma estratégia nomeada de extração: a primeira que
// devolver valor ganha. Substitui a cascata de optional chaining do legado.
type fieldExtractor struct {
	name string
	fn   func(p map[string]any) (string, bool)
}

func pathExtractor(path string) fieldExtractor {
	return fieldExtractor{name: path, fn: func(p map[string]any) (string, bool) {
		return digString(p, path)
	}}
}

// digString resolve um caminho pontuado ("key.remoteJid") dentro do payload.
func digString(p map[string]any, path string) (string, bool) {
	cur := any(p)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur, ok = m[part]
		if !ok {
			return "", false
		}
	}
	s, ok := cur.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func digBool(p map[string]any, path string) (bool, bool) {
	cur := any(p)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return false, false
		}
		cur, ok = m[part]
		if !ok {
			return false, false
		}
	}
	switch v := cur.(type) {
	case bool:
		return v, true
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		if s == "true" || s == "1" {
			return true, true
		}
		if s == "false" || s == "0" {
			return false, true
		}
	}
	return false, false
}

func digFloat(p map[string]any, path string) (float64, bool) {
	cur := any(p)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return 0, false
		}
		cur, ok = m[part]
		if !ok {
			return 0, false
		}
	}
	f, ok := cur.(float64)
	return f, ok
}

func firstMatch(p map[string]any, extractors []fieldExtractor) string {
	for _, e := range extractors {
		if v, ok := e.fn(p); ok {
			return v
		}
	}
	return ""
}

// Cadeias de candidatos, em ordem de precedência. Cada provedor/versão de
// payload usa um nome diferente pro mesmo dado.
var (
	correlationExtractors = []fieldExtractor{
		pathExtractor("correlationId"),
		pathExtractor("correlation_id"),
	}
	externalIDExtractors = []fieldExtractor{
		pathExtractor("messageId"),
		pathExtractor("message_id"),
		pathExtractor("key.id"),
		pathExtractor("message.id"),
		pathExtractor("data.id"),
		pathExtractor("id"),
	}
	typeExtractors = []fieldExtractor{
		pathExtractor("messageType"),
		pathExtractor("message.type"),
		pathExtractor("data.messageType"),
		pathExtractor("type"),
	}
	mimeExtractors = []fieldExtractor{
		pathExtractor("mimetype"),
		pathExtractor("message.mimetype"),
		pathExtractor("media.mimetype"),
		pathExtractor("data.mimetype"),
	}
	fromExtractors = []fieldExtractor{
		pathExtractor("key.remoteJid"),
		pathExtractor("from"),
		pathExtractor("sender"),
		pathExtractor("message.from"),
		pathExtractor("data.from"),
		pathExtractor("phone"),
	}
	toExtractors = []fieldExtractor{
		pathExtractor("to"),
		pathExtractor("recipient"),
		pathExtractor("message.to"),
		pathExtractor("data.to"),
	}
	textExtractors = []fieldExtractor{
		pathExtractor("message.conversation"),
		pathExtractor("message.text"),
		pathExtractor("message.body"),
		pathExtractor("text"),
		pathExtractor("body"),
		pathExtractor("caption"),
		pathExtractor("data.body"),
	}
	mediaExtractors = []fieldExtractor{
		pathExtractor("mediaUrl"),
		pathExtractor("media_url"),
		pathExtractor("message.mediaUrl"),
		pathExtractor("image.url"),
		pathExtractor("data.mediaUrl"),
	}
)

var groupIDPrefixRe = regexp.MustCompile(`^\d{15,}-`)

// IsGroupAddress detecta endereços que não são pessoa: grupo, broadcast,
// status. Evento de grupo é reconhecido (200) mas nunca abre caso.
func IsGroupAddress(addr string) bool {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if addr == "" {
		return false
	}
	if strings.HasSuffix(addr, "@g.us") {
		return true
	}
	if addr == "status@broadcast" || strings.HasSuffix(addr, "@broadcast") {
		return true
	}
	return groupIDPrefixRe.MatchString(addr)
}

// stripJid remove o sufixo de JID ("5511...@s.whatsapp.net" -> "5511...").
func stripJid(addr string) string {
	if idx := strings.IndexByte(addr, '@'); idx >= 0 {
		return addr[:idx]
	}
	return addr
}

func classifyType(p map[string]any) string {
	if explicit := firstMatch(p, typeExtractors); explicit != "" {
		switch strings.ToLower(explicit) {
		case "text", "chat", "conversation":
			return models.MESSAGE_TYPE_TEXT
		case "image", "photo", "document", "sticker":
			return models.MESSAGE_TYPE_IMAGE
		case "audio", "ptt", "voice":
			return models.MESSAGE_TYPE_AUDIO
		case "location":
			return models.MESSAGE_TYPE_LOCATION
		}
	}

	mime := strings.ToLower(firstMatch(p, mimeExtractors))
	switch {
	case strings.HasPrefix(mime, "image/"), mime == "application/pdf":
		return models.MESSAGE_TYPE_IMAGE
	case strings.HasPrefix(mime, "audio/"):
		return models.MESSAGE_TYPE_AUDIO
	}

	if _, ok := digFloat(p, "location.latitude"); ok {
		return models.MESSAGE_TYPE_LOCATION
	}

	return models.MESSAGE_TYPE_TEXT
}

var outboundKeywords = []string{"send", "sent", "delivery", "message-out", "outgoing"}
var inboundKeywords = []string{"receive", "received", "message-in", "incoming"}

// directionSignals separa os sinais de direção por força. Sinais fortes:
// flag explícita "enviado por mim" e from == número da própria instância.
// Sinal fraco: keyword em event/action/status.
type directionSignals struct {
	flagDir    string // "" quando não há flag explícita
	keywordDir string
	ownDir     string // "" quando from não é o número da instância
}

func collectDirectionSignals(p map[string]any, from string, instancePhone string) directionSignals {
	var sig directionSignals

	for _, path := range []string{"fromMe", "key.fromMe", "sentByMe", "self"} {
		if v, ok := digBool(p, path); ok {
			if v {
				sig.flagDir = models.MESSAGE_DIRECTION_OUTBOUND
			} else {
				sig.flagDir = models.MESSAGE_DIRECTION_INBOUND
			}
			break
		}
	}

	for _, path := range []string{"event", "action", "status"} {
		v, ok := digString(p, path)
		if !ok {
			continue
		}
		v = strings.ToLower(v)
		for _, kw := range outboundKeywords {
			if strings.Contains(v, kw) {
				sig.keywordDir = models.MESSAGE_DIRECTION_OUTBOUND
			}
		}
		if sig.keywordDir == "" {
			for _, kw := range inboundKeywords {
				if strings.Contains(v, kw) {
					sig.keywordDir = models.MESSAGE_DIRECTION_INBOUND
				}
			}
		}
		if sig.keywordDir != "" {
			break
		}
	}

	if from != "" && instancePhone != "" && tools.SamePhone(stripJid(from), instancePhone) {
		sig.ownDir = models.MESSAGE_DIRECTION_OUTBOUND
	}

	return sig
}

// inferDirection aplica a precedência: flag explícita -> keyword ->
// número próprio -> inbound. Devolve também se o sinal decisivo é forte.
func inferDirection(sig directionSignals) (string, bool) {
	if sig.flagDir != "" {
		return sig.flagDir, true
	}
	if sig.keywordDir != "" {
		return sig.keywordDir, false
	}
	if sig.ownDir != "" {
		return sig.ownDir, true
	}
	return models.MESSAGE_DIRECTION_INBOUND, false
}

// NormalizeEvent transforma o payload arbitrário do provedor num evento
// canônico. instancePhone é o número registrado da instância (pra inferir
// direção); directionOverride vem da query e só vale com sinal forte que
// concorde — override discordante seria misclassificação silenciosa.
func NormalizeEvent(payload map[string]any, instanceIdentifier, instancePhone, directionOverride string) NormalizedEvent {
	ev := NormalizedEvent{
		InstanceIdentifier: instanceIdentifier,
		ExternalID:         firstMatch(payload, externalIDExtractors),
		From:               firstMatch(payload, fromExtractors),
		To:                 firstMatch(payload, toExtractors),
		Text:               firstMatch(payload, textExtractors),
		MediaURL:           firstMatch(payload, mediaExtractors),
		MimeType:           firstMatch(payload, mimeExtractors),
	}

	ev.Type = classifyType(payload)

	if lat, ok := digFloat(payload, "location.latitude"); ok {
		if lng, ok2 := digFloat(payload, "location.longitude"); ok2 {
			ev.Location = &NormalizedLocation{Lat: lat, Lng: lng}
		}
	}

	sig := collectDirectionSignals(payload, ev.From, instancePhone)
	ev.Direction, ev.DirectionStrong = inferDirection(sig)

	// Override só vence se concordar com um sinal forte; senão fica a direção
	// inferida, pra não misclassificar em silêncio.
	override := strings.ToLower(strings.TrimSpace(directionOverride))
	if override == models.MESSAGE_DIRECTION_INBOUND || override == models.MESSAGE_DIRECTION_OUTBOUND {
		if override == sig.flagDir || override == sig.ownDir {
			ev.Direction = override
			ev.DirectionStrong = true
		}
	}

	return ev
}
