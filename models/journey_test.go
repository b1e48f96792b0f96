package models

import "testing"

func TestParseJourneyConfig(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"minimo", `{"states":["novo"]}`, true},
		{"completo", `{"states":["novo","em_andamento","pending_vendor","ready_review"],
			"default":"novo","create_on_image":true,
			"image_initial_state":"em_andamento",
			"transitions":{"novo->em_andamento":[{"type":"notify"}],"->novo":[]},
			"required_fields":[{"key":"cpf","required":true,"role":"vendor"}]}`, true},
		{"vazio", ``, false},
		{"json invalido", `{states}`, false},
		{"sem estados", `{"states":[]}`, false},
		{"estado duplicado", `{"states":["a","a"]}`, false},
		{"default desconhecido", `{"states":["a"],"default":"b"}`, false},
		{"initial desconhecido", `{"states":["a"],"initial_state":"b"}`, false},
		{"transicao origem invalida", `{"states":["a"],"transitions":{"x->a":[]}}`, false},
		{"transicao destino invalido", `{"states":["a"],"transitions":{"a->x":[]}}`, false},
		{"transicao sem seta", `{"states":["a"],"transitions":{"a":[]}}`, false},
		{"field sem key", `{"states":["a"],"required_fields":[{"required":true}]}`, false},
		{"field role invalido", `{"states":["a"],"required_fields":[{"key":"x","role":"gerente"}]}`, false},
	}

	for _, c := range cases {
		_, err := ParseJourneyConfig(c.raw)
		if c.ok && err != nil {
			t.Fatalf("%s: erro inesperado: %v", c.name, err)
		}
		if !c.ok && err == nil {
			t.Fatalf("%s: deveria falhar", c.name)
		}
	}
}

func TestEntryState(t *testing.T) {
	cfg, err := ParseJourneyConfig(`{"states":["novo","analise","doc"],
		"default":"novo","initial_state":"analise","image_initial_state":"doc"}`)
	if err != nil {
		t.Fatalf("config: %v", err)
	}

	if got := cfg.EntryState(false); got != "analise" {
		t.Fatalf("EntryState(false) = %q", got)
	}
	if got := cfg.EntryState(true); got != "doc" {
		t.Fatalf("EntryState(true) = %q", got)
	}

	cfg2, _ := ParseJourneyConfig(`{"states":["a","b"]}`)
	if got := cfg2.EntryState(true); got != "a" {
		t.Fatalf("EntryState sem hints = %q, esperado primeiro estado", got)
	}
}
