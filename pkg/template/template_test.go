package template_test

import (
	"testing"

	"github.com/betoarts/masszap/pkg/models"
	"github.com/betoarts/masszap/pkg/template"
	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	data := map[string]any{
		"primeiro_nome": "Maria",
		"nome_completo": "Maria da Silva",
		"pedido":        "1234",
		"desconto":      float64(15),
		"contact":       map[string]any{"city": "Recife"},
	}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no placeholders", "Oi, tudo bem?", "Oi, tudo bem?"},
		{"single token", "Oi {{primeiro_nome}}!", "Oi Maria!"},
		{"multiple tokens", "{{primeiro_nome}}, seu pedido {{pedido}} saiu", "Maria, seu pedido 1234 saiu"},
		{"number value", "Desconto de {{desconto}}%", "Desconto de 15%"},
		{"dotted path", "Entrega em {{contact.city}}", "Entrega em Recife"},
		{"unknown key", "Oi {{apelido}}!", "Oi !"},
		{"whitespace in token", "Oi {{ primeiro_nome }}!", "Oi Maria!"},
		{"unclosed placeholder", "Oi {{primeiro_nome", "Oi {{primeiro_nome"},
		{"empty key", "Oi {{}}!", "Oi !"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, template.Render(tt.input, data))
		})
	}
}

func TestRenderContext(t *testing.T) {
	ctx := models.ExecutionContext{"name": "Joana"}

	assert.Equal(t, "Oi Joana", template.RenderContext("Oi {{name}}", ctx))
}
