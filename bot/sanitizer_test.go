package bot

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name         string
		in           string
		wantEscalate bool
	}{
		{"clean reply", "Здравствуйте! Ваш заказ уже в пути.", false},
		{"mentions bot ru", "Я всего лишь бот и не могу помочь.", true},
		{"mentions llm", "As a language model I cannot do that.", true},
		{"mentions gpt", "Здесь отвечает ChatGPT.", true},
		{"neural net", "Меня обучила нейросеть.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean, escalate := sanitize(tt.in)
			if escalate != tt.wantEscalate {
				t.Errorf("sanitize(%q) escalate = %v, want %v", tt.in, escalate, tt.wantEscalate)
			}
			if !escalate && clean == "" {
				t.Errorf("sanitize(%q) вернул пустой текст без эскалации", tt.in)
			}
			if escalate && clean != "" {
				t.Errorf("sanitize(%q) при эскалации текст должен быть пустым", tt.in)
			}
		})
	}
}
