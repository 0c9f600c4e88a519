package lexer

import "testing"

func typesOf(tokens []Token) []TokenType {
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestScanLiterals(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []TokenType
	}{
		{"decimal int", "42", []TokenType{TokenInt, TokenEOL}},
		{"hex int", "0x2A", []TokenType{TokenInt, TokenEOL}},
		{"octal int", "052", []TokenType{TokenInt, TokenEOL}},
		{"unsigned suffix", "42u", []TokenType{TokenUint, TokenEOL}},
		{"float with point", "1.7", []TokenType{TokenFloat, TokenEOL}},
		{"float with exponent", "1e10", []TokenType{TokenFloat, TokenEOL}},
		{"ignored L suffix", "42L", []TokenType{TokenInt, TokenEOL}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := typesOf(NewScanner(tt.input).ScanTokens())
			if len(got) != len(tt.want) {
				t.Fatalf("ScanTokens(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ScanTokens(%q)[%d] = %s, want %s", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestScanOperators(t *testing.T) {
	input := "<< >> && || <= >= == != ( ) ~ ^"
	want := []TokenType{
		TokenShl, TokenShr, TokenAndAnd, TokenOrOr, TokenLE, TokenGE,
		TokenEq, TokenNe, TokenLParen, TokenRParen, TokenTilde, TokenCaret, TokenEOL,
	}
	got := typesOf(NewScanner(input).ScanTokens())
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("token %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestScanIdentifierAndCastType(t *testing.T) {
	tokens := NewScanner("(u32ptr)value").ScanTokens()
	want := []TokenType{TokenLParen, TokenIdent, TokenRParen, TokenIdent, TokenEOL}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, tok := range tokens {
		if tok.Type != want[i] {
			t.Errorf("token %d = %s, want %s", i, tok.Type, want[i])
		}
	}
	if tokens[1].Lexeme != "u32ptr" {
		t.Errorf("type token lexeme = %q, want u32ptr", tokens[1].Lexeme)
	}
}
