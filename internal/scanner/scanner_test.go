package scanner

import "testing"

func kinds(t *testing.T, src string) []Kind {
	t.Helper()
	s := New(src)
	var got []Kind
	for {
		tok := s.Scan()
		got = append(got, tok.Kind)
		if tok.Kind == EOF || tok.Kind == Error {
			break
		}
	}
	return got
}

func TestScanPunctuationAndOperators(t *testing.T) {
	got := kinds(t, `(){},.-+;:/* ! != = == > >= < <=`)
	want := []Kind{
		LeftParen, RightParen, LeftBrace, RightBrace, Comma, Dot, Minus, Plus,
		Semicolon, Colon, Slash, Star, Bang, BangEqual, Equal, EqualEqual,
		Greater, GreaterEqual, Less, LessEqual, EOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	got := kinds(t, `var final while switch case default break continue foobar`)
	want := []Kind{Var, Final, While, Switch, Case, Default, Break, Continue, Identifier, EOF}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScanStringLiteral(t *testing.T) {
	s := New(`"hello world"`)
	tok := s.Scan()
	if tok.Kind != String {
		t.Fatalf("kind = %v, want String", tok.Kind)
	}
	if tok.Lexeme != `"hello world"` {
		t.Errorf("lexeme = %q, want %q", tok.Lexeme, `"hello world"`)
	}
}

func TestScanUnterminatedStringIsError(t *testing.T) {
	s := New(`"unterminated`)
	tok := s.Scan()
	if tok.Kind != Error {
		t.Fatalf("kind = %v, want Error", tok.Kind)
	}
}

func TestScanNumberLiteral(t *testing.T) {
	for _, src := range []string{"123", "3.14", "0.5"} {
		s := New(src)
		tok := s.Scan()
		if tok.Kind != Number {
			t.Errorf("scanning %q: kind = %v, want Number", src, tok.Kind)
		}
		if tok.Lexeme != src {
			t.Errorf("scanning %q: lexeme = %q", src, tok.Lexeme)
		}
	}
}

func TestScanSkipsCommentsAndWhitespace(t *testing.T) {
	got := kinds(t, "// a comment\n  \t\n  print 1;")
	want := []Kind{Print, Number, Semicolon, EOF}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLineNumbersAdvanceAcrossNewlines(t *testing.T) {
	s := New("var a = 1;\nvar b = 2;")
	var lastLine int
	for {
		tok := s.Scan()
		if tok.Kind == EOF {
			break
		}
		lastLine = tok.Line
	}
	if lastLine != 2 {
		t.Errorf("last token line = %d, want 2", lastLine)
	}
}
