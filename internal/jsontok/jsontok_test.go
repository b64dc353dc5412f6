package jsontok

import (
	"errors"
	"testing"
)

func TestParse_ObjectLayout(t *testing.T) {
	js := []byte(`{"a":1,"b":[true,null]}`)

	toks, err := Parse(js, 16)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	want := []Token{
		{Kind: Object, Start: 0, End: 23, Size: 4, Parent: -1},
		{Kind: String, Start: 2, End: 3, Parent: -1},
		{Kind: Primitive, Start: 5, End: 6, Parent: -1},
		{Kind: String, Start: 8, End: 9, Parent: -1},
		{Kind: Array, Start: 11, End: 22, Size: 2, Parent: -1},
		{Kind: Primitive, Start: 12, End: 16, Parent: -1},
		{Kind: Primitive, Start: 17, End: 21, Parent: -1},
	}
	if len(toks) != len(want) {
		t.Fatalf("token count = %d, want %d", len(toks), len(want))
	}
	for i := range want {
		if toks[i] != want[i] {
			t.Errorf("token %d = %+v, want %+v", i, toks[i], want[i])
		}
	}
	if got := string(toks[5].Text(js)); got != "true" {
		t.Errorf("token 5 text = %q, want true", got)
	}
}

func TestParse_ParentLinks(t *testing.T) {
	js := []byte(`{"a":1,"b":[true,null]}`)

	toks, err := Parse(js, 16, WithParentLinks())
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	wantParents := []int{-1, 0, 0, 0, 0, 4, 4}
	for i, want := range wantParents {
		if toks[i].Parent != want {
			t.Errorf("token %d parent = %d, want %d", i, toks[i].Parent, want)
		}
	}
}

func TestParse_ContainerSizeMatchesChildren(t *testing.T) {
	docs := []string{
		`[]`,
		`{}`,
		`[1,[2,3],{"k":[]}]`,
		`{"a":{"b":{"c":[1,2,3]}},"d":"e"}`,
		`[{"class":"firefox"},{"class":"Firefox"},{"class":"kitty"}]`,
		` [ "x" , -1.5e3 , false ] `,
	}

	for _, doc := range docs {
		js := []byte(doc)
		toks, err := Parse(js, 64, WithParentLinks())
		if err != nil {
			t.Fatalf("Parse(%s) returned error: %v", doc, err)
		}

		children := make(map[int]int)
		for _, tok := range toks {
			if tok.Parent >= 0 {
				children[tok.Parent]++
			}
			if tok.End == -1 {
				t.Errorf("Parse(%s): token %+v has no end", doc, tok)
			}
		}
		for i, tok := range toks {
			if tok.Kind != Object && tok.Kind != Array {
				continue
			}
			if tok.Size != children[i] {
				t.Errorf("Parse(%s): token %d size = %d, want %d", doc, i, tok.Size, children[i])
			}
		}
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		capacity int
		wantErr  error
		wantPos  int
		wantN    int
	}{
		{name: "bad escape", input: `["\x"]`, capacity: 8, wantErr: ErrInvalid, wantPos: 1, wantN: 1},
		{name: "bad unicode digit", input: `["\u00g9"]`, capacity: 8, wantErr: ErrInvalid, wantPos: 1, wantN: 1},
		{name: "truncated unicode", input: `["\u00`, capacity: 8, wantErr: ErrIncomplete, wantPos: 1, wantN: 1},
		{name: "truncated escape", input: `["abc\`, capacity: 8, wantErr: ErrIncomplete, wantPos: 1, wantN: 1},
		{name: "quote inside primitive", input: `[tr"ue]`, capacity: 8, wantErr: ErrInvalid, wantPos: 1, wantN: 1},
		{name: "control byte in primitive", input: "[tr\x01ue]", capacity: 8, wantErr: ErrInvalid, wantPos: 1, wantN: 1},
		{name: "kind mismatch", input: `{"a":[1}`, capacity: 8, wantErr: ErrInvalid, wantPos: 7, wantN: 4},
		{name: "stray close", input: `]`, capacity: 8, wantErr: ErrInvalid, wantPos: 0, wantN: 0},
		{name: "unclosed array", input: `[1,2`, capacity: 8, wantErr: ErrIncomplete, wantPos: 4, wantN: 3},
		{name: "string out of tokens", input: `["a","b"]`, capacity: 2, wantErr: ErrNoMemory, wantPos: 5, wantN: 2},
		{name: "container out of tokens", input: `[[1]]`, capacity: 1, wantErr: ErrNoMemory, wantPos: 1, wantN: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser()
			n, err := p.Parse([]byte(tt.input), make([]Token, tt.capacity))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if p.Pos() != tt.wantPos {
				t.Errorf("pos = %d, want %d", p.Pos(), tt.wantPos)
			}
			if n != tt.wantN {
				t.Errorf("count = %d, want %d", n, tt.wantN)
			}
		})
	}
}

func TestParse_ErrorsAreDistinct(t *testing.T) {
	if errors.Is(ErrNoMemory, ErrInvalid) || errors.Is(ErrIncomplete, ErrInvalid) || errors.Is(ErrNoMemory, ErrIncomplete) {
		t.Fatal("sentinel errors must not match each other")
	}
}

func TestParse_ResumesAfterIncompleteString(t *testing.T) {
	full := []byte(`{"name":"firefox"}`)
	tokens := make([]Token, 8)
	p := NewParser()

	n, err := p.Parse(full[:13], tokens)
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("err = %v, want ErrIncomplete", err)
	}
	if n != 2 || p.Pos() != 8 {
		t.Fatalf("count=%d pos=%d, want count=2 pos=8", n, p.Pos())
	}

	n, err = p.Parse(full, tokens)
	if err != nil {
		t.Fatalf("resume returned error: %v", err)
	}
	if n != 3 {
		t.Fatalf("count = %d, want 3", n)
	}
	if got := string(tokens[2].Text(full)); got != "firefox" {
		t.Errorf("value = %q, want firefox", got)
	}
	if tokens[0].Size != 2 || tokens[0].End != len(full) {
		t.Errorf("object = %+v, want size 2 end %d", tokens[0], len(full))
	}
}

func TestParse_RetryWithMoreTokens(t *testing.T) {
	js := []byte(`[1,2,3]`)
	backing := make([]Token, 4)
	p := NewParser()

	n, err := p.Parse(js, backing[:2])
	if !errors.Is(err, ErrNoMemory) {
		t.Fatalf("err = %v, want ErrNoMemory", err)
	}
	if n != 2 || p.Pos() != 3 {
		t.Fatalf("count=%d pos=%d, want count=2 pos=3", n, p.Pos())
	}

	n, err = p.Parse(js, backing)
	if err != nil {
		t.Fatalf("retry returned error: %v", err)
	}
	if n != 4 {
		t.Fatalf("count = %d, want 4", n)
	}
	if backing[0].Size != 3 {
		t.Errorf("array size = %d, want 3", backing[0].Size)
	}
}

func TestParse_EmptyAndWhitespace(t *testing.T) {
	for _, in := range []string{"", " \t\r\n", ",:"} {
		n, err := NewParser().Parse([]byte(in), nil)
		if err != nil || n != 0 {
			t.Errorf("Parse(%q) = %d, %v; want 0, nil", in, n, err)
		}
	}
}

func TestParse_ValidEscapes(t *testing.T) {
	js := []byte(`["a\"b\\c\/d\b\f\n\r\t", "éꯍ"]`)
	toks, err := Parse(js, 4)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(toks) != 3 {
		t.Fatalf("token count = %d, want 3", len(toks))
	}
	if got := string(toks[1].Text(js)); got != `a\"b\\c\/d\b\f\n\r\t` {
		t.Errorf("raw string = %q", got)
	}
}

func TestParser_ResetStartsOver(t *testing.T) {
	p := NewParser()
	tokens := make([]Token, 4)
	if _, err := p.Parse([]byte(`[1`), tokens); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("err = %v, want ErrIncomplete", err)
	}
	p.Reset()
	n, err := p.Parse([]byte(`[7]`), tokens)
	if err != nil || n != 2 {
		t.Fatalf("after Reset: %d, %v; want 2, nil", n, err)
	}
}
