package ntriples

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
		wantErr  bool
	}{
		{
			name:     "simple triple",
			input:    "<http://example.org/s> <http://example.org/p> <http://example.org/o> .\n",
			expected: 1,
		},
		{
			name: "multiple triples with literals",
			input: `<http://example.org/s1> <http://example.org/p1> "literal1" .
<http://example.org/s2> <http://example.org/p2> "literal2"^^<http://www.w3.org/2001/XMLSchema#string> .
<http://example.org/s3> <http://example.org/p3> "hello"@en .
`,
			expected: 3,
		},
		{
			name: "blank nodes",
			input: `_:b1 <http://example.org/p> "value" .
<http://example.org/s> <http://example.org/p> _:b2 .
`,
			expected: 2,
		},
		{
			name:     "comment and blank lines are ignored",
			input:    "# a comment\n\n<http://example.org/s> <http://example.org/p> <http://example.org/o> .\n",
			expected: 1,
		},
		{
			name:    "missing trailing period",
			input:   "<http://example.org/s> <http://example.org/p> <http://example.org/o>\n",
			wantErr: true,
		},
		{
			name:    "unclosed literal",
			input:   `<http://example.org/s> <http://example.org/p> "unterminated .`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			triples, err := NewParser(tt.input).Parse()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(triples) != tt.expected {
				t.Fatalf("expected %d triples, got %d (%+v)", tt.expected, len(triples), triples)
			}
		})
	}
}

func TestParseStripsLiteralDecorations(t *testing.T) {
	input := `<http://example.org/s> <http://example.org/age> "30"^^<http://www.w3.org/2001/XMLSchema#integer> .
`
	triples, err := NewParser(input).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(triples) != 1 {
		t.Fatalf("expected 1 triple, got %d", len(triples))
	}
	if triples[0].Object != "30" {
		t.Fatalf("expected bare lexical form %q, got %q", "30", triples[0].Object)
	}
}

func TestParseEscapeSequences(t *testing.T) {
	input := "<http://example.org/s> <http://example.org/p> \"line1\\nline2\\ttabbed\" .\n"
	triples, err := NewParser(input).Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if triples[0].Object != "line1\nline2\ttabbed" {
		t.Fatalf("expected escape sequences decoded, got %q", triples[0].Object)
	}
}
