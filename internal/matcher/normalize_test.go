package matcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "quoted", input: `"Acme Co"`, want: "Acme Co"},
		{name: "plain", input: "Acme Co", want: "Acme Co"},
		{name: "padded quoted", input: `  "X"  `, want: "X"},
		{name: "space inside quotes", input: `" Dump Truck "`, want: "Dump Truck"},
		{name: "leading quote only", input: `"Excavator`, want: "Excavator"},
		{name: "trailing newline", input: "Excavator\n", want: "Excavator"},
		{name: "single quote char", input: `"`, want: ""},
		{name: "empty", input: "", want: ""},
		{name: "inner quotes kept", input: `12" Pipe`, want: `12" Pipe`},
		{name: "nested quotes kept", input: `""X""`, want: `""X""`},
		{name: "quoted quote kept", input: `" "X" "`, want: `" "X" "`},
		{name: "padded nested quotes", input: ` "" Acme Co "" `, want: `"" Acme Co ""`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		`"Acme Co"`, "Acme Co", `  "X"  `, `"`, "", " ", `" "`, `"a`, `b"`,
		"\t\"Moxy\"\n", `Say "hi" there`, `"Beta Ltd" `, `"  Padded  "`,
		`""X""`, `" "X" "`, `"" Acme Co ""`, `"""`, `""`, `" "" "`, `"X"" `,
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeNeverRemovesMoreThanOnePair(t *testing.T) {
	for _, core := range []string{"Acme", "Dump Truck", "a b"} {
		wrapped := `"` + `"` + core + `"` + `"`
		got := Normalize(wrapped)
		assert.True(t, strings.HasPrefix(got, `"`) && strings.HasSuffix(got, `"`), "got %q", got)
	}
}

func FuzzNormalize(f *testing.F) {
	for _, seed := range []string{`"Acme Co"`, `""X""`, `" "X" "`, `"" Acme Co ""`, `"`, "", " None\n", `12" Pipe`} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, raw string) {
		once := Normalize(raw)
		if twice := Normalize(once); twice != once {
			t.Fatalf("not idempotent: %q -> %q -> %q", raw, once, twice)
		}
		if strings.TrimSpace(once) != once {
			t.Fatalf("untrimmed result %q from %q", once, raw)
		}
		if !strings.Contains(raw, once) {
			t.Fatalf("%q is not a substring of %q", once, raw)
		}
	})
}
