package template

import (
	"os"
	"testing"

	"github.com/vustorm/vustorm/internal/data"
)

func TestEngine_Render_VarPlaceholder(t *testing.T) {
	e := New(nil, nil, nil)
	ctx := &Context{Variables: map[string]interface{}{"name": "ada"}}

	out, err := e.Render("hello {{name}}", ctx)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "hello ada" {
		t.Errorf("Render() = %q, want %q", out, "hello ada")
	}
}

func TestEngine_Render_UnknownPlaceholderLeftLiteral(t *testing.T) {
	e := New(nil, nil, nil)
	ctx := &Context{Variables: map[string]interface{}{}}

	out, err := e.Render("{{nope}}", ctx)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "{{nope}}" {
		t.Errorf("Render() = %q, want the placeholder left literal", out)
	}
}

func TestEngine_Render_EnvPlaceholder(t *testing.T) {
	os.Setenv("VUSTORM_TEST_VAR", "fromenv")
	defer os.Unsetenv("VUSTORM_TEST_VAR")

	e := New(nil, nil, nil)
	out, err := e.Render("{{env.VUSTORM_TEST_VAR}}", &Context{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "fromenv" {
		t.Errorf("Render() = %q, want fromenv", out)
	}
}

func TestEngine_Render_DottedVariableLookup(t *testing.T) {
	e := New(nil, nil, nil)
	ctx := &Context{Variables: map[string]interface{}{
		"user": map[string]interface{}{"id": 42},
	}}
	out, err := e.Render("{{user.id}}", ctx)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "42" {
		t.Errorf("Render() = %q, want 42", out)
	}
}

func TestEngine_Render_ExtractedTakesPrecedenceSecond(t *testing.T) {
	e := New(nil, nil, nil)
	ctx := &Context{
		Variables: map[string]interface{}{},
		Extracted: map[string]interface{}{"token": "xyz"},
	}
	out, err := e.Render("{{token}}", ctx)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "xyz" {
		t.Errorf("Render() = %q, want xyz", out)
	}
}

func TestEngine_Render_HelperCall(t *testing.T) {
	e := New(nil, nil, nil)
	out, err := e.Render("{{randomInt(5,5)}}", &Context{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "5" {
		t.Errorf("Render() = %q, want 5 when bounds are equal", out)
	}
}

func TestEngine_Render_CSVPlaceholder(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/rows.csv"
	if err := os.WriteFile(path, []byte("id,name\n1,alice\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	registry := data.NewRegistry()
	e := New(registry, nil, nil)

	out, err := e.Render("{{csv:"+path+"|column=name}}", &Context{VUID: 0})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "alice" {
		t.Errorf("Render() = %q, want alice", out)
	}
}

func TestEngine_Render_RuleOrderEnvThenVar(t *testing.T) {
	os.Setenv("VUSTORM_TEST_HOST", "api.example.com")
	defer os.Unsetenv("VUSTORM_TEST_HOST")

	e := New(nil, nil, nil)
	ctx := &Context{Variables: map[string]interface{}{"path": "/widgets"}}
	out, err := e.Render("https://{{env.VUSTORM_TEST_HOST}}{{path}}", ctx)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if out != "https://api.example.com/widgets" {
		t.Errorf("Render() = %q", out)
	}
}

func TestFaker_DeterministicWithFixedSeed(t *testing.T) {
	seed := int64(12345)
	f := NewFaker(FakerConfig{Seed: &seed})

	v1, err := f.Resolve("person.firstName", 3, 1)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	v2, err := f.Resolve("person.firstName", 3, 1)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if v1 != v2 {
		t.Errorf("Resolve() with a fixed seed and the same (vu,iter) = %q then %q, want identical", v1, v2)
	}
}

func TestFaker_DifferentVUsDiverge(t *testing.T) {
	seed := int64(999)
	f := NewFaker(FakerConfig{Seed: &seed})

	a, _ := f.Resolve("string.alphanumeric(16)", 1, 0)
	b, _ := f.Resolve("string.alphanumeric(16)", 2, 0)
	if a == b {
		t.Errorf("Resolve() gave the same value to two different VU ids: %q", a)
	}
}

func TestFaker_UnknownCategoryErrors(t *testing.T) {
	f := NewFaker(FakerConfig{})
	if _, err := f.Resolve("bogus.field", 0, 0); err == nil {
		t.Error("Resolve() with an unknown category expected an error, got nil")
	}
}

func TestFaker_MalformedPathErrors(t *testing.T) {
	f := NewFaker(FakerConfig{})
	if _, err := f.Resolve("noDot", 0, 0); err == nil {
		t.Error("Resolve() with a path missing a dot expected an error, got nil")
	}
}
