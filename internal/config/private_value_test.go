package config

import (
	"testing"

	"github.com/pelletier/go-toml/v2"
)

type privateValueHolder struct {
	V privateValue `toml:"v"`
}

func TestPrivateValue_UnmarshalsLiteralString(t *testing.T) {
	var h privateValueHolder
	if err := toml.Unmarshal([]byte(`v = "hello"`), &h); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got, err := h.V.resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "hello" {
		t.Errorf("resolve() = %q, want hello", got)
	}
}

func TestPrivateValue_UnmarshalsEnvTable(t *testing.T) {
	t.Setenv("PRIVATE_VALUE_TEST_VAR", "from-env")
	var h privateValueHolder
	if err := toml.Unmarshal([]byte(`v = { env = "PRIVATE_VALUE_TEST_VAR" }`), &h); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got, err := h.V.resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "from-env" {
		t.Errorf("resolve() = %q, want from-env", got)
	}
}

func TestPrivateValue_RejectsTableWithExtraKeys(t *testing.T) {
	var h privateValueHolder
	err := toml.Unmarshal([]byte(`v = { env = "X", extra = "y" }`), &h)
	if err == nil {
		t.Fatal("expected an error for a table with more than the single 'env' key")
	}
}

func TestPrivateValue_RejectsWrongShape(t *testing.T) {
	var h privateValueHolder
	err := toml.Unmarshal([]byte(`v = 42`), &h)
	if err == nil {
		t.Fatal("expected an error for a non-string, non-table value")
	}
}

func TestPrivateValue_ResolveErrorsOnMissingEnvVar(t *testing.T) {
	var h privateValueHolder
	if err := toml.Unmarshal([]byte(`v = { env = "DEFINITELY_NOT_SET_98765" }`), &h); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, err := h.V.resolve(); err == nil {
		t.Fatal("expected resolve() to error on an unset env var")
	}
}
