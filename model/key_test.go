package model

import "testing"

func TestZeroKey_IsZero(t *testing.T) {
	if !ZeroKey().IsZero() {
		t.Error("expected ZeroKey() to be zero")
	}
}

func TestNewKey_IsNotZeroAndUnique(t *testing.T) {
	a := NewKey()
	if a.IsZero() {
		t.Error("expected NewKey() to not be zero")
	}
	b := NewKey()
	if a.Equal(b) {
		t.Error("expected two independently minted keys to differ")
	}
}

func TestKey_Equal(t *testing.T) {
	a := NewKey()
	if !a.Equal(a) {
		t.Error("expected a key to equal itself")
	}
	if ZeroKey().Equal(a) {
		t.Error("expected ZeroKey() not to equal a minted key")
	}
}
