package credential

import (
	"errors"
	"testing"

	"github.com/99designs/keyring"
)

func useMemoryRing(t *testing.T) {
	t.Helper()
	ring := keyring.NewArrayKeyring(nil)
	prev := Opener
	Opener = func() (keyring.Keyring, error) { return ring, nil }
	t.Cleanup(func() { Opener = prev })
}

func TestSetGetDelete(t *testing.T) {
	useMemoryRing(t)

	if err := Set(KeyIMAPPassword, "hunter2"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := Get(KeyIMAPPassword)
	if err != nil || got != "hunter2" {
		t.Fatalf("Get = %q, %v", got, err)
	}

	if err := Delete(KeyIMAPPassword); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := Get(KeyIMAPPassword); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete = %v, want ErrNotFound", err)
	}
	if err := Delete(KeyIMAPPassword); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestAPITokenPrecedence(t *testing.T) {
	useMemoryRing(t)
	t.Setenv(TokenEnv, "")

	tok, err := APIToken()
	if err != nil || tok != "" {
		t.Fatalf("APIToken with nothing stored = %q, %v", tok, err)
	}

	if err := Set(KeyAPIToken, "from-ring"); err != nil {
		t.Fatal(err)
	}
	if tok, _ := APIToken(); tok != "from-ring" {
		t.Errorf("APIToken = %q, want from-ring", tok)
	}

	t.Setenv(TokenEnv, "from-env")
	if tok, _ := APIToken(); tok != "from-env" {
		t.Errorf("APIToken = %q, want from-env", tok)
	}
}
