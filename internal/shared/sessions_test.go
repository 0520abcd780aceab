package shared

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/favx/favx/internal/models"
)

func TestSessionsGetSet(t *testing.T) {
	sessions := &Sessions{}

	if _, err := sessions.Get("source"); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("empty source should report missing credentials, got %v", err)
	}

	account := &models.Account{Provider: models.Tidal, UserID: "42", Token: "tok"}
	if err := sessions.Set("source", account); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := sessions.Get("source")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.UserID != "42" {
		t.Errorf("unexpected account: %+v", got)
	}

	if err := sessions.Set("sideways", account); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown role should be rejected, got %v", err)
	}
	if _, err := sessions.Get("sideways"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("unknown role should be rejected, got %v", err)
	}
}

func TestLoadSessionsMissingFile(t *testing.T) {
	sessions, err := LoadSessions(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing file should yield empty sessions, got %v", err)
	}
	if sessions.Source != nil || sessions.Target != nil {
		t.Errorf("expected empty sessions, got %+v", sessions)
	}
}

func TestSaveAndLoadSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sessions.json")

	sessions := &Sessions{
		Source: &models.Account{Provider: models.Tidal, UserID: "1", Token: "a"},
		Target: &models.Account{Provider: models.Qobuz, UserID: "2", Token: "b"},
	}
	if err := SaveSessions(path, sessions); err != nil {
		t.Fatalf("SaveSessions failed: %v", err)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat failed: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("sessions file holds tokens and must be 0600, got %o", info.Mode().Perm())
		}
	}

	loaded, err := LoadSessions(path)
	if err != nil {
		t.Fatalf("LoadSessions failed: %v", err)
	}
	if loaded.Source.Provider != models.Tidal || loaded.Target.Token != "b" {
		t.Errorf("round trip lost data: %+v", loaded)
	}
}

func TestLoadSessionsRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := LoadSessions(path); err == nil {
		t.Error("garbage file should fail to parse")
	}
}
