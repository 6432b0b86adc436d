package config

import (
	"context"
	"os"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestHolderReload(t *testing.T) {
	path := writeConfig(t, "mode = \"order\"\n")
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	h := NewHolder(cfg, path)

	var notified []*Config
	h.OnReload(func(c *Config) { notified = append(notified, c) })

	changed, err := h.Reload()
	if err != nil || changed {
		t.Errorf("Reload() unchanged file = %v, %v; want false, nil", changed, err)
	}

	if err := os.WriteFile(path, []byte("mode = \"random\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	changed, err = h.Reload()
	if err != nil || !changed {
		t.Fatalf("Reload() = %v, %v; want true, nil", changed, err)
	}
	if h.Get().Mode != "random" {
		t.Errorf("Get().Mode = %q, want random", h.Get().Mode)
	}
	if len(notified) != 1 {
		t.Errorf("listeners called %d times, want 1", len(notified))
	}
}

func TestHolderKeepsConfigOnInvalidReload(t *testing.T) {
	path := writeConfig(t, "mode = \"order\"\n")
	cfg, _ := LoadFrom(path)
	h := NewHolder(cfg, path)

	if err := os.WriteFile(path, []byte("mode = \"loop\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Reload(); err == nil {
		t.Fatal("Reload() of invalid config = nil error")
	}
	if h.Get().Mode != "order" {
		t.Errorf("Get().Mode = %q, want order to be kept", h.Get().Mode)
	}
}

func TestHolderWatchPicksUpAtomicSave(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := writeConfig(t, "mode = \"order\"\n")
	cfg, _ := LoadFrom(path)
	h := NewHolder(cfg, path)

	reloaded := make(chan *Config, 4)
	h.OnReload(func(c *Config) { reloaded <- c })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Watch(ctx) }()

	next := Default()
	next.Mode = "random"
	deadline := time.After(10 * time.Second)

	// Saves made before the watcher registers go unnoticed, so save again
	// whenever a full debounce window passes without a reload.
	retry := time.NewTicker(4 * reloadDebounce)
	defer retry.Stop()
	if err := Save(path, next); err != nil {
		t.Fatal(err)
	}
	for {
		select {
		case c := <-reloaded:
			if c.Mode != "random" {
				t.Errorf("reloaded Mode = %q, want random", c.Mode)
			}
			cancel()
			if err := <-done; err != nil {
				t.Errorf("Watch() error = %v", err)
			}
			// let a pending debounce timer drain
			time.Sleep(2 * reloadDebounce)
			return
		case <-retry.C:
			if err := Save(path, next); err != nil {
				t.Fatal(err)
			}
		case <-deadline:
			cancel()
			<-done
			t.Fatal("timed out waiting for reload")
		}
	}
}
