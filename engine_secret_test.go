package connector

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/wboard/connector/internal"
)

func TestEnsureSecretGeneratesOnce(t *testing.T) {
	h := newTestEngine(t)
	ctx := context.Background()

	first, err := h.engine.EnsureSecret(ctx)
	if err != nil {
		t.Fatalf("EnsureSecret failed: %v", err)
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 char secret, got %d", len(first))
	}
	for _, r := range first {
		if !strings.ContainsRune(internal.SecretAlphabet, r) {
			t.Fatalf("secret contains %q outside the alphabet", r)
		}
	}

	second, err := h.engine.EnsureSecret(ctx)
	if err != nil {
		t.Fatalf("EnsureSecret failed: %v", err)
	}
	if second != first {
		t.Fatal("EnsureSecret replaced an existing secret")
	}
}

func TestEnsureSecretConcurrentAgree(t *testing.T) {
	_, rdb := newTestRedis(t)
	h := newTestEngine(t, func(b *Builder) { b.WithRedis(rdb) })
	ctx := context.Background()

	const workers = 8
	results := make([]string, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			s, err := h.engine.EnsureSecret(ctx)
			if err != nil {
				t.Errorf("EnsureSecret failed: %v", err)
			}
			results[i] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatalf("workers disagree on the secret: %q vs %q", results[i], results[0])
		}
	}
}

func TestEnsureSecretUsesConfiguredInitial(t *testing.T) {
	initial := strings.Repeat("k", 64)
	h := newTestEngine(t, func(b *Builder) { b.config.Secret.Initial = initial })

	got, err := h.engine.EnsureSecret(context.Background())
	if err != nil {
		t.Fatalf("EnsureSecret failed: %v", err)
	}
	if got != initial {
		t.Fatalf("expected configured secret, got %q", got)
	}
}

func TestSecretKeyMissing(t *testing.T) {
	h := newTestEngine(t)

	if _, err := h.engine.SecretKey(context.Background()); !errors.Is(err, ErrNoSecretKey) {
		t.Fatalf("expected ErrNoSecretKey, got %v", err)
	}
}

func TestRotateSecretReplaces(t *testing.T) {
	h := newTestHarness(t)
	ctx := context.Background()

	rotated, err := h.engine.RotateSecret(ctx)
	if err != nil {
		t.Fatalf("RotateSecret failed: %v", err)
	}
	if rotated == h.secret || len(rotated) != 64 {
		t.Fatalf("unexpected rotated secret %q", rotated)
	}

	active, err := h.engine.SecretKey(ctx)
	if err != nil {
		t.Fatalf("SecretKey failed: %v", err)
	}
	if active != rotated {
		t.Fatal("SecretKey does not return the rotated value")
	}
}

func TestLastRequestTimeBeforeAnyRequest(t *testing.T) {
	h := newTestHarness(t)

	_, ok, err := h.engine.LastRequestTime(context.Background())
	if err != nil || ok {
		t.Fatalf("expected no marker, got ok=%v err=%v", ok, err)
	}
}
