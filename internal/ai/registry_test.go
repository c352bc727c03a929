// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"
)

// mockProvider is a test double implementing the Provider interface.
// It records calls and returns configurable responses.
type mockProvider struct {
	name      string
	response  string
	err       error
	callCount int
	lastReq   Request
	mu        sync.Mutex
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &Response{Text: m.response, Model: m.name}, nil
}

// ---------- Registry.Complete ----------

func TestRegistryComplete(t *testing.T) {
	t.Run("delegates to active provider", func(t *testing.T) {
		mock := &mockProvider{name: "test", response: "Hello from mock"}
		reg := &Registry{
			providers: map[string]Provider{"test": mock},
			active:    "test",
		}

		req := Request{SystemPrompt: "system", UserPrompt: "user", Temperature: Float(0.3)}
		result, err := reg.Complete(context.Background(), req)
		if err != nil {
			t.Fatalf("Complete: unexpected error: %v", err)
		}
		if result.Text != "Hello from mock" {
			t.Errorf("Text: got %q, want %q", result.Text, "Hello from mock")
		}

		mock.mu.Lock()
		defer mock.mu.Unlock()
		if mock.callCount != 1 {
			t.Errorf("callCount: got %d, want 1", mock.callCount)
		}
		if mock.lastReq.SystemPrompt != "system" || mock.lastReq.UserPrompt != "user" {
			t.Errorf("request: got %+v", mock.lastReq)
		}
		if mock.lastReq.Temperature == nil || *mock.lastReq.Temperature != 0.3 {
			t.Errorf("temperature not forwarded: %v", mock.lastReq.Temperature)
		}
	})

	t.Run("propagates provider error", func(t *testing.T) {
		mock := &mockProvider{name: "test", err: fmt.Errorf("api failure")}
		reg := &Registry{
			providers: map[string]Provider{"test": mock},
			active:    "test",
		}

		_, err := reg.Complete(context.Background(), Request{})
		if err == nil || err.Error() != "api failure" {
			t.Errorf("error: got %v, want api failure", err)
		}
	})

	t.Run("error when active name does not match any registered provider", func(t *testing.T) {
		reg := &Registry{
			providers: map[string]Provider{"openai": &mockProvider{name: "openai"}},
			active:    "gemini",
		}
		if _, err := reg.Complete(context.Background(), Request{}); err == nil {
			t.Fatal("expected error for mismatched active provider, got nil")
		}
	})
}

// ---------- Registry.SetActive ----------

func TestRegistrySetActive(t *testing.T) {
	t.Run("switches to valid provider", func(t *testing.T) {
		reg := &Registry{
			providers: map[string]Provider{
				"a": &mockProvider{name: "a", response: "from a"},
				"b": &mockProvider{name: "b", response: "from b"},
			},
			active: "a",
		}

		if err := reg.SetActive("b"); err != nil {
			t.Fatalf("SetActive(b): unexpected error: %v", err)
		}
		if reg.ActiveName() != "b" {
			t.Errorf("ActiveName: got %q, want %q", reg.ActiveName(), "b")
		}

		result, err := reg.Complete(context.Background(), Request{})
		if err != nil {
			t.Fatalf("Complete: unexpected error: %v", err)
		}
		if result.Text != "from b" {
			t.Errorf("Text: got %q, want %q", result.Text, "from b")
		}
	})

	t.Run("invalid names leave the active provider unchanged", func(t *testing.T) {
		reg := &Registry{
			providers: map[string]Provider{"openai": &mockProvider{name: "openai"}},
			active:    "openai",
		}

		for _, name := range []string{"nonexistent", ""} {
			if err := reg.SetActive(name); err == nil {
				t.Errorf("SetActive(%q): expected error", name)
			}
		}
		if reg.ActiveName() != "openai" {
			t.Errorf("ActiveName should remain openai, got %q", reg.ActiveName())
		}
	})
}

// ---------- Registry.Available / HasProvider ----------

func TestRegistryAvailable(t *testing.T) {
	reg := &Registry{
		providers: map[string]Provider{
			"openai":  &mockProvider{name: "openai"},
			"gemini":  &mockProvider{name: "gemini"},
			"mistral": &mockProvider{name: "mistral"},
		},
		active: "openai",
	}

	want := []string{"gemini", "mistral", "openai"}
	if got := reg.Available(); !reflect.DeepEqual(got, want) {
		t.Errorf("Available: got %v, want %v", got, want)
	}

	empty := &Registry{providers: map[string]Provider{}, active: "none"}
	if got := empty.Available(); len(got) != 0 {
		t.Errorf("Available on empty registry: got %v", got)
	}
}

func TestRegistryHasProvider(t *testing.T) {
	reg := &Registry{
		providers: map[string]Provider{
			"openai": &mockProvider{name: "openai"},
			"gemini": &mockProvider{name: "gemini"},
		},
		active: "openai",
	}

	tests := []struct {
		name string
		want bool
	}{
		{"openai", true},
		{"gemini", true},
		{"claude", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reg.HasProvider(tt.name); got != tt.want {
				t.Errorf("HasProvider(%q): got %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestRegistryRegister(t *testing.T) {
	reg := NewRegistry("custom", nil)
	if _, err := reg.Active(); err == nil {
		t.Fatal("expected error before registering")
	}

	reg.Register("custom", &mockProvider{name: "custom", response: "ok"})
	p, err := reg.Active()
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if p.Name() != "custom" {
		t.Errorf("Name: got %q", p.Name())
	}
}

// ---------- Concurrency ----------

func TestRegistryConcurrency(t *testing.T) {
	reg := &Registry{
		providers: map[string]Provider{
			"a": &mockProvider{name: "a", response: "from a"},
			"b": &mockProvider{name: "b", response: "from b"},
		},
		active: "a",
	}

	const goroutines = 100
	var wg sync.WaitGroup
	wg.Add(goroutines * 3)

	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			name := "a"
			if i%2 == 0 {
				name = "b"
			}
			reg.SetActive(name)
		}(i)
	}

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			if name := reg.ActiveName(); name != "a" && name != "b" {
				t.Errorf("unexpected active name: %q", name)
			}
		}()
	}

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			result, err := reg.Complete(context.Background(), Request{})
			if err != nil {
				t.Errorf("Complete error during concurrency: %v", err)
				return
			}
			if result.Text != "from a" && result.Text != "from b" {
				t.Errorf("unexpected result: %q", result.Text)
			}
		}()
	}

	wg.Wait()
}

// ---------- NewRegistry ----------

func TestNewRegistryProviderNames(t *testing.T) {
	for _, name := range []string{"openai", "gemini", "claude", "mistral"} {
		t.Run(name, func(t *testing.T) {
			reg := NewRegistry(name, map[string]ProviderConfig{
				name: {APIKey: "test-key", Model: "test-model"},
			})

			p, err := reg.Active()
			if err != nil {
				t.Fatalf("Active: unexpected error: %v", err)
			}
			if p.Name() != name {
				t.Errorf("Name: got %q, want %q", p.Name(), name)
			}
		})
	}
}

func TestNewRegistrySkipsEmptyAPIKeyAndUnknownNames(t *testing.T) {
	reg := NewRegistry("openai", map[string]ProviderConfig{
		"openai":  {APIKey: "", Model: "gpt-4o"},
		"gemini":  {APIKey: "valid-key", Model: "gemini-pro"},
		"claude":  {APIKey: "", Model: "claude-sonnet"},
		"unknown": {APIKey: "key", Model: "model"},
	})

	if got := reg.Available(); !reflect.DeepEqual(got, []string{"gemini"}) {
		t.Errorf("Available: got %v, want [gemini]", got)
	}
}
