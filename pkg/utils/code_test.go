package utils

import (
	"strings"
	"sync"
	"testing"
)

func TestGenerateCodeShape(t *testing.T) {
	code, err := GenerateCode()
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}
	if len(code) != CodeLength {
		t.Fatalf("expected %d characters, got %q", CodeLength, code)
	}
	for _, r := range code {
		if !strings.ContainsRune(CodeAlphabet, r) {
			t.Fatalf("character %q outside alphabet", r)
		}
	}
}

func TestGenerateCodeConcurrentUniqueness(t *testing.T) {
	const n = 1000

	var mu sync.Mutex
	seen := make(map[string]bool, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, err := GenerateCode()
			if err != nil {
				t.Errorf("GenerateCode: %v", err)
				return
			}
			mu.Lock()
			seen[code] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Fatalf("expected %d unique codes, got %d", n, len(seen))
	}
}
