package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

func TestTranslateCallsExternalOnceForRepeatedText(t *testing.T) {
	external := &translatorFake{fn: func(text, from, to string) (string, error) {
		return "total funding in karnataka", nil
	}}
	svc := NewTranslationService(newTermCacheFake(), external, time.Second)

	for _, text := range []string{"कर्नाटक में कुल फंडिंग", "  कर्नाटक में कुल  फंडिंग "} {
		got, err := svc.Translate(context.Background(), text, "hi", "en")
		if err != nil {
			t.Fatalf("Translate() error = %v", err)
		}
		if got != "total funding in karnataka" {
			t.Fatalf("unexpected translation %q", got)
		}
	}
	if external.callCount() != 1 {
		t.Fatalf("expected one external call, got %d", external.callCount())
	}
}

// missSignal reports every cache miss so a test can tell when callers have
// moved past the cache lookup.
type missSignal struct {
	*termCacheFake
	misses chan struct{}
}

func (m missSignal) Get(sourceLang, targetLang, term string) (string, bool) {
	out, ok := m.termCacheFake.Get(sourceLang, targetLang, term)
	if !ok {
		m.misses <- struct{}{}
	}
	return out, ok
}

func TestTranslateCollapsesConcurrentMisses(t *testing.T) {
	const callers = 16
	release := make(chan struct{})
	external := &translatorFake{fn: func(string, string, string) (string, error) {
		<-release
		return "fintech startups in chennai", nil
	}}
	cache := missSignal{termCacheFake: newTermCacheFake(), misses: make(chan struct{}, callers)}
	svc := NewTranslationService(cache, external, 5*time.Second)

	results := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := svc.Translate(context.Background(), "சென்னையில் உள்ள ஃபின்டெக் ஸ்டார்ட்அப்கள்", "ta", "en")
			if err != nil {
				t.Errorf("Translate() error = %v", err)
			}
			results[i] = out
		}(i)
	}
	for i := 0; i < callers; i++ {
		<-cache.misses
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := external.callCount(); n != 1 {
		t.Fatalf("expected one external call for %d concurrent misses, got %d", callers, n)
	}
	for i, out := range results {
		if out != "fintech startups in chennai" {
			t.Fatalf("caller %d got %q", i, out)
		}
	}
}

func TestTranslateSkipsIdentityAndEmpty(t *testing.T) {
	external := &translatorFake{fn: func(string, string, string) (string, error) { return "x", nil }}
	svc := NewTranslationService(newTermCacheFake(), external, time.Second)

	if got, _ := svc.Translate(context.Background(), "hello", "en", "en"); got != "hello" {
		t.Fatalf("expected identity, got %q", got)
	}
	if got, _ := svc.Translate(context.Background(), "  ", "hi", "en"); got != "  " {
		t.Fatalf("expected empty text unchanged, got %q", got)
	}
	if external.callCount() != 0 {
		t.Fatalf("expected no external calls, got %d", external.callCount())
	}
}

func TestTranslateFailureReturnsOriginalText(t *testing.T) {
	external := &translatorFake{fn: func(string, string, string) (string, error) {
		return "", errors.New("translator offline")
	}}
	svc := NewTranslationService(newTermCacheFake(), external, time.Second)

	got, err := svc.Translate(context.Background(), "बेंगलुरु", "hi", "en")
	if !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	if got != "बेंगलुरु" {
		t.Fatalf("expected original text, got %q", got)
	}
}

func TestTranslateDoesNotCacheLongText(t *testing.T) {
	external := &translatorFake{fn: func(text, _, _ string) (string, error) { return "translated", nil }}
	cache := newTermCacheFake()
	svc := NewTranslationService(cache, external, time.Second)

	long := strings.Repeat("funding answer ", 40)
	for i := 0; i < 2; i++ {
		if _, err := svc.Translate(context.Background(), long, "en", "hi"); err != nil {
			t.Fatalf("Translate() error = %v", err)
		}
	}
	if external.callCount() != 2 {
		t.Fatalf("expected long text to bypass the term cache, got %d calls", external.callCount())
	}
	if len(cache.entries) != 0 {
		t.Fatalf("expected no cached entries, got %d", len(cache.entries))
	}
}

func TestTranslateWithoutExternalServesCacheOnly(t *testing.T) {
	cache := newTermCacheFake()
	cache.Put(domain.TranslationEntry{SourceTerm: "फिनटेक", SourceLang: "hi", TargetLang: "en", TranslatedTerm: "fintech"})
	svc := NewTranslationService(cache, nil, time.Second)

	if got, err := svc.Translate(context.Background(), "फिनटेक", "hi", "en"); err != nil || got != "fintech" {
		t.Fatalf("expected cached translation, got %q (%v)", got, err)
	}
	if _, err := svc.Translate(context.Background(), "कृषि", "hi", "en"); !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary on a miss, got %v", err)
	}
}
