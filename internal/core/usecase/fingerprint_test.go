package usecase

import (
	"strings"
	"testing"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

func TestFingerprintIsStableAcrossSurfaceVariants(t *testing.T) {
	filter := domain.Filter{City: "Bangalore", Sector: "fintech"}
	a := Fingerprint("Top 5 Fintech startups in Bangalore", "en", filter, 1)
	b := Fingerprint("  top 5 fintech   STARTUPS in bangalore ", "en", filter, 1)
	if a != b {
		t.Fatalf("expected equal fingerprints, got %s and %s", a, b)
	}
	if a != Fingerprint("Top 5 Fintech startups in Bangalore", "en", filter, 1) {
		t.Fatalf("expected fingerprint to be deterministic")
	}
	if !strings.HasPrefix(a, "rag:") {
		t.Fatalf("expected rag: prefix, got %s", a)
	}
}

func TestFingerprintSeparatesLanguageAndFilter(t *testing.T) {
	base := Fingerprint("funding in 2019", "en", domain.Filter{}, 1)
	if base == Fingerprint("funding in 2019", "hi", domain.Filter{}, 1) {
		t.Fatalf("expected language to change the fingerprint")
	}
	if base == Fingerprint("funding in 2019", "en", domain.Filter{Years: &domain.YearRange{From: 2019, To: 2019}}, 1) {
		t.Fatalf("expected filter to change the fingerprint")
	}
}

func TestFingerprintChangesWithCorpusVersion(t *testing.T) {
	filter := domain.Filter{State: "Karnataka"}
	if Fingerprint("total funding", "en", filter, 1) == Fingerprint("total funding", "en", filter, 2) {
		t.Fatalf("expected a corpus reload to change the fingerprint")
	}
}
