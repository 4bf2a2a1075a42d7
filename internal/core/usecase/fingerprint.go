package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/core/textnorm"
)

const fingerprintPrefix = "rag:"

// Fingerprint identifies a query for the response cache. Queries that differ
// only in case, whitespace or Latin diacritics share a fingerprint. The
// corpus version is part of the key so answers never outlive the data they
// were computed from.
func Fingerprint(query, language string, filter domain.Filter, corpusVersion uint64) string {
	key := textnorm.Fold(query) + "|" + language + "|" + filter.Key() + "|v" + strconv.FormatUint(corpusVersion, 10)
	sum := sha256.Sum256([]byte(key))
	return fingerprintPrefix + hex.EncodeToString(sum[:])
}
