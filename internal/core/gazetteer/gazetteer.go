// Package gazetteer holds the multilingual place, sector and funding-round
// vocabulary shared by the corpus loader and the query planner.
package gazetteer

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kirillkom/funding-rag-assistant/internal/core/textnorm"
)

type Kind string

const (
	KindCity     Kind = "city"
	KindState    Kind = "state"
	KindSector   Kind = "sector"
	KindRound    Kind = "round"
	KindInvestor Kind = "investor"
	KindCompany  Kind = "company"
)

// Term maps one folded alias to a canonical value.
type Term struct {
	Kind      Kind
	Canonical string
	Alias     string
}

type city struct {
	name    string
	state   string
	aliases []string
}

var cities = []city{
	{"Bangalore", "Karnataka", []string{"bangalore", "bengaluru", "bangaluru", "बेंगलुरु", "बेंगलूर", "बैंगलोर", "बंगलौर", "బెంగళూరు", "பெங்களூரு", "ಬೆಂಗಳೂರು", "বেঙ্গালুরু", "બેંગલુરુ", "ബെംഗളൂരു"}},
	{"Mumbai", "Maharashtra", []string{"mumbai", "bombay", "मुंबई", "मुम्बई", "ముంబై", "மும்பை", "ಮುಂಬೈ", "মুম্বাই", "મુંબઈ"}},
	{"Pune", "Maharashtra", []string{"pune", "पुणे", "పూణే", "புனே", "ಪುಣೆ"}},
	{"New Delhi", "Delhi", []string{"new delhi", "delhi", "नई दिल्ली", "दिल्ली", "ఢిల్లీ", "டெல்லி", "ದೆಹಲಿ", "দিল্লি", "દિલ્હી"}},
	{"Gurgaon", "Haryana", []string{"gurgaon", "gurugram", "गुड़गांव", "गुरुग्राम"}},
	{"Noida", "Uttar Pradesh", []string{"noida", "नोएडा"}},
	{"Chennai", "Tamil Nadu", []string{"chennai", "madras", "चेन्नई", "चेन्नै", "చెన్నై", "சென்னை"}},
	{"Hyderabad", "Telangana", []string{"hyderabad", "हैदराबाद", "హైదరాబాద్", "ஹைதராபாத்"}},
	{"Kolkata", "West Bengal", []string{"kolkata", "calcutta", "कोलकाता", "কলকাতা"}},
	{"Ahmedabad", "Gujarat", []string{"ahmedabad", "अहमदाबाद", "અમદાવાદ"}},
	{"Jaipur", "Rajasthan", []string{"jaipur", "जयपुर"}},
	{"Kochi", "Kerala", []string{"kochi", "cochin", "കൊച്ചി"}},
	{"Chandigarh", "Chandigarh", []string{"chandigarh", "चंडीगढ़"}},
}

var states = map[string][]string{
	"Karnataka":     {"karnataka", "कर्नाटक", "करनाटक", "ಕರ್ನಾಟಕ"},
	"Maharashtra":   {"maharashtra", "महाराष्ट्र"},
	"Delhi":         {"delhi ncr", "ncr", "दिल्ली एनसीआर"},
	"Tamil Nadu":    {"tamil nadu", "tamilnadu", "तमिलनाडु", "तमिल नाडु", "தமிழ்நாடு"},
	"Telangana":     {"telangana", "तेलंगाना", "తెలంగాణ"},
	"West Bengal":   {"west bengal", "पश्चिम बंगाल", "পশ্চিমবঙ্গ"},
	"Gujarat":       {"gujarat", "गुजरात", "ગુજરાત"},
	"Haryana":       {"haryana", "हरियाणा"},
	"Uttar Pradesh": {"uttar pradesh", "उत्तर प्रदेश"},
	"Rajasthan":     {"rajasthan", "राजस्थान"},
	"Kerala":        {"kerala", "केरल", "കേരളം"},
}

var sectors = map[string][]string{
	"fintech":    {"fintech", "fin-tech", "financial technology", "payments", "फिनटेक", "फिनटैक", "फाइनटेक", "वित्तीय प्रौद्योगिकी", "ఫిన్‌టెక్", "ஃபின்டெக்"},
	"healthtech": {"healthtech", "health tech", "healthcare", "health", "हेल्थटेक", "हेल्थकेयर", "स्वास्थ्य"},
	"edtech":     {"edtech", "ed-tech", "education", "एडटेक", "एजुकेशन", "शिक्षा"},
	"e-commerce": {"e-commerce", "ecommerce", "online shopping", "online retail", "ई-कॉमर्स", "ईकॉमर्स"},
	"logistics":  {"logistics", "delivery", "supply chain", "लॉजिस्टिक्स", "डिलीवरी"},
	"saas":       {"saas", "software", "सॉफ्टवेयर"},
	"foodtech":   {"foodtech", "food", "restaurant", "फूडटेक", "फूड", "रेस्टोरेंट"},
	"travel":     {"travel", "tourism", "hospitality", "ट्रैवल", "यात्रा", "पर्यटन"},
	"agritech":   {"agritech", "agriculture", "farming", "एग्रीटेक", "कृषि", "खेती"},
	"mobility":   {"mobility", "transportation", "ride hailing", "मोबिलिटी"},
}

// Rounds are checked in order so "pre-seed" wins over "seed".
var rounds = []struct {
	name    string
	aliases []string
}{
	{"Pre-Seed", []string{"pre-seed", "pre seed", "preseed", "प्री-सीड"}},
	{"Seed", []string{"seed", "seed funding", "सीड"}},
	{"Angel", []string{"angel", "angel funding", "एंजेल"}},
	{"Series A", []string{"series a", "सीरीज़ ए", "सीरीज ए"}},
	{"Series B", []string{"series b", "सीरीज़ बी", "सीरीज बी"}},
	{"Series C", []string{"series c", "सीरीज़ सी", "सीरीज सी"}},
	{"Series D", []string{"series d"}},
	{"Series E", []string{"series e"}},
	{"Private Equity", []string{"private equity", "privateequity", "pe round"}},
	{"Debt", []string{"debt funding", "debt financing", "debt"}},
}

var (
	staticTerms  []Term
	cityIndex    map[string]city
	stateIndex   map[string]string
	sectorIndex  map[string]string
	roundAliases []Term
)

func init() {
	cityIndex = make(map[string]city)
	stateIndex = make(map[string]string)
	sectorIndex = make(map[string]string)

	for _, c := range cities {
		for _, alias := range c.aliases {
			folded := textnorm.Fold(alias)
			cityIndex[folded] = c
			staticTerms = append(staticTerms, Term{Kind: KindCity, Canonical: c.name, Alias: folded})
		}
	}
	for name, aliases := range states {
		stateIndex[textnorm.Fold(name)] = name
		for _, alias := range aliases {
			folded := textnorm.Fold(alias)
			stateIndex[folded] = name
			staticTerms = append(staticTerms, Term{Kind: KindState, Canonical: name, Alias: folded})
		}
	}
	for slug, aliases := range sectors {
		sectorIndex[slug] = slug
		for _, alias := range aliases {
			folded := textnorm.Fold(alias)
			sectorIndex[folded] = slug
			staticTerms = append(staticTerms, Term{Kind: KindSector, Canonical: slug, Alias: folded})
		}
	}
	for _, r := range rounds {
		for _, alias := range r.aliases {
			term := Term{Kind: KindRound, Canonical: r.name, Alias: textnorm.Fold(alias)}
			roundAliases = append(roundAliases, term)
			staticTerms = append(staticTerms, term)
		}
	}
	SortTerms(staticTerms)
}

// StaticTerms returns a copy of the built-in vocabulary, longest alias first.
func StaticTerms() []Term {
	out := make([]Term, len(staticTerms))
	copy(out, staticTerms)
	return out
}

// SortTerms orders terms longest alias first so longer phrases win overlaps.
func SortTerms(terms []Term) {
	sort.SliceStable(terms, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(terms[i].Alias), utf8.RuneCountInString(terms[j].Alias)
		if li != lj {
			return li > lj
		}
		return terms[i].Alias < terms[j].Alias
	})
}

// CanonicalCity resolves a raw city value, returning ok=false for unknown cities.
// Values such as "Bangalore / Mumbai" resolve to their first known city.
func CanonicalCity(raw string) (string, bool) {
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == '/' || r == ',' || r == '&' }) {
		if c, ok := cityIndex[textnorm.Fold(part)]; ok {
			return c.name, true
		}
	}
	return "", false
}

// StateOf returns the state of a canonical city, or "".
func StateOf(cityName string) string {
	if c, ok := cityIndex[textnorm.Fold(cityName)]; ok {
		return c.state
	}
	return ""
}

func CanonicalState(raw string) (string, bool) {
	name, ok := stateIndex[textnorm.Fold(raw)]
	return name, ok
}

// CanonicalSector maps a free-form sector to its slug. Unknown sectors are
// returned folded.
func CanonicalSector(raw string) string {
	folded := textnorm.Fold(raw)
	if folded == "" {
		return ""
	}
	if slug, ok := sectorIndex[folded]; ok {
		return slug
	}
	best, bestLen := "", 0
	for alias, slug := range sectorIndex {
		n := utf8.RuneCountInString(alias)
		if n <= 3 || !strings.Contains(folded, alias) {
			continue
		}
		if n > bestLen || (n == bestLen && slug < best) {
			best, bestLen = slug, n
		}
	}
	if best != "" {
		return best
	}
	return folded
}

// CanonicalRound maps a free-form round type to its display name.
func CanonicalRound(raw string) string {
	folded := textnorm.Fold(raw)
	if folded == "" {
		return ""
	}
	for _, term := range roundAliases {
		if Contains(folded, term.Alias) {
			return term.Canonical
		}
	}
	return strings.TrimSpace(raw)
}

// Match is one vocabulary hit inside a folded text, as byte offsets.
type Match struct {
	Term  Term
	Start int
	End   int
}

// Scan finds non-overlapping vocabulary hits in folded text. Terms must be
// sorted with SortTerms. Aliases of three runes or fewer must be whole words;
// longer aliases must start on a word boundary.
func Scan(folded string, terms []Term) []Match {
	taken := make([]bool, len(folded))
	var out []Match
	for _, term := range terms {
		if term.Alias == "" {
			continue
		}
		strict := utf8.RuneCountInString(term.Alias) <= 3
		offset := 0
		for {
			idx := strings.Index(folded[offset:], term.Alias)
			if idx < 0 {
				break
			}
			start := offset + idx
			end := start + len(term.Alias)
			offset = start + 1
			if !boundaryBefore(folded, start) || (strict && !boundaryAfter(folded, end)) {
				continue
			}
			if overlaps(taken, start, end) {
				continue
			}
			for i := start; i < end; i++ {
				taken[i] = true
			}
			out = append(out, Match{Term: term, Start: start, End: end})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Contains reports whether alias occurs in folded text as a whole word.
func Contains(folded, alias string) bool {
	offset := 0
	for {
		idx := strings.Index(folded[offset:], alias)
		if idx < 0 {
			return false
		}
		start := offset + idx
		if boundaryBefore(folded, start) && boundaryAfter(folded, start+len(alias)) {
			return true
		}
		offset = start + 1
	}
}

func overlaps(taken []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if taken[i] {
			return true
		}
	}
	return false
}

func boundaryBefore(s string, idx int) bool {
	if idx == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:idx])
	return !isWordRune(r)
}

func boundaryAfter(s string, idx int) bool {
	if idx >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[idx:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
