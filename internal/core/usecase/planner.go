package usecase

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/core/gazetteer"
	"github.com/kirillkom/funding-rag-assistant/internal/core/money"
	"github.com/kirillkom/funding-rag-assistant/internal/core/ports"
	"github.com/kirillkom/funding-rag-assistant/internal/core/textnorm"
)

const (
	defaultPlannerMaxLimit = 50
	maxCompareValues       = 5
	minVocabularyRunes     = 4
)

var (
	aggregateKeywords = []string{
		"total", "how many", "average", "avg", "sum of", "count",
		"कुल", "कितने", "कितना", "कितनी", "औसत",
		"एकूण", "किती", "सरासरी",
	}
	compareKeywords = []string{
		"compare", "comparison", "versus", "vs", "difference between",
		"तुलना", "बनाम",
	}
	rankKeywords = []string{
		"largest", "biggest", "highest funded", "most funded", "highest", "top",
		"सबसे बड़े", "सबसे बड़ी", "सबसे ज्यादा", "शीर्ष", "टॉप",
	}
	genericInvestorWords = map[string]struct{}{
		"india": {}, "indian": {}, "the": {}, "angel": {}, "angels": {}, "venture": {},
		"ventures": {}, "global": {}, "private": {}, "capital": {}, "group": {},
		"fund": {}, "partners": {}, "investors": {}, "others": {}, "various": {},
	}
	numberWords = map[string]int{
		"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
		"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	}
	stopWords = toSet(
		"a", "an", "the", "in", "of", "for", "to", "and", "or", "with", "by", "from", "on", "at",
		"is", "are", "was", "were", "be", "been", "what", "which", "who", "whom", "how", "many",
		"much", "show", "list", "me", "give", "tell", "about", "startup", "startups", "company",
		"companies", "funding", "funds", "funded", "fund", "raised", "raise", "raising", "total",
		"average", "avg", "sum", "count", "top", "largest", "biggest", "highest", "most", "between",
		"since", "last", "past", "this", "year", "years", "did", "do", "does", "get", "got", "all",
		"any", "some", "there", "their", "that", "those", "these", "than", "more", "less", "over",
		"under", "above", "below", "least", "up", "can", "you", "please", "i", "want", "know",
		"find", "invested", "investment", "investments", "received", "deal", "deals", "compare",
		"comparison", "versus", "vs", "difference", "number", "it", "its", "my", "our", "them",
		"में", "की", "का", "के", "है", "हैं", "को", "से", "और", "क्या", "कौन", "कौनसे",
		"स्टार्टअप", "स्टार्टअप्स", "फंडिंग", "निवेश", "साल", "वर्ष", "तक", "बताओ", "बताइए", "दिखाओ",
	)
)

var (
	amountRe = regexp.MustCompile(`\b(more than|greater than|over|above|exceeding|at least|minimum of|less than|under|below|at most|up to|upto|maximum of)\s+(₹|rs\.?|inr|\$|usd)?\s*(\d[\d,]*(?:\.\d+)?)\s*(crores?|cr|lakhs?|lacs?|million|mn|billion|bn|thousand|k|m|b|l)?\b`)

	// Hindi: "100 करोड़ से ज़्यादा", "50 लाख से कम".
	amountHiRe    = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*(करोड\x{093C}?|लाख|मिलियन)?\s*(?:रुपये\s*)?से\s+(ज\x{093C}?्यादा|अधिक|ऊपर|कम)`)
	betweenRe     = regexp.MustCompile(`\bbetween\s+((?:19|20)\d{2})\s+and\s+((?:19|20)\d{2})\b`)
	fromToRe      = regexp.MustCompile(`\bfrom\s+((?:19|20)\d{2})\s+(?:to|till|until|through)\s+((?:19|20)\d{2})\b`)
	dashRangeRe   = regexp.MustCompile(`\b((?:19|20)\d{2})\s*(?:-|–|to)\s*((?:19|20)\d{2})\b`)
	hiRangeRe     = regexp.MustCompile(`((?:19|20)\d{2})\s*से\s*((?:19|20)\d{2})(?:\s*तक)?`)
	lastNYearsRe  = regexp.MustCompile(`\b(?:last|past|previous)\s+(\d{1,2}|one|two|three|four|five|six|seven|eight|nine|ten)\s+years?\b`)
	hiLastNRe     = regexp.MustCompile(`(?:पिछले|पिछली)\s*(\d{1,2})\s*(?:सालों|साल|वर्षों|वर्ष)`)
	sinceRe       = regexp.MustCompile(`\bsince\s+((?:19|20)\d{2})\b`)
	thisYearRe    = regexp.MustCompile(`\bthis\s+year\b|इस\s+साल|इस\s+वर्ष`)
	lastYearRe    = regexp.MustCompile(`\b(?:last|previous)\s+year\b|पिछले\s+साल|पिछले\s+वर्ष`)
	topNRe        = regexp.MustCompile(`\btop\s+(\d{1,3}|one|two|three|four|five|six|seven|eight|nine|ten)\b`)
	hiTopNRe      = regexp.MustCompile(`(?:शीर्ष|टॉप)\s*(\d{1,3})`)
	yearRe        = regexp.MustCompile(`\b((?:19|20)\d{2})\b`)
	yearLikeRange = [2]int{1990, 2099}
)

// Indic decimal digit blocks all start at a code point ending in 6.
var digitZeros = []rune{0x0966, 0x09E6, 0x0A66, 0x0AE6, 0x0B66, 0x0BE6, 0x0C66, 0x0CE6, 0x0D66}

type PlannerConfig struct {
	CurrentYear int
	MaxLimit    int
}

// Planner turns a question into a QueryPlan using vocabulary lookups and
// pattern rules. It never fails: input it cannot read becomes UNKNOWN.
type Planner struct {
	corpus ports.CorpusStore
	terms  ports.TermCache
	cfg    PlannerConfig

	mu           sync.Mutex
	vocabVersion uint64
	vocabTerms   []gazetteer.Term
}

func NewPlanner(corpus ports.CorpusStore, terms ports.TermCache, cfg PlannerConfig) *Planner {
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = defaultPlannerMaxLimit
	}
	return &Planner{corpus: corpus, terms: terms, cfg: cfg}
}

func (p *Planner) Parse(query, language string) domain.QueryPlan {
	return p.ParseTranslated(query, query, language)
}

// ParseTranslated plans using the original question and its pivot-language
// translation together. Residual text comes from the pivot form.
func (p *Planner) ParseTranslated(original, pivot, language string) domain.QueryPlan {
	origFolded := normalizeDigits(textnorm.Fold(original))
	if !textnorm.HasLetters(origFolded) {
		return domain.QueryPlan{Intent: domain.IntentUnknown}
	}
	pivotFolded := normalizeDigits(textnorm.Fold(pivot))
	if pivotFolded == "" {
		pivotFolded = origFolded
	}

	ex := newExtraction()
	vocab := p.vocabulary()

	// The pivot text goes first so the residual is computed from it.
	residualSource := ex.scan(pivotFolded, vocab, p.cfg)
	if origFolded != pivotFolded {
		ex.scan(origFolded, vocab, p.cfg)
	}
	if extra := p.reverseTerms(origFolded, language); extra != "" {
		ex.scan(extra, vocab, p.cfg)
	}

	return ex.plan(residualTokens(residualSource))
}

// reverseTerms renders the pivot forms of known native terms found in text,
// so words the static vocabulary lacks still reach the matchers.
func (p *Planner) reverseTerms(folded, language string) string {
	if p.terms == nil || language == domain.PivotLanguage || language == "" {
		return ""
	}
	pairs := p.terms.Reverse(language)
	natives := make([]string, 0, len(pairs))
	for native := range pairs {
		natives = append(natives, native)
	}
	sort.Strings(natives)

	var parts []string
	for _, native := range natives {
		if native != "" && gazetteer.Contains(folded, native) {
			parts = append(parts, textnorm.Fold(pairs[native]))
		}
	}
	return strings.Join(parts, " , ")
}

// vocabulary merges the static gazetteer with values found in the corpus.
// The merged list is rebuilt only when the corpus version changes.
func (p *Planner) vocabulary() []gazetteer.Term {
	if p.corpus == nil {
		return gazetteer.StaticTerms()
	}
	vocab := p.corpus.Vocabulary()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.vocabTerms != nil && p.vocabVersion == vocab.Version {
		return p.vocabTerms
	}

	terms := gazetteer.StaticTerms()
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		seen[term.Alias] = struct{}{}
	}
	add := func(kind gazetteer.Kind, canonical, alias string) {
		alias = textnorm.Fold(alias)
		if utf8.RuneCountInString(alias) < minVocabularyRunes {
			return
		}
		if _, ok := seen[alias]; ok {
			return
		}
		seen[alias] = struct{}{}
		terms = append(terms, gazetteer.Term{Kind: kind, Canonical: canonical, Alias: alias})
	}

	for _, city := range vocab.Cities {
		add(gazetteer.KindCity, city, city)
	}
	for _, state := range vocab.States {
		add(gazetteer.KindState, state, state)
	}
	for _, sector := range vocab.Sectors {
		add(gazetteer.KindSector, sector, sector)
	}
	for _, round := range vocab.Rounds {
		add(gazetteer.KindRound, round, round)
	}

	investors := append([]string(nil), vocab.Investors...)
	sort.SliceStable(investors, func(i, j int) bool {
		return utf8.RuneCountInString(investors[i]) < utf8.RuneCountInString(investors[j])
	})
	for _, investor := range investors {
		add(gazetteer.KindInvestor, investor, investor)
	}
	for _, investor := range investors {
		fields := strings.Fields(textnorm.Fold(investor))
		if len(fields) < 2 || utf8.RuneCountInString(fields[0]) < 5 {
			continue
		}
		if _, generic := genericInvestorWords[fields[0]]; generic {
			continue
		}
		add(gazetteer.KindInvestor, investor, fields[0])
	}

	// Companies come last so a name that doubles as a city or sector keeps
	// its earlier meaning.
	for _, company := range vocab.Companies {
		if _, common := stopWords[textnorm.Fold(company)]; common {
			continue
		}
		add(gazetteer.KindCompany, company, company)
	}

	gazetteer.SortTerms(terms)
	p.vocabVersion = vocab.Version
	p.vocabTerms = terms
	return terms
}

type extraction struct {
	values    map[gazetteer.Kind][]string
	years     []int
	endpoints []int
	yearRange *domain.YearRange
	amount    *domain.AmountFilter

	limit        int
	sortByAmount bool
	aggregate    bool
	compare      bool
}

func newExtraction() *extraction {
	return &extraction{values: make(map[gazetteer.Kind][]string)}
}

// scan extracts everything it recognizes from folded text and returns the
// text with the recognized spans blanked out.
func (ex *extraction) scan(folded string, vocab []gazetteer.Term, cfg PlannerConfig) string {
	for _, kw := range aggregateKeywords {
		if gazetteer.Contains(folded, kw) {
			ex.aggregate = true
			break
		}
	}
	for _, kw := range compareKeywords {
		if gazetteer.Contains(folded, kw) {
			ex.compare = true
			break
		}
	}
	for _, kw := range rankKeywords {
		if gazetteer.Contains(folded, kw) {
			ex.sortByAmount = true
			break
		}
	}

	work := []byte(folded)
	ex.scanAmounts(work)
	ex.scanYearRanges(work, cfg.CurrentYear)
	ex.scanTopN(work, cfg.MaxLimit)

	for _, loc := range yearRe.FindAllSubmatchIndex(work, -1) {
		year, _ := strconv.Atoi(string(work[loc[2]:loc[3]]))
		ex.years = appendInt(ex.years, year)
		blank(work, loc[0], loc[1])
	}

	for _, match := range gazetteer.Scan(string(work), vocab) {
		ex.addValue(match.Term.Kind, match.Term.Canonical)
		blank(work, match.Start, match.End)
	}
	return string(work)
}

func (ex *extraction) scanAmounts(work []byte) {
	for _, loc := range amountRe.FindAllSubmatchIndex(work, -1) {
		op := amountOp(string(work[loc[2]:loc[3]]))
		number := strings.ReplaceAll(string(work[loc[6]:loc[7]]), ",", "")
		unit := ""
		if loc[8] >= 0 {
			unit = string(work[loc[8]:loc[9]])
		}
		hasCurrency := loc[4] >= 0
		if unit == "" && !hasCurrency && looksLikeYear(number) {
			continue
		}
		value, ok := money.Parse(number + " " + unit)
		if !ok || value <= 0 {
			continue
		}
		if ex.amount == nil {
			ex.amount = &domain.AmountFilter{Op: op, Value: value}
		}
		blank(work, loc[0], loc[1])
	}

	for _, loc := range amountHiRe.FindAllSubmatchIndex(work, -1) {
		number := strings.ReplaceAll(string(work[loc[2]:loc[3]]), ",", "")
		unit := ""
		if loc[4] >= 0 {
			unit = hindiUnit(string(work[loc[4]:loc[5]]))
		}
		if unit == "" && looksLikeYear(number) {
			continue
		}
		value, ok := money.Parse(number + " " + unit)
		if !ok || value <= 0 {
			continue
		}
		op := domain.AmountGT
		if strings.HasPrefix(string(work[loc[6]:loc[7]]), "कम") {
			op = domain.AmountLT
		}
		if ex.amount == nil {
			ex.amount = &domain.AmountFilter{Op: op, Value: value}
		}
		blank(work, loc[0], loc[1])
	}
}

func (ex *extraction) scanYearRanges(work []byte, currentYear int) {
	for _, re := range []*regexp.Regexp{betweenRe, fromToRe, dashRangeRe, hiRangeRe} {
		for _, loc := range re.FindAllSubmatchIndex(work, -1) {
			from, _ := strconv.Atoi(string(work[loc[2]:loc[3]]))
			to, _ := strconv.Atoi(string(work[loc[4]:loc[5]]))
			if from > to {
				from, to = to, from
			}
			ex.setRange(from, to)
			ex.endpoints = appendInt(ex.endpoints, from)
			ex.endpoints = appendInt(ex.endpoints, to)
			blank(work, loc[0], loc[1])
		}
	}

	if currentYear <= 0 {
		return
	}
	for _, re := range []*regexp.Regexp{lastNYearsRe, hiLastNRe} {
		for _, loc := range re.FindAllSubmatchIndex(work, -1) {
			n := parseCount(string(work[loc[2]:loc[3]]))
			if n > 0 {
				ex.setRange(currentYear-n+1, currentYear)
			}
			blank(work, loc[0], loc[1])
		}
	}
	for _, loc := range sinceRe.FindAllSubmatchIndex(work, -1) {
		from, _ := strconv.Atoi(string(work[loc[2]:loc[3]]))
		ex.setRange(min(from, currentYear), currentYear)
		blank(work, loc[0], loc[1])
	}
	for _, loc := range lastYearRe.FindAllIndex(work, -1) {
		ex.setRange(currentYear-1, currentYear-1)
		blank(work, loc[0], loc[1])
	}
	for _, loc := range thisYearRe.FindAllIndex(work, -1) {
		ex.setRange(currentYear, currentYear)
		blank(work, loc[0], loc[1])
	}
}

func (ex *extraction) scanTopN(work []byte, maxLimit int) {
	for _, re := range []*regexp.Regexp{topNRe, hiTopNRe} {
		for _, loc := range re.FindAllSubmatchIndex(work, -1) {
			n := parseCount(string(work[loc[2]:loc[3]]))
			if n > 0 && ex.limit == 0 {
				ex.limit = min(n, maxLimit)
			}
			ex.sortByAmount = true
			blank(work, loc[0], loc[1])
		}
	}
}

func (ex *extraction) setRange(from, to int) {
	if ex.yearRange == nil {
		ex.yearRange = &domain.YearRange{From: from, To: to}
	}
}

func (ex *extraction) addValue(kind gazetteer.Kind, value string) {
	for _, existing := range ex.values[kind] {
		if strings.EqualFold(existing, value) {
			return
		}
	}
	ex.values[kind] = append(ex.values[kind], value)
}

func (ex *extraction) first(kind gazetteer.Kind) string {
	if values := ex.values[kind]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func (ex *extraction) plan(residual string) domain.QueryPlan {
	filter := domain.Filter{
		Company:  ex.first(gazetteer.KindCompany),
		City:     ex.first(gazetteer.KindCity),
		State:    ex.first(gazetteer.KindState),
		Sector:   ex.first(gazetteer.KindSector),
		Investor: ex.first(gazetteer.KindInvestor),
		Round:    ex.first(gazetteer.KindRound),
		Amount:   ex.amount,
	}
	if filter.City != "" && strings.EqualFold(gazetteer.StateOf(filter.City), filter.State) {
		filter.State = ""
	}

	years := ex.years
	switch {
	case ex.yearRange != nil:
		filter.Years = ex.yearRange
	case len(years) == 1:
		filter.Years = &domain.YearRange{From: years[0], To: years[0]}
	case len(years) > 1:
		sorted := append([]int(nil), years...)
		sort.Ints(sorted)
		filter.Years = &domain.YearRange{From: sorted[0], To: sorted[len(sorted)-1]}
	}

	plan := domain.QueryPlan{
		Intent:   domain.IntentLookup,
		Filter:   filter,
		Residual: residual,
	}
	if ex.sortByAmount {
		plan.SortByAmount = true
		plan.Limit = ex.limit
	}

	if ex.compare {
		if cmp := ex.comparison(&plan.Filter); cmp != nil {
			plan.Intent = domain.IntentCompare
			plan.Compare = cmp
			plan.Limit = 0
			plan.SortByAmount = false
			return plan
		}
	}
	if ex.aggregate {
		plan.Intent = domain.IntentAggregate
	}
	return plan
}

// comparison picks the dimension with at least two values, preferring
// cities, then sectors, then years, and clears that field from the filter.
func (ex *extraction) comparison(filter *domain.Filter) *domain.Comparison {
	if cities := ex.values[gazetteer.KindCity]; len(cities) >= 2 {
		filter.City = ""
		filter.State = ""
		return &domain.Comparison{Dimension: domain.CompareByCity, Values: capValues(cities)}
	}
	if sectors := ex.values[gazetteer.KindSector]; len(sectors) >= 2 {
		filter.Sector = ""
		return &domain.Comparison{Dimension: domain.CompareBySector, Values: capValues(sectors)}
	}

	years := ex.years
	if len(years) < 2 {
		years = ex.endpoints
	}
	if len(years) >= 2 {
		sorted := append([]int(nil), years...)
		sort.Ints(sorted)
		values := make([]string, 0, len(sorted))
		for _, year := range sorted {
			values = append(values, strconv.Itoa(year))
		}
		filter.Years = nil
		return &domain.Comparison{Dimension: domain.CompareByYear, Values: capValues(values)}
	}
	return nil
}

func residualTokens(text string) string {
	tokens := textnorm.Tokens(text)
	out := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if _, stop := stopWords[token]; stop {
			continue
		}
		if _, err := strconv.Atoi(token); err == nil {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return strings.Join(out, " ")
}

func amountOp(phrase string) domain.AmountOp {
	switch strings.Join(strings.Fields(phrase), " ") {
	case "at least", "minimum of":
		return domain.AmountGTE
	case "less than", "under", "below":
		return domain.AmountLT
	case "at most", "up to", "upto", "maximum of":
		return domain.AmountLTE
	default:
		return domain.AmountGT
	}
}

func hindiUnit(unit string) string {
	switch {
	case strings.HasPrefix(unit, "करोड"):
		return "crore"
	case unit == "लाख":
		return "lakh"
	case unit == "मिलियन":
		return "million"
	default:
		return ""
	}
}

func parseCount(raw string) int {
	if n, ok := numberWords[raw]; ok {
		return n
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func looksLikeYear(number string) bool {
	n, err := strconv.Atoi(number)
	return err == nil && len(number) == 4 && n >= yearLikeRange[0] && n <= yearLikeRange[1]
}

func normalizeDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x0966 {
			return r
		}
		for _, zero := range digitZeros {
			if r >= zero && r <= zero+9 {
				return '0' + (r - zero)
			}
		}
		return r
	}, s)
}

func blank(work []byte, start, end int) {
	for i := start; i < end; i++ {
		work[i] = ' '
	}
}

func appendInt(values []int, v int) []int {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}

func capValues(values []string) []string {
	if len(values) > maxCompareValues {
		values = values[:maxCompareValues]
	}
	return append([]string(nil), values...)
}

func toSet(values ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}
