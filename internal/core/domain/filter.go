package domain

import (
	"strconv"
	"strings"
)

type AmountOp string

const (
	AmountGT  AmountOp = "gt"
	AmountGTE AmountOp = "gte"
	AmountLT  AmountOp = "lt"
	AmountLTE AmountOp = "lte"
	AmountEQ  AmountOp = "eq"
)

type YearRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (r YearRange) Contains(year int) bool {
	return year >= r.From && year <= r.To
}

type AmountFilter struct {
	Op    AmountOp `json:"op"`
	Value float64  `json:"value"`
}

func (a AmountFilter) Matches(amount float64) bool {
	switch a.Op {
	case AmountGT:
		return amount > a.Value
	case AmountGTE:
		return amount >= a.Value
	case AmountLT:
		return amount > 0 && amount < a.Value
	case AmountLTE:
		return amount > 0 && amount <= a.Value
	case AmountEQ:
		return amount == a.Value
	default:
		return true
	}
}

// Filter is the closed set of structured predicates a query can carry.
// Empty string fields and nil pointers mean "no constraint".
type Filter struct {
	Company  string        `json:"company,omitempty"`
	City     string        `json:"city,omitempty"`
	State    string        `json:"state,omitempty"`
	Sector   string        `json:"sector,omitempty"`
	Investor string        `json:"investor,omitempty"`
	Round    string        `json:"round,omitempty"`
	Years    *YearRange    `json:"year_range,omitempty"`
	Amount   *AmountFilter `json:"amount,omitempty"`
}

func (f Filter) IsEmpty() bool {
	return f.Company == "" && f.City == "" && f.State == "" && f.Sector == "" && f.Investor == "" &&
		f.Round == "" && f.Years == nil && f.Amount == nil
}

// Matches reports whether every constraint in f holds for meta.
func (f Filter) Matches(meta ChunkMetadata) bool {
	matched, total := f.MatchCount(meta)
	return matched == total
}

// MatchCount returns how many of the set constraints hold for meta and how
// many constraints are set.
func (f Filter) MatchCount(meta ChunkMetadata) (int, int) {
	matched, total := 0, 0
	check := func(set bool, ok bool) {
		if !set {
			return
		}
		total++
		if ok {
			matched++
		}
	}

	check(f.Company != "", strings.EqualFold(strings.TrimSpace(f.Company), strings.TrimSpace(meta.Company)))
	check(f.City != "", strings.EqualFold(f.City, meta.City))
	check(f.State != "", strings.EqualFold(f.State, meta.State))
	check(f.Sector != "", strings.EqualFold(f.Sector, meta.Sector))
	check(f.Investor != "", meta.HasInvestor(f.Investor))
	check(f.Round != "", strings.EqualFold(f.Round, meta.Round))
	check(f.Years != nil, f.Years != nil && f.Years.Contains(meta.Year))
	check(f.Amount != nil, f.Amount != nil && f.Amount.Matches(meta.Amount))
	return matched, total
}

// Key renders the filter in a fixed field order, lowercased, for use in
// cache fingerprints.
func (f Filter) Key() string {
	parts := make([]string, 0, 8)
	add := func(name, value string) {
		value = strings.ToLower(strings.TrimSpace(value))
		if value != "" {
			parts = append(parts, name+"="+value)
		}
	}

	add("company", f.Company)
	add("city", f.City)
	add("state", f.State)
	add("sector", f.Sector)
	add("investor", f.Investor)
	add("round", f.Round)
	if f.Years != nil {
		add("years", strconv.Itoa(f.Years.From)+"-"+strconv.Itoa(f.Years.To))
	}
	if f.Amount != nil {
		add("amount", string(f.Amount.Op)+":"+strconv.FormatFloat(f.Amount.Value, 'f', -1, 64))
	}
	return strings.Join(parts, ";")
}
