package importer

import (
	"regexp"
	"strings"
)

// Canonical fields every header is resolved onto.
const (
	FieldDate         = "date"
	FieldType         = "type"
	FieldCategory     = "category"
	FieldCounterparty = "counterparty"
	FieldDescription  = "description"
	FieldAmount       = "amount"
	FieldCurrency     = "currency"
)

// fieldAliases lists, per canonical field, the normalized headers that may
// supply it. The first alias present in a record wins.
var fieldAliases = map[string][]string{
	FieldDate:         {"date", "transaction_date", "date_yyyy_mm_dd"},
	FieldType:         {"type", "transaction_type"},
	FieldCategory:     {"category"},
	FieldCounterparty: {"payee_payer", "payee", "payer", "counterparty"},
	FieldDescription:  {"description"},
	FieldAmount:       {"amount", "amt"},
	FieldCurrency:     {"currency", "curr"},
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeHeader lower-cases and trims label, collapses every run of
// characters other than ASCII letters and digits to "_" and trims stray
// underscores, so "Payee/Payer" and " payee_payer " both become "payee_payer".
func NormalizeHeader(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = nonAlnum.ReplaceAllString(label, "_")

	return strings.Trim(label, "_")
}

// normalizedRecord re-keys rec by normalized header. When two headers
// normalize alike, the one earlier in sorted label order is kept so the
// result does not depend on map iteration.
type normalizedRecord map[string]any

func normalizeRecord(rec RawRecord) normalizedRecord {
	out := make(normalizedRecord, len(rec))
	chosen := make(map[string]string, len(rec))

	for label, v := range rec {
		key := NormalizeHeader(label)
		if key == "" {
			continue
		}

		if prev, ok := chosen[key]; ok && prev <= label {
			continue
		}

		chosen[key] = label
		out[key] = v
	}

	return out
}

// lookup returns the first non-nil value supplied by one of field's aliases, or nil.
func (n normalizedRecord) lookup(field string) any {
	for _, alias := range fieldAliases[field] {
		if v := n[alias]; v != nil {
			return v
		}
	}

	return nil
}
