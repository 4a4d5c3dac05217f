package importer

const (
	msgInvalidType   = "Invalid or missing 'type' (expected 'income' or 'expense')"
	msgInvalidAmount = "Invalid or missing 'amount'"
)

// ValidateRow coerces one record. It returns either a row or the errors that
// kept it out, never both. rowNumber is the row's line in the source file.
func ValidateRow(rec RawRecord, rowNumber int) (*ValidatedRow, []ValidationError) {
	n := normalizeRecord(rec)

	rawType := n.lookup(FieldType)
	rawAmount := n.lookup(FieldAmount)

	var errs []ValidationError

	typ, ok := ParseType(rawType)
	if !ok {
		errs = append(errs, ValidationError{Row: rowNumber, Message: msgInvalidType, Field: FieldType, Value: rawType})
	}

	amount, ok := ParseAmount(rawAmount)
	if !ok {
		errs = append(errs, ValidationError{Row: rowNumber, Message: msgInvalidAmount, Field: FieldAmount, Value: rawAmount})
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &ValidatedRow{
		Date:         ParseDate(n.lookup(FieldDate)),
		Type:         string(typ),
		Category:     CleanString(n.lookup(FieldCategory)),
		Counterparty: CleanString(n.lookup(FieldCounterparty)),
		Description:  CleanString(n.lookup(FieldDescription)),
		Amount:       amount,
		Currency:     CleanString(n.lookup(FieldCurrency)),
	}, nil
}

// ValidateAll validates records in file order. The record at index i is
// reported as row i+2: line 1 holds the header and rows are 1-based.
func ValidateAll(records []RawRecord) ([]ValidatedRow, []ValidationError) {
	var (
		rows []ValidatedRow
		errs []ValidationError
	)

	for i, rec := range records {
		row, rowErrs := ValidateRow(rec, i+2)
		if len(rowErrs) > 0 {
			errs = append(errs, rowErrs...)
			continue
		}

		rows = append(rows, *row)
	}

	return rows, errs
}
