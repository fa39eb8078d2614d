package validator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"claimlens/internal/domain"
	"claimlens/internal/schema"
)

// defaultDateFormats covers the layouts seen on scanned claim forms and
// provider bills.
var defaultDateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"02/01/2006",
	"2006/01/02",
	"Jan 02, 2006",
	"January 02, 2006",
	"02 Jan 2006",
}

// amountCleaner strips the currency punctuation OCR leaves on amounts.
var amountCleaner = strings.NewReplacer("$", "", ",", "", " ", "")

func (e *Engine) dateCheck(name, value string) []domain.Violation {
	if _, err := e.parseDate(value); err != nil {
		return []domain.Violation{{
			FieldPath: name,
			Reason:    domain.ViolationNotADate,
			Severity:  domain.SeverityError,
			Message:   fmt.Sprintf("%s %q is not a parseable date", name, value),
		}}
	}
	return nil
}

func (e *Engine) parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, f := range e.cfg.DateFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date: %s", s)
}

func amountCheck(name, value string) []domain.Violation {
	amount, err := parseAmount(value)
	if err != nil {
		return []domain.Violation{{
			FieldPath: name,
			Reason:    domain.ViolationNotANumber,
			Severity:  domain.SeverityError,
			Message:   fmt.Sprintf("%s %q is not a number", name, value),
		}}
	}
	if amount < 0 {
		return []domain.Violation{{
			FieldPath: name,
			Reason:    domain.ViolationOutOfRange,
			Severity:  domain.SeverityError,
			Message:   fmt.Sprintf("%s %.2f is negative", name, amount),
		}}
	}
	return nil
}

// parseAmount reads a monetary value, tolerating currency symbols and
// thousands separators.
func parseAmount(s string) (float64, error) {
	cleaned := amountCleaner.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount")
	}
	return strconv.ParseFloat(cleaned, 64)
}

func identifierCheck(def schema.FieldDef, value string) []domain.Violation {
	if def.Format == nil || def.Format.MatchString(value) {
		return nil
	}
	return []domain.Violation{{
		FieldPath: def.Name,
		Reason:    domain.ViolationFormatMismatch,
		Severity:  domain.SeverityError,
		Message:   fmt.Sprintf("%s %q does not match the expected format", def.Name, value),
	}}
}

// checkLineItem flags out-of-range amounts on one row. Missing sub-fields
// are not violations; scoring treats them as absent.
func checkLineItem(index int, item domain.LineItem) []domain.Violation {
	if item.Amount == nil || *item.Amount >= 0 {
		return nil
	}
	path := fmt.Sprintf("line_items[%d].amount", index)
	return []domain.Violation{{
		FieldPath: path,
		Reason:    domain.ViolationOutOfRange,
		Severity:  domain.SeverityError,
		Message:   fmt.Sprintf("%s %.2f is negative", path, *item.Amount),
	}}
}
