// Package invoice derives the monthly duplicate of a source invoice.
package invoice

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/flowbaker/misoca-monthly/pkg/clients/misoca"
)

const DateLayout = "2006-01-02"

var (
	monthPattern        = regexp.MustCompile(`(\d{1,2})月分`)
	bracketMonthPattern = regexp.MustCompile(`（.*?月分.*?）`)
	spaceRun            = regexp.MustCompile(` +`)
)

// IssueDate is the last day of now's month
func IssueDate(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location())
}

// DueDate is the last day of the month after now's month
func DueDate(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+2, 0, 0, 0, 0, 0, now.Location())
}

// RewriteSubject replaces the first "N月分" with the given month. Subjects without one lose
// their first full-width bracketed "月分" annotation and get " <month>月分" appended.
func RewriteSubject(subject string, month time.Month) string {
	label := fmt.Sprintf("%d月分", int(month))

	if loc := monthPattern.FindStringIndex(subject); loc != nil {
		return subject[:loc[0]] + label + subject[loc[1]:]
	}

	if loc := bracketMonthPattern.FindStringIndex(subject); loc != nil {
		subject = subject[:loc[0]] + subject[loc[1]:]
	}

	rewritten := strings.TrimFunc(subject, isTrimmable) + " " + label

	return spaceRun.ReplaceAllString(rewritten, " ")
}

// isTrimmable matches the whitespace set of ECMAScript String.prototype.trim:
// U+FEFF is included and U+0085 is not.
func isTrimmable(r rune) bool {
	if r == '\ufeff' {
		return true
	}
	return r != '\u0085' && unicode.IsSpace(r)
}

// Duplicate builds the create request for this month's copy of src
func Duplicate(now time.Time, src misoca.Invoice) misoca.CreateInvoiceRequest {
	items := src.Items
	if items == nil {
		items = []json.RawMessage{}
	}

	return misoca.CreateInvoiceRequest{
		Subject:      RewriteSubject(src.Subject, now.Month()),
		ContactID:    src.ContactID,
		IssueDate:    IssueDate(now).Format(DateLayout),
		PaymentDueOn: DueDate(now).Format(DateLayout),
		Body:         src.Body,
		Items:        items,
	}
}
