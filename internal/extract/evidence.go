package extract

import (
	"strings"

	"claimlens/internal/domain"
)

// ResolveQuote anchors a source quote to the first matching OCR token and
// returns a weak reference to it. The anchor token is the first word after
// the quote's last colon, compared case-insensitively with surrounding
// punctuation stripped. Quotes that cannot be anchored return a ref with
// -1 indexes so the quote itself is still preserved.
func ResolveQuote(quote string, pages []domain.PageEvidence) domain.EvidenceRef {
	ref := domain.EvidenceRef{Page: -1, Token: -1, Quote: quote}

	token := quote
	if i := strings.LastIndex(token, ":"); i >= 0 {
		token = token[i+1:]
	}
	token = strings.TrimSpace(token)
	if i := strings.IndexByte(token, ' '); i >= 0 {
		token = token[:i]
	}
	token = strings.ToLower(token)
	if token == "" {
		return ref
	}

	for _, page := range pages {
		for i, w := range page.Words {
			if strings.Trim(strings.ToLower(w.Text), ",:.$") == token {
				ref.Page = page.Index
				ref.Token = i
				return ref
			}
		}
	}
	return ref
}
