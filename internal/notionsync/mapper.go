package notionsync

import (
	"math"
	"time"

	"github.com/dvloznov/voice-inventory/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the ledger database.
const (
	PropDescription   = "Description"
	PropTransactionID = "Transaction ID"
	PropOwner         = "Owner"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropType          = "Type"
	PropCategory      = "Category"
	PropRecordedAt    = "Recorded At"
)

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

func dateProp(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t.UTC())
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
}

// TransactionToNotionProperties maps a ledger transaction onto a page of
// the ledger database.
func TransactionToNotionProperties(tx *domain.Transaction) notionapi.Properties {
	title := tx.Description
	if title == "" {
		title = string(tx.Type)
	}

	props := notionapi.Properties{
		PropDescription:   notionapi.TitleProperty{Title: richText(title)},
		PropTransactionID: notionapi.RichTextProperty{RichText: richText(tx.ID)},
		PropOwner:         notionapi.RichTextProperty{RichText: richText(tx.OwnerID)},
		PropDate:          dateProp(tx.Date),
		PropAmount:        notionapi.NumberProperty{Number: tx.Amount},
		PropType:          notionapi.SelectProperty{Select: notionapi.Option{Name: string(tx.Type)}},
	}

	if tx.Category != "" {
		props[PropCategory] = notionapi.SelectProperty{Select: notionapi.Option{Name: tx.Category}}
	}
	if !tx.CreatedAt.IsZero() {
		props[PropRecordedAt] = dateProp(tx.CreatedAt)
	}
	return props
}

// pageRecord is the subset of a page's properties the sync compares.
type pageRecord struct {
	TransactionID string
	Owner         string
	Date          time.Time
	HasDate       bool
	Amount        float64
	Description   string
}

func readPage(page notionapi.Page) pageRecord {
	var r pageRecord
	r.TransactionID = plainText(page.Properties[PropTransactionID])
	r.Owner = plainText(page.Properties[PropOwner])
	r.Description = plainText(page.Properties[PropDescription])

	if p, ok := page.Properties[PropDate].(*notionapi.DateProperty); ok && p.Date != nil && p.Date.Start != nil {
		r.Date = time.Time(*p.Date.Start)
		r.HasDate = true
	}
	if p, ok := page.Properties[PropAmount].(*notionapi.NumberProperty); ok {
		r.Amount = p.Number
	}
	return r
}

func plainText(prop notionapi.Property) string {
	switch p := prop.(type) {
	case *notionapi.RichTextProperty:
		if len(p.RichText) > 0 {
			return p.RichText[0].PlainText
		}
	case *notionapi.TitleProperty:
		if len(p.Title) > 0 {
			return p.Title[0].PlainText
		}
	}
	return ""
}

// matches reports whether the page still reflects tx.
func (r pageRecord) matches(tx *domain.Transaction) bool {
	title := tx.Description
	if title == "" {
		title = string(tx.Type)
	}
	return r.Description == title &&
		math.Abs(r.Amount-tx.Amount) < 0.005 &&
		r.HasDate && sameDay(r.Date, tx.Date)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
