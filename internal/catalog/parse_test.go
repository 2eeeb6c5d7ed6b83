package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/colinjianingxie/walletfreak-sub001/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCard = `slug | name | issuer | annual_fee
amex-platinum | The Platinum Card | American Express | 695
---
benefit_id | description_short | description | category | amount | reset_period
 | Airport Lounge Access | Centurion and Priority Pass lounges | ['Lounge'] | 0 | permanent
uber-cash | Uber Cash | $15 monthly Uber Cash | Rideshare | $15 | monthly
 | Hotel Credit | Fine Hotels + Resorts credit | ["Hotels", "Travel"] | 200 | calendar_year
---
category | earning_rate | currency
['Airlines'] | 5x | MR
Hotels | 5 | MR
`

func TestParseSample(t *testing.T) {
	doc, err := Parse("cards/amex-platinum.txt", []byte(sampleCard))
	require.NoError(t, err)
	assert.Empty(t, doc.Findings)

	rec := doc.Record
	assert.Equal(t, "amex-platinum", rec.Slug)
	assert.Equal(t, "The Platinum Card", rec.Name)
	assert.Equal(t, "695", rec.Info["annual_fee"])

	require.Len(t, rec.Benefits, 3)
	assert.False(t, rec.Benefits[0].BenefitID.IsSet())
	id, ok := rec.Benefits[1].BenefitID.Get()
	assert.True(t, ok)
	assert.Equal(t, "uber-cash", id)
	assert.Equal(t, []string{"Lounge"}, rec.Benefits[0].Category)
	assert.Equal(t, []string{"Rideshare"}, rec.Benefits[1].Category)
	assert.Equal(t, []string{"Hotels", "Travel"}, rec.Benefits[2].Category)
	assert.True(t, decimal.NewFromInt(15).Equal(rec.Benefits[1].Amount))
	assert.Equal(t, domain.ResetMonthly, rec.Benefits[1].ResetPeriod)

	require.Len(t, rec.Rates, 2)
	assert.True(t, decimal.NewFromInt(5).Equal(rec.Rates[0].EarningRate))
	assert.Equal(t, "MR", rec.Rates[1].Currency)
}

func TestParseSkipsMismatchedRows(t *testing.T) {
	text := strings.Replace(sampleCard,
		"uber-cash | Uber Cash | $15 monthly Uber Cash | Rideshare | $15 | monthly",
		"uber-cash | Uber Cash | Rideshare | $15 | monthly", 1)

	doc, err := Parse("amex-platinum.txt", []byte(text))
	require.NoError(t, err)

	require.Len(t, doc.Record.Benefits, 2)
	assert.Equal(t, "Hotel Credit", doc.Record.Benefits[1].DescriptionShort)

	require.Len(t, doc.Findings, 1)
	f := doc.Findings[0]
	assert.Equal(t, domain.KindStructuralParse, f.Kind)
	assert.Equal(t, domain.SectionBenefits, f.Section)
	assert.Equal(t, "amex-platinum", f.Card)
	assert.Equal(t, 6, f.Line)
}

func TestParseInvalidFieldsKeepRow(t *testing.T) {
	text := `slug | name
test-card | Test
---
description_short | category | amount | reset_period
Credit | Travel | lots | weekly
---
category | earning_rate | currency
Dining | | UR`

	doc, err := Parse("test-card.txt", []byte(text))
	require.NoError(t, err)
	require.Len(t, doc.Record.Benefits, 1)
	require.Len(t, doc.Record.Rates, 1)

	var kinds []domain.FindingKind
	for _, f := range doc.Findings {
		kinds = append(kinds, f.Kind)
	}
	assert.Equal(t, []domain.FindingKind{
		domain.KindInvalidField, // amount
		domain.KindInvalidField, // reset_period
		domain.KindInvalidField, // earning_rate
	}, kinds)
}

func TestParseSlugFallsBackToFileName(t *testing.T) {
	doc, err := Parse("catalog/chase-sapphire.txt", []byte("name | issuer\nSapphire | Chase\n"))
	require.NoError(t, err)
	assert.Equal(t, "chase-sapphire", doc.Record.Slug)
	assert.Empty(t, doc.Record.Benefits)
	assert.Empty(t, doc.Record.Rates)
}

func TestParseEmptyDocument(t *testing.T) {
	_, err := Parse("x.txt", []byte("  \n"))
	assert.ErrorIs(t, err, ErrNoSections)
}

func TestParseMarkdownTables(t *testing.T) {
	text := `| slug | name |
|---|---|
| md-card | Markdown |
---
| benefit_id | description_short | category |
|---|---|---|
|  | Lounge | Lounge |`

	doc, err := Parse("md-card.txt", []byte(text))
	require.NoError(t, err)
	assert.Empty(t, doc.Findings)
	assert.Equal(t, "md-card", doc.Record.Slug)
	require.Len(t, doc.Record.Benefits, 1)
	assert.False(t, doc.Record.Benefits[0].BenefitID.IsSet())
	assert.Equal(t, "Lounge", doc.Record.Benefits[0].DescriptionShort)
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"Dining", []string{"Dining"}},
		{"  Dining  ", []string{"Dining"}},
		{"['Dining', 'Travel']", []string{"Dining", "Travel"}},
		{`["Dining"]`, []string{"Dining"}},
		{"['Dining'", []string{"['Dining'"}},
		{"[]", []string{}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCategory(tt.raw))
		})
	}
}

func TestRoundTripUnchanged(t *testing.T) {
	inputs := []string{
		sampleCard,
		strings.TrimSuffix(sampleCard, "\n"),
		"slug | name\nx | X\n---\nbroken | row\nonly-one-cell\n",
	}
	for _, in := range inputs {
		doc, err := Parse("x.txt", []byte(in))
		require.NoError(t, err)
		assert.False(t, doc.Dirty())
		assert.Equal(t, in, string(doc.Bytes()))
	}
}

func TestBytesRewritesOnlyAssignedRows(t *testing.T) {
	doc, err := Parse("amex-platinum.txt", []byte(sampleCard))
	require.NoError(t, err)

	doc.Record.Benefits[0].BenefitID = domain.SomeID("airport-lounge-access")
	require.True(t, doc.Dirty())

	out := string(doc.Bytes())
	want := strings.Replace(sampleCard,
		" | Airport Lounge Access | Centurion and Priority Pass lounges | ['Lounge'] | 0 | permanent",
		"airport-lounge-access | Airport Lounge Access | Centurion and Priority Pass lounges | ['Lounge'] | 0 | permanent", 1)
	assert.Equal(t, want, out)

	again, err := Parse("amex-platinum.txt", []byte(out))
	require.NoError(t, err)
	assert.Equal(t, "airport-lounge-access", again.Record.Benefits[0].BenefitID.String())
}

func TestBytesAddsBenefitIDColumn(t *testing.T) {
	text := "slug | name\nc | C\n---\ndescription_short | category\nLounge | Lounge\nbad\n"
	doc, err := Parse("c.txt", []byte(text))
	require.NoError(t, err)
	require.Len(t, doc.Findings, 1)

	doc.Record.Benefits[0].BenefitID = domain.SomeID("lounge")
	out := string(doc.Bytes())
	assert.Equal(t, "slug | name\nc | C\n---\nbenefit_id | description_short | category\nlounge | Lounge | Lounge\nbad\n", out)
}

func TestBytesAddsBenefitIDColumnKeepsWideRowSkipped(t *testing.T) {
	text := "slug | name\nc | C\n---\ndescription_short | category\nUber | Lyft Credit | Rideshare\nLounge | Lounge\n"
	doc, err := Parse("c.txt", []byte(text))
	require.NoError(t, err)
	require.Len(t, doc.Record.Benefits, 1)
	require.Len(t, doc.Findings, 1)

	doc.Record.Benefits[0].BenefitID = domain.SomeID("lounge")
	out := string(doc.Bytes())
	assert.Equal(t, "slug | name\nc | C\n---\nbenefit_id | description_short | category\n | Uber | Lyft Credit | Rideshare\nlounge | Lounge | Lounge\n", out)

	again, err := Parse("c.txt", []byte(out))
	require.NoError(t, err)
	require.Len(t, again.Record.Benefits, 1)
	assert.Equal(t, "lounge", again.Record.Benefits[0].BenefitID.String())
	assert.Equal(t, "Lounge", again.Record.Benefits[0].DescriptionShort)
	require.Len(t, again.Findings, 1)
	assert.Equal(t, domain.KindStructuralParse, again.Findings[0].Kind)
	assert.Equal(t, 5, again.Findings[0].Line)
}

func TestParseCRLF(t *testing.T) {
	text := strings.ReplaceAll(sampleCard, "\n", "\r\n")

	doc, err := Parse("amex-platinum.txt", []byte(text))
	require.NoError(t, err)
	assert.Empty(t, doc.Findings)
	require.Len(t, doc.Record.Benefits, 3)
	require.Len(t, doc.Record.Rates, 2)
	assert.Equal(t, "uber-cash", doc.Record.Benefits[1].BenefitID.String())
	assert.Equal(t, 11, doc.Record.Rates[1].Line)
	assert.Equal(t, text, string(doc.Bytes()))

	doc.Record.Benefits[0].BenefitID = domain.SomeID("airport-lounge-access")
	out := string(doc.Bytes())
	assert.Equal(t, strings.Count(out, "\n"), strings.Count(out, "\r\n"))
	assert.Contains(t, out, "\r\nairport-lounge-access | Airport Lounge Access |")
}

func TestParseRecordsRowLines(t *testing.T) {
	doc, err := Parse("amex-platinum.txt", []byte(sampleCard))
	require.NoError(t, err)
	assert.Equal(t, 5, doc.Record.Benefits[0].Line)
	assert.Equal(t, 7, doc.Record.Benefits[2].Line)
	assert.Equal(t, 10, doc.Record.Rates[0].Line)
}

func TestDirLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte(sampleCard), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("slug | name\na-card | A\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), []byte(""), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644))

	docs, err := Dir{Path: dir, Ext: ".txt"}.Load(testContext(t), 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSections)
	require.Len(t, docs, 2)
	assert.Equal(t, "a-card", docs[0].Record.Slug)
	assert.Equal(t, "amex-platinum", docs[1].Record.Slug)

	doc := docs[1]
	doc.Record.Benefits[0].BenefitID = domain.SomeID("airport-lounge-access")
	require.NoError(t, doc.Save())
	assert.False(t, doc.Dirty())

	fi, err := os.Stat(doc.Path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	reread, err := ParseFile(doc.Path)
	require.NoError(t, err)
	assert.Equal(t, "airport-lounge-access", reread.Record.Benefits[0].BenefitID.String())
	assert.Equal(t, string(reread.Bytes()), string(doc.Bytes()))
}

// testContext stands in for testing.T.Context (Go 1.24+): the returned
// context is cancelled when the test finishes.
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
