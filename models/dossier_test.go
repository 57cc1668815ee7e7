package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDossier_JSONShape(t *testing.T) {
	d := newTestDossier()

	raw, err := json.Marshal(d)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, key := range []string{"dossier_id", "legislation", "case_law", "selected_ids", "conversation", "created_at", "updated_at"} {
		assert.Contains(t, fields, key)
	}
	assert.JSONEq(t, `[]`, string(fields["selected_ids"]))
	assert.JSONEq(t, `[]`, string(fields["conversation"]))
}

func TestDossier_CloneIsDeep(t *testing.T) {
	d := Patch{AddLegislation: []Legislation{{Title: vatTitle, Content: vatText}}}.Apply(newTestDossier())
	d.AppendMessage(RoleUser, "vraag")

	c := d.Clone()
	c.Legislation[0].Content = "gewijzigd"
	c.SelectedIDs[0] = "anders"
	c.AppendMessage(RoleAssistant, "antwoord")

	assert.Equal(t, vatText, d.Legislation[0].Content)
	assert.Equal(t, TitleSet{vatTitle}, d.SelectedIDs)
	assert.Len(t, d.Conversation, 1)
}

func TestDossier_AppendMessageSkipsBlank(t *testing.T) {
	d := newTestDossier()
	d.AppendMessage(RoleUser, "  ")
	d.AppendMessage(RoleUser, "ja")

	assert.Equal(t, Conversation{{Role: RoleUser, Content: "ja"}}, d.Conversation)
	assert.Equal(t, []string{"ja"}, d.UserMessages())
}

func TestDossier_SelectedSources(t *testing.T) {
	d := Patch{
		AddLegislation: []Legislation{{Title: vatTitle, Content: vatText}, {Title: vpbTitle, Content: "vpb"}},
		AddCaseLaw:     []CaseLaw{{Title: hrTitle, Content: "uitspraak"}},
		UnselectTitles: []string{vpbTitle},
	}.Apply(newTestDossier())

	assert.Equal(t, []Legislation{{Title: vatTitle, Content: vatText}}, d.SelectedLegislation())
	assert.Equal(t, []CaseLaw{{Title: hrTitle, Content: "uitspraak"}}, d.SelectedCaseLaw())
	assert.True(t, d.HasTitle(" "+vpbTitle))
	assert.False(t, d.HasTitle("onbekend"))
}

func TestJSONBColumns_ValueScanRoundTrip(t *testing.T) {
	conv := Conversation{{Role: RoleUser, Content: "vraag"}}
	v, err := conv.Value()
	require.NoError(t, err)

	var scanned Conversation
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, conv, scanned)

	var titles TitleSet
	require.NoError(t, titles.Scan(`["a","b"]`))
	assert.Equal(t, TitleSet{"a", "b"}, titles)

	var empty LegislationList
	v, err = empty.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte(`[]`), v)
	require.NoError(t, empty.Scan(nil))
	assert.Nil(t, empty)
}
