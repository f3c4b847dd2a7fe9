package fhir

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	fm "github.com/samply/golang-fhir-models/fhir-models/fhir"
	"github.com/samply/ordersetctl/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hivOrderSet() *data.OrderSet {
	regimen := &data.OrderSet{}
	regimen.SetTitle("Regimen 1")
	regimen.SetOperator(data.OperatorAll)
	regimen.SetMembers([]*data.Member{
		{Kind: data.MemberKindConcept, Concept: &data.Concept{Name: "Tenofovir", System: "http://www.nlm.nih.gov/research/umls/rxnorm", Code: "300195"}},
		{Kind: data.MemberKindTemplate, Template: "Lamivudine 300 mg PO daily"},
	})

	s := data.NewOrderSet(42)
	s.UUID = uuid.MustParse("1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	s.Name = "first-line-hiv"
	s.SetTitle("FIRST LINE HIV THERAPIES")
	s.SetComment("Pick one regimen")
	s.SetOperator(data.OperatorOne)
	s.SetConcept(&data.Concept{Name: "HIV", System: "http://snomed.info/sct", Code: "86406008"})
	s.MarkReviewed(&data.User{Username: "admin", Name: "Super User"}, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	s.SetMembers([]*data.Member{
		{ID: 7, Kind: data.MemberKindTemplate, Template: "Zidovudine 300 mg PO bid", SortWeight: 2},
		{Kind: data.MemberKindOrderSet, OrderSet: regimen, SortWeight: 1},
	})
	return s
}

func TestPlanDefinition(t *testing.T) {
	planDefinition, err := PlanDefinition(hivOrderSet(), "urn:uuid:0e7a1bc4-3b4d-4b8e-9a0e-2f0a3c9d7e11")
	require.NoError(t, err)

	assert.Equal(t, "42", *planDefinition.Id)
	assert.Equal(t, "urn:uuid:0e7a1bc4-3b4d-4b8e-9a0e-2f0a3c9d7e11", *planDefinition.Url)
	assert.Equal(t, "urn:uuid:1b4e28ba-2fa1-11d2-883f-0016d3cca427", *planDefinition.Identifier[0].Value)
	assert.Equal(t, PlanDefinitionTypeOrderSet, *planDefinition.Type.Coding[0].Code)
	assert.Equal(t, fm.PublicationStatusActive, planDefinition.Status)
	assert.Equal(t, "first-line-hiv", *planDefinition.Name)
	assert.Equal(t, "FIRST LINE HIV THERAPIES", *planDefinition.Title)
	assert.Equal(t, "Pick one regimen", *planDefinition.Usage)
	assert.Equal(t, "86406008", *planDefinition.Topic[0].Coding[0].Code)
	assert.Equal(t, "Super User", *planDefinition.Reviewer[0].Name)
	assert.Equal(t, "2024-03-01", *planDefinition.LastReviewDate)
	assert.Nil(t, planDefinition.Description)

	require.Len(t, planDefinition.Action, 1)
	group := planDefinition.Action[0]
	assert.Equal(t, fm.ActionSelectionBehaviorExactlyOne, *group.SelectionBehavior)
	assert.Equal(t, fm.ActionGroupingBehaviorLogicalGroup, *group.GroupingBehavior)
	require.Len(t, group.Action, 2)

	regimen := group.Action[0]
	assert.Equal(t, "Regimen 1", *regimen.Title)
	assert.Equal(t, fm.ActionSelectionBehaviorAllOrNone, *regimen.SelectionBehavior)
	require.Len(t, regimen.Action, 2)
	assert.Equal(t, "300195", *regimen.Action[0].Code[0].Coding[0].Code)
	assert.Equal(t, "Tenofovir", *regimen.Action[0].Code[0].Text)
	assert.Equal(t, "Lamivudine 300 mg PO daily", *regimen.Action[1].TextEquivalent)

	zidovudine := group.Action[1]
	assert.Equal(t, "7", *zidovudine.Id)
	assert.Equal(t, "Zidovudine 300 mg PO bid", *zidovudine.TextEquivalent)
}

func TestPlanDefinition_Retired(t *testing.T) {
	s := hivOrderSet()
	s.Retire("superseded", time.Now())

	planDefinition, err := PlanDefinition(s, "")
	require.NoError(t, err)

	assert.Equal(t, fm.PublicationStatusRetired, planDefinition.Status)
	assert.Nil(t, planDefinition.Url)
}

func TestPlanDefinition_Errors(t *testing.T) {
	t.Run("invalid operator", func(t *testing.T) {
		s := hivOrderSet()
		s.SetOperator("SOME")
		_, err := PlanDefinition(s, "")
		assert.ErrorIs(t, err, data.ErrInvalidOperator)
	})

	t.Run("invalid nested operator", func(t *testing.T) {
		s := hivOrderSet()
		s.Members()[1].OrderSet.SetOperator("")
		_, err := PlanDefinition(s, "")
		if assert.ErrorIs(t, err, data.ErrInvalidOperator) {
			assert.Equal(t, `member[0]: invalid operator ""`, err.Error())
		}
	})

	t.Run("missing concept", func(t *testing.T) {
		s := hivOrderSet()
		s.SetMembers([]*data.Member{{Kind: data.MemberKindConcept}})
		_, err := PlanDefinition(s, "")
		assert.EqualError(t, err, "member[0]: missing concept")
	})

	t.Run("missing template", func(t *testing.T) {
		s := hivOrderSet()
		s.SetMembers([]*data.Member{{Kind: data.MemberKindTemplate}})
		_, err := PlanDefinition(s, "")
		assert.EqualError(t, err, "member[0]: missing template")
	})

	t.Run("cycle", func(t *testing.T) {
		s := hivOrderSet()
		s.SetMembers([]*data.Member{{Kind: data.MemberKindOrderSet, OrderSet: s}})
		_, err := PlanDefinition(s, "")
		assert.ErrorIs(t, err, data.ErrCycle)
	})
}

func TestPlanDefinition_MarshalsResourceType(t *testing.T) {
	planDefinition, err := PlanDefinition(hivOrderSet(), "")
	require.NoError(t, err)

	b, err := json.Marshal(planDefinition)
	require.NoError(t, err)

	var resource map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &resource))
	assert.Equal(t, "PlanDefinition", resource["resourceType"])
	assert.Equal(t, "order-set", resource["type"].(map[string]interface{})["coding"].([]interface{})[0].(map[string]interface{})["code"])
}

func TestOrderSetOf(t *testing.T) {
	original := hivOrderSet()
	planDefinition, err := PlanDefinition(original, "")
	require.NoError(t, err)

	s, err := OrderSetOf(planDefinition)
	require.NoError(t, err)

	assert.Equal(t, 42, s.ID())
	assert.Equal(t, original.UUID, s.UUID)
	assert.Equal(t, "first-line-hiv", s.Name)
	assert.Equal(t, "FIRST LINE HIV THERAPIES", s.Title())
	assert.Equal(t, "Pick one regimen", s.Comment())
	assert.Equal(t, data.OperatorOne, s.Operator())
	assert.Equal(t, "86406008", s.Concept().Code)
	assert.Equal(t, "Super User", s.ReviewedBy().Name)
	assert.Equal(t, original.DateReviewed(), s.DateReviewed())
	assert.NoError(t, data.Validate(s))

	require.Len(t, s.Members(), 2)
	regimen := s.Members()[0]
	assert.Equal(t, data.MemberKindOrderSet, regimen.Kind)
	assert.Equal(t, data.OperatorAll, regimen.OrderSet.Operator())
	require.Len(t, regimen.OrderSet.Members(), 2)
	assert.Equal(t, data.MemberKindConcept, regimen.OrderSet.Members()[0].Kind)
	assert.Equal(t, "300195", regimen.OrderSet.Members()[0].Concept.Code)
	assert.Equal(t, data.MemberKindTemplate, regimen.OrderSet.Members()[1].Kind)

	zidovudine := s.Members()[1]
	assert.Equal(t, 7, zidovudine.ID)
	assert.Equal(t, "Zidovudine 300 mg PO bid", zidovudine.Template)
}

func TestOrderSetOf_Errors(t *testing.T) {
	t.Run("non-numeric id", func(t *testing.T) {
		_, err := OrderSetOf(fm.PlanDefinition{Id: stringPtr("abc")})
		assert.EqualError(t, err, `non-numeric id "abc"`)
	})

	t.Run("empty action", func(t *testing.T) {
		behavior := fm.ActionSelectionBehaviorAny
		_, err := OrderSetOf(fm.PlanDefinition{Action: []fm.PlanDefinitionAction{{
			SelectionBehavior: &behavior,
			Action:            []fm.PlanDefinitionAction{{}},
		}}})
		assert.EqualError(t, err, "member[0]: action has neither code, text, definition nor sub actions")
	})
}

func TestOrderSetOf_NestedTitles(t *testing.T) {
	s := hivOrderSet()
	regimen := s.Members()[1]
	regimen.Title = "Preferred regimen"
	regimen.Comment = "Start here"
	regimen.OrderSet.SetComment("Fixed dose combination")

	planDefinition, err := PlanDefinition(s, "")
	require.NoError(t, err)
	nested := planDefinition.Action[0].Action[0]
	assert.Equal(t, "Regimen 1", *nested.Title)
	assert.Equal(t, "Fixed dose combination", *nested.Description)

	roundTripped, err := OrderSetOf(planDefinition)
	require.NoError(t, err)
	assert.Equal(t, "Regimen 1", roundTripped.Members()[0].OrderSet.Title())
	assert.Equal(t, "Fixed dose combination", roundTripped.Members()[0].OrderSet.Comment())
}

func TestOrderSetOf_ForeignPlanDefinition(t *testing.T) {
	planDefinition, err := fm.UnmarshalPlanDefinition([]byte(`{
"resourceType": "PlanDefinition",
"id": "7",
"title": "Community acquired pneumonia",
"status": "active",
"lastReviewDate": "2024-03",
"action": [{
  "selectionBehavior": "any",
  "action": [
    {"title": "Amoxicillin", "definitionCanonical": "http://example.org/ActivityDefinition/amoxicillin"},
    {"definitionUri": "http://example.org/ActivityDefinition/chest-x-ray"}
  ]
}]}`))
	require.NoError(t, err)

	s, err := OrderSetOf(planDefinition)
	require.NoError(t, err)

	assert.Equal(t, 7, s.ID())
	assert.Equal(t, data.OperatorAny, s.Operator())
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), s.DateReviewed())
	require.Len(t, s.Members(), 2)
	assert.Equal(t, data.MemberKindTemplate, s.Members()[0].Kind)
	assert.Equal(t, "Amoxicillin", s.Members()[0].Title)
	assert.Equal(t, "http://example.org/ActivityDefinition/amoxicillin", s.Members()[0].Template)
	assert.Equal(t, "http://example.org/ActivityDefinition/chest-x-ray", s.Members()[1].Template)
	assert.NoError(t, data.Validate(s))
}

func TestParseDate(t *testing.T) {
	for date, expected := range map[string]time.Time{
		"2024-03-05": time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		"2024-03":    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		"2024":       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	} {
		t.Run(date, func(t *testing.T) {
			d, err := parseDate(date)
			require.NoError(t, err)
			assert.Equal(t, expected, d)
		})
	}

	_, err := parseDate("March 2024")
	assert.Error(t, err)
}
