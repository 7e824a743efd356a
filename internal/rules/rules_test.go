package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travel_wizard/internal/domain"
)

func TestVisibilityCoversEveryType(t *testing.T) {
	for _, pt := range domain.AllPackageTypes() {
		vis := VisibilityFor(pt)
		require.Len(t, vis, len(domain.AllFields()), "type %s", pt)
		assert.True(t, vis[domain.FieldType], "type %s must show the type field", pt)
		assert.True(t, vis[domain.FieldDescription], "type %s", pt)
	}
}

func TestVisibilityUnknownTypeIsEmpty(t *testing.T) {
	assert.Empty(t, VisibilityFor("CRUISES"))
	assert.Empty(t, VisibilityFor(""))
	assert.False(t, IsVisible("CRUISES", domain.FieldTitle))
	assert.Empty(t, RequiredFor("CRUISES"))
}

func TestRequiredIsSubsetOfVisible(t *testing.T) {
	for _, pt := range domain.AllPackageTypes() {
		vis := VisibilityFor(pt)
		raw := requiredFields(pt)
		require.NotEmpty(t, raw, "type %s", pt)
		for _, f := range raw {
			assert.True(t, vis[f], "%s requires hidden field %s", pt, f)
		}
		assert.Len(t, RequiredFor(pt), len(raw), "type %s", pt)
	}
}

func TestTransfersMatrix(t *testing.T) {
	vis := VisibilityFor(domain.TypeTransfers)
	for _, f := range []domain.FieldName{domain.FieldFrom, domain.FieldTo, domain.FieldVehicleType, domain.FieldPackageName} {
		assert.True(t, vis[f], "%s", f)
	}
	for _, f := range []domain.FieldName{domain.FieldItinerary, domain.FieldHotelCategory, domain.FieldDepartureAirport, domain.FieldTitle} {
		assert.False(t, vis[f], "%s", f)
	}
	assert.Equal(t,
		[]domain.FieldName{domain.FieldPlace, domain.FieldFrom, domain.FieldTo, domain.FieldPickupTime},
		VisibleFieldsForStep(domain.TypeTransfers, domain.StepLocationTiming))
}

func TestHotelFieldsOnlyForHotelTypes(t *testing.T) {
	assert.False(t, IsVisible(domain.TypeMultiCityPackages, domain.FieldHotelCategory))
	assert.True(t, IsVisible(domain.TypeMultiCityPackagesWithHotel, domain.FieldHotelCategory))
	assert.True(t, IsVisible(domain.TypeFixedDepartureWithFlight, domain.FieldFlightClass))
	assert.True(t, IsRequired(domain.TypeMultiCityPackagesWithHotel, domain.FieldRoomType))
	assert.False(t, IsRequired(domain.TypeMultiCityPackages, domain.FieldRoomType))
}

func TestEvaluateTransfersEmptyDraft(t *testing.T) {
	d := domain.Draft{"type": "TRANSFERS"}
	errs := Evaluate(d, domain.TypeTransfers)
	assert.ElementsMatch(t,
		[]domain.FieldName{domain.FieldPackageName, domain.FieldDescription, domain.FieldPlace, domain.FieldFrom, domain.FieldTo},
		errs.Fields())
	assert.Equal(t, []string{domain.FieldFrom.Label() + " is required"}, errs[domain.FieldFrom])
}

func TestEvaluateTransfersComplete(t *testing.T) {
	d := domain.Draft{
		"type":        "TRANSFERS",
		"name":        "Airport Transfer",
		"description": "Private car",
		"place":       "Dubai",
		"from":        "DXB",
		"to":          "Marina",
	}
	assert.True(t, Evaluate(d, domain.TypeTransfers).Empty())
}

func TestEvaluateTransfersMissingDropOff(t *testing.T) {
	d := domain.Draft{
		"type":        "TRANSFERS",
		"name":        "Airport Transfer",
		"description": "Private car",
		"place":       "Dubai",
		"from":        "DXB",
	}
	want := ValidationErrors{domain.FieldTo: {domain.FieldTo.Label() + " is required"}}
	assert.Equal(t, want, Evaluate(d, domain.TypeTransfers))
	assert.Equal(t, want, EvaluateStep(d, domain.TypeTransfers, domain.StepLocationTiming))
}

func TestEvaluateZeroPriceCountsAsPresent(t *testing.T) {
	d := domain.Draft{
		"type":        "ACTIVITIES",
		"name":        "Free Walking Tour",
		"description": "Tip based",
		"place":       "Prague",
		"startTime":   "10:00",
		"adultPrice":  0.0,
	}
	errs := EvaluateStep(d, domain.TypeActivities, domain.StepPricingPolicies)
	assert.True(t, errs.Empty(), "%v", errs)
}

func TestEvaluateWhitespaceIsMissing(t *testing.T) {
	d := domain.Draft{"type": "TRANSFERS", "name": "   ", "description": "x"}
	errs := EvaluateStep(d, domain.TypeTransfers, domain.StepBasicInfo)
	assert.Contains(t, errs, domain.FieldPackageName)
	assert.NotContains(t, errs, domain.FieldDescription)
}

func TestEvaluateIgnoresHiddenFields(t *testing.T) {
	d := domain.Draft{
		"type":        "TRANSFERS",
		"name":        "Airport Transfer",
		"description": "Private car",
		"place":       "Dubai",
		"from":        "DXB",
		"to":          "Marina",
		// hidden for transfers and malformed; must not be reported
		"departureDate": "not a date",
		"duration":      map[string]any{"days": -3.0},
	}
	assert.True(t, Evaluate(d, domain.TypeTransfers).Empty())
}

func TestEvaluatePackageTypeStep(t *testing.T) {
	errs := EvaluateStep(domain.Draft{}, "", domain.StepPackageType)
	assert.Contains(t, errs, domain.FieldType)

	errs = EvaluateStep(domain.Draft{"type": "CRUISES"}, "CRUISES", domain.StepPackageType)
	require.Contains(t, errs, domain.FieldType)
	assert.Equal(t, `Unknown package type "CRUISES"`, errs[domain.FieldType][0])

	errs = EvaluateStep(domain.Draft{"type": "day_tours"}, domain.TypeDayTours, domain.StepPackageType)
	assert.True(t, errs.Empty())
}

func TestEvaluateShapeRules(t *testing.T) {
	base := domain.Draft{
		"type":             "FIXED_DEPARTURE_WITH_FLIGHT",
		"title":            "Japan in Spring",
		"description":      "Tokyo, Kyoto, Osaka",
		"destinations":     []any{"Tokyo", "Kyoto"},
		"duration":         map[string]any{"days": 10.0, "nights": 9.0},
		"groupSize":        map[string]any{"min": 4.0, "max": 20.0},
		"departureDate":    "2026-04-01",
		"returnDate":       "2026-04-10",
		"departureAirport": "LHR",
		"arrivalAirport":   "HND",
		"itinerary":        []any{map[string]any{"day": 1.0, "title": "Arrival"}},
		"hotelCategory":    "4",
		"adultPrice":       3200.0,
	}
	require.True(t, Evaluate(base, domain.TypeFixedDepartureWithFlight).Empty())

	cases := []struct {
		name  string
		patch domain.Draft
		field domain.FieldName
	}{
		{"fractional days", domain.Draft{"duration": map[string]any{"days": 2.5}}, domain.FieldDuration},
		{"negative nights", domain.Draft{"duration": map[string]any{"days": 2.0, "nights": -1.0}}, domain.FieldDuration},
		{"min above max", domain.Draft{"groupSize": map[string]any{"min": 30.0, "max": 10.0}}, domain.FieldGroupSize},
		{"bad departure", domain.Draft{"departureDate": "April 1st"}, domain.FieldDepartureDate},
		{"return before departure", domain.Draft{"returnDate": "2026-03-30"}, domain.FieldReturnDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := Evaluate(base.Merge(tc.patch), domain.TypeFixedDepartureWithFlight)
			assert.Equal(t, []domain.FieldName{tc.field}, errs.Fields())
		})
	}
}
