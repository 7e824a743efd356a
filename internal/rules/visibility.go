// Package rules holds the per package type field tables and the validation
// evaluator the wizard runs before every forward move.
package rules

import "travel_wizard/internal/domain"

type fieldSet []domain.FieldName

// fields shown to every package type
var common = fieldSet{
	domain.FieldType,
	domain.FieldDescription,
	domain.FieldImages,
	domain.FieldInclusions,
	domain.FieldExclusions,
	domain.FieldAdultPrice,
	domain.FieldChildPrice,
	domain.FieldCurrency,
	domain.FieldCancellationPolicy,
	domain.FieldPaymentTerms,
}

var multiCity = fieldSet{
	domain.FieldTitle,
	domain.FieldDestinations,
	domain.FieldDuration,
	domain.FieldGroupSize,
	domain.FieldDifficulty,
	domain.FieldDepartureDate,
	domain.FieldReturnDate,
	domain.FieldItinerary,
	domain.FieldActivities,
	domain.FieldVehicleType,
	domain.FieldGuideLanguage,
	domain.FieldTourInclusions,
	domain.FieldTourExclusions,
	domain.FieldVisaDocumentation,
	domain.FieldInfantPrice,
	domain.FieldChildPolicy,
}

var hotelStay = fieldSet{
	domain.FieldHotelCategory,
	domain.FieldRoomType,
	domain.FieldMealPlan,
	domain.FieldSingleSupplement,
}

// visibleFields is the matrix source. The switch has one case per
// domain.PackageType; TestVisibilityCoversEveryType fails when a variant is
// added without a case.
func visibleFields(t domain.PackageType) (fieldSet, bool) {
	switch t {
	case domain.TypeActivities:
		return join(common, fieldSet{
			domain.FieldPackageName,
			domain.FieldPlace,
			domain.FieldMeetingPoint,
			domain.FieldStartTime,
			domain.FieldEndTime,
			domain.FieldDuration,
			domain.FieldGroupSize,
			domain.FieldDifficulty,
			domain.FieldActivities,
			domain.FieldGuideLanguage,
			domain.FieldInfantPrice,
			domain.FieldChildPolicy,
		}), true
	case domain.TypeTransfers:
		return join(common, fieldSet{
			domain.FieldPackageName,
			domain.FieldPlace,
			domain.FieldFrom,
			domain.FieldTo,
			domain.FieldPickupTime,
			domain.FieldVehicleType,
			domain.FieldMaxPassengers,
			domain.FieldLuggageAllowance,
		}), true
	case domain.TypeDayTours:
		return join(common, fieldSet{
			domain.FieldTitle,
			domain.FieldDestinations,
			domain.FieldPlace,
			domain.FieldMeetingPoint,
			domain.FieldStartTime,
			domain.FieldEndTime,
			domain.FieldDuration,
			domain.FieldGroupSize,
			domain.FieldDifficulty,
			domain.FieldItinerary,
			domain.FieldActivities,
			domain.FieldVehicleType,
			domain.FieldGuideLanguage,
			domain.FieldTourInclusions,
			domain.FieldTourExclusions,
			domain.FieldInfantPrice,
			domain.FieldChildPolicy,
		}), true
	case domain.TypeMultiCityPackages:
		return join(common, multiCity), true
	case domain.TypeMultiCityPackagesWithHotel:
		return join(common, multiCity, hotelStay), true
	case domain.TypeFixedDepartureWithFlight:
		return join(common, multiCity, hotelStay, fieldSet{
			domain.FieldDepartureAirport,
			domain.FieldArrivalAirport,
			domain.FieldFlightClass,
			domain.FieldLuggageAllowance,
		}), true
	}
	return nil, false
}

// VisibilityFor maps every known field to whether it applies to t. An
// unrecognized type yields an empty map, so callers see every field hidden.
func VisibilityFor(t domain.PackageType) map[domain.FieldName]bool {
	visible, ok := visibleFields(t)
	if !ok {
		return map[domain.FieldName]bool{}
	}
	out := make(map[domain.FieldName]bool, len(domain.AllFields()))
	for _, f := range domain.AllFields() {
		out[f] = false
	}
	for _, f := range visible {
		out[f] = true
	}
	return out
}

// IsVisible treats fields absent from the matrix as hidden.
func IsVisible(t domain.PackageType, f domain.FieldName) bool {
	return VisibilityFor(t)[f]
}

// VisibleFieldsForStep returns the fields of step s that apply to t, in form
// order.
func VisibleFieldsForStep(t domain.PackageType, s domain.Step) []domain.FieldName {
	vis := VisibilityFor(t)
	var out []domain.FieldName
	for _, f := range domain.FieldsForStep(s) {
		if vis[f] {
			out = append(out, f)
		}
	}
	return out
}

func join(sets ...fieldSet) fieldSet {
	seen := map[domain.FieldName]bool{}
	var out fieldSet
	for _, s := range sets {
		for _, f := range s {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}
