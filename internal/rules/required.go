package rules

import "travel_wizard/internal/domain"

// requiredFields must stay a subset of visibleFields for the same type.
func requiredFields(t domain.PackageType) fieldSet {
	switch t {
	case domain.TypeActivities:
		return fieldSet{
			domain.FieldType,
			domain.FieldPackageName,
			domain.FieldDescription,
			domain.FieldPlace,
			domain.FieldStartTime,
			domain.FieldAdultPrice,
		}
	case domain.TypeTransfers:
		return fieldSet{
			domain.FieldType,
			domain.FieldPackageName,
			domain.FieldDescription,
			domain.FieldPlace,
			domain.FieldFrom,
			domain.FieldTo,
		}
	case domain.TypeDayTours:
		return fieldSet{
			domain.FieldType,
			domain.FieldTitle,
			domain.FieldDescription,
			domain.FieldPlace,
			domain.FieldStartTime,
			domain.FieldItinerary,
			domain.FieldAdultPrice,
		}
	case domain.TypeMultiCityPackages:
		return fieldSet{
			domain.FieldType,
			domain.FieldTitle,
			domain.FieldDescription,
			domain.FieldDestinations,
			domain.FieldDuration,
			domain.FieldItinerary,
			domain.FieldAdultPrice,
		}
	case domain.TypeMultiCityPackagesWithHotel:
		return fieldSet{
			domain.FieldType,
			domain.FieldTitle,
			domain.FieldDescription,
			domain.FieldDestinations,
			domain.FieldDuration,
			domain.FieldItinerary,
			domain.FieldHotelCategory,
			domain.FieldRoomType,
			domain.FieldAdultPrice,
		}
	case domain.TypeFixedDepartureWithFlight:
		return fieldSet{
			domain.FieldType,
			domain.FieldTitle,
			domain.FieldDescription,
			domain.FieldDestinations,
			domain.FieldDuration,
			domain.FieldDepartureDate,
			domain.FieldReturnDate,
			domain.FieldDepartureAirport,
			domain.FieldArrivalAirport,
			domain.FieldItinerary,
			domain.FieldHotelCategory,
			domain.FieldAdultPrice,
		}
	}
	return nil
}

// RequiredFor lists the required fields of t in form order. Hidden fields are
// never required.
func RequiredFor(t domain.PackageType) []domain.FieldName {
	vis := VisibilityFor(t)
	req := map[domain.FieldName]bool{}
	for _, f := range requiredFields(t) {
		req[f] = true
	}
	var out []domain.FieldName
	for _, f := range domain.AllFields() {
		if req[f] && vis[f] {
			out = append(out, f)
		}
	}
	return out
}

func IsRequired(t domain.PackageType, f domain.FieldName) bool {
	for _, r := range RequiredFor(t) {
		if r == f {
			return true
		}
	}
	return false
}
