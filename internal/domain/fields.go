package domain

// FieldName names one entry of a package draft. The JSON keys sent by the
// dashboard are the field names verbatim.
type FieldName string

const (
	FieldType        FieldName = "type"
	FieldTitle       FieldName = "title"
	FieldPackageName FieldName = "name"
	FieldDescription FieldName = "description"
	FieldImages      FieldName = "images"

	FieldDestinations FieldName = "destinations"
	FieldDuration     FieldName = "duration"
	FieldGroupSize    FieldName = "groupSize"
	FieldDifficulty   FieldName = "difficulty"

	FieldPlace            FieldName = "place"
	FieldFrom             FieldName = "from"
	FieldTo               FieldName = "to"
	FieldMeetingPoint     FieldName = "meetingPoint"
	FieldPickupTime       FieldName = "pickupTime"
	FieldStartTime        FieldName = "startTime"
	FieldEndTime          FieldName = "endTime"
	FieldDepartureDate    FieldName = "departureDate"
	FieldReturnDate       FieldName = "returnDate"
	FieldDepartureAirport FieldName = "departureAirport"
	FieldArrivalAirport   FieldName = "arrivalAirport"

	FieldItinerary        FieldName = "itinerary"
	FieldActivities       FieldName = "activities"
	FieldVehicleType      FieldName = "vehicleType"
	FieldMaxPassengers    FieldName = "maxPassengers"
	FieldLuggageAllowance FieldName = "luggageAllowance"
	FieldHotelCategory    FieldName = "hotelCategory"
	FieldRoomType         FieldName = "roomType"
	FieldMealPlan         FieldName = "mealPlan"
	FieldFlightClass      FieldName = "flightClass"
	FieldGuideLanguage    FieldName = "guideLanguage"

	FieldInclusions        FieldName = "inclusions"
	FieldExclusions        FieldName = "exclusions"
	FieldTourInclusions    FieldName = "tourInclusions"
	FieldTourExclusions    FieldName = "tourExclusions"
	FieldVisaDocumentation FieldName = "visaDocumentation"

	FieldAdultPrice         FieldName = "adultPrice"
	FieldChildPrice         FieldName = "childPrice"
	FieldInfantPrice        FieldName = "infantPrice"
	FieldSingleSupplement   FieldName = "singleSupplement"
	FieldCurrency           FieldName = "currency"
	FieldCancellationPolicy FieldName = "cancellationPolicy"
	FieldChildPolicy        FieldName = "childPolicy"
	FieldPaymentTerms       FieldName = "paymentTerms"
)

type fieldInfo struct {
	name  FieldName
	label string
	step  Step
}

// fieldCatalog lists every known field in form order.
var fieldCatalog = []fieldInfo{
	{FieldType, "Package type", StepPackageType},

	{FieldTitle, "Title", StepBasicInfo},
	{FieldPackageName, "Name", StepBasicInfo},
	{FieldDescription, "Description", StepBasicInfo},
	{FieldDestinations, "Destinations", StepBasicInfo},
	{FieldDuration, "Duration", StepBasicInfo},
	{FieldGroupSize, "Group size", StepBasicInfo},
	{FieldDifficulty, "Difficulty", StepBasicInfo},
	{FieldImages, "Images", StepBasicInfo},

	{FieldPlace, "Place", StepLocationTiming},
	{FieldFrom, "Pickup location", StepLocationTiming},
	{FieldTo, "Drop-off location", StepLocationTiming},
	{FieldMeetingPoint, "Meeting point", StepLocationTiming},
	{FieldPickupTime, "Pickup time", StepLocationTiming},
	{FieldStartTime, "Start time", StepLocationTiming},
	{FieldEndTime, "End time", StepLocationTiming},
	{FieldDepartureDate, "Departure date", StepLocationTiming},
	{FieldReturnDate, "Return date", StepLocationTiming},
	{FieldDepartureAirport, "Departure airport", StepLocationTiming},
	{FieldArrivalAirport, "Arrival airport", StepLocationTiming},

	{FieldItinerary, "Itinerary", StepDetailedPlanning},
	{FieldActivities, "Activities", StepDetailedPlanning},
	{FieldVehicleType, "Vehicle type", StepDetailedPlanning},
	{FieldMaxPassengers, "Maximum passengers", StepDetailedPlanning},
	{FieldLuggageAllowance, "Luggage allowance", StepDetailedPlanning},
	{FieldHotelCategory, "Hotel category", StepDetailedPlanning},
	{FieldRoomType, "Room type", StepDetailedPlanning},
	{FieldMealPlan, "Meal plan", StepDetailedPlanning},
	{FieldFlightClass, "Flight class", StepDetailedPlanning},
	{FieldGuideLanguage, "Guide language", StepDetailedPlanning},

	{FieldInclusions, "Inclusions", StepInclusionsExclusions},
	{FieldExclusions, "Exclusions", StepInclusionsExclusions},
	{FieldTourInclusions, "Tour inclusions", StepInclusionsExclusions},
	{FieldTourExclusions, "Tour exclusions", StepInclusionsExclusions},
	{FieldVisaDocumentation, "Visa documentation", StepInclusionsExclusions},

	{FieldAdultPrice, "Adult price", StepPricingPolicies},
	{FieldChildPrice, "Child price", StepPricingPolicies},
	{FieldInfantPrice, "Infant price", StepPricingPolicies},
	{FieldSingleSupplement, "Single supplement", StepPricingPolicies},
	{FieldCurrency, "Currency", StepPricingPolicies},
	{FieldCancellationPolicy, "Cancellation policy", StepPricingPolicies},
	{FieldChildPolicy, "Child policy", StepPricingPolicies},
	{FieldPaymentTerms, "Payment terms", StepPricingPolicies},
}

var fieldIndex = func() map[FieldName]int {
	m := make(map[FieldName]int, len(fieldCatalog))
	for i, f := range fieldCatalog {
		m[f.name] = i
	}
	return m
}()

// AllFields returns every known field name in form order.
func AllFields() []FieldName {
	out := make([]FieldName, len(fieldCatalog))
	for i, f := range fieldCatalog {
		out[i] = f.name
	}
	return out
}

func (f FieldName) Known() bool {
	_, ok := fieldIndex[f]
	return ok
}

// Label is the human name used in validation messages.
func (f FieldName) Label() string {
	if i, ok := fieldIndex[f]; ok {
		return fieldCatalog[i].label
	}
	return string(f)
}

// Step returns the wizard step that renders f. Unknown fields belong to no
// step and return "".
func (f FieldName) Step() Step {
	if i, ok := fieldIndex[f]; ok {
		return fieldCatalog[i].step
	}
	return ""
}

// FieldsForStep returns the fields rendered on s, in form order.
func FieldsForStep(s Step) []FieldName {
	var out []FieldName
	for _, f := range fieldCatalog {
		if f.step == s {
			out = append(out, f.name)
		}
	}
	return out
}
