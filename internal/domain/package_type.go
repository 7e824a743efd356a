package domain

import (
	"fmt"
	"strings"
)

type PackageType string

const (
	TypeActivities                 PackageType = "ACTIVITIES"
	TypeTransfers                  PackageType = "TRANSFERS"
	TypeDayTours                   PackageType = "DAY_TOURS"
	TypeMultiCityPackages          PackageType = "MULTI_CITY_PACKAGES"
	TypeMultiCityPackagesWithHotel PackageType = "MULTI_CITY_PACKAGES_WITH_HOTEL"
	TypeFixedDepartureWithFlight   PackageType = "FIXED_DEPARTURE_WITH_FLIGHT"
)

// PackageTypeCount is the number of package type variants. Tables indexed by
// PackageType.Index are sized with it so a new variant breaks them loudly.
const PackageTypeCount = 6

var packageTypes = [PackageTypeCount]PackageType{
	TypeActivities,
	TypeTransfers,
	TypeDayTours,
	TypeMultiCityPackages,
	TypeMultiCityPackagesWithHotel,
	TypeFixedDepartureWithFlight,
}

type packageTypeInfo struct {
	title       string
	description string
}

var packageTypeInfos = [PackageTypeCount]packageTypeInfo{
	{"Activities", "Single experiences such as tickets, classes or excursions"},
	{"Transfers", "Point-to-point rides between airports, hotels and venues"},
	{"Day Tours", "Guided tours that start and end on the same day"},
	{"Multi-City Packages", "Multi-day trips covering several destinations"},
	{"Multi-City Packages with Hotel", "Multi-day trips with hotel stays included"},
	{"Fixed Departure with Flight", "Scheduled group departures with flights included"},
}

// AllPackageTypes returns every package type in display order.
func AllPackageTypes() []PackageType {
	out := make([]PackageType, len(packageTypes))
	copy(out, packageTypes[:])
	return out
}

// Index returns the position of t in display order, or -1 when t is not a
// known variant.
func (t PackageType) Index() int {
	for i, v := range packageTypes {
		if v == t {
			return i
		}
	}
	return -1
}

func (t PackageType) Valid() bool { return t.Index() >= 0 }

func (t PackageType) Title() string {
	if i := t.Index(); i >= 0 {
		return packageTypeInfos[i].title
	}
	return string(t)
}

func (t PackageType) Description() string {
	if i := t.Index(); i >= 0 {
		return packageTypeInfos[i].description
	}
	return ""
}

// ParsePackageType accepts tags case-insensitively ("transfers", "Day_Tours").
func ParsePackageType(s string) (PackageType, error) {
	t := PackageType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPackageType, s)
	}
	return t, nil
}
