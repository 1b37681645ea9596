package migrate

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/planbridge/planbridge/pkg/sheetapi"
)

// Field conversions are total: malformed or absent input maps to the empty
// value, never to an error. A skipped cell is recoverable, a crashed
// migration is not.

// hoursPerDay is the working-day length used for every day/hour conversion.
const hoursPerDay = 8

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FormatDate renders a source timestamp as a date-only string. The source
// reports unset dates as year-0001 timestamps; those, like unparseable
// input, come back empty.
func FormatDate(iso string) string {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, iso)
		if err != nil {
			continue
		}
		if t.Year() <= 1 {
			return ""
		}
		return t.Format("2006-01-02")
	}
	return ""
}

var (
	isoDurationRe   = regexp.MustCompile(`^(-)?P(?:(\d+(?:\.\d+)?)D)?(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)
	shortDurationRe = regexp.MustCompile(`^(-)?(\d+(?:\.\d+)?)\s*([dhm])$`)
)

// DurationHours parses an ISO-8601 duration or a "4d"/"32h"/"30m" shorthand
// into hours. Day components count as working days, not calendar days.
func DurationHours(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if m := isoDurationRe.FindStringSubmatch(strings.ToUpper(s)); m != nil {
		if m[2] == "" && m[3] == "" && m[4] == "" && m[5] == "" {
			return 0, false
		}
		hours := component(m[2])*hoursPerDay + component(m[3]) + component(m[4])/60 + component(m[5])/3600
		if m[1] == "-" {
			hours = -hours
		}
		return hours, true
	}

	if m := shortDurationRe.FindStringSubmatch(strings.ToLower(s)); m != nil {
		v := component(m[2])
		switch m[3] {
		case "d":
			v *= hoursPerDay
		case "m":
			v /= 60
		}
		if m[1] == "-" {
			v = -v
		}
		return v, true
	}

	return 0, false
}

func component(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// FormatDurationDays renders hours as a "Nd" working-day string, rounded to
// two decimals.
func FormatDurationDays(hours float64) string {
	days := math.Round(hours/hoursPerDay*100) / 100
	return strconv.FormatFloat(days, 'f', -1, 64) + "d"
}

// PriorityLabel maps the source's 0..1000 priority scale onto the target's
// label picklist. Total over all ints and monotone in the scale.
func PriorityLabel(priority int) string {
	switch {
	case priority >= 1000:
		return "Highest"
	case priority >= 800:
		return "Very High"
	case priority >= 600:
		return "Higher"
	case priority >= 500:
		return "Medium"
	case priority >= 400:
		return "Lower"
	case priority >= 200:
		return "Very Low"
	default:
		return "Lowest"
	}
}

// PriorityLabels is the target picklist in rank order, lowest first.
func PriorityLabels() []string {
	return []string{"Lowest", "Very Low", "Lower", "Medium", "Higher", "Very High", "Highest"}
}

func StatusLabel(percentComplete int) string {
	switch percentComplete {
	case 0:
		return "Not Started"
	case 100:
		return "Complete"
	default:
		return "In Progress"
	}
}

func StatusLabels() []string {
	return []string{"Not Started", "In Progress", "Complete"}
}

var constraintLabels = []string{"ASAP", "ALAP", "MSO", "MFO", "SNET", "SNLT", "FNET", "FNLT"}

// ConstraintLabel maps the source constraint enum to its abbreviation.
// Values outside the table fall back to ALAP, the source's do-nothing
// scheduling mode.
func ConstraintLabel(constraintType int) string {
	if constraintType < 0 || constraintType >= len(constraintLabels) {
		return "ALAP"
	}
	return constraintLabels[constraintType]
}

func ConstraintLabels() []string {
	out := make([]string, len(constraintLabels))
	copy(out, constraintLabels)
	return out
}

var dependencyLabels = []string{"FF", "FS", "SF", "SS"}

// DependencyLabel maps the source dependency-type enum to the target's
// two-letter link code. Unknown values fall back to FS, the overwhelmingly
// common link type.
func DependencyLabel(dependencyType int) string {
	if dependencyType < 0 || dependencyType >= len(dependencyLabels) {
		return "FS"
	}
	return dependencyLabels[dependencyType]
}

// CapacityPercent renders a unit capacity (1.0 = full time) as a whole
// percent string.
func CapacityPercent(units decimal.Decimal) string {
	return units.Mul(decimal.NewFromInt(100)).Round(0).String() + "%"
}

// RatePerHour renders an hourly rate as a currency string.
func RatePerHour(rate decimal.Decimal) string {
	return moneyDisplay(rate) + "/hr"
}

// CostAmount renders a flat amount as a currency string.
func CostAmount(amount decimal.Decimal) string {
	return moneyDisplay(amount)
}

func moneyDisplay(d decimal.Decimal) string {
	cents := d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return money.New(cents, money.USD).Display()
}

// ContactFrom builds a contact cell value; absent when both parts are empty.
func ContactFrom(name, email string) (sheetapi.Contact, bool) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" && email == "" {
		return sheetapi.Contact{}, false
	}
	return sheetapi.Contact{Name: name, Email: email}, true
}

// LagSuffix renders a dependency lag as the "+2d"/"-4h" suffix of a
// predecessor reference. Whole multiples of a working day collapse to day
// units; zero or unparseable lag renders as no suffix.
func LagSuffix(isoLag string) string {
	hours, ok := DurationHours(isoLag)
	if !ok || hours == 0 {
		return ""
	}

	sign := "+"
	if hours < 0 {
		sign = "-"
		hours = -hours
	}

	switch {
	case math.Mod(hours, hoursPerDay) == 0:
		return fmt.Sprintf("%s%dd", sign, int(hours/hoursPerDay))
	case hours == math.Trunc(hours):
		return fmt.Sprintf("%s%dh", sign, int(hours))
	default:
		return fmt.Sprintf("%s%dm", sign, int(math.Round(hours*60)))
	}
}
