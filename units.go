package homie5

// Recommended property units.  Units are optional and any string is accepted.
const (
	UnitDegreeCelsius    = "°C"  // degrees C
	UnitDegreeFahrenheit = "°F"  // degrees F
	UnitDegree           = "°"   // degrees (angle)
	UnitLiter            = "L"   // liters
	UnitGallon           = "gal" // gallons
	UnitVolt             = "V"
	UnitWatt             = "W"
	UnitKilowatt         = "kW"
	UnitKilowattHour     = "kWh"
	UnitAmpere           = "A"
	UnitHertz            = "Hz"
	UnitMilliAmpere      = "mA"
	UnitPercent          = "%"
	UnitMeter            = "m"
	UnitCubicMeter       = "m³"
	UnitFeet             = "ft"
	UnitPascal           = "Pa"
	UnitKilopascal       = "kPa"
	UnitPSI              = "psi"
	UnitSeconds          = "s"
	UnitMinutes          = "min"
	UnitHours            = "h"
	UnitLux              = "lx"
	UnitKelvin           = "K"
	UnitMired            = "MK⁻¹" // color temperature
	UnitCountAmount      = "#"    // count or amount
)

var knownUnits = map[string]bool{
	UnitDegreeCelsius: true, UnitDegreeFahrenheit: true, UnitDegree: true,
	UnitLiter: true, UnitGallon: true, UnitVolt: true, UnitWatt: true,
	UnitKilowatt: true, UnitKilowattHour: true, UnitAmpere: true, UnitHertz: true,
	UnitMilliAmpere: true, UnitPercent: true, UnitMeter: true, UnitCubicMeter: true,
	UnitFeet: true, UnitPascal: true, UnitKilopascal: true, UnitPSI: true,
	UnitSeconds: true, UnitMinutes: true, UnitHours: true, UnitLux: true,
	UnitKelvin: true, UnitMired: true, UnitCountAmount: true,
}

// IsRecommendedUnit reports whether unit is one of the units the convention recommends.
func IsRecommendedUnit(unit string) bool {
	return knownUnits[unit]
}
