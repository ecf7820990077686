package voltage

import "strings"

// InMotion packs are chosen by model name.
var InMotion = map[string]Config{
	"V5F":  {Name: "V5F", MaxVoltage: 84.0, MinVoltage: 66.0, Cells: 20, MaxSpeed: 25},
	"V8F":  {Name: "V8F", MaxVoltage: 84.0, MinVoltage: 66.0, Cells: 20, MaxSpeed: 35},
	"V10F": {Name: "V10F", MaxVoltage: 84.0, MinVoltage: 66.0, Cells: 20, MaxSpeed: 40},
	"V11":  {Name: "V11", MaxVoltage: 84.0, MinVoltage: 66.0, Cells: 20, MaxSpeed: 55},
	"V12":  {Name: "V12", MaxVoltage: 100.8, MinVoltage: 79.2, Cells: 24, MaxSpeed: 70},
	"V13":  {Name: "V13", MaxVoltage: 126.0, MinVoltage: 99.0, Cells: 30, MaxSpeed: 90},
}

// Ninebot packs are chosen by model name; "default" covers unlabeled wheels.
var Ninebot = map[string]Config{
	"One S2":  {Name: "One S2", MaxVoltage: 58.8, MinVoltage: 42.0, Cells: 14, MaxSpeed: 24},
	"Z10":     {Name: "Z10", MaxVoltage: 58.8, MinVoltage: 42.0, Cells: 14, MaxSpeed: 45},
	"default": {Name: "One S2", MaxVoltage: 58.8, MinVoltage: 42.0, Cells: 14, MaxSpeed: 24},
}

// Kingsong packs, matched by nearest max voltage.
var Kingsong = []Config{
	{Name: "16S", MaxVoltage: 67.2, MinVoltage: 50.0, Cells: 16, MaxSpeed: 30},
	{Name: "20S", MaxVoltage: 84.0, MinVoltage: 62.5, Cells: 20, MaxSpeed: 50},
	{Name: "24S", MaxVoltage: 100.8, MinVoltage: 75.0, Cells: 24, MaxSpeed: 60},
	{Name: "30S", MaxVoltage: 126.0, MinVoltage: 93.75, Cells: 30, MaxSpeed: 70},
	{Name: "36S", MaxVoltage: 151.2, MinVoltage: 112.5, Cells: 36, MaxSpeed: 80},
}

// Gotway/Begode packs, matched by nearest max voltage.
var Gotway = []Config{
	{Name: "16S", MaxVoltage: 67.2, MinVoltage: 52.8, Cells: 16, MaxSpeed: 45},
	{Name: "20S", MaxVoltage: 84.0, MinVoltage: 66.0, Cells: 20, MaxSpeed: 50},
	{Name: "24S", MaxVoltage: 100.8, MinVoltage: 79.2, Cells: 24, MaxSpeed: 70},
	{Name: "32S", MaxVoltage: 134.4, MinVoltage: 105.6, Cells: 32, MaxSpeed: 80},
	{Name: "36S", MaxVoltage: 151.2, MinVoltage: 118.8, Cells: 36, MaxSpeed: 80},
	{Name: "40S", MaxVoltage: 168.0, MinVoltage: 132.0, Cells: 40, MaxSpeed: 100},
	{Name: "42S", MaxVoltage: 176.4, MinVoltage: 138.6, Cells: 42, MaxSpeed: 100},
}

// Veteran packs, matched by nearest max voltage or range.
var Veteran = []Config{
	{Name: "Sherman", MaxVoltage: 100.8, MinVoltage: 76.8, Cells: 24, MaxSpeed: 72}, // Sherman, Sherman Max, Sherman S, Abrams
	{Name: "Patton", MaxVoltage: 126.0, MinVoltage: 96.0, Cells: 30, MaxSpeed: 80},
	{Name: "Lynx", MaxVoltage: 151.2, MinVoltage: 115.2, Cells: 36, MaxSpeed: 80}, // Lynx, Sherman L
}

// Lookup finds a model in table, ignoring case.
func Lookup(table map[string]Config, model string) (Config, bool) {
	if c, ok := table[model]; ok {
		return c, true
	}
	for k, c := range table {
		if strings.EqualFold(k, model) {
			return c, true
		}
	}
	return Config{}, false
}
