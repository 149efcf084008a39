package datalog

// Column names a well known datalog channel. Names are matched against the
// exported headers by Table.Resolve.
type Column string

const (
	ColOffset         Column = "Offset"
	ColVehicleSpeed   Column = "Vehicle Speed"
	ColEngineRPM      Column = "Engine RPM"
	ColAccelerator    Column = "Accelerator Position"
	ColThrottle       Column = "Throttle Position"
	ColTimingAdvance  Column = "Timing Advance"
	ColMAP            Column = "Intake Manifold Absolute Pressure"
	ColKnockRetard    Column = "Total Knock Retard"
	ColKnockSensor1   Column = "Knock Sensor 1"
	ColKnockSensor2   Column = "Knock Sensor 2"
	ColLTFTBank1      Column = "Long Term Fuel Trim Bank 1"
	ColLTFTBank2      Column = "Long Term Fuel Trim Bank 2"
	ColSTFTBank1      Column = "Short Term Fuel Trim Bank 1"
	ColSTFTBank2      Column = "Short Term Fuel Trim Bank 2"
	ColOilPressure    Column = "Engine Oil Pressure"
	ColCoolantTemp    Column = "Engine Coolant Temp"
	ColBarometric     Column = "Barometric Pressure"
	ColBaro           Column = "Baro Pressure"
	ColAmbientPress   Column = "Ambient Pressure"
	MisfireColumnBase        = "Misfire Current Cylinder #"
)

// BaroCandidates are tried in this order for the barometric reference.
var BaroCandidates = []Column{ColBarometric, ColBaro, ColAmbientPress}
