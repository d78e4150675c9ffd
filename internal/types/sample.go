package types

// SampleStatus tells whether a sample's temperature came from a complete bus
// transaction.
type SampleStatus string

const (
	SampleOK         SampleStatus = "ok"
	SampleBusError   SampleStatus = "bus-error"
	SampleBusTimeout SampleStatus = "bus-timeout"
)

// Sample is one reading of the sensor unit. It is computed per request and
// never cached.
type Sample struct {
	Temperature uint16 // raw 12-bit ADC value, 0..4095
	Light       bool
	Status      SampleStatus
}

// Valid reports whether the temperature is a real reading rather than a
// best-effort value left behind by a failed transaction.
func (s Sample) Valid() bool {
	return s.Status == SampleOK
}
