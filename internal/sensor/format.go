package sensor

import (
	"strconv"

	"greenhouse-service/internal/types"
)

// AppendSample appends the text record for s to dst: the temperature in
// decimal, " \t ", the light status as 0 or 1, and a newline.
func AppendSample(dst []byte, s types.Sample) []byte {
	dst = strconv.AppendUint(dst, uint64(s.Temperature), 10)
	dst = append(dst, " \t "...)
	if s.Light {
		dst = append(dst, '1')
	} else {
		dst = append(dst, '0')
	}
	return append(dst, '\n')
}

func FormatSample(s types.Sample) string {
	return string(AppendSample(make([]byte, 0, 16), s))
}
