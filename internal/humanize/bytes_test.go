package humanize

import "testing"

func TestFormatBytesAutoBoundaries(t *testing.T) {
	cases := map[int64]string{
		0:          "0 B",
		1023:       "1023 B",
		1024:       "1.00 KB",
		1024 * 1024: "1.00 MB",
	}
	for input, want := range cases {
		if got := FormatBytesAuto(input); got != want {
			t.Errorf("FormatBytesAuto(%d) = %q, want %q", input, got, want)
		}
	}
}
