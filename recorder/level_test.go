package recorder

import "testing"

func TestLevelPercent(t *testing.T) {
	full := make([]byte, 1024)
	half := make([]byte, 1024)
	for i := range full {
		full[i] = 255
		half[i] = 128
	}

	cases := []struct {
		name string
		bins []byte
		want int
	}{
		{"empty", nil, 0},
		{"silence", make([]byte, 1024), 0},
		{"full scale", full, 100},
		{"half scale", half, 50},
		{"single hot bin", append(make([]byte, 255), 255), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := levelPercent(tc.bins); got != tc.want {
				t.Errorf("levelPercent = %d, want %d", got, tc.want)
			}
		})
	}
}
