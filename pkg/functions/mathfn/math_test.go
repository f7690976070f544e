package mathfn

import "testing"

func TestAbs(t *testing.T) {
	if Abs(-3.5) != 3.5 {
		t.Errorf("Abs(-3.5) = %v, want 3.5", Abs(-3.5))
	}
}

func TestRoundTo(t *testing.T) {
	if got := RoundTo(3.14159, 2); got != 3.14 {
		t.Errorf("RoundTo(3.14159, 2) = %v, want 3.14", got)
	}
}

func TestSign(t *testing.T) {
	cases := map[float64]float64{-5: -1, 0: 0, 5: 1}
	for in, want := range cases {
		if got := Sign(in); got != want {
			t.Errorf("Sign(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestPow(t *testing.T) {
	if got := Pow(2, 10); got != 1024 {
		t.Errorf("Pow(2, 10) = %v, want 1024", got)
	}
}

func TestRand(t *testing.T) {
	v := Rand()
	if v < 0 || v >= 1 {
		t.Errorf("Rand() = %v, want in [0, 1)", v)
	}
}
