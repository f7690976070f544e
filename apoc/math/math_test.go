package math

import "testing"

func TestMaxMinLong(t *testing.T) {
	if got := MaxLong(5, 2, 8, 1, 9); got != 9 {
		t.Errorf("MaxLong = %v, want 9", got)
	}
	if got := MinLong(5, 2, 8, 1, 9); got != 1 {
		t.Errorf("MinLong = %v, want 1", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(15, 0, 10); got != 10 {
		t.Errorf("Clamp(15, 0, 10) = %v, want 10", got)
	}
	if got := Clamp(-5, 0, 10); got != 0 {
		t.Errorf("Clamp(-5, 0, 10) = %v, want 0", got)
	}
	if got := Clamp(5, 0, 10); got != 5 {
		t.Errorf("Clamp(5, 0, 10) = %v, want 5", got)
	}
}

func TestGcdLcm(t *testing.T) {
	if got := Gcd(12, 18); got != 6 {
		t.Errorf("Gcd(12, 18) = %v, want 6", got)
	}
	if got := Lcm(4, 6); got != 12 {
		t.Errorf("Lcm(4, 6) = %v, want 12", got)
	}
}

func TestFactorial(t *testing.T) {
	if got := Factorial(5); got != 120 {
		t.Errorf("Factorial(5) = %v, want 120", got)
	}
}

func TestIsPrime(t *testing.T) {
	primes := map[int64]bool{2: true, 3: true, 4: false, 17: true, 18: false}
	for n, want := range primes {
		if got := IsPrime(n); got != want {
			t.Errorf("IsPrime(%d) = %v, want %v", n, got, want)
		}
	}
}

func TestMeanMedianSum(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	if got := Mean(values); got != 3 {
		t.Errorf("Mean = %v, want 3", got)
	}
	if got := Median(values); got != 3 {
		t.Errorf("Median = %v, want 3", got)
	}
	if got := Sum(values); got != 15 {
		t.Errorf("Sum = %v, want 15", got)
	}
}
