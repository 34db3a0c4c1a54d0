package math

import "testing"

func TestGrowCapacity(t *testing.T) {
	tests := []struct {
		capacity, required, want int
	}{
		{1024, 10, 1024},
		{1024, 1024, 1024},
		{1024, 1025, 2048},
		{1024, 5000, 8192},
		{0, 3, 4},
	}
	for _, tt := range tests {
		if have := GrowCapacity(tt.capacity, tt.required); have != tt.want {
			t.Fatalf("GrowCapacity(%d, %d):\nhave %d\nwant %d", tt.capacity, tt.required, have, tt.want)
		}
	}
}

func TestGrowCapacityOverflow(t *testing.T) {
	if have, want := GrowCapacity[uint32](1024, 1<<31+1), uint32(1<<31+1); have != want {
		t.Fatalf("GrowCapacity[uint32]:\nhave %d\nwant %d", have, want)
	}
	if have := GrowCapacity[uint32](1024, 1<<31); have != 1<<31 {
		t.Fatalf("GrowCapacity[uint32]:\nhave %d\nwant %d", have, uint32(1<<31))
	}
	if have := GrowCapacity[int8](64, 100); have != 100 {
		t.Fatalf("GrowCapacity[int8]:\nhave %d\nwant 100", have)
	}
	if have := GrowCapacity[uint8](100, 255); have != 255 {
		t.Fatalf("GrowCapacity[uint8]:\nhave %d\nwant 255", have)
	}
}

func TestClamp(t *testing.T) {
	if have := Clamp(5, 0, 3); have != 3 {
		t.Fatalf("Clamp:\nhave %d\nwant 3", have)
	}
	if have := Clamp(float32(-1), 0, 3); have != 0 {
		t.Fatalf("Clamp:\nhave %v\nwant 0", have)
	}
}

func TestMat4MulIdentity(t *testing.T) {
	r := NewMat4EulerZ(K_HALF_PI)
	if have := r.Mul(NewMat4Identity()); !have.Compare(r, K_FLOAT_EPSILON) {
		t.Fatalf("Mat4.Mul(identity):\nhave %v\nwant %v", have, r)
	}
}

func TestEulerZRotatesRowVector(t *testing.T) {
	v := NewVec4(1, 0, 0, 1).Transform(NewMat4EulerZ(K_HALF_PI))
	want := NewVec4(0, 1, 0, 1)
	if !v.Compare(want, 1e-6) {
		t.Fatalf("Vec4.Transform:\nhave %v\nwant %v", v, want)
	}
}
