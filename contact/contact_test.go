package contact

import (
	"testing"

	"weekend/ray"
	"weekend/vmath/vec3"

	"github.com/google/go-cmp/cmp"
)

func TestSetFaceNormal(t *testing.T) {
	outward := vec3.T{0, 0, 1}

	testCases := []struct {
		name      string
		slope     vec3.T
		wantFront bool
		wantN     vec3.T
	}{
		{name: "arriving from outside", slope: vec3.T{0, 0, -1}, wantFront: true, wantN: vec3.T{0, 0, 1}},
		{name: "arriving from inside", slope: vec3.T{0, 0, 1}, wantFront: false, wantN: vec3.T{0, 0, -1}},
		{name: "oblique from outside", slope: vec3.T{3, 1, -0.1}, wantFront: true, wantN: vec3.T{0, 0, 1}},
		{name: "tangent", slope: vec3.T{1, 0, 0}, wantFront: false, wantN: vec3.T{0, 0, -1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var c Contact
			c.SetFaceNormal(ray.Ray{Slope: tc.slope}, outward)
			if c.FrontFace != tc.wantFront {
				t.Errorf("Bad FrontFace; got %v, want %v", c.FrontFace, tc.wantFront)
			}
			if diff := cmp.Diff(c.N, tc.wantN); diff != "" {
				t.Errorf("Bad normal; diff (-got +want)\n%s", diff)
			}
		})
	}
}
