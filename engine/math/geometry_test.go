package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeometryBoundingSphereOfCube(t *testing.T) {
	var corners []Vertex3D
	for _, x := range []float32{-1, 1} {
		for _, y := range []float32{-1, 1} {
			for _, z := range []float32{-1, 1} {
				corners = append(corners, Vertex3D{Position: NewVec3(x, y, z)})
			}
		}
	}

	center, radius := GeometryBoundingSphere(corners)
	assert.True(t, center.Compare(NewVec3Zero(), testEpsilon), "center %+v", center)
	assert.InDelta(t, ksqrt(3), radius, testEpsilon)
}

func TestGeometryBoundingSphereOffCenter(t *testing.T) {
	vertices := []Vertex3D{
		{Position: NewVec3(10, 0, 0)},
		{Position: NewVec3(14, 0, 0)},
	}
	center, radius := GeometryBoundingSphere(vertices)
	assert.True(t, center.Compare(NewVec3(12, 0, 0), testEpsilon), "center %+v", center)
	assert.InDelta(t, 2.0, radius, testEpsilon)
}

func TestGeometryBoundingSphereEmpty(t *testing.T) {
	center, radius := GeometryBoundingSphere(nil)
	assert.Equal(t, NewVec3Zero(), center)
	assert.Zero(t, radius)
}
