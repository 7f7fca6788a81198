package math

import (
	stdmath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEpsilon = 1e-5

func TestQuaternionAxisAngleToMat4(t *testing.T) {
	// A quarter turn about Y.
	q := NewQuatFromAxisAngle(NewVec3Up(), float32(stdmath.Pi/2))
	m := q.ToMat4()

	assert.InDelta(t, 0.0, m.Data[0], testEpsilon)
	assert.InDelta(t, 1.0, m.Data[2], testEpsilon)
	assert.InDelta(t, -1.0, m.Data[8], testEpsilon)
	assert.InDelta(t, 0.0, m.Data[10], testEpsilon)
	// Y axis is untouched.
	assert.InDelta(t, 1.0, m.Data[5], testEpsilon)
}

func TestQuaternionNormalized(t *testing.T) {
	q := Quaternion{2, 0, 0, 2}.Normalized()
	l := ksqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	assert.InDelta(t, 1.0, l, testEpsilon)

	// A zero quaternion has no direction to keep; it comes back unchanged.
	zero := Quaternion{}.Normalized()
	assert.Equal(t, Quaternion{}, zero)
}

func TestMat4EulerYMatchesTrig(t *testing.T) {
	angle := float32(0.7)
	m := NewMat4EulerY(angle)
	assert.InDelta(t, float64(kcos(angle)), float64(m.Data[0]), testEpsilon)
	assert.InDelta(t, float64(-ksin(angle)), float64(m.Data[2]), testEpsilon)
	assert.InDelta(t, float64(ksin(angle)), float64(m.Data[8]), testEpsilon)
	assert.InDelta(t, float64(kcos(angle)), float64(m.Data[10]), testEpsilon)
}

func TestTransformLocalCachesUntilDirty(t *testing.T) {
	tr := TransformFromPosition(NewVec3(3, 4, 5))
	require.True(t, tr.IsDirty)

	local := tr.GetLocal()
	assert.False(t, tr.IsDirty)
	assert.InDelta(t, 3.0, local.Data[12], testEpsilon)
	assert.InDelta(t, 4.0, local.Data[13], testEpsilon)
	assert.InDelta(t, 5.0, local.Data[14], testEpsilon)

	// Mutation dirties the cache; the next GetLocal rebuilds it.
	tr.SetPosition(NewVec3(-1, 0, 0))
	require.True(t, tr.IsDirty)
	local = tr.GetLocal()
	assert.InDelta(t, -1.0, local.Data[12], testEpsilon)
}

func TestTransformWorldFollowsParent(t *testing.T) {
	hub := TransformCreate()
	hub.SetRotation(NewQuatFromAxisAngle(NewVec3Up(), float32(stdmath.Pi/2)))

	orbiter := TransformFromPosition(NewVec3(10, 0, 0))
	orbiter.Parent = hub

	// A quarter turn of the hub carries the orbiter from +X onto +Z.
	world := orbiter.GetWorld()
	got := NewVec3(world.Data[12], world.Data[13], world.Data[14])
	assert.True(t, got.Compare(NewVec3(0, 0, 10), testEpsilon), "got %+v", got)

	// An orphan transform's world matrix is its local matrix.
	free := TransformFromPosition(NewVec3(1, 2, 3))
	w := free.GetWorld()
	l := free.GetLocal()
	assert.Equal(t, l, w)
}

func TestTransformScaleLeavesTranslationAlone(t *testing.T) {
	tr := TransformFromPositionRotationScale(NewVec3(7, 0, -7), NewQuatIdentity(), NewVec3(3, 3, 3))
	local := tr.GetLocal()

	assert.InDelta(t, 3.0, local.Data[0], testEpsilon)
	assert.InDelta(t, 3.0, local.Data[5], testEpsilon)
	assert.InDelta(t, 3.0, local.Data[10], testEpsilon)
	assert.InDelta(t, 7.0, local.Data[12], testEpsilon)
	assert.InDelta(t, 0.0, local.Data[13], testEpsilon)
	assert.InDelta(t, -7.0, local.Data[14], testEpsilon)
}
