package math

// GeometryBoundingSphere returns the center and radius of the smallest
// sphere around the vertex positions that is centered on their extents.
func GeometryBoundingSphere(vertices []Vertex3D) (Vec3, float32) {
	if len(vertices) == 0 {
		return NewVec3Zero(), 0
	}
	min := vertices[0].Position
	max := vertices[0].Position
	for _, v := range vertices[1:] {
		p := v.Position
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.Z < min.Z {
			min.Z = p.Z
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
		if p.Z > max.Z {
			max.Z = p.Z
		}
	}
	center := min.Add(max).MulScalar(0.5)
	radius := float32(0)
	for _, v := range vertices {
		if d := v.Position.Sub(center).Length(); d > radius {
			radius = d
		}
	}
	return center, radius
}
