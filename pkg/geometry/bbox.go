// Package geometry provides the axis-aligned integer bounding box type
// used to track, intersect, and index the spatial footprint of tasks.
package geometry

import "fmt"

// BoundingBox is an inclusive axis-aligned integer box.
type BoundingBox struct {
	MinX, MinY, MinZ int
	MaxX, MaxY, MaxZ int
}

// New builds a BoundingBox from two arbitrary corners, normalizing so
// Min* <= Max* on every axis.
func New(x1, y1, z1, x2, y2, z2 int) BoundingBox {
	return BoundingBox{
		MinX: min(x1, x2), MaxX: max(x1, x2),
		MinY: min(y1, y2), MaxY: max(y1, y2),
		MinZ: min(z1, z2), MaxZ: max(z1, z2),
	}
}

// Point is a BoundingBox occupying a single cell.
func Point(x, y, z int) BoundingBox {
	return BoundingBox{MinX: x, MaxX: x, MinY: y, MaxY: y, MinZ: z, MaxZ: z}
}

// Intersects reports whether b and other overlap on all three axes.
func (b BoundingBox) Intersects(other BoundingBox) bool {
	return b.MinX <= other.MaxX && other.MinX <= b.MaxX &&
		b.MinY <= other.MaxY && other.MinY <= b.MaxY &&
		b.MinZ <= other.MaxZ && other.MinZ <= b.MaxZ
}

// Expand grows the box to also contain other, returning the union.
func (b BoundingBox) Expand(other BoundingBox) BoundingBox {
	return BoundingBox{
		MinX: min(b.MinX, other.MinX), MaxX: max(b.MaxX, other.MaxX),
		MinY: min(b.MinY, other.MinY), MaxY: max(b.MaxY, other.MaxY),
		MinZ: min(b.MinZ, other.MinZ), MaxZ: max(b.MaxZ, other.MaxZ),
	}
}

// XSpan, YSpan, ZSpan return the inclusive length of the box on each axis.
func (b BoundingBox) XSpan() int { return b.MaxX - b.MinX + 1 }
func (b BoundingBox) YSpan() int { return b.MaxY - b.MinY + 1 }
func (b BoundingBox) ZSpan() int { return b.MaxZ - b.MinZ + 1 }

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d,%d)-(%d,%d,%d)", b.MinX, b.MinY, b.MinZ, b.MaxX, b.MaxY, b.MaxZ)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
