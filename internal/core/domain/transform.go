package domain

// Transform is a participant's pose inside the vr space: a position vector
// and an orientation quaternion (x, y, z, w).
type Transform struct {
	Position    [3]float64 `json:"position"`
	Orientation [4]float64 `json:"orientation"`
}

// Transforms maps connection ids to their most recent transform.
type Transforms map[ConnectionID]Transform
