package effector

// Request is the per-effector command record. Attitude controllers publish it
// as their raw output, and the null-space stage republishes the corrected one.
type Request struct {
	EffectorRequest Vector
}

// WheelSpeeds is the reaction-wheel speed telemetry record, rad/s per wheel.
type WheelSpeeds struct {
	WheelSpeeds Vector
}
