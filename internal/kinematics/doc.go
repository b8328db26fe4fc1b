// Package kinematics provides the rigid-body constraint model.
//
// The package defines the data model solved by the kinematic loop:
//
//   - [Frame]: a fixed offset in a body's local coordinates
//   - [Body]: rigid-body pose, role and attached frames
//   - [Joint]: constraint between two frames, expressed as a residual
//   - [System]: ordered bodies and joints, pack/unpack and residual assembly
//
// # Conventions
//
// Orientations are scalar-first quaternions (mgl64.Quat.W is the real part).
// A free body contributes seven unknowns to the packed state vector, in body
// insertion order: [px, py, pz, qw, qx, qy, qz].
//
// # Example
//
//	ground := kinematics.NewBody("ground", mgl64.Vec3{}, spatial.Identity)
//	_ = ground.Fix()
//	anchor := kinematics.NewFrame("anchor", mgl64.Vec3{1, 0, 0})
//	_ = ground.AddFrame(anchor)
//
//	link := kinematics.NewBody("link", mgl64.Vec3{2, 0, 0}, spatial.Identity)
//	pin := kinematics.NewFrame("pin", mgl64.Vec3{})
//	_ = link.AddFrame(pin)
//
//	joint, _ := kinematics.NewSphericalJoint("pivot", anchor, pin)
//	sys := kinematics.NewSystem()
//	_ = sys.AddBody(ground)
//	_ = sys.AddBody(link)
//	_ = sys.AddJoint(joint)
//
// # Thread Safety
//
// System serializes Pack, Unpack, Residual, Drive and Snapshot with an
// internal mutex. The function returned by [System.Objective] reads only its
// own pose snapshot and is safe for concurrent use.
//
// The read-only query surface ([Frame.GlobalPosition], Body.Position and
// Body.Orientation) is not synchronized with Unpack or Drive. Read it between
// steps, from an observer or after Run returns, not concurrently with a run.
// Role changes and new frames are rejected with [ErrTopologyFrozen] once the
// system is frozen.
package kinematics
