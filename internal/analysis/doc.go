// Package analysis inspects mechanisms and the runs they produce.
//
//   - [Analyze]: topology report built on a gonum graph of bodies and joints
//   - [Project]: planar projection of a frame trajectory
//   - [ProjectionToASCII]: terminal rendering of a projection
//
// # Topology
//
// Bodies are nodes and joints are edges. A free body whose connected component
// holds no fixed or driven body is floating: nothing anchors it, so its pose is
// determined only up to a rigid motion and the solver will drift along it.
//
//	report := analysis.Analyze(sys)
//	if len(report.Floating) > 0 {
//	    // warn before running
//	}
package analysis
