// Package recipe assembles and runs the three-phase daylight pipeline.
//
// A Recipe holds immutable inputs: an analysis grid, a sky source, the scene
// surfaces and Options. Its lifecycle is carried by a Session value that moves
// through Built, FilesWritten and Calculated:
//
//	session, err := r.WriteFiles(ctx, target, project) // FilesWritten
//	session, err = r.Run(ctx, session, RunOptions{})   // Calculated
//	matrix, err := r.Results(session)
//
// WriteFiles resolves the aperture, writes every scene artifact, generates the
// sky vector and writes a batch script whose stages run in a fixed order:
// transform, view matrix, daylight matrix, combination. Stage construction
// only renders command text; missing inputs surface when the script runs.
package recipe
