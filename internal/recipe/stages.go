package recipe

import "threephase/internal/rad"

// StageInputs are the file references and settings of the matrix stages.
// File names are relative to the recipe directory unless they live outside it.
type StageInputs struct {
	PointsFile       string
	SceneFiles       []string
	ApertureReceiver string
	InvertedAperture string
	InvertedSender   string
	SkyHemisphere    string
	Transmission     string
	SkyVector        string
	ViewMatrix       string
	DaylightMatrix   string
	Result           string
	SamplingRays     int
	ViewParams       rad.Parameters
	DaylightParams   rad.Parameters
	// SkipDaylight leaves out the daylight stage when its matrix is reused.
	SkipDaylight bool
}

// BuildStages returns the view-matrix, daylight-matrix and combination stages
// in execution order.
func BuildStages(in StageInputs) []rad.Command {
	scene := append([]string(nil), in.SceneFiles...)

	view := rad.Rfluxmtx{
		Sender:       rad.StdinSender,
		Receiver:     in.ApertureReceiver,
		SceneFiles:   scene,
		PointsFile:   in.PointsFile,
		Params:       in.ViewParams,
		OutputMatrix: in.ViewMatrix,
	}
	stages := []rad.Command{view}

	if !in.SkipDaylight {
		stages = append(stages, rad.Rfluxmtx{
			Sender:       in.InvertedSender,
			Receiver:     in.SkyHemisphere,
			SceneFiles:   append([]string(nil), scene...),
			SamplingRays: in.SamplingRays,
			Params:       in.DaylightParams,
			OutputMatrix: in.DaylightMatrix,
			Requires:     []string{in.InvertedAperture},
		})
	}

	stages = append(stages, rad.Dctimestep{
		ViewMatrix:     in.ViewMatrix,
		Transmission:   in.Transmission,
		DaylightMatrix: in.DaylightMatrix,
		SkyVector:      in.SkyVector,
		OutputFile:     in.Result,
	})
	return stages
}
