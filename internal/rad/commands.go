package rad

import (
	"strconv"
	"strings"
)

// StdinSender makes rfluxmtx read sensor rays from standard input.
const StdinSender = "-"

// Command is a rendered stage of the three-phase pipeline.
type Command interface {
	// Name is the program invoked by the stage.
	Name() string
	// Inputs lists files the stage reads.
	Inputs() []string
	// Output is the single file the stage writes.
	Output() string
	// Render returns the shell line for the stage.
	Render() string
}

// Xform inverts the surface normals of a scene file.
type Xform struct {
	Input       string
	OutputFile  string
	InvertFaces bool
}

func (x Xform) Name() string     { return "xform" }
func (x Xform) Inputs() []string { return []string{x.Input} }
func (x Xform) Output() string   { return x.OutputFile }

func (x Xform) Render() string {
	args := []string{"xform"}
	if x.InvertFaces {
		args = append(args, "-I")
	}
	args = append(args, x.Input, ">", x.OutputFile)
	return strings.Join(args, " ")
}

// Rfluxmtx computes a flux transfer matrix between a sender and a receiver.
type Rfluxmtx struct {
	Sender       string
	Receiver     string
	SceneFiles   []string
	PointsFile   string
	SamplingRays int
	Params       Parameters
	OutputMatrix string
	// Requires lists files read indirectly, such as the geometry a sender
	// includes at run time. They are declared but not rendered.
	Requires []string
}

func (r Rfluxmtx) Name() string { return "rfluxmtx" }

func (r Rfluxmtx) Inputs() []string {
	var inputs []string
	if r.Sender != StdinSender {
		inputs = append(inputs, r.Sender)
	}
	inputs = append(inputs, r.Receiver)
	inputs = append(inputs, r.SceneFiles...)
	if r.PointsFile != "" {
		inputs = append(inputs, r.PointsFile)
	}
	return append(inputs, r.Requires...)
}

func (r Rfluxmtx) Output() string { return r.OutputMatrix }

func (r Rfluxmtx) Render() string {
	args := []string{"rfluxmtx"}
	args = append(args, r.Params.Args()...)
	if r.SamplingRays > 0 {
		args = append(args, "-c", strconv.Itoa(r.SamplingRays))
	}
	args = append(args, r.Sender, r.Receiver)
	args = append(args, r.SceneFiles...)
	if r.PointsFile != "" {
		args = append(args, "<", r.PointsFile)
	}
	args = append(args, ">", r.OutputMatrix)
	return strings.Join(args, " ")
}

// Dctimestep multiplies view, transmission, daylight and sky matrices.
type Dctimestep struct {
	ViewMatrix     string
	Transmission   string
	DaylightMatrix string
	SkyVector      string
	OutputFile     string
}

func (d Dctimestep) Name() string { return "dctimestep" }

func (d Dctimestep) Inputs() []string {
	return []string{d.ViewMatrix, d.Transmission, d.DaylightMatrix, d.SkyVector}
}

func (d Dctimestep) Output() string { return d.OutputFile }

func (d Dctimestep) Render() string {
	return strings.Join([]string{
		"dctimestep", d.ViewMatrix, d.Transmission, d.DaylightMatrix, d.SkyVector, ">", d.OutputFile,
	}, " ")
}
