package miopen

import (
	"strconv"
	"strings"
)

type DType string

const (
	F32  DType = "f32"
	F16  DType = "f16"
	BF16 DType = "bf16"
)

var commandTypes = map[string]DType{
	"conv":      F32,
	"convfp16":  F16,
	"convbfp16": BF16,
}

type Direction int

const (
	Forward        Direction = 1
	BackwardData   Direction = 2
	BackwardWeight Direction = 4
)

var directions = map[int]Direction{
	1: Forward,
	2: BackwardData,
	4: BackwardWeight,
}

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case BackwardData:
		return "backward_data"
	case BackwardWeight:
		return "backward_weight"
	default:
		return "direction(" + strconv.Itoa(int(d)) + ")"
	}
}

// Signature is the canonical description of one convolution.
// Per-axis slices are ordered h, w[, d] and all have the spatial rank as length.
type Signature struct {
	Command   string
	DType     DType
	Direction Direction
	Mode      string

	Batch       int
	InChannels  int
	OutChannels int
	Groups      int

	Input    []int
	Filter   []int
	Stride   []int
	Padding  []int
	Dilation []int

	InputLayout  string
	FilterLayout string
	OutputLayout string
}

// Rank is the number of spatial dimensions.
func (s Signature) Rank() int {
	return len(s.Input)
}

// OutputSize returns the spatial extent of the convolution result.
func (s Signature) OutputSize() []int {
	out := make([]int, s.Rank())
	for i := range out {
		eff := s.Dilation[i]*(s.Filter[i]-1) + 1
		out[i] = (s.Input[i]+2*s.Padding[i]-eff)/s.Stride[i] + 1
	}
	return out
}

func (s Signature) validate() error {
	positive := []struct {
		name string
		v    int
	}{
		{"-n", s.Batch},
		{"-c", s.InChannels},
		{"-k", s.OutChannels},
		{"-g", s.Groups},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return invalidArgs("%s must be positive, got %d", p.name, p.v)
		}
	}
	if s.InChannels%s.Groups != 0 || s.OutChannels%s.Groups != 0 {
		return invalidArgs("group count %d must divide -c %d and -k %d", s.Groups, s.InChannels, s.OutChannels)
	}
	for i := 0; i < s.Rank(); i++ {
		if s.Input[i] <= 0 || s.Filter[i] <= 0 || s.Stride[i] <= 0 || s.Dilation[i] <= 0 {
			return invalidArgs("spatial axis %d: size, filter, stride and dilation must be positive", i)
		}
		if s.Padding[i] < 0 {
			return invalidArgs("spatial axis %d: negative padding %d", i, s.Padding[i])
		}
		if eff := s.Dilation[i]*(s.Filter[i]-1) + 1; s.Input[i]+2*s.Padding[i] < eff {
			return invalidArgs("spatial axis %d: filter does not fit the padded input", i)
		}
	}
	for _, l := range []string{s.InputLayout, s.FilterLayout, s.OutputLayout} {
		if !validLayout(l, s.Rank()) {
			return invalidArgs("invalid layout %q for %dD convolution", l, s.Rank())
		}
	}
	return nil
}

func validLayout(layout string, rank int) bool {
	want := "NCHW"
	if rank == 3 {
		want = "NCDHW"
	}
	if len(layout) != len(want) {
		return false
	}
	for _, c := range want {
		if strings.Count(layout, string(c)) != 1 {
			return false
		}
	}
	return true
}

var axisNames = [3][5]string{
	// input, filter, stride, padding, dilation
	{"H", "y", "u", "p", "l"},
	{"W", "x", "v", "q", "j"},
	{"!", "@", "#", "$", "^"},
}

// Name is a stable identifier for the convolution, usable as a file or
// cache key.
func (s Signature) Name() string {
	var b strings.Builder
	b.WriteString("conv_")
	b.WriteString(strconv.Itoa(s.Rank()))
	b.WriteString("d_")
	b.WriteString(string(s.DType))
	b.WriteByte('_')
	b.WriteString(s.Direction.String())
	if s.Mode != "" && s.Mode != "conv" {
		b.WriteByte('_')
		b.WriteString(s.Mode)
	}
	field := func(k string, v int) {
		b.WriteByte('_')
		b.WriteString(strings.ToLower(k))
		b.WriteString(strconv.Itoa(v))
	}
	field("n", s.Batch)
	field("c", s.InChannels)
	for i := 0; i < s.Rank(); i++ {
		field(longAxis(i, 0), s.Input[i])
	}
	field("k", s.OutChannels)
	for i := 0; i < s.Rank(); i++ {
		field(longAxis(i, 1), s.Filter[i])
	}
	for col, vals := range [][]int{s.Stride, s.Padding, s.Dilation} {
		for i, v := range vals {
			field(longAxis(i, col+2), v)
		}
	}
	field("g", s.Groups)
	for _, l := range []string{s.InputLayout, s.FilterLayout, s.OutputLayout} {
		b.WriteByte('_')
		b.WriteString(strings.ToLower(l))
	}
	return b.String()
}

// longAxis gives the 3D axes readable names, since the driver's
// punctuation shorthands do not survive in file names.
func longAxis(axis, col int) string {
	if axis < 2 {
		return axisNames[axis][col]
	}
	return [5]string{"d", "z", "sd", "pd", "dd"}[col]
}

// DriverArgs renders the signature back into driver arguments. Parsing
// the result yields an identical signature.
func (s Signature) DriverArgs() []string {
	args := []string{s.Command}
	add := func(flag string, v string) {
		args = append(args, flag, v)
	}
	itoa := strconv.Itoa
	add("-n", itoa(s.Batch))
	add("-c", itoa(s.InChannels))
	for i := 0; i < s.Rank(); i++ {
		add("-"+axisNames[i][0], itoa(s.Input[i]))
	}
	add("-k", itoa(s.OutChannels))
	for i := 0; i < s.Rank(); i++ {
		add("-"+axisNames[i][1], itoa(s.Filter[i]))
	}
	for col, vals := range [][]int{s.Stride, s.Padding, s.Dilation} {
		for i, v := range vals {
			add("-"+axisNames[i][col+2], itoa(v))
		}
	}
	add("-m", s.Mode)
	add("-g", itoa(s.Groups))
	add("-F", itoa(int(s.Direction)))
	add("-I", s.InputLayout)
	add("-f", s.FilterLayout)
	add("-O", s.OutputLayout)
	if s.Rank() != 2 {
		add("--spatial_dim", itoa(s.Rank()))
	}
	return args
}
