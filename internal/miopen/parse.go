// Package miopen parses convolution configurations written in the MIOpen
// driver argument format, e.g.
//
//	convbfp16 -n 6 -c 112 -H 1 -W 1 -k 448 -y 1 -x 1 -p 0 -q 0 -u 1 -v 1 -l 1 -j 1 -m conv -g 1 -F 1
package miopen

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// ErrInvalidArgs marks an argument list the driver grammar rejects.
var ErrInvalidArgs = errors.New("miopen: invalid arguments")

type argsError struct {
	msg string
}

func (e argsError) Error() string {
	return e.msg
}

func (e argsError) Unwrap() error {
	return ErrInvalidArgs
}

func invalidArgs(format string, args ...any) error {
	return argsError{msg: fmt.Sprintf(format, args...)}
}

// DefaultCommand is used when the argument list carries no command word.
const DefaultCommand = "convbfp16"

type axisFlags struct {
	in, fil, stride, pad, dil *int
}

// Parse parses args with the driver grammar and builds the Signature.
func Parse(args []string) (Signature, error) {
	fs := pflag.NewFlagSet("miopen", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	batch := fs.IntP("batchsize", "n", 100, "mini-batch size")
	inC := fs.IntP("in_channels", "c", 3, "number of input channels")
	outC := fs.IntP("out_channels", "k", 32, "number of output channels")
	groups := fs.IntP("group_count", "g", 1, "number of groups")
	mode := fs.StringP("mode", "m", "conv", "convolution mode (conv, trans)")
	forw := fs.IntP("forw", "F", 1, "1 forward, 2 backward data, 4 backward weight")
	inLayout := fs.StringP("in_layout", "I", "NCHW", "input tensor layout")
	filLayout := fs.StringP("fil_layout", "f", "NCHW", "filter tensor layout")
	outLayout := fs.StringP("out_layout", "O", "NCHW", "output tensor layout")
	spatial := fs.Int("spatial_dim", 2, "number of spatial dimensions (2 or 3)")

	axes := [3]axisFlags{
		{
			in:     fs.IntP("in_h", "H", 32, "input height"),
			fil:    fs.IntP("fil_h", "y", 3, "filter height"),
			stride: fs.IntP("conv_stride_h", "u", 1, "stride height"),
			pad:    fs.IntP("pad_h", "p", 0, "zero padding height"),
			dil:    fs.IntP("dilation_h", "l", 1, "dilation height"),
		},
		{
			in:     fs.IntP("in_w", "W", 32, "input width"),
			fil:    fs.IntP("fil_w", "x", 3, "filter width"),
			stride: fs.IntP("conv_stride_w", "v", 1, "stride width"),
			pad:    fs.IntP("pad_w", "q", 0, "zero padding width"),
			dil:    fs.IntP("dilation_w", "j", 1, "dilation width"),
		},
		{
			in:     fs.IntP("in_d", "!", 32, "input depth"),
			fil:    fs.IntP("fil_d", "@", 3, "filter depth"),
			stride: fs.IntP("conv_stride_d", "#", 1, "stride depth"),
			pad:    fs.IntP("pad_d", "$", 0, "zero padding depth"),
			dil:    fs.IntP("dilation_d", "^", 1, "dilation depth"),
		},
	}

	// Accepted for driver compatibility, not part of the signature.
	fs.StringP("time", "t", "", "time each layer")
	fs.String("iter", "", "number of benchmark iterations")
	fs.StringP("iterations", "i", "", "number of driver iterations")
	fs.StringP("verify", "V", "", "verify each layer")
	fs.StringP("wall", "w", "", "wall-clock time each layer")

	if err := fs.Parse(args); err != nil {
		return Signature{}, invalidArgs("%v", err)
	}

	command := DefaultCommand
	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		command = rest[0]
	default:
		return Signature{}, invalidArgs("unexpected arguments: %s", strings.Join(rest[1:], " "))
	}

	dtype, ok := commandTypes[command]
	if !ok {
		return Signature{}, invalidArgs("unsupported command %q (want conv, convfp16 or convbfp16)", command)
	}

	dir, ok := directions[*forw]
	if !ok {
		return Signature{}, invalidArgs("unsupported -F %d (want 1, 2 or 4)", *forw)
	}

	if *spatial != 2 && *spatial != 3 {
		return Signature{}, invalidArgs("unsupported --spatial_dim %d (want 2 or 3)", *spatial)
	}
	if *spatial == 3 {
		for name, layout := range map[string]*string{
			"in_layout":  inLayout,
			"fil_layout": filLayout,
			"out_layout": outLayout,
		} {
			if !fs.Changed(name) {
				*layout = "NCDHW"
			}
		}
	}

	sig := Signature{
		Command:      command,
		DType:        dtype,
		Direction:    dir,
		Mode:         *mode,
		Batch:        *batch,
		InChannels:   *inC,
		OutChannels:  *outC,
		Groups:       *groups,
		InputLayout:  strings.ToUpper(*inLayout),
		FilterLayout: strings.ToUpper(*filLayout),
		OutputLayout: strings.ToUpper(*outLayout),
	}
	for i := 0; i < *spatial; i++ {
		sig.Input = append(sig.Input, *axes[i].in)
		sig.Filter = append(sig.Filter, *axes[i].fil)
		sig.Stride = append(sig.Stride, *axes[i].stride)
		sig.Padding = append(sig.Padding, *axes[i].pad)
		sig.Dilation = append(sig.Dilation, *axes[i].dil)
	}
	if err := sig.validate(); err != nil {
		return Signature{}, err
	}
	return sig, nil
}
