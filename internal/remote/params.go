package remote

import (
	"bytes"
	"encoding/json"
	"math"

	"github.com/qick-go/qick/internal/soc"
)

// channelParams is the optional trailing object selecting channels.
type channelParams struct {
	GenCh *int `json:"gen_ch,omitempty"`
	ROCh  *int `json:"ro_ch,omitempty"`
}

func (p channelParams) options() []soc.ChannelOption {
	return soc.Channels{Gen: p.GenCh, Readout: p.ROCh}.Options()
}

// channelsToParams is the client-side inverse of channelParams.options.
func channelsToParams(opts []soc.ChannelOption) *channelParams {
	ch := soc.ResolveChannels(opts...)
	if ch.Gen == nil && ch.Readout == nil {
		return nil
	}
	return &channelParams{GenCh: ch.Gen, ROCh: ch.Readout}
}

// numbers holds a positional argument that is either a number or an array of
// numbers; bulk records which one arrived so the reply can keep the shape.
type numbers struct {
	bulk   bool
	scalar float64
	values []float64
}

// maxExactInt is the largest magnitude up to which every integer has an exact
// float64 representation.
const maxExactInt = 1 << 53

var null = []byte("null")

func decodeNumbers(raw json.RawMessage) (numbers, *Error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var ps []*float64
		if err := json.Unmarshal(trimmed, &ps); err != nil {
			return numbers{}, invalidParams("expected an array of numbers: %v", err)
		}
		vs := make([]float64, len(ps))
		for i, p := range ps {
			if p == nil {
				return numbers{}, invalidParams("element %d is null, expected a number", i)
			}
			vs[i] = *p
		}
		return numbers{bulk: true, values: vs}, nil
	}
	v, perr := decodeScalar(trimmed)
	if perr != nil {
		return numbers{}, perr
	}
	return numbers{scalar: v}, nil
}

// decodeScalar decodes a single number; null is rejected rather than read as 0.
func decodeScalar(raw json.RawMessage) (float64, *Error) {
	trimmed := bytes.TrimSpace(raw)
	if bytes.Equal(trimmed, null) {
		return 0, invalidParams("expected a number, got null")
	}
	var v float64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return 0, invalidParams("expected a number or an array of numbers: %v", err)
	}
	return v, nil
}

func toInts(vs []float64) ([]int, *Error) {
	out := make([]int, len(vs))
	for i, v := range vs {
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, invalidParams("cycle counts must be integers, got %v", v)
		}
		if math.Abs(v) > maxExactInt {
			return nil, invalidParams("cycle count %v is out of range (|cycles| <= 2^53)", v)
		}
		out[i] = int(v)
	}
	return out, nil
}

// splitParams checks the positional count and decodes the optional trailing
// channel object at index at.
func splitParams(params []json.RawMessage, required, at int) (channelParams, *Error) {
	var ch channelParams
	if len(params) < required || len(params) > at+1 {
		return ch, invalidParams("expected %d to %d params, got %d", required, at+1, len(params))
	}
	if len(params) == at+1 {
		if err := json.Unmarshal(params[at], &ch); err != nil {
			return ch, invalidParams("expected channel object {gen_ch, ro_ch}: %v", err)
		}
	}
	return ch, nil
}
