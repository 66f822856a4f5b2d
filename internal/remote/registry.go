// Package remote makes the capability set reachable by remote clients.
//
// A Registry is the explicit list of operations an implementation marks as
// remote-callable, built once; the JSON-RPC Server dispatches only through it
// and the Client calls it by the same names and argument shapes as local code.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/qick-go/qick/internal/logging"
	"github.com/qick-go/qick/internal/soc"
)

// Method is a remote-callable operation. Parameter errors are returned as
// *Error with CodeInvalidParams.
type Method func(ctx context.Context, params []json.RawMessage) (interface{}, error)

// Registry maps exposed operation names to methods. It is read-only after
// NewRegistry and safe for concurrent use.
type Registry struct {
	methods map[string]Method
}

// channelChecker is implemented by SoCs with a finite set of channels.
type channelChecker interface {
	CheckChannels(soc.Channels) error
}

// binders build the method for each capability set operation.
var binders = map[string]func(s soc.SoC) Method{
	soc.OpGetConfig:  bindGetConfig,
	soc.OpAdjustFreq: bindAdjustFreq,
	soc.OpUsToCycles: bindUsToCycles,
	soc.OpCyclesToUs: bindCyclesToUs,
}

// NewRegistry builds the registry for the operations s exposes. A nil s yields
// an empty registry and a nil logger discards. Exposed names that are not capability set operations are
// logged and skipped.
func NewRegistry(s soc.SoC, logger *log.Logger) *Registry {
	if logger == nil {
		logger = logging.Discard()
	}
	r := &Registry{methods: make(map[string]Method)}
	if s == nil {
		return r
	}
	for _, name := range soc.ExposedOf(s) {
		bind, ok := binders[name]
		if !ok {
			logger.Printf("remote: %T exposes unknown operation %q, skipping", s, name)
			continue
		}
		r.methods[name] = bind(s)
	}
	return r
}

// Names returns the exposed operation names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the method registered under name.
func (r *Registry) Lookup(name string) (Method, bool) {
	m, ok := r.methods[name]
	return m, ok
}

// Call invokes name with params.
func (r *Registry) Call(ctx context.Context, name string, params []json.RawMessage) (interface{}, error) {
	m, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotExposed, name)
	}
	return m(ctx, params)
}

func checkChannels(s soc.SoC, ch channelParams) error {
	cc, ok := s.(channelChecker)
	if !ok {
		return nil
	}
	if err := cc.CheckChannels(soc.Channels{Gen: ch.GenCh, Readout: ch.ROCh}); err != nil {
		return invalidParams("%v", err)
	}
	return nil
}

func bindGetConfig(s soc.SoC) Method {
	return func(_ context.Context, params []json.RawMessage) (interface{}, error) {
		if len(params) > 0 {
			return nil, invalidParams("get_cfg takes no params")
		}
		return s.GetConfig(), nil
	}
}

func bindAdjustFreq(s soc.SoC) Method {
	return func(_ context.Context, params []json.RawMessage) (interface{}, error) {
		ch, perr := splitParams(params, 1, 1)
		if perr != nil {
			return nil, perr
		}
		f, perr := decodeScalar(params[0])
		if perr != nil {
			return nil, perr
		}
		if err := checkChannels(s, ch); err != nil {
			return nil, err
		}
		return s.AdjustFrequency(f, ch.options()...), nil
	}
}

func bindUsToCycles(s soc.SoC) Method {
	return func(_ context.Context, params []json.RawMessage) (interface{}, error) {
		ch, perr := splitParams(params, 1, 1)
		if perr != nil {
			return nil, perr
		}
		in, perr := decodeNumbers(params[0])
		if perr != nil {
			return nil, perr
		}
		if err := checkChannels(s, ch); err != nil {
			return nil, err
		}
		if in.bulk {
			return s.UsToCyclesBulk(in.values, ch.options()...), nil
		}
		return s.UsToCycles(in.scalar, ch.options()...), nil
	}
}

func bindCyclesToUs(s soc.SoC) Method {
	return func(_ context.Context, params []json.RawMessage) (interface{}, error) {
		ch, perr := splitParams(params, 1, 1)
		if perr != nil {
			return nil, perr
		}
		in, perr := decodeNumbers(params[0])
		if perr != nil {
			return nil, perr
		}
		if err := checkChannels(s, ch); err != nil {
			return nil, err
		}
		if in.bulk {
			cycles, perr := toInts(in.values)
			if perr != nil {
				return nil, perr
			}
			return s.CyclesToUsBulk(cycles, ch.options()...), nil
		}
		cycles, perr := toInts([]float64{in.scalar})
		if perr != nil {
			return nil, perr
		}
		return s.CyclesToUs(cycles[0], ch.options()...), nil
	}
}
