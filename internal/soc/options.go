package soc

// Channels selects the generator and/or readout channel an operation applies
// to. A nil field means "not selected".
type Channels struct {
	Gen     *int
	Readout *int
}

// ChannelOption configures Channels.
type ChannelOption func(*Channels)

// WithGen selects signal generator ch.
func WithGen(ch int) ChannelOption {
	return func(c *Channels) { c.Gen = &ch }
}

// WithReadout selects readout ch.
func WithReadout(ch int) ChannelOption {
	return func(c *Channels) { c.Readout = &ch }
}

// ResolveChannels applies opts in order.
func ResolveChannels(opts ...ChannelOption) Channels {
	var c Channels
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	return c
}

// Options converts c back into options, for forwarding.
func (c Channels) Options() []ChannelOption {
	var opts []ChannelOption
	if c.Gen != nil {
		opts = append(opts, WithGen(*c.Gen))
	}
	if c.Readout != nil {
		opts = append(opts, WithReadout(*c.Readout))
	}
	return opts
}
