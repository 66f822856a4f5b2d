package hardware

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Descriptor describes the firmware loaded on a board: the clocks and DDS
// widths of its processor, generators and readouts. Frequencies are in MHz.
type Descriptor struct {
	Board       string    `yaml:"board"`
	FWTimestamp string    `yaml:"fw_timestamp,omitempty"`
	RefClock    float64   `yaml:"refclk_freq,omitempty"`
	TProc       TProc     `yaml:"tproc"`
	Gens        []Channel `yaml:"gens"`
	Readouts    []Channel `yaml:"readouts"`
}

// TProc describes the timed processor.
type TProc struct {
	FTime float64 `yaml:"f_time"`
}

// Channel describes one generator or readout.
type Channel struct {
	FS      float64 `yaml:"fs"`
	BDDS    int     `yaml:"b_dds"`
	FFabric float64 `yaml:"f_fabric"`
}

// LoadDescriptor reads and validates a YAML descriptor.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDescriptor(data)
}

// ParseDescriptor decodes and validates a YAML descriptor.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse descriptor: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks that every clock is usable for conversion.
func (d *Descriptor) Validate() error {
	if d.TProc.FTime <= 0 {
		return fmt.Errorf("descriptor: tproc f_time must be positive, got %v", d.TProc.FTime)
	}
	check := func(kind string, chs []Channel) error {
		for i, ch := range chs {
			if ch.FS <= 0 || ch.FFabric <= 0 {
				return fmt.Errorf("descriptor: %s %d: fs and f_fabric must be positive", kind, i)
			}
			if ch.BDDS <= 0 || ch.BDDS > 48 {
				return fmt.Errorf("descriptor: %s %d: b_dds %d outside [1, 48]", kind, i, ch.BDDS)
			}
		}
		return nil
	}
	if err := check("gen", d.Gens); err != nil {
		return err
	}
	return check("readout", d.Readouts)
}

// Snapshot renders the descriptor as a configuration snapshot.
func (d *Descriptor) Snapshot() map[string]any {
	channels := func(chs []Channel) []any {
		out := make([]any, len(chs))
		for i, ch := range chs {
			out[i] = map[string]any{
				"fs":       ch.FS,
				"b_dds":    ch.BDDS,
				"f_fabric": ch.FFabric,
			}
		}
		return out
	}
	snap := map[string]any{
		"board":    d.Board,
		"tprocs":   []any{map[string]any{"f_time": d.TProc.FTime}},
		"gens":     channels(d.Gens),
		"readouts": channels(d.Readouts),
	}
	if d.FWTimestamp != "" {
		snap["fw_timestamp"] = d.FWTimestamp
	}
	if d.RefClock != 0 {
		snap["refclk_freq"] = d.RefClock
	}
	return snap
}

// descriptorFromSnapshot rebuilds a descriptor from a snapshot, including one
// decoded from JSON on a remote client.
func descriptorFromSnapshot(snap map[string]any) (*Descriptor, error) {
	flat := make(map[string]any, len(snap))
	for k, v := range snap {
		flat[k] = v
	}
	if tprocs, ok := snap["tprocs"].([]any); ok && len(tprocs) > 0 {
		flat["tproc"] = tprocs[0]
		delete(flat, "tprocs")
	}
	data, err := yaml.Marshal(flat)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return ParseDescriptor(data)
}
